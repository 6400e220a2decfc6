// Package approval decides whether a newly onboarded account is approved immediately or waits
// for manual review.
package approval

import (
	"context"

	"waste-marketplace/onboarding/internal/onboarding/domain"
)

// Decision is the outcome of an approval evaluation.
type Decision struct {
	IsApproved bool
}

// Evaluator evaluates the approval policy for a role/account type pair.
type Evaluator interface {
	Evaluate(ctx context.Context, role domain.Role, accountType domain.AccountType) (Decision, error)
}

// StaticEvaluator is the built-in rule: corporate buyers need manual approval, everyone else
// is approved on registration.
type StaticEvaluator struct{}

// Evaluate applies the built-in rule.
func (StaticEvaluator) Evaluate(_ context.Context, role domain.Role, accountType domain.AccountType) (Decision, error) {
	return defaultDecision(role, accountType), nil
}

func defaultDecision(role domain.Role, accountType domain.AccountType) Decision {
	return Decision{IsApproved: !(role == domain.RoleBuyer && accountType == domain.AccountCorporate)}
}
