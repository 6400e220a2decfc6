package approval

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"waste-marketplace/onboarding/internal/onboarding/domain"
)

const approvalQuery = "data.onboarding.approval.is_approved"

// DefaultRegoPolicy matches StaticEvaluator.
const DefaultRegoPolicy = `package onboarding.approval

default is_approved := true

is_approved := false if {
	input.role == "buyer"
	input.account_type == "corporate"
}
`

// OPAEvaluator evaluates the approval policy with OPA Rego. The policy is compiled once.
type OPAEvaluator struct {
	query  rego.PreparedEvalQuery
	logger *zap.Logger
}

// NewOPAEvaluator compiles policy (DefaultRegoPolicy when empty).
func NewOPAEvaluator(ctx context.Context, policy string, logger *zap.Logger) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultRegoPolicy
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	compiler, err := ast.CompileModules(map[string]string{"approval.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile approval policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(approvalQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare approval policy: %w", err)
	}
	return &OPAEvaluator{query: q, logger: logger}, nil
}

// NewOPAEvaluatorFromFile reads a Rego module from path. An empty path uses the default policy.
func NewOPAEvaluatorFromFile(ctx context.Context, path string, logger *zap.Logger) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "", logger)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read approval policy: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b), logger)
}

// Evaluate runs the policy. If evaluation fails or yields no boolean, the built-in rule is
// used and the failure is logged; the returned error is then nil.
func (e *OPAEvaluator) Evaluate(ctx context.Context, role domain.Role, accountType domain.AccountType) (Decision, error) {
	input := map[string]interface{}{
		"role":         string(role),
		"account_type": string(accountType),
		"user_type":    domain.UserType(role, accountType),
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		e.logger.Warn("approval policy evaluation failed, using defaults", zap.Error(err))
		return defaultDecision(role, accountType), nil
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		e.logger.Warn("approval policy returned no result, using defaults", zap.String("user_type", domain.UserType(role, accountType)))
		return defaultDecision(role, accountType), nil
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		e.logger.Warn("approval policy returned a non-boolean, using defaults")
		return defaultDecision(role, accountType), nil
	}
	return Decision{IsApproved: v}, nil
}

// HealthCheck evaluates the policy for a sample input and fails if it yields no boolean.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":         string(domain.RoleBuyer),
		"account_type": string(domain.AccountIndividual),
		"user_type":    domain.UserType(domain.RoleBuyer, domain.AccountIndividual),
	}))
	if err != nil {
		return fmt.Errorf("approval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("approval policy: %s is undefined", approvalQuery)
	}
	if _, ok := rs[0].Expressions[0].Value.(bool); !ok {
		return fmt.Errorf("approval policy: %s is not a boolean", approvalQuery)
	}
	return nil
}
