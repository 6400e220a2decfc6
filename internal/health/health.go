// Package health reports whether the onboarding host's dependencies are usable: the
// client-side store and the approval policy.
package health

import (
	"context"
	"time"
)

// Status is the overall readiness.
type Status string

const (
	StatusServing    Status = "SERVING"
	StatusNotServing Status = "NOT_SERVING"
)

const checkTimeout = 3 * time.Second

// Pinger checks connectivity (e.g. storage.PostgresStore, storage.RedisStore).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the approval policy evaluates (e.g. approval.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Report is the result of Check. A nil error means the component is healthy or not configured.
type Report struct {
	Status  Status
	Storage error
	Policy  error
}

// Checker runs readiness checks. Either dependency may be nil.
type Checker struct {
	store  Pinger
	policy PolicyChecker
}

// NewChecker returns a Checker. Pass nil for components that are not configured.
func NewChecker(store Pinger, policy PolicyChecker) *Checker {
	return &Checker{store: store, policy: policy}
}

// Check returns SERVING when every configured dependency responds within the check timeout.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	r := Report{Status: StatusServing}
	if c.store != nil {
		r.Storage = c.store.PingContext(ctx)
	}
	if c.policy != nil {
		r.Policy = c.policy.HealthCheck(ctx)
	}
	if r.Storage != nil || r.Policy != nil {
		r.Status = StatusNotServing
	}
	return r
}
