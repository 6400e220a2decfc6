package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"waste-marketplace/onboarding/internal/approval"
	"waste-marketplace/onboarding/internal/onboarding/domain"
	"waste-marketplace/onboarding/internal/storage"
	telemetrydomain "waste-marketplace/onboarding/internal/telemetry/domain"
)

// completion is what a successful verification or detail submission knows about the user.
type completion struct {
	userID      string
	role        domain.Role
	accountType domain.AccountType
	// serverApproved overrides the approval policy when the backend reported it.
	serverApproved *bool
}

// finish is the outcome of persisting a completed login.
type finish struct {
	role     domain.Role
	redirect domain.Redirect
	saveErr  error
}

// complete decides approval and persists the session. It runs without the lock because the
// store may be remote.
func (c *Controller) complete(ctx context.Context, in completion) *finish {
	approved := true
	if in.serverApproved != nil {
		approved = *in.serverApproved
	} else {
		d, err := c.approval.Evaluate(ctx, in.role, in.accountType)
		if err != nil {
			c.logger.Warn("approval evaluation failed", zap.Error(err))
			d, _ = approval.StaticEvaluator{}.Evaluate(ctx, in.role, in.accountType)
		}
		approved = d.IsApproved
	}

	err := storage.SaveSession(ctx, c.store, storage.Session{
		UserID:          in.userID,
		Role:            string(in.role),
		LoginTimestamp:  c.now(),
		IsLoggedIn:      true,
		IsApproved:      approved,
		ProfileComplete: true,
	})
	if err != nil {
		c.logger.Error("persist session", zap.String("user_id", in.userID), zap.Error(err))
	}
	return &finish{
		role: in.role,
		redirect: domain.Redirect{
			Target:     c.landingFor(in.role),
			Delay:      c.cfg.RedirectDelay,
			IsApproved: approved,
		},
		saveErr: err,
	}
}

// completeAndApply persists the session for in and then runs fn under mu if gen is still
// current. When the flow moved on while the store was writing, the session is removed again
// and ErrStaleResponse is returned.
func (c *Controller) completeAndApply(ctx context.Context, gen uint64, in completion, fn func(*finish) error) (domain.FlowState, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	fin := c.complete(ctx, in)
	applied := false
	s, err := c.apply(gen, func() error {
		applied = true
		return fn(fin)
	})
	if !applied {
		if cerr := storage.ClearSession(context.WithoutCancel(ctx), c.store); cerr != nil {
			c.logger.Error("remove session of stale response", zap.String("user_id", in.userID), zap.Error(cerr))
		} else {
			c.logger.Info("removed session of stale response", zap.String("user_id", in.userID))
		}
	}
	return s, err
}

// finishLocked moves to the terminal step. Caller holds mu.
func (c *Controller) finishLocked(ctx context.Context, fin *finish) error {
	c.stopCountdownLocked()
	r := fin.redirect
	c.state.Redirect = &r
	c.state.Busy = false
	if fin.saveErr != nil {
		c.state.Error = MsgSessionNotSave
	}
	c.setStepLocked(ctx, domain.StepTerminal)
	c.logger.Info("onboarding complete",
		zap.String("user_id", c.state.UserID),
		zap.String("role", string(fin.role)),
		zap.Bool("is_approved", r.IsApproved),
		zap.String("target", r.Target),
	)
	c.emitLocked(ctx, telemetrydomain.EventRedirect, map[string]string{
		"target":      r.Target,
		"is_approved": boolString(r.IsApproved),
	})
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return nil
}

// landingFor maps a role to its landing page; unknown roles go home.
func (c *Controller) landingFor(role domain.Role) string {
	switch role {
	case domain.RoleSeller:
		if c.cfg.SellerLandingURL != "" {
			return c.cfg.SellerLandingURL
		}
	case domain.RoleBuyer:
		if c.cfg.BuyerLandingURL != "" {
			return c.cfg.BuyerLandingURL
		}
	}
	return c.cfg.HomeURL
}

// roleFor prefers the role reported by the backend ("seller", "buyer_corporate", ...) and falls
// back to the role chosen in this flow.
func roleFor(serverRole string, selected domain.Role) domain.Role {
	r := strings.ToLower(strings.TrimSpace(serverRole))
	switch {
	case strings.HasPrefix(r, string(domain.RoleSeller)):
		return domain.RoleSeller
	case strings.HasPrefix(r, string(domain.RoleBuyer)):
		return domain.RoleBuyer
	case r != "":
		return domain.Role(r)
	}
	return selected
}
