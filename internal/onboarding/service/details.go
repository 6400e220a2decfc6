package service

import (
	"context"

	"go.uber.org/zap"

	"waste-marketplace/onboarding/internal/onboarding/client"
	"waste-marketplace/onboarding/internal/onboarding/domain"
	"waste-marketplace/onboarding/internal/onboarding/validate"
	telemetrydomain "waste-marketplace/onboarding/internal/telemetry/domain"
)

// SubmitUserDetails validates the DetailEntry form for the selected account type and saves it.
// Validation failures set field errors and make no network call. On success the session is
// persisted with the approval policy's decision and the flow redirects.
func (c *Controller) SubmitUserDetails(ctx context.Context, form domain.DetailForm) (domain.FlowState, error) {
	c.mu.Lock()
	if err := c.guardLocked(domain.StepDetailEntry); err != nil {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, err
	}
	normalized, verr := validate.Details(c.state.SelectedAccountType, form)
	if !verr.Empty() {
		c.state.ClearMessages()
		c.state.FieldErrors = copyFields(verr.Fields)
		s := c.state.Clone()
		c.mu.Unlock()
		c.render(ctx)
		return s, verr
	}
	userID := c.state.UserID
	role := c.state.SelectedRole
	accountType := c.state.SelectedAccountType
	req := client.NewUserDetailsRequest(c.state.DerivedUserType, normalized)
	gen := c.beginLocked()
	c.mu.Unlock()
	c.render(ctx)
	defer c.release(ctx, gen)

	err := c.api.SubmitUserDetails(ctx, userID, req)
	if err != nil {
		c.metrics.request(ctx, "submit_details", outcome(err))
		return c.apply(gen, func() error {
			c.state.Error = userMessage(err, MsgDetailsFailed)
			c.logger.Warn("user details submit failed", zap.String("user_id", userID), zap.Error(err))
			c.emitLocked(ctx, telemetrydomain.EventDetailsFailed, nil)
			return err
		})
	}
	c.metrics.request(ctx, "submit_details", "ok")

	if c.stale(gen) {
		return c.State(), domain.ErrStaleResponse
	}
	return c.completeAndApply(ctx, gen, completion{userID: userID, role: role, accountType: accountType}, func(fin *finish) error {
		c.emitLocked(ctx, telemetrydomain.EventDetailsSaved, nil)
		return c.finishLocked(ctx, fin)
	})
}
