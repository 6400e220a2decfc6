package service

import (
	"context"

	"waste-marketplace/onboarding/internal/onboarding/domain"
	telemetrydomain "waste-marketplace/onboarding/internal/telemetry/domain"
)

// SelectRole records the buyer/seller choice on the RoleSelect step and enables continue.
func (c *Controller) SelectRole(ctx context.Context, role domain.Role) (domain.FlowState, error) {
	return c.local(ctx, domain.StepRoleSelect, func() error {
		c.state.ClearMessages()
		if !role.Valid() {
			verr := domain.NewValidationError(domain.FieldRole, MsgSelectRole)
			c.state.FieldErrors = copyFields(verr.Fields)
			return verr
		}
		c.state.SetRole(role)
		return nil
	})
}

// ConfirmRole advances RoleSelect to TypeSelect.
func (c *Controller) ConfirmRole(ctx context.Context) (domain.FlowState, error) {
	return c.local(ctx, domain.StepRoleSelect, func() error {
		if !c.state.SelectedRole.Valid() {
			c.state.Error = MsgSelectRole
			return domain.ErrRoleNotSelected
		}
		c.state.ClearMessages()
		c.setStepLocked(ctx, domain.StepTypeSelect)
		return nil
	})
}

// SelectAccountType records individual/corporate on the TypeSelect step. The role is
// re-checked so a type can never be combined with a missing role.
func (c *Controller) SelectAccountType(ctx context.Context, accountType domain.AccountType) (domain.FlowState, error) {
	return c.local(ctx, domain.StepTypeSelect, func() error {
		c.state.ClearMessages()
		if !c.state.SelectedRole.Valid() {
			c.state.Error = MsgSelectRole
			return domain.ErrRoleNotSelected
		}
		if !accountType.Valid() {
			verr := domain.NewValidationError(domain.FieldAccountType, MsgSelectAccount)
			c.state.FieldErrors = copyFields(verr.Fields)
			return verr
		}
		c.state.SetAccountType(accountType)
		return nil
	})
}

// ConfirmAccountType advances TypeSelect to MobileEntry.
func (c *Controller) ConfirmAccountType(ctx context.Context) (domain.FlowState, error) {
	return c.local(ctx, domain.StepTypeSelect, func() error {
		if !c.state.SelectedRole.Valid() {
			c.state.Error = MsgSelectRole
			return domain.ErrRoleNotSelected
		}
		if !c.state.SelectedAccountType.Valid() {
			c.state.Error = MsgSelectAccount
			return domain.ErrAccountTypeNotSelected
		}
		c.state.ClearMessages()
		c.setStepLocked(ctx, domain.StepMobileEntry)
		return nil
	})
}

// EnterMobile records typed input; the send control follows its validity.
func (c *Controller) EnterMobile(ctx context.Context, raw string) (domain.FlowState, error) {
	return c.local(ctx, domain.StepMobileEntry, func() error {
		c.state.MobileInput = raw
		delete(c.state.FieldErrors, domain.FieldMobile)
		return nil
	})
}

// EnterOTP records typed OTP input; the verify control follows its validity.
func (c *Controller) EnterOTP(ctx context.Context, code string) (domain.FlowState, error) {
	return c.local(ctx, domain.StepOTPEntry, func() error {
		c.state.OTPInput = code
		delete(c.state.FieldErrors, domain.FieldOTP)
		return nil
	})
}

// Back returns to the previous step. Only transient messages are cleared; selections and ids
// are kept. Any in-flight response is orphaned by the generation bump. Back is allowed while
// a request is in flight.
func (c *Controller) Back(ctx context.Context) (domain.FlowState, error) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if c.state.CurrentStep == domain.StepTerminal {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, domain.ErrFlowFinished
	}
	prev, ok := c.state.CurrentStep.Previous()
	if !ok {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, domain.ErrWrongStep
	}
	if c.state.CurrentStep == domain.StepOTPEntry {
		c.stopCountdownLocked()
	}
	c.state.ClearMessages()
	c.state.Busy = false
	c.state.Generation++
	if prev == domain.StepOTPEntry && c.cancelCountdown == nil {
		// coming back from DetailEntry: no countdown is running, let the user resend at once
		c.state.ResendCountdownSeconds = 0
		c.state.ResendAvailable = true
	}
	c.setStepLocked(ctx, prev)
	s := c.state.Clone()
	c.mu.Unlock()

	c.renderUnordered(ctx)
	return s, nil
}

// Restart cancels the countdown and returns to an empty RoleSelect step.
func (c *Controller) Restart(ctx context.Context) (domain.FlowState, error) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if c.state.CurrentStep == domain.StepTerminal {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, domain.ErrFlowFinished
	}
	c.stopCountdownLocked()
	gen := c.state.Generation + 1
	c.state = domain.NewFlowState()
	c.state.Generation = gen
	c.emitLocked(ctx, telemetrydomain.EventStepChanged, map[string]string{"reason": "restart"})
	s := c.state.Clone()
	c.mu.Unlock()

	c.renderUnordered(ctx)
	return s, nil
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
