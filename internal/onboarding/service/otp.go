package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"waste-marketplace/onboarding/internal/onboarding/client"
	"waste-marketplace/onboarding/internal/onboarding/domain"
	"waste-marketplace/onboarding/internal/onboarding/validate"
	telemetrydomain "waste-marketplace/onboarding/internal/telemetry/domain"
)

// ErrOTPRejected is returned when the backend did not verify the OTP. The user-visible
// message is in FlowState.Error.
var ErrOTPRejected = errors.New("otp rejected")

var errEmptyResponse = errors.New("empty response")

// SubmitMobileNumber validates raw (exactly ten digits, no trimming) and requests an OTP.
// An invalid number sets a field error and makes no network call.
func (c *Controller) SubmitMobileNumber(ctx context.Context, raw string) (domain.FlowState, error) {
	c.mu.Lock()
	if err := c.guardLocked(domain.StepMobileEntry); err != nil {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, err
	}
	c.state.MobileInput = raw
	if verr := validate.MobileError(raw); verr != nil {
		c.state.ClearMessages()
		c.state.FieldErrors = copyFields(verr.Fields)
		s := c.state.Clone()
		c.mu.Unlock()
		c.render(ctx)
		return s, verr
	}
	gen := c.beginLocked()
	c.mu.Unlock()
	c.render(ctx)
	defer c.release(ctx, gen)

	return c.sendOTP(ctx, gen, raw, false)
}

// ResendOTP requests a fresh OTP for the number already submitted. It is only available on
// OtpEntry once the countdown has reached zero. A failed resend leaves resend available and
// does not restart the countdown.
func (c *Controller) ResendOTP(ctx context.Context) (domain.FlowState, error) {
	c.mu.Lock()
	if err := c.guardLocked(domain.StepOTPEntry); err != nil {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, err
	}
	if !c.state.ResendAvailable {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, domain.ErrResendNotReady
	}
	mobile := c.state.MobileNumber
	gen := c.beginLocked()
	c.mu.Unlock()
	c.render(ctx)
	defer c.release(ctx, gen)

	return c.sendOTP(ctx, gen, mobile, true)
}

func (c *Controller) sendOTP(ctx context.Context, gen uint64, mobile string, resend bool) (domain.FlowState, error) {
	op := "send_otp"
	if resend {
		op = "resend_otp"
	}
	res, err := c.api.SendOTP(ctx, mobile)
	if err == nil && res == nil {
		err = &client.TransportError{Op: op, Err: errEmptyResponse}
	}
	if err != nil {
		c.metrics.request(ctx, op, outcome(err))
	} else {
		c.metrics.request(ctx, op, "ok")
	}

	return c.apply(gen, func() error {
		if err != nil {
			c.state.Error = userMessage(err, MsgSendOTPFailed)
			if resend {
				c.state.ResendAvailable = true
				c.state.ResendCountdownSeconds = 0
			}
			c.logger.Warn("otp send failed", zap.String("mobile_suffix", mobileSuffix(mobile)), zap.Bool("resend", resend), zap.Error(err))
			c.emitLocked(ctx, telemetrydomain.EventOTPSendFailed, map[string]string{"resend": boolString(resend)})
			return err
		}
		c.state.MobileNumber = mobile
		c.state.OTPTransactionID = res.TransactionID
		c.state.OTPInput = ""
		if res.OTP != "" && c.cfg.OTPPrefill {
			c.state.OTPInput = res.OTP
		}
		c.setStepLocked(ctx, domain.StepOTPEntry)
		c.startCountdownLocked()
		c.logger.Info("otp sent", zap.String("mobile_suffix", mobileSuffix(mobile)), zap.Bool("resend", resend))
		c.emitLocked(ctx, telemetrydomain.EventOTPSent, map[string]string{
			"mobile_suffix": mobileSuffix(mobile),
			"resend":        boolString(resend),
		})
		return nil
	})
}

// SubmitOTP validates code (exactly six digits) and verifies it. On success the flow either
// redirects (profile complete) or moves to DetailEntry.
func (c *Controller) SubmitOTP(ctx context.Context, code string) (domain.FlowState, error) {
	c.mu.Lock()
	if err := c.guardLocked(domain.StepOTPEntry); err != nil {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, err
	}
	c.state.OTPInput = code
	if verr := validate.OTPError(code); verr != nil {
		c.state.ClearMessages()
		c.state.FieldErrors = copyFields(verr.Fields)
		s := c.state.Clone()
		c.mu.Unlock()
		c.render(ctx)
		return s, verr
	}
	txID := c.state.OTPTransactionID
	userType := c.state.DerivedUserType
	role := c.state.SelectedRole
	accountType := c.state.SelectedAccountType
	gen := c.beginLocked()
	c.mu.Unlock()
	c.render(ctx)
	defer c.release(ctx, gen)

	res, err := c.api.VerifyOTP(ctx, txID, code, userType)
	if err == nil && res == nil {
		err = &client.TransportError{Op: "verify_otp", Err: errEmptyResponse}
	}
	switch {
	case err != nil:
		c.metrics.request(ctx, "verify_otp", outcome(err))
	case res.Verified:
		c.metrics.request(ctx, "verify_otp", "ok")
	default:
		c.metrics.request(ctx, "verify_otp", "rejected")
	}

	if err == nil && res.Verified && profileComplete(res) {
		if c.stale(gen) {
			return c.State(), domain.ErrStaleResponse
		}
		in := completion{
			userID:         res.UserID,
			role:           roleFor(res.UserRole, role),
			accountType:    accountType,
			serverApproved: res.IsApproved,
		}
		return c.completeAndApply(ctx, gen, in, func(fin *finish) error {
			c.verifiedLocked(ctx, res.UserID, true)
			return c.finishLocked(ctx, fin)
		})
	}

	return c.apply(gen, func() error {
		switch {
		case err != nil:
			c.state.Error = userMessage(err, MsgNetworkError)
			c.state.OTPInput = ""
			c.logger.Warn("otp verify failed", zap.Error(err))
			c.emitLocked(ctx, telemetrydomain.EventOTPRejected, map[string]string{"reason": "transport"})
			return err
		case !res.Verified:
			msg := res.Message
			if msg == "" {
				msg = MsgInvalidOTP
			}
			c.state.Error = msg
			c.state.OTPInput = ""
			c.logger.Info("otp rejected", zap.String("message", msg))
			c.emitLocked(ctx, telemetrydomain.EventOTPRejected, map[string]string{"reason": "server"})
			return fmt.Errorf("%w: %s", ErrOTPRejected, msg)
		}
		c.verifiedLocked(ctx, res.UserID, false)
		c.setStepLocked(ctx, domain.StepDetailEntry)
		return nil
	})
}

// verifiedLocked records the verified user. Caller holds mu.
func (c *Controller) verifiedLocked(ctx context.Context, userID string, redirecting bool) {
	c.state.UserID = userID
	c.stopCountdownLocked()
	c.emitLocked(ctx, telemetrydomain.EventOTPVerified, map[string]string{"profile_complete": boolString(redirecting)})
}

// profileComplete is true when the backend returned non-empty user details and did not
// explicitly report the profile as incomplete.
func profileComplete(res *client.VerifyOTPResult) bool {
	if len(res.UserDetails) == 0 {
		return false
	}
	return res.ProfileCompleted == nil || *res.ProfileCompleted
}

// userMessage picks the server message, the generic network message for transport failures,
// or def.
func userMessage(err error, def string) string {
	if client.IsTransport(err) {
		return MsgNetworkError
	}
	if msg := client.ServerMessage(err); msg != "" {
		return msg
	}
	return def
}

func outcome(err error) string {
	if client.IsTransport(err) {
		return "transport_error"
	}
	return "server_error"
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
