package service

import (
	"fmt"

	"waste-marketplace/onboarding/internal/onboarding/domain"
	"waste-marketplace/onboarding/internal/onboarding/validate"
)

// BuildView derives what a presenter shows from s.
func BuildView(s domain.FlowState) domain.View {
	idle := !s.Busy && s.CurrentStep != domain.StepTerminal
	v := domain.View{
		Step:            s.CurrentStep,
		State:           s.Clone(),
		ControlsEnabled: idle,
	}
	switch s.CurrentStep {
	case domain.StepRoleSelect:
		v.CanContinue = idle && s.SelectedRole.Valid()
	case domain.StepTypeSelect:
		v.CanContinue = idle && s.SelectedAccountType.Valid()
	case domain.StepMobileEntry:
		v.MobileEditable = idle
		v.CanSendOTP = idle && validate.Mobile(s.MobileInput)
	case domain.StepOTPEntry:
		v.CanVerifyOTP = idle && validate.OTP(s.OTPInput)
		v.ShowCountdown = !s.ResendAvailable && s.ResendCountdownSeconds > 0
		if v.ShowCountdown {
			v.CountdownText = CountdownText(s.ResendCountdownSeconds)
		}
		v.CanResend = idle && s.ResendAvailable
	}
	return v
}

// CountdownText is the resend countdown label.
func CountdownText(seconds int) string {
	return fmt.Sprintf("Resend OTP in %ds", seconds)
}
