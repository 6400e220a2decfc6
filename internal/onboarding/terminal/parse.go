package terminal

import (
	"errors"
	"fmt"
	"strings"

	"waste-marketplace/onboarding/internal/onboarding/domain"
)

// ParseLine turns one typed line into the actions it stands for in the view's step.
// "back" and "restart" work everywhere; a choice on steps 1 and 2 also confirms it.
func ParseLine(v domain.View, line string) ([]domain.Action, error) {
	text := strings.TrimSpace(line)
	switch strings.ToLower(text) {
	case "back":
		return []domain.Action{{Kind: domain.ActionBack}}, nil
	case "restart":
		return []domain.Action{{Kind: domain.ActionRestart}}, nil
	}

	switch v.Step {
	case domain.StepRoleSelect:
		if text == "" {
			return []domain.Action{{Kind: domain.ActionConfirmRole}}, nil
		}
		return []domain.Action{
			{Kind: domain.ActionSelectRole, Role: domain.Role(strings.ToLower(text))},
			{Kind: domain.ActionConfirmRole},
		}, nil
	case domain.StepTypeSelect:
		if text == "" {
			return []domain.Action{{Kind: domain.ActionConfirmType}}, nil
		}
		return []domain.Action{
			{Kind: domain.ActionSelectAccountType, AccountType: domain.AccountType(strings.ToLower(text))},
			{Kind: domain.ActionConfirmType},
		}, nil
	case domain.StepMobileEntry:
		// the raw line is submitted; validation rejects surrounding spaces
		raw := strings.TrimRight(line, "\r")
		return []domain.Action{
			{Kind: domain.ActionEnterMobile, Text: raw},
			{Kind: domain.ActionSubmitMobile, Text: raw},
		}, nil
	case domain.StepOTPEntry:
		if strings.EqualFold(text, "resend") {
			return []domain.Action{{Kind: domain.ActionResendOTP}}, nil
		}
		code := text
		if code == "" {
			code = v.State.OTPInput
		}
		return []domain.Action{
			{Kind: domain.ActionEnterOTP, Text: code},
			{Kind: domain.ActionSubmitOTP, Text: code},
		}, nil
	case domain.StepDetailEntry:
		form, err := ParseDetailForm(text)
		if err != nil {
			return nil, err
		}
		return []domain.Action{{Kind: domain.ActionSubmitDetails, Form: form}}, nil
	case domain.StepTerminal:
		return nil, errors.New("onboarding is finished")
	}
	return nil, fmt.Errorf("unknown step %d", v.Step)
}

// ParseDetailForm reads "field=value; field=value" using the form field names.
func ParseDetailForm(text string) (domain.DetailForm, error) {
	var f domain.DetailForm
	if strings.TrimSpace(text) == "" {
		return f, errors.New("enter field=value pairs separated by ';'")
	}
	for _, part := range strings.Split(text, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return f, fmt.Errorf("%q is not field=value", part)
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case domain.FieldName:
			f.Name = value
		case domain.FieldEmail:
			f.Email = value
		case domain.FieldAddressLine1:
			f.AddressLine1 = value
		case domain.FieldAddressLine2:
			f.AddressLine2 = value
		case domain.FieldCity:
			f.City = value
		case domain.FieldState:
			f.State = value
		case domain.FieldPincode:
			f.Pincode = value
		case domain.FieldCompanyName:
			f.CompanyName = value
		case domain.FieldGSTNumber:
			f.GSTNumber = value
		case domain.FieldIDType:
			f.IDType = domain.IDKind(strings.ToLower(value))
		case domain.FieldPAN:
			f.PANNumber = value
		case domain.FieldAadhar:
			f.AadharNumber = value
		case domain.FieldCIN:
			f.CINNumber = value
		default:
			return f, fmt.Errorf("unknown field %q", key)
		}
	}
	return f, nil
}
