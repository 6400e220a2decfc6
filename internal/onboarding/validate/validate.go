// Package validate implements the local input rules of the onboarding flow. Nothing here
// touches the network; a failed rule blocks the request that would have carried the input.
package validate

import (
	"regexp"
	"strings"

	"waste-marketplace/onboarding/internal/onboarding/domain"
)

var (
	mobileRe  = regexp.MustCompile(`^\d{10}$`)
	otpRe     = regexp.MustCompile(`^\d{6}$`)
	emailRe   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	pincodeRe = regexp.MustCompile(`^\d{6}$`)
	panRe     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadharRe  = regexp.MustCompile(`^\d{12}$`)
	cinRe     = regexp.MustCompile(`^[LU]\d{5}[A-Z]{2}\d{4}[A-Z]{3}\d{6}$`)
)

// Mobile reports whether raw is exactly ten ASCII digits. No trimming is applied.
func Mobile(raw string) bool {
	return mobileRe.MatchString(raw)
}

// OTP reports whether code is exactly six ASCII digits.
func OTP(code string) bool {
	return otpRe.MatchString(code)
}

// Email reports whether email looks like an address. Empty is invalid.
func Email(email string) bool {
	return emailRe.MatchString(email)
}

// MobileError returns the field error for an invalid mobile number, or nil.
func MobileError(raw string) *domain.ValidationError {
	if Mobile(raw) {
		return nil
	}
	return domain.NewValidationError(domain.FieldMobile, "Please enter a valid 10-digit mobile number")
}

// OTPError returns the field error for an invalid OTP, or nil.
func OTPError(code string) *domain.ValidationError {
	if OTP(code) {
		return nil
	}
	return domain.NewValidationError(domain.FieldOTP, "Please enter the 6-digit OTP")
}

// Details checks the step-5 form for the given account type. It returns the normalized form
// (values trimmed, identity documents other than the selected one cleared) and a non-nil
// error when any rule fails.
func Details(accountType domain.AccountType, form domain.DetailForm) (domain.DetailForm, *domain.ValidationError) {
	f := normalize(form)
	verr := &domain.ValidationError{}

	switch accountType {
	case domain.AccountIndividual:
		required(verr, domain.FieldName, f.Name, "Full name is required")
		checkEmail(verr, f.Email)
		required(verr, domain.FieldAddressLine1, f.AddressLine1, "Address is required")
		required(verr, domain.FieldCity, f.City, "City is required")
		required(verr, domain.FieldState, f.State, "State is required")
		if required(verr, domain.FieldPincode, f.Pincode, "Pincode is required") && !pincodeRe.MatchString(f.Pincode) {
			verr.Add(domain.FieldPincode, "Pincode must be 6 digits")
		}
		switch f.IDType {
		case domain.IDPAN:
			f.AadharNumber = ""
			if required(verr, domain.FieldPAN, f.PANNumber, "PAN number is required") && !panRe.MatchString(f.PANNumber) {
				verr.Add(domain.FieldPAN, "Invalid PAN number")
			}
		case domain.IDAadhar:
			f.PANNumber = ""
			if required(verr, domain.FieldAadhar, f.AadharNumber, "Aadhar number is required") && !aadharRe.MatchString(f.AadharNumber) {
				verr.Add(domain.FieldAadhar, "Aadhar number must be 12 digits")
			}
		default:
			verr.Add(domain.FieldIDType, "Select PAN or Aadhar")
		}
		f.CINNumber = ""
	case domain.AccountCorporate:
		required(verr, domain.FieldName, f.Name, "Contact name is required")
		checkEmail(verr, f.Email)
		if f.Pincode != "" && !pincodeRe.MatchString(f.Pincode) {
			verr.Add(domain.FieldPincode, "Pincode must be 6 digits")
		}
		switch f.IDType {
		case domain.IDPAN:
			f.CINNumber = ""
			if f.PANNumber != "" && !panRe.MatchString(f.PANNumber) {
				verr.Add(domain.FieldPAN, "Invalid PAN number")
			}
		case domain.IDCIN:
			f.PANNumber = ""
			if f.CINNumber != "" && !cinRe.MatchString(f.CINNumber) {
				verr.Add(domain.FieldCIN, "Invalid CIN number")
			}
		case "":
			f.PANNumber = ""
			f.CINNumber = ""
		default:
			verr.Add(domain.FieldIDType, "Select PAN or CIN")
		}
		f.AadharNumber = ""
	default:
		verr.Add(domain.FieldAccountType, "Account type not selected")
	}

	if verr.Empty() {
		return f, nil
	}
	return f, verr
}

func normalize(f domain.DetailForm) domain.DetailForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(strings.ToLower(f.Email))
	f.AddressLine1 = strings.TrimSpace(f.AddressLine1)
	f.AddressLine2 = strings.TrimSpace(f.AddressLine2)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.Pincode = strings.TrimSpace(f.Pincode)
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.GSTNumber = strings.ToUpper(strings.TrimSpace(f.GSTNumber))
	f.IDType = domain.IDKind(strings.ToLower(strings.TrimSpace(string(f.IDType))))
	f.PANNumber = strings.ToUpper(strings.TrimSpace(f.PANNumber))
	f.AadharNumber = strings.ReplaceAll(strings.TrimSpace(f.AadharNumber), " ", "")
	f.CINNumber = strings.ToUpper(strings.TrimSpace(f.CINNumber))
	return f
}

// required records msg when value is empty and reports whether the value was present.
func required(verr *domain.ValidationError, field, value, msg string) bool {
	if value == "" {
		verr.Add(field, msg)
		return false
	}
	return true
}

func checkEmail(verr *domain.ValidationError, email string) {
	if email == "" {
		verr.Add(domain.FieldEmail, "Email is required")
		return
	}
	if !Email(email) {
		verr.Add(domain.FieldEmail, "Please enter a valid email address")
	}
}
