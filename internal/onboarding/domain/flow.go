// Package domain holds the onboarding flow state and the values exchanged between the
// controller, the API client and the presentation adapter.
package domain

import "time"

// Step is a position in the onboarding sequence. Values 1..5 match the on-screen step numbers.
type Step int

const (
	StepRoleSelect Step = iota + 1
	StepTypeSelect
	StepMobileEntry
	StepOTPEntry
	StepDetailEntry
	// StepTerminal is reached after a redirect decision; the flow is over.
	StepTerminal
)

func (s Step) String() string {
	switch s {
	case StepRoleSelect:
		return "role_select"
	case StepTypeSelect:
		return "type_select"
	case StepMobileEntry:
		return "mobile_entry"
	case StepOTPEntry:
		return "otp_entry"
	case StepDetailEntry:
		return "detail_entry"
	case StepTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Previous returns the step reached by back navigation and false when there is none.
func (s Step) Previous() (Step, bool) {
	if s <= StepRoleSelect || s >= StepTerminal {
		return s, false
	}
	return s - 1, true
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountCorporate  AccountType = "corporate"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountIndividual || t == AccountCorporate
}

// UserType composes the backend user_type ("buyer_individual", "seller_corporate", ...).
// Returns "" until both role and account type are set.
func UserType(role Role, accountType AccountType) string {
	if role == "" || accountType == "" {
		return ""
	}
	return string(role) + "_" + string(accountType)
}

// Redirect is the terminal navigation decision.
type Redirect struct {
	Target     string
	Delay      time.Duration
	IsApproved bool
}

// FlowState is the complete state of one onboarding session. It is owned by a single
// controller and only handed out as a copy.
type FlowState struct {
	CurrentStep         Step
	SelectedRole        Role
	SelectedAccountType AccountType
	// DerivedUserType is UserType(SelectedRole, SelectedAccountType); sent verbatim on verify.
	DerivedUserType string

	MobileInput      string
	MobileNumber     string
	OTPTransactionID string
	OTPInput         string

	ResendCountdownSeconds int
	// ResendAvailable is true once the countdown reached zero or a resend failed.
	ResendAvailable bool

	UserID string

	Busy        bool
	Error       string
	FieldErrors map[string]string
	Generation  uint64

	Redirect *Redirect
}

// NewFlowState returns the initial state: RoleSelect with nothing chosen.
func NewFlowState() FlowState {
	return FlowState{CurrentStep: StepRoleSelect}
}

// Clone returns a deep copy safe to hand to callers.
func (s FlowState) Clone() FlowState {
	out := s
	if s.FieldErrors != nil {
		out.FieldErrors = make(map[string]string, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			out.FieldErrors[k] = v
		}
	}
	if s.Redirect != nil {
		r := *s.Redirect
		out.Redirect = &r
	}
	return out
}

// ClearMessages drops transient error output.
func (s *FlowState) ClearMessages() {
	s.Error = ""
	s.FieldErrors = nil
}

// SetRole sets the role and recomputes the derived user type.
func (s *FlowState) SetRole(r Role) {
	s.SelectedRole = r
	s.DerivedUserType = UserType(s.SelectedRole, s.SelectedAccountType)
}

// SetAccountType sets the account type and recomputes the derived user type.
func (s *FlowState) SetAccountType(t AccountType) {
	s.SelectedAccountType = t
	s.DerivedUserType = UserType(s.SelectedRole, s.SelectedAccountType)
}
