package domain

// View is what a presentation adapter renders. It is derived from FlowState after every change.
type View struct {
	Step  Step
	State FlowState

	CanContinue     bool // step 1/2 continue affordance
	CanSendOTP      bool
	CanVerifyOTP    bool
	ShowCountdown   bool
	CountdownText   string
	CanResend       bool
	MobileEditable  bool
	ControlsEnabled bool
}

// ActionKind names a user action the presentation adapter forwards to the controller.
type ActionKind string

const (
	ActionSelectRole        ActionKind = "select_role"
	ActionConfirmRole       ActionKind = "confirm_role"
	ActionSelectAccountType ActionKind = "select_account_type"
	ActionConfirmType       ActionKind = "confirm_account_type"
	ActionEnterMobile       ActionKind = "enter_mobile"
	ActionSubmitMobile      ActionKind = "submit_mobile"
	ActionEnterOTP          ActionKind = "enter_otp"
	ActionSubmitOTP         ActionKind = "submit_otp"
	ActionResendOTP         ActionKind = "resend_otp"
	ActionSubmitDetails     ActionKind = "submit_details"
	ActionBack              ActionKind = "back"
	ActionRestart           ActionKind = "restart"
)

// Action is one user interaction. Only the field relevant to Kind is read.
type Action struct {
	Kind        ActionKind
	Role        Role
	AccountType AccountType
	Text        string
	Form        DetailForm
}
