// Package service implements the onboarding flow controller: the five-step state machine that
// takes a user from role selection through OTP verification to a terminal redirect.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-marketplace/onboarding/internal/approval"
	"waste-marketplace/onboarding/internal/onboarding/client"
	"waste-marketplace/onboarding/internal/onboarding/countdown"
	"waste-marketplace/onboarding/internal/onboarding/domain"
	"waste-marketplace/onboarding/internal/storage"
	"waste-marketplace/onboarding/internal/telemetry"
	telemetrydomain "waste-marketplace/onboarding/internal/telemetry/domain"
)

// User-visible messages used when the backend gives none.
const (
	MsgNetworkError   = "Network error. Please check your connection and try again."
	MsgSendOTPFailed  = "Failed to send OTP. Please try again."
	MsgInvalidOTP     = "Invalid OTP. Please try again."
	MsgDetailsFailed  = "Failed to save your details. Please try again."
	MsgSelectRole     = "Please select whether you are a buyer or a seller"
	MsgSelectAccount  = "Please select an account type"
	MsgSessionNotSave = "Signed in, but your session could not be saved on this device."
)

// APIClient is the minimal backend client needed by the controller.
type APIClient interface {
	SendOTP(ctx context.Context, mobile string) (*client.SendOTPResult, error)
	VerifyOTP(ctx context.Context, transactionID, code, userType string) (*client.VerifyOTPResult, error)
	SubmitUserDetails(ctx context.Context, userID string, req client.UserDetailsRequest) error
}

// ActionHandler receives user actions from a presentation adapter.
type ActionHandler func(ctx context.Context, a domain.Action) (domain.FlowState, error)

// Presenter renders views and forwards user actions. The controller never touches UI directly.
// RenderStep must not call back into the controller; actions go through the registered handler.
type Presenter interface {
	RenderStep(ctx context.Context, v domain.View)
	OnUserAction(h ActionHandler)
}

// Config holds the host-supplied landing URLs and timings.
type Config struct {
	SellerLandingURL       string
	BuyerLandingURL        string
	HomeURL                string
	ResendCountdownSeconds int
	RedirectDelay          time.Duration
	// OTPPrefill fills the OTP input when the backend returns the code (non-production only).
	OTPPrefill bool
}

// Deps are the collaborators of a Controller. API and Store are required; the rest default
// to the built-in approval rule, a ticker scheduler, no events and a no-op logger.
type Deps struct {
	API       APIClient
	Store     storage.Store
	Approval  approval.Evaluator
	Scheduler countdown.Scheduler
	Events    telemetry.EventEmitter
	Logger    *zap.Logger
	// FlowID identifies this session in events; generated when empty.
	FlowID string
	Now    func() time.Time
}

// Controller owns one onboarding session. All state lives in a single FlowState guarded by mu;
// the lock is never held across a network call.
type Controller struct {
	api       APIClient
	store     storage.Store
	approval  approval.Evaluator
	scheduler countdown.Scheduler
	events    telemetry.EventEmitter
	logger    *zap.Logger
	metrics   *flowMetrics
	cfg       Config
	flowID    string
	now       func() time.Time

	mu              sync.Mutex
	state           domain.FlowState
	cancelCountdown func()
	countdownID     uint64
	presenter       Presenter
	done            chan struct{}

	// renderMu keeps renders in order; it is taken before mu, never after.
	renderMu sync.Mutex
	// saveMu serializes session writes and their rollbacks; it is taken before mu.
	saveMu sync.Mutex
}

// New returns a Controller in the RoleSelect step.
func New(cfg Config, deps Deps) *Controller {
	if cfg.ResendCountdownSeconds <= 0 {
		cfg.ResendCountdownSeconds = 30
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = "/"
	}
	if deps.Approval == nil {
		deps.Approval = approval.StaticEvaluator{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = countdown.NewTickerScheduler()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.FlowID == "" {
		deps.FlowID = uuid.New().String()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		api:       deps.API,
		store:     deps.Store,
		approval:  deps.Approval,
		scheduler: deps.Scheduler,
		events:    deps.Events,
		logger:    deps.Logger.With(zap.String("flow_id", deps.FlowID)),
		metrics:   newFlowMetrics(deps.Logger),
		cfg:       cfg,
		flowID:    deps.FlowID,
		now:       deps.Now,
		state:     domain.NewFlowState(),
		done:      make(chan struct{}),
	}
}

// FlowID returns the id used to correlate this session's events.
func (c *Controller) FlowID() string {
	return c.flowID
}

// State returns a snapshot of the flow state.
func (c *Controller) State() domain.FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// View returns the current view.
func (c *Controller) View() domain.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildView(c.state)
}

// Done is closed when the flow reaches the terminal redirect.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Bind attaches a presenter, registers Dispatch as its action handler and renders the current step.
func (c *Controller) Bind(ctx context.Context, p Presenter) {
	c.mu.Lock()
	c.presenter = p
	c.mu.Unlock()
	if p == nil {
		return
	}
	p.OnUserAction(c.Dispatch)
	c.render(ctx)
}

// Close cancels the countdown. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopCountdownLocked()
}

// Dispatch routes a presenter action to the matching operation.
func (c *Controller) Dispatch(ctx context.Context, a domain.Action) (domain.FlowState, error) {
	switch a.Kind {
	case domain.ActionSelectRole:
		return c.SelectRole(ctx, a.Role)
	case domain.ActionConfirmRole:
		return c.ConfirmRole(ctx)
	case domain.ActionSelectAccountType:
		return c.SelectAccountType(ctx, a.AccountType)
	case domain.ActionConfirmType:
		return c.ConfirmAccountType(ctx)
	case domain.ActionEnterMobile:
		return c.EnterMobile(ctx, a.Text)
	case domain.ActionSubmitMobile:
		return c.SubmitMobileNumber(ctx, a.Text)
	case domain.ActionEnterOTP:
		return c.EnterOTP(ctx, a.Text)
	case domain.ActionSubmitOTP:
		return c.SubmitOTP(ctx, a.Text)
	case domain.ActionResendOTP:
		return c.ResendOTP(ctx)
	case domain.ActionSubmitDetails:
		return c.SubmitUserDetails(ctx, a.Form)
	case domain.ActionBack:
		return c.Back(ctx)
	case domain.ActionRestart:
		return c.Restart(ctx)
	default:
		return c.State(), domain.ErrWrongStep
	}
}

// guardLocked rejects actions outside step or while a request is in flight.
func (c *Controller) guardLocked(step domain.Step) error {
	switch {
	case c.state.CurrentStep == domain.StepTerminal:
		return domain.ErrFlowFinished
	case c.state.CurrentStep != step:
		return domain.ErrWrongStep
	case c.state.Busy:
		return domain.ErrBusy
	}
	return nil
}

// local runs a state change that makes no network call.
func (c *Controller) local(ctx context.Context, step domain.Step, fn func() error) (domain.FlowState, error) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if err := c.guardLocked(step); err != nil {
		s := c.state.Clone()
		c.mu.Unlock()
		return s, err
	}
	err := fn()
	s := c.state.Clone()
	c.mu.Unlock()

	c.renderUnordered(ctx)
	return s, err
}

// beginLocked marks a request in flight and returns the generation it belongs to.
func (c *Controller) beginLocked() uint64 {
	c.state.Busy = true
	c.state.ClearMessages()
	return c.state.Generation
}

// release clears Busy for gen if the flow has not moved on. It runs deferred after every request.
func (c *Controller) release(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if c.state.Generation == gen {
		c.state.Busy = false
	}
	c.mu.Unlock()
	c.render(ctx)
}

// apply commits a response if it belongs to the current generation. fn runs under the lock.
func (c *Controller) apply(gen uint64, fn func() error) (domain.FlowState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Generation != gen {
		return c.state.Clone(), domain.ErrStaleResponse
	}
	err := fn()
	c.state.Busy = false
	return c.state.Clone(), err
}

// stale reports whether gen is no longer current.
func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Generation != gen
}

func (c *Controller) render(ctx context.Context) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.renderUnordered(ctx)
}

// renderUnordered renders the latest state. Caller holds renderMu.
func (c *Controller) renderUnordered(ctx context.Context) {
	c.mu.Lock()
	p := c.presenter
	v := BuildView(c.state)
	c.mu.Unlock()
	if p != nil {
		p.RenderStep(ctx, v)
	}
}

// setStepLocked moves to step and reports the change.
func (c *Controller) setStepLocked(ctx context.Context, step domain.Step) {
	from := c.state.CurrentStep
	c.state.CurrentStep = step
	if from != step {
		c.emitLocked(ctx, telemetrydomain.EventStepChanged, map[string]string{"from": from.String()})
	}
}
