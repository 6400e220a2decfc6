// Package terminal is a line-oriented presentation adapter for the onboarding controller.
// It renders each step as a prompt and turns typed lines into controller actions.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"waste-marketplace/onboarding/internal/onboarding/domain"
	"waste-marketplace/onboarding/internal/onboarding/service"
)

// countdownEvery controls how often the countdown is echoed; every tick would flood the terminal.
const countdownEvery = 10

// Presenter implements service.Presenter over an io.Reader/io.Writer pair.
type Presenter struct {
	in  io.Reader
	out io.Writer

	mu      sync.Mutex
	handler service.ActionHandler
	last    domain.View
	drawn   bool
}

// New returns a Presenter reading actions from in and writing prompts to out.
func New(in io.Reader, out io.Writer) *Presenter {
	return &Presenter{in: in, out: out}
}

// OnUserAction registers the handler that receives parsed actions.
func (p *Presenter) OnUserAction(h service.ActionHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// RenderStep prints what changed since the previous view.
func (p *Presenter) RenderStep(_ context.Context, v domain.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.last
	first := !p.drawn
	p.last = v
	p.drawn = true

	s := v.State
	if first || prev.Step != v.Step {
		p.printf("\n%s\n", stepPrompt(v))
	}
	if s.Busy && (first || !prev.State.Busy) {
		p.printf("... please wait\n")
	}
	if s.Error != "" && (first || s.Error != prev.State.Error || (prev.State.Busy && !s.Busy)) {
		p.printf("! %s\n", s.Error)
	}
	if fe := formatFieldErrors(s.FieldErrors); fe != "" && (first || fe != formatFieldErrors(prev.State.FieldErrors)) {
		p.printf("%s", fe)
	}
	if v.Step != domain.StepOTPEntry {
		return
	}
	if s.OTPInput != "" && s.OTPInput != prev.State.OTPInput && prev.Step != v.Step {
		p.printf("OTP filled in: %s. Press enter to verify.\n", s.OTPInput)
	}
	if v.ShowCountdown && (prev.Step != v.Step || v.State.ResendCountdownSeconds%countdownEvery == 0) &&
		prev.CountdownText != v.CountdownText {
		p.printf("%s\n", v.CountdownText)
	}
	if v.CanResend && !prev.CanResend {
		p.printf("Didn't get it? Type 'resend' to send a new OTP.\n")
	}
}

func (p *Presenter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Run reads lines until in is exhausted or ctx is done, dispatching the parsed actions.
// It returns nil on EOF and ctx.Err() on cancellation.
func (p *Presenter) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			p.handleLine(ctx, line)
		}
	}
}

func (p *Presenter) handleLine(ctx context.Context, line string) {
	p.mu.Lock()
	h := p.handler
	v := p.last
	p.mu.Unlock()
	if h == nil {
		return
	}

	actions, err := ParseLine(v, line)
	if err != nil {
		p.mu.Lock()
		p.printf("? %s\n", err)
		p.mu.Unlock()
		return
	}
	for _, a := range actions {
		s, err := h(ctx, a)
		if err == nil {
			continue
		}
		// messages carried in state were already rendered
		var verr *domain.ValidationError
		if s.Error == "" && !errors.As(err, &verr) {
			p.mu.Lock()
			p.printf("! %s\n", err)
			p.mu.Unlock()
		}
		return
	}
}

func stepPrompt(v domain.View) string {
	s := v.State
	switch v.Step {
	case domain.StepRoleSelect:
		return "Step 1 of 5: Are you a buyer or a seller? [buyer/seller]"
	case domain.StepTypeSelect:
		return "Step 2 of 5: Account type? [individual/corporate]  (type 'back' to go back)"
	case domain.StepMobileEntry:
		return "Step 3 of 5: Enter your 10-digit mobile number"
	case domain.StepOTPEntry:
		return fmt.Sprintf("Step 4 of 5: Enter the 6-digit OTP sent to %s", maskMobile(s.MobileNumber))
	case domain.StepDetailEntry:
		return detailPrompt(s.SelectedAccountType)
	case domain.StepTerminal:
		if s.Redirect == nil {
			return "Done."
		}
		msg := fmt.Sprintf("You're signed in. Redirecting to %s", s.Redirect.Target)
		if !s.Redirect.IsApproved {
			msg += "\nYour account is pending approval; some features stay locked until it is reviewed."
		}
		return msg
	default:
		return ""
	}
}

func detailPrompt(t domain.AccountType) string {
	var fields []string
	if t == domain.AccountCorporate {
		fields = []string{
			domain.FieldName, domain.FieldEmail, domain.FieldCompanyName, domain.FieldGSTNumber,
			domain.FieldAddressLine1, domain.FieldCity, domain.FieldState, domain.FieldPincode,
			domain.FieldIDType + " (pan|cin)", domain.FieldPAN, domain.FieldCIN,
		}
	} else {
		fields = []string{
			domain.FieldName, domain.FieldEmail, domain.FieldAddressLine1, domain.FieldAddressLine2,
			domain.FieldCity, domain.FieldState, domain.FieldPincode,
			domain.FieldIDType + " (pan|aadhar)", domain.FieldPAN, domain.FieldAadhar,
		}
	}
	return "Step 5 of 5: Complete your profile as field=value pairs separated by ';'\n  fields: " + strings.Join(fields, ", ")
}

func maskMobile(m string) string {
	if len(m) <= 4 {
		return m
	}
	return strings.Repeat("X", len(m)-4) + m[len(m)-4:]
}

func formatFieldErrors(fe map[string]string) string {
	if len(fe) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, fe[k])
	}
	return b.String()
}
