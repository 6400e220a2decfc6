package domain

import (
	"errors"
	"sort"
	"strings"
)

// Guard errors returned by the controller. None of them changes state.
var (
	ErrWrongStep              = errors.New("action not allowed in the current step")
	ErrBusy                   = errors.New("a request is already in progress")
	ErrStaleResponse          = errors.New("response discarded: flow moved on")
	ErrResendNotReady         = errors.New("resend is not available yet")
	ErrRoleNotSelected        = errors.New("role not selected")
	ErrAccountTypeNotSelected = errors.New("account type not selected")
	ErrFlowFinished           = errors.New("onboarding already finished")
)

// ValidationError reports local input errors by field. It never reaches the network.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records msg for field unless the field already has an error.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
