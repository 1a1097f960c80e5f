package generation

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is never produced directly; unclassified errors map to KindEnvironmentFault
	KindUnknown Kind = iota
	KindMissingCredentials
	KindLoginFailure
	KindUnsupportedLoginFlow
	KindInputNotFound
	KindPreviewTimeout
	KindEnvironmentFault
	KindRetryBudgetExhausted
	KindCanceled
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindMissingCredentials:   "missing_credentials",
	KindLoginFailure:         "login_failure",
	KindUnsupportedLoginFlow: "unsupported_login_flow",
	KindInputNotFound:        "input_not_found",
	KindPreviewTimeout:       "preview_timeout",
	KindEnvironmentFault:     "environment_fault",
	KindRetryBudgetExhausted: "retry_budget_exhausted",
	KindCanceled:             "canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fatal reports whether a failure of this kind ends the request without retrying.
func (k Kind) Fatal() bool {
	switch k {
	case KindMissingCredentials, KindRetryBudgetExhausted, KindCanceled:
		return true
	}
	return false
}

// Reasons reported in Result.Error.
const (
	ReasonMissingCredentials   = "credentials not provided"
	ReasonLoginFailure         = "login failed: signed-in marker absent after submit"
	ReasonUnsupportedLoginFlow = "standard login not found, may require alternate auth"
	ReasonInputNotFound        = "prompt input not found"
	ReasonPreviewTimeout       = "timed out waiting for preview URL"
	ReasonRetryBudgetExhausted = "maximum retry attempts reached"
	ReasonCanceled             = "generation canceled"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindLoginFailure}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// environmentFault wraps an unexpected browser or navigation failure.
func environmentFault(stage string, err error) *Error {
	return newError(KindEnvironmentFault, fmt.Sprintf("%s failed", stage), err)
}

// classify maps any error to a pipeline Error.
func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindCanceled, ReasonCanceled, err)
	}
	return newError(KindEnvironmentFault, "unexpected failure", err)
}

// KindOf returns the Kind of err, KindUnknown for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	return classify(err).Kind
}

// IsFatal reports whether err should stop the retry loop.
func IsFatal(err error) bool {
	return err != nil && KindOf(err).Fatal()
}

// OutcomeStatus is the verdict of one attempt.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeRetryable
	OutcomeFatal
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// Outcome is what one attempt produced.
type Outcome struct {
	Status  OutcomeStatus
	Preview Preview
	Err     *Error
}

// outcomeOf builds an Outcome from an attempt's return values.
func outcomeOf(preview Preview, err error) Outcome {
	if err == nil {
		return Outcome{Status: OutcomeSuccess, Preview: preview}
	}
	e := classify(err)
	if e.Kind.Fatal() {
		return Outcome{Status: OutcomeFatal, Err: e}
	}
	return Outcome{Status: OutcomeRetryable, Err: e}
}

// Label is the metrics/log label for the outcome.
func (o Outcome) Label() string {
	if o.Err == nil {
		return "success"
	}
	return o.Err.Kind.String()
}
