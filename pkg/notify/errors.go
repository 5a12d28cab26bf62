package notify

import "errors"

var (
	ErrDispatchFailed  = errors.New("notification dispatch failed")
	ErrUnknownTemplate = errors.New("unknown notification template")
	ErrCircuitOpen     = errors.New("notification transport circuit open")
)

// Dispatch failure reasons.
const (
	ReasonUnknownTemplate = "unknown_template"
	ReasonRender          = "render"
	ReasonInvalidMessage  = "invalid_message"
	ReasonTransport       = "transport"
	ReasonCircuitOpen     = "circuit_open"
	ReasonTimeout         = "timeout"
)

// DispatchError describes a failed Send. It matches ErrDispatchFailed and
// the underlying cause with errors.Is.
type DispatchError struct {
	Template  TemplateID
	Recipient string
	Reason    string
	Err       error
}

func (e *DispatchError) Error() string {
	msg := "dispatch " + string(e.Template) + " failed: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDispatchFailed}
	}
	return []error{ErrDispatchFailed, e.Err}
}
