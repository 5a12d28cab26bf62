package notify

import "context"

// TemplateID names a transactional notification template.
type TemplateID string

const (
	TemplateProStarted   TemplateID = "pro_started"
	TemplateProCancelled TemplateID = "pro_cancelled"
)

// Dispatcher sends one transactional notification. Implementations do not
// retry; a non-nil error should be a *DispatchError.
type Dispatcher interface {
	Send(ctx context.Context, template TemplateID, recipient string, params map[string]string) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, template TemplateID, recipient string, params map[string]string) error

func (f DispatcherFunc) Send(ctx context.Context, template TemplateID, recipient string, params map[string]string) error {
	return f(ctx, template, recipient, params)
}
