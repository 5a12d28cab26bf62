package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/contentplan/backend/pkg/email"
	"github.com/contentplan/backend/pkg/logger"
)

// EmailDispatcher renders templates and hands them to an email.Sender.
type EmailDispatcher struct {
	sender    email.Sender
	templates map[TemplateID]Template
	logger    *slog.Logger
}

// EmailOption configures an EmailDispatcher.
type EmailOption func(*EmailDispatcher)

// WithTemplate registers or replaces a template.
func WithTemplate(id TemplateID, t Template) EmailOption {
	return func(d *EmailDispatcher) {
		d.templates[id] = t
	}
}

// WithEmailLogger sets the logger.
func WithEmailLogger(l *slog.Logger) EmailOption {
	return func(d *EmailDispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewEmailDispatcher creates a dispatcher over sender with DefaultTemplates.
func NewEmailDispatcher(sender email.Sender, opts ...EmailOption) *EmailDispatcher {
	if sender == nil {
		panic("notify: email sender is required")
	}
	d := &EmailDispatcher{
		sender:    sender,
		templates: DefaultTemplates(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send implements Dispatcher.
func (d *EmailDispatcher) Send(ctx context.Context, id TemplateID, recipient string, params map[string]string) error {
	fail := func(reason string, err error) error {
		return &DispatchError{Template: id, Recipient: recipient, Reason: reason, Err: err}
	}

	tpl, ok := d.templates[id]
	if !ok {
		return fail(ReasonUnknownTemplate, ErrUnknownTemplate)
	}

	html, err := email.Render(ctx, tpl.Body(params))
	if err != nil {
		return fail(ReasonRender, err)
	}

	err = d.sender.Send(ctx, email.Message{
		To:      recipient,
		Subject: tpl.Subject,
		HTML:    html,
		Tag:     string(id),
	})
	switch {
	case err == nil:
	case errors.Is(err, email.ErrInvalidMessage):
		return fail(ReasonInvalidMessage, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fail(ReasonTimeout, err)
	default:
		return fail(ReasonTransport, err)
	}

	d.logger.DebugContext(ctx, "notification sent",
		logger.Template(string(id)),
		logger.Component("notify"),
	)
	return nil
}
