package email

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/a-h/templ"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Tag     string `json:"tag,omitempty"`
}

// Validate checks the recipient address, subject and body.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	case !emailRegex.MatchString(m.To):
		return fmt.Errorf("%w: recipient %q is not a valid email address", ErrInvalidMessage, m.To)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case strings.TrimSpace(m.HTML) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// ValidAddress reports whether s looks like a deliverable email address.
func ValidAddress(s string) bool {
	return emailRegex.MatchString(s)
}

// Render renders a templ component into an HTML string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// NewSender picks the Postmark sender when a server token is configured and
// the DevSender otherwise.
func NewSender(cfg Config, log *slog.Logger) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		if log != nil {
			log.Warn("postmark token not set, writing emails to disk", slog.String("dir", cfg.DevOutputDir))
		}
		return NewDevSender(cfg.DevOutputDir), nil
	}
	return NewPostmarkSender(cfg)
}
