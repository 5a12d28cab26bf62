package notify

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Template couples a subject line with a body component built from params.
type Template struct {
	Subject string
	Body    func(params map[string]string) templ.Component
}

// DefaultTemplates returns the built-in templates keyed by id.
func DefaultTemplates() map[TemplateID]Template {
	return map[TemplateID]Template{
		TemplateProStarted: {
			Subject: "Welcome to ContentPlan Pro",
			Body:    proStartedBody,
		},
		TemplateProCancelled: {
			Subject: "Your ContentPlan Pro subscription has ended",
			Body:    proCancelledBody,
		},
	}
}

func greeting(params map[string]string) string {
	if name := params["name"]; name != "" {
		return "Hi " + name + ","
	}
	return "Hi there,"
}

func proStartedBody(params map[string]string) templ.Component {
	return layout(
		greeting(params),
		"Your Pro subscription is active. Unlimited plans, scheduling and analytics are unlocked.",
		params["app_url"],
		"Open ContentPlan",
	)
}

func proCancelledBody(params map[string]string) templ.Component {
	return layout(
		greeting(params),
		"Your Pro subscription has been cancelled. Your content stays put and you can upgrade again at any time.",
		params["upgrade_url"],
		"Upgrade again",
	)
}

// layout renders the shared email frame. Every dynamic value is escaped.
func layout(heading, text, linkURL, linkText string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html><body style="font-family:sans-serif">`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<p>"+templ.EscapeString(heading)+"</p><p>"+templ.EscapeString(text)+"</p>"); err != nil {
			return err
		}
		if linkURL != "" {
			link := `<p><a href="` + templ.EscapeString(linkURL) + `">` + templ.EscapeString(linkText) + `</a></p>`
			if _, err := io.WriteString(w, link); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}
