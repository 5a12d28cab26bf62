package reconcile

import (
	"github.com/contentplan/backend/pkg/notify"
	"github.com/contentplan/backend/pkg/subscription"
)

// Transition is a billing state change that earns the user one notification.
// Records are selected by Status and, when set, Type.
type Transition struct {
	Name     string
	Status   subscription.Status
	Type     subscription.Type
	Template notify.TemplateID
}

var (
	ProStarted = Transition{
		Name:     "pro_started",
		Status:   subscription.StatusPro,
		Template: notify.TemplateProStarted,
	}
	ProCancelled = Transition{
		Name:     "pro_cancelled",
		Status:   subscription.StatusCancelled,
		Type:     subscription.TypeFree,
		Template: notify.TemplateProCancelled,
	}
)

// DefaultTransitions returns the transitions a run evaluates, in order.
func DefaultTransitions() []Transition {
	return []Transition{ProStarted, ProCancelled}
}
