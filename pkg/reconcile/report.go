package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// SetReport counts the outcome of one transition's record set.
type SetReport struct {
	Transition string `json:"transition"`
	Found      int    `json:"found"`
	Attempted  int    `json:"attempted"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
}

// Warning records a qualifying record that was not dispatched.
type Warning struct {
	UserID     uuid.UUID `json:"user_id"`
	Transition string    `json:"transition"`
	Reason     string    `json:"reason"`
}

// Report is the outcome of one Run. A cancelled run returns what it managed
// to do with Cancelled set.
type Report struct {
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	Sets        []SetReport   `json:"sets"`
	Warnings    []Warning     `json:"warnings,omitempty"`
	Cancelled   bool          `json:"cancelled"`
	Duration    time.Duration `json:"-"`
}

// Processed is the number of attempted dispatches.
func (r Report) Processed() int {
	n := 0
	for _, s := range r.Sets {
		n += s.Attempted
	}
	return n
}

// Failures is the number of failed dispatches.
func (r Report) Failures() int {
	n := 0
	for _, s := range r.Sets {
		n += s.Failed
	}
	return n
}

// Set returns the report of the named transition.
func (r Report) Set(transition string) (SetReport, bool) {
	for _, s := range r.Sets {
		if s.Transition == transition {
			return s, true
		}
	}
	return SetReport{}, false
}

func (r Report) duplicates() int {
	n := 0
	for _, s := range r.Sets {
		n += s.Duplicates
	}
	return n
}

// Summary is the JSON body returned by the trigger endpoint.
type Summary struct {
	Processed   int         `json:"processed"`
	Failures    int         `json:"failures"`
	Duplicates  int         `json:"duplicates"`
	Warnings    int         `json:"warnings"`
	Cancelled   bool        `json:"cancelled"`
	WindowStart time.Time   `json:"window_start"`
	WindowEnd   time.Time   `json:"window_end"`
	DurationMS  int64       `json:"duration_ms"`
	Sets        []SetReport `json:"sets"`
}

// Summary flattens r for clients.
func (r Report) Summary() Summary {
	return Summary{
		Processed:   r.Processed(),
		Failures:    r.Failures(),
		Duplicates:  r.duplicates(),
		Warnings:    len(r.Warnings),
		Cancelled:   r.Cancelled,
		WindowStart: r.WindowStart,
		WindowEnd:   r.WindowEnd,
		DurationMS:  r.Duration.Milliseconds(),
		Sets:        r.Sets,
	}
}
