package models

// Corrections is the immutable set of field fixes produced by one decision
// engine invocation. It is applied exactly once, at the persistence boundary,
// rather than mutating the record as it flows through the pipeline.
type Corrections struct {
	URL             string `json:"url,omitempty"`
	RegistrationURL string `json:"registration_url,omitempty"`
	Date            string `json:"event_date,omitempty"`
	Title           string `json:"event_title,omitempty"`
	Organizer       string `json:"organizer,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

// IsZero reports whether no correction was accumulated.
func (c Corrections) IsZero() bool {
	return c == Corrections{}
}

// Apply returns a copy of the event with the corrections folded in.
func (c Corrections) Apply(e Event) Event {
	if c.URL != "" {
		e.URL = c.URL
	}
	if c.RegistrationURL != "" {
		e.RegistrationURL = c.RegistrationURL
	}
	if c.Date != "" {
		e.Date = c.Date
	}
	if c.Title != "" {
		e.Title = c.Title
	}
	if c.Organizer != "" {
		e.Organizer = c.Organizer
	}
	if c.Summary != "" {
		e.Summary = c.Summary
	}
	return e
}

// Action is the terminal state of a record's verification.
type Action string

const (
	ActionKeep   Action = "keep"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// Outcome is the per-record result of one verification pass.
type Outcome struct {
	Event       Event       `json:"event"`
	Action      Action      `json:"action"`
	Corrections Corrections `json:"corrections,omitempty"`
	Reasons     []string    `json:"reasons,omitempty"`
	Trace       []string    `json:"trace,omitempty"`
}
