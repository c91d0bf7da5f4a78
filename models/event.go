// Package models defines the event record and configuration structures
// shared across the verification pipeline.
package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Category classifies an event by topic area.
type Category string

const (
	CategoryLegislation Category = "Legislation"
	CategoryHousing     Category = "Housing"
	CategoryRecovery    Category = "Recovery"
	CategoryGeneral     Category = "General"
)

// ParseCategory maps free text onto a known category, defaulting to General.
func ParseCategory(s string) Category {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "legislation":
		return CategoryLegislation
	case "housing":
		return CategoryHousing
	case "recovery":
		return CategoryRecovery
	default:
		return CategoryGeneral
	}
}

// DateLayout is the calendar-date wire format used everywhere in the
// pipeline. Event dates carry no time zone.
const DateLayout = "2006-01-02"

// Event is a candidate event record flowing through one validation pass.
// URL is the natural unique identifier; the store upserts on it.
type Event struct {
	ID              int64    `json:"id,omitempty" yaml:"id,omitempty"`
	Title           string   `json:"event_title" yaml:"event_title"`
	Date            string   `json:"event_date" yaml:"event_date"`
	Time            string   `json:"event_time,omitempty" yaml:"event_time,omitempty"`
	Organizer       string   `json:"organizer,omitempty" yaml:"organizer,omitempty"`
	URL             string   `json:"url" yaml:"url"`
	RegistrationURL string   `json:"registration_url,omitempty" yaml:"registration_url,omitempty"`
	Category        Category `json:"category" yaml:"category"`
	IsOnline        bool     `json:"is_online" yaml:"is_online"`
	TargetAudience  string   `json:"target_audience,omitempty" yaml:"target_audience,omitempty"`
	Summary         string   `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Validate checks the invariants every record must hold before it enters
// the pipeline: an absolute http(s) URL and a parseable calendar date.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("event has no title")
	}
	if _, err := e.DateValue(); err != nil {
		return err
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		return fmt.Errorf("invalid event URL %q: %w", e.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("event URL must be absolute http(s), got %q", e.URL)
	}
	return nil
}

// DateValue parses the stored calendar date.
func (e *Event) DateValue() (time.Time, error) {
	d, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event date %q: %w", e.Date, err)
	}
	return d, nil
}

// EffectiveRegistrationURL falls back to the primary URL when no separate
// registration link is known.
func (e *Event) EffectiveRegistrationURL() string {
	if e.RegistrationURL != "" {
		return e.RegistrationURL
	}
	return e.URL
}
