// Package calendar turns a completed detail set into calendar events.
package calendar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/schedvox/schedvox/internal/schedule"
)

// Defaults applied when the optional detail fields were never collected.
const (
	DefaultDurationMinutes = 60
	defaultTitlePrefix     = "Meeting with "
)

// EventRequest is a fully resolved event ready to be written to a calendar
// backend. All defaulting has already happened; backends never see empty
// fields.
type EventRequest struct {
	// Name is the caller the meeting is scheduled with.
	Name string

	// Start is the event start in the session's timezone.
	Start time.Time

	// DurationMinutes is the event length.
	DurationMinutes int

	// Title is the event summary line.
	Title string

	// Timezone is the IANA zone name sent to the backend.
	Timezone string

	// AttendeeEmail is an optional invitee.
	AttendeeEmail string
}

// End returns the event end time.
func (r EventRequest) End() time.Time {
	return r.Start.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// EventResult describes a created event.
type EventResult struct {
	// ID is the backend's event identifier.
	ID string `json:"eventId,omitempty"`

	// HTMLLink points at the event in the backend's UI, when provided.
	HTMLLink string `json:"htmlLink,omitempty"`

	// Message is a human confirmation suitable for speaking aloud.
	Message string `json:"message"`
}

// Service creates events on some calendar backend.
type Service interface {
	// CreateEvent writes req to the backend and returns the created event.
	CreateEvent(ctx context.Context, req EventRequest) (*EventResult, error)
}

// MissingFieldsError reports which mandatory details are absent.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "calendar: missing required details: " + strings.Join(e.Fields, ", ")
}

// FromDetails resolves a detail set into an [EventRequest], applying the
// duration and title defaults and parsing the date and time in the given
// zone. Returns a [*MissingFieldsError] when a required field is absent.
func FromDetails(d schedule.Details, timezone string) (*EventRequest, error) {
	if missing := schedule.Missing(d); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
		timezone = "UTC"
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse start %q %q: %w", d.Date, d.Time, err)
	}

	duration := DefaultDurationMinutes
	if d.Duration != "" {
		duration, err = strconv.Atoi(d.Duration)
		if err != nil || duration <= 0 {
			return nil, fmt.Errorf("calendar: invalid duration %q", d.Duration)
		}
	}

	title := d.Title
	if title == "" {
		title = defaultTitlePrefix + d.Name
	}

	return &EventRequest{
		Name:            d.Name,
		Start:           start,
		DurationMinutes: duration,
		Title:           title,
		Timezone:        timezone,
	}, nil
}

// ConfirmationMessage renders the spoken confirmation for a created event.
func ConfirmationMessage(req EventRequest) string {
	return fmt.Sprintf("Meeting '%s' scheduled for %s, %s %d at %s.",
		req.Title,
		req.Start.Weekday(),
		req.Start.Month(),
		req.Start.Day(),
		req.Start.Format("15:04"),
	)
}
