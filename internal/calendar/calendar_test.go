package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/schedvox/schedvox/internal/schedule"
)

func TestFromDetails_Defaults(t *testing.T) {
	t.Parallel()

	req, err := FromDetails(schedule.Details{
		Name: "John",
		Date: "2026-02-20",
		Time: "14:00",
	}, "UTC")
	if err != nil {
		t.Fatalf("FromDetails: %v", err)
	}

	if req.Title != "Meeting with John" {
		t.Errorf("Title = %q, want default", req.Title)
	}
	if req.DurationMinutes != 60 {
		t.Errorf("DurationMinutes = %d, want 60", req.DurationMinutes)
	}
	want := time.Date(2026, 2, 20, 14, 0, 0, 0, time.UTC)
	if !req.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", req.Start, want)
	}
	if !req.End().Equal(want.Add(time.Hour)) {
		t.Errorf("End = %v", req.End())
	}
}

func TestFromDetails_ExplicitOptionals(t *testing.T) {
	t.Parallel()

	req, err := FromDetails(schedule.Details{
		Name:     "Amy",
		Date:     "2026-03-05",
		Time:     "09:30",
		Duration: "90",
		Title:    "Design review",
	}, "Europe/Berlin")
	if err != nil {
		t.Fatalf("FromDetails: %v", err)
	}
	if req.Title != "Design review" || req.DurationMinutes != 90 {
		t.Errorf("req = %+v", req)
	}
	if req.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %q", req.Timezone)
	}
	if zone, _ := req.Start.Zone(); zone != "CET" {
		t.Errorf("Start zone = %q, want CET", zone)
	}
}

func TestFromDetails_MissingFields(t *testing.T) {
	t.Parallel()

	_, err := FromDetails(schedule.Details{Name: "John"}, "UTC")
	var missing *MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingFieldsError", err)
	}
	if len(missing.Fields) != 2 || missing.Fields[0] != "date" || missing.Fields[1] != "time" {
		t.Errorf("Fields = %v, want [date time]", missing.Fields)
	}
}

func TestFromDetails_BadInput(t *testing.T) {
	t.Parallel()

	base := schedule.Details{Name: "John", Date: "2026-02-20", Time: "14:00"}

	bad := base
	bad.Time = "42:00" // greedy extraction artefact, rejected at creation time
	if _, err := FromDetails(bad, "UTC"); err == nil {
		t.Error("expected error for out-of-range time")
	}

	bad = base
	bad.Duration = "soon"
	if _, err := FromDetails(bad, "UTC"); err == nil {
		t.Error("expected error for non-numeric duration")
	}

	bad = base
	bad.Duration = "-30"
	if _, err := FromDetails(bad, "UTC"); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestFromDetails_UnknownZoneFallsBackToUTC(t *testing.T) {
	t.Parallel()

	req, err := FromDetails(schedule.Details{
		Name: "John", Date: "2026-02-20", Time: "14:00",
	}, "Not/AZone")
	if err != nil {
		t.Fatalf("FromDetails: %v", err)
	}
	if req.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", req.Timezone)
	}
}

func TestConfirmationMessage(t *testing.T) {
	t.Parallel()

	req := EventRequest{
		Title: "Meeting with John",
		Start: time.Date(2026, 2, 20, 14, 0, 0, 0, time.UTC),
	}
	want := "Meeting 'Meeting with John' scheduled for Friday, February 20 at 14:00."
	if got := ConfirmationMessage(req); got != want {
		t.Errorf("ConfirmationMessage = %q, want %q", got, want)
	}
}
