// Package google implements [calendar.Service] against the Google Calendar
// v3 REST API.
//
// The API surface needed here is a single endpoint (event insert), so this
// package talks to it directly over net/http with an OAuth2-authenticated
// client instead of pulling in the full API SDK.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/schedvox/schedvox/internal/calendar"
)

// Compile-time interface assertion.
var _ calendar.Service = (*Client)(nil)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Client creates events in a Google calendar.
type Client struct {
	httpClient *http.Client
	baseURL    string
	calendarID string
	attendee   string
}

// Option configures a [Client].
type Option func(*Client)

// WithCalendarID targets a specific calendar instead of "primary".
func WithCalendarID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.calendarID = id
		}
	}
}

// WithAttendee invites the given email to every created event. Google then
// sends the invitation mail itself.
func WithAttendee(email string) Option {
	return func(c *Client) { c.attendee = email }
}

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the OAuth-derived HTTP client entirely. Used in
// tests; production callers should pass a token source to [New] instead.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a [Client] authenticated by ts. ts may be nil only when
// [WithHTTPClient] supplies a pre-authenticated client.
func New(ts oauth2.TokenSource, opts ...Option) *Client {
	hc := &http.Client{Timeout: 15 * time.Second}
	if ts != nil {
		hc = oauth2.NewClient(context.Background(), ts)
		hc.Timeout = 15 * time.Second
	}
	c := &Client{
		httpClient: hc,
		baseURL:    defaultBaseURL,
		calendarID: "primary",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire types for the events.insert payload.
type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type eventBody struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Start       eventTime       `json:"start"`
	End         eventTime       `json:"end"`
	Attendees   []eventAttendee `json:"attendees,omitempty"`
}

type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// CreateEvent implements [calendar.Service].
func (c *Client) CreateEvent(ctx context.Context, req calendar.EventRequest) (*calendar.EventResult, error) {
	body := eventBody{
		Summary:     req.Title,
		Description: "Scheduled via voice assistant for " + req.Name,
		Start: eventTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: req.Timezone,
		},
		End: eventTime{
			DateTime: req.End().Format(time.RFC3339),
			TimeZone: req.Timezone,
		},
	}
	attendee := req.AttendeeEmail
	if attendee == "" {
		attendee = c.attendee
	}
	if attendee != "" {
		body.Attendees = []eventAttendee{{Email: attendee}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("google calendar: encode event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?sendUpdates=all",
		c.baseURL, url.PathEscape(c.calendarID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("google calendar: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google calendar: insert event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("google calendar: insert event: status %d: %s",
			resp.StatusCode, string(msg))
	}

	var created eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("google calendar: decode response: %w", err)
	}

	return &calendar.EventResult{
		ID:       created.ID,
		HTMLLink: created.HTMLLink,
		Message:  calendar.ConfirmationMessage(req),
	}, nil
}
