// Package session defines the per-conversation aggregate and the store
// abstraction it lives in.
//
// A Session owns exactly one accumulated detail set. The store is an external
// mapping from opaque session ID to session state; backing implementations
// (in-memory map, PostgreSQL) are interchangeable behind [Store]. Callers must
// serialise turns per session ID — the stores do not order concurrent writers
// to the same session.
package session

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/schedvox/schedvox/internal/schedule"
)

// Status is the coarse conversation state of a session.
type Status string

const (
	// StatusAwaitingInfo means the assistant is still collecting details.
	StatusAwaitingInfo Status = "awaiting_info"

	// StatusAuthenticated means the OAuth callback has attached calendar
	// credentials to the session.
	StatusAuthenticated Status = "authenticated"
)

// Session is the per-conversation state blob.
type Session struct {
	// ID is the opaque unique identifier handed to the caller at init time.
	ID string `json:"sessionId"`

	// Details is the running, non-regressing record of extracted fields.
	Details schedule.Details `json:"userDetails"`

	// Status tracks whether calendar credentials are attached.
	Status Status `json:"status"`

	// Timezone is the IANA zone the conversation is anchored in. Relative
	// dates resolve against wall time in this zone.
	Timezone string `json:"timezone"`

	// CreatedAt is when the session was initialised.
	CreatedAt time.Time `json:"createdAt"`

	// Tokens is the opaque OAuth credential bundle owned by this session.
	// The core stores it and hands it to the calendar layer; it never
	// inspects the contents. Nil until the OAuth callback fires.
	Tokens *oauth2.Token `json:"tokens,omitempty"`
}

// New creates a session in the awaiting-info state with a fresh random ID.
func New(timezone string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Status:    StatusAwaitingInfo,
		Timezone:  timezone,
		CreatedAt: time.Now().UTC(),
	}
}

// Location resolves the session's timezone, falling back to UTC when the
// zone name does not load.
func (s *Session) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
