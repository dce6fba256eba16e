// Package dialogue drives the conversational scheduling flow: it applies
// transcript extraction to the session's details, persists the updated state,
// and generates the assistant's next utterance.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/schedvox/schedvox/internal/observe"
	"github.com/schedvox/schedvox/internal/schedule"
	"github.com/schedvox/schedvox/internal/session"
)

// ErrEmptyTranscript is returned by ProcessTurn when the transcript is empty
// or whitespace-only.
var ErrEmptyTranscript = errors.New("empty transcript")

// fallbackReply is spoken when response generation fails. The turn itself
// still succeeds; extracted details are kept.
const fallbackReply = "I had trouble processing that. Could you please repeat?"

// TurnResult is the outcome of one processed conversational turn.
type TurnResult struct {
	// AssistantMessage is the utterance to speak back to the caller.
	AssistantMessage string `json:"response"`

	// ReadyForEvent reports whether every required detail is now present.
	ReadyForEvent bool `json:"readyForEvent"`

	// Details is the session's detail state after this turn.
	Details schedule.Details `json:"userDetails"`
}

// Orchestrator coordinates sessions, extraction, and response generation.
// Turns for the same session are serialised; different sessions proceed
// concurrently.
type Orchestrator struct {
	store     session.Store
	responder Responder
	metrics   *observe.Metrics
	defaultTZ string

	// locks serialises turns per session ID. Entries are dropped when a
	// lookup misses, so swept sessions do not pin their mutexes for the life
	// of the process.
	locks sync.Map // map[string]*sync.Mutex
}

// New creates an [Orchestrator]. metrics may be nil to disable recording;
// defaultTZ is used when InitSession is called without a timezone override.
func New(store session.Store, responder Responder, metrics *observe.Metrics, defaultTZ string) *Orchestrator {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &Orchestrator{
		store:     store,
		responder: responder,
		metrics:   metrics,
		defaultTZ: defaultTZ,
	}
}

// lock returns the mutex guarding sessionID, creating it on first use.
func (o *Orchestrator) lock(sessionID string) *sync.Mutex {
	mu, _ := o.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// get fetches the session and evicts the per-session mutex entry when the ID
// is unknown. A concurrent caller may briefly recreate the entry, but an
// unknown session has no state for it to guard.
func (o *Orchestrator) get(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		o.locks.Delete(sessionID)
	}
	return sess, err
}

// InitSession creates a fresh session and returns it. timezone overrides the
// configured default when non-empty; invalid zones fall back to UTC at use
// time rather than failing the call.
func (o *Orchestrator) InitSession(ctx context.Context, timezone string) (*session.Session, error) {
	if timezone == "" {
		timezone = o.defaultTZ
	}
	sess := session.New(timezone)
	if err := o.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("dialogue: init session: %w", err)
	}
	if o.metrics != nil {
		o.metrics.ActiveSessions.Add(ctx, 1)
	}
	observe.Logger(ctx).Info("session initialised",
		"session_id", sess.ID, "timezone", sess.Timezone)
	return sess, nil
}

// ProcessTurn runs one conversational turn for sessionID: extract details
// from transcript, persist the session, and generate the next assistant
// utterance.
//
// Returns [session.ErrNotFound] for unknown sessions and
// [ErrEmptyTranscript] for blank input; in both cases no state changes.
// Response-generation failures do not fail the turn: the extracted details
// are kept and a fixed apology is returned instead.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, transcript string) (*TurnResult, error) {
	start := time.Now()

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	mu := o.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("dialogue: process turn: %w", err)
	}

	// Relative dates ("tomorrow") resolve against the caller's wall clock.
	now := time.Now().In(sess.Location())
	before := sess.Details
	schedule.Extract(&sess.Details, transcript, now)
	o.recordExtractions(ctx, before, sess.Details)

	if err := o.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("dialogue: persist session: %w", err)
	}

	ready := schedule.Ready(sess.Details)
	status := "ok"

	reply, err := o.responder.Reply(ctx, SystemPolicy(sess.Details), transcript)
	if err != nil {
		observe.Logger(ctx).Warn("response generation failed, using fallback",
			"session_id", sessionID, "error", err)
		if o.metrics != nil {
			o.metrics.RecordProviderError(ctx, "responder", "llm")
		}
		reply = fallbackReply
		status = "fallback"
	}

	if o.metrics != nil {
		o.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
		o.metrics.RecordTurn(ctx, status, ready)
	}

	return &TurnResult{
		AssistantMessage: reply,
		ReadyForEvent:    ready,
		Details:          sess.Details,
	}, nil
}

// SetDetails replaces the session's details wholesale. Used by clients that
// collected details out of band.
func (o *Orchestrator) SetDetails(ctx context.Context, sessionID string, details schedule.Details) (*TurnResult, error) {
	mu := o.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("dialogue: set details: %w", err)
	}
	sess.Details = details
	if err := o.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("dialogue: persist session: %w", err)
	}

	return &TurnResult{
		AssistantMessage: "Details updated",
		ReadyForEvent:    schedule.Ready(sess.Details),
		Details:          sess.Details,
	}, nil
}

// MergeDetails overlays the non-empty fields of patch onto the session's
// details. Used by the tool-call webhook, where the model reports only the
// fields it learned this turn.
func (o *Orchestrator) MergeDetails(ctx context.Context, sessionID string, patch schedule.Details) (*TurnResult, error) {
	mu := o.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("dialogue: merge details: %w", err)
	}
	before := sess.Details
	sess.Details.Merge(patch)
	o.recordExtractions(ctx, before, sess.Details)

	if err := o.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("dialogue: persist session: %w", err)
	}

	return &TurnResult{
		AssistantMessage: "Details updated",
		ReadyForEvent:    schedule.Ready(sess.Details),
		Details:          sess.Details,
	}, nil
}

// Session returns the current state for sessionID.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return o.get(ctx, sessionID)
}

// AttachTokens stores calendar credentials on the session and marks it
// authenticated.
func (o *Orchestrator) AttachTokens(ctx context.Context, sessionID string, tokens *oauth2.Token) error {
	mu := o.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("dialogue: attach tokens: %w", err)
	}
	sess.Tokens = tokens
	sess.Status = session.StatusAuthenticated
	if err := o.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("dialogue: persist session: %w", err)
	}
	observe.Logger(ctx).Info("session authenticated", "session_id", sessionID)
	return nil
}

// recordExtractions emits one ExtractionHits increment per field that became
// set or changed between before and after.
func (o *Orchestrator) recordExtractions(ctx context.Context, before, after schedule.Details) {
	if o.metrics == nil || before == after {
		return
	}
	for _, f := range schedule.Fields() {
		if after.Value(f) != "" && before.Value(f) != after.Value(f) {
			o.metrics.RecordExtraction(ctx, f)
		}
	}
}
