package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"

	"github.com/schedvox/schedvox/internal/schedule"
	"github.com/schedvox/schedvox/internal/session"
)

// stubResponder records the policy it was handed and returns a fixed reply.
type stubResponder struct {
	mu     sync.Mutex
	reply  string
	err    error
	policy string
}

func (s *stubResponder) Reply(_ context.Context, policy, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy
	return s.reply, s.err
}

func newTestOrchestrator(r Responder) (*Orchestrator, *session.MemStore) {
	store := session.NewMemStore()
	return New(store, r, nil, "UTC"), store
}

func TestOrchestrator_InitAndProcessTurn(t *testing.T) {
	t.Parallel()

	resp := &stubResponder{reply: "Great, John! What date works for you?"}
	o, _ := newTestOrchestrator(resp)
	ctx := context.Background()

	sess, err := o.InitSession(ctx, "")
	if err != nil {
		t.Fatalf("InitSession: %v", err)
	}
	if sess.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want default UTC", sess.Timezone)
	}

	res, err := o.ProcessTurn(ctx, sess.ID, "Hi, I'm John and I'd like to meet tomorrow at 2 PM")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Details.Name != "John" {
		t.Errorf("Name = %q, want John", res.Details.Name)
	}
	if res.Details.Time != "14:00" {
		t.Errorf("Time = %q, want 14:00", res.Details.Time)
	}
	if res.Details.Date == "" {
		t.Error("Date not extracted from 'tomorrow'")
	}
	if !res.ReadyForEvent {
		t.Error("name, date and time collected but ReadyForEvent = false")
	}
	if res.AssistantMessage != resp.reply {
		t.Errorf("AssistantMessage = %q", res.AssistantMessage)
	}

	// The policy prompt must carry the detail snapshot.
	if !strings.Contains(resp.policy, `"name":"John"`) {
		t.Errorf("policy prompt missing detail snapshot: %q", resp.policy)
	}
}

func TestOrchestrator_StatePersistsAcrossTurns(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(&stubResponder{reply: "Noted."})
	ctx := context.Background()

	sess, _ := o.InitSession(ctx, "UTC")

	if _, err := o.ProcessTurn(ctx, sess.ID, "My name is Alice"); err != nil {
		t.Fatal(err)
	}
	// A digit date would be eaten by the time rule first, so use a relative
	// date the way callers actually phrase it.
	res, err := o.ProcessTurn(ctx, sess.ID, "Let's meet next week at 9 am")
	if err != nil {
		t.Fatal(err)
	}
	if res.Details.Name != "Alice" {
		t.Errorf("Name lost between turns: %q", res.Details.Name)
	}
	if res.Details.Date == "" || res.Details.Time != "09:00" {
		t.Errorf("Details = %+v", res.Details)
	}
	if !res.ReadyForEvent {
		t.Error("ReadyForEvent = false after all required fields collected")
	}
}

func TestOrchestrator_GenerationFailureUsesFallback(t *testing.T) {
	t.Parallel()

	o, store := newTestOrchestrator(&stubResponder{err: errors.New("backend down")})
	ctx := context.Background()

	sess, _ := o.InitSession(ctx, "UTC")
	res, err := o.ProcessTurn(ctx, sess.ID, "I'm Bob")
	if err != nil {
		t.Fatalf("turn must not fail on generation error: %v", err)
	}
	if res.AssistantMessage != fallbackReply {
		t.Errorf("AssistantMessage = %q, want fallback apology", res.AssistantMessage)
	}

	// The extracted name must have been persisted despite the failure.
	stored, _ := store.Get(ctx, sess.ID)
	if stored.Details.Name != "Bob" {
		t.Errorf("stored Name = %q, want Bob", stored.Details.Name)
	}
}

func TestOrchestrator_UnknownSession(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(&stubResponder{reply: "hi"})

	_, err := o.ProcessTurn(context.Background(), "no-such-id", "hello")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOrchestrator_EmptyTranscript(t *testing.T) {
	t.Parallel()

	o, store := newTestOrchestrator(&stubResponder{reply: "hi"})
	ctx := context.Background()

	sess, _ := o.InitSession(ctx, "UTC")
	for _, transcript := range []string{"", "   ", "\n\t"} {
		if _, err := o.ProcessTurn(ctx, sess.ID, transcript); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("ProcessTurn(%q): err = %v, want ErrEmptyTranscript", transcript, err)
		}
	}

	stored, _ := store.Get(ctx, sess.ID)
	if stored.Details != (schedule.Details{}) {
		t.Errorf("empty turns mutated details: %+v", stored.Details)
	}
}

func TestOrchestrator_SetDetailsOverwrites(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(&stubResponder{reply: "hi"})
	ctx := context.Background()

	sess, _ := o.InitSession(ctx, "UTC")
	if _, err := o.ProcessTurn(ctx, sess.ID, "I'm Carol"); err != nil {
		t.Fatal(err)
	}

	// Wholesale replacement clears fields absent from the new set.
	res, err := o.SetDetails(ctx, sess.ID, schedule.Details{Date: "2026-04-01", Time: "10:00"})
	if err != nil {
		t.Fatalf("SetDetails: %v", err)
	}
	if res.Details.Name != "" {
		t.Errorf("Name = %q, want cleared", res.Details.Name)
	}
	if res.ReadyForEvent {
		t.Error("ReadyForEvent = true without a name")
	}
	if res.AssistantMessage != "Details updated" {
		t.Errorf("AssistantMessage = %q", res.AssistantMessage)
	}
}

func TestOrchestrator_MergeDetailsKeepsExisting(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(&stubResponder{reply: "hi"})
	ctx := context.Background()

	sess, _ := o.InitSession(ctx, "UTC")
	if _, err := o.SetDetails(ctx, sess.ID, schedule.Details{Name: "Dave", Date: "2026-04-01"}); err != nil {
		t.Fatal(err)
	}

	res, err := o.MergeDetails(ctx, sess.ID, schedule.Details{Time: "15:30", Title: "Standup"})
	if err != nil {
		t.Fatalf("MergeDetails: %v", err)
	}
	want := schedule.Details{Name: "Dave", Date: "2026-04-01", Time: "15:30", Title: "Standup"}
	if res.Details != want {
		t.Errorf("Details = %+v, want %+v", res.Details, want)
	}
	if !res.ReadyForEvent {
		t.Error("ReadyForEvent = false with all required fields merged")
	}
}

func TestOrchestrator_AttachTokens(t *testing.T) {
	t.Parallel()

	o, store := newTestOrchestrator(&stubResponder{reply: "hi"})
	ctx := context.Background()

	sess, _ := o.InitSession(ctx, "UTC")
	if err := o.AttachTokens(ctx, sess.ID, &oauth2.Token{AccessToken: "opaque"}); err != nil {
		t.Fatalf("AttachTokens: %v", err)
	}

	stored, _ := store.Get(ctx, sess.ID)
	if stored.Status != session.StatusAuthenticated {
		t.Errorf("Status = %q, want authenticated", stored.Status)
	}
	if stored.Tokens == nil || stored.Tokens.AccessToken != "opaque" {
		t.Errorf("Tokens = %+v", stored.Tokens)
	}

	if err := o.AttachTokens(ctx, "no-such-id", &oauth2.Token{}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOrchestrator_LockEvictedWithSession(t *testing.T) {
	t.Parallel()

	o, store := newTestOrchestrator(&stubResponder{reply: "hi"})
	ctx := context.Background()

	sess, _ := o.InitSession(ctx, "UTC")
	if _, err := o.ProcessTurn(ctx, sess.ID, "I'm Eve"); err != nil {
		t.Fatal(err)
	}
	if _, ok := o.locks.Load(sess.ID); !ok {
		t.Fatal("expected a lock entry for the active session")
	}

	// Evict the session the way the TTL sweeper would, then retry the turn.
	store.Sweep(0)
	if _, err := o.ProcessTurn(ctx, sess.ID, "hello again"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, ok := o.locks.Load(sess.ID); ok {
		t.Error("lock entry survived session eviction")
	}
}
