package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/schedvox/schedvox/internal/dialogue"
	"github.com/schedvox/schedvox/internal/observe"
	"github.com/schedvox/schedvox/internal/schedule"
)

// Voice platforms deliver tool calls in several envelope shapes depending on
// product and version; the webhook accepts all of them rather than chasing
// upstream payload changes:
//
//	{"toolCalls": [...]}
//	{"message": {"toolCalls": [...]}}
//	{"toolCallList": [...]}
//
// Within a call, arguments live under "args", "parameters", or
// "function.arguments", and arrive either as a JSON object or as a
// JSON-encoded string.
type toolCallEnvelope struct {
	ToolCalls    []toolCall `json:"toolCalls"`
	ToolCallList []toolCall `json:"toolCallList"`
	Message      *struct {
		ToolCalls []toolCall `json:"toolCalls"`
	} `json:"message"`
}

// calls returns the first non-empty tool call list in the envelope.
func (e toolCallEnvelope) calls() []toolCall {
	switch {
	case len(e.ToolCalls) > 0:
		return e.ToolCalls
	case e.Message != nil && len(e.Message.ToolCalls) > 0:
		return e.Message.ToolCalls
	default:
		return e.ToolCallList
	}
}

type toolCall struct {
	ID         string          `json:"id"`
	ToolCallID string          `json:"toolCallId"`
	Args       json.RawMessage `json:"args"`
	Parameters json.RawMessage `json:"parameters"`
	Function   struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// callID returns the call's identifier under either key the platform uses.
func (c toolCall) callID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.ToolCallID != "":
		return c.ToolCallID
	}
	return "unknown"
}

// arguments returns the first argument payload present on the call.
func (c toolCall) arguments() json.RawMessage {
	switch {
	case len(c.Args) > 0:
		return c.Args
	case len(c.Parameters) > 0:
		return c.Parameters
	}
	return c.Function.Arguments
}

// flexString decodes a JSON string or a JSON number into a string. Models
// report durations both ways ("30" and 30).
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(strconv.Itoa(int(n)))
	return nil
}

// detailsPatch mirrors [schedule.Details] with the lenient duration decoding
// tool payloads need.
type detailsPatch struct {
	Name     string     `json:"name"`
	Date     string     `json:"date"`
	Time     string     `json:"time"`
	Duration flexString `json:"duration"`
	Title    string     `json:"title"`
}

func (p detailsPatch) details() schedule.Details {
	d := schedule.Details{
		Name:     p.Name,
		Date:     p.Date,
		Time:     p.Time,
		Duration: string(p.Duration),
		Title:    p.Title,
	}
	// Models also report durations in prose ("30 minutes"); store the
	// canonical minute count.
	if d.Duration != "" {
		if norm, ok := schedule.NormalizeDuration(d.Duration); ok {
			d.Duration = norm
		}
	}
	return d
}

// toolArguments is the payload of an update-details tool call. Detail fields
// arrive either nested under "userDetails" or flattened beside sessionId;
// the nested form wins when both are present.
type toolArguments struct {
	SessionID   string        `json:"sessionId"`
	UserDetails *detailsPatch `json:"userDetails"`
	detailsPatch
}

func (a toolArguments) patch() schedule.Details {
	if a.UserDetails != nil {
		return a.UserDetails.details()
	}
	return a.detailsPatch.details()
}

// decodeArguments handles both argument encodings.
func decodeArguments(raw json.RawMessage) (toolArguments, error) {
	var args toolArguments
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err == nil {
		return args, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return args, err
	}
	err := json.Unmarshal([]byte(encoded), &args)
	return args, err
}

type toolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// toolResult is the body placed in each result string. The platform requires
// the result to be a single-line string, and the model reads the session's
// readiness back out of it, so it is rendered as compact JSON.
type toolResult struct {
	OK              bool              `json:"ok"`
	Error           string            `json:"error,omitempty"`
	SessionID       string            `json:"sessionId,omitempty"`
	UserDetails     *schedule.Details `json:"userDetails,omitempty"`
	IsReadyForEvent *bool             `json:"isReadyForEvent,omitempty"`
}

func (t toolResult) encode() string {
	b, err := json.Marshal(t)
	if err != nil {
		return `{"ok":false,"error":"encoding failure"}`
	}
	return string(b)
}

func errorResult(callID, msg, sessionID string) toolCallResult {
	return toolCallResult{
		ToolCallID: callID,
		Result:     toolResult{Error: msg, SessionID: sessionID}.encode(),
	}
}

func successResult(callID, sessionID string, res *dialogue.TurnResult) toolCallResult {
	return toolCallResult{
		ToolCallID: callID,
		Result: toolResult{
			OK:              true,
			SessionID:       sessionID,
			UserDetails:     &res.Details,
			IsReadyForEvent: &res.ReadyForEvent,
		}.encode(),
	}
}

// handleToolUpdate is the webhook a voice platform calls when the model
// invokes the update-details tool. Each call's detail fields are merged into
// the named session. Per-call failures are reported in the result list; the
// webhook itself only fails on an undecodable envelope.
func (s *Server) handleToolUpdate(w http.ResponseWriter, r *http.Request) {
	var env toolCallEnvelope
	if err := decodeBody(r, &env); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	calls := env.calls()
	if len(calls) == 0 {
		writeError(w, http.StatusBadRequest, "no tool calls in request")
		return
	}

	log := observe.Logger(r.Context())
	results := make([]toolCallResult, 0, len(calls))
	for _, call := range calls {
		id := call.callID()
		args, err := decodeArguments(call.arguments())
		switch {
		case err != nil:
			log.Warn("undecodable tool call arguments",
				"tool_call_id", id, "error", err)
			results = append(results, errorResult(id, "malformed arguments", ""))
			continue
		case args.SessionID == "":
			results = append(results, errorResult(id, "sessionId is required", ""))
			continue
		}

		res, err := s.orch.MergeDetails(r.Context(), args.SessionID, args.patch())
		if err != nil {
			log.Warn("tool call update failed",
				"tool_call_id", id, "session_id", args.SessionID, "error", err)
			results = append(results, errorResult(id, "unknown session", args.SessionID))
			continue
		}
		results = append(results, successResult(id, args.SessionID, res))
	}

	writeJSON(w, http.StatusOK, map[string][]toolCallResult{"results": results})
}
