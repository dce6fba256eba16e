package dialogue

import (
	"encoding/json"

	"github.com/schedvox/schedvox/internal/schedule"
)

// policyPreamble is the fixed part of the system prompt. The assistant never
// claims an event was created; event creation is the caller's side effect
// once the details are complete.
const policyPreamble = `You are a friendly scheduling assistant on a voice call.
Your job is to collect the details needed to schedule a meeting: the caller's
name, the meeting date, and the meeting time. A duration and a title are
optional extras.

Rules:
- Ask for exactly one missing item per reply.
- Keep replies short and natural; they will be spoken aloud.
- When an item was just provided, acknowledge it briefly before asking for
  the next one.
- Never say that the event has been created or booked. You only collect
  details.
- When every required item is collected, reply exactly:
  "Perfect! I'm ready to create your event now."

Details collected so far (empty fields are still missing):
`

// SystemPolicy renders the conversation policy prompt for the current detail
// state. The detail snapshot is embedded as JSON so the model can see which
// fields are still missing.
func SystemPolicy(d schedule.Details) string {
	snapshot, err := json.Marshal(d)
	if err != nil {
		// Details is a flat struct of strings; Marshal cannot fail on it.
		snapshot = []byte("{}")
	}
	return policyPreamble + string(snapshot)
}
