// Package schedule implements the scheduling core: the accumulated detail set
// extracted from conversation transcripts, the per-field extraction rules, the
// temporal normaliser, and the readiness predicate that gates calendar event
// creation.
//
// All functions in this package are pure data transformations; nothing here
// performs I/O or holds state between calls.
package schedule

// Field names as they appear in detail payloads and in missing-field errors.
const (
	FieldName     = "name"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldDuration = "duration"
	FieldTitle    = "title"
)

// Details is the running record of scheduling facts collected from a
// conversation. A field is considered set when it is a non-empty string;
// empty string and absence are equivalent.
//
// Date is an ISO calendar date ("2026-03-05"), Time is 24-hour "HH:MM",
// Duration is an integer minute count rendered as a decimal string. Duration
// and Title are optional; their defaults (60 minutes, "Meeting with <name>")
// are applied at event-creation time, never stored here.
type Details struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Date     string `json:"date,omitempty" yaml:"date,omitempty"`
	Time     string `json:"time,omitempty" yaml:"time,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
}

// IsPresent reports whether the named field holds a non-empty value.
// Unknown field names report false.
func (d Details) IsPresent(field string) bool {
	return d.get(field) != ""
}

// Value returns the named field's value, or "" for unknown names.
func (d Details) Value(field string) string {
	return d.get(field)
}

// get returns the value of the named field, or "" for unknown names.
func (d Details) get(field string) string {
	switch field {
	case FieldName:
		return d.Name
	case FieldDate:
		return d.Date
	case FieldTime:
		return d.Time
	case FieldDuration:
		return d.Duration
	case FieldTitle:
		return d.Title
	}
	return ""
}

// set assigns value to the named field. Unknown names are ignored.
func (d *Details) set(field, value string) {
	switch field {
	case FieldName:
		d.Name = value
	case FieldDate:
		d.Date = value
	case FieldTime:
		d.Time = value
	case FieldDuration:
		d.Duration = value
	case FieldTitle:
		d.Title = value
	}
}

// Merge overwrites every field of d for which patch carries a non-empty value.
// Fields absent from patch are left untouched. This is the bulk-update path
// used by tool-call webhooks; it deliberately bypasses the non-regression
// guard that conversational extraction enforces.
func (d *Details) Merge(patch Details) {
	for _, f := range allFields {
		if v := patch.get(f); v != "" {
			d.set(f, v)
		}
	}
}

// allFields lists every detail field in canonical order.
var allFields = []string{FieldName, FieldDate, FieldTime, FieldDuration, FieldTitle}

// Fields returns every detail field name in canonical order. The caller may
// not mutate the returned slice's backing array, so a copy is handed out.
func Fields() []string {
	return append([]string(nil), allFields...)
}
