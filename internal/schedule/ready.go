package schedule

// requiredFields are the fields that must be present before a calendar event
// can be created. Duration and title are always optional.
var requiredFields = []string{FieldName, FieldDate, FieldTime}

// Ready reports whether d carries every mandatory scheduling field.
// It is recomputed from the full detail set on every call; adding optional
// fields can never turn a ready set unready.
func Ready(d Details) bool {
	for _, f := range requiredFields {
		if !d.IsPresent(f) {
			return false
		}
	}
	return true
}

// Missing returns the mandatory fields absent from d, in canonical order.
// An empty slice means d is ready.
func Missing(d Details) []string {
	var missing []string
	for _, f := range requiredFields {
		if !d.IsPresent(f) {
			missing = append(missing, f)
		}
	}
	return missing
}
