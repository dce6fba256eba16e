package schedule

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	namePhraseRe = regexp.MustCompile(`(?i)(?:i'm|i am|my name is|call me)\s+([A-Za-z]+)`)

	// bareNameRe matches an utterance that is nothing but a single alphabetic
	// token (2-30 letters) with at most one trailing punctuation mark, e.g.
	// "Forrest." spoken in answer to "what's your name?".
	bareNameRe = regexp.MustCompile(`^[A-Za-z]{2,30}[.!?]?$`)

	titleRe = regexp.MustCompile(`(?i)(?:titled|title is|called)\s+([^.,!?]+)`)
)

// Extract runs every field rule against transcript and fills in each field of
// d that is still unset. Fields that already hold a value are never touched;
// re-running Extract with the same transcript is a no-op for them. Rules are
// independent per field, so the evaluation order does not affect the result.
//
// now anchors relative date expressions ("tomorrow", "next week") and should
// be taken in the conversation's timezone.
func Extract(d *Details, transcript string, now time.Time) {
	text := strings.TrimSpace(transcript)

	if !d.IsPresent(FieldName) {
		if name, ok := extractName(text); ok {
			d.Name = name
		}
	}
	if !d.IsPresent(FieldDate) {
		if date, ok := NormalizeDate(text, now); ok {
			d.Date = date
		}
	}
	if !d.IsPresent(FieldTime) {
		if t, ok := NormalizeTime(text); ok {
			d.Time = t
		}
	}
	if !d.IsPresent(FieldDuration) {
		if dur, ok := NormalizeDuration(text); ok {
			d.Duration = dur
		}
	}
	if !d.IsPresent(FieldTitle) {
		if title, ok := extractTitle(text); ok {
			d.Title = title
		}
	}
}

// extractName finds a name in text. A phrase marker ("my name is Amy",
// "I'm John") wins; failing that, an utterance that is a single bare word is
// taken wholesale as the name. The bare-word fallback is only reachable while
// the name field is unset, which keeps later single-word confirmations
// ("yes.") from being misread — Extract's unset guard enforces that.
func extractName(text string) (string, bool) {
	if m := namePhraseRe.FindStringSubmatch(text); m != nil {
		return capitalize(m[1]), true
	}
	if bareNameRe.MatchString(text) {
		return capitalize(strings.TrimRight(text, ".!?")), true
	}
	return "", false
}

// extractTitle captures free text after a title marker up to the next
// clause-ending punctuation.
func extractTitle(text string) (string, bool) {
	m := titleRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
