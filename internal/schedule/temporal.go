package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// wordHours maps spoken hour words to their numeric value for the word-time rule.
var wordHours = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var (
	explicitDateRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})`)

	// digitTimeRe is deliberately unanchored: it will happily capture an
	// incidental number ("room 12", a duration figure) as a time value when the
	// time field is still unset. That greedy-but-simple policy is part of the
	// extraction contract; tightening it changes which utterances fill the field.
	digitTimeRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

	wordTimeRe = regexp.MustCompile(`\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\b\s*(am|pm)\b`)

	durationRe = regexp.MustCompile(`\b(\d{1,3})\s*(minutes|minute|min|hours|hour|hr)\b`)
)

// NormalizeDate resolves a date expression found in text against now.
//
// Rules in priority order: the literal keyword "tomorrow" (now + 1 day),
// the literal keyword "next week" (now + 7 days), an explicit ISO date
// (passed through), and a slash date M/D/Y with two-digit years read as 20YY.
// Only the first matching rule fires. Returns ok=false when nothing matches.
func NormalizeDate(text string, now time.Time) (string, bool) {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	case strings.Contains(lower, "next week"):
		return now.AddDate(0, 0, 7).Format("2006-01-02"), true
	}

	m := explicitDateRe.FindString(text)
	if m == "" {
		return "", false
	}
	if !strings.Contains(m, "/") {
		return m, true
	}

	parts := strings.Split(m, "/")
	month, _ := strconv.Atoi(parts[0])
	day, _ := strconv.Atoi(parts[1])
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("%s-%02d-%02d", year, month, day), true
}

// NormalizeTime resolves a time expression found in text to 24-hour "HH:MM".
//
// A digit pattern ("10 pm", "10:30", a bare "7") is tried first; the meridiem
// is optional there, and without one the hour passes through unconverted. If
// no digits match, a spoken hour word followed by a mandatory am/pm marker
// ("ten pm") is tried. Returns ok=false when neither form matches.
func NormalizeTime(text string) (string, bool) {
	lower := strings.ToLower(text)

	if m := digitTimeRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		hour = meridiemHour(hour, m[3])
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	if m := wordTimeRe.FindStringSubmatch(lower); m != nil {
		hour := meridiemHour(wordHours[m[1]], m[2])
		return fmt.Sprintf("%02d:00", hour), true
	}

	return "", false
}

// meridiemHour converts a 12-hour clock value to 24-hour form.
// "pm" with hour != 12 adds 12; "am" with hour == 12 yields 0; everything
// else (including an absent meridiem) passes through unchanged.
func meridiemHour(hour int, meridiem string) int {
	switch {
	case meridiem == "pm" && hour != 12:
		return hour + 12
	case meridiem == "am" && hour == 12:
		return 0
	}
	return hour
}

// NormalizeDuration resolves a duration phrase ("90 minutes", "2 hours") to
// an integer minute count rendered as a decimal string. Hour-family units
// multiply by 60. Returns ok=false when no duration phrase is found.
func NormalizeDuration(text string) (string, bool) {
	m := durationRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return "", false
	}
	value, _ := strconv.Atoi(m[1])
	if strings.HasPrefix(m[2], "hour") || strings.HasPrefix(m[2], "hr") {
		value *= 60
	}
	return strconv.Itoa(value), true
}
