package compression

import (
	"strings"
	"time"
)

// Matches reports whether context triggers this thunk: either the trigger
// pattern regex matches, or any trigger keyword appears verbatim.
func (t *Thunk) Matches(context string) bool {
	if t.compiledTrigger != nil && t.compiledTrigger.MatchString(context) {
		return true
	}
	lower := strings.ToLower(context)
	for _, kw := range t.Triggers {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Generate substitutes variables into the template, including the time
// placeholders {time}, {date}, {day}, {greeting}. now is passed explicitly
// rather than read from time.Now() so firing is deterministic in tests.
// Each call increments FireCount and updates LastFired.
func (t *Thunk) Generate(now time.Time, overrides map[string]string) string {
	out := t.Template

	vars := make(map[string]string, len(t.Variables)+len(overrides))
	for k, v := range t.Variables {
		vars[k] = v
	}
	for k, v := range overrides {
		vars[k] = v
	}

	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}

	out = strings.ReplaceAll(out, "{time}", now.Format("15:04"))
	out = strings.ReplaceAll(out, "{date}", now.Format("2006-01-02"))
	out = strings.ReplaceAll(out, "{day}", now.Weekday().String())
	out = strings.ReplaceAll(out, "{greeting}", greetingFor(now))

	t.FireCount++
	t.LastFired = now
	return out
}

// greetingFor implements the original's exact hour boundaries: morning
// before 12:00, afternoon before 18:00, evening otherwise.
func greetingFor(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
