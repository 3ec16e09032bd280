// Package dates converts server timestamps into instants. The backend sends
// either absolute timestamps or human-readable relative strings such as
// "3 hours ago", and the two are resolved here against an injected clock.
package dates

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day  // approximate, not calendar-aware
	year  = 365 * day // approximate, not calendar-aware
)

// absoluteLayouts are tried in order before any relative parsing
var absoluteLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

var relativeUnits = map[string]time.Duration{
	"second":  time.Second,
	"seconds": time.Second,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"day":     day,
	"days":    day,
	"week":    week,
	"weeks":   week,
	"month":   month,
	"months":  month,
	"year":    year,
	"years":   year,
}

// Parser resolves timestamps relative to its clock
type Parser struct {
	now func() time.Time
}

// NewParser creates a parser using now as its clock. A nil clock uses time.Now.
func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

var defaultParser = NewParser(nil)

// Parse resolves input with the wall clock
func Parse(input string) (time.Time, bool) {
	return defaultParser.Parse(input)
}

// Parse converts input into an instant.
// The second return value is false when input cannot be resolved; callers must
// treat that as "unknown", never as "now".
func (p *Parser) Parse(input string) (time.Time, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return time.Time{}, false
	}

	if t, ok := parseAbsolute(trimmed); ok {
		return t, true
	}

	now := p.now()
	normalized := strings.ToLower(trimmed)

	switch normalized {
	case "just now", "now":
		return now, true
	case "yesterday":
		return now.Add(-day), true
	}

	if !strings.HasSuffix(normalized, "ago") {
		return time.Time{}, false
	}

	fields := strings.Fields(strings.TrimSuffix(normalized, "ago"))
	if len(fields) != 2 {
		return time.Time{}, false
	}

	amount, err := strconv.Atoi(fields[0])
	if err != nil || amount < 0 {
		return time.Time{}, false
	}

	unit, ok := relativeUnits[fields[1]]
	if !ok {
		return time.Time{}, false
	}
	// offsets past the Duration range cannot be represented
	if int64(amount) > math.MaxInt64/int64(unit) {
		return time.Time{}, false
	}

	return now.Add(-time.Duration(amount) * unit), true
}

func parseAbsolute(input string) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		t, err := time.Parse(layout, input)
		if err == nil && !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}
