package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ExtractionMode selects which tokens of a calendar cell count as codes.
type ExtractionMode int

const (
	// Permissive keeps every token shaped like a code. Used when deriving tasks from calendar entries.
	Permissive ExtractionMode = iota
	// DictionaryFiltered additionally requires the token to be a Dictionary key. Used by the legacy notification path.
	DictionaryFiltered
)

func (m ExtractionMode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case DictionaryFiltered:
		return "dictionary-filtered"
	default:
		return "unknown"
	}
}

var (
	separatorRegex = regexp.MustCompile(`[,\s]+`)
	codeRegex      = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)
	yearRegex      = regexp.MustCompile(`\d{4}`)

	// full names are scanned before abbreviations; first substring match wins.
	monthNames = []struct {
		name  string
		index int // zero-based
	}{
		{"january", 0}, {"february", 1}, {"march", 2}, {"april", 3},
		{"may", 4}, {"june", 5}, {"july", 6}, {"august", 7},
		{"september", 8}, {"october", 9}, {"november", 10}, {"december", 11},
		{"jan", 0}, {"feb", 1}, {"mar", 2}, {"apr", 3},
		{"jun", 5}, {"jul", 6}, {"aug", 7}, {"sep", 8},
		{"oct", 9}, {"nov", 10}, {"dec", 11},
	}
)

// IsCode reports whether s is shaped like a task code.
func IsCode(s string) bool {
	return codeRegex.MatchString(s)
}

// ExtractCodes returns the distinct upper-cased codes found in cell, in first-seen order.
func ExtractCodes(cell string, mode ExtractionMode) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, token := range separatorRegex.Split(cell, -1) {
		token = strings.ToUpper(token)
		if token == "" || !IsCode(token) {
			continue
		}
		if mode == DictionaryFiltered {
			if _, ok := Describe(token); !ok {
				continue
			}
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		codes = append(codes, token)
	}
	return codes
}

// MonthLabel is the outcome of parsing a calendar entry's month label.
type MonthLabel struct {
	Date time.Time
	// Ambiguous is set when the label matched none of the recognised forms
	// and the January 1 default was used.
	Ambiguous bool
}

// ParseMonthLabel resolves label into the first day covered by a calendar entry.
// It only fails for a blank label.
func ParseMonthLabel(label string, fallbackYear int, loc *time.Location) (time.Time, bool) {
	ml, ok := ParseMonthLabelDetailed(label, fallbackYear, loc)
	return ml.Date, ok
}

// ParseMonthLabelDetailed is ParseMonthLabel reporting whether the default was used.
//
// Accepted forms:
//   - "June", "Jun 2024": no hyphen, day 1 of the first month name found, fallbackYear.
//   - "15-Jun": day then month, fallbackYear.
//   - "Jun-2024": month then year; the embedded year wins over fallbackYear.
//
// Anything else silently resolves to January 1 of fallbackYear.
func ParseMonthLabelDetailed(label string, fallbackYear int, loc *time.Location) (MonthLabel, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return MonthLabel{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	year, month, day := fallbackYear, 0, 1
	var found bool

	parts := strings.Split(label, "-")
	switch len(parts) {
	case 1:
		month, found = findMonth(label)
	case 2:
		first, second := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		firstNum, firstErr := strconv.Atoi(first)
		secondNum, secondErr := strconv.Atoi(second)

		switch {
		case firstErr == nil && secondErr != nil:
			day = firstNum
			month, found = findMonth(second)
		case firstErr != nil && secondErr == nil:
			year = secondNum
			month, found = findMonth(first)
		}
	}

	return MonthLabel{
		Date:      time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, loc),
		Ambiguous: !found,
	}, true
}

func findMonth(s string) (int, bool) {
	s = strings.ToLower(s)
	for _, m := range monthNames {
		if strings.Contains(s, m.name) {
			return m.index, true
		}
	}
	return 0, false
}

// YearFromLabel returns the first 4-digit number embedded in label.
func YearFromLabel(label string) (int, bool) {
	match := yearRegex.FindString(label)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

// ResolveYear picks the explicit year, else the one embedded in label, else now's year.
func ResolveYear(explicit *int, label string, now time.Time) int {
	if explicit != nil {
		return *explicit
	}
	if year, ok := YearFromLabel(label); ok {
		return year
	}
	return now.Year()
}
