package dates

import (
	"regexp"
	"sort"
	"strings"
)

// monthNumbers maps month names in the supported locales (English and
// Ukrainian, genitive and nominative forms plus English abbreviations)
// onto month numbers.
var monthNumbers = map[string]int{
	"january": 1, "jan": 1, "січня": 1, "січень": 1,
	"february": 2, "feb": 2, "лютого": 2, "лютий": 2,
	"march": 3, "mar": 3, "березня": 3, "березень": 3,
	"april": 4, "apr": 4, "квітня": 4, "квітень": 4,
	"may": 5, "травня": 5, "травень": 5,
	"june": 6, "jun": 6, "червня": 6, "червень": 6,
	"july": 7, "jul": 7, "липня": 7, "липень": 7,
	"august": 8, "aug": 8, "серпня": 8, "серпень": 8,
	"september": 9, "sep": 9, "вересня": 9, "вересень": 9,
	"october": 10, "oct": 10, "жовтня": 10, "жовтень": 10,
	"november": 11, "nov": 11, "листопада": 11, "листопад": 11,
	"december": 12, "dec": 12, "грудня": 12, "грудень": 12,
}

// monthAlternation builds the regex alternation of all month names,
// longest first so "march" wins over "mar".
func monthAlternation() string {
	names := make([]string, 0, len(monthNumbers))
	for name := range monthNumbers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return strings.Join(names, "|")
}

var months = monthAlternation()

// eventMarker is one explicit event-date label. A date parsed from the
// window following the marker gets the marker's confidence.
type eventMarker struct {
	re         *regexp.Regexp
	confidence float64
	source     string
}

// Markers in priority order. The Ukrainian forms come first because the
// source pages are predominantly Ukrainian.
var eventMarkers = []eventMarker{
	{regexp.MustCompile(`(?i)дата\s+та\s+час[:\s]`), 0.95, "marker:дата-та-час"},
	{regexp.MustCompile(`(?i)дата[:\s]`), 0.95, "marker:дата"},
	{regexp.MustCompile(`(?i)event\s+date[:\s]`), 0.95, "marker:event-date"},
	{regexp.MustCompile(`(?i)\bwhen[:\s]`), 0.90, "marker:when"},
	{regexp.MustCompile(`(?i)коли[:\s]`), 0.90, "marker:коли"},
	{regexp.MustCompile(`(?i)відбудеться[:\s]`), 0.90, "marker:відбудеться"},
	{regexp.MustCompile(`(?i)будет\s+проводиться[:\s]`), 0.90, "marker:будет-проводиться"},
	{regexp.MustCompile(`(?i)\bdate[:\s]`), 0.90, "marker:date"},
}

// publicationIndicators flag text regions describing when an article was
// written rather than when an event happens. Dates inside the exclusion
// window around any of these are never event-date candidates.
var publicationIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)на\s+читання`),
	regexp.MustCompile(`(?i)reading\s+time`),
	regexp.MustCompile(`(?i)опубліковано`),
	regexp.MustCompile(`(?i)published`),
	regexp.MustCompile(`(?i)дата\s+публікації`),
	regexp.MustCompile(`(?i)publication\s+date`),
}

// pastIndicators are phrases reporting that an event has already taken
// place. They are advisory signals, not hard disqualifiers.
var pastIndicators = []string{
	"відбулося", "відбулась", "was held", "took place",
	"has ended", "completed", "завершено", "вже відбувся",
}

// Date expression patterns. Each parser receives the submatch groups.
type datePattern struct {
	re    *regexp.Regexp
	parse func(groups []string) (year, month, day int, ok bool)
}

var datePatterns = []datePattern{
	// 2025-12-04
	{
		regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		func(g []string) (int, int, int, bool) {
			return atoi(g[1]), atoi(g[2]), atoi(g[3]), true
		},
	},
	// 4 грудня 2025 / 4 December 2025 / 28 Листопада, 2025
	{
		regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + months + `)\s*,?\s+(\d{4})`),
		func(g []string) (int, int, int, bool) {
			m, ok := monthNumbers[strings.ToLower(g[2])]
			return atoi(g[3]), m, atoi(g[1]), ok
		},
	},
	// December 4, 2025
	{
		regexp.MustCompile(`(?i)(?:^|[^\pL])(` + months + `)\s+(\d{1,2})\s*,?\s+(\d{4})`),
		func(g []string) (int, int, int, bool) {
			m, ok := monthNumbers[strings.ToLower(g[1])]
			return atoi(g[3]), m, atoi(g[2]), ok
		},
	},
	// 01-05 грудня 2025 (multi-day range: first day wins)
	{
		regexp.MustCompile(`(?i)\b(\d{1,2})\s*[-–]\s*\d{1,2}\s+(` + months + `)\s+(\d{4})`),
		func(g []string) (int, int, int, bool) {
			m, ok := monthNumbers[strings.ToLower(g[2])]
			return atoi(g[3]), m, atoi(g[1]), ok
		},
	},
	// 04.12.2025 / 04/12/2025 (day first)
	{
		regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})[./](\d{4})\b`),
		func(g []string) (int, int, int, bool) {
			return atoi(g[3]), atoi(g[2]), atoi(g[1]), true
		},
	},
}

// clockRe finds clock times; a date sharing a sentence window with one is
// almost certainly the event date, not a publication stamp.
var clockRe = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
