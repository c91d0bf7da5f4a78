// Package dates extracts event dates from semi-structured page text with
// a contextual confidence score. Scanning works in descending confidence
// tiers: explicit event-date labels, dates co-located with a clock time,
// dates near title keywords, and finally any plausible date on the page.
// Dates sitting inside the exclusion window of a publication-date
// indicator are discarded at every tier.
package dates

import (
	"sort"
	"strings"
	"time"
)

// Candidate is one extracted calendar date with its provenance.
type Candidate struct {
	Date       time.Time
	Confidence float64
	Source     string
}

// Window sizes in characters, matching the behavior of the production
// corrector.
const (
	markerWindow    = 200
	exclusionWindow = 100
	clockWindow     = 120
	titleWindowPre  = 100
	titleWindowPost = 200
)

// Extractor scans page text for event dates. The year sanity range is
// relative to Clock (exposed so tests can pin "today").
type Extractor struct {
	YearsBack    int
	YearsForward int
	Clock        func() time.Time
}

// New returns an extractor accepting dates from yearsBack before to
// yearsForward after the current year.
func New(yearsBack, yearsForward int) *Extractor {
	if yearsBack <= 0 {
		yearsBack = 1
	}
	if yearsForward <= 0 {
		yearsForward = 2
	}
	return &Extractor{YearsBack: yearsBack, YearsForward: yearsForward, Clock: time.Now}
}

// dateMatch is a date expression located in the text.
type dateMatch struct {
	start, end int
	date       time.Time
}

type span struct{ start, end int }

func (e *Extractor) yearOK(y int) bool {
	now := e.Clock().Year()
	return y >= now-e.YearsBack && y <= now+e.YearsForward
}

// findDates locates every parseable date expression, ordered by position.
func (e *Extractor) findDates(text string) []dateMatch {
	var out []dateMatch
	for _, p := range datePatterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(idx)/2)
			for g := 0; g < len(idx)/2; g++ {
				if idx[2*g] >= 0 {
					groups[g] = text[idx[2*g]:idx[2*g+1]]
				}
			}
			year, month, day, ok := p.parse(groups)
			if !ok || month < 1 || month > 12 || day < 1 || day > 31 {
				continue
			}
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			if d.Day() != day || int(d.Month()) != month {
				continue // e.g. February 30
			}
			out = append(out, dateMatch{start: idx[0], end: idx[1], date: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].end > out[j].end
	})
	return out
}

// publicationZones returns the exclusion intervals around publication-date
// indicators.
func publicationZones(text string) []span {
	var zones []span
	for _, re := range publicationIndicators {
		for _, idx := range re.FindAllStringIndex(text, -1) {
			zones = append(zones, span{start: idx[0] - exclusionWindow, end: idx[1] + exclusionWindow})
		}
	}
	return zones
}

func inZones(m dateMatch, zones []span) bool {
	for _, z := range zones {
		if m.start < z.end && m.end > z.start {
			return true
		}
	}
	return false
}

func firstDateIn(matches []dateMatch, zones []span, from, to int) (dateMatch, bool) {
	for _, m := range matches {
		if m.start < from || m.start >= to {
			continue
		}
		if inZones(m, zones) {
			continue
		}
		return m, true
	}
	return dateMatch{}, false
}

// Extract returns the single best-confidence event date found in the text,
// or false when none survives the publication exclusion. The result is
// deterministic: identical input yields the identical candidate.
func (e *Extractor) Extract(text, referenceTitle string) (Candidate, bool) {
	if strings.TrimSpace(text) == "" {
		return Candidate{}, false
	}

	matches := e.findDates(text)
	if len(matches) == 0 {
		return Candidate{}, false
	}
	zones := publicationZones(text)

	// Tier 1: explicit event-date labels.
	for _, marker := range eventMarkers {
		for _, idx := range marker.re.FindAllStringIndex(text, -1) {
			if m, ok := firstDateIn(matches, zones, idx[1], idx[1]+markerWindow); ok {
				return Candidate{Date: m.date, Confidence: marker.confidence, Source: marker.source}, true
			}
		}
	}

	// Tier 2: a date sharing a sentence window with a clock time.
	for _, idx := range clockRe.FindAllStringIndex(text, -1) {
		if m, ok := firstDateIn(matches, zones, idx[0]-clockWindow, idx[1]+clockWindow); ok {
			return Candidate{Date: m.date, Confidence: 0.85, Source: "near-time"}, true
		}
	}

	// Tier 3: a date near a keyword from the reference title.
	lowerText := strings.ToLower(text)
	for _, word := range titleKeywords(referenceTitle) {
		pos := strings.Index(lowerText, word)
		if pos < 0 {
			continue
		}
		if m, ok := firstDateIn(matches, zones, pos-titleWindowPre, pos+titleWindowPost); ok {
			return Candidate{Date: m.date, Confidence: 0.70, Source: "near-title"}, true
		}
	}

	// Tier 4: first plausible date anywhere, restricted to a sane year range.
	for _, m := range matches {
		if inZones(m, zones) {
			continue
		}
		if !e.yearOK(m.date.Year()) {
			continue
		}
		return Candidate{Date: m.date, Confidence: 0.40, Source: "first-on-page"}, true
	}

	return Candidate{}, false
}

// titleKeywords picks the words in a title long enough to carry signal.
func titleKeywords(title string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if len([]rune(w)) > 4 {
			out = append(out, w)
		}
	}
	return out
}

// PastIndicators reports phrases in the text stating the event already
// took place. Advisory only: the decision engine records them as reasons
// but does not remove on this signal alone.
func PastIndicators(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, ind := range pastIndicators {
		if strings.Contains(lower, ind) {
			found = append(found, ind)
		}
	}
	return found
}
