// Package dupes decides whether two event records describe the same
// underlying event, via normalized title similarity, cross-language
// semantic equivalence, and date proximity. Exact URL equality is always
// a duplicate.
package dupes

import (
	"strings"
	"time"
	"unicode"

	"github.com/xrash/smetrics"

	"github.com/AlexTo8319/ukraine-event-intelligence/models"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
)

// Detector holds one similarity profile. Different call sites use
// different thresholds (aggressive cleanup vs. conservative ingest), so
// callers construct the profile they need.
type Detector struct {
	policy            *policy.Policy
	threshold         float64
	dateToleranceDays int

	// URLScore ranks a URL's canonical-page quality; the higher-scoring
	// record wins representative selection. Optional.
	URLScore func(string) int
}

// New builds a detector with the given title-similarity threshold and
// date tolerance in days.
func New(p *policy.Policy, threshold float64, dateToleranceDays int) *Detector {
	if p == nil {
		p = policy.Default()
	}
	return &Detector{policy: p, threshold: threshold, dateToleranceDays: dateToleranceDays}
}

// translitVariants maps spelling variants seen in transliterated
// organizer and brand names onto one form.
var translitVariants = [][2]string{
	{"kreator", "creator"},
	{"-bud", " bud"},
}

// NormalizeTitle lowercases, collapses whitespace, folds transliteration
// variants and strips stop words.
func (d *Detector) NormalizeTitle(title string) string {
	t := strings.ToLower(title)
	for _, v := range translitVariants {
		t = strings.ReplaceAll(t, v[0], v[1])
	}
	words := strings.Fields(t)
	kept := words[:0]
	for _, w := range words {
		if d.policy.IsStopWord(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// TitleSimilarity measures character-level similarity of two normalized
// titles in [0,1].
func (d *Detector) TitleSimilarity(a, b string) float64 {
	na, nb := d.NormalizeTitle(a), d.NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	return smetrics.JaroWinkler(na, nb, 0.7, 4)
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// IsSemanticDuplicate detects the same event written once in Ukrainian
// and once in English. It applies only when exactly one title carries
// Cyrillic script, and requires at least two independent hits in the
// bilingual equivalence table — a single coincidental hit on a short
// title is not enough.
func (d *Detector) IsSemanticDuplicate(title1, title2 string) bool {
	t1, t2 := strings.ToLower(title1), strings.ToLower(title2)
	c1, c2 := hasCyrillic(t1), hasCyrillic(t2)
	if c1 == c2 {
		return false
	}
	ukr, eng := t1, t2
	if c2 {
		ukr, eng = t2, t1
	}

	hits := 0
	for ukrWord, engEquivalents := range d.policy.SemanticEquivalents {
		if !strings.Contains(ukr, ukrWord) {
			continue
		}
		for _, e := range engEquivalents {
			if strings.Contains(eng, e) {
				hits++
				break
			}
		}
	}
	return hits >= 2
}

func (d *Detector) datesMatch(a, b time.Time) bool {
	if a.Equal(b) {
		return true
	}
	if d.dateToleranceDays <= 0 {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(d.dateToleranceDays)*24*time.Hour
}

// IsDuplicate reports whether two records describe the same event. The
// predicate is symmetric.
func (d *Detector) IsDuplicate(a, b models.Event) bool {
	if a.URL != "" && a.URL == b.URL {
		return true
	}

	da, errA := a.DateValue()
	db, errB := b.DateValue()
	if errA != nil || errB != nil {
		return false
	}
	if !d.datesMatch(da, db) {
		return false
	}

	if d.TitleSimilarity(a.Title, b.Title) >= d.threshold {
		return true
	}
	return d.IsSemanticDuplicate(a.Title, b.Title)
}

// Partition splits newEvents into unique records and duplicates, checking
// each new record against the existing pool and against the records
// already accepted from this batch. When two batch records collide, the
// one with the higher URL-quality score is kept as representative.
func (d *Detector) Partition(newEvents, existing []models.Event) (unique, duplicates []models.Event) {
	existingURLs := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		if e.URL != "" {
			existingURLs[e.URL] = struct{}{}
		}
	}

	score := d.URLScore
	if score == nil {
		score = func(string) int { return 0 }
	}

	for _, candidate := range newEvents {
		if _, seen := existingURLs[candidate.URL]; seen {
			duplicates = append(duplicates, candidate)
			continue
		}

		dup := false
		for _, e := range existing {
			if d.IsDuplicate(candidate, e) {
				dup = true
				break
			}
		}
		if dup {
			duplicates = append(duplicates, candidate)
			continue
		}

		replaced := false
		for i, accepted := range unique {
			if !d.IsDuplicate(candidate, accepted) {
				continue
			}
			dup = true
			if score(candidate.URL) > score(accepted.URL) {
				duplicates = append(duplicates, accepted)
				unique[i] = candidate
				replaced = true
			}
			break
		}
		if dup {
			if !replaced {
				duplicates = append(duplicates, candidate)
			}
			continue
		}

		unique = append(unique, candidate)
	}
	return unique, duplicates
}
