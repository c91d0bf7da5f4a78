package resolver

import (
	"regexp"
	"strings"

	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/links"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
)

// Scoring weights for candidate links, kept as one table so the heuristic
// is tunable without touching the traversal.
const (
	weightEventDetail   = 20
	weightEventPath     = 15
	weightNumericID     = 10
	weightEventKeyword  = 3
	weightTitleInURL    = 3
	weightTitleInAnchor = 5
	weightTitleNearby   = 2
)

var (
	eventDetailSegRe = regexp.MustCompile(`(?i)eventdetail`)
	eventPathRe      = regexp.MustCompile(`(?i)/events?/[^/]`)
	numericIDRe      = regexp.MustCompile(`\d{4,}`)
)

// TitleWords extracts the scoring keywords from an event title: words
// longer than four characters, lowercased.
func TitleWords(title string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if len([]rune(w)) > 4 {
			out = append(out, w)
		}
	}
	return out
}

// ScoreLink ranks how likely a link leads to the canonical page for the
// titled event. Blocklisted targets always score below acceptance.
func ScoreLink(p *policy.Policy, link links.Link, titleWords []string) int {
	if p.IsBlocked(link.URL) {
		return -1
	}
	urlLower := strings.ToLower(link.URL)
	textLower := strings.ToLower(link.Text)
	ctxLower := strings.ToLower(link.Context)

	score := 0
	switch {
	case eventDetailSegRe.MatchString(urlLower):
		score += weightEventDetail
	case eventPathRe.MatchString(urlLower):
		score += weightEventPath
	}
	if numericIDRe.MatchString(urlLower) {
		score += weightNumericID
	}
	if p.HasEventKeyword(urlLower) {
		score += weightEventKeyword
	}

	for _, w := range titleWords {
		if strings.Contains(urlLower, w) {
			score += weightTitleInURL
		}
		if strings.Contains(textLower, w) {
			score += weightTitleInAnchor
		}
		if strings.Contains(ctxLower, w) {
			score += weightTitleNearby
		}
	}
	return score
}

// URLQuality ranks how canonical a URL already looks, independent of any
// page content. Used to pick the representative among duplicates.
func URLQuality(p *policy.Policy, rawURL string) int {
	if p.IsBlocked(rawURL) {
		return -100
	}
	lower := strings.ToLower(rawURL)
	score := 0
	switch {
	case eventDetailSegRe.MatchString(lower):
		score += weightEventDetail
	case eventPathRe.MatchString(lower):
		score += weightEventPath
	}
	if numericIDRe.MatchString(lower) {
		score += weightNumericID
	}
	if p.HasEventKeyword(lower) {
		score += weightEventKeyword
	}
	if p.IsGenericPath(rawURL) {
		score -= weightEventPath
	}
	return score
}
