package resolver

import (
	"regexp"

	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
)

// Classification of a URL/page pair.
type Classification string

const (
	ClassCanonical Classification = "canonical"
	ClassListing   Classification = "listing"
	ClassGeneric   Classification = "generic"
	ClassBlocked   Classification = "blocked"
)

// eventLinkRe counts event-looking hyperlinks inside a page body; many of
// them means the page enumerates events rather than describing one.
var eventLinkRe = regexp.MustCompile(`(?i)href=["'][^"']*(?:event|conference|forum)[^"']*["']`)

const listingLinkThreshold = 5

// ClassifyURL computes the URL-only classification. Blocklist matches win
// outright; an explicit event marker overrides any generic-path match.
func ClassifyURL(p *policy.Policy, rawURL string) Classification {
	if p.IsBlocked(rawURL) {
		return ClassBlocked
	}
	if p.HasEventMarker(rawURL) {
		return ClassCanonical
	}
	if p.IsGenericPath(rawURL) {
		return ClassGeneric
	}
	return ClassCanonical
}

// ClassifyPage refines a URL classification with the fetched body: a page
// enumerating many event links is a listing even when its URL looks
// specific.
func ClassifyPage(p *policy.Policy, rawURL, body string) Classification {
	class := ClassifyURL(p, rawURL)
	if class == ClassBlocked {
		return class
	}
	if class == ClassCanonical && p.HasEventMarker(rawURL) {
		// An event-ID-bearing path is a hard signal, not just a score bonus.
		return ClassCanonical
	}
	if len(eventLinkRe.FindAllStringIndex(body, listingLinkThreshold+1)) > listingLinkThreshold {
		return ClassListing
	}
	return class
}
