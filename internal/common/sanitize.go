// Package common holds input-cleanup helpers shared by the CLI commands.
package common

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/AlexTo8319/ukraine-event-intelligence/models"
)

// markdownLinkRe extracts the target from a markdown link: [text](url).
var markdownLinkRe = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeURL cleans up common copy-paste damage in a record URL:
// surrounding whitespace, markdown link syntax, stray trailing punctuation
// and wrapping brackets.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	if matches := markdownLinkRe.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}
	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

func urlValid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SanitizeEvents cleans the URL fields of every record and splits off the
// ones whose primary URL is unusable even after cleanup. Registration URLs
// that fail cleanup are dropped rather than failing the record; the
// primary URL covers registration in that case.
func SanitizeEvents(events []models.Event) (clean []models.Event, invalid []string) {
	clean = make([]models.Event, 0, len(events))
	for _, e := range events {
		e.URL = SanitizeURL(e.URL)
		if !urlValid(e.URL) {
			invalid = append(invalid, e.URL)
			continue
		}
		if e.RegistrationURL != "" {
			e.RegistrationURL = SanitizeURL(e.RegistrationURL)
			if !urlValid(e.RegistrationURL) {
				e.RegistrationURL = ""
			}
		}
		clean = append(clean, e)
	}
	return clean, invalid
}
