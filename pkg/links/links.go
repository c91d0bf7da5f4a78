// Package links extracts normalized absolute hyperlinks from page bodies.
// Extraction is a pure function of (body, base URL): same input, same
// ordered output.
package links

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is one anchor found on a page. Context is the text of the anchor's
// enclosing node, used by the resolver to score title-word proximity.
type Link struct {
	URL     string
	Text    string
	Context string
}

// skippedSchemes are anchor targets that can never lead to an event page.
var skippedSchemes = []string{"mailto:", "tel:", "javascript:", "data:"}

// Extract parses the body and returns every http(s) anchor resolved
// against baseURL, in document order, each URL at most once.
func Extract(body, baseURL string) ([]Link, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []Link

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		for _, scheme := range skippedSchemes {
			if strings.HasPrefix(lower, scheme) {
				return
			}
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		resolved := abs.String()
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}

		out = append(out, Link{
			URL:     resolved,
			Text:    squish(sel.Text()),
			Context: neighborhood(sel),
		})
	})

	return out, nil
}

// neighborhood returns the text of the anchor's parent node, which usually
// covers the list item or card the link sits in.
func neighborhood(sel *goquery.Selection) string {
	parent := sel.Parent()
	if parent.Length() == 0 {
		return ""
	}
	text := squish(parent.Text())
	const maxContext = 400
	if len(text) > maxContext {
		text = text[:maxContext]
	}
	return text
}

func squish(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PageText strips a body down to its visible text for date extraction.
// Script and style content is dropped.
func PageText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, noscript").Remove()
	return squish(doc.Text())
}
