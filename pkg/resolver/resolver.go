// Package resolver classifies event URLs and, for listing or generic
// pages, performs a bounded relevance-guided crawl to find the canonical
// page describing one specific event. The traversal is iterative with an
// explicit depth counter and a visited set; it terminates even through
// redirect cycles.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/dates"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/fetcher"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/links"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
)

// ErrNoCanonicalPage is returned when bounded crawling exhausts its depth
// without an acceptable candidate. The caller falls back to search.
var ErrNoCanonicalPage = errors.New("no canonical event page found")

// Fetcher is the retrieval dependency; satisfied by *fetcher.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
}

// PageMeta carries readability enrichment for the resolved page.
type PageMeta struct {
	SiteName      string
	Byline        string
	Excerpt       string
	PublishedTime *time.Time
}

// Result of a resolution.
type Result struct {
	CanonicalURL   string
	Classification Classification
	Date           *dates.Candidate
	Meta           PageMeta
	PastIndicators []string
	Visited        int
}

// Resolver wires the fetcher, link extractor and date extractor together.
type Resolver struct {
	fetch    Fetcher
	policy   *policy.Policy
	dates    *dates.Extractor
	logger   *slog.Logger
	maxDepth int
	minScore int
	topK     int
}

// New builds a resolver. maxDepth bounds the crawl, minScore is the
// acceptance threshold for candidate links, and topK limits how many
// candidates are visited per page.
func New(f Fetcher, p *policy.Policy, d *dates.Extractor, logger *slog.Logger, maxDepth, minScore, topK int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if minScore <= 0 {
		minScore = 10
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fetch: f, policy: p, dates: d, logger: logger, maxDepth: maxDepth, minScore: minScore, topK: topK}
}

// Resolve classifies the URL and finds the canonical page for the titled
// event, extracting its date along the way. expectedDate, when non-zero,
// lets the traversal prefer candidates whose extracted date agrees with
// the stored record.
func (r *Resolver) Resolve(ctx context.Context, rawURL, title string, expectedDate time.Time, maxDepth int) (*Result, error) {
	if maxDepth <= 0 || maxDepth > r.maxDepth {
		maxDepth = r.maxDepth
	}

	if r.policy.IsBlocked(rawURL) {
		return &Result{CanonicalURL: rawURL, Classification: ClassBlocked},
			&fetcher.Failure{Kind: fetcher.FailBlocked, URL: rawURL, Msg: "blocked by spam/news policy"}
	}

	resp, err := r.fetch.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	result := &Result{Visited: 1}
	class := ClassifyPage(r.policy, resp.FinalURL, resp.Body)
	result.Classification = class
	result.CanonicalURL = resp.FinalURL

	// The fetch pre-checks rawURL, but a redirect can still land on a
	// blocked domain.
	if class == ClassBlocked {
		return result, &fetcher.Failure{Kind: fetcher.FailBlocked, URL: resp.FinalURL, Msg: "blocked by spam/news policy"}
	}

	if class == ClassCanonical {
		r.enrich(result, resp, title)
		return result, nil
	}

	// Listing or generic: bounded traversal toward a canonical page.
	r.logger.Debug("crawling for canonical page", "url", resp.FinalURL, "class", string(class), "max_depth", maxDepth)

	titleWords := TitleWords(title)
	visited := map[string]struct{}{normalize(rawURL): {}, normalize(resp.FinalURL): {}}
	var fallback *Result

	frontier := r.scoredCandidates(resp.Body, resp.FinalURL, titleWords)
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []scoredLink
		tried := 0
		for _, cand := range frontier {
			if tried >= r.topK {
				break
			}
			key := normalize(cand.url)
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			tried++

			candResp, err := r.fetch.Fetch(ctx, cand.url)
			if err != nil {
				continue
			}
			result.Visited++
			finalKey := normalize(candResp.FinalURL)
			if _, seen := visited[finalKey]; seen && finalKey != key {
				continue
			}
			visited[finalKey] = struct{}{}

			candClass := ClassifyPage(r.policy, candResp.FinalURL, candResp.Body)
			if candClass == ClassBlocked {
				continue
			}
			if candClass == ClassCanonical {
				if !r.titleMatches(candResp.Body, titleWords) {
					continue
				}
				found := &Result{
					CanonicalURL:   candResp.FinalURL,
					Classification: ClassCanonical,
					Visited:        result.Visited,
				}
				r.enrich(found, candResp, title)
				if agreeable(found.Date, expectedDate) {
					return found, nil
				}
				if fallback == nil {
					fallback = found
				}
				continue
			}
			if depth < maxDepth {
				next = append(next, r.scoredCandidates(candResp.Body, candResp.FinalURL, titleWords)...)
			}
		}
		sort.SliceStable(next, func(i, j int) bool { return next[i].score > next[j].score })
		frontier = next
	}

	if fallback != nil {
		fallback.Visited = result.Visited
		return fallback, nil
	}
	return nil, ErrNoCanonicalPage
}

type scoredLink struct {
	url   string
	score int
}

func (r *Resolver) scoredCandidates(body, baseURL string, titleWords []string) []scoredLink {
	if !fetcher.IsHTML(body) {
		return nil
	}
	extracted, err := links.Extract(body, baseURL)
	if err != nil {
		return nil
	}
	var out []scoredLink
	for _, l := range extracted {
		if r.policy.IsBlocked(l.URL) {
			continue
		}
		if s := ScoreLink(r.policy, l, titleWords); s >= r.minScore {
			out = append(out, scoredLink{url: l.URL, score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// titleMatches requires a minimal overlap between the event title and the
// head of the candidate page, so a high-scoring but unrelated detail page
// is not accepted.
func (r *Resolver) titleMatches(body string, titleWords []string) bool {
	if len(titleWords) == 0 {
		return true
	}
	head := strings.ToLower(body)
	if len(head) > 5000 {
		head = head[:5000]
	}
	hits := 0
	for _, w := range titleWords {
		if strings.Contains(head, w) {
			hits++
		}
	}
	return hits*10 >= len(titleWords)*3 // at least 30% of the words
}

// enrich runs date extraction and readability metadata over a resolved
// canonical page.
func (r *Resolver) enrich(res *Result, resp *fetcher.Response, title string) {
	text := links.PageText(resp.Body)
	if cand, ok := r.dates.Extract(text, title); ok {
		res.Date = &cand
	}
	res.PastIndicators = dates.PastIndicators(text)

	if u, err := url.Parse(resp.FinalURL); err == nil {
		if article, err := readability.FromReader(strings.NewReader(resp.Body), u); err == nil {
			res.Meta = PageMeta{
				SiteName:      article.SiteName,
				Byline:        article.Byline,
				Excerpt:       article.Excerpt,
				PublishedTime: article.PublishedTime,
			}
		}
	}
}

// agreeable reports whether an extracted date is close enough to the
// stored one to accept a candidate page without further search.
func agreeable(cand *dates.Candidate, expected time.Time) bool {
	if expected.IsZero() {
		return true
	}
	if cand == nil {
		return false
	}
	diff := cand.Date.Sub(expected)
	if diff < 0 {
		diff = -diff
	}
	return diff <= 7*24*time.Hour
}

func normalize(rawURL string) string {
	return strings.TrimRight(strings.ToLower(rawURL), "/")
}
