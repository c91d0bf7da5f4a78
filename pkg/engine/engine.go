// Package engine turns the verification signals — URL classification,
// canonical-page resolution, date extraction and duplicate detection —
// into a terminal keep / update / remove outcome per record, with an
// explicit set of field corrections and human-readable reasons.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlexTo8319/ukraine-event-intelligence/models"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/dupes"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/fetcher"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/resolver"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/search"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/translate"
)

// Reason strings for terminal outcomes.
const (
	ReasonBlocked          = "BlockedBySpamOrNewsPolicy"
	ReasonNoCanonicalPage  = "NoCanonicalPageFound"
	ReasonAlreadyOccurred  = "event already occurred"
	ReasonPastYearMismatch = "extracted date is in a past year"
	ReasonUnreachable      = "URL unreachable and event date is not in the future"
	ReasonDuplicate        = "duplicate of retained record"
)

// Resolver is the canonical-page resolution dependency.
type Resolver interface {
	Resolve(ctx context.Context, url, title string, expectedDate time.Time, maxDepth int) (*resolver.Result, error)
}

// Reachability probes a URL without retaining its body.
type Reachability interface {
	CheckReachable(ctx context.Context, url string) error
}

// Options tunes the engine.
type Options struct {
	Workers           int
	MaxDepth          int
	MinDateConfidence float64
	MultiDayDays      int
	MaxSearchQueries  int
	MaxSearchResults  int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.MinDateConfidence <= 0 {
		o.MinDateConfidence = 0.7
	}
	if o.MultiDayDays <= 0 {
		o.MultiDayDays = 7
	}
	if o.MaxSearchQueries <= 0 {
		o.MaxSearchQueries = 3
	}
	if o.MaxSearchResults <= 0 {
		o.MaxSearchResults = 5
	}
	return o
}

// Engine orchestrates one verification pass. Search and translation are
// optional collaborators: a nil Service disables the fallback, a nil
// Translator disables the translation pass.
type Engine struct {
	policy     *policy.Policy
	resolver   Resolver
	reach      Reachability
	search     search.Service
	translator translate.Translator
	dupes      *dupes.Detector
	logger     *slog.Logger
	opts       Options

	// Clock is exposed so tests can pin "today".
	Clock func() time.Time
}

// New wires an engine together.
func New(p *policy.Policy, r Resolver, reach Reachability, svc search.Service,
	tr translate.Translator, dup *dupes.Detector, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if dup != nil {
		dup.URLScore = func(u string) int { return resolver.URLQuality(p, u) }
	}
	return &Engine{
		policy:     p,
		resolver:   r,
		reach:      reach,
		search:     svc,
		translator: tr,
		dupes:      dup,
		logger:     logger,
		opts:       opts.withDefaults(),
		Clock:      time.Now,
	}
}

func today(clock func() time.Time) time.Time {
	now := clock()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Verify runs the per-record state machine. It always terminates with an
// outcome and reasons; failures of collaborators degrade to the most
// conservative decision instead of erroring out.
func (e *Engine) Verify(ctx context.Context, record models.Event) models.Outcome {
	out := models.Outcome{Event: record, Action: models.ActionKeep}
	trace := func(format string, args ...any) {
		out.Trace = append(out.Trace, fmt.Sprintf(format, args...))
	}
	remove := func(reason string) models.Outcome {
		out.Action = models.ActionRemove
		out.Reasons = append(out.Reasons, reason)
		return out
	}

	// Rule 1: hard policy gates. No fetch is attempted for blocked URLs.
	if e.policy.IsBlocked(record.URL) {
		return remove(ReasonBlocked)
	}
	if ok, reason := e.policy.CheckRelevance(record.Title, record.Summary); !ok {
		return remove(reason)
	}

	storedDate, dateErr := record.DateValue()
	now := today(e.Clock)
	futureStored := dateErr == nil && !storedDate.Before(now)

	currentURL := record.URL
	var corrections models.Corrections

	trace("resolving %s", currentURL)
	res, err := e.resolver.Resolve(ctx, currentURL, record.Title, storedDate, e.opts.MaxDepth)

	if err != nil {
		if fail, ok := fetcher.AsFailure(err); ok && fail.Kind == fetcher.FailBlocked {
			return remove(ReasonBlocked)
		}

		// Unreachable URL or exhausted crawl: one external-search fallback.
		excludeSocial := e.policy.IsSocial(currentURL)
		alt, found := e.searchFallback(ctx, record, excludeSocial)
		if found && alt != currentURL {
			trace("search fallback found %s", alt)
			if altRes, altErr := e.resolver.Resolve(ctx, alt, record.Title, storedDate, 1); altErr == nil {
				res, err = altRes, nil
				currentURL = alt
			}
		}

		if err != nil {
			if err == resolver.ErrNoCanonicalPage {
				// Rule 3: listing page with no canonical candidate and no
				// search result.
				return remove(ReasonNoCanonicalPage)
			}
			// Rule 2: network failures must not destroy plausibly-valid
			// future events.
			if futureStored {
				trace("URL unreachable but stored date is in the future, keeping")
				out.Reasons = append(out.Reasons, "URL unreachable; kept because event date is in the future")
				return e.finishTranslated(ctx, out, corrections)
			}
			return remove(ReasonUnreachable)
		}
	}

	// Rule 4: canonical URL differs from the stored one.
	if res.CanonicalURL != "" && res.CanonicalURL != record.URL {
		corrections.URL = res.CanonicalURL
		if record.RegistrationURL == "" || record.RegistrationURL == record.URL {
			corrections.RegistrationURL = res.CanonicalURL
		}
		trace("canonical URL corrected to %s", res.CanonicalURL)
	}

	for _, ind := range res.PastIndicators {
		trace("past indicator on page: %q", ind)
	}
	if res.Meta.PublishedTime != nil {
		trace("page carries publication timestamp %s", res.Meta.PublishedTime.Format(models.DateLayout))
	}

	// Rule 5: date verification against the extracted candidate.
	if res.Date != nil && res.Date.Confidence >= e.opts.MinDateConfidence && dateErr == nil {
		extracted := res.Date.Date
		trace("extracted date %s (confidence %.2f, %s)",
			extracted.Format(models.DateLayout), res.Date.Confidence, res.Date.Source)

		diff := extracted.Sub(storedDate)
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff <= time.Duration(e.opts.MultiDayDays)*24*time.Hour:
			trace("date verified (within multi-day tolerance)")
		case yearGap(extracted, storedDate) > 1:
			return remove(fmt.Sprintf("%s: extracted %s vs stored %s",
				ReasonPastYearMismatch, extracted.Format(models.DateLayout), record.Date))
		case extracted.Before(now) && !storedDate.Before(now):
			return remove(ReasonAlreadyOccurred)
		default:
			corrections.Date = extracted.Format(models.DateLayout)
			trace("date corrected to %s", corrections.Date)
		}
	}

	// Rule 6: corrections accumulated means update, otherwise keep.
	return e.finishTranslated(ctx, out, corrections)
}

// finishTranslated applies the opportunistic translation pass and settles
// keep vs update. Translation failures never change the outcome.
func (e *Engine) finishTranslated(ctx context.Context, out models.Outcome, corrections models.Corrections) models.Outcome {
	if e.translator != nil {
		record := corrections.Apply(out.Event)
		if e.translator.NeedsTranslation(record.Title) {
			if t, err := e.translator.Translate(ctx, record.Title, "event title"); err == nil && t != record.Title {
				corrections.Title = t
			} else if err != nil {
				e.logger.Warn("title translation failed", "url", record.URL, "error", err)
			}
		}
		if e.translator.NeedsTranslation(record.Organizer) {
			if t, err := e.translator.Translate(ctx, record.Organizer, "organization name"); err == nil && t != record.Organizer {
				corrections.Organizer = t
			}
		}
		if e.translator.NeedsTranslation(record.Summary) {
			if t, err := e.translator.Translate(ctx, record.Summary, "event description"); err == nil && t != record.Summary {
				corrections.Summary = t
			}
		}
	}

	out.Corrections = corrections
	if out.Action == models.ActionKeep && !corrections.IsZero() {
		out.Action = models.ActionUpdate
	}
	return out
}

func yearGap(a, b time.Time) int {
	gap := a.Year() - b.Year()
	if gap < 0 {
		gap = -gap
	}
	return gap
}

// searchFallback issues the multi-variant queries and returns the best
// reachable, policy-clean result URL.
func (e *Engine) searchFallback(ctx context.Context, record models.Event, excludeSocial bool) (string, bool) {
	if e.search == nil {
		return "", false
	}

	queries := search.BuildQueries(record.Title, record.Organizer, record.Date)
	if len(queries) > e.opts.MaxSearchQueries {
		queries = queries[:e.opts.MaxSearchQueries]
	}
	titleWords := resolver.TitleWords(record.Title)

	bestURL := ""
	bestScore := 0
	for _, q := range queries {
		results, err := e.search.Search(ctx, q, e.opts.MaxSearchResults)
		if err != nil {
			e.logger.Debug("search query failed", "query", q, "error", err)
			continue
		}
		for _, r := range results {
			if e.policy.IsBlocked(r.URL) {
				continue
			}
			if excludeSocial && e.policy.IsSocial(r.URL) {
				continue
			}

			content := strings.ToLower(r.Content)
			score := 0
			for _, w := range titleWords {
				if strings.Contains(content, w) {
					score++
				}
			}
			lower := strings.ToLower(r.URL)
			if strings.Contains(lower, "/event") {
				score += 3
			}
			if strings.Contains(lower, "regist") {
				score += 2
			}

			if score <= bestScore {
				continue
			}
			if e.reach != nil {
				if err := e.reach.CheckReachable(ctx, r.URL); err != nil {
					continue
				}
			}
			bestScore = score
			bestURL = r.URL
		}
	}
	return bestURL, bestURL != ""
}
