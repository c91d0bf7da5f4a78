package engine

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/AlexTo8319/ukraine-event-intelligence/models"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/dates"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/dupes"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/fetcher"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/resolver"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/search"
)

type stubResolver struct {
	results map[string]*resolver.Result
	errs    map[string]error
	calls   []string
}

func (s *stubResolver) Resolve(_ context.Context, rawURL, _ string, _ time.Time, _ int) (*resolver.Result, error) {
	s.calls = append(s.calls, rawURL)
	if err, ok := s.errs[rawURL]; ok {
		return nil, err
	}
	if res, ok := s.results[rawURL]; ok {
		return res, nil
	}
	return nil, resolver.ErrNoCanonicalPage
}

type stubReach struct{ err error }

func (s stubReach) CheckReachable(context.Context, string) error { return s.err }

type stubSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearch) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

type stubTranslator struct{}

func (stubTranslator) NeedsTranslation(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

func (stubTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return "EN " + text, nil
}

func canonical(url, date string, confidence float64) *resolver.Result {
	d, _ := time.Parse(models.DateLayout, date)
	return &resolver.Result{
		CanonicalURL:   url,
		Classification: resolver.ClassCanonical,
		Date:           &dates.Candidate{Date: d, Confidence: confidence, Source: "marker:test"},
		Visited:        1,
	}
}

func testRecord() models.Event {
	return models.Event{
		ID:       1,
		Title:    "Urban Recovery Forum",
		Date:     "2025-12-04",
		URL:      "https://site.ua/eventdetail/4991",
		Category: models.CategoryRecovery,
	}
}

func newTestEngine(t *testing.T, r Resolver, svc search.Service) *Engine {
	t.Helper()
	pol := policy.Default()
	dup := dupes.New(pol, 0.60, 1)
	e := New(pol, r, stubReach{}, svc, nil, dup, nil, Options{Workers: 2})
	e.Clock = func() time.Time {
		return time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func TestVerify_DateMatchesKeeps(t *testing.T) {
	record := testRecord()
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(record.URL, "2025-12-04", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionKeep {
		t.Fatalf("Verify() action = %q (%v), want keep", out.Action, out.Reasons)
	}
	if !out.Corrections.IsZero() {
		t.Errorf("Verify() corrections = %+v, want none", out.Corrections)
	}
}

func TestVerify_CanonicalURLCorrection(t *testing.T) {
	record := testRecord()
	better := "https://site.ua/eventdetail/5002"
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(better, "2025-12-04", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionUpdate {
		t.Fatalf("Verify() action = %q, want update", out.Action)
	}
	if out.Corrections.URL != better {
		t.Errorf("Verify() URL correction = %q, want %q", out.Corrections.URL, better)
	}
	// With no separate registration link, the correction mirrors into it.
	if out.Corrections.RegistrationURL != better {
		t.Errorf("Verify() registration correction = %q, want %q", out.Corrections.RegistrationURL, better)
	}
}

func TestVerify_RegistrationURLPreserved(t *testing.T) {
	record := testRecord()
	record.RegistrationURL = "https://forms.example/register"
	better := "https://site.ua/eventdetail/5002"
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(better, "2025-12-04", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Corrections.RegistrationURL != "" {
		t.Errorf("Verify() overwrote a distinct registration URL with %q", out.Corrections.RegistrationURL)
	}
}

func TestVerify_DateCorrection(t *testing.T) {
	record := testRecord()
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(record.URL, "2025-12-20", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionUpdate {
		t.Fatalf("Verify() action = %q (%v), want update", out.Action, out.Reasons)
	}
	if out.Corrections.Date != "2025-12-20" {
		t.Errorf("Verify() date correction = %q, want 2025-12-20", out.Corrections.Date)
	}
}

func TestVerify_MultiDayToleranceKeeps(t *testing.T) {
	record := testRecord()
	// A five-day gap is within the multi-day event tolerance.
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(record.URL, "2025-12-08", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionKeep {
		t.Fatalf("Verify() action = %q, want keep", out.Action)
	}
	if out.Corrections.Date != "" {
		t.Errorf("Verify() date correction = %q, want none", out.Corrections.Date)
	}
}

func TestVerify_PastYearMismatchRemoves(t *testing.T) {
	record := testRecord()
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(record.URL, "2023-11-01", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionRemove {
		t.Fatalf("Verify() action = %q, want remove", out.Action)
	}
	if len(out.Reasons) == 0 || !strings.Contains(out.Reasons[0], ReasonPastYearMismatch) {
		t.Errorf("Verify() reasons = %v, want past-year mismatch", out.Reasons)
	}
}

func TestVerify_AlreadyOccurredRemoves(t *testing.T) {
	record := testRecord() // stored date is in the future
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(record.URL, "2025-06-01", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionRemove {
		t.Fatalf("Verify() action = %q, want remove", out.Action)
	}
	if len(out.Reasons) == 0 || out.Reasons[0] != ReasonAlreadyOccurred {
		t.Errorf("Verify() reasons = %v, want %q", out.Reasons, ReasonAlreadyOccurred)
	}
}

func TestVerify_LowConfidenceDateIgnored(t *testing.T) {
	record := testRecord()
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(record.URL, "2023-11-01", 0.40),
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionKeep {
		t.Fatalf("Verify() action = %q, want keep when date confidence is low", out.Action)
	}
}

func TestVerify_BlockedURLRemovesWithoutResolving(t *testing.T) {
	record := testRecord()
	record.URL = "https://waset.org/conference/2025"
	r := &stubResolver{}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionRemove {
		t.Fatalf("Verify() action = %q, want remove", out.Action)
	}
	if len(out.Reasons) == 0 || out.Reasons[0] != ReasonBlocked {
		t.Errorf("Verify() reasons = %v, want %q", out.Reasons, ReasonBlocked)
	}
	if len(r.calls) != 0 {
		t.Errorf("Verify() resolved %v for a blocked URL, want no resolution", r.calls)
	}
}

func TestVerify_IrrelevantTopicRemoves(t *testing.T) {
	record := testRecord()
	record.Title = "Machine Learning Summit Kyiv"
	eng := newTestEngine(t, &stubResolver{}, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionRemove {
		t.Fatalf("Verify() action = %q, want remove", out.Action)
	}
}

func TestVerify_UnreachableFutureDateKeeps(t *testing.T) {
	record := testRecord() // 2025-12-04 is in the future for the pinned clock
	r := &stubResolver{errs: map[string]error{
		record.URL: &fetcher.Failure{Kind: fetcher.FailConnection, URL: record.URL, Msg: "refused"},
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionKeep {
		t.Fatalf("Verify() action = %q (%v), want keep", out.Action, out.Reasons)
	}
	if len(out.Reasons) == 0 {
		t.Error("Verify() kept an unreachable record without recording why")
	}
}

func TestVerify_UnreachablePastDateRemoves(t *testing.T) {
	record := testRecord()
	record.Date = "2025-03-01"
	r := &stubResolver{errs: map[string]error{
		record.URL: &fetcher.Failure{Kind: fetcher.FailTimeout, URL: record.URL, Msg: "timeout"},
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionRemove {
		t.Fatalf("Verify() action = %q, want remove", out.Action)
	}
	if len(out.Reasons) == 0 || out.Reasons[0] != ReasonUnreachable {
		t.Errorf("Verify() reasons = %v, want %q", out.Reasons, ReasonUnreachable)
	}
}

func TestVerify_NoCanonicalPageRemoves(t *testing.T) {
	record := testRecord()
	r := &stubResolver{errs: map[string]error{
		record.URL: resolver.ErrNoCanonicalPage,
	}}
	eng := newTestEngine(t, r, nil)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionRemove {
		t.Fatalf("Verify() action = %q, want remove", out.Action)
	}
	if len(out.Reasons) == 0 || out.Reasons[0] != ReasonNoCanonicalPage {
		t.Errorf("Verify() reasons = %v, want %q", out.Reasons, ReasonNoCanonicalPage)
	}
}

func TestVerify_SearchFallbackRecoversURL(t *testing.T) {
	record := testRecord()
	found := "https://found.ua/eventdetail/9"
	r := &stubResolver{
		errs: map[string]error{record.URL: resolver.ErrNoCanonicalPage},
		results: map[string]*resolver.Result{
			found: canonical(found, "2025-12-04", 0.95),
		},
	}
	svc := &stubSearch{results: []search.Result{
		{URL: "https://waset.org/spam", Title: "spam", Content: "urban recovery forum"},
		{URL: found, Title: "Urban Recovery Forum", Content: "Urban Recovery Forum registration"},
	}}
	eng := newTestEngine(t, r, svc)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionUpdate {
		t.Fatalf("Verify() action = %q (%v), want update", out.Action, out.Reasons)
	}
	if out.Corrections.URL != found {
		t.Errorf("Verify() URL correction = %q, want %q", out.Corrections.URL, found)
	}
	if len(svc.queries) == 0 {
		t.Error("Verify() never queried the search fallback")
	}
}

func TestVerify_SearchFallbackExhaustedRemoves(t *testing.T) {
	record := testRecord()
	record.Date = "2025-03-01" // past, so the unreachable branch can't keep it
	r := &stubResolver{errs: map[string]error{
		record.URL: resolver.ErrNoCanonicalPage,
	}}
	svc := &stubSearch{results: []search.Result{
		{URL: "https://waset.org/spam", Title: "spam", Content: "urban recovery forum"},
	}}
	eng := newTestEngine(t, r, svc)

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionRemove {
		t.Fatalf("Verify() action = %q, want remove", out.Action)
	}
	if out.Reasons[0] != ReasonNoCanonicalPage {
		t.Errorf("Verify() reasons = %v, want %q", out.Reasons, ReasonNoCanonicalPage)
	}
}

func TestVerify_TranslationPass(t *testing.T) {
	record := testRecord()
	record.Title = "Форум відновлення громад"
	record.Summary = "Щорічний форум."
	r := &stubResolver{results: map[string]*resolver.Result{
		record.URL: canonical(record.URL, "2025-12-04", 0.95),
	}}

	pol := policy.Default()
	eng := New(pol, r, stubReach{}, nil, stubTranslator{}, dupes.New(pol, 0.60, 1), nil, Options{})
	eng.Clock = func() time.Time {
		return time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)
	}

	out := eng.Verify(context.Background(), record)
	if out.Action != models.ActionUpdate {
		t.Fatalf("Verify() action = %q, want update from translation", out.Action)
	}
	if out.Corrections.Title != "EN Форум відновлення громад" {
		t.Errorf("Verify() title correction = %q", out.Corrections.Title)
	}
	if out.Corrections.Summary != "EN Щорічний форум." {
		t.Errorf("Verify() summary correction = %q", out.Corrections.Summary)
	}
}

func TestVerifyBatch_ResolvesDuplicates(t *testing.T) {
	a := testRecord()
	a.URL = "https://a.ua/eventdetail/4991"
	b := testRecord()
	b.ID = 2
	b.URL = "https://b.ua/news-page"
	other := models.Event{
		ID:    3,
		Title: "Біржа деревини онлайн",
		Date:  "2026-02-10",
		URL:   "https://d.ua/event/7",
	}

	r := &stubResolver{results: map[string]*resolver.Result{
		a.URL:     canonical(a.URL, "2025-12-04", 0.95),
		b.URL:     canonical(b.URL, "2025-12-04", 0.95),
		other.URL: canonical(other.URL, "2026-02-10", 0.95),
	}}
	eng := newTestEngine(t, r, nil)

	outcomes := eng.VerifyBatch(context.Background(), []models.Event{a, b, other})
	if len(outcomes) != 3 {
		t.Fatalf("VerifyBatch() = %d outcomes, want 3", len(outcomes))
	}

	// Output order mirrors input order.
	if outcomes[0].Event.ID != 1 || outcomes[1].Event.ID != 2 || outcomes[2].Event.ID != 3 {
		t.Fatalf("VerifyBatch() scrambled output order: %v, %v, %v",
			outcomes[0].Event.ID, outcomes[1].Event.ID, outcomes[2].Event.ID)
	}

	if outcomes[0].Action != models.ActionKeep {
		t.Errorf("VerifyBatch() kept record = %q, want keep", outcomes[0].Action)
	}
	if outcomes[1].Action != models.ActionRemove {
		t.Errorf("VerifyBatch() duplicate with worse URL = %q, want remove", outcomes[1].Action)
	}
	if len(outcomes[1].Reasons) == 0 || !strings.Contains(outcomes[1].Reasons[0], ReasonDuplicate) {
		t.Errorf("VerifyBatch() duplicate reasons = %v", outcomes[1].Reasons)
	}
	if outcomes[2].Action != models.ActionKeep {
		t.Errorf("VerifyBatch() unrelated record = %q, want keep", outcomes[2].Action)
	}
}
