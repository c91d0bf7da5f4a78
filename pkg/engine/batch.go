package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/AlexTo8319/ukraine-event-intelligence/models"
)

type job struct {
	Index int
	Event models.Event
}

type verifyResult struct {
	Index   int
	Outcome models.Outcome
}

// VerifyBatch verifies every record concurrently, then resolves cross-record
// duplicates sequentially so the partition is deterministic. The returned
// slice preserves the input order.
func (e *Engine) VerifyBatch(ctx context.Context, records []models.Event) []models.Outcome {
	e.logger.Info("Starting concurrent verification phase",
		"record_count", len(records), "workers", e.opts.Workers)

	var wg sync.WaitGroup
	jobs := make(chan job, len(records))
	results := make(chan verifyResult, len(records))

	for w := 1; w <= e.opts.Workers; w++ {
		wg.Add(1)
		go e.worker(ctx, w, &wg, jobs, results)
	}

	for i, record := range records {
		jobs <- job{Index: i, Event: record}
	}
	close(jobs)

	wg.Wait()
	close(results)
	e.logger.Info("All verification workers finished")

	outcomes := make([]models.Outcome, len(records))
	for result := range results {
		outcomes[result.Index] = result.Outcome
	}

	e.resolveDuplicates(outcomes)
	return outcomes
}

func (e *Engine) worker(ctx context.Context, id int, wg *sync.WaitGroup, jobs <-chan job, results chan<- verifyResult) {
	defer wg.Done()
	for j := range jobs {
		e.logger.Debug("Verifying record", "worker_id", id, "url", j.Event.URL, "title", j.Event.Title)
		outcome := e.Verify(ctx, j.Event)
		e.logger.Info("Record verified",
			"worker_id", id, "url", j.Event.URL, "action", outcome.Action)
		results <- verifyResult{Index: j.Index, Outcome: outcome}
	}
}

// resolveDuplicates marks the worse half of every duplicate pair for removal.
// Only records that survived their own verification participate; the
// representative is the one with the better canonical-page URL, ties going to
// the earlier record.
func (e *Engine) resolveDuplicates(outcomes []models.Outcome) {
	if e.dupes == nil {
		return
	}

	type survivor struct {
		index  int
		record models.Event
	}
	survivors := make([]survivor, 0, len(outcomes))
	for i, out := range outcomes {
		if out.Action == models.ActionRemove {
			continue
		}
		survivors = append(survivors, survivor{index: i, record: out.Corrections.Apply(out.Event)})
	}
	sort.SliceStable(survivors, func(i, j int) bool { return survivors[i].index < survivors[j].index })

	removed := make(map[int]bool)
	for i := 0; i < len(survivors); i++ {
		if removed[survivors[i].index] {
			continue
		}
		for j := i + 1; j < len(survivors); j++ {
			if removed[survivors[j].index] {
				continue
			}
			if !e.dupes.IsDuplicate(survivors[i].record, survivors[j].record) {
				continue
			}

			keep, drop := i, j
			if e.dupes.URLScore != nil &&
				e.dupes.URLScore(survivors[j].record.URL) > e.dupes.URLScore(survivors[i].record.URL) {
				keep, drop = j, i
			}

			out := &outcomes[survivors[drop].index]
			out.Action = models.ActionRemove
			out.Corrections = models.Corrections{}
			out.Reasons = append(out.Reasons, ReasonDuplicate+": "+survivors[keep].record.URL)
			removed[survivors[drop].index] = true
			e.logger.Info("Duplicate resolved",
				"kept", survivors[keep].record.URL, "removed", survivors[drop].record.URL)

			if drop == i {
				break
			}
		}
	}
}
