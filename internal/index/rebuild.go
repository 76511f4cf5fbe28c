package index

import (
	"context"
	"time"
)

// RebuildReport summarizes one full index rebuild.
type RebuildReport struct {
	Indexed  int           `json:"indexed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// OutcomePublisher receives rebuild reports; wired to the message broker in
// production, nil in tests.
type OutcomePublisher interface {
	PublishRebuildOutcome(ctx context.Context, rep RebuildReport) error
}

// Rebuild re-derives every document and every secondary index from the
// repository, overwriting store state. A corrupted or partially invalid
// source record never aborts the rest: failures are logged per record and
// the rebuild continues.
func (ix *Indexer) Rebuild(ctx context.Context, outcomes OutcomePublisher) (RebuildReport, error) {
	start := time.Now()
	ids, err := ix.source.PropertyIDs(ctx)
	if err != nil {
		return RebuildReport{}, err
	}

	var rep RebuildReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			rep.Duration = time.Since(start)
			return rep, err
		}
		if err := ix.indexProperty(ctx, id, true); err != nil {
			rep.Failed++
			ix.stats.RecordIndexFailure()
			ix.log.Warn("rebuild: skipping property", "property_id", id, "error", err)
			continue
		}
		rep.Indexed++
	}
	rep.Duration = time.Since(start)
	ix.log.Info("index rebuild finished", "indexed", rep.Indexed, "failed", rep.Failed, "duration", rep.Duration)

	if outcomes != nil {
		if err := outcomes.PublishRebuildOutcome(ctx, rep); err != nil {
			ix.log.Warn("rebuild outcome publish failed", "error", err)
		}
	}
	return rep, nil
}
