package processor

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ScopeLister returns the owner scopes that currently hold entities.
type ScopeLister interface {
	ListOwnerScopes(ctx context.Context) ([]string, error)
}

// MergeRunner sweeps every owner scope for duplicate groups on an interval.
// Each sweep is also triggerable on demand through the merge routes; the
// runner only adds the periodic schedule.
type MergeRunner struct {
	logger     ectologger.Logger
	scopes     ScopeLister
	engine     *merging.Engine
	emitter    *events.Emitter
	projection *graph.Projection
	interval   time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewMergeRunner creates a new merge runner
func NewMergeRunner(
	logger ectologger.Logger,
	scopes ScopeLister,
	engine *merging.Engine,
	emitter *events.Emitter,
	projection *graph.Projection,
	interval time.Duration,
) *MergeRunner {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &MergeRunner{
		logger:     logger,
		scopes:     scopes,
		engine:     engine,
		emitter:    emitter,
		projection: projection,
		interval:   interval,
	}
}

// Start begins the periodic sweep.
func (r *MergeRunner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"interval": r.interval.String(),
	}).Info("Merge runner started")
	return nil
}

// Stop stops the runner and waits for an in-flight sweep to finish.
func (r *MergeRunner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return nil
}

func (r *MergeRunner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.WithContext(ctx).Info("Merge runner stopping")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one merge pass over every owner scope. A failing scope is logged
// and skipped.
func (r *MergeRunner) Sweep(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "processor.MergeRunner.Sweep")
	defer span.End()

	scopes, err := r.scopes.ListOwnerScopes(ctx)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list owner scopes for merge sweep")
		return
	}

	for _, scope := range scopes {
		if ctx.Err() != nil {
			return
		}

		report, err := r.engine.RunPass(ctx, scope, false)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"owner_scope_id": scope,
			}).Error("Merge pass failed for scope")
			continue
		}

		r.publish(ctx, report)
	}
}

// publish emits events and mirrors finalized merges into the graph.
func (r *MergeRunner) publish(ctx context.Context, report *models.MergeReport) {
	for i := range report.Plans {
		plan := &report.Plans[i]
		r.emitter.EmitMergePlan(ctx, report.OwnerScopeID, plan)

		if plan.State != models.MergeStateFinalized {
			continue
		}
		if err := r.projection.MergeEntities(ctx, report.OwnerScopeID, plan.SurvivorID, plan.MergedIDs); err != nil {
			// Graph is a projection, not the source of truth; the next
			// UpsertRelation repairs the neighborhood.
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"group_key": plan.GroupKey,
			}).Warn("Failed to mirror merge into graph")
		}
	}
}
