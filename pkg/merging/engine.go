package merging

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// EntityStore is the slice of the store the merge pass needs for entities.
type EntityStore interface {
	ListByOwnerScope(ctx context.Context, ownerScopeID string) ([]models.ReferenceEntity, error)
	Delete(ctx context.Context, ownerScopeID, entityID string) error
}

// RelationStore is the slice of the store the merge pass needs for relations.
// Create must be idempotent (no-op when the pair already exists) so an
// aborted migration is always safe to retry from scratch.
type RelationStore interface {
	ListByEntity(ctx context.Context, ownerScopeID, entityID string) ([]models.Relation, error)
	Exists(ctx context.Context, ownerScopeID, contentID, entityID string) (bool, error)
	Create(ctx context.Context, ownerScopeID, contentID, entityID string) error
	DeleteByEntity(ctx context.Context, ownerScopeID, entityID string) (int64, error)
}

// Config contains configuration for the merge engine.
type Config struct {
	WorkerCount int // Bounded concurrency for group processing (default: 4)
}

// DefaultConfig returns default engine configuration.
func DefaultConfig() Config {
	return Config{WorkerCount: 4}
}

// Engine merges duplicate reference entities. Each duplicate group moves
// through Planned -> Migrating -> Finalized, or Aborted on the first store
// failure, in which case nothing of that group has been deleted and the group
// is retried from scratch on the next pass.
type Engine struct {
	logger    ectologger.Logger
	entities  EntityStore
	relations RelationStore
	config    Config
}

// NewEngine creates a new merge engine.
func NewEngine(logger ectologger.Logger, entities EntityStore, relations RelationStore, config Config) *Engine {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Engine{
		logger:    logger,
		entities:  entities,
		relations: relations,
		config:    config,
	}
}

// RunPass clusters every entity in the scope and merges each duplicate group.
// Groups are disjoint by construction, so they are processed concurrently
// with a bounded worker pool. A failed group is reported and skipped; it
// never affects any other group. With dryRun set, plans are computed but
// nothing is written.
func (e *Engine) RunPass(ctx context.Context, ownerScopeID string, dryRun bool) (*models.MergeReport, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.RunPass")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"owner_scope_id": ownerScopeID,
		"dry_run":        dryRun,
	})

	entities, err := e.entities.ListByOwnerScope(ctx, ownerScopeID)
	if err != nil {
		log.WithError(err).Error("Failed to list entities for merge pass")
		return nil, err
	}

	groups := BuildGroups(entities)

	report := &models.MergeReport{
		OwnerScopeID: ownerScopeID,
		DryRun:       dryRun,
		GroupCount:   len(groups),
		Plans:        make([]models.MergePlan, 0, len(groups)),
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.config.WorkerCount)
	)

	for i := range groups {
		if ctx.Err() != nil {
			// cancelled: unprocessed groups are left for the next invocation
			break
		}

		group := groups[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			plan, err := e.MergeGroup(ctx, &group, dryRun)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, models.UnitFailure{
					UnitID: group.Key,
					Error:  err.Error(),
				})
			}
			if plan != nil {
				report.Plans = append(report.Plans, *plan)
			}
		}()
	}

	wg.Wait()

	sortPlans(report.Plans)

	log.WithFields(map[string]any{
		"group_count": len(groups),
		"plan_count":  len(report.Plans),
		"fail_count":  len(report.Failed),
	}).Info("Merge pass complete")

	return report, nil
}

// MergeGroup runs the state machine for one duplicate group. On success the
// returned plan is Finalized; on a store failure the plan is Aborted, an
// error is returned, and no member or relation of the group has been deleted.
func (e *Engine) MergeGroup(ctx context.Context, group *models.DuplicateGroup, dryRun bool) (*models.MergePlan, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeGroup")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"group_key":      group.Key,
		"owner_scope_id": group.OwnerScopeID,
		"member_count":   len(group.Members),
	})

	if len(group.Members) < 2 {
		return nil, nil
	}

	// Planned: load relations once, score members, pick the survivor.
	relationsByMember := make(map[string][]models.Relation, len(group.Members))
	for i := range group.Members {
		member := &group.Members[i]
		rels, err := e.relations.ListByEntity(ctx, group.OwnerScopeID, member.ID)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"entity_id": member.ID}).Error("Failed to list relations; aborting group")
			return abortedPlan(group), fmt.Errorf("list relations for %s: %w", member.ID, err)
		}
		relationsByMember[member.ID] = rels
	}

	survivor := e.selectSurvivor(ctx, group, relationsByMember)
	plan := &models.MergePlan{
		GroupKey:   group.Key,
		SurvivorID: survivor.ID,
		MergedIDs:  make([]string, 0, len(group.Members)-1),
		State:      models.MergeStatePlanned,
	}
	for i := range group.Members {
		if group.Members[i].ID != survivor.ID {
			plan.MergedIDs = append(plan.MergedIDs, group.Members[i].ID)
		}
	}

	if dryRun {
		plan.MigratedRelationCount = projectedMigrations(survivor.ID, plan.MergedIDs, relationsByMember)
		return plan, nil
	}

	// Migrating: copy loser relations onto the survivor. Every step is an
	// exists-check-then-create, so a partial run re-applies cleanly.
	plan.State = models.MergeStateMigrating
	for _, loserID := range plan.MergedIDs {
		for _, rel := range relationsByMember[loserID] {
			exists, err := e.relations.Exists(ctx, group.OwnerScopeID, rel.ContentID, survivor.ID)
			if err != nil {
				plan.State = models.MergeStateAborted
				return plan, fmt.Errorf("relation exists check for content %s: %w", rel.ContentID, err)
			}
			if exists {
				continue
			}
			if err := e.relations.Create(ctx, group.OwnerScopeID, rel.ContentID, survivor.ID); err != nil {
				plan.State = models.MergeStateAborted
				return plan, fmt.Errorf("migrate relation for content %s: %w", rel.ContentID, err)
			}
			plan.MigratedRelationCount++
		}
	}

	// Finalized: only now is it safe to drop the losers.
	for _, loserID := range plan.MergedIDs {
		if _, err := e.relations.DeleteByEntity(ctx, group.OwnerScopeID, loserID); err != nil {
			plan.State = models.MergeStateAborted
			return plan, fmt.Errorf("delete relations for %s: %w", loserID, err)
		}
		if err := e.entities.Delete(ctx, group.OwnerScopeID, loserID); err != nil {
			plan.State = models.MergeStateAborted
			return plan, fmt.Errorf("delete entity %s: %w", loserID, err)
		}
	}
	plan.State = models.MergeStateFinalized

	log.WithFields(map[string]any{
		"survivor_id":    survivor.ID,
		"merged_count":   len(plan.MergedIDs),
		"migrated_count": plan.MigratedRelationCount,
	}).Info("Merged duplicate group")

	return plan, nil
}

// selectSurvivor picks the member with the highest completeness score.
// Ties break by earliest created_at, then smallest id. A tie that survives
// both breaks should not occur; it is resolved by id and logged as a warning.
func (e *Engine) selectSurvivor(ctx context.Context, group *models.DuplicateGroup, relationsByMember map[string][]models.Relation) *models.ReferenceEntity {
	survivor := &group.Members[0]
	survivorScore := CompletenessScore(survivor, len(relationsByMember[survivor.ID]))

	for i := 1; i < len(group.Members); i++ {
		candidate := &group.Members[i]
		candidateScore := CompletenessScore(candidate, len(relationsByMember[candidate.ID]))

		switch {
		case candidateScore > survivorScore:
			survivor, survivorScore = candidate, candidateScore
		case candidateScore == survivorScore:
			if candidate.CreatedAt.Before(survivor.CreatedAt) {
				survivor, survivorScore = candidate, candidateScore
			} else if candidate.CreatedAt.Equal(survivor.CreatedAt) {
				e.logger.WithContext(ctx).WithFields(map[string]any{
					"group_key":   group.Key,
					"entity_a_id": survivor.ID,
					"entity_b_id": candidate.ID,
					"score":       candidateScore,
				}).Warn("Ambiguous merge tie; selecting smaller id")
				if candidate.ID < survivor.ID {
					survivor = candidate
				}
			}
		}
	}

	return survivor
}

// projectedMigrations counts the distinct loser content ids the survivor does
// not already have a relation to. Used for dry-run plans.
func projectedMigrations(survivorID string, mergedIDs []string, relationsByMember map[string][]models.Relation) int {
	has := make(map[string]struct{}, len(relationsByMember[survivorID]))
	for _, rel := range relationsByMember[survivorID] {
		has[rel.ContentID] = struct{}{}
	}

	count := 0
	for _, loserID := range mergedIDs {
		for _, rel := range relationsByMember[loserID] {
			if _, ok := has[rel.ContentID]; ok {
				continue
			}
			has[rel.ContentID] = struct{}{}
			count++
		}
	}
	return count
}

func abortedPlan(group *models.DuplicateGroup) *models.MergePlan {
	return &models.MergePlan{
		GroupKey: group.Key,
		State:    models.MergeStateAborted,
	}
}

func sortPlans(plans []models.MergePlan) {
	for i := 1; i < len(plans); i++ {
		for j := i; j > 0 && plans[j].GroupKey < plans[j-1].GroupKey; j-- {
			plans[j], plans[j-1] = plans[j-1], plans[j]
		}
	}
}
