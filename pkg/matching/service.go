package matching

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// EntityLister is the slice of the store the match pass needs: the candidate
// entities for one owner scope.
type EntityLister interface {
	ListByOwnerScope(ctx context.Context, ownerScopeID string) ([]models.ReferenceEntity, error)
}

// Service runs the match pass: it fetches the candidate set for a scope and
// feeds records through the engine with bounded concurrency.
type Service struct {
	logger      ectologger.Logger
	entities    EntityLister
	engine      *Engine
	workerCount int
}

// NewService creates a new matching service.
func NewService(logger ectologger.Logger, entities EntityLister, engine *Engine, workerCount int) *Service {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Service{
		logger:      logger,
		entities:    entities,
		engine:      engine,
		workerCount: workerCount,
	}
}

// SuggestForRecord computes suggestions for a single content record against
// every entity in its owner scope.
func (s *Service) SuggestForRecord(ctx context.Context, record *models.ContentRecord) ([]models.MatchSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.SuggestForRecord")
	defer span.End()

	candidates, err := s.entities.ListByOwnerScope(ctx, record.OwnerScopeID)
	if err != nil {
		return nil, err
	}

	return s.engine.Suggest(record, candidates), nil
}

// SuggestBatch computes suggestions for a batch of records sharing one owner
// scope. The candidate set is fetched once; records are scored concurrently
// with a bounded worker pool. A failure in one record never affects another;
// failed records are reported in the result. Cancellation is honored between
// records.
func (s *Service) SuggestBatch(ctx context.Context, ownerScopeID string, records []models.ContentRecord) (*models.MatchReport, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.SuggestBatch")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"owner_scope_id": ownerScopeID,
		"record_count":   len(records),
	})

	candidates, err := s.entities.ListByOwnerScope(ctx, ownerScopeID)
	if err != nil {
		log.WithError(err).Error("Failed to list candidate entities")
		return nil, err
	}

	report := &models.MatchReport{
		OwnerScopeID: ownerScopeID,
		Records:      make([]models.ContentMatches, 0, len(records)),
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.workerCount)
	)

	for i := range records {
		if ctx.Err() != nil {
			// cancelled: remaining records are simply left for the next run
			break
		}

		record := records[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			suggestions := s.engine.Suggest(&record, candidates)

			mu.Lock()
			defer mu.Unlock()
			report.Records = append(report.Records, models.ContentMatches{
				ContentID:   record.ID,
				Suggestions: suggestions,
			})
			report.SuggestionCount += len(suggestions)
		}()
	}

	wg.Wait()

	report.RecordCount = len(report.Records)

	log.WithFields(map[string]any{
		"suggestion_count": report.SuggestionCount,
	}).Info("Match pass complete")

	return report, nil
}
