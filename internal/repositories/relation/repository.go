// Package relation persists content-to-entity relations.
package relation

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "relations"

var columns = []string{"id", "owner_scope_id", "content_id", "entity_id", "created_at"}

// Repository handles relation persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a relation. The (content_id, entity_id) pair is unique;
// inserting an existing pair is a no-op, which makes merge migration retries
// safe.
func (r *Repository) Create(ctx context.Context, ownerScopeID, contentID, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(uuid.New().String(), ownerScopeID, contentID, entityID, time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (content_id, entity_id) DO NOTHING"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"content_id": contentID,
			"entity_id":  entityID,
		}).Error("Failed to create relation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create relation")
	}

	return nil
}

// Exists reports whether a relation already links the content and entity.
func (r *Repository) Exists(ctx context.Context, ownerScopeID, contentID, entityID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.Exists")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(
		sb.Equal("owner_scope_id", ownerScopeID),
		sb.Equal("content_id", contentID),
		sb.Equal("entity_id", entityID),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check relation existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check relation")
	}

	return count > 0, nil
}

// ListByEntity returns every relation pointing at one entity.
func (r *Repository) ListByEntity(ctx context.Context, ownerScopeID, entityID string) ([]models.Relation, error) {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.ListByEntity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("owner_scope_id", ownerScopeID),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("content_id")

	query, args := sb.Build()
	var relations []models.Relation
	if err := r.db.SelectContext(ctx, &relations, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to list relations by entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relations")
	}

	return relations, nil
}

// ListByContent returns every relation a content record participates in.
func (r *Repository) ListByContent(ctx context.Context, ownerScopeID, contentID string) ([]models.Relation, error) {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.ListByContent")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("owner_scope_id", ownerScopeID),
		sb.Equal("content_id", contentID),
	)
	sb.OrderBy("entity_id")

	query, args := sb.Build()
	var relations []models.Relation
	if err := r.db.SelectContext(ctx, &relations, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"content_id": contentID}).Error("Failed to list relations by content")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relations")
	}

	return relations, nil
}

// CountByEntities returns relation counts grouped by entity for one owner
// scope. One query instead of N during merge planning and entity browsing.
func (r *Repository) CountByEntities(ctx context.Context, ownerScopeID string) ([]models.EntityRelationCount, error) {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.CountByEntities")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("entity_id", "COUNT(*) AS count")
	sb.From(table)
	sb.Where(sb.Equal("owner_scope_id", ownerScopeID))
	sb.GroupBy("entity_id")
	sb.OrderBy("entity_id")

	query, args := sb.Build()
	var counts []models.EntityRelationCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count relations by entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count relations")
	}

	return counts, nil
}

// Delete removes one relation.
func (r *Repository) Delete(ctx context.Context, ownerScopeID, contentID, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(
		db.Equal("owner_scope_id", ownerScopeID),
		db.Equal("content_id", contentID),
		db.Equal("entity_id", entityID),
	)

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete relation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relation")
	}

	return nil
}

// DeleteByEntity removes every relation pointing at one entity and returns
// how many were removed. Called when finalizing a merge.
func (r *Repository) DeleteByEntity(ctx context.Context, ownerScopeID, entityID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.DeleteByEntity")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(
		db.Equal("owner_scope_id", ownerScopeID),
		db.Equal("entity_id", entityID),
	)

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to delete relations by entity")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relations")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to read deleted relation count")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relations")
	}
	return rows, nil
}
