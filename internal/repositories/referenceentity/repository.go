// Package referenceentity persists the reference entity catalog.
package referenceentity

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "reference_entities"

var columns = []string{
	"id", "owner_scope_id", "name", "category", "normalized_name_key",
	"address", "tags", "brand", "description", "external_links",
	"phone", "hours", "created_at", "updated_at",
}

// Repository handles reference entity persistence
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

// Create inserts a new reference entity. The normalized name key is always
// recomputed from the name so clustering never sees a stale key.
func (r *Repository) Create(ctx context.Context, entity *models.ReferenceEntity) (*models.ReferenceEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.Create")
	defer span.End()

	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	entity.NormalizedNameKey = normalize.NameKey(entity.Name)
	entity.CreatedAt = time.Now().UTC()
	entity.UpdatedAt = entity.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		entity.ID, entity.OwnerScopeID, entity.Name, entity.Category, entity.NormalizedNameKey,
		entity.Address, entity.Tags, entity.Brand, entity.Description, entity.ExternalLinks,
		entity.Phone, entity.Hours, entity.CreatedAt, entity.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entity.ID}).Error("Failed to create reference entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create reference entity")
	}

	return entity, nil
}

// Get returns one entity by id within an owner scope.
func (r *Repository) Get(ctx context.Context, ownerScopeID, id string) (*models.ReferenceEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("owner_scope_id", ownerScopeID),
		sb.Equal("id", id),
	)

	query, args := sb.Build()
	var entity models.ReferenceEntity
	if err := r.db.GetContext(ctx, &entity, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "reference entity %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": id}).Error("Failed to get reference entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reference entity")
	}

	return &entity, nil
}

// ListByOwnerScope returns every entity in an owner scope, ordered by name
// then id. This is the candidate set for matching and merging passes.
func (r *Repository) ListByOwnerScope(ctx context.Context, ownerScopeID string) ([]models.ReferenceEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.ListByOwnerScope")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("owner_scope_id", ownerScopeID))
	sb.OrderBy("name", "id")

	query, args := sb.Build()
	var entities []models.ReferenceEntity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_scope_id": ownerScopeID}).Error("Failed to list reference entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reference entities")
	}

	return entities, nil
}

// ListPage returns one page of entities plus the total count for the scope.
func (r *Repository) ListPage(ctx context.Context, ownerScopeID string, page, pageSize int) (*models.ReferenceEntityListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.ListPage")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	cb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cb.Select("COUNT(*)")
	cb.From(table)
	cb.Where(cb.Equal("owner_scope_id", ownerScopeID))

	query, args := cb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count reference entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count reference entities")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("owner_scope_id", ownerScopeID))
	sb.OrderBy("name", "id")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var entities []models.ReferenceEntity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list reference entities page")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reference entities")
	}

	return &models.ReferenceEntityListResponse{
		Items:      entities,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// ListOwnerScopes returns every owner scope that has at least one entity.
// Used by the periodic merge runner to sweep all scopes.
func (r *Repository) ListOwnerScopes(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.ListOwnerScopes")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("DISTINCT owner_scope_id")
	sb.From(table)
	sb.OrderBy("owner_scope_id")

	query, args := sb.Build()
	var scopes []string
	if err := r.db.SelectContext(ctx, &scopes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list owner scopes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list owner scopes")
	}

	return scopes, nil
}

// Update rewrites the mutable fields of an entity and recomputes its
// normalized name key.
func (r *Repository) Update(ctx context.Context, entity *models.ReferenceEntity) (*models.ReferenceEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.Update")
	defer span.End()

	entity.NormalizedNameKey = normalize.NameKey(entity.Name)
	entity.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("name", entity.Name),
		ub.Assign("category", entity.Category),
		ub.Assign("normalized_name_key", entity.NormalizedNameKey),
		ub.Assign("address", entity.Address),
		ub.Assign("tags", entity.Tags),
		ub.Assign("brand", entity.Brand),
		ub.Assign("description", entity.Description),
		ub.Assign("external_links", entity.ExternalLinks),
		ub.Assign("phone", entity.Phone),
		ub.Assign("hours", entity.Hours),
		ub.Assign("updated_at", entity.UpdatedAt),
	)
	ub.Where(
		ub.Equal("owner_scope_id", entity.OwnerScopeID),
		ub.Equal("id", entity.ID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entity.ID}).Error("Failed to update reference entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update reference entity")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "reference entity %s not found", entity.ID)
	}

	return entity, nil
}

// DeleteWithRelations removes an entity and every relation pointing at it in
// one transaction, so a browse never sees relations to a missing entity.
func (r *Repository) DeleteWithRelations(ctx context.Context, ownerScopeID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.DeleteWithRelations")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete reference entity")
	}

	rb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	rb.DeleteFrom("relations")
	rb.Where(
		rb.Equal("owner_scope_id", ownerScopeID),
		rb.Equal("entity_id", id),
	)
	query, args := rb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		_ = tx.Rollback(ctx)
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": id}).Error("Failed to delete entity relations")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete reference entity")
	}

	eb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	eb.DeleteFrom(table)
	eb.Where(
		eb.Equal("owner_scope_id", ownerScopeID),
		eb.Equal("id", id),
	)
	query, args = eb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		_ = tx.Rollback(ctx)
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": id}).Error("Failed to delete reference entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete reference entity")
	}

	if err := tx.Commit(txCtx); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": id}).Error("Failed to commit entity delete")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete reference entity")
	}

	return nil
}

// Delete removes an entity from its owner scope.
func (r *Repository) Delete(ctx context.Context, ownerScopeID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "referenceentity.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(
		db.Equal("owner_scope_id", ownerScopeID),
		db.Equal("id", id),
	)

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": id}).Error("Failed to delete reference entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete reference entity")
	}

	return nil
}
