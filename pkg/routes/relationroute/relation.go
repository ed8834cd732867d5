package relationroute

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/relation"
	"github.com/Ramsey-B/fern/pkg/graph"
)

var validate = validator.New()

// Register registers relation routes
func Register(g *echo.Group) {
	g.GET("/content/:contentId", ListByContent)
	g.POST("", CreateRelation)
	g.DELETE("", DeleteRelation)
}

// RelationRequest identifies one content-entity link. Creating an existing
// link is a no-op.
type RelationRequest struct {
	ContentID string `json:"content_id" validate:"required"`
	EntityID  string `json:"entity_id" validate:"required"`
}

// ListByContent lists the relations a content record participates in.
func ListByContent(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	ctx, repo, err := ectoinject.GetContext[*relation.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	relations, err := repo.ListByContent(ctx, ownerScopeID, c.Param("contentId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, relations)
}

// CreateRelation links a content record to an entity, typically to accept a
// suggestion.
func CreateRelation(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	var req RelationRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid relation: %v", err)
	}

	ctx, repo, err := ectoinject.GetContext[*relation.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Create(ctx, ownerScopeID, req.ContentID, req.EntityID); err != nil {
		return err
	}

	if ctx, projection, err := ectoinject.GetContext[*graph.Projection](ctx); err == nil {
		_ = projection.UpsertRelation(ctx, ownerScopeID, req.ContentID, req.EntityID)
	}

	return c.NoContent(http.StatusCreated)
}

// DeleteRelation unlinks a content record from an entity.
func DeleteRelation(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	var req RelationRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid relation: %v", err)
	}

	ctx, repo, err := ectoinject.GetContext[*relation.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, ownerScopeID, req.ContentID, req.EntityID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
