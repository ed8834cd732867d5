package entity

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/referenceentity"
	"github.com/Ramsey-B/fern/internal/repositories/relation"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
)

var validate = validator.New()

// Register registers reference entity routes
func Register(g *echo.Group) {
	g.GET("", ListEntities)
	g.GET("/:id", GetEntity)
	g.GET("/:id/relations", GetEntityRelations)
	g.POST("", CreateEntity)
	g.PUT("/:id", UpdateEntity)
	g.DELETE("/:id", DeleteEntity)
}

// EntityRequest is the create/update payload for a reference entity.
type EntityRequest struct {
	Name          string                `json:"name" validate:"required"`
	Category      models.EntityCategory `json:"category" validate:"required,oneof=location item"`
	Address       *string               `json:"address"`
	Tags          models.StringList     `json:"tags"`
	Brand         *string               `json:"brand"`
	Description   *string               `json:"description"`
	ExternalLinks models.StringList     `json:"external_links"`
	Phone         *string               `json:"phone"`
	Hours         *string               `json:"hours"`
}

// ListEntities returns one page of the scope's catalog.
func ListEntities(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, repo, err := ectoinject.GetContext[*referenceentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := repo.ListPage(ctx, ownerScopeID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetEntity gets a reference entity by id
func GetEntity(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	ctx, repo, err := ectoinject.GetContext[*referenceentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entity, err := repo.Get(ctx, ownerScopeID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entity)
}

// GetEntityRelations lists the relations pointing at an entity.
func GetEntityRelations(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	ctx, repo, err := ectoinject.GetContext[*relation.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	relations, err := repo.ListByEntity(ctx, ownerScopeID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, relations)
}

// CreateEntity creates a reference entity
func CreateEntity(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	var req EntityRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid entity: %v", err)
	}

	ctx, repo, err := ectoinject.GetContext[*referenceentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entity, err := repo.Create(ctx, &models.ReferenceEntity{
		OwnerScopeID:  ownerScopeID,
		Name:          req.Name,
		Category:      req.Category,
		Address:       req.Address,
		Tags:          req.Tags,
		Brand:         req.Brand,
		Description:   req.Description,
		ExternalLinks: req.ExternalLinks,
		Phone:         req.Phone,
		Hours:         req.Hours,
	})
	if err != nil {
		return err
	}

	if ctx, projection, err := ectoinject.GetContext[*graph.Projection](ctx); err == nil {
		_ = projection.UpsertEntity(ctx, entity)
	}

	return c.JSON(http.StatusCreated, entity)
}

// UpdateEntity updates a reference entity
func UpdateEntity(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	var req EntityRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid entity: %v", err)
	}

	ctx, repo, err := ectoinject.GetContext[*referenceentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entity, err := repo.Update(ctx, &models.ReferenceEntity{
		ID:            c.Param("id"),
		OwnerScopeID:  ownerScopeID,
		Name:          req.Name,
		Category:      req.Category,
		Address:       req.Address,
		Tags:          req.Tags,
		Brand:         req.Brand,
		Description:   req.Description,
		ExternalLinks: req.ExternalLinks,
		Phone:         req.Phone,
		Hours:         req.Hours,
	})
	if err != nil {
		return err
	}

	if ctx, projection, err := ectoinject.GetContext[*graph.Projection](ctx); err == nil {
		_ = projection.UpsertEntity(ctx, entity)
	}

	return c.JSON(http.StatusOK, entity)
}

// DeleteEntity deletes a reference entity and its relations
func DeleteEntity(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*referenceentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	if err := repo.DeleteWithRelations(ctx, ownerScopeID, id); err != nil {
		return err
	}

	if ctx, projection, err := ectoinject.GetContext[*graph.Projection](ctx); err == nil {
		_ = projection.DeleteEntity(ctx, ownerScopeID, id)
	}

	return c.NoContent(http.StatusNoContent)
}
