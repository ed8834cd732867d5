package merge

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/referenceentity"
	"github.com/Ramsey-B/fern/internal/repositories/relation"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Register registers merge routes
func Register(g *echo.Group) {
	g.GET("/groups", ListDuplicateGroups)
	g.POST("/run", RunMergePass)
}

// GroupsResponse is the duplicate group preview: the groups plus the relation
// count per member, which feeds the completeness score a reviewer sees.
type GroupsResponse struct {
	Groups         []models.DuplicateGroup `json:"groups"`
	RelationCounts map[string]int          `json:"relation_counts"`
}

// ListDuplicateGroups previews the duplicate groups in the scope without
// merging anything.
func ListDuplicateGroups(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	ctx, entityRepo, err := ectoinject.GetContext[*referenceentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, relationRepo, err := ectoinject.GetContext[*relation.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entities, err := entityRepo.ListByOwnerScope(ctx, ownerScopeID)
	if err != nil {
		return err
	}
	groups := merging.BuildGroups(entities)

	counts, err := relationRepo.CountByEntities(ctx, ownerScopeID)
	if err != nil {
		return err
	}

	resp := GroupsResponse{
		Groups:         groups,
		RelationCounts: make(map[string]int, len(counts)),
	}
	for _, group := range groups {
		for _, member := range group.Members {
			resp.RelationCounts[member.ID] = 0
		}
	}
	for _, count := range counts {
		if _, ok := resp.RelationCounts[count.EntityID]; ok {
			resp.RelationCounts[count.EntityID] = count.Count
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// RunMergePass runs one merge pass over the scope. With ?dry_run=true the
// response contains the plans that would be applied, and nothing is written.
func RunMergePass(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	dryRun := c.QueryParam("dry_run") == "true"

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := engine.RunPass(ctx, ownerScopeID, dryRun)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}
