package suggestion

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/scoring"
)

var validate = validator.New()

// Register registers suggestion routes
func Register(g *echo.Group) {
	g.POST("", SuggestForRecord)
	g.POST("/batch", SuggestBatch)
	g.GET("/weights", GetWeights)
}

// SuggestRequest is a single content record to score.
type SuggestRequest struct {
	ContentID string `json:"content_id" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

// SuggestBatchRequest is a batch of content records sharing the request's
// owner scope.
type SuggestBatchRequest struct {
	Records []SuggestRequest `json:"records" validate:"required,min=1,dive"`
}

// SuggestForRecord scores one content record against the scope's catalog.
func SuggestForRecord(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	suggestions, err := matcher.SuggestForRecord(ctx, &models.ContentRecord{
		ID:           req.ContentID,
		Text:         req.Text,
		OwnerScopeID: ownerScopeID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ContentMatches{
		ContentID:   req.ContentID,
		Suggestions: suggestions,
	})
}

// SuggestBatch scores a batch of content records and returns the full report,
// including per-record failures.
func SuggestBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ownerScopeID := context.GetOwnerScopeID(ctx)
	if ownerScopeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Owner-Scope header is required")
	}

	var req SuggestBatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}

	records := make([]models.ContentRecord, 0, len(req.Records))
	for _, r := range req.Records {
		records = append(records, models.ContentRecord{
			ID:           r.ContentID,
			Text:         r.Text,
			OwnerScopeID: ownerScopeID,
		})
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := matcher.SuggestBatch(ctx, ownerScopeID, records)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}

// GetWeights returns the active scoring weight configuration, version
// included, so consumers can tell which scorer produced their suggestions.
func GetWeights(c echo.Context) error {
	ctx := c.Request().Context()

	_, scorer, err := ectoinject.GetContext[*scoring.Scorer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, scorer.Weights())
}
