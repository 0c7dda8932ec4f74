// Package scrapers exposes the ingestion control surface: run, test,
// and list source adapters.
package scrapers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/baobab/pkg/orchestrator"
	"github.com/Ramsey-B/baobab/pkg/redis"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// Register registers scraper routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("/run", RunAll)
	g.POST("/:name/run", RunOne)
	g.POST("/:name/test", TestOne)
}

// List returns the identities of every registered adapter.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "scrapers_handler.List")
	defer span.End()

	_, o, err := ectoinject.GetContext[*orchestrator.Orchestrator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, o.ListAdapters())
}

// RunAll executes every adapter and returns the run report.
func RunAll(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "scrapers_handler.RunAll")
	defer span.End()

	ctx, o, err := ectoinject.GetContext[*orchestrator.Orchestrator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := o.RunAll(ctx)
	if err != nil {
		if errors.Is(err, redis.ErrRunInProgress) {
			return httperror.NewHTTPError(http.StatusConflict, "an ingestion run is already in progress")
		}
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// RunOne executes a single adapter by name.
func RunOne(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "scrapers_handler.RunOne")
	defer span.End()

	ctx, o, err := ectoinject.GetContext[*orchestrator.Orchestrator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := o.RunOne(ctx, c.Param("name"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrAdapterNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "adapter not found")
		}
		if errors.Is(err, redis.ErrRunInProgress) {
			return httperror.NewHTTPError(http.StatusConflict, "an ingestion run is already in progress")
		}
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// TestOne dry-runs a single adapter and echoes a sample of its output.
func TestOne(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "scrapers_handler.TestOne")
	defer span.End()

	sampleSize := 0
	if raw := c.QueryParam("sample_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return httperror.NewHTTPError(http.StatusBadRequest, "sample_size must be between 1 and 100")
		}
		sampleSize = parsed
	}

	ctx, o, err := ectoinject.GetContext[*orchestrator.Orchestrator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := o.TestOne(ctx, c.Param("name"), sampleSize)
	if err != nil {
		if errors.Is(err, orchestrator.ErrAdapterNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "adapter not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, report)
}
