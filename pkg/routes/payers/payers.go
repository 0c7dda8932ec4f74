// Package payers exposes the read surface over resolved payer entities.
package payers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/baobab/internal/storage"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/store"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

var validate = validator.New()

// Register registers payer routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/search", Search)
	g.GET("/:id", Get)
	g.GET("/:id/contacts", GetContacts)
	g.GET("/:id/businesses", GetBusinesses)
	g.GET("/:id/properties", GetProperties)
}

type listRequest struct {
	Page     int `validate:"gte=1"`
	PageSize int `validate:"gte=1,lte=200"`
}

// List returns one page of payers.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "payers_handler.List")
	defer span.End()

	req := listRequest{Page: 1, PageSize: 50}
	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "page must be an integer")
		}
		req.Page = page
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		pageSize, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "page_size must be an integer")
		}
		req.PageSize = pageSize
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid pagination: %v", err)
	}

	ctx, s, err := ectoinject.GetContext[*storage.Storage](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	payers, total, err := s.ListPayers(ctx, req.Page, req.PageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.PayerListResponse{
		Items:      payers,
		TotalCount: total,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
}

// Search returns payers whose name or business name is similar to q.
func Search(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "payers_handler.Search")
	defer span.End()

	q := c.QueryParam("q")
	if q == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	threshold := 0.3
	if raw := c.QueryParam("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "threshold must be between 0 and 1")
		}
		threshold = parsed
	}

	ctx, s, err := ectoinject.GetContext[*storage.Storage](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := s.FindPayersByNameSimilarity(ctx, q, threshold, 20)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, matches)
}

// Get returns a single payer by id.
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "payers_handler.Get")
	defer span.End()

	ctx, s, err := ectoinject.GetContext[*storage.Storage](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	payer, err := s.GetPayer(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "payer not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, payer)
}

// GetContacts returns the payer's contact points.
func GetContacts(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "payers_handler.GetContacts")
	defer span.End()

	ctx, s, err := ectoinject.GetContext[*storage.Storage](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	contacts, err := s.ListContacts(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contacts)
}

// GetBusinesses returns the payer's businesses.
func GetBusinesses(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "payers_handler.GetBusinesses")
	defer span.End()

	ctx, s, err := ectoinject.GetContext[*storage.Storage](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	businesses, err := s.ListBusinesses(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, businesses)
}

// GetProperties returns the payer's properties.
func GetProperties(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "payers_handler.GetProperties")
	defer span.End()

	ctx, s, err := ectoinject.GetContext[*storage.Storage](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	properties, err := s.ListProperties(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, properties)
}
