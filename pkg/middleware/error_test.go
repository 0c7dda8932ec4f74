package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/baobab/pkg/middleware"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newServer(handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testLogger())
	e.Use(middleware.Context())
	e.GET("/boom", handler)
	return e
}

func serve(t *testing.T, e *echo.Echo) (int, middleware.ErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandlerKeepsHTTPErrorStatus(t *testing.T) {
	e := newServer(func(echo.Context) error {
		return httperror.NewHTTPError(http.StatusNotFound, "payer not found")
	})

	code, body := serve(t, e)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body.Message, "payer not found")
	assert.NotEmpty(t, body.RequestID)
}

func TestErrorHandlerKeepsEchoErrorStatus(t *testing.T) {
	e := newServer(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "nope")
	})

	code, body := serve(t, e)

	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "nope", body.Message)
}

func TestErrorHandlerHidesUnknownErrors(t *testing.T) {
	e := newServer(func(echo.Context) error {
		return errors.New("pq: connection refused")
	})

	code, body := serve(t, e)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error", body.Message)
}
