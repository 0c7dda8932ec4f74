package middleware

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/baobab/pkg/context"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// ErrorResponse is the JSON body every failed request returns.
type ErrorResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Error maps any error escaping a handler onto a JSON response. Known
// error shapes keep their status code; everything else is a 500 with a
// generic message.
func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()

		code := http.StatusInternalServerError
		body := ErrorResponse{
			Message:   "Internal Server Error",
			RequestID: context.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
		}

		var echoErr *echo.HTTPError
		switch {
		case httperror.IsHTTPError(err):
			httpErr := httperror.ToHTTPError(err)
			code = httperror.GetStatusCode(err)
			body.Message = httpErr.Error()
			body.Meta = httpErr.Meta
		case errors.As(err, &echoErr):
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				body.Message = msg
			}
		}

		logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"status": code,
			"route":  c.Path(),
		}).Error("Request failed")

		_ = c.JSON(code, body)
	}
}
