package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// HTTPErrorHandler returns an echo error handler that renders kinded errors
// as stable JSON bodies and falls through to echo's defaults for the rest.
func HTTPErrorHandler(e *echo.Echo, logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ae *Error
		if errors.As(err, &ae) {
			status := statusFor(ae.Kind)
			body := errorBody{
				Error:     ae.Kind.String(),
				Message:   ae.Msg,
				Retryable: ae.Kind == KindConflict || ae.Kind == KindUnavailable,
			}
			if status >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
			}
			if jsonErr := c.JSON(status, body); jsonErr != nil {
				logger.Error().Err(jsonErr).Msg("write error response")
			}
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, errorBody{
			Error:   "internal",
			Message: "internal server error",
		})
	}
}
