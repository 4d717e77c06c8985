package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "task-tracker.com/task-tracker/internal/errors"
)

// ErrorHandler writes not-found as an empty 404 and everything else as
// {"message": ...}. Internal details of 5xx errors are logged, not returned.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := resolveError(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", code,
			"error", err,
		)
	}

	var writeErr error
	if code == http.StatusNotFound || c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, echo.Map{"message": message})
	}
	if writeErr != nil {
		slog.ErrorContext(c.Request().Context(), "failed to write error response", "error", writeErr)
	}
}

func resolveError(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}

	var appErr *apperrors.Exception
	if errors.As(err, &appErr) {
		if appErr.StatusCode >= http.StatusInternalServerError {
			return appErr.StatusCode, appErr.Message
		}
		return appErr.StatusCode, err.Error()
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
