package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Exception struct {
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

// Wrap attaches detail to a sentinel while keeping errors.Is and StatusCode working.
func Wrap(e *Exception, detail string) error {
	return fmt.Errorf("%w: %s", e, detail)
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
