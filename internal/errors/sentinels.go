package errors

import "net/http"

var (
	ErrTaskNotFound = &Exception{
		Message:    "task not found",
		StatusCode: http.StatusNotFound,
	}

	ErrInvalidTaskID = &Exception{
		Message:    "task id must be a positive integer",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidJSON = &Exception{
		Message:    "invalid JSON payload",
		StatusCode: http.StatusBadRequest,
	}

	// ErrValidation is returned wrapped with the failing fields, see Wrap.
	ErrValidation = &Exception{
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
	}

	ErrRateLimited = &Exception{
		Message:    "rate limit exceeded",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrStorageUnavailable = &Exception{
		Message:    "storage unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)
