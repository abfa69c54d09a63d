package customerrors

import (
	"fmt"
	"net/http"
)

type ErrorHttpResponse struct {
	code int
	msg  string
}

func (e ErrorHttpResponse) Error() string {
	return fmt.Sprintf("HTTP Response Error: %d - %s", e.code, e.msg)
}

func (e ErrorHttpResponse) StatusCode() int {
	return e.code
}

var (
	ErrorUnauthorized = ErrorHttpResponse{http.StatusUnauthorized, "Unauthorized"}
	ErrorForbidden    = ErrorHttpResponse{http.StatusForbidden, "Forbidden"}
	ErrorNotFound     = ErrorHttpResponse{http.StatusNotFound, "Not Found"}
	ErrorRateLimit    = ErrorHttpResponse{http.StatusTooManyRequests, "Rate Limit Exceeded"}
)

// InferHttpError maps a non 2xx status code to one of the known response errors.
// Unknown codes keep their value so callers can still log them.
func InferHttpError(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrorUnauthorized
	case http.StatusForbidden:
		return ErrorForbidden
	case http.StatusNotFound:
		return ErrorNotFound
	case http.StatusTooManyRequests:
		return ErrorRateLimit
	default:
		return ErrorHttpResponse{code, "unexpected response status code"}
	}
}

func MakeErrorHttpResponse(code int, msg string) error {
	return ErrorHttpResponse{code, msg}
}
