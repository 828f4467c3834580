package client

import (
	"errors"
	"fmt"
)

// ErrToolTimeout means a tool action did not answer within the deadline.
// The action may still have run; callers must decide whether to repeat it.
var ErrToolTimeout = errors.New("tool action timed out")

// APIError is a failure envelope decoded from the runtime. Code carries
// the machine-readable error code from the wire contract.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("runtime api error (%d %s): %s", e.Status, e.Code, e.Message)
}

func apiErrorCode(err error, code string) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.Code == code
}

func IsUnauthenticated(err error) bool {
	return apiErrorCode(err, "unauthenticated")
}

func IsUnauthorized(err error) bool {
	return apiErrorCode(err, "unauthorized")
}

func IsInvalidRequest(err error) bool {
	return apiErrorCode(err, "invalid_request")
}

func IsNotFound(err error) bool {
	return apiErrorCode(err, "not_found")
}

func IsRateLimited(err error) bool {
	return apiErrorCode(err, "rate_limited")
}

func IsUnavailable(err error) bool {
	return apiErrorCode(err, "unavailable")
}
