package errutil

import "net/http"

// CoreStatus is the transport independent error classification shared by the
// HTTP and gRPC boundaries.
type CoreStatus string

const (
	StatusNotFound          CoreStatus = "not_found"
	StatusInvalidArgument   CoreStatus = "invalid_argument"
	StatusInvalidReference  CoreStatus = "invalid_reference"
	StatusInvalidTransition CoreStatus = "invalid_transition"
	StatusInvalidState      CoreStatus = "invalid_state"
	StatusConflict          CoreStatus = "conflict"
	StatusInfrastructure    CoreStatus = "infrastructure"

	StatusUnauthorized        CoreStatus = "unauthorized"
	StatusForbidden           CoreStatus = "forbidden"
	StatusTimeout             CoreStatus = "timeout"
	StatusClientClosedRequest CoreStatus = "client_closed_request"
	StatusNotImplemented      CoreStatus = "not_implemented"
	StatusInternal            CoreStatus = "internal"
	StatusUnknown             CoreStatus = "unknown"
)

// HTTPStatus returns the HTTP response code used for s.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusNotFound:
		return http.StatusNotFound
	case StatusInvalidArgument:
		return http.StatusBadRequest
	case StatusInvalidReference:
		return http.StatusUnprocessableEntity
	case StatusInvalidTransition, StatusInvalidState, StatusConflict:
		return http.StatusConflict
	case StatusInfrastructure:
		return http.StatusServiceUnavailable
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusTimeout:
		return http.StatusGatewayTimeout
	case StatusClientClosedRequest:
		return 499
	case StatusNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
