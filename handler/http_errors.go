package handler

import "net/http"

// HTTPError carries an HTTP status code and a stable machine-readable key.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // e.g. "unauthorized", "payment_required"
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

var (
	ErrBadRequest       = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized     = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrPaymentRequired  = HTTPError{Code: http.StatusPaymentRequired, Key: "payment_required"}
	ErrForbidden        = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrMethodNotAllowed = HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"}
	ErrInternalServer   = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
)

// NewHTTPError creates a custom HTTP error with the given status code and key.
//
// Example:
//
//	err := handler.NewHTTPError(http.StatusConflict, "already_subscribed")
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}
