package server

import (
	"errors"
	"net/http"

	"squeeze-trader/src/helpers"
)

// -----------------------------------------------------------------------------

// httpStatus maps the error family to a response code.
func httpStatus(err error) int {
	var cfgErr *helpers.ConfigurationError
	switch {
	case errors.Is(err, helpers.ErrNonPositivePrice), errors.Is(err, helpers.ErrNoActivePosition):
		return http.StatusConflict
	case helpers.IsInputError(err):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
