package models

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by the pipeline and the request layer.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidGeometry      = errors.New("invalid geometry")
	ErrNotFound             = errors.New("not found")
	ErrAmbiguousID          = errors.New("ambiguous id")
	ErrExternalService      = errors.New("external service error")
	ErrMalformedObservation = errors.New("malformed observation")
	ErrTimeout              = errors.New("timeout")
)

// HTTPStatus maps an error from the taxonomy to a transport status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidGeometry):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAmbiguousID):
		return http.StatusConflict
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
