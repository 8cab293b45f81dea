package handlers

import (
	"errors"
	"net/http"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
)

// failureFor maps a service error onto the HTTP status and envelope the
// storefront expects. Marketplace responses are mirrored as is.
func failureFor(err error) (int, Failure) {
	var uerr *marketplace.UpstreamError
	switch {
	case errors.As(err, &uerr):
		return uerr.Status, Failure{Status: uerr.Status, Data: uerr.Data}
	case errors.Is(err, marketplace.ErrMissingQuery):
		return http.StatusBadRequest, Failure{Error: marketplace.ErrMissingQuery.Error()}
	case errors.Is(err, marketplace.ErrInvalidItemID):
		return http.StatusBadRequest, Failure{Error: marketplace.ErrInvalidItemID.Error()}
	case errors.Is(err, marketplace.ErrDailyLimitReached):
		return http.StatusTooManyRequests, Failure{Error: marketplace.ErrDailyLimitReached.Error()}
	case marketplace.IsTransient(err):
		return http.StatusBadGateway, Failure{Error: marketplace.ErrUnavailable.Error()}
	default:
		return http.StatusInternalServerError, Failure{Error: err.Error()}
	}
}

// upstream reports whether err is a mirrored marketplace response rather
// than a local failure worth logging.
func upstream(err error) bool {
	_, ok := marketplace.StatusOf(err)
	return ok
}
