package httpadapter

import (
	"net/http"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrBusy),
		domain.IsKind(err, domain.ErrInvalidState),
		domain.IsKind(err, domain.ErrNotReady):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrUpstream),
		domain.IsKind(err, domain.ErrMalformedReport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
