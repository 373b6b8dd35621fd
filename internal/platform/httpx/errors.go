package httpx

import (
	"errors"
	"net/http"

	"github.com/warden-rbac/warden/internal/shared"
)

// StatusMisdirected is returned on refresh-token failures, matching the
// status contract of the token refresh endpoint.
const StatusMisdirected = http.StatusMisdirectedRequest

// RespondError maps domain errors to HTTP problem responses. Unanticipated
// errors collapse into a generic 500 so internals never leak to callers.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Already Exists", err.Error())
	case errors.Is(err, shared.ErrChildRecords):
		Problem(w, http.StatusConflict, "Child Records Exist", err.Error())
	case errors.Is(err, shared.ErrInvalidReference):
		Problem(w, http.StatusBadRequest, "Invalid Reference", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusBadRequest, "Invalid Credentials", shared.ErrInvalidCredentials.Error())
	case errors.Is(err, shared.ErrSelfAction):
		Problem(w, http.StatusBadRequest, "Not Permitted", err.Error())
	case errors.Is(err, shared.ErrRefreshToken):
		Problem(w, StatusMisdirected, "Refresh Failed", err.Error())
	case errors.Is(err, shared.ErrUserGone):
		Problem(w, StatusMisdirected, "Refresh Failed", err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrTooManyAttempts):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
