package sync

import "errors"

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidDocument   = errors.New("invalid document")
)

// IsTransient reports whether retrying the same call later can succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrInvalidDocument):
		return false
	default:
		return true
	}
}
