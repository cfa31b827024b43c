package domain

import (
	"errors"
	"strings"
)

var (
	// ErrContentPolicy marks a provider-side rejection of the submitted content.
	ErrContentPolicy = errors.New("content policy rejection")
	// ErrNotFound is returned by lookups that have nothing to return.
	ErrNotFound = errors.New("not found")
	// ErrTaskInProgress is returned when a run of the same task is already active.
	ErrTaskInProgress = errors.New("task already in progress")
	// ErrInvalidTimeRange is returned for unparsable or out-of-bounds report ranges.
	ErrInvalidTimeRange = errors.New("invalid time range")
)

var contentPolicyMarkers = []string{"content exists risk", "safety"}

// IsContentPolicy reports whether err is a content-policy rejection, either typed
// or recognisable from the provider's message.
func IsContentPolicy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrContentPolicy) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range contentPolicyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
