package domain

import "errors"

// Domain errors.
var (
	// ErrChannelNotFound is returned when a channel cannot be found.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrDuplicateChannel is returned when a channel with the same external id exists.
	ErrDuplicateChannel = errors.New("channel already exists")

	// ErrEmptyExternalID is returned when a channel is created without an external id.
	ErrEmptyExternalID = errors.New("channel external id cannot be empty")

	// ErrVideoNotFound is returned when a video is missing or unavailable.
	ErrVideoNotFound = errors.New("video not found")

	// ErrSuggestionNotFound is returned when a suggestion cannot be found.
	ErrSuggestionNotFound = errors.New("suggestion not found")

	// ErrSuggestionReviewed is returned when reviewing a suggestion twice.
	ErrSuggestionReviewed = errors.New("suggestion already reviewed")

	// ErrRestaurantNotFound is returned when a restaurant cannot be found.
	ErrRestaurantNotFound = errors.New("restaurant not found")

	// ErrInvalidRestaurant is returned when a restaurant fails validation.
	ErrInvalidRestaurant = errors.New("invalid restaurant")

	// ErrRunNotFound is returned when no sync run exists.
	ErrRunNotFound = errors.New("sync run not found")

	// ErrRunFinalized is returned when updating a completed or failed run.
	ErrRunFinalized = errors.New("sync run already finished")

	// ErrNoChannels is returned when a sync is requested with no channels configured.
	ErrNoChannels = errors.New("no channels configured")

	// ErrSyncInProgress is returned when a sync is requested while another is running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSourceUnavailable is returned when a video source is not configured.
	ErrSourceUnavailable = errors.New("video source unavailable")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrRateLimited is returned when rate limited by external services.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExceeded is returned when the official API quota is exhausted.
	ErrQuotaExceeded = errors.New("api quota exceeded")
)

// ChannelError wraps an error with channel context.
type ChannelError struct {
	Channel string
	Op      string
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Channel != "" {
		return e.Op + " [" + e.Channel + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewChannelError creates a new ChannelError.
func NewChannelError(channel, op string, err error) *ChannelError {
	return &ChannelError{
		Channel: channel,
		Op:      op,
		Err:     err,
	}
}
