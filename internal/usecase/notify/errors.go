package notify

import "errors"

var (
	// ErrChannelDisabled is returned when Send is called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrInvalidDraft is returned for a nil draft or one without a URL.
	ErrInvalidDraft = errors.New("invalid draft data")
)
