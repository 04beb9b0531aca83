package domain

import "errors"

// Domain errors as sentinel values
var (
	// Event errors
	ErrEventNotFound           = errors.New("event not found")
	ErrInvalidEventID          = errors.New("event id must be positive")
	ErrInvalidStatus           = errors.New("unknown event status")
	ErrNotCancellable          = errors.New("event is not in a cancellable status")
	ErrMissingNotificationData = errors.New("event has no subscriber identity or push data")

	// Part errors
	ErrMissingContentID     = errors.New("message part has no content id")
	ErrMissingContentSource = errors.New("message part has neither a file path nor text")
	ErrUnknownContentType   = errors.New("content type could not be determined")
	ErrShortWrite           = errors.New("short write while materializing message part")

	// Workspace errors
	ErrWorkspaceUnavailable = errors.New("send workspace could not be created")
)
