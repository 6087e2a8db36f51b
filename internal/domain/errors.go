package domain

import "errors"

var (
	// ErrConnection means the session bus itself could not be reached
	ErrConnection = errors.New("session bus unreachable")

	// ErrPlayerNotFound means the bus is fine but no candidate could be read
	ErrPlayerNotFound = errors.New("no media player found")

	// ErrNoPlayerAvailable means no candidate accepted a command
	ErrNoPlayerAvailable = errors.New("no media player accepted the command")

	// ErrMetadataShape marks a metadata value of unexpected type
	ErrMetadataShape = errors.New("unexpected metadata shape")
)
