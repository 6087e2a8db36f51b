package domain

import (
	"context"
	"time"
)

// TrackSource reads the current track from the highest-priority player.
// Implementations acquire their own bus connection per call.
type TrackSource interface {
	// Fetch returns a fully populated TrackInfo or an error wrapping
	// ErrConnection or ErrPlayerNotFound
	Fetch(ctx context.Context) (TrackInfo, error)
}

// Commander sends transport commands to the first player that accepts them
type Commander interface {
	// Send returns nil on the first successful invocation, otherwise an error
	// wrapping ErrConnection or ErrNoPlayerAvailable
	Send(ctx context.Context, cmd Command) error
}

// Watcher emits a trigger whenever a candidate player changes state
type Watcher interface {
	// Start subscribes to bus signals. It does not block.
	Start(ctx context.Context) error

	// Stop releases the subscription and closes Triggers
	Stop(ctx context.Context) error

	// Triggers emits the bus name of the player that changed
	Triggers() <-chan string
}

// Config defines the interface for application configuration
type Config interface {
	// Players returns the ordered candidate bus names
	Players() []string

	// RefreshInterval is the period of timer-driven refreshes
	RefreshInterval() time.Duration

	// SettleDelay is the wait between a command and the following re-read
	SettleDelay() time.Duration

	// WatchSignals reports whether bus signals should trigger refreshes
	WatchSignals() bool

	// TitleMax is the title truncation limit in runes
	TitleMax() int

	// ArtistMax is the artist truncation limit in runes
	ArtistMax() int

	// Color is the accent colour of the widget
	Color() string
}
