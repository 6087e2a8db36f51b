package domain

import "fmt"

const (
	// NoTrackTitle is shown whenever no player could be read
	NoTrackTitle = "No Track"
	// WaitingArtist is shown before the first refresh has completed
	WaitingArtist = "Waiting for a Media Player..."
	// UnavailableArtist is shown after a refresh found no usable player
	UnavailableArtist = "No Media Player active..."

	// UnknownTitle substitutes a missing or malformed xesam:title
	UnknownTitle = "Unknown Title"
	// UnknownArtist substitutes a missing or malformed xesam:artist
	UnknownArtist = "Unknown Artist"
)

// PlayerStatus is the MPRIS PlaybackStatus value
type PlayerStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlayerStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlayerStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlayerStatus = "Stopped"
)

// TrackInfo is a snapshot of what the resolved player reports.
// It is never mutated after construction; each refresh replaces it.
type TrackInfo struct {
	// Title of the currently loaded track
	Title string
	// Artist is the first entry of the track's artist list
	Artist string
	// Album name, may be empty
	Album string
	// IsPlaying is true only when PlaybackStatus is exactly "Playing"
	IsPlaying bool
	// Available is true only when a player was resolved and read
	Available bool
	// Player is the bus name the snapshot was read from
	Player string
}

// Waiting returns the state shown before any refresh has completed
func Waiting() TrackInfo {
	return TrackInfo{
		Title:  NoTrackTitle,
		Artist: WaitingArtist,
	}
}

// Unavailable returns the canonical state for every failed refresh
func Unavailable() TrackInfo {
	return TrackInfo{
		Title:  NoTrackTitle,
		Artist: UnavailableArtist,
	}
}

// Command is a transport command understood by MPRIS players
type Command int

const (
	// PlayPause toggles playback
	PlayPause Command = iota
	// Next skips to the next track
	Next
	// Previous skips to the previous track
	Previous
)

// Method returns the fully qualified MPRIS method name for the command
func (c Command) Method() string {
	switch c {
	case PlayPause:
		return "org.mpris.MediaPlayer2.Player.PlayPause"
	case Next:
		return "org.mpris.MediaPlayer2.Player.Next"
	case Previous:
		return "org.mpris.MediaPlayer2.Player.Previous"
	default:
		return ""
	}
}

func (c Command) String() string {
	switch c {
	case PlayPause:
		return "play-pause"
	case Next:
		return "next"
	case Previous:
		return "previous"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}
