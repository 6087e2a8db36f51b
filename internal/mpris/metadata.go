package mpris

import (
	"context"
	"fmt"

	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	keyTitle  = "xesam:title"
	keyArtist = "xesam:artist"
	keyAlbum  = "xesam:album"
)

// FieldState tells how a metadata field was found
type FieldState int

const (
	// FieldPresent means the key exists with the expected type
	FieldPresent FieldState = iota
	// FieldMissing means the key is absent or empty
	FieldMissing
	// FieldWrongType means the key exists with an unexpected type
	FieldWrongType
)

// Extracted is the result of reading one metadata field
type Extracted[T any] struct {
	Value T
	State FieldState
}

// Or returns the value when present, fallback otherwise
func (e Extracted[T]) Or(fallback T) T {
	if e.State != FieldPresent {
		return fallback
	}
	return e.Value
}

// Metadata reads the player's metadata bag. A value that is not a
// string-keyed variant map counts as a read failure.
func (p *Player) Metadata(ctx context.Context) (map[string]dbus.Variant, error) {
	variant, err := p.client.GetProperty(ctx, p.Name, objectPath, propMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	// SAFE CAST: Some players may return nil or unexpected types if not playing anything
	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("%w: metadata is %T", domain.ErrMetadataShape, variant.Value())
	}
	return metadata, nil
}

// PlaybackStatus reads the player's PlaybackStatus property
func (p *Player) PlaybackStatus(ctx context.Context) (domain.PlayerStatus, error) {
	variant, err := p.client.GetProperty(ctx, p.Name, objectPath, propStatus)
	if err != nil {
		return "", fmt.Errorf("failed to get playback status: %w", err)
	}

	status, ok := variant.Value().(string)
	if !ok {
		return "", fmt.Errorf("%w: playback status is %T", domain.ErrMetadataShape, variant.Value())
	}
	return domain.PlayerStatus(status), nil
}

// TrackInfo reads metadata and status and builds the snapshot. Only a
// failure to read the metadata bag is an error; a failed status read
// means not playing.
func (p *Player) TrackInfo(ctx context.Context, logger *zap.Logger) (domain.TrackInfo, error) {
	metadata, err := p.Metadata(ctx)
	if err != nil {
		return domain.Unavailable(), err
	}

	status, err := p.PlaybackStatus(ctx)
	if err != nil {
		logger.Debug("Playback status unreadable, assuming not playing",
			zap.String("player", p.Name),
			zap.Error(err))
		status = ""
	}

	return extractTrackInfo(logger, p.Name, metadata, status), nil
}

// extractTrackInfo converts MPRIS metadata to the domain model
func extractTrackInfo(logger *zap.Logger, player string, metadata map[string]dbus.Variant, status domain.PlayerStatus) domain.TrackInfo {
	title := stringField(metadata, keyTitle)
	artist := firstStringField(metadata, keyArtist)
	album := stringField(metadata, keyAlbum)

	for key, state := range map[string]FieldState{
		keyTitle:  title.State,
		keyArtist: artist.State,
		keyAlbum:  album.State,
	} {
		if state == FieldWrongType {
			logger.Debug("Ignoring metadata field",
				zap.String("player", player),
				zap.String("key", key),
				zap.String("type", fmt.Sprintf("%T", metadata[key].Value())),
				zap.Error(domain.ErrMetadataShape))
		}
	}

	return domain.TrackInfo{
		Title:     title.Or(domain.UnknownTitle),
		Artist:    artist.Or(domain.UnknownArtist),
		Album:     album.Or(""),
		IsPlaying: status == domain.StatusPlaying,
		Available: true,
		Player:    player,
	}
}

// stringField reads a string-valued field
func stringField(metadata map[string]dbus.Variant, key string) Extracted[string] {
	v, ok := metadata[key]
	if !ok {
		return Extracted[string]{State: FieldMissing}
	}
	s, ok := v.Value().(string)
	if !ok {
		return Extracted[string]{State: FieldWrongType}
	}
	return Extracted[string]{Value: s, State: FieldPresent}
}

// firstStringField reads the first element of a list-valued field.
// Only the first artist is surfaced.
func firstStringField(metadata map[string]dbus.Variant, key string) Extracted[string] {
	v, ok := metadata[key]
	if !ok {
		return Extracted[string]{State: FieldMissing}
	}

	var first interface{}
	switch list := v.Value().(type) {
	case []string:
		if len(list) == 0 {
			return Extracted[string]{State: FieldMissing}
		}
		first = list[0]
	case []interface{}:
		if len(list) == 0 {
			return Extracted[string]{State: FieldMissing}
		}
		first = list[0]
	case []dbus.Variant:
		if len(list) == 0 {
			return Extracted[string]{State: FieldMissing}
		}
		first = list[0].Value()
	default:
		return Extracted[string]{State: FieldWrongType}
	}

	if nested, ok := first.(dbus.Variant); ok {
		first = nested.Value()
	}
	s, ok := first.(string)
	if !ok {
		return Extracted[string]{State: FieldWrongType}
	}
	return Extracted[string]{Value: s, State: FieldPresent}
}
