package mpris

import (
	"context"
	"errors"
	"fmt"

	"github.com/genricoloni/mprisbar/internal/domain"
	"go.uber.org/zap"
)

// Bridge talks to the configured MPRIS players over the session bus.
// Every Fetch or Send opens its own connection and re-resolves the
// candidate list from the top.
type Bridge struct {
	logger    *zap.Logger
	connector Connector
	players   []string
}

// NewBridge creates a bridge over the configured candidate list
func NewBridge(logger *zap.Logger, cfg domain.Config, connector Connector) *Bridge {
	players := append([]string(nil), cfg.Players()...)
	return &Bridge{
		logger:    logger,
		connector: connector,
		players:   players,
	}
}

// Fetch reads the track of the first candidate that binds and exposes
// its metadata. A candidate that binds but fails to return metadata is
// skipped in favour of the next one.
func (b *Bridge) Fetch(ctx context.Context) (domain.TrackInfo, error) {
	client, err := b.connector.Connect(ctx)
	if err != nil {
		return domain.Unavailable(), err
	}
	defer b.closeClient(client)

	var lastErr error
	for player := range b.bound(ctx, client) {
		info, err := player.TrackInfo(ctx, b.logger)
		if err != nil {
			b.logger.Debug("Bound player did not expose metadata, trying next",
				zap.String("player", player.Name),
				zap.Error(err))
			lastErr = err
			continue
		}
		return info, nil
	}

	if lastErr != nil {
		return domain.Unavailable(), fmt.Errorf("%w: %w", domain.ErrPlayerNotFound, lastErr)
	}
	return domain.Unavailable(), domain.ErrPlayerNotFound
}

// Send invokes cmd on the first candidate that binds and accepts it
func (b *Bridge) Send(ctx context.Context, cmd domain.Command) error {
	client, err := b.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer b.closeClient(client)

	var errs []error
	for player := range b.bound(ctx, client) {
		if err := player.Invoke(ctx, cmd); err != nil {
			b.logger.Debug("Player rejected command",
				zap.String("player", player.Name),
				zap.Stringer("command", cmd),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}

		b.logger.Debug("Command delivered",
			zap.String("player", player.Name),
			zap.Stringer("command", cmd))
		return nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrNoPlayerAvailable, errors.Join(errs...))
	}
	return domain.ErrNoPlayerAvailable
}

func (b *Bridge) closeClient(client DBusClient) {
	if err := client.Close(); err != nil {
		b.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
	}
}
