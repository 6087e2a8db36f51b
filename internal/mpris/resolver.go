package mpris

import (
	"context"
	"fmt"
	"iter"

	"github.com/genricoloni/mprisbar/internal/domain"
	"go.uber.org/zap"
)

// Player is a candidate that was found alive on the bus. It is only valid
// for the lifetime of the connection it was bound on.
type Player struct {
	Name   string
	client DBusClient
}

// bound yields, in priority order, a handle for every candidate whose bus
// name is currently owned. Candidates are probed lazily, so stopping the
// iteration leaves the rest of the list untouched.
func (b *Bridge) bound(ctx context.Context, client DBusClient) iter.Seq[*Player] {
	return func(yield func(*Player) bool) {
		for _, name := range b.players {
			player, err := b.bind(ctx, client, name)
			if err != nil {
				continue
			}
			if !yield(player) {
				return
			}
		}
	}
}

// bind scopes a player handle to name. Failing to bind is not an error
// for the caller's overall operation; the candidate is just skipped.
func (b *Bridge) bind(ctx context.Context, client DBusClient, name string) (*Player, error) {
	owned, err := client.NameHasOwner(ctx, name)
	if err != nil {
		b.logger.Debug("Candidate probe failed", zap.String("player", name), zap.Error(err))
		return nil, fmt.Errorf("probe %s: %w", name, err)
	}
	if !owned {
		b.logger.Debug("Candidate not running", zap.String("player", name))
		return nil, fmt.Errorf("probe %s: name has no owner", name)
	}
	return &Player{Name: name, client: client}, nil
}

// Invoke calls the MPRIS method matching cmd
func (p *Player) Invoke(ctx context.Context, cmd domain.Command) error {
	method := cmd.Method()
	if method == "" {
		return fmt.Errorf("unsupported command %v", cmd)
	}
	return p.client.CallMethod(ctx, p.Name, objectPath, method)
}
