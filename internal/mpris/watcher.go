package mpris

import (
	"context"
	"fmt"
	"sync"

	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/godbus/dbus/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	signalPropertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
	signalNameOwnerChanged  = "org.freedesktop.DBus.NameOwnerChanged"
)

// SignalWatcher turns MPRIS bus signals of the configured candidates into
// refresh triggers. It never picks a player; the bridge still resolves
// from the top of the list on every fetch.
type SignalWatcher struct {
	logger      *zap.Logger
	connector   Connector
	candidates  map[string]struct{}
	triggers    chan string
	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	conn        DBusClient        // Interface for testability
	wg          sync.WaitGroup    // Tracks the signal loop
	playerNames map[string]string // Maps unique bus names (:1.45) to candidate names
}

// NewSignalWatcher creates a watcher over the configured candidates
func NewSignalWatcher(logger *zap.Logger, cfg domain.Config, connector Connector) *SignalWatcher {
	return &SignalWatcher{
		logger:      logger,
		connector:   connector,
		candidates:  lo.Keyify(cfg.Players()),
		triggers:    make(chan string, 1),
		playerNames: make(map[string]string),
	}
}

// Start connects to the bus and subscribes to player signals. ctx bounds
// only the setup; the connection is dialed on the watcher's own context
// and lives until Stop.
func (w *SignalWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.Background())

	conn, err := w.connector.Connect(watchCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("signal watcher: %w", err)
	}

	abort := func(err error) error {
		cancel()
		if cerr := conn.Close(); cerr != nil {
			w.logger.Warn("Failed to close D-Bus connection", zap.Error(cerr))
		}
		return err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return abort(fmt.Errorf("failed to add match signal: %w", err))
	}

	// Add match rule for NameOwnerChanged to track candidates starting and exiting
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		w.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return abort(fmt.Errorf("signal watcher setup: %w", err))
	}

	w.mu.Lock()
	w.conn = conn
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	w.detectExistingPlayers(ctx)

	signals := make(chan *dbus.Signal, 10)
	conn.Signal(signals)

	w.wg.Add(1)
	go w.monitorSignals(watchCtx, signals)

	w.logger.Info("Signal watcher started", zap.Int("candidates", len(w.candidates)))
	return nil
}

// Stop gracefully stops the watcher
func (w *SignalWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.cancel()
	w.running = false
	w.mu.Unlock()

	// Wait for the loop to terminate before closing the channel
	w.wg.Wait()
	close(w.triggers)

	w.mu.Lock()
	if w.conn != nil {
		if err := w.conn.Close(); err != nil {
			w.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		w.conn = nil
	}
	w.mu.Unlock()

	w.logger.Info("Signal watcher stopped")
	return nil
}

// Triggers emits the candidate name whose state changed
func (w *SignalWatcher) Triggers() <-chan string {
	return w.triggers
}

// detectExistingPlayers maps the unique names of candidates already running
func (w *SignalWatcher) detectExistingPlayers(ctx context.Context) {
	for name := range w.candidates {
		owner, err := w.conn.GetNameOwner(ctx, name)
		if err != nil {
			continue
		}

		w.mu.Lock()
		w.playerNames[owner] = name
		w.mu.Unlock()

		w.logger.Debug("Mapped player name",
			zap.String("unique", owner),
			zap.String("wellKnown", name))
	}
}

// monitorSignals listens for D-Bus signals and processes them
func (w *SignalWatcher) monitorSignals(ctx context.Context, signals <-chan *dbus.Signal) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if sig == nil {
				continue
			}
			switch sig.Name {
			case signalNameOwnerChanged:
				w.handleNameOwnerChanged(sig)
			case signalPropertiesChanged:
				w.handlePropertiesChanged(sig)
			}
		}
	}
}

// handleNameOwnerChanged tracks candidates appearing and disappearing
func (w *SignalWatcher) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	if _, candidate := w.candidates[name]; !candidate {
		return
	}

	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	w.mu.Lock()
	if oldOwner != "" {
		delete(w.playerNames, oldOwner)
	}
	if newOwner != "" {
		w.playerNames[newOwner] = name
	}
	w.mu.Unlock()

	w.logger.Info("Candidate player ownership changed",
		zap.String("player", name),
		zap.String("oldUnique", oldOwner),
		zap.String("newUnique", newOwner))

	w.emit(name)
}

// handlePropertiesChanged reacts to Metadata and PlaybackStatus changes.
// PropertiesChanged carries the interface name, the changed properties
// and the invalidated property names.
func (w *SignalWatcher) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != playerInterface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	_, hasMetadata := changedProps["Metadata"]
	_, hasStatus := changedProps["PlaybackStatus"]
	if !hasMetadata && !hasStatus {
		return
	}

	name, ok := w.getPlayerName(sig.Sender)
	if !ok {
		return
	}

	w.logger.Debug("Received PropertiesChanged signal",
		zap.String("sender", sig.Sender),
		zap.String("player", name),
		zap.Int("properties", len(changedProps)))

	w.emit(name)
}

// getPlayerName returns the candidate name for a unique bus name
func (w *SignalWatcher) getPlayerName(uniqueName string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	name, ok := w.playerNames[uniqueName]
	return name, ok
}

// emit sends a trigger without blocking. A trigger already pending
// causes a refresh anyway, so a full buffer coalesces.
func (w *SignalWatcher) emit(name string) {
	select {
	case w.triggers <- name:
	default:
		w.logger.Debug("Refresh already pending, coalescing trigger", zap.String("player", name))
	}
}
