package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genricoloni/mprisbar/internal/domain"
	"go.uber.org/zap"
)

// Engine orchestrates refreshes of the now-playing state.
// Every trigger (startup, tick, command, bus signal) spawns one unit of
// work whose TrackInfo is reported through a single results channel. The
// run loop is the only writer of the current state; the last unit to
// report wins.
type Engine struct {
	logger  *zap.Logger
	cfg     domain.Config
	source  domain.TrackSource
	cmdr    domain.Commander
	watcher domain.Watcher

	results chan domain.TrackInfo
	updates chan domain.TrackInfo
	current atomic.Pointer[domain.TrackInfo]

	ctx      context.Context // Lifetime of spawned units
	cancel   context.CancelFunc
	mu       sync.Mutex // Guards the flags below and wg.Add against Stop
	started  bool
	stopped  bool
	watching bool
	loopDone chan struct{}
	wg       sync.WaitGroup // Tracks in-flight units
}

// NewEngine creates a new orchestration engine
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	source domain.TrackSource,
	cmdr domain.Commander,
	watcher domain.Watcher,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		logger:   logger,
		cfg:      cfg,
		source:   source,
		cmdr:     cmdr,
		watcher:  watcher,
		results:  make(chan domain.TrackInfo),
		updates:  make(chan domain.TrackInfo, 1),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	waiting := domain.Waiting()
	e.current.Store(&waiting)
	return e
}

// Start launches the run loop and performs the initial fetch.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started || e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.started = true

	if e.cfg.WatchSignals() && e.watcher != nil {
		if err := e.watcher.Start(ctx); err != nil {
			e.logger.Warn("Signal watcher unavailable, relying on polling", zap.Error(err))
		} else {
			e.watching = true
		}
	}

	e.logger.Info("Engine starting...",
		zap.Duration("refreshInterval", e.cfg.RefreshInterval()),
		zap.Duration("settleDelay", e.cfg.SettleDelay()),
		zap.Bool("watchSignals", e.watching))

	go e.runLoop()
	e.mu.Unlock()

	e.Init()
	return nil
}

// Stop ends the run loop and closes Updates. In-flight units are not
// aborted but their results are discarded. Later calls are no-ops.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.cancel()
	started, watching := e.started, e.watching
	e.mu.Unlock()

	e.logger.Info("Engine stopping...")

	if started {
		<-e.loopDone
	}
	// The loop was the only sender
	close(e.updates)

	if watching {
		if err := e.watcher.Stop(ctx); err != nil {
			e.logger.Warn("Failed to stop signal watcher", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Init performs one fetch right away so the first render is not blank
func (e *Engine) Init() {
	e.spawn(e.Snapshot)
}

// Tick performs a timer-driven fetch
func (e *Engine) Tick() {
	e.spawn(e.Snapshot)
}

// RequestCommand sends cmd, waits for the player to settle and re-fetches
func (e *Engine) RequestCommand(cmd domain.Command) {
	e.spawn(func(ctx context.Context) domain.TrackInfo {
		return e.Execute(ctx, cmd)
	})
}

// Updates emits every new state. Only the newest unread state is kept.
// The channel is closed by Stop.
func (e *Engine) Updates() <-chan domain.TrackInfo {
	return e.updates
}

// Current returns the latest applied state
func (e *Engine) Current() domain.TrackInfo {
	return *e.current.Load()
}

// Snapshot fetches the current track synchronously. Every failure
// becomes the unavailable state.
func (e *Engine) Snapshot(ctx context.Context) domain.TrackInfo {
	info, err := e.source.Fetch(ctx)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConnection):
			e.logger.Debug("Session bus unreachable", zap.Error(err))
		case errors.Is(err, domain.ErrPlayerNotFound):
			e.logger.Debug("No candidate player answered", zap.Error(err))
		default:
			e.logger.Debug("Fetch failed", zap.Error(err))
		}
		return domain.Unavailable()
	}
	return info
}

// Execute sends cmd, sleeps for the settle delay and returns a fresh
// snapshot. A command that reaches no player is a silent no-op.
func (e *Engine) Execute(ctx context.Context, cmd domain.Command) domain.TrackInfo {
	if err := e.cmdr.Send(ctx, cmd); err != nil {
		e.logger.Debug("Command not delivered",
			zap.Stringer("command", cmd),
			zap.Error(err))
	}

	// The protocol has no completion acknowledgment beyond the call returning
	select {
	case <-time.After(e.cfg.SettleDelay()):
	case <-ctx.Done():
		return domain.Unavailable()
	}

	return e.Snapshot(ctx)
}

// spawn runs unit on its own goroutine and reports the result to the loop
func (e *Engine) spawn(unit func(context.Context) domain.TrackInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		info := unit(e.ctx)
		select {
		case e.results <- info:
		case <-e.ctx.Done():
		}
	}()
}

// runLoop owns the current state and drives the periodic tick
func (e *Engine) runLoop() {
	defer close(e.loopDone)

	ticker := time.NewTicker(e.cfg.RefreshInterval())
	defer ticker.Stop()

	var triggers <-chan string
	if e.watching {
		triggers = e.watcher.Triggers()
	}

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case <-ticker.C:
			e.Tick()

		case name, ok := <-triggers:
			if !ok {
				triggers = nil
				continue
			}
			e.logger.Debug("Player signalled a change", zap.String("player", name))
			e.Tick()

		case info := <-e.results:
			e.apply(info)
		}
	}
}

// apply replaces the current state and publishes it
func (e *Engine) apply(info domain.TrackInfo) {
	prev := e.current.Swap(&info)
	if prev.Available != info.Available || prev.Player != info.Player {
		if info.Available {
			e.logger.Info("Media player active", zap.String("player", info.Player))
		} else {
			e.logger.Info("No media player active")
		}
	}

	// Drop a stale unread state; the loop is the only sender
	select {
	case <-e.updates:
	default:
	}
	e.updates <- info
}
