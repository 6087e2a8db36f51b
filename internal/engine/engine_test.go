package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testConfig struct {
	refresh time.Duration
	settle  time.Duration
	watch   bool
}

func (c testConfig) Players() []string              { return []string{"org.mpris.MediaPlayer2.spotify"} }
func (c testConfig) RefreshInterval() time.Duration { return c.refresh }
func (c testConfig) SettleDelay() time.Duration     { return c.settle }
func (c testConfig) WatchSignals() bool             { return c.watch }
func (c testConfig) TitleMax() int                  { return 25 }
func (c testConfig) ArtistMax() int                 { return 20 }
func (c testConfig) Color() string                  { return "2" }

// fakeSource returns a fixed result and counts calls
type fakeSource struct {
	info  domain.TrackInfo
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeSource) Fetch(ctx context.Context) (domain.TrackInfo, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return domain.Unavailable(), f.err
	}
	return f.info, nil
}

// fakeCommander records commands and when they were sent
type fakeCommander struct {
	mu     sync.Mutex
	err    error
	sent   []domain.Command
	sentAt time.Time
}

func (f *fakeCommander) Send(_ context.Context, cmd domain.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	f.sentAt = time.Now()
	return f.err
}

func (f *fakeCommander) commands() []domain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Command(nil), f.sent...)
}

// fakeWatcher exposes a trigger channel the test can drive
type fakeWatcher struct {
	triggers chan string
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{triggers: make(chan string, 1)}
}

func (f *fakeWatcher) Start(context.Context) error {
	f.started.Store(true)
	return f.startErr
}

func (f *fakeWatcher) Stop(context.Context) error {
	f.stopped.Store(true)
	return nil
}

func (f *fakeWatcher) Triggers() <-chan string { return f.triggers }

var playing = domain.TrackInfo{
	Title:     "Song A",
	Artist:    "Artist X",
	Album:     "Album Z",
	IsPlaying: true,
	Available: true,
	Player:    "org.mpris.MediaPlayer2.spotify",
}

func newTestEngine(t *testing.T, cfg testConfig, src domain.TrackSource, cmdr domain.Commander, w domain.Watcher) *Engine {
	t.Helper()
	e := NewEngine(zap.NewNop(), cfg, src, cmdr, w)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Stop(ctx)
	})
	return e
}

func waitUpdate(t *testing.T, e *Engine) domain.TrackInfo {
	t.Helper()
	select {
	case info := <-e.Updates():
		return info
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: no state update")
		return domain.TrackInfo{}
	}
}

func TestEngine_WaitingBeforeStart(t *testing.T) {
	e := newTestEngine(t, testConfig{refresh: time.Hour}, &fakeSource{info: playing}, &fakeCommander{}, nil)
	assert.Equal(t, domain.Waiting(), e.Current())
	assert.False(t, e.Current().Available)
}

func TestEngine_InitialFetchOnStart(t *testing.T) {
	src := &fakeSource{info: playing}
	e := newTestEngine(t, testConfig{refresh: time.Hour}, src, &fakeCommander{}, nil)

	require.NoError(t, e.Start(t.Context()))

	assert.Equal(t, playing, waitUpdate(t, e))
	assert.Equal(t, playing, e.Current())
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestEngine_FailureBecomesUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"connection", fmt.Errorf("%w: no daemon", domain.ErrConnection)},
		{"not found", domain.ErrPlayerNotFound},
		{"other", fmt.Errorf("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{info: playing, err: tt.err}
			e := newTestEngine(t, testConfig{refresh: time.Hour}, src, &fakeCommander{}, nil)
			require.NoError(t, e.Start(t.Context()))

			got := waitUpdate(t, e)
			assert.Equal(t, domain.Unavailable(), got)
			assert.False(t, got.IsPlaying)
			assert.Equal(t, domain.UnavailableArtist, got.Artist)
		})
	}
}

func TestEngine_TickRefreshes(t *testing.T) {
	src := &fakeSource{info: playing}
	e := newTestEngine(t, testConfig{refresh: 10 * time.Millisecond}, src, &fakeCommander{}, nil)
	require.NoError(t, e.Start(t.Context()))

	assert.Eventually(t, func() bool {
		return src.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

// TestEngine_CommandWithoutPlayer verifies an undeliverable command still re-fetches
func TestEngine_CommandWithoutPlayer(t *testing.T) {
	src := &fakeSource{err: domain.ErrPlayerNotFound}
	cmdr := &fakeCommander{err: domain.ErrNoPlayerAvailable}
	e := newTestEngine(t, testConfig{refresh: time.Hour, settle: 30 * time.Millisecond}, src, cmdr, nil)
	require.NoError(t, e.Start(t.Context()))
	waitUpdate(t, e) // initial fetch

	e.RequestCommand(domain.Next)

	assert.Equal(t, domain.Unavailable(), waitUpdate(t, e))
	assert.Equal(t, []domain.Command{domain.Next}, cmdr.commands())
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestEngine_ExecuteWaitsForSettle(t *testing.T) {
	settle := 40 * time.Millisecond
	src := &fakeSource{info: playing}
	cmdr := &fakeCommander{}
	e := newTestEngine(t, testConfig{refresh: time.Hour, settle: settle}, src, cmdr, nil)

	start := time.Now()
	got := e.Execute(t.Context(), domain.PlayPause)

	assert.GreaterOrEqual(t, time.Since(start), settle)
	assert.Equal(t, playing, got)
	assert.Equal(t, []domain.Command{domain.PlayPause}, cmdr.commands())
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestEngine_SnapshotIsIdempotent(t *testing.T) {
	e := newTestEngine(t, testConfig{refresh: time.Hour}, &fakeSource{info: playing}, &fakeCommander{}, nil)

	first := e.Snapshot(t.Context())
	second := e.Snapshot(t.Context())
	assert.Equal(t, first, second)
}

func TestEngine_WatcherTriggersFetch(t *testing.T) {
	src := &fakeSource{info: playing}
	w := newFakeWatcher()
	e := newTestEngine(t, testConfig{refresh: time.Hour, watch: true}, src, &fakeCommander{}, w)
	require.NoError(t, e.Start(t.Context()))
	waitUpdate(t, e)
	require.True(t, w.started.Load())

	w.triggers <- "org.mpris.MediaPlayer2.spotify"

	waitUpdate(t, e)
	assert.EqualValues(t, 2, src.calls.Load())

	require.NoError(t, e.Stop(t.Context()))
	assert.True(t, w.stopped.Load())
}

func TestEngine_WatcherFailureFallsBackToPolling(t *testing.T) {
	src := &fakeSource{info: playing}
	w := newFakeWatcher()
	w.startErr = fmt.Errorf("no bus")
	e := newTestEngine(t, testConfig{refresh: 10 * time.Millisecond, watch: true}, src, &fakeCommander{}, w)
	require.NoError(t, e.Start(t.Context()))

	assert.Eventually(t, func() bool {
		return src.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.Stop(t.Context()))
	assert.False(t, w.stopped.Load(), "a watcher that failed to start is not stopped")
}

func TestEngine_LastWriteWins(t *testing.T) {
	e := newTestEngine(t, testConfig{refresh: time.Hour}, &fakeSource{info: playing}, &fakeCommander{}, nil)

	paused := playing
	paused.IsPlaying = false
	e.apply(playing)
	e.apply(paused)

	assert.Equal(t, paused, e.Current())
	// Only the newest unread state is buffered
	assert.Equal(t, paused, <-e.Updates())
	assert.Len(t, e.Updates(), 0)
}

func TestEngine_StopWithUnitInFlight(t *testing.T) {
	src := &fakeSource{info: playing, delay: 50 * time.Millisecond}
	e := newTestEngine(t, testConfig{refresh: time.Hour}, src, &fakeCommander{}, nil)
	require.NoError(t, e.Start(t.Context()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))

	// Triggers after Stop are ignored
	e.Tick()
	assert.Equal(t, domain.Waiting(), e.Current())
}

func TestEngine_StopClosesUpdates(t *testing.T) {
	e := newTestEngine(t, testConfig{refresh: time.Hour}, &fakeSource{info: playing}, &fakeCommander{}, nil)
	require.NoError(t, e.Start(t.Context()))
	require.NoError(t, e.Stop(t.Context()))

	// A pending state may still be buffered before the close is observed
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-e.Updates():
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// A second Stop must not close the channel again
	assert.NoError(t, e.Stop(t.Context()))
}

func TestEngine_StopWithoutStartClosesUpdates(t *testing.T) {
	e := newTestEngine(t, testConfig{refresh: time.Hour}, &fakeSource{info: playing}, &fakeCommander{}, nil)
	require.NoError(t, e.Stop(t.Context()))

	_, ok := <-e.Updates()
	assert.False(t, ok)
	// Starting a stopped engine does nothing
	require.NoError(t, e.Start(t.Context()))
	assert.Equal(t, domain.Waiting(), e.Current())
}

// TestEngine_TriggersRacingStop exercises spawn concurrently with Stop
func TestEngine_TriggersRacingStop(t *testing.T) {
	src := &fakeSource{info: playing}
	e := newTestEngine(t, testConfig{refresh: time.Hour}, src, &fakeCommander{}, nil)
	require.NoError(t, e.Start(t.Context()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.RequestCommand(domain.PlayPause)
				e.Tick()
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))
	wg.Wait()

	// No unit may start once Stop has returned
	calls := src.calls.Load()
	e.Tick()
	e.RequestCommand(domain.Next)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, src.calls.Load())
}
