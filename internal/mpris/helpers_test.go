package mpris

import (
	"context"
	"time"
)

var testPlayers = []string{
	"org.mpris.MediaPlayer2.spotify",
	"org.mpris.MediaPlayer2.vlc",
	"org.mpris.MediaPlayer2.rhythmbox",
}

// testConfig is a fixed domain.Config for unit tests
type testConfig struct {
	players []string
}

func (c testConfig) Players() []string              { return c.players }
func (c testConfig) RefreshInterval() time.Duration { return 2 * time.Second }
func (c testConfig) SettleDelay() time.Duration     { return 100 * time.Millisecond }
func (c testConfig) WatchSignals() bool             { return true }
func (c testConfig) TitleMax() int                  { return 25 }
func (c testConfig) ArtistMax() int                 { return 20 }
func (c testConfig) Color() string                  { return "2" }

// staticConnector hands out the same client, or fails with err
type staticConnector struct {
	client DBusClient
	err    error
	calls  int
	ctx    context.Context // Context of the last Connect
}

func (s *staticConnector) Connect(ctx context.Context) (DBusClient, error) {
	s.calls++
	s.ctx = ctx
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}
