package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	envPrefix     = "MPRISBAR"
	appName       = "mprisbar"
	playerPrefix  = "org.mpris.MediaPlayer2."
	defaultColor  = "2"
	defaultTitle  = 25
	defaultArtist = 20

	defaultRefreshInterval = 2 * time.Second
	defaultSettleDelay     = 100 * time.Millisecond
)

// DefaultPlayers is the candidate list used when none is configured,
// highest priority first
var DefaultPlayers = []string{
	"org.mpris.MediaPlayer2.spotify",
	"org.mpris.MediaPlayer2.vlc",
	"org.mpris.MediaPlayer2.rhythmbox",
	"org.mpris.MediaPlayer2.plasma-browser-integration",
}

// Options selects where configuration is read from
type Options struct {
	// File is an explicit config file; empty means the XDG location
	File string
}

// fileConfig mirrors the YAML layout
type fileConfig struct {
	Players         []string      `mapstructure:"players"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	WatchSignals    bool          `mapstructure:"watch_signals"`
	UI              struct {
		TitleMax  int    `mapstructure:"title_max"`
		ArtistMax int    `mapstructure:"artist_max"`
		Color     string `mapstructure:"color"`
	} `mapstructure:"ui"`
}

// AppConfig holds application configuration
type AppConfig struct {
	players         []string
	refreshInterval time.Duration
	settleDelay     time.Duration
	watchSignals    bool
	titleMax        int
	artistMax       int
	color           string
}

// NewAppConfig loads defaults, the config file and MPRISBAR_* environment
// variables, in increasing order of precedence
func NewAppConfig(logger *zap.Logger, opts Options) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.Debug("No config file found, using defaults")
	} else {
		logger.Debug("Config file loaded", zap.String("file", v.ConfigFileUsed()))
	}

	cfg, err := fromViper(logger, v)
	if err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.Strings("players", cfg.players),
		zap.Duration("refreshInterval", cfg.refreshInterval),
		zap.Duration("settleDelay", cfg.settleDelay),
		zap.Bool("watchSignals", cfg.watchSignals))

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("players", DefaultPlayers)
	v.SetDefault("refresh_interval", defaultRefreshInterval)
	v.SetDefault("settle_delay", defaultSettleDelay)
	v.SetDefault("watch_signals", true)
	v.SetDefault("ui.title_max", defaultTitle)
	v.SetDefault("ui.artist_max", defaultArtist)
	v.SetDefault("ui.color", defaultColor)
}

// configDir follows the XDG standard, falling back to ~/.config
func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName)
}

func fromViper(logger *zap.Logger, v *viper.Viper) (*AppConfig, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// MPRISBAR_PLAYERS arrives as a single string
	players := fc.Players
	if len(players) == 1 && strings.ContainsAny(players[0], ", ") {
		players = strings.FieldsFunc(players[0], func(r rune) bool { return r == ',' || r == ' ' })
	}

	cfg := &AppConfig{
		players:         NormalizePlayers(players),
		refreshInterval: fc.RefreshInterval,
		settleDelay:     fc.SettleDelay,
		watchSignals:    fc.WatchSignals,
		titleMax:        fc.UI.TitleMax,
		artistMax:       fc.UI.ArtistMax,
		color:           fc.UI.Color,
	}

	if len(cfg.players) == 0 {
		logger.Warn("Empty player list configured, falling back to defaults")
		cfg.players = append([]string(nil), DefaultPlayers...)
	}
	if cfg.refreshInterval <= 0 {
		logger.Warn("Invalid refresh_interval, using default", zap.Duration("value", cfg.refreshInterval))
		cfg.refreshInterval = defaultRefreshInterval
	}
	if cfg.settleDelay < 0 {
		logger.Warn("Invalid settle_delay, using default", zap.Duration("value", cfg.settleDelay))
		cfg.settleDelay = defaultSettleDelay
	}
	if cfg.titleMax < 1 {
		cfg.titleMax = defaultTitle
	}
	if cfg.artistMax < 1 {
		cfg.artistMax = defaultArtist
	}
	if cfg.color == "" {
		cfg.color = defaultColor
	}

	return cfg, nil
}

// NormalizePlayers expands short names ("vlc") to full MPRIS bus names
// and drops blanks and duplicates, keeping first-occurrence priority
func NormalizePlayers(players []string) []string {
	names := lo.FilterMap(players, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", false
		}
		if !strings.Contains(p, ".") {
			p = playerPrefix + p
		}
		return p, true
	})
	return lo.Uniq(names)
}

// Players returns the ordered candidate bus names
func (c *AppConfig) Players() []string {
	return append([]string(nil), c.players...)
}

// RefreshInterval is the period of timer-driven refreshes
func (c *AppConfig) RefreshInterval() time.Duration {
	return c.refreshInterval
}

// SettleDelay is the wait between a command and the following re-read
func (c *AppConfig) SettleDelay() time.Duration {
	return c.settleDelay
}

// WatchSignals reports whether bus signals trigger refreshes
func (c *AppConfig) WatchSignals() bool {
	return c.watchSignals
}

// TitleMax is the title truncation limit in runes
func (c *AppConfig) TitleMax() int {
	return c.titleMax
}

// ArtistMax is the artist truncation limit in runes
func (c *AppConfig) ArtistMax() int {
	return c.artistMax
}

// Color is the accent colour of the widget
func (c *AppConfig) Color() string {
	return c.color
}
