package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/genricoloni/mprisbar/internal/config"
	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/genricoloni/mprisbar/internal/engine"
	"github.com/genricoloni/mprisbar/internal/text"
	"github.com/genricoloni/mprisbar/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mprisbar",
		Short:        "Now-playing widget for MPRIS media players",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWidget(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file (default $XDG_CONFIG_HOME/mprisbar/config.yaml)")

	root.AddCommand(
		newStatusCmd(),
		newControlCmd(domain.PlayPause, "Toggle playback"),
		newControlCmd(domain.Next, "Skip to the next track"),
		newControlCmd(domain.Previous, "Skip to the previous track"),
	)
	return root
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print what is playing right now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, e *engine.Engine) domain.TrackInfo {
				return e.Snapshot(ctx)
			})
		},
	}
}

func newControlCmd(c domain.Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   c.String(),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, e *engine.Engine) domain.TrackInfo {
				return e.Execute(ctx, c)
			})
		},
	}
}

// runWidget runs the terminal UI until it quits or a signal arrives
func runWidget(ctx context.Context) error {
	app := fx.New(AppOptions(config.Options{File: configFile}))

	// Start the application
	if err := app.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-app.Wait():
	}

	// Stop the application gracefully
	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}

// runOnce builds the core graph without starting the engine loop and
// runs a single synchronous operation
func runOnce(ctx context.Context, w io.Writer, op func(context.Context, *engine.Engine) domain.TrackInfo) error {
	var (
		eng *engine.Engine
		cfg domain.Config
	)
	app := fx.New(coreOptions(config.Options{File: configFile}), fx.Populate(&eng, &cfg))
	if err := app.Err(); err != nil {
		return err
	}

	printTrack(w, op(ctx, eng), cfg)
	return nil
}

// printTrack writes a one-line summary of info
func printTrack(w io.Writer, info domain.TrackInfo, cfg domain.Config) {
	bold := lipgloss.NewStyle().Bold(true)
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Color()))
	faint := lipgloss.NewStyle().Faint(true)

	line := fmt.Sprintf("%s %s - %s",
		ui.PlayPauseIcon(info.IsPlaying),
		bold.Render(text.Truncate(info.Title, cfg.TitleMax())),
		accent.Render(text.Truncate(info.Artist, cfg.ArtistMax())),
	)
	if info.Album != "" {
		line += faint.Render(" (" + text.Truncate(info.Album, cfg.ArtistMax()) + ")")
	}
	fmt.Fprintln(w, line)
}
