// Package ui renders the now-playing widget as a Bubble Tea program.
package ui

import (
	"github.com/charmbracelet/bubbletea"
	"github.com/genricoloni/mprisbar/internal/domain"
)

// Controller is the part of the engine the widget talks to
type Controller interface {
	RequestCommand(cmd domain.Command)
	Updates() <-chan domain.TrackInfo
	Current() domain.TrackInfo
}

// trackMsg carries a new state from the engine
type trackMsg domain.TrackInfo

// updatesClosedMsg means the engine will not send more states
type updatesClosedMsg struct{}

// Model is the Bubble Tea model for the widget
type Model struct {
	ctrl   Controller
	styles styles
	track  domain.TrackInfo
	width  int
	height int

	titleMax  int
	artistMax int
}

// NewModel creates the widget model
func NewModel(ctrl Controller, cfg domain.Config) *Model {
	return &Model{
		ctrl:      ctrl,
		styles:    newStyles(cfg.Color()),
		track:     ctrl.Current(),
		titleMax:  cfg.TitleMax(),
		artistMax: cfg.ArtistMax(),
	}
}

// waitForUpdate blocks on the engine's update channel (runs off the UI loop)
func waitForUpdate(updates <-chan domain.TrackInfo) tea.Cmd {
	return func() tea.Msg {
		info, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return trackMsg(info)
	}
}

// Init starts listening for engine updates
func (m *Model) Init() tea.Cmd {
	return waitForUpdate(m.ctrl.Updates())
}

// Update handles key presses and engine states
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.ctrl.RequestCommand(domain.PlayPause)
		case "n", "right":
			m.ctrl.RequestCommand(domain.Next)
		case "b", "left":
			m.ctrl.RequestCommand(domain.Previous)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case trackMsg:
		m.track = domain.TrackInfo(msg)
		return m, waitForUpdate(m.ctrl.Updates())

	case updatesClosedMsg:
		return m, nil
	}

	return m, nil
}

// Track returns the state currently displayed
func (m *Model) Track() domain.TrackInfo {
	return m.track
}
