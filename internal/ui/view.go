package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/genricoloni/mprisbar/internal/text"
	"github.com/mattn/go-runewidth"
)

const (
	iconPrevious = "⏮"
	iconPlay     = "▶"
	iconPause    = "⏸"
	iconNext     = "⏭"
)

type styles struct {
	button   lipgloss.Style
	title    lipgloss.Style
	artist   lipgloss.Style
	album    lipgloss.Style
	inactive lipgloss.Style
	border   lipgloss.Style
	help     lipgloss.Style
}

func newStyles(color string) styles {
	accent := lipgloss.Color(color)
	return styles{
		button: lipgloss.NewStyle().
			Foreground(accent).
			Padding(0, 1),
		title:    lipgloss.NewStyle().Bold(true),
		artist:   lipgloss.NewStyle().Foreground(accent),
		album:    lipgloss.NewStyle().Faint(true),
		inactive: lipgloss.NewStyle().Faint(true).Italic(true),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		help: lipgloss.NewStyle().Faint(true),
	}
}

// PlayPauseIcon shows pause while playing and play otherwise
func PlayPauseIcon(playing bool) string {
	if playing {
		return iconPause
	}
	return iconPlay
}

// View renders the control buttons next to the track info
func (m *Model) View() string {
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.button.Render(iconPrevious),
		m.styles.button.Render(PlayPauseIcon(m.track.IsPlaying)),
		m.styles.button.Render(iconNext),
	)

	info := lipgloss.JoinVertical(lipgloss.Left, m.infoLines(m.track)...)
	widget := m.styles.border.Render(
		lipgloss.JoinHorizontal(lipgloss.Center, buttons, "  ", info),
	)

	help := m.styles.help.Render("b prev · p play/pause · n next · q quit")
	full := lipgloss.JoinVertical(lipgloss.Center, widget, help)

	if m.width == 0 || m.height == 0 {
		return full
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, full)
}

// infoLines pads every line to a fixed column so the widget does not
// jump around when the track changes
func (m *Model) infoLines(track domain.TrackInfo) []string {
	width := max(m.titleMax, m.artistMax)
	pad := func(s string) string {
		return runewidth.FillRight(s, width)
	}

	title := pad(text.Truncate(track.Title, m.titleMax))
	artist := pad(text.Truncate(track.Artist, m.artistMax))

	if !track.Available {
		return []string{
			m.styles.title.Render(title),
			m.styles.inactive.Render(artist),
		}
	}

	lines := []string{
		m.styles.title.Render(title),
		m.styles.artist.Render(artist),
	}
	if track.Album != "" {
		lines = append(lines, m.styles.album.Render(pad(text.Truncate(track.Album, m.artistMax))))
	}
	return lines
}
