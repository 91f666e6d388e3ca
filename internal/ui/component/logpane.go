package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HosicoLabs/Litterbox/internal/logger"
	"github.com/HosicoLabs/Litterbox/internal/ui/style"
)

// LogPane shows the tail of the in-memory log buffer.
type LogPane struct {
	buffer    *logger.LogBuffer
	lines     int
	showDebug bool

	container lipgloss.Style
	title     lipgloss.Style
	timestamp lipgloss.Style
	levels    map[string]lipgloss.Style
}

// NewLogPane renders the last lines entries of buffer.
func NewLogPane(buffer *logger.LogBuffer, lines int) *LogPane {
	palette := style.DefaultPalette()
	if lines <= 0 {
		lines = 6
	}
	return &LogPane{
		buffer: buffer,
		lines:  lines,
		container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Info).
			Padding(0, 1),
		title:     lipgloss.NewStyle().Foreground(palette.Info).Bold(true),
		timestamp: lipgloss.NewStyle().Foreground(palette.TextMuted),
		levels: map[string]lipgloss.Style{
			"error": lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			"warn":  lipgloss.NewStyle().Foreground(palette.Warning),
			"info":  lipgloss.NewStyle().Foreground(palette.Text),
			"debug": lipgloss.NewStyle().Foreground(palette.TextMuted),
		},
	}
}

// ShowDebug includes debug entries.
func (p *LogPane) ShowDebug(on bool) *LogPane {
	p.showDebug = on
	return p
}

func (p *LogPane) View() string {
	if p.buffer == nil {
		return ""
	}

	var rows []string
	for _, e := range p.buffer.GetRecentLogs(0) {
		level := normalizeLevel(e.Level)
		if level == "debug" && !p.showDebug {
			continue
		}
		rows = append(rows, fmt.Sprintf("%s %s",
			p.timestamp.Render(e.Timestamp.Format("15:04:05")),
			p.levels[level].Render(e.Message)))
	}
	if len(rows) > p.lines {
		rows = rows[len(rows)-p.lines:]
	}
	if len(rows) == 0 {
		rows = []string{p.timestamp.Render("No log entries yet")}
	}

	return p.container.Render(lipgloss.JoinVertical(lipgloss.Left,
		p.title.Render("Recent logs"),
		strings.Join(rows, "\n")))
}

func normalizeLevel(l string) string {
	switch strings.ToLower(l) {
	case "error", "dpanic", "panic", "fatal":
		return "error"
	case "warn", "warning":
		return "warn"
	case "debug":
		return "debug"
	}
	return "info"
}
