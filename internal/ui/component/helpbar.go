package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/HosicoLabs/Litterbox/internal/ui/style"
)

// HelpBar shows the active keyboard shortcuts on one or more lines.
type HelpBar struct {
	keyBindings []key.Binding
	width       int

	keyStyle       lipgloss.Style
	descStyle      lipgloss.Style
	sepStyle       lipgloss.Style
	containerStyle lipgloss.Style
}

// NewHelpBar creates a new help bar component
func NewHelpBar() *HelpBar {
	palette := style.DefaultPalette()

	return &HelpBar{
		width:          80,
		keyStyle:       lipgloss.NewStyle().Foreground(palette.Primary).Bold(true),
		descStyle:      lipgloss.NewStyle().Foreground(palette.TextMuted),
		sepStyle:       lipgloss.NewStyle().Foreground(palette.TextMuted),
		containerStyle: lipgloss.NewStyle().Padding(0, 1).Margin(1, 0, 0, 0),
	}
}

// SetKeyBindings sets the key bindings to display
func (h *HelpBar) SetKeyBindings(bindings []key.Binding) *HelpBar {
	h.keyBindings = bindings
	return h
}

// SetWidth sets the help bar width
func (h *HelpBar) SetWidth(width int) *HelpBar {
	if width > 0 {
		h.width = width
	}
	return h
}

// View renders the enabled bindings as "key desc", wrapping to the width.
func (h *HelpBar) View() string {
	items := make([]string, 0, len(h.keyBindings))
	for _, binding := range h.keyBindings {
		if !binding.Enabled() {
			continue
		}
		help := binding.Help()
		if help.Key == "" || help.Desc == "" {
			continue
		}
		items = append(items, h.keyStyle.Render(help.Key)+" "+h.descStyle.Render(help.Desc))
	}
	if len(items) == 0 {
		return ""
	}

	separator := h.sepStyle.Render(" • ")
	return h.containerStyle.Render(wrap(items, h.width-4, separator))
}

func wrap(items []string, maxWidth int, separator string) string {
	var lines []string
	var line []string
	width := 0
	sepWidth := lipgloss.Width(separator)

	for _, item := range items {
		w := lipgloss.Width(item) + sepWidth
		if width+w > maxWidth && len(line) > 0 {
			lines = append(lines, strings.Join(line, separator))
			line, width = nil, 0
		}
		line = append(line, item)
		width += w
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, separator))
	}
	return strings.Join(lines, "\n")
}
