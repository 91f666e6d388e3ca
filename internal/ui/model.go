// internal/ui/model.go
package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/HosicoLabs/Litterbox/internal/events"
	"github.com/HosicoLabs/Litterbox/internal/logger"
	"github.com/HosicoLabs/Litterbox/internal/session"
	"github.com/HosicoLabs/Litterbox/internal/ui/component"
	"github.com/HosicoLabs/Litterbox/internal/ui/style"
)

// Model is the bubbletea model of the cleanup screen.
type Model struct {
	ctx     context.Context
	sess    *session.Session
	events  <-chan events.Event
	keys    KeyMap
	styles  style.Styles
	spinner spinner.Model
	pager   paginator.Model
	help    *component.HelpBar
	logs    *component.LogPane

	cursor   int
	showHelp bool
	showLogs bool
	width    int
	lastErr  error
	quitting bool
}

// New creates the model. evts may be nil when no bus is wired.
func New(ctx context.Context, sess *session.Session, evts <-chan events.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	pg := paginator.New()
	pg.Type = paginator.Dots

	keys := DefaultKeyMap()
	return Model{
		ctx:     ctx,
		sess:    sess,
		events:  evts,
		keys:    keys,
		styles:  style.DefaultStyles(),
		spinner: sp,
		pager:   pg,
		help:    component.NewHelpBar().SetKeyBindings(keys.ShortHelp()),
		width:   80,
	}
}

// WithLogs enables the log pane (toggled with L) backed by buf.
func (m Model) WithLogs(buf *logger.LogBuffer) Model {
	m.logs = component.NewLogPane(buf, 6)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scanCmd(), m.waitEvent())
}

func (m Model) scanCmd() tea.Cmd {
	return func() tea.Msg {
		return ScanDoneMsg{Err: m.sess.Scan(m.ctx)}
	}
}

func (m Model) enrichCmd() tea.Cmd {
	return func() tea.Msg {
		return PageEnrichedMsg{Err: m.sess.EnrichPage(m.ctx)}
	}
}

func (m Model) convertCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sess.Convert(m.ctx)
		return ConvertDoneMsg{Outcome: out, Err: err}
	}
}

func (m Model) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return nil
		}
		return EventMsg{Event: e}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ScanDoneMsg:
		if !errors.Is(msg.Err, session.ErrStale) {
			m.lastErr = msg.Err
		}
		m.clampCursor()
		return m, nil

	case PageEnrichedMsg:
		return m, nil

	case ConvertDoneMsg:
		m.keys.SetConverting(false)
		m.lastErr = nil
		if msg.Err != nil && !errors.Is(msg.Err, session.ErrNothingSelected) {
			m.lastErr = msg.Err
		}
		return m, nil

	case EventMsg:
		if msg.Event.Type() == events.ScanCompleted {
			m.clampCursor()
		}
		return m, m.waitEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.sess.View()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		if m.showHelp {
			m.help.SetKeyBindings(m.keys.FullHelp())
		} else {
			m.help.SetKeyBindings(m.keys.ShortHelp())
		}

	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs && m.logs != nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(view.PageRecords)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.PrevPage):
		if view.Page > 0 {
			m.sess.SetPage(view.Page - 1)
			m.cursor = 0
			return m, m.enrichCmd()
		}

	case key.Matches(msg, m.keys.NextPage):
		if view.Page < view.Pages-1 {
			m.sess.SetPage(view.Page + 1)
			m.cursor = 0
			return m, m.enrichCmd()
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(view.PageRecords) {
			m.sess.Toggle(view.PageRecords[m.cursor].MintKey())
		}

	case key.Matches(msg, m.keys.ToggleAll):
		m.sess.ToggleAll()

	case key.Matches(msg, m.keys.Convert):
		if view.InFlight {
			return m, nil
		}
		m.keys.SetConverting(true)
		return m, m.convertCmd()

	case key.Matches(msg, m.keys.Rescan):
		return m, m.scanCmd()
	}
	return m, nil
}

func (m *Model) clampCursor() {
	n := len(m.sess.View().PageRecords)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
