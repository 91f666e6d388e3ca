// internal/ui/safe.go
package ui

import (
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// safeModel keeps a panicking Update or View from tearing the terminal down
// mid-conversion; the panic is logged and the previous model is kept.
type safeModel struct {
	model  tea.Model
	logger *zap.Logger
}

// Safe wraps model with panic recovery.
func Safe(model tea.Model, logger *zap.Logger) tea.Model {
	return &safeModel{model: model, logger: logger.Named("ui")}
}

func (s *safeModel) Init() (cmd tea.Cmd) {
	defer s.recoverFromPanic("Init", &cmd)
	return s.model.Init()
}

func (s *safeModel) Update(msg tea.Msg) (out tea.Model, cmd tea.Cmd) {
	out = s
	defer s.recoverFromPanic("Update", &cmd)
	next, cmd := s.model.Update(msg)
	s.model = next
	return s, cmd
}

func (s *safeModel) View() (view string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("View panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			view = "UI error: rendering failed. Press q to exit."
		}
	}()
	return s.model.View()
}

func (s *safeModel) recoverFromPanic(method string, cmd *tea.Cmd) {
	if r := recover(); r != nil {
		s.logger.Error("UI method panic recovered",
			zap.String("method", method),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
		*cmd = nil
	}
}
