package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/app"
	"github.com/HosicoLabs/Litterbox/internal/config"
	"github.com/HosicoLabs/Litterbox/internal/events"
	"github.com/HosicoLabs/Litterbox/internal/logger"
	"github.com/HosicoLabs/Litterbox/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (json, yaml or toml)")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The TUI owns the terminal: logs go to the rotating file and the in-app pane.
	logBuffer := logger.NewLogBuffer(200)
	appLogger, err := logger.New(&logger.Config{
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxAge:      cfg.Log.MaxAge,
		MaxBackups:  cfg.Log.MaxBackups,
		Compress:    cfg.Log.Compress,
		Development: cfg.Log.Development,
		Buffer:      logBuffer,
	})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	runner, err := app.NewRunner(cfg, appLogger.Logger)
	if err != nil {
		appLogger.Error("Failed to initialise pipeline", zap.Error(err))
		log.Fatalf("Failed to initialise: %v", err)
	}

	evts := make(chan events.Event, 64)
	runner.Subscribe(evts)
	runner.Start()

	program := tea.NewProgram(
		ui.Safe(ui.New(rootCtx, runner.Session(), evts).WithLogs(logBuffer), appLogger.Logger),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)

	appLogger.Info("Starting Litterbox TUI", zap.String("wallet", runner.Session().Owner().String()))
	_, runErr := program.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = runner.Shutdown(shutdownCtx)

	if runErr != nil && rootCtx.Err() == nil {
		appLogger.Error("TUI application failed", zap.Error(runErr))
		os.Exit(1)
	}
}
