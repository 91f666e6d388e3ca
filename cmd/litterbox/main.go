package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/app"
	"github.com/HosicoLabs/Litterbox/internal/config"
	"github.com/HosicoLabs/Litterbox/internal/logger"
)

const usage = `Usage: litterbox [-config path] [-v] <command> [flags]

Commands:
  scan                        list closeable dust accounts
  preview -select all|MINTS   show what a conversion would reclaim
  convert -select all|MINTS   close, swap and send in one transaction (-yes skips the prompt)
`

func main() {
	global := flag.NewFlagSet("litterbox", flag.ExitOnError)
	configPath := global.String("config", "", "Path to config file (json, yaml or toml)")
	verbose := global.Bool("v", false, "Log to stderr")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *verbose, global.Arg(0), global.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, verbose bool, command string, args []string) error {
	cmd, ok := commands[command]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	opts, err := cmd.parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logCfg := &logger.Config{
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxAge:      cfg.Log.MaxAge,
		MaxBackups:  cfg.Log.MaxBackups,
		Compress:    cfg.Log.Compress,
		Development: cfg.Log.Development,
	}
	if verbose {
		logCfg.Console = os.Stderr
	}
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	runner, err := app.NewRunner(cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = runner.Shutdown(sctx)
	}()

	appLogger.Info("Running command", zap.String("command", command))
	return cmd.run(ctx, runner, opts, os.Stdout)
}
