package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MJE43/stake-dice-config/internal/api"
	"github.com/MJE43/stake-dice-config/internal/config"
	"github.com/MJE43/stake-dice-config/internal/display"
	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/logger"
	"github.com/MJE43/stake-dice-config/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "path to the YAML config file (skipped if missing)")
		envFile     = flag.String("env-file", ".env", "path to a .env file (skipped if missing)")
		showVersion = flag.Bool("version", false, "print version and exit")
		summary     = flag.Bool("summary", false, "print the bet journal summary and exit")
		widgetID    = flag.String("widget", "", "limit -summary to one widget")
	)
	flag.Parse()

	if *showVersion {
		v := api.GetVersionInfo()
		fmt.Printf("stake-dice-config %s (commit %s, built %s)\n", v.EngineVersion, v.GitCommit, v.BuildTime)
		return
	}

	cfg := config.MustLoad(*configPath, *envFile)
	if *summary {
		if err := printSummary(cfg.Journal.Path, *widgetID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	log := logger.New(cfg.Env, os.Stdout)
	log.Info("starting stake-dice-config",
		slog.String("env", cfg.Env),
		slog.String("go", runtime.Version()))

	svc, err := service.New(cfg, log)
	if err != nil {
		log.Error("init failed", logger.Err(err))
		os.Exit(1)
	}
	if err := svc.Start(); err != nil {
		log.Error("start failed", logger.Err(err))
		_ = svc.Shutdown(context.Background())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exit := 0
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-svc.Done():
		if err != nil {
			exit = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", logger.Err(err))
		exit = 1
	}
	log.Info("stopped")
	if exit != 0 {
		os.Exit(exit)
	}
}

func printSummary(path, widgetID string) error {
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Summarize(context.Background(), widgetID)
	if err != nil {
		return err
	}
	title := "Bet journal"
	if widgetID != "" {
		title += " (widget " + widgetID + ")"
	}
	fmt.Print(display.Table(title, display.SummaryRows(sum)))
	return nil
}
