package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"lathe/internal/api"
	"lathe/internal/config"
	"lathe/internal/daemon"
	"lathe/internal/jobs"
	"lathe/internal/logging"
	"lathe/internal/services/photogram"
	"lathe/internal/storage"
	"lathe/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "lathed.pid")
	if err := writePIDFile(pidPath); err != nil {
		logger.Error("write pid file", logging.Error(err))
		os.Exit(1)
	}
	defer os.Remove(pidPath)

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	tool, err := photogram.New(cfg.Tool.Binary, cfg.Tool.AreaFlag, cfg.ProbeTimeout(), cfg.MaxRuntime())
	if err != nil {
		logger.Error("init reconstruction client", logging.Error(err))
		os.Exit(1)
	}

	layout := storage.NewLayout(cfg)
	manager := workflow.NewManager(cfg, store, layout, tool, logger)
	jobSvc := api.NewJobService(store, layout, manager, logger)

	d, err := daemon.New(cfg, store, logger, manager, jobSvc)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("lathed shutting down")
	d.Stop()
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
