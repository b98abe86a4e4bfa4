package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"titan-battle/internal/config"
	"titan-battle/internal/logging"
	"titan-battle/internal/server"
	"titan-battle/pkg/variant"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	port := flag.String("port", "", "Server port (overrides config)")
	dbPath := flag.String("db", "", "Database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Addr = ":" + *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := variant.LoadAll(); err != nil {
		log.Fatal("failed to load variant data", zap.Error(err))
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal("failed to create server", zap.Error(err))
	}

	// Handle shutdown gracefully
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", zap.Error(err))
			done <- syscall.SIGTERM
		}
	}()

	<-done
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}
