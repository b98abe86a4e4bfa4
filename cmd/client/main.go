package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"titan-battle/internal/client"
	"titan-battle/internal/config"
	"titan-battle/internal/logging"
)

func main() {
	profile := flag.String("profile", "", "Profile name for separate config (e.g., player1, player2)")
	serverAddr := flag.String("server", "", "Server address (defaults to the last one used)")
	name := flag.String("name", "", "Player name")
	verbose := flag.Bool("v", false, "Log network activity")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logging.New(config.LoggingConfig{Level: level, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	client.SetProfile(*profile)
	cfg, err := client.LoadConfig()
	if err != nil {
		log.Warn("using default config", zap.Error(err))
	}
	if *serverAddr != "" {
		cfg.LastServer = *serverAddr
	}
	if *name != "" {
		cfg.PlayerName = *name
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc := client.NewNetworkClient(log)
	console := client.NewConsole(nc, cfg, os.Stdout, log)
	nc.OnMessage = console.Handle
	nc.OnDisconnect = func(err error) {
		fmt.Fprintln(os.Stderr, "disconnected from server")
		stop()
	}

	if err := nc.Connect(ctx, cfg.LastServer); err != nil {
		log.Fatal("failed to connect", zap.String("server", cfg.LastServer), zap.Error(err))
	}
	defer nc.Disconnect()

	if err := cfg.Save(); err != nil {
		log.Warn("failed to save config", zap.Error(err))
	}

	// Sign in straight away and pick up where we left off.
	console.Exec("auth")
	if cfg.LastBattle != "" {
		console.Exec("load " + cfg.LastBattle)
	}
	fmt.Println(`type "help" for commands`)

	if err := console.Run(ctx, os.Stdin); err != nil && err != context.Canceled {
		log.Error("console stopped", zap.Error(err))
	}
}
