package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/tablenode/internal/config"
	"github.com/dyluth/tablenode/internal/node"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run contains the main logic and returns an exit code.
// This separation makes the logic testable and ensures deferred functions run.
func run(args []string) int {
	flags := flag.NewFlagSet("tablenode", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to tablenode.yml (defaults apply when omitted)")
	showVersion := flags.Bool("version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("tablenode %s (commit: %s)\n", version, commit)
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("[ERROR] Configuration error: %v", err)
		return 1
	}

	devices, err := node.NewDevices(cfg)
	if err != nil {
		log.Printf("[ERROR] Failed to open hardware: %v", err)
		return 1
	}
	defer func() {
		if err := devices.Close(); err != nil {
			log.Printf("[ERROR] Error closing hardware: %v", err)
		}
	}()

	l, err := node.NewLink(cfg)
	if err != nil {
		log.Printf("[ERROR] Failed to create link: %v", err)
		return 1
	}

	engine, err := node.New(cfg, l, devices)
	if err != nil {
		log.Printf("[ERROR] Failed to create engine: %v", err)
		return 1
	}

	var healthServer *node.HealthServer
	if !cfg.Health.Disabled {
		healthServer = node.NewHealthServer(engine, cfg.Health.Port)
		if err := healthServer.Start(); err != nil {
			log.Printf("[ERROR] Failed to start health server: %v", err)
			return 1
		}
		log.Printf("[INFO] Health server started on :%d", cfg.Health.Port)
	}

	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Start(engineCtx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] Received signal: %v", sig)
	case err := <-engineDone:
		if err != nil {
			log.Printf("[ERROR] Engine error: %v", err)
			return 1
		}
		log.Printf("[INFO] Engine exited")
		return 0
	}

	log.Printf("[INFO] Initiating graceful shutdown...")
	engineCancel()

	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] Health server shutdown error: %v", err)
		}
	}

	shutdownTimer := time.NewTimer(5 * time.Second)
	defer shutdownTimer.Stop()

	select {
	case err := <-engineDone:
		if err != nil {
			log.Printf("[ERROR] Engine shutdown error: %v", err)
			return 1
		}
	case <-shutdownTimer.C:
		log.Printf("[ERROR] Engine shutdown timeout - forcing exit")
		return 1
	}

	log.Printf("[INFO] Table node shutdown complete")
	return 0
}

// loadConfig reads path, or builds a default configuration with
// environment overrides when path is empty.
func loadConfig(path string) (*config.NodeConfig, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Parse([]byte(`version: "1.0"`), os.Getenv)
}
