package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/restgate/agent/internal/config"
	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/server"
	"github.com/restgate/agent/internal/shared/paths"
)

func main() {
	port := flag.String("port", "", "Listen port (default 9119)")
	host := flag.String("host", "", "Bind address (default loopback-only)")
	dataDir := flag.String("data-dir", "", "Data directory override")
	debug := flag.Bool("debug", false, "Enable debug logging")
	allowAnyOrigin := flag.Bool("allow-any-origin", false, "Accept calls from any origin")
	flag.Parse()

	layout, err := paths.Resolve(*dataDir)
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}

	cfg, err := config.Load(layout.ProcessFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// The flag wins over the configured data dir; a configured dir relocates
	// the settings and jars but not the process file it was read from.
	if *dataDir == "" && cfg.Storage.DataDir != "" {
		layout, err = paths.Resolve(cfg.Storage.DataDir)
		if err != nil {
			log.Fatalf("Failed to resolve data directory: %v", err)
		}
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *debug {
		cfg.Logging.Debug = true
	}
	if *allowAnyOrigin {
		cfg.CORS.AllowAnyOrigin = true
	}

	logger, err := logging.New(logging.Config{
		Level: cfg.Logging.Level,
		Debug: cfg.Logging.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv, err := server.New(cfg, layout, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// The pair code goes to the console, not just the structured log: the
	// user has to read it into the client to finish pairing.
	fmt.Printf("Pairing code: %s\n", srv.PairCode())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully")
		if err := srv.Close(); err != nil {
			logger.Warn("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("Server error", zap.Error(err))
	}
}
