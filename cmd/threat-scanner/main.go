package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/di"
	"github.com/mikey/mail-threat-scanner/internal/ports"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	embedder core.Embedder,
	domainAgeCache core.DomainAgeCache,
) error {
	defer logger.Sync()

	// Start the filter
	if err := emailFilter.Start(); err != nil {
		logger.Fatal("Failed to start filter", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the filter
	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := embedder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close embedder", zap.Error(err))
		}
	}

	// Stop the cache if needed
	switch c := domainAgeCache.(type) {
	case interface{ Stop() error }:
		if err := c.Stop(); err != nil {
			logger.Error("Failed to stop cache", zap.Error(err))
		}
	case interface{ Stop() }:
		c.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
