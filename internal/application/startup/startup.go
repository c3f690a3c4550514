// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hutfut/joshbot-go/internal/application/container"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/cleanup"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/presentation/http/server"
	"github.com/hutfut/joshbot-go/pkg/config"
)

// Initialize performs the complete gateway startup sequence and blocks until
// shutdown.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `

   _           _     _           _
  (_) ___  ___| |__ | |__   ___ | |_
  | |/ _ \/ __| '_ \| '_ \ / _ \| __|
  | | (_) \__ \ | | | |_) | (_) | |_
 _/ |\___/|___/_| |_|_.__/ \___/ \__|
|__/
` + "\033[97m" + `
  the josh-bot chat gateway
` + "\033[0m")

	// Step 1: Create the channeled logger
	log.Println("Initializing channeled logging...")
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	// Step 2: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer, err := container.NewContainer(logger)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer appContainer.Close()
	logger.Startup().Info("Container initialized",
		"durableAdmission", appContainer.DurableAdmission,
		"auditTrail", appContainer.AuditRepository != nil,
		"providerAvailable", appContainer.Provider.Available())

	// Step 3: Start background cleanup worker
	logger.Startup().Info("Starting background cleanup worker...")
	cleanupConfig := cleanup.NewConfig(config.CleanupInterval, config.CleanupVerbose)
	cleanupWorker := cleanup.NewWorker(appContainer.ConversationStore, appContainer.MemoryLimiter, cleanupConfig, logger)
	go cleanupWorker.Start(ctx)

	// Step 4: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Gateway startup complete",
		"totalDuration", time.Since(start), "port", config.Port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	shutdownStart := time.Now()

	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Gateway shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
