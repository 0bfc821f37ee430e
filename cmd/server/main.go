package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/igorofyeshuasete/authgate/adapter/inbound/rest"
	"github.com/igorofyeshuasete/authgate/adapter/inbound/websocket"
	"github.com/igorofyeshuasete/authgate/adapter/outbound/crypto"
	"github.com/igorofyeshuasete/authgate/adapter/outbound/filewatcher"
	"github.com/igorofyeshuasete/authgate/adapter/outbound/logging"
	"github.com/igorofyeshuasete/authgate/adapter/outbound/machineid"
	"github.com/igorofyeshuasete/authgate/adapter/outbound/storage"
	"github.com/igorofyeshuasete/authgate/adapter/outbound/storage/memory"
	"github.com/igorofyeshuasete/authgate/config"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
	"github.com/igorofyeshuasete/authgate/domain/service"
)

const version = "1.0.0"

func main() {
	var configPath string
	var generateConfig bool
	var showVersion bool
	var resetAdmin bool

	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.BoolVar(&generateConfig, "generate-config", false, "Generate default configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&resetAdmin, "reset-admin", false, "Reset the admin password to the configured default and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("authgate %s\n", version)
		os.Exit(0)
	}

	if generateConfig {
		if err := config.SaveConfig(config.DefaultConfig(), configPath); err != nil {
			fmt.Printf("Error generating config file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration file generated at: %s\n", configPath)
		os.Exit(0)
	}

	// secrets may come from a local .env file
	godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Config not loaded (%v), using defaults", err)
		cfg = config.DefaultConfig()
		config.ApplyEnvOverrides(cfg)
	}

	if err := os.MkdirAll(cfg.General.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger := logging.NewSlogAdapter(cfg)
	logger.Info("starting authgate", "version", version, "data_dir", cfg.General.DataDir)

	cryptoService := crypto.NewArgon2CryptoService(crypto.Argon2Params{
		Time:        uint32(cfg.Auth.Argon2.Time),
		MemoryKB:    uint32(cfg.Auth.Argon2.MemoryKB),
		Parallelism: uint8(cfg.Auth.Argon2.Parallelism),
	})
	machineIDService := machineid.NewHardwareMachineID()

	userRepo, err := storage.NewSecureUserRepository(cfg.UsersPath(), cryptoService, machineIDService, logger)
	if err != nil {
		log.Fatalf("Failed to initialize user store: %v", err)
	}

	maxAttempts := cfg.Auth.MaxFailedAttempts
	window := time.Duration(cfg.Auth.LockoutWindowMinutes) * time.Minute

	var lockout outbound.LockoutTracker
	switch strings.ToLower(cfg.Storage.LockoutBackend) {
	case "memory":
		lockout = memory.NewLockoutTracker(maxAttempts, window)
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteLockoutStore(cfg.LockoutPath(), maxAttempts, window, logger)
		if err != nil {
			log.Fatalf("Failed to initialize sqlite lockout store: %v", err)
		}
		defer sqliteStore.Close()
		lockout = sqliteStore
	default:
		lockout, err = storage.NewCSVLockoutStore(cfg.LockoutPath(), maxAttempts, window, logger)
		if err != nil {
			log.Fatalf("Failed to initialize lockout store: %v", err)
		}
	}

	auditLog, err := storage.NewCSVAuditLog(cfg.AuditPath(), logger)
	if err != nil {
		log.Fatalf("Failed to initialize audit log: %v", err)
	}

	auditHub := websocket.NewAuditStreamHub(logger)
	audit := websocket.NewBroadcastAuditLog(auditLog, auditHub)

	authService := service.NewAuthService(
		userRepo,
		lockout,
		audit,
		cryptoService,
		logger,
		service.NewSystemClock(),
		cfg.HTTP.JWT.Secret,
		cfg.HTTP.JWT.ExpirationMinutes,
		cfg.Auth.DefaultAdminPassword,
	)

	if resetAdmin {
		if err := authService.ResetAdminPassword(); err != nil {
			fmt.Printf("Failed to reset admin password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Admin password reset to configured default")
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// external edits to the user store drop the in-memory copy
	watcher, err := filewatcher.NewFSWatcher()
	if err != nil {
		logger.Error("file watcher unavailable", "error", err)
	} else {
		if err := watcher.Watch(ctx, userRepo.Path()); err != nil {
			logger.Error("failed to watch user store", "error", err)
		}
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events():
					if !ok {
						return
					}
					logger.Info("user store changed on disk", "path", event.FilePath, "event", event.EventType)
					authService.InvalidateCache()
				case err, ok := <-watcher.Errors():
					if !ok {
						return
					}
					logger.Warn("file watcher error", "error", err)
				}
			}
		}()
		defer watcher.Stop()
	}

	authHandler := rest.NewAuthHandler(authService, logger)
	authMiddleware := rest.NewAuthMiddleware(authService, logger)
	router := rest.NewRouter(authHandler, authMiddleware, auditHub)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", addr, "tls", cfg.HTTP.TLS)
		var err error
		if cfg.HTTP.TLS {
			err = server.ListenAndServeTLS(cfg.HTTP.CertFile, cfg.HTTP.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if slogAdapter, ok := logger.(*logging.SlogAdapter); ok {
		slogAdapter.Shutdown()
	}
}
