package main

import (
	"os"
	"os/signal"
	"syscall"

	"shadowplay/internal/config"
	"shadowplay/internal/server"
	"shadowplay/internal/store"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	// Reconfigure the logger from the loaded config
	if err := cfg.Logging.Apply(logger); err != nil {
		logger.WithError(err).Fatal("Error configuring logging")
	}

	// Check if materials directory exists
	if _, err := os.Stat(cfg.Materials.LibraryPath); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Materials.LibraryPath).Fatal("Materials directory does not exist. Please create it and add your listening materials.")
	}

	// Initialize material store
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing store")
	}
	defer st.Close()

	// Create and configure the practice server
	practiceServer, err := server.NewPracticeServer(cfg, st, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating practice server")
	}

	// Scan the materials library
	if err := practiceServer.ScanLibrary(); err != nil {
		logger.WithError(err).Fatal("Error scanning materials library")
	}

	// Warn when the library came up empty
	if cfg.Materials.ScanOnStartup {
		list, err := st.ListMaterials()
		if err != nil {
			logger.WithError(err).Warn("Could not get material count")
		} else if len(list) == 0 {
			logger.WithField("supported_formats", cfg.Materials.SupportedFormats).Warn("No materials found in library directory")
		}
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := practiceServer.Start(); err != nil {
			logger.WithError(err).Fatal("Server error")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	practiceServer.Shutdown()
}
