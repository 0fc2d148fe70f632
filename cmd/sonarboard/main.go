package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"sonarboard/internal/config"
	"sonarboard/internal/database"
	"sonarboard/internal/metrics"
	"sonarboard/internal/monitoring"
	"sonarboard/internal/netutil"
	"sonarboard/internal/sonar"
	"sonarboard/internal/suppression"
	"sonarboard/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path (optional)")
	envFile := flag.String("env", ".env", "Dotenv file loaded before reading the environment")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Sonarboard %s\nCommit: %s\nBuilt: %s\n", web.Version, web.GitCommit, web.BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"addr":        cfg.Server.Addr(),
		"database":    cfg.Database.Type,
	}).Info("Starting Sonarboard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Suppression record
	backend, err := database.Open(cfg.Database.Type, cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer backend.Close()

	suppressions, err := suppression.Open(ctx, backend)
	if err != nil {
		logrus.Fatalf("Failed to load suppressions: %v", err)
	}

	metricsCollector := metrics.NewCollector(suppressions)
	metricsCollector.UpdateSystemMetrics()

	// Upstream client
	client, err := sonar.NewClient(cfg.Sonar.Endpoint, cfg.Sonar.Token, cfg.Sonar.Timeout,
		sonar.WithUserAgent("sonarboard/"+web.Version))
	if err != nil {
		logrus.Fatalf("Failed to initialize Sonar client: %v", err)
	}
	logrus.WithField("endpoint", client.Endpoint()).Info("Sonar client ready")

	engine := monitoring.NewEngine(cfg, client, suppressions, metricsCollector)
	webServer := web.NewServer(cfg, engine.Aggregator(), suppressions, metricsCollector)

	if err := webServer.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}
	logListenURLs(cfg.Server)

	if err := engine.Start(ctx, webServer); err != nil {
		logrus.Fatalf("Failed to start aggregation engine: %v", err)
	}
	if cfg.Monitoring.RefreshInterval <= 0 {
		// No scheduler to warm the caches, so do it once in the background.
		go func() {
			if err := engine.RefreshAll(ctx); err != nil {
				logrus.WithError(err).Warn("Initial cache warm-up failed")
			}
		}()
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	engine.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Web server did not shut down cleanly")
	}

	logrus.Info("Shutdown complete")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

func logListenURLs(server config.ServerConfig) {
	ips, err := netutil.LANIPv4s()
	if err != nil {
		logrus.WithError(err).Warn("Failed to list network interfaces")
		return
	}
	if len(ips) == 0 {
		logrus.Info("No LAN IPv4 address found")
		return
	}
	for _, url := range netutil.URLs(ips, server.Port) {
		logrus.WithField("url", url).Info("Reachable on LAN")
	}
}
