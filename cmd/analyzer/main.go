// Command analyzer runs the options strategy analysis engine: it reads an
// extracted-positions file, classifies strategies, computes risk and wheel
// metrics, and prints the report as JSON. With the dashboard enabled it also
// serves the analysis API over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/wheelhouse/internal/analyzer"
	"github.com/eddiefleurent/wheelhouse/internal/config"
	"github.com/eddiefleurent/wheelhouse/internal/dashboard"
	"github.com/eddiefleurent/wheelhouse/internal/greeks"
	"github.com/eddiefleurent/wheelhouse/internal/ratelimit"
	"github.com/eddiefleurent/wheelhouse/internal/storage"
)

func main() {
	var (
		configPath string
		inputPath  string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	flag.StringVar(&inputPath, "input", "", "Path to JSON file with extracted legs and account snapshot")
	flag.BoolVar(&serve, "serve", false, "Serve the analysis API (overrides dashboard.enabled)")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Environment.LogLevel)

	// The persistent store failing to open is the one systemic error that
	// surfaces; everything downstream degrades instead of crashing.
	store, err := storage.New(cfg.Cache.Backend, cfg.Cache.Path, logger)
	if err != nil {
		logger.Fatalf("Failed to open cache store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("closing cache store: %v", err)
		}
	}()

	limiter, err := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.Window(),
	}, nil)
	if err != nil {
		logger.Fatalf("Failed to build rate limiter: %v", err)
	}

	var provider greeks.Provider
	if cfg.Provider.APIKey != "" {
		httpProvider := greeks.NewHTTPProvider(cfg.Provider.APIKey, cfg.Provider.APIEndpoint,
			&http.Client{Timeout: cfg.RequestTimeout()})
		provider = greeks.NewCircuitBreakerProvider(httpProvider, logger)
	}

	cache := greeks.NewCache(store, greeks.CachePolicy{
		StaleAfter:  cfg.StaleAfter(),
		ExpireAfter: cfg.ExpireAfter(),
	}, logger)

	var fetcher *greeks.Fetcher
	if provider != nil {
		fetcher = greeks.NewFetcher(provider, cache, limiter, logger, greeks.FetcherConfig{
			RequestTimeout: cfg.RequestTimeout(),
		})
	} else {
		logger.Warn("no provider api_key configured; Greeks-dependent fields will be unavailable")
	}

	engine := analyzer.New(fetcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var report *analyzer.Report
	if inputPath != "" {
		report, err = runOnce(ctx, engine, inputPath)
		if err != nil {
			logger.Fatalf("Analysis failed: %v", err)
		}
	}

	if !serve && !cfg.Dashboard.Enabled {
		if inputPath == "" {
			logger.Fatal("nothing to do: pass -input and/or enable the dashboard")
		}
		return
	}

	server := dashboard.NewServer(dashboard.Config{
		Port:      cfg.Dashboard.Port,
		AuthToken: cfg.Dashboard.AuthToken,
	}, engine, logger)
	if report != nil {
		server.SetReport(report)
	}

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("server shutdown: %v", err)
		}
		cancel()
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			return config.Load("config.yaml")
		}
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	return logger
}

// runOnce analyzes one input file and prints the report to stdout.
func runOnce(ctx context.Context, engine *analyzer.Analyzer, inputPath string) (*analyzer.Report, error) {
	raw, err := os.ReadFile(inputPath) // #nosec G304 -- inputPath is a user-provided file path
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}

	var input analyzer.Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("parsing input file: %w", err)
	}

	report, err := engine.Run(ctx, input)
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	fmt.Println(string(out))
	return report, nil
}
