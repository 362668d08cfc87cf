package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"

	"ipv4intel/internal/config"
	"ipv4intel/internal/engine"
	"ipv4intel/internal/ipcheck"
	"ipv4intel/internal/reporter"
	"ipv4intel/internal/resolver"
	"ipv4intel/internal/server"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "ipintel")

	if err := config.LoadDotEnv(); err != nil {
		bootLogger.Error("Dotenv load failed",
			"error_detail", err.Error(),
		)
		os.Exit(1)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger.Error("Config invalid",
			"error_detail", err.Error(),
		)
		os.Exit(1)
	}

	logger := newLogger(cfg).With("service", "ipintel")
	slog.SetDefault(logger)

	logger.Info("ipintel process starting",
		"module", "server.handler",
		"phase", "startup",
		"port", cfg.Port,
		"dns_server", cfg.DNSServer,
		"zone_count", len(cfg.Zones),
		"go_version", runtime.Version(),
	)

	var res resolver.Resolver = resolver.System()
	if cfg.DNSServer != "" {
		res = resolver.NewClient(cfg.DNSServer, cfg.DNSTimeout(), logger)
	}

	var geo ipcheck.GeoLocator
	if cfg.GeoDBPath != "" {
		mmdb, err := ipcheck.OpenMMDBGeoLocator(cfg.GeoDBPath, logger)
		if err != nil {
			logger.Error("GeoIP database open failed",
				"module", "ipcheck.geoip",
				"path", cfg.GeoDBPath,
				"error_detail", err.Error(),
			)
			os.Exit(1)
		}
		defer mmdb.Close()
		geo = mmdb
	} else {
		geo = ipcheck.NewHTTPGeoLocator(cfg.GeoAPIURL, cfg.RequestTimeout(), logger)
	}

	reputation := ipcheck.NewReputation(res, cfg.Zones, logger)
	network := ipcheck.NewASNResolver(res, logger)
	hostnames := ipcheck.NewHostnames(res, logger)

	inspector := engine.NewInspector(reputation, network, geo, hostnames, logger)
	scheduler := engine.NewScheduler(cfg.MaxParallel, inspector,
		reporter.NewCallbackReporter(cfg.CallbackTimeout(), logger), logger)

	h := server.NewHandler(server.Options{
		Reputation:     reputation,
		Network:        network,
		Geo:            geo,
		Hostnames:      hostnames,
		Inspector:      inspector,
		Scheduler:      scheduler,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout(),
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("ipintel server started",
			"module", "server.handler",
			"phase", "startup",
			"port", cfg.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ipintel server failed",
				"module", "server.handler",
				"error_detail", err.Error(),
			)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	logger.Info("ipintel server shutdown",
		"module", "server.handler",
		"signal", sig.String(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error",
			"module", "server.handler",
			"error_detail", err.Error(),
		)
	}
}

// newLogger returns a JSON logger, or a human readable one for LOG_FORMAT=text
func newLogger(cfg config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)

	if cfg.LogFormat == "text" {
		h := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           charmLevel(level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		})
		return slog.New(h)
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func charmLevel(level slog.Level) charmlog.Level {
	switch level {
	case slog.LevelDebug:
		return charmlog.DebugLevel
	case slog.LevelWarn:
		return charmlog.WarnLevel
	case slog.LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
