package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/docstore/config"
	"github.com/timzifer/docstore/driver"
	mongodrv "github.com/timzifer/docstore/drivers/mongo"
	postgresdrv "github.com/timzifer/docstore/drivers/postgres"
	redisdrv "github.com/timzifer/docstore/drivers/redis"
	"github.com/timzifer/docstore/internal/logging"
	"github.com/timzifer/docstore/registry"
	"github.com/timzifer/docstore/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	configCheck := flag.Bool("config-check", false, "Validate configuration and exit")
	check := flag.Bool("check", false, "Connect every configured client once, then disconnect and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *configCheck {
		fmt.Printf("configuration valid: %d clients\n", len(cfg.Clients))
		return
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer cleanup()

	reg, err := buildRegistry(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build registry")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *check {
		if err := runCheck(ctx, reg, logger); err != nil {
			logger.Error().Err(err).Msg("connectivity check failed")
			os.Exit(1)
		}
		logger.Info().Msg("connectivity check passed")
		return
	}

	if cfg.Telemetry.Enabled {
		go serveMetrics(cfg.Telemetry.Listen, logger)
	}

	for _, name := range reg.Names() {
		if _, err := reg.Connect(ctx, name); err != nil {
			logger.Error().Err(err).Str("client", name).Msg("initial connect failed")
		}
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := reg.DisconnectAll(shutdownCtx, false); err != nil {
		logger.Error().Err(err).Msg("shutdown left connections in an undefined state")
		os.Exit(1)
	}
}

func buildRegistry(cfg *config.Config, logger zerolog.Logger) (*registry.Registry, error) {
	mux := driver.NewMux()
	for scheme, drv := range map[string]driver.Driver{
		"mongodb":     mongodrv.New(),
		"mongodb+srv": mongodrv.New(),
		"redis":       redisdrv.New(),
		"rediss":      redisdrv.New(),
		"postgres":    postgresdrv.New(),
		"postgresql":  postgresdrv.New(),
	} {
		if err := mux.Register(scheme, drv); err != nil {
			return nil, err
		}
	}

	collector := telemetry.Collector(telemetry.Noop())
	if cfg.Telemetry.Enabled {
		promCollector, err := telemetry.NewPrometheusCollector(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("set up telemetry: %w", err)
		}
		collector = promCollector
	}

	reg, err := registry.New(mux,
		registry.WithDefaults(registry.Config{URI: cfg.Defaults.URI, Options: cfg.Defaults.Options}),
		registry.WithLogger(logger),
		registry.WithCollector(collector),
	)
	if err != nil {
		return nil, err
	}
	for _, client := range cfg.Clients {
		if _, err := reg.Add(client.Name, registry.Config{URI: client.URI, Options: client.Options}); err != nil {
			return nil, fmt.Errorf("register client %s: %w", client.Name, err)
		}
	}
	return reg, nil
}

func runCheck(ctx context.Context, reg *registry.Registry, logger zerolog.Logger) error {
	var errs []error
	for _, name := range reg.Names() {
		if _, err := reg.Connect(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info().Str("client", name).Msg("client reachable")
	}
	if err := reg.DisconnectAll(ctx, false); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func serveMetrics(listen string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info().Str("listen", listen).Msg("serving metrics")
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error().Err(err).Msg("metrics endpoint failed")
	}
}
