package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/config"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/sink"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/transport"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist/bloom"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist/lru"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist/parsers"
	"github.com/haukened/pbdns-relay/internal/dns/services/mapper"
	"github.com/haukened/pbdns-relay/internal/dns/services/pipeline"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "pbdns-relayd"

	defaultDialTimeout     = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the relay
type Application struct {
	config     *config.AppConfig
	sink       sink.Sink
	ignore     *ignorelist.List
	dispatcher *pipeline.Dispatcher
	transports []transport.ServerTransport
	logger     log.Logger
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"listen":     cfg.Listen,
		"remote":     cfg.Remote,
		"dnstap":     cfg.Dnstap,
		"workers":    cfg.Workers,
		"queue_size": cfg.QueueSize,
	}, "Starting "+appName)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	app, err := buildApplication(ctx, cfg, os.Stdout)
	if err != nil {
		log.Error(map[string]any{"error": err}, "Failed to build application")
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error(map[string]any{"error": err}, "Relay failed")
		os.Exit(1)
	}

	log.Info(nil, appName+" stopped gracefully")
}

// buildApplication constructs all components and wires them together.
// Documents go to stdout unless cfg.Remote names a collector, which must be
// reachable now.
func buildApplication(ctx context.Context, cfg *config.AppConfig, stdout io.Writer) (*Application, error) {
	logger := log.GetLogger()

	ignore, err := buildIgnoreList(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build ignore list: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	out, err := sink.New(dialCtx, cfg.Remote, stdout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink: %w", err)
	}

	opts := pipeline.Options{
		Workers:       cfg.Workers,
		QueueSize:     cfg.QueueSize,
		StatsInterval: cfg.StatsInterval,
		Mapper:        mapper.New(),
		Sink:          out,
		Logger:        logger.With(map[string]any{"component": "pipeline"}),
	}
	if ignore.Len() > 0 {
		opts.Filter = ignore
	}
	dispatcher := pipeline.New(opts)

	transports, err := buildTransports(cfg, logger)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("failed to build transports: %w", err)
	}

	return &Application{
		config:     cfg,
		sink:       out,
		ignore:     ignore,
		dispatcher: dispatcher,
		transports: transports,
		logger:     logger,
	}, nil
}

// buildIgnoreList merges the configured ignore entries and the optional
// ignore file into one list.
func buildIgnoreList(cfg *config.AppConfig, logger log.Logger) (*ignorelist.List, error) {
	rules, err := parsers.ParseEntries(cfg.Ignore, "config", logger)
	if err != nil {
		return nil, err
	}

	if cfg.IgnoreFile != "" {
		fileRules, err := loadIgnoreFile(cfg.IgnoreFile, logger)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}

	cache, err := lru.New(cfg.IgnoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}

	list := ignorelist.New(rules, bloom.NewFactory(), cache, ignorelist.DefaultFPRate)
	if list.Len() > 0 {
		logger.Info(map[string]any{
			"rules":      list.Len(),
			"cache_size": cfg.IgnoreCacheSize,
		}, "Ignore list configured")
	}
	return list, nil
}

func loadIgnoreFile(path string, logger log.Logger) ([]domain.IgnoreRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer f.Close()

	rules, err := parsers.ParsePlainList(f, path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ignore file %s: %w", path, err)
	}
	return rules, nil
}

// buildTransports creates the PowerDNS protobuf listener and, when
// configured, the dnstap listener.
func buildTransports(cfg *config.AppConfig, logger log.Logger) ([]transport.ServerTransport, error) {
	pb, err := transport.NewTransport(transport.TransportPBDNS, cfg.Listen, logger)
	if err != nil {
		return nil, err
	}
	transports := []transport.ServerTransport{pb}

	if cfg.Dnstap != "" {
		tap, err := transport.NewTransport(transport.TransportDnstap, cfg.Dnstap, logger)
		if err != nil {
			return nil, err
		}
		transports = append(transports, tap)
	}
	return transports, nil
}

// Run starts the relay and blocks until ctx is cancelled or the sink fails.
// A sink failure is returned as an error.
func (app *Application) Run(ctx context.Context) error {
	app.dispatcher.Start(ctx)

	for _, t := range app.transports {
		if err := t.Start(ctx, app.dispatcher); err != nil {
			app.shutdown()
			return fmt.Errorf("failed to start transport: %w", err)
		}
		app.logger.Info(map[string]any{"address": t.Address()}, "listening")
	}

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info(nil, "Shutdown initiated")
	case err := <-app.dispatcher.Fatal():
		runErr = fmt.Errorf("forwarding failed: %w", err)
	case <-app.sink.Done():
		runErr = fmt.Errorf("forwarding failed: %w", app.sink.Err())
	}

	app.shutdown()
	return runErr
}

// shutdown stops the transports, drains the dispatcher into the sink and
// closes the sink. Draining is bounded by defaultShutdownTimeout.
func (app *Application) shutdown() {
	done := make(chan struct{})
	go func() {
		for _, t := range app.transports {
			if err := t.Stop(); err != nil {
				app.logger.Warn(map[string]any{"error": err}, "Error during transport shutdown")
			}
		}
		app.dispatcher.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(defaultShutdownTimeout):
		app.logger.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
	}

	if err := app.sink.Close(); err != nil {
		app.logger.Warn(map[string]any{"error": err}, "Error closing sink")
	}

	stats := app.dispatcher.Stats()
	fields := map[string]any{
		"received":      stats.Received,
		"forwarded":     stats.Forwarded,
		"ignored":       stats.Ignored,
		"decode_errors": stats.DecodeErrors,
		"map_errors":    stats.MapErrors,
	}
	if app.ignore.Len() > 0 {
		is := app.ignore.Stats()
		fields["ignore_cache_hits"] = is.Hits
		fields["ignore_cache_misses"] = is.Misses
	}
	app.logger.Info(fields, "Shutdown completed")
}
