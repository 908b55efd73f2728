package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"difychat/src/app"
	"difychat/src/config"
	"difychat/src/logging"
	"difychat/src/models"
	"difychat/src/services/storage"
	"difychat/src/services/storage/repositories"
	"difychat/src/services/stream"
)

// runtime is everything a command needs once config is resolved.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	history  *repositories.HistoryRepository
	users    *repositories.UserRepository
	keys     *repositories.APIKeyRepository
	closers  []func() error
	registry *prometheus.Registry
}

// openRuntime loads config, applies flag overrides and opens the store.
// defaultSink is used when neither flags nor config name a log sink.
func openRuntime(opts *options, defaultSink string) (*runtime, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.store != "" {
		cfg.Storage.Backend = opts.store
	}
	if opts.dataDir != "" {
		cfg.Storage.DataDir = opts.dataDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logSink != "" {
		cfg.Logging.Sink = opts.logSink
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sink := cfg.Logging.Sink
	if sink == "" {
		sink = defaultSink
		if sink == "" {
			sink = cfg.LogFile()
		}
	}
	logger, closeLog := logging.Init(cfg.Logging.Level, sink)

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.DataDir)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	logger.Debug("store opened", "backend", cfg.Storage.Backend, "data_dir", cfg.Storage.DataDir)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		history:  repositories.NewHistoryRepository(store, logger),
		users:    repositories.NewUserRepository(store),
		keys:     repositories.NewAPIKeyRepository(store),
		closers:  []func() error{store.Close, closeLog},
		registry: prometheus.NewRegistry(),
	}, nil
}

func (rt *runtime) close() {
	for _, c := range rt.closers {
		if err := c(); err != nil {
			rt.logger.Warn("close failed", "error", err)
		}
	}
}

// credentials returns the base URL and API key to use. The configured key
// wins; otherwise the active saved key is used, along with its URL if set.
func (rt *runtime) credentials() (string, string, error) {
	if rt.cfg.API.Key != "" {
		return rt.cfg.API.BaseURL, rt.cfg.API.Key, nil
	}
	key, err := rt.keys.Active()
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			return "", "", fmt.Errorf("no API key configured: set DIFY_API_KEY or run 'difychat keys add'")
		}
		return "", "", err
	}
	baseURL := rt.cfg.API.BaseURL
	if key.URL != "" {
		baseURL = key.URL
	}
	return baseURL, key.Key, nil
}

// newApp builds the stream client and the application state owner.
func (rt *runtime) newApp() (*app.App, error) {
	baseURL, apiKey, err := rt.credentials()
	if err != nil {
		return nil, err
	}
	userID, err := rt.users.GetOrCreate()
	if err != nil {
		return nil, fmt.Errorf("load user id: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = rt.cfg.API.ResponseTimeout.Duration()
	client := stream.NewClient(stream.ClientConfig{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Transport: transport},
		Logger:     rt.logger,
		Metrics:    stream.NewMetrics(rt.registry),
	})
	rt.logger.Info("chat client ready", "base_url", baseURL, "user", userID)

	return app.New(app.Options{
		Streamer: client,
		History:  rt.history,
		UserID:   userID,
		Logger:   rt.logger,
	}), nil
}

// serveMetrics exposes the stream counters on cfg.Metrics.Addr when set.
func (rt *runtime) serveMetrics() {
	addr := rt.cfg.Metrics.Addr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	rt.logger.Info("metrics server listening", "addr", addr)
	rt.closers = append([]func() error{func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}}, rt.closers...)
}
