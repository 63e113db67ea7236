package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"matrixdesk/app/api"
	"matrixdesk/app/cache"
	"matrixdesk/app/logger"
	"matrixdesk/app/settings"
)

// Config wires an App. Presenter and Logger default to no-ops.
type Config struct {
	Settings   settings.Settings
	Presenter  Presenter
	Logger     *logger.Logger
	HTTPClient *http.Client
}

// App struct
type App struct {
	ctx context.Context

	settings  settings.Settings
	presenter Presenter
	log       *logger.Logger
	client    *api.Client

	// Loaded matrices, one tab per file load
	tabsMu      sync.RWMutex
	tabs        map[string]*MatrixTab
	activeTabID string
	nextTabID   int64

	// parsed grids keyed by content hash and load options
	gridCache *cache.Cache
}

// NewApp creates a new App from effective settings.
func NewApp(cfg Config) (*App, error) {
	s := cfg.Settings
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	presenter := cfg.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}

	client, err := api.New(api.Config{
		BaseURL:    s.ServerURL,
		Timeout:    time.Duration(s.RequestTimeoutSeconds) * time.Second,
		InstanceID: s.InstanceID,
		HTTPClient: cfg.HTTPClient,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	app := &App{
		ctx:       context.Background(),
		settings:  s,
		presenter: presenter,
		log:       log,
		client:    client,
		tabs:      make(map[string]*MatrixTab),
	}
	app.gridCache = cache.NewCacheWithLogger(int64(s.CacheSizeLimitMB)*1024*1024, app)
	return app, nil
}

// Startup stores the context every operation derives from.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
}

// Ctx returns the app context
func (a *App) Ctx() context.Context {
	return a.ctx
}

// Log writes through the structured logger; the cache logs through this.
func (a *App) Log(level, message string) {
	if a == nil || a.log == nil {
		return
	}
	a.log.Log(level, message)
}

// Client exposes the API client, mostly for its session.
func (a *App) Client() *api.Client {
	return a.client
}

// Settings returns the settings the App was built with.
func (a *App) Settings() settings.Settings {
	return a.settings
}

// ClearCache drops every cached grid.
func (a *App) ClearCache() {
	a.gridCache.Clear()
	a.Log("debug", "Cleared grid cache")
}

// UpdateCacheSize updates the grid cache size limit.
func (a *App) UpdateCacheSize(limitMB int) {
	newSizeBytes := int64(limitMB) * 1024 * 1024
	a.gridCache.UpdateMaxSize(newSizeBytes)
	a.settings.CacheSizeLimitMB = limitMB
	a.Log("debug", fmt.Sprintf("Updated cache size limit to %d MB (%d bytes)", limitMB, newSizeBytes))
}

// GetCacheStats returns the grid cache statistics.
func (a *App) GetCacheStats() cache.CacheStats {
	return a.gridCache.GetCacheStats()
}

// busy shows the wait indicator around a blocking server call.
func (a *App) busy(label string) func() {
	return a.presenter.ShowBusy(label)
}

// report sends an operation failure to the presenter and returns it.
func (a *App) report(op string, err error) error {
	if err == nil {
		return nil
	}
	level := LevelError
	if errors.Is(err, context.Canceled) {
		level = LevelWarn
	}
	a.presenter.Notify(level, fmt.Sprintf("%s: %s", op, describe(err)))
	a.log.Warn("operation failed", "op", op, "error", err)
	return err
}

// describe turns errors into the message a user sees.
func describe(err error) string {
	var se *api.ServerError
	var ne *api.NetworkError
	var ve *api.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &se):
		return se.Detail
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.As(err, &ne):
		return fmt.Sprintf("could not reach the server: %v", ne.Err)
	default:
		return err.Error()
	}
}
