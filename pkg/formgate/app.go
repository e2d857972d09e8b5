package formgate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/formgate/server/internal/antispam"
	"github.com/formgate/server/internal/captcha"
	"github.com/formgate/server/internal/circuitbreaker"
	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/httpserver"
	"github.com/formgate/server/internal/lifecycle"
	"github.com/formgate/server/internal/logger"
	"github.com/formgate/server/internal/metrics"
	"github.com/formgate/server/internal/nonce"
	"github.com/formgate/server/internal/notify"
	"github.com/formgate/server/internal/storage"
	"github.com/formgate/server/internal/token"
)

// App wires the formgate components for reuse or standalone serving.
type App struct {
	Config   *config.Config
	Store    storage.Store
	Signer   *token.Signer
	Nonces   nonce.Store
	Checker  *antispam.Checker
	Notifier notify.Notifier

	router           chi.Router
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
}

// Option configures App construction.
type Option func(*options)

type options struct {
	store    storage.Store
	notifier notify.Notifier
	nonces   nonce.Store
	router   chi.Router
	registry prometheus.Registerer
}

// WithStore sets a custom submission storage backend.
func WithStore(store storage.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithNotifier injects a submission notifier.
func WithNotifier(notifier notify.Notifier) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

// WithNonceStore injects a custom replay protection store. Deployments that
// run multiple instances behind a balancer need a shared store here; the
// default in-memory one only protects a single process.
func WithNonceStore(store nonce.Store) Option {
	return func(o *options) {
		o.nonces = store
	}
}

// WithRouter allows callers to provide an existing chi.Router to register routes onto.
func WithRouter(router chi.Router) Option {
	return func(o *options) {
		o.router = router
	}
}

// WithMetricsRegistry sets the Prometheus registerer used for metrics.
func WithMetricsRegistry(registry prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// NewApp assembles the formgate services for embedding.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("formgate: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
	}

	registry := optState.registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	metricsCollector := metrics.New(registry)
	app.metricsCollector = metricsCollector

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "formgate-embedded",
		Environment: cfg.Logging.Environment,
	})

	if optState.store != nil {
		app.Store = optState.store
	} else {
		store, err := storage.NewStore(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init submission store: %w", err)
		}
		app.Store = store
		app.resourceManager.Register("submission-store", store)
		if cfg.Storage.Backend == "memory" {
			log.Warn().
				Msg("formgate: using in-memory submission store, accepted submissions are lost on restart")
		}
	}

	app.Signer = token.New(cfg.Security.TokenSecret)
	if !app.Signer.Enforced() {
		log.Warn().
			Msg("formgate: no token secret configured, token and replay checks are skipped")
	}

	if optState.nonces != nil {
		app.Nonces = optState.nonces
	} else {
		store := nonce.NewMemoryStoreWithSize(cfg.Security.NonceLimit)
		app.Nonces = store
		app.resourceManager.RegisterFunc("nonce-store", func() error {
			store.Stop()
			return nil
		})
	}

	breakers := circuitbreaker.NewManagerFromConfig(cfg.Breaker)
	verifier := captcha.NewVerifier(cfg.Captcha, breakers, metricsCollector)

	if optState.notifier != nil {
		app.Notifier = optState.notifier
	} else {
		app.Notifier = notify.New(cfg.Notify, cfg.Forms,
			notify.WithLogger(appLogger),
			notify.WithBreakers(breakers),
			notify.WithMetrics(metricsCollector),
		)
	}

	app.Checker = antispam.NewChecker(antispam.Options{
		Security: cfg.Security,
		Signer:   app.Signer,
		Nonces:   app.Nonces,
		Verifier: verifier,
		Metrics:  metricsCollector,
		Logger:   appLogger,
	})

	if optState.router != nil {
		app.router = optState.router
	} else {
		app.router = chi.NewRouter()
	}

	httpserver.ConfigureRouter(app.router, httpserver.Options{
		Config:   cfg,
		Signer:   app.Signer,
		Checker:  app.Checker,
		Store:    app.Store,
		Notifier: app.Notifier,
		Metrics:  metricsCollector,
		Logger:   appLogger,
	})

	return app, nil
}

// Router returns the chi router with formgate routes registered.
func (a *App) Router() chi.Router {
	return a.router
}

// Handler exposes the router as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Metrics returns the app's metrics collector.
func (a *App) Metrics() *metrics.Metrics {
	return a.metricsCollector
}

// Close releases resources owned by the app (stores, nonce cleanup, etc).
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// NewHandler is a convenience that constructs an App and returns its handler.
func NewHandler(cfg *config.Config, opts ...Option) (http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Handler(), shutdown, nil
}

// Config is an exported alias of the internal configuration struct for embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding formgate.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
