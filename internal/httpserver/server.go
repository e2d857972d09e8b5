package httpserver

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/formgate/server/internal/antispam"
	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/logger"
	"github.com/formgate/server/internal/metrics"
	"github.com/formgate/server/internal/notify"
	"github.com/formgate/server/internal/ratelimit"
	"github.com/formgate/server/internal/storage"
	"github.com/formgate/server/internal/token"
)

var serverStartTime = time.Now()

type handlers struct {
	cfg      *config.Config
	signer   *token.Signer
	checker  *antispam.Checker
	store    storage.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// Options collects the dependencies of the HTTP surface.
type Options struct {
	Config   *config.Config
	Signer   *token.Signer
	Checker  *antispam.Checker
	Store    storage.Store
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

func newHandlers(opts Options) handlers {
	n := opts.Notifier
	if n == nil {
		n = notify.NoopNotifier{}
	}
	return handlers{
		cfg:      opts.Config,
		signer:   opts.Signer,
		checker:  opts.Checker,
		store:    opts.Store,
		notifier: n,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// ConfigureRouter attaches formgate routes to an existing router.
func ConfigureRouter(router chi.Router, opts Options) {
	if router == nil {
		return
	}

	cfg := opts.Config
	handler := newHandlers(opts)

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Security headers middleware (applied first for all responses)
	router.Use(securityHeadersMiddleware)

	// Structured logging middleware (BEFORE RequestID for context propagation)
	router.Use(logger.Middleware(opts.Logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	rateLimitCfg := ratelimit.FromConfig(cfg.RateLimit, opts.Metrics)
	router.Use(ratelimit.GlobalLimiter(rateLimitCfg))
	router.Use(ratelimit.IPLimiter(rateLimitCfg))

	// Lightweight endpoints with a short timeout
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/healthz", handler.health)
		r.With(adminAuth(cfg.Server.AdminAPIKey)).Handle("/metrics", promhttp.Handler())
	})

	// Form endpoints. The CAPTCHA round trip dominates the submission
	// path, so the timeout leaves headroom over the siteverify budget.
	router.Route("/v1/forms/{form}", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(ratelimit.FormLimiter(rateLimitCfg))

		r.Get("/token", handler.mintToken)
		r.Post("/submissions", handler.createSubmission)
		r.With(adminAuth(cfg.Server.AdminAPIKey)).Get("/submissions", handler.listSubmissions)
		r.With(adminAuth(cfg.Server.AdminAPIKey)).Get("/submissions/{id}", handler.getSubmission)
	})
}
