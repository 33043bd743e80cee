// Package http serves derived summaries as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"buestanflow/internal/cache"
	applog "buestanflow/internal/log"
	"buestanflow/internal/middleware/ratelimit"
	"buestanflow/internal/middleware/security"
	"buestanflow/internal/middleware/trace"
	"buestanflow/internal/services"
)

// ReadyFunc reports whether the record store can serve reads.
type ReadyFunc func(ctx context.Context) error

// Options wires the server to its summary source and policies.
type Options struct {
	Summaries  *cache.SummaryCache
	Ready      ReadyFunc           // optional
	AlertOrder services.AlertOrder // default when ?order= is absent
	RateLimit  ratelimit.Config
	Logger     *applog.Logger
	Now        func() time.Time // period default; time.Now when nil
}

const (
	readyTimeout = 2 * time.Second
	buildTimeout = 20 * time.Second
)

type Server struct {
	http.Server

	summaries    *cache.SummaryCache
	ready        ReadyFunc
	defaultOrder services.AlertOrder
	logger       *applog.Logger
	now          func() time.Time

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AlertOrder == "" {
		opts.AlertOrder = services.OrderSource
	}

	s := &Server{
		summaries:    opts.Summaries,
		ready:        opts.Ready,
		defaultOrder: opts.AlertOrder,
		logger:       logger,
		now:          opts.Now,
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		detector:     security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/products", s.handleProducts)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)

	// Outermost first: tracing sees every response, including 429s
	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(h)
	h = applog.Middleware(logger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, errorJSON{
		Error: "rate limit exceeded, retry later",
		Type:  "rate_limited",
	})
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
		s.limiter.Stop()
	})
	return err
}

// Close releases background resources without serving; for tests and
// servers that never called ListenAndServe.
func (s *Server) Close() {
	s.shutdownOnce.Do(s.limiter.Stop)
}

// Metrics exposes the request counters kept by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
