package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/cors"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/recovery"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on.
type Deps struct {
	Auth         *services.AuthService
	References   *services.ReferenceService
	Transactions *services.TransactionService
	Store        Pinger
	Logger       *log.Logger
}

// Options tune the transport layer.
type Options struct {
	// SecureCookies sets the Secure attribute on the session cookie.
	SecureCookies      bool
	FrontendURL        string
	RateLimitPerMinute int
	CacheCleanup       time.Duration
}

type appMetrics struct {
	uptime              time.Time
	transactionsWritten int64
	authFailures        int64
}

// Server is the JSON API. It embeds http.Server so callers use
// ListenAndServe and Shutdown directly.
type Server struct {
	http.Server

	auth         *services.AuthService
	refs         *services.ReferenceService
	transactions *services.TransactionService
	store        Pinger
	logger       *log.Logger

	secureCookies bool

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.CacheCleanup <= 0 {
		opts.CacheCleanup = 10 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		auth:          deps.Auth,
		refs:          deps.References,
		transactions:  deps.Transactions,
		store:         deps.Store,
		logger:        logger.WithComponent(log.ComponentHTTP),
		secureCookies: opts.SecureCookies,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		securityDetector: security.NewDetector(),
		cacheManager:     cache.NewManager(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	if s.refs != nil {
		s.refs.RegisterCaches(s.cacheManager)
	}
	s.cacheManager.StartCleanup(opts.CacheCleanup)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = cors.Middleware(cors.DefaultConfig(opts.FrontendURL))(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = recovery.Recoverer(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

// routes registers every endpoint both at the root and under /api.
func (s *Server) routes(mux *http.ServeMux) {
	type route struct {
		pattern string
		handler http.HandlerFunc
	}
	table := []route{
		{"POST /users/new", s.handleRegister},
		{"POST /users/login", s.handleLogin},
		{"POST /users/logout", s.handleLogout},
		{"GET /users/me", s.requireAuth(s.handleMe)},

		{"GET /data/categories", s.handleCategories},
		{"GET /data/subcategories", s.handleSubcategories},
		{"GET /data/subcategories/{category}", s.handleSubcategories},
		{"GET /data/payment-methods", s.handlePaymentMethods},

		{"POST /transactions/add", s.requireAuth(s.handleCreateTransaction)},
		{"GET /transactions", s.requireAuth(s.handleListTransactions)},
		{"PUT /transactions/{id}", s.requireAuth(s.handleUpdateTransaction)},
		{"DELETE /transactions/{id}", s.requireAuth(s.handleDeleteTransaction)},

		{"GET /healthz", s.handleHealth},
		{"GET /readyz", s.handleReady},
		{"GET /metrics", s.handleMetrics},
	}

	for _, rt := range table {
		method, path, _ := strings.Cut(rt.pattern, " ")
		mux.HandleFunc(method+" "+path, rt.handler)
		mux.HandleFunc(method+" /api"+path, rt.handler)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later")
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("HTTP server shutting down", log.FieldOperation, log.OpShutdown)
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) recordWrite() {
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
}
