package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"gestornet/internal/cache"
	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/metrics"
	"gestornet/internal/middleware/ratelimit"
	"gestornet/internal/middleware/security"
	"gestornet/internal/middleware/trace"
	"gestornet/internal/services"
	"gestornet/internal/storage"
	appweb "gestornet/web"
)

// Deps are the services the handlers act on.
type Deps struct {
	Store   storage.Store
	Auth    *services.AuthManager
	Clients *services.ClientRegistry
	Ledger  *services.TransactionLedger
	Cashier *services.Cashier
	Backup  *services.BackupService
}

// Config tunes the server. Zero values fall back to defaults.
type Config struct {
	Addr            string
	SessionTTL      time.Duration
	SecureCookies   bool
	ReportCacheTTL  time.Duration
	ReportCacheSize int
	RateLimit       ratelimit.Config
	// TrustedProxies are extra CIDRs whose forwarding headers are believed.
	TrustedProxies []string
}

type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	metrics   *metrics.Metrics
	logger    *log.Logger

	// Past days only; today's report changes with every transaction.
	reports *cache.LRUCache[core.DailyReport]
	caches  *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	sessionTTL    time.Duration
	secureCookies bool
	now           func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(cfg Config, deps Deps, m *metrics.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.ReportCacheTTL <= 0 {
		cfg.ReportCacheTTL = 10 * time.Minute
	}
	if cfg.ReportCacheSize <= 0 {
		cfg.ReportCacheSize = 100
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit = ratelimit.DefaultConfig()
	}

	httpLogger := logger.WithComponent(log.ComponentHTTP)
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		deps:          deps,
		metrics:       m,
		logger:        httpLogger,
		reports:       cache.NewLRUCache[core.DailyReport]("daily_report", cfg.ReportCacheSize, cfg.ReportCacheTTL, m),
		caches:        cache.NewManager(logger),
		limiter:       ratelimit.NewLimiter(cfg.RateLimit),
		detector:      security.NewDetector(logger),
		sessionTTL:    cfg.SessionTTL,
		secureCookies: cfg.SecureCookies,
		now:           time.Now,
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			httpLogger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, httpLogger, m)
	s.caches.Register(s.reports)
	s.caches.StartCleanup(cfg.ReportCacheTTL)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		httpLogger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "Demasiados pedidos. Tente novamente mais tarde.")
	})

	var h http.Handler = mux
	h = limit(h)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, security.NoStore(h))
	}

	api("GET /api/setup", s.handleSetupStatus)
	api("POST /api/setup", s.handleSetup)
	api("POST /api/auth/login", s.handleLogin)
	api("POST /api/auth/logout", s.handleLogout)
	api("GET /api/auth/session", s.handleSession)
	api("POST /api/auth/password", s.withSession(s.handleChangePassword))
	api("POST /api/boss/password", s.withSession(s.handleChangeBossPassword))

	api("GET /api/managers", s.withSession(s.handleListManagers))
	api("POST /api/managers", s.handleRegisterManager)
	api("DELETE /api/managers/{id}", s.withSession(s.handleDeleteManager))

	api("GET /api/clients", s.withSession(s.handleListClients))
	api("POST /api/clients", s.withSession(s.handleCreateClient))
	api("GET /api/clients/{id}", s.withSession(s.handleGetClient))
	api("PATCH /api/clients/{id}", s.withSession(s.handleUpdateClient))
	api("DELETE /api/clients/{id}", s.withSession(s.handleDeleteClient))
	api("POST /api/clients/{id}/signal", s.withSession(s.handleToggleSignal))
	api("POST /api/clients/{id}/payments", s.withSession(s.handleReceivePayment))
	api("GET /api/clients/{id}/quote", s.withSession(s.handleQuote))

	api("GET /api/transactions", s.withSession(s.handleListTransactions))
	api("POST /api/transactions", s.withSession(s.handleCreateTransaction))
	api("DELETE /api/transactions/{id}", s.withSession(s.handleDeleteTransaction))
	api("GET /api/transactions/totals", s.withSession(s.handleTotals))

	api("GET /api/reports/daily", s.withSession(s.handleDailyReport))
	mux.HandleFunc("GET /reports/daily", s.withPageSession(s.handleDailyReportPage))

	api("GET /api/backup", s.withSession(s.handleExportBackup))
	api("POST /api/backup", s.withSession(s.handleImportBackup))
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down HTTP server")
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks the store and that templates were parsed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				log.FieldErrorType, log.ErrorTypeDatabase,
				log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		SetupComplete bool
		Today         time.Time
	}{
		SetupComplete: s.deps.Auth.IsSetupComplete(),
		Today:         s.today(),
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) today() time.Time {
	return s.now().In(s.deps.Ledger.Location())
}

// invalidateReports drops every cached report. Called after any change to
// the ledger, since a transaction may be dated on any past day.
func (s *Server) invalidateReports() {
	s.reports.Purge()
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"kz": core.FormatKz,
		"date": func(t time.Time) string {
			return t.Format("02/01/2006")
		},
		"clock": func(t time.Time) string {
			return t.Format("15:04")
		},
		"upper": strings.ToUpper,
	}
}
