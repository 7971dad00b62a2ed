// Package api wires the HTTP surface: route registration, handlers and the
// middleware pipeline in front of them.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cashtrackr/api/pkg/auth"
	"github.com/cashtrackr/api/pkg/httputil"
	"github.com/cashtrackr/api/pkg/mail"
	"github.com/cashtrackr/api/pkg/middleware"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage"
)

// Pinger reports backend health for the healthz endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options collects the server's dependencies. Metrics, RateLimit and Pinger
// are optional; a nil RateLimit disables throttling (tests rely on this).
type Options struct {
	Users    storage.UserStore
	Budgets  storage.BudgetStore
	Expenses storage.ExpenseStore

	JWT    *auth.JWTManager
	Emails *mail.AuthEmail

	Logger  *observability.Logger
	Metrics *observability.Metrics

	RateLimit *middleware.RateLimit
	Pinger    Pinger

	AllowedOrigins []string
}

// Server is the HTTP API.
type Server struct {
	router *mux.Router
	opts   Options
}

// NewServer builds the router with all routes and middleware attached.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{router: mux.NewRouter(), opts: opts}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	global := []func(http.Handler) http.Handler{
		httputil.RequestID,
		httputil.RequestLogging(s.opts.Logger),
		httputil.Recovery(s.opts.Logger),
		httputil.CORS(s.opts.AllowedOrigins),
	}
	if s.opts.Metrics != nil {
		global = append(global, httputil.MetricsMiddleware(s.opts.Metrics))
	}
	for _, mw := range global {
		s.router.Use(mw)
	}

	authn := middleware.NewAuthenticator(s.opts.JWT, s.opts.Users, s.opts.Logger)
	resolver := middleware.NewBudgetResolver(s.opts.Budgets, s.opts.Expenses, s.opts.Logger)

	authHandler := NewAuthHandler(s.opts.Users, s.opts.JWT, s.opts.Emails, s.opts.Logger, s.opts.Metrics)
	budgetHandler := NewBudgetHandler(s.opts.Budgets, s.opts.Logger)
	expenseHandler := NewExpenseHandler(s.opts.Expenses, s.opts.Logger)

	// /api/auth: registration and login are open; the brake only guards the
	// endpoints that consume codes or send email.
	authRouter := s.router.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/create-account", authHandler.createAccount).Methods(http.MethodPost)
	authRouter.Handle("/confirm-account", s.limited(authHandler.confirmAccount)).Methods(http.MethodPost)
	authRouter.Handle("/login", s.limited(authHandler.login)).Methods(http.MethodPost)
	authRouter.Handle("/forgot-password", s.limited(authHandler.forgotPassword)).Methods(http.MethodPost)
	authRouter.Handle("/validate-token", s.limited(authHandler.validateToken)).Methods(http.MethodPost)
	authRouter.Handle("/reset-password/{token}", s.limited(authHandler.resetPassword)).Methods(http.MethodPost)
	authRouter.Handle("/user", authn.Handler(http.HandlerFunc(authHandler.currentUser))).Methods(http.MethodGet)
	authRouter.Handle("/update-password", authn.Handler(http.HandlerFunc(authHandler.updatePassword))).Methods(http.MethodPost)
	authRouter.Handle("/check-password", authn.Handler(http.HandlerFunc(authHandler.checkPassword))).Methods(http.MethodPost)

	// /api/budgets: everything requires a session; nested routes also pass
	// through the budget (and expense) resolvers.
	budgetRouter := s.router.PathPrefix("/api/budgets").Subrouter()
	budgetRouter.Use(authn.Handler)
	budgetRouter.HandleFunc("", budgetHandler.list).Methods(http.MethodGet)
	budgetRouter.HandleFunc("", budgetHandler.create).Methods(http.MethodPost)

	oneBudget := budgetRouter.PathPrefix("/{budgetId}").Subrouter()
	oneBudget.Use(resolver.Resolve)
	oneBudget.HandleFunc("", budgetHandler.get).Methods(http.MethodGet)
	oneBudget.HandleFunc("", budgetHandler.update).Methods(http.MethodPut)
	oneBudget.HandleFunc("", budgetHandler.delete).Methods(http.MethodDelete)
	oneBudget.HandleFunc("/expenses", expenseHandler.create).Methods(http.MethodPost)

	oneExpense := oneBudget.PathPrefix("/expenses/{expenseId}").Subrouter()
	oneExpense.Use(resolver.ResolveExpense)
	oneExpense.HandleFunc("", expenseHandler.get).Methods(http.MethodGet)
	oneExpense.HandleFunc("", expenseHandler.update).Methods(http.MethodPut)
	oneExpense.HandleFunc("", expenseHandler.delete).Methods(http.MethodDelete)

	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}
}

// limited wraps a handler with the rate limiter when one is configured.
func (s *Server) limited(handler http.HandlerFunc) http.Handler {
	if s.opts.RateLimit == nil {
		return handler
	}
	return s.opts.RateLimit.Handler(handler)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.opts.Pinger != nil {
		if err := s.opts.Pinger.Ping(r.Context()); err != nil {
			s.opts.Logger.WithError(err).Error("health check failed")
			httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}
