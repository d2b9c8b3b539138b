// Package httpapi exposes the messaging API over HTTP with JSON bodies.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/messagely/internal/logging"
	"github.com/dmitrijs2005/messagely/internal/server/authz"
	"github.com/dmitrijs2005/messagely/internal/server/services"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes caps every request body, including the token lookup in it.
const MaxBodyBytes int64 = 1 << 20

type Server struct {
	router   *chi.Mux
	users    *services.UserService
	messages *services.MessageService
	logger   logging.Logger
}

// NewServer wires every route. verifier resolves the caller from the token
// field on each request.
func NewServer(users *services.UserService, messages *services.MessageService, verifier authz.TokenVerifier, logger logging.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		users:    users,
		messages: messages,
		logger:   logger.With("module", "httpapi"),
	}

	s.router.Use(RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(Logging(s.logger))
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.limitBody(MaxBodyBytes))
	s.router.Use(authz.Authenticate(verifier, s.logger))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errRouteNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errMethodNotAllowed)
	})

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.With(s.require(authz.LoggedIn())).Get("/", s.handleListUsers)

		self := r.With(s.require(authz.Self("username")))
		self.Get("/{username}", s.handleGetUser)
		self.Get("/{username}/to", s.handleMessagesTo)
		self.Get("/{username}/from", s.handleMessagesFrom)
	})

	s.router.Route("/messages", func(r chi.Router) {
		r.With(s.require(authz.LoggedIn())).Post("/", s.handleCreateMessage)
		r.With(s.require(authz.Party(messages))).Get("/{id}", s.handleGetMessage)
		r.With(s.require(authz.Recipient(messages))).Post("/{id}/read", s.handleMarkRead)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) require(checks ...authz.Check) func(http.Handler) http.Handler {
	return authz.Require(s.writeError, checks...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
