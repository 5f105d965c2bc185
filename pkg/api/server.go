package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/brightclass/brightclass/pkg/httputil"
	"github.com/brightclass/brightclass/pkg/middleware"
)

// Server exposes the authorization engine over HTTP.
type Server struct {
	engine Engine
	router *mux.Router
	log    logrus.FieldLogger
}

// NewServer creates the API server. The session middleware, when given, runs
// outside every route so handlers can rely on the request identity.
func NewServer(engine Engine, session *middleware.SessionMiddleware, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		engine: engine,
		router: mux.NewRouter(),
		log:    log,
	}

	s.router.Use(httputil.RecoveryMiddleware(log))
	s.router.Use(httputil.LoggingMiddleware(log))
	if session != nil {
		s.router.Use(session.Handler)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Decision routes
	s.router.HandleFunc("/authz/check", s.checkAccess).Methods("POST")
	s.router.HandleFunc("/authz/check/details", s.checkAccessDetails).Methods("POST")
	s.router.HandleFunc("/authz/check/batch", s.checkBatch).Methods("POST")
	s.router.HandleFunc("/authz/routes/check", s.checkRoutes).Methods("POST")

	// Mutation routes
	s.router.HandleFunc("/authz/permissions", s.updatePermission).Methods("PUT")
	s.router.HandleFunc("/authz/permissions/bulk", s.bulkUpdatePermissions).Methods("POST")

	// Session context routes
	s.router.HandleFunc("/authz/tenant", s.switchTenant).Methods("POST")
	s.router.HandleFunc("/authz/cache", s.clearCache).Methods("DELETE")
	s.router.HandleFunc("/authz/cache/{userID}", s.clearUserCache).Methods("DELETE")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
