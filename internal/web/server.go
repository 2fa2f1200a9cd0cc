package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"ai-diet-planner/internal/app"
	"ai-diet-planner/internal/session"
)

// Server is the browser and JSON surface of the planner.
type Server struct {
	app      *app.App
	sessions *session.Manager
	cookies  *session.Cookies
	router   *mux.Router
	handler  http.Handler
}

// NewServer wires the routes.
func NewServer(a *app.App, sessions *session.Manager, cookies *session.Cookies) *Server {
	s := &Server{
		app:      a,
		sessions: sessions,
		cookies:  cookies,
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	pages := s.router.NewRoute().Subrouter()
	pages.Use(s.clientMiddleware)
	pages.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	pages.HandleFunc("/plan", s.handleSubmitPlan).Methods(http.MethodPost)
	pages.HandleFunc("/api-key", s.handleSaveAPIKey).Methods(http.MethodPost)
	pages.HandleFunc("/theme", s.handleTheme).Methods(http.MethodPost)
	pages.HandleFunc("/view/{view}", s.handleView).Methods(http.MethodPost)
	pages.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.clientMiddleware)
	api.HandleFunc("/plans", s.handleCreatePlan).Methods(http.MethodPost)
	api.HandleFunc("/plans/current", s.handleCurrentPlan).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", apiKeyHeader},
		AllowCredentials: false,
	})

	s.handler = c.Handler(loggingMiddleware(s.router))
	return s
}

// Handler returns the root handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HTTPServer returns an http.Server for addr serving s.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// generationContext detaches plan generation from the client connection.
// A request that was started always runs to completion.
func generationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
