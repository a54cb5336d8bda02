package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"dravyalabs/internal/events"
	"dravyalabs/internal/form"
)

// Server represents the HTTP server of the identification form
type Server struct {
	router     *chi.Mux
	controller *form.Controller
	backend    Backend
	eventStore *events.Store
	logger     *zap.Logger
}

// NewServer creates new API server
func NewServer(controller *form.Controller, backend Backend, eventStore *events.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eventStore == nil {
		eventStore = events.NewStore(events.DefaultSize)
	}

	s := &Server{
		router:     chi.NewRouter(),
		controller: controller,
		backend:    backend,
		eventStore: eventStore,
		logger:     logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// Create handlers
	rec := &recorder{store: s.eventStore}
	pageHandler := NewPageHandler(s.controller, rec, s.logger)
	identifyHandler := NewIdentifyHandler(s.controller, s.backend, rec)
	eventsHandler := NewEventsHandler(s.eventStore)
	streamHandler := NewStreamHandler(s.controller, s.logger)

	// WebSocket needs the raw connection, keep it out of compression
	r.Get("/api/ws", streamHandler.Connect)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		// Page
		r.Get("/", pageHandler.Show)
		r.Post("/", pageHandler.Submit)

		// Identification
		r.Get("/api/state", identifyHandler.State)
		r.Post("/api/identify", identifyHandler.Identify)
		r.Get("/api/search", identifyHandler.Search)
		r.Post("/api/research", identifyHandler.Research)

		// Events
		r.Get("/api/events", eventsHandler.List)

		r.Get("/healthz", s.healthz)
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}
