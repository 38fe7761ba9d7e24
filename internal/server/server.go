// Package server runs the preview server: a page rendered from the current
// head declarations, a JSON view of the rendered fragments, and a websocket
// that pushes fresh fragments to open pages whenever a declaration changes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/conneroisu/templhead/internal/config"
	"github.com/conneroisu/templhead/internal/errors"
	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/internal/registry"
	"github.com/conneroisu/templhead/internal/validation"
	"github.com/conneroisu/templhead/internal/version"
	"github.com/conneroisu/templhead/pkg/head"
)

// PreviewServer serves the rendered head with live updates
type PreviewServer struct {
	config       *config.Config
	head         *head.Head
	logger       logging.Logger
	hub          *Hub
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string        `json:"type"`
	Head      *head.SSRHead `json:"head,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Message types.
const (
	MessageHead  = "head"
	MessageError = "error"
)

// New creates a new preview server
func New(cfg *config.Config, h *head.Head, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("server")
	return &PreviewServer{
		config: cfg,
		head:   h,
		logger: logger,
		hub:    NewHub(logger),
	}
}

// Router returns the HTTP routes of the server.
func (s *PreviewServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.cors)

	r.Get("/", s.handlePage)
	r.Get("/head.json", s.handleHeadJSON)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// Start serves until ctx is cancelled or the listener fails.
func (s *PreviewServer) Start(ctx context.Context) error {
	s.run(ctx)

	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Preview server listening", "url", "http://"+addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.NewIOError(errors.ErrCodeInternalError, "server error", err)
	}
	return nil
}

// run starts the websocket hub and the registry watch loop.
func (s *PreviewServer) run(ctx context.Context) {
	events := s.head.Watch()
	go s.hub.Run(ctx)
	go s.watchRegistry(ctx, events)
}

// watchRegistry pushes a fresh render after each burst of registry changes.
func (s *PreviewServer) watchRegistry(ctx context.Context, events <-chan registry.EntryEvent) {
	defer s.head.UnWatch(events)

	debounce := s.config.Watch.Debounce
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}

		timer := time.NewTimer(debounce)
	drain:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-events:
			case <-timer.C:
				break drain
			}
		}

		s.hub.Broadcast(s.updateMessage(ctx))
	}
}

func (s *PreviewServer) updateMessage(ctx context.Context) UpdateMessage {
	out, err := s.head.RenderToString(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Render failed")
		return UpdateMessage{Type: MessageError, Error: err.Error(), Timestamp: time.Now()}
	}
	return UpdateMessage{Type: MessageHead, Head: &out, Timestamp: time.Now()}
}

// Shutdown gracefully shuts down the server and closes all clients
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")
		s.hub.CloseAll()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *PreviewServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.With("request_id", requestID).Debug(r.Context(), "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}

func (s *PreviewServer) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin checks if the origin is in the allowed origins list
func (s *PreviewServer) isAllowedOrigin(origin string) bool {
	return validation.OriginAllowed(origin, "", s.config.Server.AllowedOrigins)
}

func (s *PreviewServer) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := uuid.NewString()

	var page string
	var err error
	if s.config.Server.Page != "" {
		page, err = s.renderTemplatePage(ctx, clientID)
	} else {
		page, err = s.renderDefaultPage(ctx, clientID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(page))
}

func (s *PreviewServer) renderDefaultPage(ctx context.Context, clientID string) (string, error) {
	out, err := s.head.RenderToString(ctx)
	if err != nil {
		return "", err
	}
	return DefaultPage(out, clientID), nil
}

// renderTemplatePage reconciles the configured page with the current head,
// the same way a browser would on a client-side update.
func (s *PreviewServer) renderTemplatePage(ctx context.Context, clientID string) (string, error) {
	f, err := os.Open(s.config.Server.Page)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound, "cannot open page template", err).
			WithFile(s.config.Server.Page)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeDocumentInvalid, err.Error()).
			WithFile(s.config.Server.Page)
	}
	if _, err := s.head.UpdateDOM(ctx, doc); err != nil {
		return "", err
	}
	appendClientScript(doc, clientID)

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternalError, "cannot render page", err)
	}
	return b.String(), nil
}

func (s *PreviewServer) handleHeadJSON(w http.ResponseWriter, r *http.Request) {
	out, err := s.head.RenderToString(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": version.Short(),
		"entries": len(s.head.Entries()),
		"clients": s.hub.Count(),
	})
}

func (s *PreviewServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), err, "Request failed", "path", r.URL.Path)
	status := http.StatusInternalServerError
	if errors.IsHookError(err) {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
