// Package server implements the TaskDash HTTP server, REST API, auth, and
// SSE real-time events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskdash/config"
	"github.com/GoCodeAlone/taskdash/notify"
	"github.com/GoCodeAlone/taskdash/server/api"
	"github.com/GoCodeAlone/taskdash/session"
	"github.com/GoCodeAlone/taskdash/tracker"
)

// Server is the TaskDash HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	tracker  *tracker.Tracker
	sessions *session.Manager
	notifier notify.Notifier

	startTime time.Time
	version   string
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		startTime: time.Now(),
		version:   ver,
	}
}

// SetTracker attaches the task tracker to the server.
func (s *Server) SetTracker(tr *tracker.Tracker) {
	s.tracker = tr
}

// SetSessions attaches the session manager to the server.
func (s *Server) SetSessions(m *session.Manager) {
	s.sessions = m
}

// SetNotifier attaches the change notifier used for SSE.
func (s *Server) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	s.registerRoutes()

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	h := &api.Handlers{
		Tracker:  s.tracker,
		Notifier: s.notifier,
		Logger:   s.logger,
		Version:  s.version,
	}

	// Public routes (no auth required)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/status", h.StatusHandler())

	// SSE auth is handled inline because EventSource cannot set headers
	s.mux.HandleFunc("GET /events", s.handleSSE)

	// Protected API, wrapped in auth middleware
	apiMux := http.NewServeMux()
	h.RegisterRoutes(apiMux)
	apiMux.HandleFunc("GET /api/auth/me", s.handleMe)
	apiMux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	s.mux.Handle("/api/", s.authMiddleware(apiMux))
}

// loginRequest is the body accepted by POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the body returned by a successful login.
type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// handleLogin validates credentials and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, token, err := s.sessions.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error("login", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "could not establish session")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		Username: sess.Username,
		Role:     sess.Role,
	})
}

// handleLogout removes the persisted session record.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if err := s.sessions.Logout(); err != nil {
		s.logger.Error("logout", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "could not remove session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the currently authenticated user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.SessionFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "no session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// authMiddleware enforces token authentication on wrapped handlers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		sess, err := s.sessions.Verify(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := api.ContextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleSSE streams change events to the client.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// Auth via query token param (EventSource can't set headers). The stream
	// carries task snapshots, so the token is required.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := s.sessions.Verify(token); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	ch := make(chan notify.Event, 64)
	unsubscribe := s.notifier.Subscribe(func(ev notify.Event) {
		select {
		case ch <- ev:
		default:
			// Client channel full, skip
		}
	})
	defer unsubscribe()

	// Send initial connected event
	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n") //nolint:errcheck
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode event", slog.Any("err", err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data) //nolint:errcheck
			flusher.Flush()
		}
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
