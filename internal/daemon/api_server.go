package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/rs/cors"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind must be set")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(strings.TrimSpace(cfg.Paths.APIToken), next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", auth(srv.handleStatus))
	mux.HandleFunc("GET /api/health", auth(srv.handleHealth))
	mux.HandleFunc("GET /api/documents", auth(srv.handleListDocuments))
	mux.HandleFunc("POST /api/documents", auth(srv.handleIntake))
	mux.HandleFunc("GET /api/documents/{id}", auth(srv.handleGetDocument))
	mux.HandleFunc("PATCH /api/documents/{id}", auth(srv.handleEdit))
	mux.HandleFunc("DELETE /api/documents/{id}", auth(srv.handleDelete))
	mux.HandleFunc("POST /api/documents/{id}/dispatch", auth(srv.handleDispatch))
	mux.HandleFunc("POST /api/documents/{id}/retry", auth(srv.handleRetry))
	mux.HandleFunc("POST /api/documents/{id}/restore", auth(srv.handleRestore))
	mux.HandleFunc("GET /api/recycle", auth(srv.handleRecycleList))
	mux.HandleFunc("POST /api/recycle/purge", auth(srv.handleRecyclePurge))
	mux.HandleFunc("GET /api/queue/deadletters", auth(srv.handleDeadLetters))
	mux.HandleFunc("POST /api/queue/deadletters/{id}/replay", auth(srv.handleReplayDeadLetter))
	mux.HandleFunc("POST /api/events/storage", auth(srv.handleStorageEvent))
	mux.HandleFunc("POST /api/events/jobs", auth(srv.handleJobEvent))

	corsWrapper := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Ce-Id", "Ce-Source", "Ce-Type", "Ce-Specversion"},
	})

	srv.server = &http.Server{
		Handler:           corsWrapper.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps taxonomy markers onto HTTP statuses and logs
// infrastructure failures; business-rule rejections only surface to the
// caller.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		details := services.Details(err)
		s.log().Error("request failed",
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
