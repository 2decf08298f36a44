package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/hazuki802/bukkaku/internal/api"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon
	checks *api.CheckService

	listener net.Listener
	server   *http.Server
}

// newAPIServer wires the HTTP surface. Returns nil when no bind address
// is configured; the daemon then runs without an API.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  cfg.Paths.APIToken,
		logger: logger,
		daemon: d,
		checks: api.NewCheckService(d.store),
	}

	mux := http.NewServeMux()
	// The health probe stays open so process supervision works without
	// the token.
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/checks", authMiddleware(srv.token, srv.handleChecks))
	mux.HandleFunc("/api/checks/", authMiddleware(srv.token, srv.handleCheckItem))
	mux.HandleFunc("/api/knowledge", authMiddleware(srv.token, srv.handleKnowledge))
	mux.HandleFunc("/api/knowledge/", authMiddleware(srv.token, srv.handleKnowledgeItem))
	mux.HandleFunc("/api/phone-tasks", authMiddleware(srv.token, srv.handleTasks))
	mux.HandleFunc("/api/phone-tasks/count", authMiddleware(srv.token, srv.handleTaskCount))
	mux.HandleFunc("/api/phone-tasks/", authMiddleware(srv.token, srv.handleTaskItem))
	mux.HandleFunc("/api/test-notify", authMiddleware(srv.token, srv.handleTestNotify))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
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
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// addr reports the bound listen address, which differs from the
// configured bind when the port was chosen by the kernel.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
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

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StorePath:    status.StorePath,
		LockFilePath: status.LockFilePath,
		Orchestrator: api.FromOrchestratorSummary(status.Orchestrator),
		Sessions:     api.FromSessionInfos(status.Sessions),
		Inventory:    api.FromInventorySummary(status.Inventory),
		PendingTasks: status.PendingTasks,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.daemon.Ping(r.Context()); err != nil {
		s.log().Warn("health check failed", logging.Error(err))
		s.writeJSON(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "degraded"})
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *apiServer) handleChecks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				s.writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}
		checks, err := s.checks.List(r.Context(), limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.CheckListResponse{Checks: checks})
	case http.MethodPost:
		var req api.SubmitCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c, err := s.daemon.SubmitCheck(r.Context(), req.URL)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.CheckResponse{Check: api.FromCase(c)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleCheckItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/checks/")
	idStr, sub, hasSub := strings.Cut(rest, "/")
	if idStr == "" {
		s.writeError(w, http.StatusNotFound, "check not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid check id")
		return
	}
	if hasSub {
		if sub == "platform" {
			s.handlePlatformChoice(w, r, id)
			return
		}
		s.writeError(w, http.StatusNotFound, "check not found")
		return
	}

	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	check, err := s.checks.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if check == nil {
		s.writeError(w, http.StatusNotFound, "check not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.CheckResponse{Check: *check})
}

func (s *apiServer) handlePlatformChoice(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.PlatformChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	remember := true
	if req.Remember != nil {
		remember = *req.Remember
	}
	c, err := s.daemon.ChoosePlatform(r.Context(), id, store.Platform(req.Platform), remember)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CheckResponse{Check: api.FromCase(c)})
}

func (s *apiServer) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.daemon.ListKnowledge(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.KnowledgeListResponse{Entries: api.FromKnowledgeEntries(entries)})
	case http.MethodPost:
		var req api.KnowledgeUpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p, ok := store.ParsePlatform(req.Platform)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown platform %q", req.Platform))
			return
		}
		entry, err := s.daemon.SaveKnowledge(r.Context(), req.Company, req.Phone, p, req.RequiresManual)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.KnowledgeItemResponse{Entry: api.FromKnowledgeEntry(entry)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleKnowledgeItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/knowledge/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "knowledge entry not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid knowledge id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req api.KnowledgeUpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p, ok := store.ParsePlatform(req.Platform)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown platform %q", req.Platform))
			return
		}
		entry, err := s.daemon.ReviseKnowledge(r.Context(), id, req.Company, req.Phone, p, req.RequiresManual)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if entry == nil {
			s.writeError(w, http.StatusNotFound, "knowledge entry not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.KnowledgeItemResponse{Entry: api.FromKnowledgeEntry(entry)})
	case http.MethodDelete:
		ok, err := s.daemon.RemoveKnowledge(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			s.writeError(w, http.StatusNotFound, "knowledge entry not found")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var filter store.TaskStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := store.ParseTaskStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid task status %q", raw))
			return
		}
		filter = parsed
	}
	tasks, err := s.daemon.ListTasks(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: api.FromEscalationTasks(tasks)})
}

func (s *apiServer) handleTaskCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	count, err := s.daemon.PendingTaskCount(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskCountResponse{Count: count})
}

func (s *apiServer) handleTaskItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/phone-tasks/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req api.TaskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, ok := store.ParseTaskStatus(req.Status)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid task status %q", req.Status))
		return
	}
	task, err := s.daemon.ResolveTask(r.Context(), id, status, req.Note)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskResponse{Task: api.FromEscalationTask(task)})
}

func (s *apiServer) handleTestNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, message)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotifyTestResponse{Sent: sent, Message: message})
}

// writeDomainError maps service error markers onto HTTP statuses.
func (s *apiServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
