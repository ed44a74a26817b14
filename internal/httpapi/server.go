package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/craigfactory/teaguard/internal/broadcast"
	"github.com/craigfactory/teaguard/internal/teaguard/service"
	"github.com/craigfactory/teaguard/internal/teaguard/store"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

type Dependencies struct {
	Logger     *zap.Logger
	Addr       string
	Matcher    *service.Matcher
	Dispatcher *service.Dispatcher
	Hub        *broadcast.Hub
	Directory  store.DirectoryStore
	AccessLog  store.AccessLogStore
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	matcher    *service.Matcher
	dispatcher *service.Dispatcher
	hub        *broadcast.Hub
	directory  store.DirectoryStore
	accessLog  store.AccessLogStore
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:     d.Logger,
		mux:        mux,
		matcher:    d.Matcher,
		dispatcher: d.Dispatcher,
		hub:        d.Hub,
		directory:  d.Directory,
		accessLog:  d.AccessLog,
	}

	mux.HandleFunc("POST /api/authenticate", s.handleAuthenticate)
	mux.HandleFunc("POST /api/alerts/fire", s.handleFireAlert)
	mux.HandleFunc("POST /api/alerts/access-denied", s.handleAccessDeniedAlert)
	mux.HandleFunc("POST /api/alerts/emergency", s.handleEmergencyAlert)
	mux.HandleFunc("GET /api/access-logs", s.handleAccessLogs)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /ws/alarms", s.handleAlarmSocket)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Authentication ───────────────────────────────────────────────────────────

type authenticateResponse struct {
	Success       bool          `json:"success"`
	Authenticated bool          `json:"authenticated"`
	Employee      *employeeJSON `json:"employee,omitempty"`
	AccessMethod  string        `json:"accessMethod,omitempty"`
	AccessTime    string        `json:"accessTime,omitempty"`
	Message       string        `json:"message"`
}

type employeeJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var probe types.Probe
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&probe); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	decision, err := s.matcher.Authenticate(r.Context(), probe)
	if err != nil {
		if errors.Is(err, service.ErrEmptyProbe) {
			writeError(w, http.StatusBadRequest, "empty_probe", err.Error())
			return
		}
		// Directory store unreachable: the one case with no decision.
		s.logger.Error("authenticate failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "directory store unavailable")
		return
	}

	if !decision.Authenticated {
		writeJSON(w, http.StatusUnauthorized, authenticateResponse{
			Success:       false,
			Authenticated: false,
			Message:       decision.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, authenticateResponse{
		Success:       true,
		Authenticated: true,
		Employee: &employeeJSON{
			ID:         decision.Identity.ID,
			Name:       decision.Identity.Name,
			Department: decision.Identity.Department,
			Role:       decision.Identity.Role,
		},
		AccessMethod: string(decision.Method),
		AccessTime:   time.Now().UTC().Format(time.RFC3339),
		Message:      decision.Message,
	})
}

// ── Alerts ───────────────────────────────────────────────────────────────────

type dispatchResponse struct {
	Success        bool            `json:"success"`
	SuccessCount   int             `json:"successCount"`
	TotalPlatforms int             `json:"totalPlatforms"`
	Platforms      map[string]bool `json:"platforms"`
	Timestamp      string          `json:"timestamp"`
	Message        string          `json:"message"`
}

func dispatchToResponse(res types.DispatchResult, message string) dispatchResponse {
	platforms := make(map[string]bool, len(res.PerChannel))
	for name, o := range res.PerChannel {
		platforms[name] = o.Succeeded
	}
	return dispatchResponse{
		Success:        res.Success,
		SuccessCount:   res.SuccessCount,
		TotalPlatforms: res.Total,
		Platforms:      platforms,
		Timestamp:      res.OccurredAt.Format(time.RFC3339),
		Message:        message,
	}
}

func (s *Server) handleFireAlert(w http.ResponseWriter, r *http.Request) {
	// The fire row goes into the access log like the original system wrote
	// it: a System entry, not tied to an identity. Best-effort.
	if err := s.accessLog.Append(r.Context(), store.AccessAttempt{
		NameSnapshot: "System",
		Location:     "Emergency System",
		Method:       types.MethodFireAlert,
		Outcome:      types.OutcomeSuccess,
		OccurredAt:   time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("fire alert log append failed", zap.Error(err))
	}

	res := s.dispatcher.Dispatch(r.Context(), types.AlertFire,
		"Fire detected in production area! Immediate evacuation required!")

	writeJSON(w, http.StatusOK, dispatchToResponse(res, "Fire alert sent via all platforms"))
}

type accessDeniedAlertRequest struct {
	EmployeeName string `json:"employeeName"`
	Location     string `json:"location"`
}

func (s *Server) handleAccessDeniedAlert(w http.ResponseWriter, r *http.Request) {
	var req accessDeniedAlertRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	name := req.EmployeeName
	if name == "" {
		name = "Unknown Person"
	}
	location := req.Location
	if location == "" {
		location = types.DefaultLocation
	}

	res := s.dispatcher.Dispatch(r.Context(), types.AlertAccessDenied,
		"Unauthorized access attempt by "+name+" at "+location)

	writeJSON(w, http.StatusOK, dispatchToResponse(res, "Access denied alert sent"))
}

type emergencyAlertRequest struct {
	AlertType string `json:"alertType"`
	Message   string `json:"message"`
	Location  string `json:"location"`
}

func (s *Server) handleEmergencyAlert(w http.ResponseWriter, r *http.Request) {
	var req emergencyAlertRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.AlertType) == "" {
		writeError(w, http.StatusBadRequest, "missing_alert_type", "alertType is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}

	message := req.Message
	if req.Location != "" {
		message += " Location: " + req.Location
	}

	res := s.dispatcher.Dispatch(r.Context(), types.AlertCategory(req.AlertType), message)

	writeJSON(w, http.StatusOK, dispatchToResponse(res, "Emergency alert sent"))
}

// ── Access log read surface ──────────────────────────────────────────────────

func (s *Server) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit := store.MaxRecentAttempts
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	views, err := s.accessLog.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("access log read failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "access log unavailable")
		return
	}
	if views == nil {
		views = []store.AccessAttemptView{}
	}

	writeJSON(w, http.StatusOK, views)
}

// ── Health ───────────────────────────────────────────────────────────────────

type healthResponse struct {
	Status          string `json:"status"`
	Database        string `json:"database"`
	EnrolledCount   int    `json:"enrolledCount"`
	LiveSubscribers int    `json:"liveSubscribers"`
	Timestamp       string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.directory.ListCandidates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Database:  "disconnected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Database:        "connected",
		EnrolledCount:   len(candidates),
		LiveSubscribers: s.hub.Subscribers(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	})
}
