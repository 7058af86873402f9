package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iacgenius/app/usecase"
	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
)

type GeneratorHandler struct {
	sessions  *usecase.SessionManager
	settings  *usecase.SettingsService
	providers *usecase.ProviderService
	history   repository.HistoryRepository
	hub       *EventHub
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	reqDuration *prometheus.HistogramVec
	reqCount    *prometheus.CounterVec
	errCount    *prometheus.CounterVec
}

func NewGeneratorHandler(
	sessions *usecase.SessionManager,
	settings *usecase.SettingsService,
	providers *usecase.ProviderService,
	history repository.HistoryRepository,
	hub *EventHub,
	logger *slog.Logger,
) *GeneratorHandler {

	reqDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	reqCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)

	errCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	prometheus.MustRegister(reqDuration, reqCount, errCount)

	return &GeneratorHandler{
		sessions:  sessions,
		settings:  settings,
		providers: providers,
		history:   history,
		hub:       hub,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		reqDuration: reqDuration,
		reqCount:    reqCount,
		errCount:    errCount,
	}
}

func (h *GeneratorHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		method := r.Method

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		duration := time.Since(start).Seconds()
		statusStr := strconv.Itoa(rw.status)

		h.reqCount.WithLabelValues(method, path).Inc()
		h.reqDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		if rw.status >= 400 {
			h.errCount.WithLabelValues(method, path, statusStr).Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *GeneratorHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/sessions", h.withMetrics(h.handleCreateSession)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.withMetrics(h.handleGetSession)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/generate", h.withMetrics(h.handleGenerate)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/modify", h.withMetrics(h.handleModify)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/save", h.withMetrics(h.handleSave)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/stop", h.withMetrics(h.handleStop)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/events", h.handleEvents).Methods(http.MethodGet)

	api.HandleFunc("/providers", h.withMetrics(h.handleProviders)).Methods(http.MethodGet)
	api.HandleFunc("/providers/{name}/models", h.withMetrics(h.handleModels)).Methods(http.MethodGet)
	api.HandleFunc("/providers/{name}/validate", h.withMetrics(h.handleValidate)).Methods(http.MethodPost)

	api.HandleFunc("/defaults", h.withMetrics(h.handleGetDefaults)).Methods(http.MethodGet)
	api.HandleFunc("/defaults", h.withMetrics(h.handleUpdateDefaults)).Methods(http.MethodPatch, http.MethodPut)

	api.HandleFunc("/types", h.withMetrics(h.handleTypes)).Methods(http.MethodGet)

	api.HandleFunc("/history", h.withMetrics(h.handleListHistory)).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", h.withMetrics(h.handleGetHistory)).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", h.withMetrics(h.handleDeleteHistory)).Methods(http.MethodDelete)

	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps the error taxonomy onto HTTP statuses: bad configuration is
// the caller's fault, a failed backend call is a bad gateway, transition
// misuse is a conflict.
func statusFor(err error) int {
	var cfgErr *entity.ConfigError
	var valErr *entity.ValidationError
	var genErr *entity.GenerationError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &valErr):
		return http.StatusUnauthorized
	case errors.As(err, &genErr):
		return http.StatusBadGateway
	case errors.Is(err, usecase.ErrNoResult), errors.Is(err, usecase.ErrSessionDone):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type sessionView struct {
	ID     string                 `json:"id"`
	State  usecase.SessionState   `json:"state"`
	Result *entity.GenerateResult `json:"result,omitempty"`
}

func (h *GeneratorHandler) session(w http.ResponseWriter, r *http.Request) (*usecase.Session, bool) {
	id := mux.Vars(r)["id"]
	s, ok := h.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %s not found", id))
		return nil, false
	}
	return s, true
}

// POST /api/v1/sessions
func (h *GeneratorHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionView{ID: s.ID(), State: s.State()})
}

// GET /api/v1/sessions/{id}
func (h *GeneratorHandler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView{ID: s.ID(), State: s.State(), Result: s.Result()})
}

type generateReq struct {
	entity.GenerateRequest
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// POST /api/v1/sessions/{id}/generate
func (h *GeneratorHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req generateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}

	overrides := entity.Settings{Provider: req.Provider, Model: req.Model, APIKey: req.APIKey}
	result, err := s.Generate(r.Context(), req.GenerateRequest, overrides)
	if err != nil {
		h.logger.Error("generate failed", "session_id", s.ID(), "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type modifyReq struct {
	Feedback string `json:"feedback"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// POST /api/v1/sessions/{id}/modify
func (h *GeneratorHandler) handleModify(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req modifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	if req.Feedback == "" {
		writeError(w, http.StatusBadRequest, errors.New("feedback is required"))
		return
	}

	overrides := entity.Settings{Provider: req.Provider, Model: req.Model, APIKey: req.APIKey}
	result, err := s.Modify(r.Context(), req.Feedback, overrides)
	if err != nil {
		h.logger.Error("modify failed", "session_id", s.ID(), "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type saveReq struct {
	Path string `json:"path"`
}

// POST /api/v1/sessions/{id}/save
func (h *GeneratorHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req saveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	path, err := s.Save(req.Path)
	if err != nil {
		h.logger.Error("save failed", "session_id", s.ID(), "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// POST /api/v1/sessions/{id}/stop
func (h *GeneratorHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.sessions.Remove(s.ID())
	writeJSON(w, http.StatusOK, sessionView{ID: s.ID(), State: s.State()})
}

// GET /api/v1/sessions/{id}/events (websocket)
func (h *GeneratorHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.sessions.Get(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %s not found", id))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "session_id", id, "err", err)
		return
	}
	defer conn.Close()

	ch := h.hub.Subscribe(id)
	defer h.hub.Unsubscribe(id, ch)

	// The upgrade hijacks the connection, so the request context no longer
	// fires on disconnect. The read pump errors when the peer goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("websocket write failed", "session_id", id, "err", err)
				return
			}
			if ev.Type == "stopped" {
				return
			}
		}
	}
}

// GET /api/v1/providers
func (h *GeneratorHandler) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": h.providers.Providers()})
}

// GET /api/v1/providers/{name}/models
func (h *GeneratorHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	list, err := h.providers.Models(r.Context(), name, r.Header.Get("X-Api-Key"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/providers/{name}/validate
func (h *GeneratorHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.providers.Validate(r.Context(), name, r.Header.Get("X-Api-Key")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// GET /api/v1/defaults
func (h *GeneratorHandler) handleGetDefaults(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type updateDefaultsReq struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// PATCH /api/v1/defaults
func (h *GeneratorHandler) handleUpdateDefaults(w http.ResponseWriter, r *http.Request) {
	var req updateDefaultsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	updated, err := h.settings.Update(r.Context(), entity.Settings{
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		h.logger.Error("update defaults failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type typeView struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Language  string `json:"language"`
}

// GET /api/v1/types
func (h *GeneratorHandler) handleTypes(w http.ResponseWriter, r *http.Request) {
	kinds := entity.IaCKinds()
	out := make([]typeView, len(kinds))
	for i, k := range kinds {
		out[i] = typeView{Name: string(k), Extension: k.FileExtension(), Language: k.Language()}
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/v1/history
func (h *GeneratorHandler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, errors.New("history store is not configured"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	var (
		recs []*entity.GenerationRecord
		err  error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		recs, err = h.history.ListBySession(r.Context(), sessionID)
	} else {
		recs, err = h.history.List(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("list history failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// GET /api/v1/history/{id}
func (h *GeneratorHandler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, errors.New("history store is not configured"))
		return
	}
	id := mux.Vars(r)["id"]
	rec, err := h.history.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get history failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("record %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DELETE /api/v1/history/{id}
func (h *GeneratorHandler) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, errors.New("history store is not configured"))
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.history.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete history failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/health
func (h *GeneratorHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
}
