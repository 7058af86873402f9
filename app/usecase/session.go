package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/llm"
	"iacgenius/internal/infrastructure/metrics"
)

// SessionState names a position in the generate/modify/save/stop machine.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateGenerated SessionState = "generated"
	StateDone      SessionState = "done"
)

var (
	// ErrNoResult rejects modify/save before a successful generate.
	ErrNoResult = errors.New("session has no generated result yet")
	// ErrSessionDone rejects any transition after stop.
	ErrSessionDone = errors.New("session is stopped")
)

// SessionEvent is published on every completed transition so front ends can
// follow a session they did not drive (the websocket stream in server mode).
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"` // generated|modified|saved|stopped|failed
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// SessionDeps carries the collaborators a session orchestrates. History and
// Publish are optional; the CLI runs without either.
type SessionDeps struct {
	Settings repository.SettingsStore
	History  repository.HistoryRepository
	Options  llm.Options
	Logger   *slog.Logger
	Publish  func(SessionEvent)
}

// Session drives one user's generate -> review -> {modify|save|stop} loop.
// Transitions are serialized by the mutex; a failed transition never touches
// the last good result.
type Session struct {
	id   string
	deps SessionDeps

	mu       sync.Mutex
	state    SessionState
	request  entity.GenerateRequest
	result   *entity.GenerateResult
	savePath string
}

func NewSession(deps SessionDeps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		id:    uuid.NewString(),
		deps:  deps,
		state: StateIdle,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the last good generation, or nil before the first success.
func (s *Session) Result() *entity.GenerateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	out := *s.result
	return &out
}

// Generate runs the full pipeline: resolve settings, build the prompt,
// dispatch to the provider, store the result. On failure the session keeps
// whatever state it had before the call.
func (s *Session) Generate(ctx context.Context, req entity.GenerateRequest, overrides entity.Settings) (*entity.GenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return nil, ErrSessionDone
	}
	if err := validateRequest(req); err != nil {
		metrics.IncSessionTransition("generate", "error")
		return nil, err
	}

	req = req.Normalized()
	result, err := s.dispatch(ctx, entity.BuildPrompt(req), req, overrides)
	if err != nil {
		metrics.IncSessionTransition("generate", "error")
		s.publish(SessionEvent{SessionID: s.id, Type: "failed", Error: err.Error(), At: time.Now().UTC()})
		return nil, err
	}

	s.request = req
	s.result = result
	s.state = StateGenerated
	metrics.IncSessionTransition("generate", "ok")
	s.record(ctx, req, result)
	s.publish(SessionEvent{
		SessionID: s.id, Type: "generated",
		Provider: result.Provider, Model: result.Model, At: time.Now().UTC(),
	})
	return result, nil
}

// Modify re-runs generation with the prior code and the user's feedback
// embedded in the prompt. The previous result is replaced only on success.
func (s *Session) Modify(ctx context.Context, feedback string, overrides entity.Settings) (*entity.GenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return nil, ErrSessionDone
	}
	if s.result == nil {
		return nil, ErrNoResult
	}

	prompt := entity.BuildRevisionPrompt(s.request, s.result.Code, feedback)
	result, err := s.dispatch(ctx, prompt, s.request, overrides)
	if err != nil {
		metrics.IncSessionTransition("modify", "error")
		s.publish(SessionEvent{SessionID: s.id, Type: "failed", Error: err.Error(), At: time.Now().UTC()})
		return nil, err
	}

	s.result = result
	metrics.IncSessionTransition("modify", "ok")
	s.record(ctx, s.request, result)
	s.publish(SessionEvent{
		SessionID: s.id, Type: "modified",
		Provider: result.Provider, Model: result.Model, At: time.Now().UTC(),
	})
	return result, nil
}

// Save writes the current code to path, deriving a suffix from the IaC kind
// when the path lacks a recognized one. An empty path re-saves to the
// session's last target once one exists. Re-saving overwrites. Returns the
// path actually written.
func (s *Session) Save(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return "", ErrSessionDone
	}
	if s.result == nil {
		return "", ErrNoResult
	}

	target := s.savePath
	if path != "" || target == "" {
		target = SavePath(path, s.result.Kind)
	}
	if err := os.WriteFile(target, []byte(s.result.Code), 0o644); err != nil {
		metrics.IncSessionTransition("save", "error")
		return "", fmt.Errorf("failed to save output to %s: %w", target, err)
	}
	s.savePath = target
	metrics.IncSessionTransition("save", "ok")
	s.publish(SessionEvent{SessionID: s.id, Type: "saved", Path: target, At: time.Now().UTC()})
	s.deps.Logger.Info("output saved", "session_id", s.id, "path", target)
	return target, nil
}

// Stop ends the session. Terminal; every later transition fails.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return
	}
	s.state = StateDone
	metrics.IncSessionTransition("stop", "ok")
	s.publish(SessionEvent{SessionID: s.id, Type: "stopped", At: time.Now().UTC()})
}

// dispatch resolves the effective settings, constructs the provider and runs
// one generation. Callers hold the session mutex.
func (s *Session) dispatch(ctx context.Context, prompt string, req entity.GenerateRequest, overrides entity.Settings) (*entity.GenerateResult, error) {
	stored, err := s.deps.Settings.Read()
	if err != nil {
		return nil, err
	}
	eff := stored.Merge(entity.Settings{Provider: overrides.Provider, Model: overrides.Model})

	opts := s.deps.Options
	opts.StoredSecret = stored.APIKey
	opts.Logger = s.deps.Logger

	provider, err := llm.New(ctx, eff.Provider, overrides.APIKey, opts)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, llm.GenerateTimeout)
	defer cancel()

	code, err := provider.Generate(genCtx, prompt, eff.Model, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, err
	}

	return &entity.GenerateResult{
		Kind:          req.Kind,
		CloudProvider: req.CloudProvider,
		Provider:      eff.Provider,
		Model:         eff.Model,
		Code:          code,
		RequestID:     uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// record persists the generation when a history store is wired. Best effort;
// a history failure never fails the transition.
func (s *Session) record(ctx context.Context, req entity.GenerateRequest, res *entity.GenerateResult) {
	if s.deps.History == nil {
		return
	}
	if err := s.deps.History.Save(ctx, entity.NewGenerationRecord(s.id, req, *res)); err != nil {
		s.deps.Logger.Warn("failed to record generation", "session_id", s.id, "err", err)
	}
}

func (s *Session) publish(ev SessionEvent) {
	if s.deps.Publish != nil {
		s.deps.Publish(ev)
	}
}

func validateRequest(req entity.GenerateRequest) error {
	if strings.TrimSpace(req.Description) == "" {
		return &entity.ConfigError{Reason: "description is required"}
	}
	kinds := entity.IaCKinds()
	allowed := make([]string, len(kinds))
	for i, k := range kinds {
		allowed[i] = string(k)
	}
	for _, k := range kinds {
		if req.Kind == k {
			return nil
		}
	}
	return entity.NewConfigError(string(req.Kind), allowed, "unsupported infrastructure type")
}

// recognizedExtensions are suffixes Save treats as intentional; anything else
// gets the kind's canonical suffix appended.
var recognizedExtensions = map[string]bool{
	".tf":   true,
	".yaml": true,
	".yml":  true,
	".json": true,
	".rego": true,
	".txt":  true,
}

// SavePath derives the output file name for a save. A path that already
// carries a recognized extension, or names a Dockerfile, passes through.
func SavePath(path string, kind entity.IaCKind) string {
	ext := kind.FileExtension()
	if path == "" {
		if ext == "Dockerfile" {
			return "Dockerfile"
		}
		return "main" + ext
	}
	if recognizedExtensions[strings.ToLower(filepath.Ext(path))] {
		return path
	}
	if filepath.Base(path) == "Dockerfile" {
		return path
	}
	if ext == "Dockerfile" {
		return path + ".Dockerfile"
	}
	return path + ext
}
