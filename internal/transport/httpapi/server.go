package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/logger"
	"github.com/liveclaw/voicecore/internal/usecase/health"
	"github.com/liveclaw/voicecore/internal/usecase/indexer"
	"github.com/liveclaw/voicecore/internal/usecase/orchestrator"
)

// TurnHandler drives one conversation turn to a terminal emission.
type TurnHandler interface {
	HandleTurn(ctx context.Context, msg domain.InboundMessage, mode orchestrator.Mode) error
}

// Matcher runs the tiered lookup without generation.
type Matcher interface {
	Match(ctx context.Context, text string) domain.MatchResult
}

// ClipSeeder publishes curated clips into the archive.
type ClipSeeder interface {
	Seed(ctx context.Context, clips []indexer.SeedClip) (int, error)
}

// Archive reads the published clip set.
type Archive interface {
	Snapshot() *domain.ArchiveSnapshot
	Get(id string) (domain.ClipEntry, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the REST/stream API surface.
type Server struct {
	turns         TurnHandler
	matcher       Matcher
	seeder        ClipSeeder
	archive       Archive
	health        HealthChecker
	hub           *Hub
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	turns TurnHandler,
	matcher Matcher,
	seeder ClipSeeder,
	archive Archive,
	healthSvc HealthChecker,
	hub *Hub,
	logger *zap.Logger,
) *Server {
	s := &Server{
		turns:   turns,
		matcher: matcher,
		seeder:  seeder,
		archive: archive,
		health:  healthSvc,
		hub:     hub,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrInvalidClip, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrGeneratorFailure, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrTurnFailed, http.StatusBadGateway, codeTurnFailed),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/turns", s.handleTurn)
	r.Post("/v1/match", s.handleMatch)
	r.Post("/v1/clips", s.handlePublishClip)
	r.Get("/v1/clips", s.handleListClips)
	r.Get("/v1/clips/{id}", s.handleGetClip)
	r.Get("/v1/emissions", s.handleEmissionsFeed)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// handleTurn runs a turn and streams its emissions back as NDJSON. The
// response ends after the terminal emission; a dropped duplicate turn ends the
// stream with no lines.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "text is required")
		return
	}
	mode := orchestrator.ModeNormal
	switch req.Mode {
	case "", string(orchestrator.ModeNormal):
	case string(orchestrator.ModeFast):
		mode = orchestrator.ModeFast
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed, "mode must be normal or fast")
		return
	}

	turnID := req.TurnID
	if turnID == "" {
		turnID = uuid.NewString()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming unsupported")
		return
	}

	// Subscribe before starting the turn so the first emission cannot race
	// past us.
	events, cancel := s.hub.Subscribe(turnID)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.turns.HandleTurn(r.Context(), domain.InboundMessage{
			TurnID: turnID,
			Text:   req.Text,
		}, mode)
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("X-Turn-Id", turnID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case e := <-events:
			_ = enc.Encode(e)
			flusher.Flush()
		case err := <-done:
			// Emissions are delivered synchronously during HandleTurn, so
			// anything left is already buffered. Drain it, then end.
			for {
				select {
				case e := <-events:
					_ = enc.Encode(e)
					flusher.Flush()
				default:
					if err != nil && !errors.Is(err, domain.ErrTurnFailed) {
						s.logger.Warn("turn ended with error",
							zap.String("turn_id", turnID), zap.Error(err))
					}
					return
				}
			}
		case <-r.Context().Done():
			return
		}
	}
}

// handleMatch handles POST /v1/match. Runs the tiered lookup only, no tracks.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "text is required")
		return
	}

	res := s.matcher.Match(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, matchToAPI(res))
}

// handlePublishClip handles POST /v1/clips. Accepts one curated clip in seed
// manifest form and publishes it at seed priority.
func (s *Server) handlePublishClip(w http.ResponseWriter, r *http.Request) {
	var clip indexer.SeedClip
	if err := json.NewDecoder(r.Body).Decode(&clip); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	published, err := s.seeder.Seed(r.Context(), []indexer.SeedClip{clip})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if published == 0 {
		writeError(w, http.StatusConflict, codeAlreadyExists, domain.ErrAlreadyExists.Error())
		return
	}

	writeJSON(w, http.StatusCreated, seedResponse{Published: published})
}

// handleListClips handles GET /v1/clips.
func (s *Server) handleListClips(w http.ResponseWriter, _ *http.Request) {
	snap := s.archive.Snapshot()

	items := make([]clipResponse, len(snap.Entries))
	for i, e := range snap.Entries {
		items[i] = clipToAPI(e)
	}

	writeJSON(w, http.StatusOK, clipListResponse{Version: snap.Version, Items: items})
}

// handleGetClip handles GET /v1/clips/{id}.
func (s *Server) handleGetClip(w http.ResponseWriter, r *http.Request) {
	entry, err := s.archive.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clipToAPI(entry))
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidClip,
		domain.ErrEmbeddingProviderError,
		domain.ErrGeneratorFailure,
		domain.ErrTurnFailed,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	// Prefer the request-scoped logger so errors carry the request id.
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
