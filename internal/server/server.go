// Package server exposes the veracity node over HTTP so a pipeline host
// running in another process can call it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/timvw/veracity-node/internal/events"
	"github.com/timvw/veracity-node/internal/logging"
	"github.com/timvw/veracity-node/internal/model"
	"github.com/timvw/veracity-node/internal/veracity"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Runner is the node surface the server needs. *veracity.Node implements it.
type Runner interface {
	Run(ctx context.Context, query, results any, extra map[string]any) (model.Payload, model.Edge, error)
	RunBatch(ctx context.Context, kwargs map[string]any) ([]model.Payload, model.Edge, error)
}

// Server exposes a Runner over HTTP.
type Server struct {
	node     Runner
	logger   *zap.Logger
	timeout  time.Duration
	verdicts *events.Store
}

// New creates a server. A zero timeout disables the per-request deadline.
func New(node Runner, logger *zap.Logger, timeout time.Duration) *Server {
	return &Server{node: node, logger: logging.OrNop(logger), timeout: timeout}
}

// WithVerdicts exposes recent run events on GET /v1/verdicts.
func (s *Server) WithVerdicts(store *events.Store) *Server {
	s.verdicts = store
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/v1/run", s.handleRun)
	r.Post("/v1/run_batch", s.handleRunBatch)
	if s.verdicts != nil {
		r.Get("/v1/verdicts", s.handleVerdicts)
	}

	return r
}

// ---- handlers ----

type runResponse struct {
	Payload model.Payload `json:"payload"`
	Edge    model.Edge    `json:"edge"`
}

type runBatchResponse struct {
	Payloads []model.Payload `json:"payloads"`
	Edge     model.Edge      `json:"edge"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeBody(w, r, false)
	if !ok {
		return
	}

	query := body[model.KeyQuery]
	results := body[model.KeyResults]
	delete(body, model.KeyQuery)
	delete(body, model.KeyResults)

	payload, edge, err := s.node.Run(r.Context(), query, results, body)
	if err != nil {
		s.writeNodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Payload: payload, Edge: edge})
}

func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeBody(w, r, true)
	if !ok {
		return
	}

	payloads, edge, err := s.node.RunBatch(r.Context(), body)
	if err != nil {
		s.writeNodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runBatchResponse{Payloads: payloads, Edge: edge})
}

type verdictsResponse struct {
	Events []events.Event `json:"events"`
}

// handleVerdicts lists recent runs, oldest first. ?rejected=true keeps only
// runs whose results were rewritten.
func (s *Server) handleVerdicts(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	var list []events.Event
	if r.URL.Query().Get("rejected") == "true" {
		list = s.verdicts.SnapshotRejected(now)
	} else {
		list = s.verdicts.Snapshot(now)
	}
	writeJSON(w, http.StatusOK, verdictsResponse{Events: list})
}

// decodeBody reads a JSON object body. With allowEmpty an empty body decodes
// to an empty map.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, allowEmpty bool) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body map[string]any
	err := json.NewDecoder(r.Body).Decode(&body)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && allowEmpty:
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidArgument, "body must be a JSON object")
		return nil, false
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, true
}

// writeNodeError maps node errors to HTTP statuses.
func (s *Server) writeNodeError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
	switch {
	case errors.Is(err, veracity.ErrInvalidArgument):
		log.Info("invalid run request", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidArgument, err.Error())
	case errors.Is(err, veracity.ErrNotSupported):
		writeError(w, r, http.StatusNotImplemented, ErrCodeNotSupported, err.Error())
	default:
		log.Error("run failed", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, ErrCodeCompletionFailed, err.Error())
	}
}
