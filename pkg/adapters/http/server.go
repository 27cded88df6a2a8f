package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes one editing session over a JSON API.
// Requests are serialized: a Session is not safe for concurrent use.
type Server struct {
	mu      sync.Mutex
	session *arbor.Session
	streams *StreamManager
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStreams publishes tree changes to SSE clients on GET /events.
// The same manager's Observer must be installed on the editor that opened the session.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer wraps session.
func NewServer(session *arbor.Session, opts ...Option) *Server {
	s := &Server{
		session: session,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates the HTTP handler for session.
func NewHandler(session *arbor.Session, opts ...Option) http.Handler {
	return NewServer(session, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/tree", func(r chi.Router) {
		r.Get("/", s.GetTree)
		r.Get("/mermaid", s.GetMermaid)
		r.Post("/save", s.Save)
		r.Post("/reload", s.Reload)
	})

	r.Post("/links", s.AddLink)
	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", s.AddNode)
		r.Route("/{ref}", func(r chi.Router) {
			r.Get("/", s.GetNode)
			r.Patch("/", s.UpdateNode)
			r.Delete("/", s.RemoveNode)
			r.Post("/reorder", s.Reorder)
			r.Post("/move", s.MoveNode)
			r.Post("/copy", s.CopyNode)
			r.Post("/paste", s.Paste)
			r.Post("/options", s.Options)
			r.Post("/visit", s.Visit)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ReloadSession picks up external changes to the stored tree and notifies SSE clients.
// A stored tree equal to what this session last saved or loaded is ignored, so the watcher
// event caused by POST /tree/save keeps unsaved edits made since.
// It is safe to call from a store watcher while requests are served.
func (s *Server) ReloadSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := s.session.Sync(ctx)
	if err != nil {
		return err
	}
	if changed {
		s.streams.Publish(Change{Op: OpReload})
	}
	return nil
}

func (s *Server) forceReload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Reload(ctx); err != nil {
		return err
	}
	s.streams.Publish(Change{Op: OpReload})
	return nil
}

// resolve maps a path or body reference to a handle. A reference is either a handle
// ("3.1") or an element ID of the current export.
func (s *Server) resolve(ref string) (tree.Handle, error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, ".") {
		h, err := tree.ParseHandle(ref)
		if err != nil {
			return tree.Handle{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		return h, nil
	}
	id, err := strconv.Atoi(ref)
	if err != nil {
		return tree.Handle{}, fmt.Errorf("%w: invalid reference %q", errBadRequest, ref)
	}
	return schema.Lookup(s.session.Tree, id)
}

func (s *Server) pathHandle(w http.ResponseWriter, r *http.Request) (tree.Handle, bool) {
	h, err := s.resolve(chi.URLParam(r, "ref"))
	if err != nil {
		s.writeError(w, err)
		return tree.Handle{}, false
	}
	return h, true
}

var errBadRequest = errors.New("bad request")

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid body: %w", errBadRequest, err))
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrStaleHandle), errors.Is(err, domain.ErrTreeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStructuralViolation), errors.Is(err, arbor.ErrClipboardEmpty):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrLockHeld), errors.Is(err, domain.ErrLockLost):
		return http.StatusLocked
	case errors.Is(err, arbor.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

// mermaid renders the current tree; held by the caller under s.mu.
func (s *Server) mermaid(overlay *graph.Overlay) (string, error) {
	doc, err := s.session.Export()
	if err != nil {
		return "", err
	}
	return graph.GenerateMermaid(doc, overlay), nil
}
