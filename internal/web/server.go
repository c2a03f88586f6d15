// Package web serves a browser front end for one essay-review session.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"essayreview/internal/api"
	"essayreview/internal/artifact"
	"essayreview/internal/ingest"
	"essayreview/internal/logger"
	"essayreview/internal/model"
	"essayreview/internal/session"
	"essayreview/internal/transcript"
)

//go:embed static/*
var staticFS embed.FS

//go:embed help.md
var helpMD string

// DefaultMaxUpload caps the size of an uploaded essay.
const DefaultMaxUpload = 32 << 20

// Server binds HTTP routes to a session controller.
type Server struct {
	ctrl      *session.Controller
	downloads *artifact.Store
	log       *slog.Logger
	maxUpload int64
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMaxUpload overrides DefaultMaxUpload.
func WithMaxUpload(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// NewServer builds the router. downloads is where the controller publishes
// artifacts; files are served from it until they expire.
func NewServer(ctrl *session.Controller, downloads *artifact.Store, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		downloads: downloads,
		maxUpload: DefaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.WithComponent("web")
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(s.logging)
	r.Use(middleware.Recoverer)

	subFS, _ := fs.Sub(staticFS, "static")
	r.Handle("/*", http.FileServer(http.FS(subFS)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/levels", s.handleLevels)
		r.Get("/levels/{level}", s.handlePreviewLevel)
		r.Post("/level", s.handleCommitLevel)
		r.Post("/tools/toggle", s.handleToggleTool)
		r.Put("/text", s.handleText)
		r.Put("/instructions", s.handleInstructions)
		r.Post("/upload", s.handleUpload)
		r.Post("/run", s.handleRun)
		r.Get("/transcript", s.handleTranscript)
		r.Delete("/transcript", s.handleCloseTranscript)
		r.Get("/files/{name}", s.handleFile)
		r.Get("/help", s.handleHelp)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorBody struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, apiErrorBody{Error: apiError{Code: errCode, Message: message}})
}

// writeCommandErr maps controller errors onto HTTP statuses.
func writeCommandErr(w http.ResponseWriter, err error) {
	var netErr *api.NetworkError
	var unsupported *ingest.UnsupportedFileTypeError
	var unreadable *ingest.UnreadablePdfError
	switch {
	case errors.Is(err, session.ErrBusy):
		writeErr(w, http.StatusConflict, "busy", "an operation is already in progress")
	case errors.Is(err, session.ErrEmptyInput):
		writeErr(w, http.StatusBadRequest, "empty_input", "Please enter some text first.")
	case errors.As(err, &unsupported):
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_file_type", err.Error())
	case errors.As(err, &unreadable):
		writeErr(w, http.StatusUnprocessableEntity, "unreadable_pdf", ingest.UnreadablePdfMessage)
	case errors.As(err, &netErr):
		writeErr(w, http.StatusBadGateway, "backend_error", err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Levels())
}

func (s *Server) handlePreviewLevel(w http.ResponseWriter, r *http.Request) {
	var n int
	if _, err := fmt.Sscanf(chi.URLParam(r, "level"), "%d", &n); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_level", "level must be an integer")
		return
	}
	info, err := s.ctrl.PreviewLevel(model.UsageLevel(n))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_level", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCommitLevel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Level *int `json:"level"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Level == nil {
		writeErr(w, http.StatusBadRequest, "invalid_level", "level is required")
		return
	}
	level := model.UsageLevel(*body.Level)
	if !level.Valid() {
		writeErr(w, http.StatusBadRequest, "invalid_level", fmt.Sprintf("level must be between %d and %d", model.MinLevel, model.MaxLevel))
		return
	}
	if err := s.ctrl.OnLevelCommitted(r.Context(), level); errors.Is(err, session.ErrBusy) {
		writeCommandErr(w, err)
		return
	}
	// A failed permission check keeps the previous allowed set; the snapshot
	// tells the client what is in effect.
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleToggleTool(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tool string `json:"tool"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if !s.ctrl.OnToolToggled(body.Tool) {
		writeErr(w, http.StatusConflict, "tool_unavailable", fmt.Sprintf("%q is not available right now", body.Tool))
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if !s.ctrl.OnTextEdited(body.Text) {
		writeCommandErr(w, session.ErrBusy)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Instructions string `json:"instructions"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if !s.ctrl.OnInstructionsEdited(body.Instructions) {
		writeCommandErr(w, session.ErrBusy)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_upload", fmt.Sprintf("file is required: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, http.StatusRequestEntityTooLarge, "invalid_upload", err.Error())
		return
	}

	src := ingest.FromFile(ingest.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err := s.ctrl.OnFileSelected(r.Context(), src, nil); err != nil {
		writeCommandErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ctrl.OnSubmit(r.Context()); err != nil {
		writeCommandErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

type transcriptResponse struct {
	Open    bool               `json:"open"`
	Entries []transcript.Entry `json:"entries"`
	Summary transcript.Summary `json:"summary"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	entries, err := transcript.ParseString(snap.Transcript)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if entries == nil {
		entries = []transcript.Entry{}
	}
	writeJSON(w, http.StatusOK, transcriptResponse{
		Open:    snap.TranscriptOpen,
		Entries: entries,
		Summary: transcript.Summarize(entries),
	})
}

func (s *Server) handleCloseTranscript(w http.ResponseWriter, r *http.Request) {
	s.ctrl.CloseTranscript()
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := s.downloads.Get(name)
	if !ok {
		writeErr(w, http.StatusNotFound, "not_found", fmt.Sprintf("%s is not available; run the analysis again", name))
		return
	}

	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName()))
	w.Header().Set("Content-Length", fmt.Sprint(a.Size()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Content)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	text := strings.ReplaceAll(helpMD, "{{VERSION}}", model.Version)

	w.Header().Set("Content-Type", "text/markdown")
	_, _ = w.Write([]byte(text))
}
