// Package session owns the state of one essay-review session and the
// commands a UI binding uses to drive it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"essayreview/internal/artifact"
	"essayreview/internal/ingest"
	"essayreview/internal/logger"
	"essayreview/internal/model"
	"essayreview/internal/permission"
	"essayreview/internal/selection"
)

var (
	// ErrEmptyInput is returned when a submission has blank text. No backend
	// call is made.
	ErrEmptyInput = errors.New("please enter some text first")
	// ErrBusy is returned when a command arrives while an analysis or file
	// read is in flight. It is not reported to the user.
	ErrBusy = errors.New("session is busy")
)

// Backend is the part of the API client the controller needs.
type Backend interface {
	GetAllTools(ctx context.Context) ([]string, error)
	RunAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// State is the mutable session state. It is only touched under Controller.mu.
type State struct {
	Text           string
	Instructions   string
	Level          model.UsageLevel
	Transcript     string
	TranscriptOpen bool
	Artifacts      []artifact.Artifact
	Processing     bool // Analysis call in flight
	Ingesting      bool // File read in flight
	ToolsLoading   bool // Latest permission resolution in flight
	ToolsVisible   bool // Re-evaluated on content changes
	Status         string

	levelSeq uint64 // Token of the most recent level commit
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	SessionID      string                `json:"sessionId"`
	Text           string                `json:"text"`
	Instructions   string                `json:"instructions"`
	Level          model.LevelInfo       `json:"level"`
	Tools          []selection.ToolState `json:"tools"`
	AllowedTools   []string              `json:"allowedTools"`
	SelectedTools  []string              `json:"selectedTools"`
	ToolsVisible   bool                  `json:"toolsVisible"`
	ToolsLoading   bool                  `json:"toolsLoading"`
	Processing     bool                  `json:"processing"`
	Ingesting      bool                  `json:"ingesting"`
	Status         string                `json:"status"`
	Transcript     string                `json:"transcript"`
	TranscriptOpen bool                  `json:"transcriptOpen"`
	Artifacts      []artifact.Artifact   `json:"artifacts"`
}

// Controller serializes every mutation of one session. No lock is held
// while waiting on the backend, a file read or PDF extraction.
type Controller struct {
	id        string
	backend   Backend
	resolver  permission.Resolver
	ingestor  *ingest.Ingestor
	downloads *artifact.Store
	log       *slog.Logger

	mu        sync.Mutex
	state     State
	tools     *selection.Store
	listeners map[int]Listener
	nextID    int
}

// Option configures a Controller.
type Option func(*Controller)

// WithIngestor replaces the default document ingestor.
func WithIngestor(i *ingest.Ingestor) Option {
	return func(c *Controller) { c.ingestor = i }
}

// WithDownloads publishes each run's artifacts into store.
func WithDownloads(store *artifact.Store) Option {
	return func(c *Controller) { c.downloads = store }
}

// WithLogger sets the logger. The session ID is attached automatically.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New creates a controller for a fresh session at level 0 with empty text.
func New(backend Backend, resolver permission.Resolver, opts ...Option) *Controller {
	c := &Controller{
		id:        uuid.NewString(),
		backend:   backend,
		resolver:  resolver,
		tools:     selection.NewStore(),
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithSession(c.id)
	} else {
		c.log = c.log.With("sessionID", c.id)
	}
	if c.ingestor == nil {
		c.ingestor = ingest.NewIngestor(ingest.WithLogger(c.log))
	}
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Subscribe registers l and returns a function that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) emit(events ...Event) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}

func (c *Controller) notify(level NoticeLevel, err error, format string, args ...any) {
	c.emit(Event{Kind: EventNotice, Notice: &Notice{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}})
}

var stateChanged = Event{Kind: EventStateChanged}

// Start loads the tool catalog and resolves permissions for the current level.
func (c *Controller) Start(ctx context.Context) error {
	catalog, err := c.backend.GetAllTools(ctx)
	if err != nil {
		c.log.Error("failed to load tool catalog", "error", err)
		c.notify(NoticeError, err, "Could not load the tool list: %v", err)
		return err
	}

	c.mu.Lock()
	c.tools.SetCatalog(catalog)
	level := c.state.Level
	c.mu.Unlock()

	c.log.Info("tool catalog loaded", "tools", len(catalog))
	c.emit(stateChanged)

	return c.OnLevelCommitted(ctx, level)
}

// Catalog returns the loaded tool catalog.
func (c *Controller) Catalog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tools.Catalog()
}

// PreviewLevel returns the description of level without resolving permissions.
func (c *Controller) PreviewLevel(level model.UsageLevel) (model.LevelInfo, error) {
	return level.Info()
}

// OnLevelCommitted records level and resolves its allowed tools. Only the
// most recent commit may change the allowed set; responses to superseded
// commits are discarded. On failure the allowed set is left unchanged.
func (c *Controller) OnLevelCommitted(ctx context.Context, level model.UsageLevel) error {
	if !level.Valid() {
		err := fmt.Errorf("usage level %d out of range", int(level))
		c.notify(NoticeError, err, "Invalid usage level %d", int(level))
		return err
	}

	c.mu.Lock()
	if c.state.Processing {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.Level = level
	c.state.levelSeq++
	seq := c.state.levelSeq
	c.state.ToolsLoading = true
	c.mu.Unlock()
	c.emit(stateChanged)

	allowed, err := c.resolver.Resolve(ctx, level)

	c.mu.Lock()
	if seq != c.state.levelSeq {
		c.mu.Unlock()
		c.log.Debug("discarding stale permission response", "level", int(level), "seq", seq)
		return nil
	}
	c.state.ToolsLoading = false
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("permission check failed", "level", int(level), "error", err)
		c.emit(stateChanged)
		c.notify(NoticeWarning, err, "Permission check failed: %v", err)
		return err
	}
	dropped := c.tools.SetAllowed(allowed)
	c.mu.Unlock()

	if len(dropped) > 0 {
		c.log.Info("deselected tools no longer permitted", "level", int(level), "tools", dropped)
	}
	c.emit(stateChanged)
	return nil
}

// OnToolToggled flips the selection of name. It reports false when the tool
// is not permitted or an analysis is in flight.
func (c *Controller) OnToolToggled(name string) bool {
	c.mu.Lock()
	if c.state.Processing {
		c.mu.Unlock()
		return false
	}
	ok := c.tools.Toggle(name)
	c.mu.Unlock()

	if ok {
		c.emit(stateChanged)
	}
	return ok
}

// OnTextEdited replaces the session text with user input.
func (c *Controller) OnTextEdited(text string) bool {
	c.mu.Lock()
	if c.state.Processing || c.state.Ingesting {
		c.mu.Unlock()
		return false
	}
	c.state.Text = text
	c.contentChangedLocked()
	c.mu.Unlock()

	c.emit(Event{Kind: EventContentChanged})
	return true
}

// OnInstructionsEdited replaces the extra instructions.
func (c *Controller) OnInstructionsEdited(text string) bool {
	c.mu.Lock()
	if c.state.Processing {
		c.mu.Unlock()
		return false
	}
	c.state.Instructions = text
	c.mu.Unlock()

	c.emit(stateChanged)
	return true
}

func (c *Controller) contentChangedLocked() {
	c.state.ToolsVisible = c.state.Text != ""
}

// OnFileSelected ingests src and replaces the session text with the result.
// Unsupported files leave the text untouched; an unreadable PDF replaces it
// with a fixed error message. progress may be nil.
func (c *Controller) OnFileSelected(ctx context.Context, src ingest.Source, progress ingest.ProgressFunc) error {
	c.mu.Lock()
	if c.state.Processing || c.state.Ingesting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.Ingesting = true
	if src.IsPDF() {
		c.state.Status = "Reading PDF file..."
	}
	c.mu.Unlock()
	c.emit(stateChanged)

	defer func() {
		c.mu.Lock()
		c.state.Ingesting = false
		c.state.Status = ""
		c.mu.Unlock()
		c.emit(stateChanged)
	}()

	text, err := c.ingestor.Ingest(ctx, src, func(p ingest.Progress) {
		c.mu.Lock()
		c.state.Status = p.String()
		c.mu.Unlock()
		c.emit(Event{Kind: EventProgress, Progress: &p})
		if progress != nil {
			progress(p)
		}
	})

	var unreadable *ingest.UnreadablePdfError
	switch {
	case errors.As(err, &unreadable):
		c.mu.Lock()
		c.state.Text = ingest.UnreadablePdfMessage
		c.mu.Unlock()
		c.notify(NoticeError, err, "%s", ingest.UnreadablePdfMessage)
		return err
	case err != nil:
		c.log.Warn("file ingestion failed", "error", err)
		c.notify(NoticeError, err, "%v", err)
		return err
	}

	c.mu.Lock()
	c.state.Text = text
	c.contentChangedLocked()
	c.mu.Unlock()

	c.emit(Event{Kind: EventContentChanged})
	return nil
}

// OnSubmit runs an analysis over the current session state.
func (c *Controller) OnSubmit(ctx context.Context) (*model.AnalysisResult, error) {
	c.mu.Lock()
	text := c.state.Text
	level := c.state.Level
	tools := c.tools.Selected()
	instructions := c.state.Instructions
	c.mu.Unlock()

	return c.Run(ctx, text, level, tools, instructions)
}

// Run performs one submit cycle: it issues exactly one backend call and, on
// success, replaces the session text, stores the transcript and materializes
// the artifacts. The processing flag is cleared before Run returns, whatever
// the outcome. Re-entrant calls return ErrBusy without side effects.
func (c *Controller) Run(ctx context.Context, text string, level model.UsageLevel, tools []string, instructions string) (*model.AnalysisResult, error) {
	c.mu.Lock()
	if c.state.Processing || c.state.Ingesting {
		c.mu.Unlock()
		c.log.Debug("ignoring submit while busy")
		return nil, ErrBusy
	}
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		c.notify(NoticeError, ErrEmptyInput, "Please enter some text first.")
		return nil, ErrEmptyInput
	}
	c.state.Processing = true
	c.mu.Unlock()
	c.emit(stateChanged)

	defer func() {
		c.mu.Lock()
		c.state.Processing = false
		c.mu.Unlock()
		c.emit(stateChanged)
	}()

	req := model.AnalysisRequest{
		Text:         text,
		Level:        level,
		Tools:        append([]string{}, tools...),
		Instructions: instructions,
	}
	c.log.Info("submitting analysis", "level", int(level), "tools", req.Tools, "chars", len(text))

	res, err := c.backend.RunAnalysis(ctx, req)
	if err != nil {
		c.log.Error("analysis failed", "error", err)
		c.notify(NoticeError, err, "An error occurred: %v", err)
		return nil, err
	}

	c.apply(res)
	return res, nil
}

func (c *Controller) apply(res *model.AnalysisResult) {
	arts := artifact.FromFiles(res.Files)

	c.mu.Lock()
	if res.RevisedText != nil {
		c.state.Text = *res.RevisedText
	}
	c.state.Transcript = res.Transcript
	c.state.TranscriptOpen = true
	c.state.Artifacts = arts
	c.contentChangedLocked()
	c.mu.Unlock()

	if c.downloads != nil {
		c.downloads.Publish(arts)
	}
	if res.RevisedText == nil {
		c.log.Warn("backend response had no revised_text; keeping current text")
	}
	c.log.Info("analysis applied", "files", len(arts), "transcriptChars", len(res.Transcript))

	c.emit(Event{Kind: EventContentChanged})
	c.notify(NoticeInfo, nil, "Analysis complete: %d file(s) ready", len(arts))
}

// CloseTranscript hides the transcript view until the next run.
func (c *Controller) CloseTranscript() {
	c.mu.Lock()
	c.state.TranscriptOpen = false
	c.mu.Unlock()
	c.emit(stateChanged)
}

// Artifact looks up an artifact of the last run by {name}.{extension}.
func (c *Controller) Artifact(fileName string) (artifact.Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.state.Artifacts {
		if a.FileName() == fileName {
			return a, true
		}
	}
	return artifact.Artifact{}, false
}

// Snapshot returns a copy of the session for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, _ := c.state.Level.Info()
	return Snapshot{
		SessionID:      c.id,
		Text:           c.state.Text,
		Instructions:   c.state.Instructions,
		Level:          info,
		Tools:          c.tools.States(),
		AllowedTools:   c.tools.Allowed(),
		SelectedTools:  c.tools.Selected(),
		ToolsVisible:   c.state.ToolsVisible,
		ToolsLoading:   c.state.ToolsLoading,
		Processing:     c.state.Processing,
		Ingesting:      c.state.Ingesting,
		Status:         c.state.Status,
		Transcript:     c.state.Transcript,
		TranscriptOpen: c.state.TranscriptOpen,
		Artifacts:      slices.Clone(c.state.Artifacts),
	}
}
