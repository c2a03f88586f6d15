package tui

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"essayreview/internal/artifact"
	"essayreview/internal/ingest"
	"essayreview/internal/model"
	"essayreview/internal/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// levelDebounce is how long the level slider must rest before the level is
// committed and permissions are resolved.
const levelDebounce = 250 * time.Millisecond

// MsgEvent wraps a controller event.
type MsgEvent session.Event

// MsgCommitLevel fires when a debounce interval ends. It is ignored unless
// Seq is still the latest preview.
type MsgCommitLevel struct {
	Seq   int
	Level model.UsageLevel
}

// MsgDone reports that a background controller command returned.
type MsgDone struct {
	Op  string
	Err error
}

// MsgNotice carries a message produced by the TUI itself.
type MsgNotice session.Notice

// Update handles events.
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		m.layout()
		return m, nil

	case MsgEvent:
		if msg.Kind == session.EventNotice && msg.Notice != nil {
			m.Notice = msg.Notice
		}
		m.refresh()
		return m, m.waitForEvent()

	case MsgCommitLevel:
		if msg.Seq != m.levelSeq {
			return m, nil
		}
		return m, m.commitLevelCmd(msg.Level)

	case MsgDone:
		m.handleDone(msg)
		return m, nil

	case MsgNotice:
		n := session.Notice(msg)
		m.Notice = &n
		return m, nil

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	// Cursor blinks and other component messages.
	return m, m.updateFocused(msg)
}

func (m *AppModel) handleDone(msg MsgDone) {
	switch msg.Op {
	case "start":
		m.Started = true
	case "level":
		if errors.Is(msg.Err, session.ErrBusy) {
			m.PreviewLevel = m.ctrl.Snapshot().Level.Level
		}
	case "run":
		if msg.Err == nil {
			m.Tab = TabTranscript
			m.ArtifactIdx = 0
			m.Output.GotoTop()
		}
	}
	m.refresh()
}

func (m *AppModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		return tea.Quit
	}

	if m.ShowHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Cancel):
			m.ShowHelp = false
		case key.Matches(msg, m.keys.Up):
			if m.HelpScrollY > 0 {
				m.HelpScrollY--
			}
		case key.Matches(msg, m.keys.Down):
			m.HelpScrollY++
		}
		return nil
	}

	if m.PromptMode {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.closePrompt()
			return nil
		case key.Matches(msg, m.keys.Confirm):
			path := strings.TrimSpace(m.FilePrompt.Value())
			m.closePrompt()
			if path == "" {
				return nil
			}
			return m.loadFileCmd(path)
		}
		var cmd tea.Cmd
		m.FilePrompt, cmd = m.FilePrompt.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.ShowHelp = true
		m.HelpScrollY = 0
		return nil
	case key.Matches(msg, m.keys.NextPane):
		m.setFocus(m.nextPane(1))
		return nil
	case key.Matches(msg, m.keys.PrevPane):
		m.setFocus(m.nextPane(-1))
		return nil
	case key.Matches(msg, m.keys.Submit):
		if m.Busy() {
			return nil
		}
		return m.submitCmd()
	case key.Matches(msg, m.keys.Open):
		if m.Busy() {
			return nil
		}
		m.PromptMode = true
		m.FilePrompt.SetValue("")
		m.FilePrompt.Focus()
		return textinput.Blink
	case key.Matches(msg, m.keys.CloseLog):
		m.ctrl.CloseTranscript()
		return nil
	}

	switch m.Focus {
	case PaneEssay:
		before := m.Essay.Value()
		var cmd tea.Cmd
		m.Essay, cmd = m.Essay.Update(msg)
		if after := m.Essay.Value(); after != before && !m.ctrl.OnTextEdited(after) {
			m.Essay.SetValue(before)
		}
		return cmd

	case PaneInstructions:
		before := m.Instructions.Value()
		var cmd tea.Cmd
		m.Instructions, cmd = m.Instructions.Update(msg)
		if after := m.Instructions.Value(); after != before && !m.ctrl.OnInstructionsEdited(after) {
			m.Instructions.SetValue(before)
		}
		return cmd

	case PaneLevel:
		switch {
		case key.Matches(msg, m.keys.Left):
			return m.previewLevel(m.PreviewLevel - 1)
		case key.Matches(msg, m.keys.Right):
			return m.previewLevel(m.PreviewLevel + 1)
		}
		if n, err := strconv.Atoi(msg.String()); err == nil {
			return m.previewLevel(model.UsageLevel(n))
		}

	case PaneTools:
		tools := m.Snapshot.Tools
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.ToolIdx > 0 {
				m.ToolIdx--
			}
		case key.Matches(msg, m.keys.Down):
			if m.ToolIdx < len(tools)-1 {
				m.ToolIdx++
			}
		case key.Matches(msg, m.keys.Toggle):
			if m.ToolIdx < len(tools) {
				m.ctrl.OnToolToggled(tools[m.ToolIdx].Name)
			}
		}

	case PaneOutput:
		switch {
		case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
			if m.Tab == TabTranscript {
				m.Tab = TabFiles
			} else {
				m.Tab = TabTranscript
			}
			m.syncOutput()
			m.Output.GotoTop()
			return nil
		case key.Matches(msg, m.keys.Save):
			if a, ok := m.selectedArtifact(); ok {
				return saveArtifactCmd(".", a)
			}
			return nil
		}
		if m.Tab == TabFiles {
			switch {
			case key.Matches(msg, m.keys.Up):
				if m.ArtifactIdx > 0 {
					m.ArtifactIdx--
					m.syncOutput()
				}
				return nil
			case key.Matches(msg, m.keys.Down):
				if m.ArtifactIdx < len(m.Snapshot.Artifacts)-1 {
					m.ArtifactIdx++
					m.syncOutput()
				}
				return nil
			}
		}
		var cmd tea.Cmd
		m.Output, cmd = m.Output.Update(msg)
		return cmd
	}
	return nil
}

func (m *AppModel) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case m.PromptMode:
		m.FilePrompt, cmd = m.FilePrompt.Update(msg)
	case m.Focus == PaneEssay:
		m.Essay, cmd = m.Essay.Update(msg)
	case m.Focus == PaneInstructions:
		m.Instructions, cmd = m.Instructions.Update(msg)
	}
	return cmd
}

// nextPane skips the tool panel while it is hidden.
func (m *AppModel) nextPane(step int) Pane {
	n := len(paneNames)
	p := m.Focus
	for i := 0; i < n; i++ {
		p = Pane((int(p) + step + n) % n)
		if p != PaneTools || m.Snapshot.ToolsVisible {
			return p
		}
	}
	return m.Focus
}

func (m *AppModel) setFocus(p Pane) {
	m.Focus = p
	m.Essay.Blur()
	m.Instructions.Blur()
	switch p {
	case PaneEssay:
		m.Essay.Focus()
	case PaneInstructions:
		m.Instructions.Focus()
	}
}

func (m *AppModel) closePrompt() {
	m.PromptMode = false
	m.FilePrompt.Blur()
}

// previewLevel moves the slider and schedules a commit. Only the last
// preview inside the debounce window is committed.
func (m *AppModel) previewLevel(l model.UsageLevel) tea.Cmd {
	if !l.Valid() || l == m.PreviewLevel || m.Snapshot.Processing {
		return nil
	}
	m.PreviewLevel = l
	m.levelSeq++
	seq := m.levelSeq
	return tea.Tick(levelDebounce, func(time.Time) tea.Msg {
		return MsgCommitLevel{Seq: seq, Level: l}
	})
}

// refresh pulls a fresh snapshot and brings the widgets in line with it.
func (m *AppModel) refresh() {
	m.Snapshot = m.ctrl.Snapshot()

	if m.Essay.Value() != m.Snapshot.Text {
		m.Essay.SetValue(m.Snapshot.Text)
	}
	if m.ToolIdx >= len(m.Snapshot.Tools) {
		m.ToolIdx = max(len(m.Snapshot.Tools)-1, 0)
	}
	if m.ArtifactIdx >= len(m.Snapshot.Artifacts) {
		m.ArtifactIdx = max(len(m.Snapshot.Artifacts)-1, 0)
	}
	if m.Focus == PaneTools && !m.Snapshot.ToolsVisible {
		m.setFocus(PaneEssay)
	}
	m.syncOutput()
}

func (m *AppModel) selectedArtifact() (artifact.Artifact, bool) {
	if m.Tab != TabFiles || m.ArtifactIdx >= len(m.Snapshot.Artifacts) {
		return artifact.Artifact{}, false
	}
	return m.Snapshot.Artifacts[m.ArtifactIdx], true
}

func (m *AppModel) syncOutput() {
	switch m.Tab {
	case TabTranscript:
		switch {
		case m.Snapshot.TranscriptOpen:
			m.Output.SetContent(renderTranscript(m.Snapshot.Transcript))
		case m.Snapshot.Transcript != "":
			m.Output.SetContent(dimStyle.Render("Transcript closed. It reopens after the next run."))
		default:
			m.Output.SetContent(dimStyle.Render("No analysis yet. Press ctrl+r to run."))
		}
	case TabFiles:
		if a, ok := m.selectedArtifact(); ok {
			m.Output.SetContent(string(a.Content))
		} else {
			m.Output.SetContent(dimStyle.Render("No files generated."))
		}
	}
}

func (m *AppModel) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return MsgEvent(<-events)
	}
}

func (m *AppModel) startCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return MsgDone{Op: "start", Err: ctrl.Start(ctx)}
	}
}

func (m *AppModel) commitLevelCmd(l model.UsageLevel) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return MsgDone{Op: "level", Err: ctrl.OnLevelCommitted(ctx, l)}
	}
}

func (m *AppModel) submitCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		_, err := ctrl.OnSubmit(ctx)
		return MsgDone{Op: "run", Err: err}
	}
}

// loadFileCmd reads path from disk and hands it to the controller. The
// declared type comes from the extension; unknown extensions are sniffed.
func (m *AppModel) loadFileCmd(path string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return MsgNotice{Level: session.NoticeError, Message: fmt.Sprintf("Could not open %s: %v", path, err), Err: err}
		}
		f := ingest.File{
			Name:     filepath.Base(path),
			MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Data:     data,
		}
		return MsgDone{Op: "open", Err: ctrl.OnFileSelected(ctx, ingest.FromFile(f), nil)}
	}
}

// saveArtifactCmd writes a into dir under the last element of its file name.
func saveArtifactCmd(dir string, a artifact.Artifact) tea.Cmd {
	return func() tea.Msg {
		name := filepath.Base(a.FileName())
		if name == "." || name == ".." || name == string(filepath.Separator) {
			err := fmt.Errorf("invalid file name %q", a.FileName())
			return MsgNotice{Level: session.NoticeError, Message: fmt.Sprintf("Could not save: %v", err), Err: err}
		}
		if err := os.WriteFile(filepath.Join(dir, name), a.Content, 0o644); err != nil {
			return MsgNotice{Level: session.NoticeError, Message: fmt.Sprintf("Could not save %s: %v", name, err), Err: err}
		}
		return MsgNotice{Level: session.NoticeInfo, Message: fmt.Sprintf("Saved %s (%d bytes)", name, a.Size())}
	}
}

// Init starts the session and the event loop.
func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.Spinner.Tick, m.waitForEvent(), m.startCmd())
}
