package tui

import (
	"context"

	"essayreview/internal/model"
	"essayreview/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Pane is the part of the screen that receives key input.
type Pane int

const (
	PaneEssay Pane = iota
	PaneInstructions
	PaneLevel
	PaneTools
	PaneOutput
)

var paneNames = []string{"Essay", "Instructions", "Usage Level", "Tools", "Output"}

func (p Pane) String() string {
	if int(p) < len(paneNames) {
		return paneNames[p]
	}
	return "?"
}

// OutputTab selects what the output panel shows.
type OutputTab int

const (
	TabTranscript OutputTab = iota
	TabFiles
)

// eventBuffer bounds how many controller events may queue between renders.
// Overflowing state events are dropped; the next one carries a fresh snapshot.
const eventBuffer = 256

// AppModel holds the TUI state.
type AppModel struct {
	ctx         context.Context
	ctrl        *session.Controller
	events      chan session.Event
	unsubscribe func()

	// Data
	Snapshot session.Snapshot
	Notice   *session.Notice
	Started  bool

	// UI State
	Focus        Pane
	WindowSize   tea.WindowSizeMsg
	PreviewLevel model.UsageLevel
	levelSeq     int // Debounce token for level commits
	ToolIdx      int
	Tab          OutputTab
	ArtifactIdx  int
	ShowHelp     bool
	HelpScrollY  int

	// File prompt
	PromptMode bool
	FilePrompt textinput.Model

	// Components
	Essay        textarea.Model
	Instructions textinput.Model
	Spinner      spinner.Model
	Output       viewport.Model
	Help         help.Model
	keys         keyMap
}

// InitialModel returns the initial state bound to ctrl. The model subscribes
// to ctrl immediately; call Close when the program exits.
func InitialModel(ctx context.Context, ctrl *session.Controller) AppModel {
	ta := textarea.New()
	ta.Placeholder = "Paste or type your essay here..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Focus()

	in := textinput.New()
	in.Placeholder = "e.g. Use MLA format for citations"
	in.CharLimit = 500

	fp := textinput.New()
	fp.Placeholder = "path/to/essay.pdf"
	fp.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	events := make(chan session.Event, eventBuffer)
	unsubscribe := ctrl.Subscribe(func(ev session.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	snap := ctrl.Snapshot()
	return AppModel{
		ctx:          ctx,
		ctrl:         ctrl,
		events:       events,
		unsubscribe:  unsubscribe,
		Snapshot:     snap,
		PreviewLevel: snap.Level.Level,
		FilePrompt:   fp,
		Essay:        ta,
		Instructions: in,
		Spinner:      sp,
		Output:       viewport.New(0, 0),
		Help:         help.New(),
		keys:         defaultKeys(),
	}
}

// Close detaches the model from its controller.
func (m *AppModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Busy reports whether a long-running operation is in flight.
func (m *AppModel) Busy() bool {
	return m.Snapshot.Processing || m.Snapshot.Ingesting
}
