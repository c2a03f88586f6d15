package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"essayreview/internal/model"
	"essayreview/internal/session"
	"essayreview/internal/transcript"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	normalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	adviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // Orange

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")). // Sky Blue/Cyan
			Bold(true).
			Underline(true)

	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	toolSourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)

	borderColor = lipgloss.Color("63")
	activeColor = lipgloss.Color("205")
)

// Fixed interior heights of the right-hand boxes.
const (
	levelBoxHeight = 4
	tabHeaderLines = 2
)

type dimensions struct {
	leftWidth, rightWidth int
	interiorHeight        int
}

func (m *AppModel) dimensions() dimensions {
	// Subtracting 6 for horizontal margin (borders x2 + buffer)
	// Subtracting 6 for vertical margin (title, status, footer, borders)
	netWidth := max(m.WindowSize.Width-6, 40)
	leftWidth := netWidth / 2
	boxHeight := max(m.WindowSize.Height-6, 12)
	return dimensions{
		leftWidth:      leftWidth,
		rightWidth:     netWidth - leftWidth,
		interiorHeight: boxHeight - 2,
	}
}

func (m *AppModel) toolsBoxHeight() int {
	if !m.Snapshot.ToolsVisible {
		return 0
	}
	// Title, blank line, one row per tool, plus borders.
	return len(m.Snapshot.Tools) + 2 + 2
}

// layout sizes the components after a resize.
func (m *AppModel) layout() {
	d := m.dimensions()

	// Title, blank, then the essay; the instructions line takes the last 3 rows.
	m.Essay.SetWidth(d.leftWidth)
	m.Essay.SetHeight(max(d.interiorHeight-5, 3))
	m.Instructions.Width = max(d.leftWidth-16, 10)
	m.FilePrompt.Width = max(d.leftWidth, 20)
	m.Help.Width = m.WindowSize.Width

	m.resizeOutput()
}

func (m *AppModel) resizeOutput() {
	d := m.dimensions()
	used := levelBoxHeight + 2 + m.toolsBoxHeight() + 2 + tabHeaderLines
	m.Output.Width = d.rightWidth
	m.Output.Height = max(d.interiorHeight+2-used, 3)
}

func (m *AppModel) border(p Pane) lipgloss.Color {
	if m.Focus == p && !m.PromptMode {
		return activeColor
	}
	return borderColor
}

func box(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.NormalBorder()).
		BorderForeground(color)
}

func (m *AppModel) View() string {
	if m.WindowSize.Width == 0 {
		return "\n  Starting essay review... please wait.\n"
	}
	if m.ShowHelp {
		return m.renderHelpDialog()
	}

	d := m.dimensions()
	m.resizeOutput()

	header := titleStyle.Render("Essay Review") + dimStyle.Render(fmt.Sprintf("  v%s  session %s", model.Version, shortID(m.Snapshot.SessionID)))

	left := m.renderEditor(d)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderLevel(d),
		m.renderTools(d),
		m.renderOutput(d),
	)

	footer := m.Help.ShortHelpView(m.keys.ShortHelp())
	if m.PromptMode {
		footer = fmt.Sprintf("Open file: %s", m.FilePrompt.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.renderStatus(),
		footer,
	)
}

func (m *AppModel) renderEditor(d dimensions) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Essay"))
	if m.Snapshot.Ingesting {
		b.WriteString(dimStyle.Render("  (reading file)"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.Essay.View())
	b.WriteString("\n\n")

	label := "Instructions "
	if m.Focus == PaneInstructions {
		label = headingStyle.Render(label)
	} else {
		label = dimStyle.Render(label)
	}
	b.WriteString(label + m.Instructions.View())

	color := m.border(PaneEssay)
	if m.Focus == PaneInstructions {
		color = m.border(PaneInstructions)
	}
	return box(d.leftWidth, color).Height(d.interiorHeight).Render(b.String())
}

func (m *AppModel) renderLevel(d dimensions) string {
	var slider strings.Builder
	for _, info := range model.Levels() {
		mark := fmt.Sprintf(" %d ", info.Level)
		switch {
		case info.Level == m.PreviewLevel:
			slider.WriteString(selectedItemStyle.Render(mark))
		case info.Level < m.PreviewLevel:
			slider.WriteString(normalStyle.Render(mark))
		default:
			slider.WriteString(dimStyle.Render(mark))
		}
	}
	if m.Snapshot.ToolsLoading {
		slider.WriteString(" " + m.Spinner.View())
	}

	title := headingStyle.Render("Usage Level")
	desc := ""
	if info, err := m.PreviewLevel.Info(); err == nil {
		desc = normalStyle.Bold(true).Render(info.Title) + ": " + info.Description
	}

	content := title + "\n" + slider.String() + "\n" + desc
	return box(d.rightWidth, m.border(PaneLevel)).
		Height(levelBoxHeight).
		MaxHeight(levelBoxHeight + 2).
		Render(content)
}

func (m *AppModel) renderTools(d dimensions) string {
	if !m.Snapshot.ToolsVisible {
		return ""
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("Tools"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d selected", len(m.Snapshot.SelectedTools))))
	b.WriteString("\n\n")

	if len(m.Snapshot.Tools) == 0 {
		b.WriteString(dimStyle.Render("No tools available."))
	}
	for i, tool := range m.Snapshot.Tools {
		icon := model.IconDisabled
		style := dimStyle
		switch {
		case tool.Selected:
			icon = model.IconSelected
			style = normalStyle
		case tool.Allowed:
			icon = model.IconAllowed
			style = normalStyle
		}
		line := fmt.Sprintf("%s %s", icon, tool.Name)
		if m.Focus == PaneTools && i == m.ToolIdx {
			style = selectedItemStyle
		}
		b.WriteString(style.Render(line))
		if i < len(m.Snapshot.Tools)-1 {
			b.WriteString("\n")
		}
	}
	return box(d.rightWidth, m.border(PaneTools)).Render(b.String())
}

func (m *AppModel) renderOutput(d dimensions) string {
	tab := func(name string, t OutputTab) string {
		if m.Tab == t {
			return activeTabStyle.Render(name)
		}
		return dimStyle.Render(name)
	}

	transcriptTab := "Transcript"
	if m.Snapshot.TranscriptOpen && m.Snapshot.Transcript != "" {
		if entries, err := transcript.ParseString(m.Snapshot.Transcript); err == nil {
			transcriptTab = fmt.Sprintf("Transcript (%s)", transcript.Summarize(entries))
		}
	}

	var b strings.Builder
	b.WriteString(tab(transcriptTab, TabTranscript) + "  " + tab(fmt.Sprintf("Files (%d)", len(m.Snapshot.Artifacts)), TabFiles))
	b.WriteString("\n")

	if m.Tab == TabFiles && len(m.Snapshot.Artifacts) > 0 {
		names := make([]string, len(m.Snapshot.Artifacts))
		for i, a := range m.Snapshot.Artifacts {
			name := fmt.Sprintf("%s %s", model.IconFile, a.FileName())
			if i == m.ArtifactIdx {
				name = selectedItemStyle.Render(name)
			}
			names[i] = name
		}
		b.WriteString(strings.Join(names, "  "))
	}
	b.WriteString("\n")
	b.WriteString(m.Output.View())

	return box(d.rightWidth, m.border(PaneOutput)).Render(b.String())
}

func (m *AppModel) renderStatus() string {
	switch {
	case m.Snapshot.Processing:
		return m.Spinner.View() + " Processing" + model.IconBusy
	case m.Snapshot.Ingesting:
		status := m.Snapshot.Status
		if status == "" {
			status = "Reading file..."
		}
		return m.Spinner.View() + " " + status
	case m.Notice != nil:
		switch m.Notice.Level {
		case session.NoticeError:
			return errorStyle.Render(m.Notice.Message)
		case session.NoticeWarning:
			return adviceStyle.Render(m.Notice.Message)
		default:
			return normalStyle.Render(m.Notice.Message)
		}
	case !m.Started:
		return m.Spinner.View() + " Loading tools" + model.IconBusy
	}
	return dimStyle.Render(fmt.Sprintf("Focus: %s", m.Focus))
}

func (m *AppModel) renderHelpDialog() string {
	w, h := m.WindowSize.Width, m.WindowSize.Height
	if w < 20 || h < 10 {
		return "Window too small"
	}

	helpWidth := min(max(w*80/100, 40), w-4)
	helpHeight := max(h-6, 5)

	lines := strings.Split(helpText(m.keys), "\n")
	contentHeight := helpHeight - 2

	startY := m.HelpScrollY
	if startY > len(lines)-contentHeight {
		startY = len(lines) - contentHeight
	}
	if startY < 0 {
		startY = 0
	}
	m.HelpScrollY = startY

	endY := min(startY+contentHeight, len(lines))
	content := strings.Join(lines[startY:endY], "\n")

	dialog := lipgloss.NewStyle().
		Width(helpWidth).
		Height(helpHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(content)

	return lipgloss.Place(w, h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}

func helpText(k keyMap) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Essay Review Help"))
	b.WriteString("\n\n")
	b.WriteString("Write or load an essay, pick how much AI assistance is allowed,\n")
	b.WriteString("choose tools, then run the analysis. The revised essay replaces\n")
	b.WriteString("the editor text and generated files appear under Files.\n\n")
	b.WriteString(headingStyle.Render("Usage levels"))
	b.WriteString("\n")
	for _, info := range model.Levels() {
		fmt.Fprintf(&b, "  %s\n", info.Title)
	}
	b.WriteString("\n")
	b.WriteString(headingStyle.Render("Keys"))
	b.WriteString("\n")
	for _, group := range k.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ to scroll, f1 or esc to close"))
	return b.String()
}

// renderTranscript colors the source tag of each log entry.
func renderTranscript(text string) string {
	entries, err := transcript.ParseString(text)
	if err != nil || len(entries) == 0 {
		return text
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.Source != "" {
			style := sourceStyle
			if e.IsTool() {
				style = toolSourceStyle
			}
			b.WriteString(style.Render("["+e.Source+"]") + " ")
		}
		b.WriteString(e.Message)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
