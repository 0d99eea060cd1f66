package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

const (
	PlaceHolderText = "Choice number, Enter to wait, /help for commands..."
	newRunLabel     = "New run"
	autoTickDelay   = 150 * time.Millisecond
)

type entryKind int

const (
	entryEvent entryKind = iota
	entryChoice
	entryResult
	entryNote
	entryError
)

// logEntry is kept unwrapped so the log can be reflowed on resize.
type logEntry struct {
	kind  entryKind
	title string
	text  string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	runner       *sim.Runner
	log          []logEntry
	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error

	// Session selection state
	showSessionModal bool
	sessions         []string
	selectedSession  int
	loadingSessions  bool

	// Quit confirmation state
	showQuitModal bool

	// Autoplay state
	autoLeft  int
	autoTotal int
}

type sessionsLoadedMsg struct {
	sessions []string
	err      error
}

type runnerReadyMsg struct {
	runner *sim.Runner
	err    error
}

type autoTickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:           cfg,
		textarea:         ta,
		logViewport:      logVp,
		metaViewport:     metaVp,
		showSessionModal: true,
		loadingSessions:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadSessions()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showSessionModal {
		return m.updateSessionModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.autoLeft = 0
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.autoLeft > 0 {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			cmd := m.handleInput(input)
			m.refresh()
			return m, cmd
		}

	case autoTickMsg:
		if m.autoLeft <= 0 {
			return m, nil
		}
		m.autoLeft--
		m.autoStep()
		m.refresh()
		if m.autoLeft > 0 {
			return m, autoTick()
		}
		m.addNote("Autoplay finished.")
		m.refresh()
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// handleInput routes one line of player input. A number answers the
// pending encounter, an empty line waits one tick.
func (m *ConsoleUI) handleInput(input string) tea.Cmd {
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	if enc := m.runner.Pending(); enc != nil {
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(enc.Choices) {
			m.addError(fmt.Sprintf("Pick a choice from 1 to %d.", len(enc.Choices)))
			return nil
		}
		m.choose(enc.Choices[n-1])
		return nil
	}

	if input != "" {
		m.addNote("Nothing is asking for a choice. Press Enter to let time pass.")
		return nil
	}
	m.tick()
	return nil
}

func (m *ConsoleUI) handleCommand(input string) tea.Cmd {
	fields := strings.Fields(strings.ToLower(input))

	switch fields[0] {
	case "/help":
		m.addNote(`Commands:
• 1, 2, ... - Answer the current event
• Enter - Let one tick pass
• /auto N - Let N ticks pass, choosing at random
• /save - Save the session
• /tensions - List active tensions
• Ctrl+C - Quit`)

	case "/auto":
		n := 12
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				n = v
			}
		}
		m.autoLeft, m.autoTotal = n, n
		return autoTick()

	case "/save":
		if m.config.Store == nil {
			m.addError("Saving needs REDIS_URL.")
			return nil
		}
		if err := m.runner.Save(context.Background()); err != nil {
			m.addError(err.Error())
			return nil
		}
		m.addNote("Saved session " + m.runner.Session().ID.String())

	case "/tensions":
		active := m.runner.Session().Tensions.Active()
		if len(active) == 0 {
			m.addNote("Nothing is building against you.")
			return nil
		}
		var b strings.Builder
		for _, t := range active {
			fmt.Fprintf(&b, "• %s %.2f (%s)\n", t.TypeKey, t.Severity, t.Stage)
		}
		m.addNote(strings.TrimRight(b.String(), "\n"))

	default:
		m.addError("Unknown command " + fields[0])
	}
	return nil
}

func (m *ConsoleUI) tick() {
	enc, err := m.runner.Tick(context.Background())
	if err != nil {
		m.addError(err.Error())
		return
	}
	if enc == nil {
		m.addNote("Time passes.")
		return
	}
	m.showEncounter(enc)
}

func (m *ConsoleUI) choose(choice int) {
	res, err := m.runner.Choose(context.Background(), choice)
	if err != nil {
		m.addError(err.Error())
		return
	}
	m.log = append(m.log, logEntry{kind: entryChoice, text: res.Choice})
	if res.Text != "" {
		m.log = append(m.log, logEntry{kind: entryResult, text: res.Text})
	}
	if res.Next != nil {
		m.showEncounter(res.Next)
	}
}

// autoStep advances one tick and answers whatever comes up at random.
func (m *ConsoleUI) autoStep() {
	if m.runner.Pending() == nil {
		m.tick()
	}
	for enc := m.runner.Pending(); enc != nil; enc = m.runner.Pending() {
		if !m.runner.Survivor().Alive() {
			m.autoLeft = 0
			return
		}
		m.choose(m.runner.AutoChoose(enc))
	}
	if !m.runner.Survivor().Alive() {
		m.autoLeft = 0
	}
}

func (m *ConsoleUI) showEncounter(enc *engine.Encounter) {
	title := enc.Title
	if title == "" {
		title = enc.EventID
	}
	var b strings.Builder
	if enc.Text != "" {
		b.WriteString(enc.Text + "\n")
	}
	t := enc.Event
	if t == nil {
		// Encounters restored from storage carry only the event id.
		t, _ = m.config.Bundle.Catalog.Get(enc.EventID)
	}
	for i, idx := range enc.Choices {
		label := fmt.Sprintf("choice %d", idx)
		if t != nil && idx < len(t.Choices) {
			label = t.Choices[idx].Label
		}
		fmt.Fprintf(&b, "\n  %d. %s", i+1, label)
	}
	m.log = append(m.log, logEntry{kind: entryEvent, title: title, text: b.String()})
}

func (m *ConsoleUI) addNote(text string) {
	m.log = append(m.log, logEntry{kind: entryNote, text: text})
}

func (m *ConsoleUI) addError(text string) {
	m.log = append(m.log, logEntry{kind: entryError, text: text})
}

func (m *ConsoleUI) layout() {
	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(logWidth - 4)
}

func (m *ConsoleUI) refresh() {
	if m.runner == nil {
		return
	}
	m.logViewport.SetContent(m.renderLog(m.logViewport.Width - 6))
	m.logViewport.GotoBottom()
	m.metaViewport.SetContent(writeMetadata(m.runner))
}

// renderLog wraps every log entry for the current viewport width.
func (m ConsoleUI) renderLog(width int) string {
	width = max(width, 20)
	var content strings.Builder
	content.WriteString(titleStyle.Render("THE WILDS") + "\n\n")
	content.WriteString("Press Enter to let time pass. Answer events by number.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.log {
		text := wordwrap.String(e.text, width)
		switch e.kind {
		case entryEvent:
			content.WriteString(eventStyle.Render(e.title) + "\n" + text + "\n\n")
		case entryChoice:
			content.WriteString(choiceStyle.Render("> "+text) + "\n")
		case entryResult:
			content.WriteString(resultStyle.Render(text) + "\n\n")
		case entryError:
			content.WriteString(errorStyle.Render(text) + "\n\n")
		default:
			content.WriteString(promptStyle.Render(text) + "\n\n")
		}
	}

	if m.autoLeft > 0 {
		content.WriteString(m.renderProgressBar(width) + "\n")
	}
	return content.String()
}

func writeMetadata(r *sim.Runner) string {
	w := r.World()
	s := r.Survivor()
	snap := r.Snapshot()

	var content strings.Builder
	content.WriteString(titleStyle.Render("SURVIVOR") + "\n\n")
	fmt.Fprintf(&content, "Session:\n%s...\n\n", r.Session().ID.String()[:8])
	fmt.Fprintf(&content, "Day %d, %02d:%02d\n", w.Day(), w.MinuteOfDay()/60, w.MinuteOfDay()%60)
	fmt.Fprintf(&content, "%s, %s\n", snap.Location.Name, w.Phase())
	fmt.Fprintf(&content, "%s %.1fC\n\n", snap.Weather.Condition, snap.Weather.TemperatureC)

	fmt.Fprintf(&content, "Health:    %3.0f%%\n", s.Health()*100)
	fmt.Fprintf(&content, "Energy:    %3.0f\n", snap.Stats.Energy)
	fmt.Fprintf(&content, "Calories:  %3.0f\n", snap.Stats.Calories)
	fmt.Fprintf(&content, "Hydration: %3.0f\n", snap.Stats.Hydration)
	fmt.Fprintf(&content, "Warmth:    %3.0f\n", snap.Stats.Warmth)
	if snap.Body.Bleeding {
		content.WriteString(errorStyle.Render("Bleeding") + "\n")
	}
	content.WriteString("\n")

	content.WriteString("Tensions:\n")
	active := r.Session().Tensions.Active()
	if len(active) == 0 {
		content.WriteString("None\n")
	}
	for _, t := range active {
		fmt.Fprintf(&content, "• %s %.2f\n", t.TypeKey, t.Severity)
	}

	if effects := s.Effects(); len(effects) > 0 {
		content.WriteString("\nEffects:\n")
		for _, e := range effects {
			fmt.Fprintf(&content, "• %s\n", e.Name)
		}
	}

	content.WriteString("\nCommands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Wait\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /auto N: Autoplay\n")

	return content.String()
}

func (m ConsoleUI) loadSessions() tea.Cmd {
	return func() tea.Msg {
		sessions := []string{newRunLabel}
		if m.config.Store == nil {
			return sessionsLoadedMsg{sessions: sessions}
		}
		ids, err := m.config.Store.ListSessions(context.Background())
		if err != nil {
			return sessionsLoadedMsg{err: err}
		}
		for _, id := range ids {
			sessions = append(sessions, id.String())
		}
		return sessionsLoadedMsg{sessions: sessions}
	}
}

func (m ConsoleUI) startRun(choice string) tea.Cmd {
	return func() tea.Msg {
		if choice == newRunLabel {
			r, err := m.config.NewRunner(nil)
			return runnerReadyMsg{r, err}
		}
		id, err := uuid.Parse(choice)
		if err != nil {
			return runnerReadyMsg{nil, err}
		}
		sess, err := m.config.Store.LoadSession(context.Background(), id)
		if err != nil {
			return runnerReadyMsg{nil, err}
		}
		r, err := m.config.NewRunner(sess)
		return runnerReadyMsg{r, err}
	}
}

func (m ConsoleUI) updateSessionModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionsLoadedMsg:
		m.loadingSessions = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.sessions = msg.sessions
		}

	case runnerReadyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runner = msg.runner
		m.showSessionModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		m.ready = true
		m.addNote(fmt.Sprintf("You wake at camp. Seed %d.", m.runner.Session().Seed))
		if enc := m.runner.Pending(); enc != nil {
			m.showEncounter(enc)
		}
		m.refresh()
		m.textarea.Focus()
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingSessions || m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedSession > 0 {
				m.selectedSession--
			}
		case tea.KeyDown:
			if m.selectedSession < len(m.sessions)-1 {
				m.selectedSession++
			}
		case tea.KeyEnter:
			if len(m.sessions) > 0 {
				return m, m.startRun(m.sessions[m.selectedSession])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	if m.config.Store != nil {
		content.WriteString("Unsaved progress since the last /save is lost.")
	} else {
		content.WriteString("This run is not saved anywhere.")
	}
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSessionModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingSessions:
		content.WriteString(modalTitleStyle.Render("Loading Sessions..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Looking for saved runs..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	default:
		content.WriteString(modalTitleStyle.Render("Start or Resume"))
		content.WriteString("\n\n")

		for i, s := range m.sessions {
			if i == m.selectedSession {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", s)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", s)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showSessionModal {
		return m.renderSessionModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}

// renderProgressBar shows how much of an autoplay run is done.
func (m ConsoleUI) renderProgressBar(width int) string {
	usable := min(max(width, 10), 80)
	done := m.autoTotal - m.autoLeft
	filled := 0
	if m.autoTotal > 0 {
		filled = done * usable / m.autoTotal
	}

	var bar strings.Builder
	for i := range usable {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func autoTick() tea.Cmd {
	return tea.Tick(autoTickDelay, func(time.Time) tea.Msg {
		return autoTickMsg{}
	})
}
