package main

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"voicewidget/internal/domain"
)

const defaultWidth = 60

type sessionControl interface {
	Toggle(ctx context.Context)
	Teardown()
	Status() domain.Status
}

type statusMsg domain.Status

type commandMsg string

type responseMsg domain.CommandResult

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#93C5FD"))
	micIdleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	micLiveStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	saidStyle     = lipgloss.NewStyle().Italic(true)
	responseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6EE7B7"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type model struct {
	ctx     context.Context
	session sessionControl

	status   domain.Status
	command  string
	response string
	width    int
	spinner  spinner.Model
	quitting bool
}

func newModel(ctx context.Context, session sessionControl) model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	return model{
		ctx:     ctx,
		session: session,
		status:  session.Status(),
		width:   defaultWidth,
		spinner: spin,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, m.teardown()
		case " ", "space", "enter":
			return m, m.toggle()
		}
		return m, nil
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil
	case statusMsg:
		m.status = domain.Status(msg)
		m.response = m.status.Response
		return m, nil
	case commandMsg:
		m.command = string(msg)
		return m, nil
	case responseMsg:
		m.response = msg.ResponseText
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Session calls emit events through Program.Send, so they run as commands
// rather than on the event loop.
func (m model) toggle() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		session.Toggle(ctx)
		return statusMsg(session.Status())
	}
}

func (m model) teardown() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		session.Teardown()
		return tea.QuitMsg{}
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Jarvis"))
	b.WriteString("\n\n")

	switch m.status.State {
	case domain.SessionStateListening:
		b.WriteString(micLiveStyle.Render("● listening"))
	case domain.SessionStateStarting, domain.SessionStateProcessing:
		b.WriteString(m.spinner.View())
		b.WriteString(micIdleStyle.Render(" working"))
	default:
		b.WriteString(micIdleStyle.Render("○ mic off"))
	}
	b.WriteString("  ")
	if m.status.State == domain.SessionStateError {
		b.WriteString(errorStyle.Render(m.status.Message))
	} else {
		b.WriteString(statusStyle.Render(m.status.Message))
	}
	b.WriteString("\n")

	wrap := m.width - 2
	if wrap < 20 {
		wrap = 20
	}
	if m.status.Transcript != "" {
		b.WriteString("\n")
		b.WriteString(saidStyle.Render(wordwrap.String("You said: "+m.status.Transcript, wrap)))
		b.WriteString("\n")
	}
	if m.response != "" {
		b.WriteString("\n")
		b.WriteString(responseStyle.Render(wordwrap.String(m.response, wrap)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status.Supported {
		b.WriteString(helpStyle.Render("space/enter: toggle mic • q: quit"))
	} else {
		b.WriteString(helpStyle.Render("q: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// programSink forwards session events into the Bubble Tea program once it is
// attached. Events before that are dropped.
type programSink struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (s *programSink) attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *programSink) deliver(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (s *programSink) SessionStatusChanged(status domain.Status) { s.deliver(statusMsg(status)) }

func (s *programSink) VoiceStateChanged(domain.VoiceStateChange) {}

func (s *programSink) CommandForwarded(command string) { s.deliver(commandMsg(command)) }

func (s *programSink) CommandResponded(result domain.CommandResult) {
	s.deliver(responseMsg(result))
}
