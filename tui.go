package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type GateMsg struct {
	Open    bool
	Commits int
}
type DevicesMsg struct{ Names []string }
type LogMsg struct{ Text string }
type tickMsg time.Time

const logLines = 6

type tuiModel struct {
	mic         string
	trigger     string
	open        bool
	openedAt    time.Time
	now         time.Time
	transitions int
	lastCommits int
	devices     []string
	devicesSeen bool
	logs        []string
	width       int
}

var (
	talkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	logStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp   = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

func newTUIModel(mic, trigger string) tuiModel {
	return tuiModel{mic: mic, trigger: trigger, now: time.Now()}
}

func NewTUIProgram(mic, trigger string) *tea.Program {
	return tea.NewProgram(newTUIModel(mic, trigger), tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tuiTick()

	case GateMsg:
		if msg.Open && !m.open {
			m.openedAt = m.now
			m.transitions++
		}
		m.open = msg.Open
		m.lastCommits = msg.Commits

	case DevicesMsg:
		m.devices = msg.Names
		m.devicesSeen = true

	case LogMsg:
		m.logs = append(m.logs, msg.Text)
		if len(m.logs) > logLines {
			m.logs = m.logs[len(m.logs)-logLines:]
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	var lines []string

	if m.open {
		held := m.now.Sub(m.openedAt).Seconds()
		if held < 0 {
			held = 0
		}
		lines = append(lines, talkStyle.Render(fmt.Sprintf("● TALK %.1fs", held)))
	} else {
		lines = append(lines, mutedStyle.Render("○ muted"))
	}

	mic := m.mic
	if mic == "" {
		mic = "(none configured)"
	}
	lines = append(lines, infoStyle.Render("mic: "+mic))

	switch {
	case !m.devicesSeen:
	case len(m.devices) == 0:
		lines = append(lines, warnStyle.Render("  not detected"))
	default:
		lines = append(lines, infoStyle.Render(fmt.Sprintf("  %d device(s) gated, %d transition(s)", len(m.devices), m.transitions)))
	}
	lines = append(lines, infoStyle.Render("trigger: "+m.trigger))

	if len(m.logs) > 0 {
		lines = append(lines, "")
		for _, l := range m.logs {
			lines = append(lines, logStyle.Render(truncate(l, m.width-4)))
		}
	}

	lines = append(lines, "")
	lines = append(lines, boldHelp.Render("ctrl+c")+helpStyle.Render(" to quit")+helpStyle.Render("  ptt "+version))

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
