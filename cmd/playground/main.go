// Command playground is an interactive cycle-notation scratchpad: edit a
// pattern, preview the events it generates, audition it on the audio
// output.
package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	pattrns "github.com/cbegin/pattrns-go"
)

const (
	sampleRate   = 44100
	previewRuns  = 2
	maxPreview   = 24
	defaultInput = "c4 e4 g4 <b4 d5>"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("57")).Padding(0, 1)
	inputStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	chanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type model struct {
	input   string
	cursor  int
	events  []pattrns.Event
	errMsg  string
	playing bool
	player  *pattrns.Player
	width   int
	height  int
}

func newModel() model {
	m := model{input: defaultInput, cursor: len(defaultInput)}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// compile builds a fresh pattern instance from the current input.
func (m *model) compile() (*pattrns.Pattern, error) {
	base := pattrns.TimeBase{BeatsPerMin: 120, BeatsPerBar: 4, SamplesPerSec: sampleRate}
	return pattrns.FromSource(m.input, base)
}

// refresh recompiles and regenerates the event preview.
func (m *model) refresh() {
	pattern, err := m.compile()
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	wholeNote := int64(pattern.SamplesPerStep())
	m.events = pattrns.RenderEvents(pattern, wholeNote*previewRuns)
}

func (m *model) togglePlayback() {
	if m.playing {
		if m.player != nil {
			_ = m.player.Stop()
			m.player = nil
		}
		m.playing = false
		return
	}
	pattern, err := m.compile()
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	player, err := pattrns.NewPlayer(pattern, sampleRate)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.player = player
	player.Play()
	m.playing = true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.player != nil {
				_ = m.player.Stop()
			}
			return m, tea.Quit
		case tea.KeyEnter:
			m.refresh()
			return m, nil
		case tea.KeyCtrlP:
			m.togglePlayback()
			return m, nil
		case tea.KeyBackspace:
			if m.cursor > 0 {
				m.input = m.input[:m.cursor-1] + m.input[m.cursor:]
				m.cursor--
			}
			return m, nil
		case tea.KeyLeft:
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case tea.KeyRight:
			if m.cursor < len(m.input) {
				m.cursor++
			}
			return m, nil
		case tea.KeyHome:
			m.cursor = 0
			return m, nil
		case tea.KeyEnd:
			m.cursor = len(m.input)
			return m, nil
		case tea.KeySpace:
			m.insert(" ")
			return m, nil
		case tea.KeyRunes:
			m.insert(string(msg.Runes))
			return m, nil
		}
	}
	return m, nil
}

func (m *model) insert(s string) {
	m.input = m.input[:m.cursor] + s + m.input[m.cursor:]
	m.cursor += len(s)
}

func (m model) View() string {
	out := titleStyle.Render("pattrns playground") + "\n\n"

	line := m.input
	if m.cursor >= len(line) {
		line += cursorStyle.Render(" ")
	} else {
		line = line[:m.cursor] + cursorStyle.Render(string(line[m.cursor])) + line[m.cursor+1:]
	}
	out += inputStyle.Render(line) + "\n\n"

	if m.errMsg != "" {
		out += errStyle.Render(m.errMsg) + "\n"
	} else {
		count := len(m.events)
		if count > maxPreview {
			count = maxPreview
		}
		for _, ev := range m.events[:count] {
			switch ev.Kind {
			case pattrns.EventNote:
				out += fmt.Sprintf("%s %s %s\n",
					eventStyle.Render(fmt.Sprintf("%10d", ev.TimeSamples)),
					chanStyle.Render(fmt.Sprintf("ch%d", ev.Channel)),
					eventStyle.Render(ev.Note.String()))
			case pattrns.EventParameter:
				out += fmt.Sprintf("%s %s %s\n",
					eventStyle.Render(fmt.Sprintf("%10d", ev.TimeSamples)),
					chanStyle.Render(fmt.Sprintf("ch%d", ev.Channel)),
					eventStyle.Render(fmt.Sprintf("%s = %.3f", ev.Change.ID, ev.Change.Value)))
			}
		}
		if len(m.events) > maxPreview {
			out += helpStyle.Render(fmt.Sprintf("… %d more", len(m.events)-maxPreview)) + "\n"
		}
	}

	status := "enter: preview · ctrl+p: play/stop · esc: quit"
	if m.playing {
		status = "playing · " + status
	}
	out += "\n" + helpStyle.Render(status)
	return out
}

func main() {
	if _, err := tea.NewProgram(newModel()).Run(); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}
