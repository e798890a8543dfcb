// Package tui provides a terminal instrument for scalechord
package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/render"
	"github.com/james-see/scalechord/pkg/theory"
)

var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)

	keyUpStyle   = lipgloss.NewStyle().Foreground(silverGray)
	keyDownStyle = lipgloss.NewStyle().Foreground(darkGray).Background(acidGreen).Bold(true)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateKeyboard
	StateFilePicker
	StateRendering
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Target      State
}

var menuItems = []MenuItem{
	{Title: "Live Keyboard", Description: "Play chords from the computer keyboard", Target: StateKeyboard},
	{Title: "Render MIDI File", Description: "Re-render a MIDI performance as chords", Target: StateFilePicker},
	{Title: "Exit", Description: "Exit the application"},
}

// pianoKeys maps the home row to one octave of semitones, starting at C
var pianoKeys = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5, "t": 6,
	"g": 7, "y": 8, "h": 9, "u": 10, "j": 11, "k": 12,
}

const pianoLayout = "awsedftgyhujk"

const keyVelocity = 100

// Model represents the TUI model
type Model struct {
	state      State
	menuIndex  int
	filePicker filepicker.Model
	spinner    spinner.Model

	proc    *engine.Processor
	octave  int
	pressed [128]bool
	output  []string

	selectedFile string
	outputFile   string
	stats        render.Stats
	err          error
	width        int
	height       int
}

// renderDoneMsg signals render completion
type renderDoneMsg struct {
	outputFile string
	stats      render.Stats
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a TUI model playing through an engine built from settings.
// Engine log output is discarded so it cannot tear the alternate screen.
func New(settings engine.Settings) (Model, error) {
	proc, err := engine.New(settings, slog.New(slog.DiscardHandler))
	if err != nil {
		return Model{}, err
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		proc:       proc,
		octave:     4,
	}, nil
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateRendering
			return m, tea.Batch(m.spinner.Tick, m.renderFile(path))
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateKeyboard:
			return m.updateKeyboard(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case renderDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		item := menuItems[m.menuIndex]
		switch item.Target {
		case StateKeyboard:
			m.state = StateKeyboard
			m.output = nil
			return m, nil
		case StateFilePicker:
			m.state = StateFilePicker
			return m, m.filePicker.Init()
		}
		return m, tea.Quit
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateKeyboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if offset, ok := pianoKeys[key]; ok {
		note := (m.octave+1)*12 + offset
		if note > 127 {
			return m, nil
		}
		if m.pressed[note] {
			m.pressed[note] = false
			m.record(m.proc.Process(midi.NoteOff(0, uint8(note))))
		} else {
			m.pressed[note] = true
			m.record(m.proc.Process(midi.NoteOn(0, uint8(note), keyVelocity)))
		}
		return m, nil
	}

	settings := m.proc.Settings()
	switch key {
	case " ":
		var v uint8
		if !m.proc.SustainPedal() {
			v = 127
		}
		m.record(m.proc.Process(midi.ControlChange(0, engine.CCSustain, v)))
		return m, nil
	case "z":
		m.octave = max(m.octave-1, -1)
		return m, nil
	case "x":
		m.octave = min(m.octave+1, 9)
		return m, nil
	case "[":
		settings.Scale.Scale = theory.ScaleType((int(settings.Scale.Scale) + theory.NumScaleTypes - 1) % theory.NumScaleTypes)
	case "]":
		settings.Scale.Scale = theory.ScaleType((int(settings.Scale.Scale) + 1) % theory.NumScaleTypes)
	case ",":
		settings.Scale.RootNote = (settings.Scale.RootNote + 11) % 12
	case ".":
		settings.Scale.RootNote = (settings.Scale.RootNote + 1) % 12
	case "v":
		settings.Voicer.Voicing = theory.VoicingType((int(settings.Voicer.Voicing) + 1) % theory.NumVoicingTypes)
	case "l":
		settings.VoiceLeading = !settings.VoiceLeading
	case "r":
		if settings.Reharm == engine.ReharmOff {
			settings.Reharm = engine.ReharmTritone
		} else {
			settings.Reharm = engine.ReharmOff
		}
	case "esc":
		m.releaseAll()
		m.state = StateMenu
		return m, nil
	case "q", "ctrl+c":
		m.releaseAll()
		return m, tea.Quit
	default:
		return m, nil
	}

	if err := m.proc.SetSettings(settings); err != nil {
		m.err = err
	} else {
		m.err = nil
	}
	return m, nil
}

// releaseAll silences the engine and forgets pressed keys
func (m *Model) releaseAll() {
	m.record(m.proc.AllNotesOff())
	if m.proc.SustainPedal() {
		m.proc.SetSustain(false)
	}
	m.pressed = [128]bool{}
}

// record keeps a printable copy of the last engine output
func (m *Model) record(msgs []midi.Message) {
	m.output = m.output[:0]
	var ch, key, vel uint8
	for _, msg := range msgs {
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			m.output = append(m.output, "+"+theory.NoteNameOctave(int(key)))
		case msg.GetNoteEnd(&ch, &key):
			m.output = append(m.output, "-"+theory.NoteNameOctave(int(key)))
		default:
			m.output = append(m.output, msg.String())
		}
	}
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.stats = render.Stats{}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// renderFile renders path through a fresh engine with the current settings
func (m Model) renderFile(path string) tea.Cmd {
	settings := m.proc.Settings()
	return func() tea.Msg {
		p, err := engine.New(settings, slog.New(slog.DiscardHandler))
		if err != nil {
			return renderDoneMsg{err: err}
		}
		out := strings.TrimSuffix(path, filepath.Ext(path)) + "_chords.mid"
		stats, err := render.NewRenderer().RenderFile(p, path, out)
		if err != nil {
			return renderDoneMsg{err: err}
		}
		return renderDoneMsg{outputFile: out, stats: stats}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))
	case StateKeyboard:
		s.WriteString(m.viewKeyboard())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateRendering:
		s.WriteString(m.viewRendering())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SCALECHORD "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(acidYellow).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewKeyboard() string {
	var s strings.Builder
	settings := m.proc.Settings()

	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s %s ", theory.NoteName(settings.Scale.RootNote), settings.Scale.Scale)))
	s.WriteString("\n\n")

	base := (m.octave + 1) * 12
	for _, r := range pianoLayout {
		k := string(r)
		note := base + pianoKeys[k]
		label := fmt.Sprintf(" %s ", strings.ToUpper(k))
		if note <= 127 && m.pressed[note] {
			s.WriteString(keyDownStyle.Render(label))
		} else {
			s.WriteString(keyUpStyle.Render(label))
		}
	}
	s.WriteString("\n\n")

	fmt.Fprintf(&s, "Octave: %d   Voicing: %s   Voice leading: %s   Reharm: %s   Pedal: %s\n",
		m.octave, settings.Voicer.Voicing, onOff(settings.VoiceLeading), settings.Reharm, onOff(m.proc.SustainPedal()))

	sounding := m.proc.SoundingNotes()
	names := make([]string, len(sounding))
	for i, n := range sounding {
		names[i] = theory.NoteNameOctave(n)
	}
	fmt.Fprintf(&s, "Sounding: %s\n", strings.Join(names, " "))
	if len(m.output) > 0 {
		fmt.Fprintf(&s, "Output:   %s\n", strings.Join(m.output, " "))
	}

	if last := m.proc.LastVoicing(); len(last) > 0 {
		info := m.proc.LastAnalysis()
		s.WriteString(statusStyle.Render(fmt.Sprintf("Last chord: %s (%s)", info.Name(), info.Function)))
		s.WriteString("\n")
		if subs := m.proc.Suggestions(); len(subs) > 0 {
			alts := make([]string, len(subs))
			for i, sub := range subs {
				alts[i] = fmt.Sprintf("%s %.0f", sub.Name, sub.Musicality)
			}
			fmt.Fprintf(&s, "Try: %s\n", strings.Join(alts, " • "))
		}
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render(m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("keys: play • space: pedal • z/x: octave • [/]: scale • ,/.: root • v: voicing • l: leading • r: reharm • esc: menu"))
	return boxStyle.Render(s.String())
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewRendering() string {
	var s strings.Builder
	settings := m.proc.Settings()

	s.WriteString(titleStyle.Render(" RENDERING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Rendering %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %s %s, %s voicing",
		theory.NoteName(settings.Scale.RootNote), settings.Scale.Scale, settings.Voicer.Voicing)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Render failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Render complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s (%d notes)\n", filepath.Base(m.selectedFile), m.stats.InputNotes))
		s.WriteString(fmt.Sprintf("Output: %s (%d notes)", filepath.Base(m.outputFile), m.stats.OutputNotes))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
  ___  ___   _   _    ___ ___ _  _  ___  ___ ___
 / __|/ __| /_\ | |  | __/ __| || |/ _ \| _ \   \
 \__ \ (__ / _ \| |__| _| (__| __ | (_) |   / |) |
 |___/\___/_/ \_\____|___\___|_||_|\___/|_|_\___/
`
	return lipgloss.NewStyle().Foreground(acidGreen).Render(logo)
}

// Run starts the TUI application
func Run(settings engine.Settings) error {
	m, err := New(settings)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
