package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/theory"
)

func newModel(t *testing.T) Model {
	t.Helper()
	m, err := New(engine.DefaultSettings())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func keyboard(t *testing.T) Model {
	t.Helper()
	m := press(t, newModel(t), tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateKeyboard {
		t.Fatalf("state = %v, want StateKeyboard", m.state)
	}
	return m
}

func TestMenuNavigation(t *testing.T) {
	m := newModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.menuIndex != 0 {
		t.Errorf("menuIndex = %d, want 0", m.menuIndex)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.menuIndex != len(menuItems)-1 {
		t.Errorf("menuIndex = %d, want %d", m.menuIndex, len(menuItems)-1)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Exit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Exit command = %T, want tea.QuitMsg", cmd())
	}
}

func TestKeyboardPlaysChords(t *testing.T) {
	m := keyboard(t)

	m = press(t, m, runes("a"))
	if got := m.proc.SoundingNotes(); !slices.Equal(got, []int{60, 64, 67}) {
		t.Errorf("sounding after a = %v, want [60 64 67]", got)
	}
	if !m.pressed[60] {
		t.Error("key a not marked pressed")
	}
	if want := []string{"+C4", "+E4", "+G4"}; !slices.Equal(m.output, want) {
		t.Errorf("output = %v, want %v", m.output, want)
	}

	m = press(t, m, runes("a"))
	if got := m.proc.SoundingNotes(); len(got) != 0 {
		t.Errorf("sounding after release = %v, want none", got)
	}

	// C# quantizes down to C
	m = press(t, m, runes("w"))
	if got := m.proc.SoundingNotes(); !slices.Equal(got, []int{60, 64, 67}) {
		t.Errorf("sounding after w = %v, want [60 64 67]", got)
	}
}

func TestKeyboardSustain(t *testing.T) {
	m := keyboard(t)

	m = press(t, m, runes(" "), runes("d"), runes("d"))
	if !m.proc.SustainPedal() {
		t.Fatal("pedal not down")
	}
	if got := m.proc.SoundingNotes(); !slices.Equal(got, []int{64, 67, 71}) {
		t.Errorf("held = %v, want [64 67 71]", got)
	}

	m = press(t, m, runes(" "))
	if m.proc.SustainPedal() {
		t.Error("pedal still down")
	}
	if got := m.proc.SoundingNotes(); len(got) != 0 {
		t.Errorf("sounding after pedal up = %v, want none", got)
	}
	if want := []string{"-E4", "-G4", "-B4"}; !slices.Equal(m.output, want) {
		t.Errorf("output = %v, want %v", m.output, want)
	}
}

func TestKeyboardSettings(t *testing.T) {
	m := keyboard(t)

	m = press(t, m, runes("]"), runes("."), runes("v"), runes("l"), runes("r"))
	s := m.proc.Settings()
	if s.Scale.Scale != theory.Dorian {
		t.Errorf("scale = %v, want Dorian", s.Scale.Scale)
	}
	if s.Scale.RootNote != 1 {
		t.Errorf("root = %d, want 1", s.Scale.RootNote)
	}
	if s.Voicer.Voicing != theory.Seventh {
		t.Errorf("voicing = %v, want Seventh", s.Voicer.Voicing)
	}
	if !s.VoiceLeading || s.Reharm != engine.ReharmTritone {
		t.Errorf("leading = %v reharm = %v, want true tritone", s.VoiceLeading, s.Reharm)
	}

	m = press(t, m, runes("["), runes("["))
	if got := m.proc.Settings().Scale.Scale; got != theory.DiminishedScale {
		t.Errorf("scale after wrapping back = %v, want DiminishedScale", got)
	}
	m = press(t, m, runes(","), runes(","))
	if got := m.proc.Settings().Scale.RootNote; got != 11 {
		t.Errorf("root after wrapping back = %d, want 11", got)
	}
}

func TestKeyboardOctave(t *testing.T) {
	m := keyboard(t)
	m = press(t, m, runes("x"), runes("a"))
	if !m.pressed[72] {
		t.Error("a in octave 5 should press note 72")
	}
	m = press(t, m, runes("z"), runes("z"), runes("z"), runes("z"), runes("z"), runes("z"), runes("z"))
	if m.octave != -1 {
		t.Errorf("octave = %d, want -1", m.octave)
	}
}

func TestKeyboardEscapeReleasesEverything(t *testing.T) {
	m := keyboard(t)
	m = press(t, m, runes(" "), runes("a"), runes("g"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})

	if m.state != StateMenu {
		t.Errorf("state = %v, want StateMenu", m.state)
	}
	if got := m.proc.SoundingNotes(); len(got) != 0 {
		t.Errorf("sounding = %v, want none", got)
	}
	if m.proc.SustainPedal() {
		t.Error("pedal still down")
	}
	if m.pressed[60] || m.pressed[67] {
		t.Error("keys still marked pressed")
	}
}

func TestKeyboardView(t *testing.T) {
	m := keyboard(t)
	m = press(t, m, runes("g"))
	view := m.View()
	for _, want := range []string{"C Major (Ionian)", "G4 B4 D5", "G Major", "Dominant (V)"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestRenderFile(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	var track smf.Track
	track.Add(0, midi.NoteOn(0, 64, 100))
	track.Add(480, midi.NoteOff(0, 64))
	track.Close(0)
	if err := s.Add(track); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(t.TempDir(), "take.mid")
	if err := os.WriteFile(in, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	m := newModel(t)
	msg, ok := m.renderFile(in)().(renderDoneMsg)
	if !ok {
		t.Fatal("renderFile did not return renderDoneMsg")
	}
	if msg.err != nil {
		t.Fatalf("render error = %v", msg.err)
	}
	if want := filepath.Join(filepath.Dir(in), "take_chords.mid"); msg.outputFile != want {
		t.Errorf("outputFile = %s, want %s", msg.outputFile, want)
	}
	if msg.stats.InputNotes != 1 || msg.stats.OutputNotes != 3 {
		t.Errorf("stats = %+v, want 1 in 3 out", msg.stats)
	}
	if _, err := os.Stat(msg.outputFile); err != nil {
		t.Errorf("output file: %v", err)
	}

	m = press(t, m, msg)
	if m.state != StateResult {
		t.Errorf("state = %v, want StateResult", m.state)
	}
	if !strings.Contains(m.View(), "take_chords.mid") {
		t.Error("result view missing output name")
	}
}

func TestRenderFileMissing(t *testing.T) {
	m := newModel(t)
	msg := m.renderFile(filepath.Join(t.TempDir(), "missing.mid"))().(renderDoneMsg)
	if msg.err == nil {
		t.Error("expected error for missing file")
	}
}
