// Package render reads and writes Standard MIDI Files: it re-renders a
// recorded performance through a chord engine and writes chord progressions.
package render

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/theory"
)

// ErrNilProgression is returned when writing a nil progression
var ErrNilProgression = errors.New("nil progression")

const (
	DefaultTicksPerQuarter = 480
	DefaultTempo           = 120.0
)

// Stats summarizes a render
type Stats struct {
	InputNotes  int `json:"input_notes" yaml:"input_notes"`
	OutputNotes int `json:"output_notes" yaml:"output_notes"`
	Events      int `json:"events" yaml:"events"`
}

// Renderer handles MIDI file parsing and generation
type Renderer struct {
	ticksPerQuarter uint16
	tempo           float64
}

// NewRenderer creates a renderer with 480 ticks per quarter at 120 BPM
func NewRenderer() *Renderer {
	return &Renderer{
		ticksPerQuarter: DefaultTicksPerQuarter,
		tempo:           DefaultTempo,
	}
}

type timedEvent struct {
	tick int64
	msg  []byte
}

// mergeTracks flattens every track into one list ordered by absolute tick.
// Events on the same tick keep track order.
func mergeTracks(s *smf.SMF) []timedEvent {
	var events []timedEvent
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			events = append(events, timedEvent{tick: tick, msg: ev.Message})
		}
	}
	slices.SortStableFunc(events, func(a, b timedEvent) int {
		return cmp.Compare(a.tick, b.tick)
	})
	return events
}

func isMeta(msg []byte) bool {
	return len(msg) >= 2 && msg[0] == 0xFF
}

// trackName builds a sequence name meta event (FF 03 len text)
func trackName(name string) smf.Message {
	if len(name) > 127 {
		name = name[:127]
	}
	return smf.Message(append([]byte{0xFF, 0x03, byte(len(name))}, name...))
}

func isEndOfTrack(msg []byte) bool {
	return len(msg) >= 2 && msg[0] == 0xFF && msg[1] == 0x2F
}

// Render plays every event of a MIDI file through p and returns a
// single-track file holding the generated chords. Meta events such as tempo
// and time signature are copied. Notes still sounding at the end of the
// input are released on its last tick.
func (r *Renderer) Render(p *engine.Processor, data []byte) ([]byte, Stats, error) {
	var stats Stats
	in, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, stats, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	out := smf.New()
	out.TimeFormat = smf.MetricTicks(r.ticksPerQuarter)
	if mt, ok := in.TimeFormat.(smf.MetricTicks); ok {
		out.TimeFormat = mt
	}

	var track smf.Track
	var lastTick, tick int64
	emit := func(msgs ...midi.Message) {
		for _, m := range msgs {
			track.Add(uint32(tick-lastTick), m)
			lastTick = tick
			stats.Events++
			var ch, key, vel uint8
			if m.GetNoteStart(&ch, &key, &vel) {
				stats.OutputNotes++
			}
		}
	}

	for _, ev := range mergeTracks(in) {
		tick = ev.tick
		if isMeta(ev.msg) {
			if !isEndOfTrack(ev.msg) {
				track.Add(uint32(tick-lastTick), smf.Message(ev.msg))
				lastTick = tick
				stats.Events++
			}
			continue
		}
		msg := midi.Message(ev.msg)
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			stats.InputNotes++
		}
		emit(p.Process(msg)...)
	}

	if p.SustainPedal() {
		emit(p.SetSustain(false)...)
	}
	if len(p.SoundingNotes()) > 0 {
		emit(p.AllNotesOff()...)
	}
	track.Close(0)

	if err := out.Add(track); err != nil {
		return nil, stats, fmt.Errorf("failed to add track: %w", err)
	}
	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, stats, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), stats, nil
}

// RenderFile is Render reading from and writing to files
func (r *Renderer) RenderFile(p *engine.Processor, inPath, outPath string) (Stats, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	rendered, stats, err := r.Render(p, data)
	if err != nil {
		return stats, err
	}
	if err := os.WriteFile(outPath, rendered, 0644); err != nil {
		return stats, fmt.Errorf("failed to write MIDI file: %w", err)
	}
	return stats, nil
}

// PitchClasses returns the sorted pitch classes of every note started in a
// MIDI file, for scale detection.
func (r *Renderer) PitchClasses(data []byte) ([]int, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	var seen [12]bool
	for _, track := range s.Tracks {
		for _, ev := range track {
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				seen[theory.PitchClass(int(key))] = true
			}
		}
	}
	pcs := make([]int, 0, 12)
	for pc, ok := range seen {
		if ok {
			pcs = append(pcs, pc)
		}
	}
	return pcs, nil
}

// ProgressionStep is one chord of a progression
type ProgressionStep struct {
	Chord    theory.Chord `json:"chord" yaml:"chord"`
	Beats    float64      `json:"beats" yaml:"beats"`       // duration in quarter notes, default 4
	Velocity uint8        `json:"velocity" yaml:"velocity"` // default 100
}

// Progression is a sequence of chords played back to back
type Progression struct {
	Name    string            `json:"name" yaml:"name"`
	Tempo   float64           `json:"tempo" yaml:"tempo"`
	Channel uint8             `json:"channel" yaml:"channel"` // 0-15
	Steps   []ProgressionStep `json:"steps" yaml:"steps"`
}

// WriteProgression creates MIDI data from a Progression
func (r *Renderer) WriteProgression(prog *Progression) ([]byte, error) {
	if prog == nil {
		return nil, ErrNilProgression
	}
	tempo := prog.Tempo
	if tempo <= 0 {
		tempo = r.tempo
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(r.ticksPerQuarter)

	var track smf.Track
	if prog.Name != "" {
		track.Add(0, trackName(prog.Name))
	}

	// tempo (FF 51 03 tttttt)
	microsecondsPerBeat := uint32(60000000.0 / tempo)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	}))
	// 4/4
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))

	channel := prog.Channel & 0x0F
	var rest uint32
	for _, step := range prog.Steps {
		beats := step.Beats
		if beats <= 0 {
			beats = 4
		}
		length := uint32(beats * float64(r.ticksPerQuarter))
		if len(step.Chord) == 0 {
			rest += length
			continue
		}
		velocity := step.Velocity
		if velocity == 0 {
			velocity = 100
		}

		delta := rest
		for _, n := range step.Chord {
			track.Add(delta, midi.NoteOn(channel, uint8(theory.ClampNote(n)), min(velocity, 127)))
			delta = 0
		}
		delta = length
		for _, n := range step.Chord {
			track.Add(delta, midi.NoteOff(channel, uint8(theory.ClampNote(n))))
			delta = 0
		}
		rest = 0
	}
	track.Close(rest)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteProgressionFile writes a progression to a MIDI file
func (r *Renderer) WriteProgressionFile(prog *Progression, filename string) error {
	data, err := r.WriteProgression(prog)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
