// Package engine turns single incoming MIDI notes into chord streams.
//
// A Processor wires the theory components and a note tracker into the
// per-note pipeline: quantize, voice, optionally voice-lead against the
// previous chord, optionally reharmonize, then track. It consumes and
// produces gomidi channel messages and is owned by one goroutine.
package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/scalechord/pkg/theory"
	"github.com/james-see/scalechord/pkg/tracker"
)

// Controller numbers handled by the Processor
const (
	CCSustain      = 64
	CCAllSoundOff  = 120
	CCAllNotesOff  = 123
	sustainOnValue = 64
)

// Processor is the chord generation pipeline
type Processor struct {
	settings Settings
	logger   *slog.Logger

	mapper   *theory.ScaleMapper
	voicer   *theory.ChordVoicer
	analyzer *theory.ChordAnalyzer
	leader   *theory.VoiceLeading
	reharm   *theory.JazzReharmonizer
	tracker  *tracker.NoteTracker

	lastVoicing theory.Chord
	lastRoot    int // quantized input note of lastVoicing, -1 before any chord

	// scratch buffers reused across calls
	chordBuf   theory.Chord
	leadBuf    theory.Chord
	subBuf     theory.Chord
	prevBuf    []int
	releaseBuf []int
	out        []midi.Message
}

// New creates a Processor. A nil logger uses slog.Default.
func New(s Settings, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	mapper, err := theory.NewScaleMapper(s.Scale)
	if err != nil {
		return nil, fmt.Errorf("create scale mapper: %w", err)
	}
	voicer := theory.NewChordVoicer(mapper)
	if err := voicer.SetSettings(s.Voicer); err != nil {
		return nil, fmt.Errorf("create chord voicer: %w", err)
	}
	if err := mapper.BuildLookupTable(); err != nil {
		return nil, fmt.Errorf("build lookup table: %w", err)
	}

	return &Processor{
		settings:    s,
		logger:      logger,
		mapper:      mapper,
		voicer:      voicer,
		analyzer:    theory.NewChordAnalyzer(),
		leader:      theory.NewVoiceLeading(),
		reharm:      theory.NewJazzReharmonizer(),
		tracker:     tracker.New(),
		lastVoicing: make(theory.Chord, 0, 8),
		lastRoot:    -1,
		chordBuf:    make(theory.Chord, 0, 8),
		leadBuf:     make(theory.Chord, 0, 8),
		subBuf:      make(theory.Chord, 0, 8),
		releaseBuf:  make([]int, 0, 32),
		out:         make([]midi.Message, 0, 32),
	}, nil
}

// Settings returns the current configuration
func (p *Processor) Settings() Settings {
	return p.settings
}

// SetSettings applies a new configuration. The scale lookup table is rebuilt
// before SetSettings returns. Held notes keep their chords.
func (p *Processor) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := p.mapper.SetSettings(s.Scale); err != nil {
		return fmt.Errorf("set scale: %w", err)
	}
	if err := p.voicer.SetSettings(s.Voicer); err != nil {
		return fmt.Errorf("set voicing: %w", err)
	}
	if err := p.mapper.BuildLookupTable(); err != nil {
		return fmt.Errorf("build lookup table: %w", err)
	}
	p.settings = s
	p.logger.Info("settings changed",
		"root", theory.NoteName(s.Scale.RootNote),
		"scale", s.Scale.Scale.String(),
		"voicing", s.Voicer.Voicing.String(),
		"octave_offset", s.Voicer.OctaveOffset,
		"voice_leading", s.VoiceLeading,
		"reharm", s.Reharm.String(),
		"channel", s.OutputChannel,
	)
	return nil
}

// Process handles one incoming message and returns the messages to send.
// Note and sustain messages are consumed; other control changes are moved to
// the output channel; everything else passes through unchanged. The returned
// slice is reused by the next call.
func (p *Processor) Process(msg midi.Message) []midi.Message {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return p.NoteOn(int(key), int(vel))
	case msg.GetNoteEnd(&ch, &key):
		return p.NoteOff(int(key))
	case msg.GetControlChange(&ch, &cc, &val):
		switch cc {
		case CCSustain:
			return p.SetSustain(val >= sustainOnValue)
		case CCAllSoundOff:
			return p.AllSoundOff()
		case CCAllNotesOff:
			return p.AllNotesOff()
		}
		p.out = append(p.out[:0], midi.ControlChange(p.settings.OutputChannel, cc, val))
		return p.out
	}
	p.out = append(p.out[:0], msg)
	return p.out
}

// NoteOn runs the chord pipeline for an input note
func (p *Processor) NoteOn(note, velocity int) []midi.Message {
	p.out = p.out[:0]
	note = theory.ClampNote(note)

	mapped, err := p.mapper.MapNoteFast(note)
	if err != nil {
		return p.out
	}
	chord := p.voicer.AppendChord(p.chordBuf[:0], mapped)
	p.chordBuf = chord

	if p.settings.VoiceLeading && len(p.lastVoicing) > 0 {
		p.leadBuf = p.leader.AppendOptimized(p.leadBuf[:0], p.lastVoicing, chord, p.settings.OctaveRange)
		chord = p.leadBuf
	}
	if p.settings.Reharm == ReharmTritone && len(chord) > 0 {
		if theory.IsDominantSeventh(chord) {
			p.subBuf = p.reharm.AppendTritoneSubstitution(p.subBuf[:0], chord)
			chord = p.subBuf
		}
	}
	if len(chord) == 0 {
		return p.out
	}

	// re-trigger: release what the previous chord for this key leaves behind
	p.prevBuf = p.tracker.AppendNoteOffsForInputNote(p.prevBuf[:0], note)
	p.tracker.TrackNoteOn(note, chord, velocity)
	p.appendNoteOffs(p.prevBuf)

	v := p.scaleVelocity(velocity)
	var sent [theory.MaxNote + 1]bool
	for _, n := range chord {
		if sent[n] {
			continue
		}
		sent[n] = true
		p.out = append(p.out, midi.NoteOn(p.settings.OutputChannel, uint8(n), v))
	}
	p.lastVoicing = append(p.lastVoicing[:0], chord...)
	p.lastRoot = mapped
	return p.out
}

// NoteOff releases the chord of an input note, or defers it while the
// sustain pedal is down.
func (p *Processor) NoteOff(note int) []midi.Message {
	p.out = p.out[:0]
	p.appendNoteOffs(p.tracker.TrackNoteOff(theory.ClampNote(note)))
	return p.out
}

// SetSustain updates the pedal and runs the flush point
func (p *Processor) SetSustain(active bool) []midi.Message {
	p.tracker.SetSustainPedal(active)
	return p.Flush()
}

// Flush releases pedal-held chords once the pedal is up
func (p *Processor) Flush() []midi.Message {
	p.out = p.out[:0]
	p.releaseBuf = p.tracker.Poll(p.releaseBuf[:0])
	p.appendNoteOffs(p.releaseBuf)
	return p.out
}

// AllNotesOff releases every generated note and forgets all input notes
func (p *Processor) AllNotesOff() []midi.Message {
	p.out = p.out[:0]
	p.releaseBuf = p.tracker.AppendAllActiveGeneratedNotes(p.releaseBuf[:0])
	for _, n := range p.releaseBuf {
		p.out = append(p.out, midi.NoteOff(p.settings.OutputChannel, uint8(n)))
	}
	p.tracker.Reset()
	p.out = append(p.out, midi.ControlChange(p.settings.OutputChannel, CCAllNotesOff, 0))
	return p.out
}

// AllSoundOff forgets every note without sending note-offs and forwards the
// all-sound-off controller.
func (p *Processor) AllSoundOff() []midi.Message {
	p.tracker.Reset()
	p.lastVoicing = p.lastVoicing[:0]
	p.lastRoot = -1
	p.out = append(p.out[:0], midi.ControlChange(p.settings.OutputChannel, CCAllSoundOff, 0))
	return p.out
}

// appendNoteOffs emits note-offs for released notes no other entry still holds
func (p *Processor) appendNoteOffs(released []int) {
	var sent [theory.MaxNote + 1]bool
	for _, n := range released {
		if sent[n] || p.tracker.IsGeneratedNoteActive(n) {
			continue
		}
		sent[n] = true
		p.out = append(p.out, midi.NoteOff(p.settings.OutputChannel, uint8(n)))
	}
}

func (p *Processor) scaleVelocity(velocity int) uint8 {
	v := int(float64(velocity)*p.settings.VelocityScale + 0.5)
	return uint8(max(1, min(127, v)))
}

// LastVoicing returns a copy of the most recently generated chord
func (p *Processor) LastVoicing() theory.Chord {
	return slices.Clone(p.lastVoicing)
}

// LastAnalysis analyzes the most recently generated chord in the current key
func (p *Processor) LastAnalysis() theory.ChordInfo {
	return p.analyzer.AnalyzeChord(p.lastVoicing, p.settings.Scale.RootNote)
}

// LastDegree returns the scale degree the last chord was built on, or -1.
// Voice leading may put another chord tone in the bass, so the degree comes
// from the quantized input note rather than the lowest voice.
func (p *Processor) LastDegree() int {
	if len(p.lastVoicing) == 0 || p.lastRoot < 0 {
		return -1
	}
	return p.settings.Scale.Scale.Degree(p.lastRoot - p.settings.Scale.RootNote)
}

// Suggestions returns substitution candidates for the last chord's degree
func (p *Processor) Suggestions() []theory.Substitution {
	degree := p.LastDegree()
	if degree < 0 || degree > 6 {
		return nil
	}
	return p.reharm.Substitutions(degree, p.settings.Scale.Scale.IsMajor())
}

// SoundingNotes returns the sorted generated notes of every tracked input note
func (p *Processor) SoundingNotes() []int {
	return p.tracker.AllActiveGeneratedNotes()
}

// ActiveNotes returns a snapshot of the tracked input notes
func (p *Processor) ActiveNotes() []tracker.ActiveNote {
	return p.tracker.ActiveNotes()
}

// SustainPedal reports whether the pedal is down
func (p *Processor) SustainPedal() bool {
	return p.tracker.SustainPedal()
}

// MapNote quantizes a note with the current scale
func (p *Processor) MapNote(note int) (int, error) {
	return p.mapper.MapNoteFast(note)
}
