package theory

import (
	"fmt"
	"slices"
)

// VoicingType selects how a chord is stacked
type VoicingType int

const (
	Triad   VoicingType = iota // root + 3rd + 5th
	Seventh                    // root + 3rd + 5th + 7th
	Open                       // root + 3rd, 5th an octave up
)

// NumVoicingTypes is the number of known voicings
const NumVoicingTypes = int(Open) + 1

// Valid reports whether v is a known voicing
func (v VoicingType) Valid() bool {
	return v >= 0 && int(v) < NumVoicingTypes
}

func (v VoicingType) String() string {
	switch v {
	case Triad:
		return "Triad"
	case Seventh:
		return "Seventh"
	case Open:
		return "Open"
	default:
		return "Unknown"
	}
}

// VoicerSettings configures a ChordVoicer
type VoicerSettings struct {
	Voicing      VoicingType
	OctaveOffset int
}

// ChordVoicer builds diatonic chords from scale-quantized notes
type ChordVoicer struct {
	mapper   *ScaleMapper
	settings VoicerSettings
}

// NewChordVoicer creates a voicer reading scale notes from mapper
func NewChordVoicer(mapper *ScaleMapper) *ChordVoicer {
	return &ChordVoicer{mapper: mapper}
}

// SetSettings replaces the voicing configuration
func (v *ChordVoicer) SetSettings(s VoicerSettings) error {
	if !s.Voicing.Valid() {
		return fmt.Errorf("voicing %d: %w", s.Voicing, ErrUnknownVoicing)
	}
	v.settings = s
	return nil
}

// Settings returns the current configuration
func (v *ChordVoicer) Settings() VoicerSettings {
	return v.settings
}

// MakeChordFromNote returns the chord built on base, sorted ascending.
// base is expected to already be in the scale; when it is not, the first
// scale degree is used. base is clamped to 0-127 first. An empty scale
// yields an empty chord.
func (v *ChordVoicer) MakeChordFromNote(base int) Chord {
	return v.AppendChord(nil, base)
}

// AppendChord is MakeChordFromNote appending into dst, for callers that
// reuse a buffer.
func (v *ChordVoicer) AppendChord(dst Chord, base int) Chord {
	if v.mapper == nil || len(v.mapper.scale) == 0 {
		return dst
	}
	base = ClampNote(base)
	scale := v.mapper.scale
	n := len(scale)
	baseOctave := base / 12
	baseIndex := max(slices.Index(scale, PitchClass(base)), 0)
	start := len(dst)

	push := func(step, extraOctaves int) {
		idx := baseIndex + step
		octaveShift := idx/n + extraOctaves
		note := (baseOctave+octaveShift+v.settings.OctaveOffset)*12 + scale[idx%n]
		dst = append(dst, ClampNote(note))
	}

	switch v.settings.Voicing {
	case Seventh:
		push(0, 0)
		push(2, 0)
		push(4, 0)
		push(6, 0)
	case Open:
		push(0, 0)
		push(2, 0)
		push(4, 1)
	default:
		push(0, 0)
		push(2, 0)
		push(4, 0)
	}

	slices.Sort(dst[start:])
	return dst
}
