// Package theory provides the harmony core of scalechord: scale quantization,
// diatonic chord construction, chord recognition, voice leading and jazz
// reharmonization.
//
// Every type in this package is a plain value owned by a single caller.
// Nothing here blocks, spawns goroutines or locks.
package theory

import "errors"

// MIDI note range
const (
	MinNote = 0
	MaxNote = 127
)

var (
	// ErrScaleNotInitialized is returned when a mapper has no scale notes
	ErrScaleNotInitialized = errors.New("scale not initialized")
	// ErrUnknownScale is returned for scale type ordinals outside the known set
	ErrUnknownScale = errors.New("unknown scale type")
	// ErrUnknownVoicing is returned for voicing ordinals outside the known set
	ErrUnknownVoicing = errors.New("unknown voicing type")
)

// Chord is an ordered list of MIDI note numbers
type Chord []int

// ChordQuality identifies the type of a chord
type ChordQuality int

const (
	Major ChordQuality = iota
	Minor
	Dominant7
	Major7
	Minor7
	HalfDim7
	Diminished
	Augmented
	Sus2
	Sus4
	Maj9
	Min9
	Dom9
	Maj11
	Min11
	Dom11
	Unknown
)

var qualityNames = [...]string{
	Major:      "Major",
	Minor:      "Minor",
	Dominant7:  "Dom7",
	Major7:     "Maj7",
	Minor7:     "Min7",
	HalfDim7:   "HalfDim7",
	Diminished: "Diminished",
	Augmented:  "Augmented",
	Sus2:       "Sus2",
	Sus4:       "Sus4",
	Maj9:       "Maj9",
	Min9:       "Min9",
	Dom9:       "Dom9",
	Maj11:      "Maj11",
	Min11:      "Min11",
	Dom11:      "Dom11",
	Unknown:    "Unknown",
}

// String returns the display name of the quality
func (q ChordQuality) String() string {
	if q < 0 || int(q) >= len(qualityNames) {
		return "Unknown"
	}
	return qualityNames[q]
}

// MarshalText implements encoding.TextMarshaler
func (q ChordQuality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// ChordFunction is the harmonic role of a chord within a key
type ChordFunction int

const (
	Tonic ChordFunction = iota
	Subdominant
	Dominant
	Relative
	Extended
)

// String returns the display name of the function
func (f ChordFunction) String() string {
	switch f {
	case Tonic:
		return "Tonic (I)"
	case Subdominant:
		return "Subdominant (IV)"
	case Dominant:
		return "Dominant (V)"
	case Relative:
		return "Relative (vi)"
	case Extended:
		return "Extended"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (f ChordFunction) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// PitchClass returns the note's identity modulo 12
func PitchClass(note int) int {
	return ((note % 12) + 12) % 12
}

// Octave returns the MIDI octave of a note, middle C (60) being octave 4
func Octave(note int) int {
	if note < 0 {
		return (note-11)/12 - 1
	}
	return note/12 - 1
}

// MakeMidiNote builds a MIDI note from a pitch class and octave
func MakeMidiNote(pitchClass, octave int) int {
	return (octave+1)*12 + PitchClass(pitchClass)
}

// PitchClassDistance returns the shortest distance between two pitch classes (0-6)
func PitchClassDistance(from, to int) int {
	up := PitchClass(to - from)
	down := PitchClass(from - to)
	return min(up, down)
}

// ClampNote limits a note to the MIDI range
func ClampNote(note int) int {
	return max(MinNote, min(MaxNote, note))
}

// foldNote moves a note by whole octaves into the MIDI range
func foldNote(note int) int {
	if note > MaxNote {
		note -= (note - MaxNote + 11) / 12 * 12
	}
	if note < MinNote {
		note += (MinNote - note + 11) / 12 * 12
	}
	return note
}

// pitchClassSet returns the sorted, deduplicated pitch classes of a chord
func pitchClassSet(chord []int) []int {
	var seen [12]bool
	for _, n := range chord {
		seen[PitchClass(n)] = true
	}
	set := make([]int, 0, 12)
	for pc, ok := range seen {
		if ok {
			set = append(set, pc)
		}
	}
	return set
}

// CommonToneCount counts pitch classes shared by two chords
func CommonToneCount(a, b []int) int {
	var inA, inB [12]bool
	for _, n := range a {
		inA[PitchClass(n)] = true
	}
	for _, n := range b {
		inB[PitchClass(n)] = true
	}
	count := 0
	for pc := range inA {
		if inA[pc] && inB[pc] {
			count++
		}
	}
	return count
}
