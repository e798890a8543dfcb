package theory

import (
	"fmt"
	"slices"
)

// ScaleType selects the interval set of a scale
type ScaleType int

const (
	// Major scale modes
	Ionian ScaleType = iota
	Dorian
	Phrygian
	Lydian
	Mixolydian
	Aeolian
	Locrian

	// Minor variants
	HarmonicMinor
	MelodicMinor

	// Pentatonic
	MajorPentatonic
	MinorPentatonic

	// Blues
	MajorBlues
	MinorBlues

	// Symmetric
	WholeTone
	DiminishedScale
)

// NumScaleTypes is the number of known scale types
const NumScaleTypes = int(DiminishedScale) + 1

type scaleDef struct {
	name      string
	intervals []int
}

var scaleDefs = [NumScaleTypes]scaleDef{
	Ionian:          {"Major (Ionian)", []int{0, 2, 4, 5, 7, 9, 11}},
	Dorian:          {"Dorian", []int{0, 2, 3, 5, 7, 9, 10}},
	Phrygian:        {"Phrygian", []int{0, 1, 3, 5, 7, 8, 10}},
	Lydian:          {"Lydian", []int{0, 2, 4, 6, 7, 9, 11}},
	Mixolydian:      {"Mixolydian", []int{0, 2, 4, 5, 7, 9, 10}},
	Aeolian:         {"Natural Minor (Aeolian)", []int{0, 2, 3, 5, 7, 8, 10}},
	Locrian:         {"Locrian", []int{0, 1, 3, 5, 6, 8, 10}},
	HarmonicMinor:   {"Harmonic Minor", []int{0, 2, 3, 5, 7, 8, 11}},
	MelodicMinor:    {"Melodic Minor", []int{0, 2, 3, 5, 7, 9, 11}},
	MajorPentatonic: {"Major Pentatonic", []int{0, 2, 4, 7, 9}},
	MinorPentatonic: {"Minor Pentatonic", []int{0, 3, 5, 7, 10}},
	MajorBlues:      {"Major Blues", []int{0, 2, 3, 4, 7, 9}},
	MinorBlues:      {"Minor Blues", []int{0, 3, 5, 6, 7, 10}},
	WholeTone:       {"Whole Tone", []int{0, 2, 4, 6, 8, 10}},
	DiminishedScale: {"Diminished", []int{0, 2, 3, 5, 6, 8, 9, 11}},
}

// Valid reports whether t is a known scale type
func (t ScaleType) Valid() bool {
	return t >= 0 && int(t) < NumScaleTypes
}

// String returns the display name of the scale
func (t ScaleType) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return scaleDefs[t].name
}

// Intervals returns the scale's semitone offsets from its root
func (t ScaleType) Intervals() []int {
	if !t.Valid() {
		return nil
	}
	return slices.Clone(scaleDefs[t].intervals)
}

// IsMajor reports whether the scale contains a major third above its root
func (t ScaleType) IsMajor() bool {
	return t.Valid() && slices.Contains(scaleDefs[t].intervals, 4)
}

// Degree returns the index of an interval above the root within the scale,
// or -1 if the interval is not in the scale.
func (t ScaleType) Degree(interval int) int {
	if !t.Valid() {
		return -1
	}
	return slices.Index(scaleDefs[t].intervals, PitchClass(interval))
}

// ScaleTypes returns every known scale type in ordinal order
func ScaleTypes() []ScaleType {
	types := make([]ScaleType, NumScaleTypes)
	for i := range types {
		types[i] = ScaleType(i)
	}
	return types
}

// ScaleSettings configures a ScaleMapper
type ScaleSettings struct {
	RootNote int       // 0 = C, 1 = C#, ... 11 = B
	Scale    ScaleType
}

// ScaleMapper quantizes MIDI notes to a scale.
//
// The zero value has no scale and fails every mapping with
// ErrScaleNotInitialized. The 128-entry lookup table used by MapNoteFast is
// invalidated by SetSettings and rebuilt on the next MapNoteFast call, so a
// ScaleMapper must not be shared between goroutines without external locking.
type ScaleMapper struct {
	settings    ScaleSettings
	scale       []int
	lookup      [128]uint8
	lookupValid bool
}

// NewScaleMapper creates a mapper for the given settings
func NewScaleMapper(s ScaleSettings) (*ScaleMapper, error) {
	m := &ScaleMapper{}
	if err := m.SetSettings(s); err != nil {
		return nil, err
	}
	return m, nil
}

// SetSettings replaces the configuration and recomputes the scale set
func (m *ScaleMapper) SetSettings(s ScaleSettings) error {
	if !s.Scale.Valid() {
		return fmt.Errorf("scale type %d: %w", s.Scale, ErrUnknownScale)
	}
	s.RootNote = PitchClass(s.RootNote)
	m.settings = s
	m.lookupValid = false
	m.rebuildScale()
	return nil
}

// Settings returns the current configuration
func (m *ScaleMapper) Settings() ScaleSettings {
	return m.settings
}

func (m *ScaleMapper) rebuildScale() {
	m.scale = m.scale[:0]
	for _, st := range scaleDefs[m.settings.Scale].intervals {
		pc := PitchClass(m.settings.RootNote + st)
		if !slices.Contains(m.scale, pc) {
			m.scale = append(m.scale, pc)
		}
	}
	slices.Sort(m.scale)
}

// ScaleSemitones returns the absolute pitch classes of the scale, ascending
func (m *ScaleMapper) ScaleSemitones() []int {
	return slices.Clone(m.scale)
}

// ScaleDegree returns the index of a pitch class within the scale, or -1
func (m *ScaleMapper) ScaleDegree(semitone int) int {
	return slices.Index(m.scale, PitchClass(semitone))
}

// quantize assumes a non-empty scale
func (m *ScaleMapper) quantize(note int) int {
	note = ClampNote(note)
	octave := note / 12

	best := -1
	bestDist := 1 << 30
	for o := -1; o <= 1; o++ {
		for _, pc := range m.scale {
			candidate := (octave+o)*12 + pc
			if candidate < MinNote || candidate > MaxNote {
				continue
			}
			dist := candidate - note
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				bestDist = dist
				best = candidate
			}
		}
	}
	return best
}

// MapNote returns the nearest in-scale MIDI note. Ties resolve to the lower
// candidate.
func (m *ScaleMapper) MapNote(note int) (int, error) {
	if len(m.scale) == 0 {
		return 0, ErrScaleNotInitialized
	}
	return m.quantize(note), nil
}

// BuildLookupTable precomputes MapNote for all 128 MIDI notes
func (m *ScaleMapper) BuildLookupTable() error {
	if len(m.scale) == 0 {
		return ErrScaleNotInitialized
	}
	for i := range m.lookup {
		m.lookup[i] = uint8(m.quantize(i))
	}
	m.lookupValid = true
	return nil
}

// LookupValid reports whether the lookup table matches the current settings
func (m *ScaleMapper) LookupValid() bool {
	return m.lookupValid
}

// MapNoteFast is MapNote backed by the lookup table, rebuilding it first if
// the settings changed since the last build.
func (m *ScaleMapper) MapNoteFast(note int) (int, error) {
	if !m.lookupValid {
		if err := m.BuildLookupTable(); err != nil {
			return 0, err
		}
	}
	return int(m.lookup[ClampNote(note)]), nil
}

// ChordIntervalsForDegree stacks every other scale degree above degree.
// quality 0 gives 2 notes, 1 gives 4, 2 gives 6 and so on. Each interval is
// raised by octaves until it is above the previous one.
func (m *ScaleMapper) ChordIntervalsForDegree(degree, quality int) []int {
	n := len(m.scale)
	if n == 0 {
		return nil
	}
	count := 2 + 2*max(quality, 0)
	intervals := make([]int, 0, count)
	for i := 0; i < count; i++ {
		curr := m.scale[(((degree+i*2)%n)+n)%n]
		if i > 0 {
			prev := intervals[i-1]
			for curr <= prev {
				curr += 12
			}
		}
		intervals = append(intervals, curr)
	}
	return intervals
}

// DetectScale picks the root and scale type covering the most of the given
// pitch classes. Ties go to the lowest root, then the lowest scale ordinal.
// An empty input yields C Ionian.
func DetectScale(pitchClasses []int) (root int, scale ScaleType) {
	bestScore := 0
	for r := 0; r < 12; r++ {
		for t := ScaleType(0); t.Valid(); t++ {
			var member [12]bool
			for _, st := range scaleDefs[t].intervals {
				member[(r+st)%12] = true
			}
			score := 0
			for _, pc := range pitchClasses {
				if member[PitchClass(pc)] {
					score++
				}
			}
			if score > bestScore {
				bestScore = score
				root, scale = r, t
			}
		}
	}
	return root, scale
}
