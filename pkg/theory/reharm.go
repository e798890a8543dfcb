package theory

import "slices"

// Substitution is a candidate replacement chord for a scale degree
type Substitution struct {
	Degree            int          `json:"degree" yaml:"degree"` // 0-6
	OriginalQuality   ChordQuality `json:"original_quality" yaml:"original_quality"`
	SubstituteQuality ChordQuality `json:"substitute_quality" yaml:"substitute_quality"`
	Name              string       `json:"name" yaml:"name"`
	Musicality        float64      `json:"musicality" yaml:"musicality"` // 0-100
}

var majorSubstitutions = [7][]Substitution{
	{ // I
		{0, Major, Major7, "Maj7", 95},
		{0, Major, Maj9, "Maj9", 85},
	},
	{ // ii
		{1, Minor7, Minor7, "m7", 90},
		{1, Minor, Min9, "m9", 80},
	},
	{ // iii
		{2, Minor7, Minor7, "m7", 85},
		{2, Minor, HalfDim7, "m7b5", 70},
	},
	{ // IV
		{3, Major, Major7, "Maj7", 92},
		{3, Major, Maj9, "Maj9", 82},
		{3, Major, Sus4, "Sus4", 65},
	},
	{ // V
		{4, Dominant7, Dominant7, "7", 95},
		{4, Dominant7, Dom9, "9", 88},
		{4, Dominant7, Dom11, "11", 75},
		{4, Dominant7, Dominant7, "bII7 (tritone)", 85},
	},
	{ // vi
		{5, Minor7, Minor7, "m7", 90},
		{5, Minor, Min9, "m9", 80},
	},
	{ // vii°
		{6, HalfDim7, HalfDim7, "m7b5", 80},
		{6, Diminished, Diminished, "°", 75},
	},
}

var minorSubstitutions = [7][]Substitution{
	{ // i
		{0, Minor, Minor7, "m7", 90},
		{0, Minor, Min9, "m9", 80},
	},
	{ // ii°
		{1, HalfDim7, HalfDim7, "m7b5", 85},
	},
	{ // III
		{2, Major, Major7, "Maj7", 88},
		{2, Major, Maj9, "Maj9", 78},
	},
	{ // iv
		{3, Minor7, Minor7, "m7", 90},
		{3, Minor, Min9, "m9", 80},
	},
	{ // v, usually played as V7
		{4, Minor7, Dominant7, "7", 92},
		{4, Minor, Dom9, "9", 82},
	},
	{ // VI
		{5, Major, Major7, "Maj7", 88},
		{5, Major, Maj9, "Maj9", 78},
	},
	{ // VII
		{6, Major, Dominant7, "7", 85},
	},
}

// secondaryDominantRoots holds, per key quality and target degree, the pitch
// class a fifth above the degree's root (C tonic).
var secondaryDominantRoots = [2][7]int{
	{7, 9, 10, 0, 2, 3, 5}, // natural minor
	{7, 9, 11, 0, 2, 4, 6}, // major
}

var (
	dominantSeventh = [4]int{0, 4, 7, 10}
	majorTriad      = [3]int{0, 4, 7}
	minorTriad      = [3]int{0, 3, 7}
)

// JazzReharmonizer generates chord substitutions
type JazzReharmonizer struct{}

// NewJazzReharmonizer creates a reharmonizer
func NewJazzReharmonizer() *JazzReharmonizer {
	return &JazzReharmonizer{}
}

func normalizeDegree(degree int) int {
	return ((degree % 7) + 7) % 7
}

// Substitutions returns the substitution candidates for a scale degree,
// hand-ordered by musicality.
func (r *JazzReharmonizer) Substitutions(degree int, majorKey bool) []Substitution {
	table := &minorSubstitutions
	if majorKey {
		table = &majorSubstitutions
	}
	return slices.Clone(table[normalizeDegree(degree)])
}

// TritoneSubstitution rebuilds a chord on the root a tritone away from its
// first note. Every note keeps its interval from the root and its octave, so
// the chord quality and the shared tritone are preserved. Input notes are
// clamped to 0-127; results above 127 drop an octave.
func (r *JazzReharmonizer) TritoneSubstitution(chord []int) Chord {
	if len(chord) == 0 {
		return Chord{}
	}
	return r.AppendTritoneSubstitution(nil, chord)
}

// AppendTritoneSubstitution is TritoneSubstitution appending into dst
func (r *JazzReharmonizer) AppendTritoneSubstitution(dst Chord, chord []int) Chord {
	if len(chord) == 0 {
		return dst
	}
	root := ClampNote(chord[0])
	subRoot := PitchClass(root + 6)
	for _, n := range chord {
		n = ClampNote(n)
		interval := PitchClass(n - root)
		dst = append(dst, foldNote((n/12)*12+PitchClass(subRoot+interval)))
	}
	return dst
}

// SecondaryDominant returns the dominant seventh chord resolving to
// targetDegree, rooted in the octave of middle C. The root is a fifth above
// the target degree's root in the given key (V/V in C is D7) and the chord is
// stacked upward from it without wrapping, so it stays ascending.
func (r *JazzReharmonizer) SecondaryDominant(targetDegree int, majorKey bool) Chord {
	quality := 0
	if majorKey {
		quality = 1
	}
	root := 60 + secondaryDominantRoots[quality][normalizeDegree(targetDegree)]
	chord := make(Chord, 0, len(dominantSeventh))
	for _, iv := range dominantSeventh {
		chord = append(chord, root+iv)
	}
	return chord
}

// UpperStructureTriad returns the bass note followed by a major or minor
// triad on upperRoot placed one octave above the bass note's octave. The
// triad is stacked upward from its root rather than wrapped into a single
// octave, so the chord stays ascending.
func (r *JazzReharmonizer) UpperStructureTriad(rootNote, upperRoot int, isMajor bool) Chord {
	triad := minorTriad
	if isMajor {
		triad = majorTriad
	}
	rootNote = ClampNote(rootNote)
	base := (rootNote/12+1)*12 + PitchClass(upperRoot)
	chord := make(Chord, 0, 1+len(triad))
	chord = append(chord, rootNote)
	for _, iv := range triad {
		chord = append(chord, ClampNote(base+iv))
	}
	return chord
}

// IntervalShape returns each note's distance in semitones from the first note
func (r *JazzReharmonizer) IntervalShape(chord []int) []int {
	shape := make([]int, 0, len(chord))
	for _, n := range chord {
		shape = append(shape, n-chord[0])
	}
	return shape
}

// ParallelVoicing moves the shape of reference onto newRoot, keeping every
// interval. Inputs are clamped to 0-127 and notes leaving the MIDI range are
// folded back by octaves.
func (r *JazzReharmonizer) ParallelVoicing(reference []int, newRoot int) Chord {
	newRoot = ClampNote(newRoot)
	out := make(Chord, 0, len(reference))
	if len(reference) == 0 {
		return out
	}
	first := ClampNote(reference[0])
	for _, n := range reference {
		out = append(out, foldNote(newRoot+ClampNote(n)-first))
	}
	return out
}
