package theory

import (
	"fmt"
	"slices"
	"sort"
)

// chordPattern is a required interval prefix for a chord quality
type chordPattern struct {
	intervals  [6]int
	numNotes   int
	quality    ChordQuality
	confidence float64
}

// chordPatterns is ordered so that simpler chords win ties
var chordPatterns = [16]chordPattern{
	{[6]int{0, 4, 7}, 3, Major, 1.0},
	{[6]int{0, 3, 7}, 3, Minor, 1.0},
	{[6]int{0, 4, 7, 10}, 4, Dominant7, 0.95},
	{[6]int{0, 4, 7, 11}, 4, Major7, 0.95},
	{[6]int{0, 3, 7, 10}, 4, Minor7, 0.95},
	{[6]int{0, 3, 6, 10}, 4, HalfDim7, 0.95},
	{[6]int{0, 3, 6}, 3, Diminished, 0.9},
	{[6]int{0, 4, 8}, 3, Augmented, 0.9},
	{[6]int{0, 2, 7}, 3, Sus2, 0.85},
	{[6]int{0, 5, 7}, 3, Sus4, 0.85},
	{[6]int{0, 4, 7, 11, 2}, 5, Maj9, 0.85},
	{[6]int{0, 3, 7, 10, 2}, 5, Min9, 0.85},
	{[6]int{0, 4, 7, 10, 2}, 5, Dom9, 0.85},
	{[6]int{0, 4, 7, 11, 2, 5}, 6, Maj11, 0.80},
	{[6]int{0, 3, 7, 10, 2, 5}, 6, Min11, 0.80},
	{[6]int{0, 4, 7, 10, 2, 5}, 6, Dom11, 0.80},
}

// extensionPenalty scales the confidence of a match with extra notes
const extensionPenalty = 0.8

// ambiguityThreshold is the minimum confidence kept by AnalyzeChordAmbiguous
const ambiguityThreshold = 0.5

// ChordInfo is the result of analyzing a note collection
type ChordInfo struct {
	Root       int           `json:"root" yaml:"root"` // MIDI note
	Quality    ChordQuality  `json:"quality" yaml:"quality"`
	Function   ChordFunction `json:"function" yaml:"function"`
	Intervals  []int         `json:"intervals" yaml:"intervals"` // pitch classes relative to root
	Confidence float64       `json:"confidence" yaml:"confidence"`
}

// Name returns a short chord symbol such as "C Maj7"
func (c ChordInfo) Name() string {
	if c.Quality == Unknown {
		return "?"
	}
	return fmt.Sprintf("%s %s", NoteName(c.Root), c.Quality)
}

// ChordAnalyzer recognizes chord qualities by interval pattern matching.
//
// The lowest note is taken as the root; inversions are not detected by
// AnalyzeChord. AnalyzeChordAmbiguous tries every note as root instead.
type ChordAnalyzer struct{}

// NewChordAnalyzer creates an analyzer
func NewChordAnalyzer() *ChordAnalyzer {
	return &ChordAnalyzer{}
}

// AnalyzeChord classifies notes, using the lowest note as root and baseKey
// (0-11) to derive the harmonic function. No notes or no match yields
// Unknown with zero confidence.
func (a *ChordAnalyzer) AnalyzeChord(notes []int, baseKey int) ChordInfo {
	if len(notes) == 0 {
		return ChordInfo{Quality: Unknown, Function: Extended}
	}
	return a.analyzeWithRoot(notes, slices.Min(notes), baseKey)
}

// AnalyzeChordAmbiguous analyzes notes once per candidate root (each input
// note) and returns the interpretations above 0.5 confidence, highest first.
// Equal confidences keep input order.
func (a *ChordAnalyzer) AnalyzeChordAmbiguous(notes []int, baseKey int) []ChordInfo {
	var results []ChordInfo
	for _, root := range notes {
		info := a.analyzeWithRoot(notes, root, baseKey)
		if info.Confidence > ambiguityThreshold {
			results = append(results, info)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

func (a *ChordAnalyzer) analyzeWithRoot(notes []int, root, baseKey int) ChordInfo {
	info := ChordInfo{
		Root:      root,
		Quality:   Unknown,
		Intervals: normalizePitchClasses(notes, root),
	}

	best := -1
	bestScore := 0.0
	for i := range chordPatterns {
		score := matchPatternScore(info.Intervals, &chordPatterns[i])
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best >= 0 {
		info.Quality = chordPatterns[best].quality
		info.Confidence = bestScore
	}

	info.Function = a.DetectFunction(root, baseKey, true)
	return info
}

// IsDominantSeventh reports whether AnalyzeChord would classify notes as
// Dominant7: their pitch classes relative to the lowest note are exactly
// {0, 4, 7, 10}. It does not allocate.
func IsDominantSeventh(notes []int) bool {
	if len(notes) < 4 {
		return false
	}
	root := slices.Min(notes)
	var set [12]bool
	count := 0
	for _, n := range notes {
		if pc := PitchClass(n - root); !set[pc] {
			set[pc] = true
			count++
		}
	}
	return count == 4 && set[0] && set[4] && set[7] && set[10]
}

// normalizePitchClasses returns pitch classes relative to root, sorted and
// deduplicated
func normalizePitchClasses(notes []int, root int) []int {
	rel := make([]int, 0, len(notes))
	for _, n := range notes {
		rel = append(rel, n-root)
	}
	return pitchClassSet(rel)
}

func matchPatternScore(normalized []int, p *chordPattern) float64 {
	if len(normalized) < p.numNotes {
		return 0
	}
	for i := 0; i < p.numNotes; i++ {
		if normalized[i] != p.intervals[i] {
			return 0
		}
	}
	if len(normalized) == p.numNotes {
		return p.confidence
	}
	return p.confidence * extensionPenalty
}

// DetectFunction returns the harmonic function of a chord root in a key.
// Major keys name degrees 0, 5 and 7; minor keys name 0, 3, 5 and 7.
// Everything else is Extended.
func (a *ChordAnalyzer) DetectFunction(root, keyRoot int, isMajor bool) ChordFunction {
	degree := PitchClass(root - keyRoot)
	if isMajor {
		switch degree {
		case 0:
			return Tonic
		case 5:
			return Subdominant
		case 7:
			return Dominant
		}
		return Extended
	}
	switch degree {
	case 0:
		return Tonic
	case 3:
		return Relative
	case 5:
		return Subdominant
	case 7:
		return Dominant
	}
	return Extended
}

var (
	majorNumerals = [7]string{"I", "ii", "iii", "IV", "V", "vi", "vii°"}
	minorNumerals = [7]string{"i", "ii°", "III", "iv", "v", "VI", "VII"}
)

// RomanNumeral renders a scale degree (0-6) with a quality suffix, e.g. "V7"
func RomanNumeral(degree int, isMajor bool, quality ChordQuality) string {
	numerals := minorNumerals
	if isMajor {
		numerals = majorNumerals
	}
	numeral := numerals[((degree%7)+7)%7]

	var suffix string
	switch quality {
	case Minor:
		suffix = "m"
	case Dominant7:
		suffix = "7"
	case Major7:
		suffix = "maj7"
	case Minor7:
		suffix = "m7"
	case HalfDim7:
		suffix = "m7b5"
	case Diminished:
		suffix = "°"
	}
	return numeral + suffix
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the pitch class name of a note, e.g. "F#"
func NoteName(note int) string {
	return noteNames[PitchClass(note)]
}

// NoteNameOctave returns a note name with its octave, e.g. "C4" for 60
func NoteNameOctave(note int) string {
	return fmt.Sprintf("%s%d", NoteName(note), Octave(note))
}
