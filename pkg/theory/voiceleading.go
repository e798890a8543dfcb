package theory

import "slices"

// DefaultOctaveRange is the octave search radius used by SuggestSmoothVoicing
const DefaultOctaveRange = 2

// missingVoice stands in for absent voices when chords differ in size
const missingVoice = 60

// VoiceLeadingResult describes a move from one chord to an optimized next chord
type VoiceLeadingResult struct {
	PreviousChord   Chord   `json:"previous_chord" yaml:"previous_chord"`
	NextChord       Chord   `json:"next_chord" yaml:"next_chord"`
	SmoothnessScore float64 `json:"smoothness_score" yaml:"smoothness_score"` // 0-100, higher is smoother
	TotalDistance   int     `json:"total_distance" yaml:"total_distance"`     // semitones moved
	HasCommonTones  bool    `json:"has_common_tones" yaml:"has_common_tones"`
	CommonToneCount int     `json:"common_tone_count" yaml:"common_tone_count"`
}

// VoiceLeading revoices chords to minimize motion between them
type VoiceLeading struct{}

// NewVoiceLeading creates a voice leader
func NewVoiceLeading() *VoiceLeading {
	return &VoiceLeading{}
}

// OptimizeVoicing revoices target's pitch classes close to current. Notes
// outside 0-127 in either chord are clamped first.
// For each target pitch class, ascending, an unused current note with the
// same pitch class is kept in place. Otherwise the pitch class is placed in
// the octave, within octaveRange of the last current note, that is nearest
// to it. The result is sorted ascending.
func (vl *VoiceLeading) OptimizeVoicing(current, target []int, octaveRange int) Chord {
	if len(target) == 0 {
		return Chord{}
	}
	return vl.AppendOptimized(nil, current, target, octaveRange)
}

// AppendOptimized is OptimizeVoicing appending into dst
func (vl *VoiceLeading) AppendOptimized(dst Chord, current, target []int, octaveRange int) Chord {
	if len(target) == 0 {
		return dst
	}
	start := len(dst)
	baseOctave := Octave(ClampNote(target[0]))

	var used [128]bool
	var targetPCs [12]bool
	for _, n := range target {
		targetPCs[PitchClass(ClampNote(n))] = true
	}

	for pc, ok := range targetPCs {
		if !ok {
			continue
		}
		ref := -1
		for i, n := range current {
			if i < len(used) && used[i] {
				continue
			}
			if n = ClampNote(n); PitchClass(n) == pc {
				ref = n
				if i < len(used) {
					used[i] = true
				}
				break
			}
		}
		if ref == -1 {
			if len(current) > 0 {
				ref = ClampNote(current[len(current)-1])
			} else {
				ref = MakeMidiNote(pc, baseOctave)
			}
		}
		dst = append(dst, findBestOctave(ref, pc, octaveRange))
	}

	slices.Sort(dst[start:])
	return dst
}

// findBestOctave places pitchClass in the octave nearest to ref
func findBestOctave(ref, pitchClass, octaveRange int) int {
	refOctave := Octave(ref)
	best := -1
	bestDist := 1 << 30
	for off := -octaveRange; off <= octaveRange; off++ {
		candidate := MakeMidiNote(pitchClass, refOctave+off)
		if candidate < MinNote || candidate > MaxNote {
			continue
		}
		dist := candidate - ref
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			best = candidate
		}
	}
	if best == -1 {
		best = foldNote(MakeMidiNote(pitchClass, refOctave))
	}
	return best
}

// voiceDistance sums per-index semitone motion over the longer chord
func voiceDistance(from, to []int) (total, voices int) {
	voices = max(len(from), len(to))
	for i := 0; i < voices; i++ {
		f, t := missingVoice, missingVoice
		if i < len(from) {
			f = ClampNote(from[i])
		}
		if i < len(to) {
			t = ClampNote(to[i])
		}
		d := t - f
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total, voices
}

// ScoreVoiceLeading rates a chord move from 0 to 100. Motion costs two points
// per average semitone, capped at 80, and each shared pitch class earns 8.
// An empty chord on either side scores 50.
func (vl *VoiceLeading) ScoreVoiceLeading(from, to []int) float64 {
	if len(from) == 0 || len(to) == 0 {
		return 50
	}
	total, voices := voiceDistance(from, to)
	avg := float64(total) / float64(voices)
	score := 100 - min(avg*2, 80) + 8*float64(CommonToneCount(from, to))
	return max(0, min(100, score))
}

// SuggestSmoothVoicing optimizes target against current and scores the move
func (vl *VoiceLeading) SuggestSmoothVoicing(current, target []int) VoiceLeadingResult {
	next := vl.OptimizeVoicing(current, target, DefaultOctaveRange)
	total, _ := voiceDistance(current, next)
	common := CommonToneCount(current, next)
	return VoiceLeadingResult{
		PreviousChord:   slices.Clone(Chord(current)),
		NextChord:       next,
		SmoothnessScore: vl.ScoreVoiceLeading(current, next),
		TotalDistance:   total,
		HasCommonTones:  common > 0,
		CommonToneCount: common,
	}
}
