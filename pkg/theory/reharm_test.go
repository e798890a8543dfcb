package theory

import (
	"slices"
	"testing"
)

func TestTritoneSubstitution(t *testing.T) {
	r := NewJazzReharmonizer()
	g7 := []int{55, 59, 62, 65}

	got := r.TritoneSubstitution(g7)
	if !slices.Equal(got, Chord{49, 53, 68, 71}) {
		t.Errorf("TritoneSubstitution(%v) = %v, want [49 53 68 71]", g7, got)
	}
	if len(got) != len(g7) {
		t.Errorf("len = %d, want %d", len(got), len(g7))
	}
	if d := PitchClassDistance(g7[0], got[0]); d != 6 {
		t.Errorf("root distance = %d, want 6", d)
	}

	info := NewChordAnalyzer().AnalyzeChord(got, 0)
	if info.Quality != Dominant7 {
		t.Errorf("substitute quality = %v, want Dom7", info.Quality)
	}
	// the tritone B-F is shared by G7 and Db7
	if CommonToneCount(g7, got) != 2 {
		t.Errorf("CommonToneCount = %d, want 2", CommonToneCount(g7, got))
	}
}

func TestTritoneSubstitutionEdges(t *testing.T) {
	r := NewJazzReharmonizer()
	if got := r.TritoneSubstitution(nil); len(got) != 0 {
		t.Errorf("TritoneSubstitution(nil) = %v, want empty", got)
	}
	got := r.TritoneSubstitution([]int{124, 127})
	if !slices.Equal(got, Chord{118, 121}) {
		t.Errorf("TritoneSubstitution([124 127]) = %v, want [118 121]", got)
	}
}

func TestTritoneSubstitutionClampsInput(t *testing.T) {
	r := NewJazzReharmonizer()
	tests := []struct {
		name  string
		chord []int
		want  Chord
	}{
		// clamps to G9, rebuilt on C#
		{"huge notes", []int{1 << 50, 1<<50 + 4}, Chord{121, 121}},
		{"huge root", []int{1 << 50, 60}, Chord{121, 66}},
		// clamps to C-1, rebuilt on F#
		{"negative notes", []int{-5, -1 << 40}, Chord{6, 6}},
		{"negative root", []int{-5, 64}, Chord{6, 70}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.TritoneSubstitution(tt.chord)
			if !slices.Equal(got, tt.want) {
				t.Errorf("TritoneSubstitution(%v) = %v, want %v", tt.chord, got, tt.want)
			}
		})
	}
}

func TestSecondaryDominant(t *testing.T) {
	r := NewJazzReharmonizer()
	tests := []struct {
		name   string
		degree int
		major  bool
		want   Chord
	}{
		{"V of I", 0, true, Chord{67, 71, 74, 77}},
		{"V of V", 4, true, Chord{62, 66, 69, 72}},
		{"V of ii", 1, true, Chord{69, 73, 76, 79}},
		{"V of III in minor", 2, false, Chord{70, 74, 77, 80}},
		{"negative degree wraps", -3, true, Chord{62, 66, 69, 72}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.SecondaryDominant(tt.degree, tt.major); !slices.Equal(got, tt.want) {
				t.Errorf("SecondaryDominant(%d, %v) = %v, want %v", tt.degree, tt.major, got, tt.want)
			}
		})
	}
}

func TestSecondaryDominantAscends(t *testing.T) {
	r := NewJazzReharmonizer()
	for _, major := range []bool{true, false} {
		for d := range 7 {
			got := r.SecondaryDominant(d, major)
			if !slices.IsSorted(got) {
				t.Errorf("SecondaryDominant(%d, %v) = %v, want ascending", d, major, got)
			}
			if NewChordAnalyzer().AnalyzeChord(got, 0).Quality != Dominant7 {
				t.Errorf("SecondaryDominant(%d, %v) = %v, want a dominant seventh", d, major, got)
			}
		}
	}
}

func TestUpperStructureTriad(t *testing.T) {
	r := NewJazzReharmonizer()
	tests := []struct {
		bass, upper int
		major       bool
		want        Chord
	}{
		{48, 2, true, Chord{48, 62, 66, 69}},
		{48, 9, false, Chord{48, 69, 72, 76}},
		{43, 4, true, Chord{43, 52, 56, 59}},
		{120, 11, true, Chord{120, 127, 127, 127}},
	}
	for _, tt := range tests {
		if got := r.UpperStructureTriad(tt.bass, tt.upper, tt.major); !slices.Equal(got, tt.want) {
			t.Errorf("UpperStructureTriad(%d, %d, %v) = %v, want %v", tt.bass, tt.upper, tt.major, got, tt.want)
		}
	}
}

func TestSubstitutions(t *testing.T) {
	r := NewJazzReharmonizer()

	v := r.Substitutions(4, true)
	if len(v) != 4 {
		t.Fatalf("len(Substitutions(V)) = %d, want 4", len(v))
	}
	if v[0].Name != "7" || v[0].Musicality != 95 {
		t.Errorf("first = %+v, want 7 at 95", v[0])
	}
	if v[3].Name != "bII7 (tritone)" {
		t.Errorf("last = %q, want tritone substitution", v[3].Name)
	}

	if got := r.Substitutions(-3, true); !slices.Equal(got, v) {
		t.Errorf("Substitutions(-3) = %v, want degree 4 candidates", got)
	}

	minor := r.Substitutions(1, false)
	if len(minor) != 1 || minor[0].SubstituteQuality != HalfDim7 {
		t.Errorf("Substitutions(ii, minor) = %+v", minor)
	}

	v[0].Name = "changed"
	if r.Substitutions(4, true)[0].Name != "7" {
		t.Error("Substitutions() exposed the shared table")
	}
}

func TestParallelVoicing(t *testing.T) {
	r := NewJazzReharmonizer()
	tests := []struct {
		name    string
		ref     []int
		newRoot int
		want    Chord
	}{
		{"maj7 up a step", []int{60, 64, 67, 71}, 62, Chord{62, 66, 69, 73}},
		{"open shape down", []int{48, 55, 64}, 41, Chord{41, 48, 57}},
		{"folds at the top", []int{60, 64, 67}, 125, Chord{125, 117, 120}},
		{"huge root clamps", []int{60, 64, 67}, 1 << 50, Chord{127, 119, 122}},
		{"negative root clamps", []int{60, 64, 67}, -1 << 40, Chord{0, 4, 7}},
		{"huge reference note clamps", []int{60, 1 << 50}, 60, Chord{60, 127}},
		{"negative reference root clamps", []int{-1 << 40, 64}, 60, Chord{60, 124}},
		{"empty", nil, 60, Chord{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ParallelVoicing(tt.ref, tt.newRoot); !slices.Equal(got, tt.want) {
				t.Errorf("ParallelVoicing(%v, %d) = %v, want %v", tt.ref, tt.newRoot, got, tt.want)
			}
		})
	}
}

func TestIntervalShape(t *testing.T) {
	got := NewJazzReharmonizer().IntervalShape([]int{55, 59, 62, 65})
	if !slices.Equal(got, []int{0, 4, 7, 10}) {
		t.Errorf("IntervalShape() = %v, want [0 4 7 10]", got)
	}
}
