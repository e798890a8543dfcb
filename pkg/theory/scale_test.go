package theory

import (
	"errors"
	"slices"
	"testing"
)

func mustMapper(t *testing.T, root int, scale ScaleType) *ScaleMapper {
	t.Helper()
	m, err := NewScaleMapper(ScaleSettings{RootNote: root, Scale: scale})
	if err != nil {
		t.Fatalf("NewScaleMapper() error = %v", err)
	}
	return m
}

func TestScaleSemitones(t *testing.T) {
	tests := []struct {
		name  string
		root  int
		scale ScaleType
		want  []int
	}{
		{"C major", 0, Ionian, []int{0, 2, 4, 5, 7, 9, 11}},
		{"D dorian", 2, Dorian, []int{0, 2, 4, 5, 7, 9, 11}},
		{"A minor pentatonic", 9, MinorPentatonic, []int{0, 2, 4, 7, 9}},
		{"G major", 7, Ionian, []int{0, 2, 4, 6, 7, 9, 11}},
		{"root wraps", 14, WholeTone, []int{0, 2, 4, 6, 8, 10}},
		{"C diminished", 0, DiminishedScale, []int{0, 2, 3, 5, 6, 8, 9, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMapper(t, tt.root, tt.scale)
			if got := m.ScaleSemitones(); !slices.Equal(got, tt.want) {
				t.Errorf("ScaleSemitones() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewScaleMapperRejectsUnknownScale(t *testing.T) {
	_, err := NewScaleMapper(ScaleSettings{Scale: ScaleType(99)})
	if !errors.Is(err, ErrUnknownScale) {
		t.Errorf("NewScaleMapper() error = %v, want ErrUnknownScale", err)
	}
}

func TestMapNoteUninitialized(t *testing.T) {
	var m ScaleMapper
	if _, err := m.MapNote(60); !errors.Is(err, ErrScaleNotInitialized) {
		t.Errorf("MapNote() error = %v, want ErrScaleNotInitialized", err)
	}
	if _, err := m.MapNoteFast(60); !errors.Is(err, ErrScaleNotInitialized) {
		t.Errorf("MapNoteFast() error = %v, want ErrScaleNotInitialized", err)
	}
}

func TestMapNoteTieGoesLower(t *testing.T) {
	m := mustMapper(t, 0, Ionian)
	got, err := m.MapNote(61)
	if err != nil {
		t.Fatalf("MapNote() error = %v", err)
	}
	if got != 60 {
		t.Errorf("MapNote(61) = %d, want 60", got)
	}
}

func TestMapNoteClampsInput(t *testing.T) {
	m := mustMapper(t, 0, Ionian)
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{200, 127},
		{127, 127},
		{0, 0},
	}
	for _, tt := range tests {
		got, _ := m.MapNote(tt.in)
		if got != tt.want {
			t.Errorf("MapNote(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMapNoteScaleContainmentAndIdempotence(t *testing.T) {
	for root := 0; root < 12; root++ {
		for _, st := range ScaleTypes() {
			m := mustMapper(t, root, st)
			scale := m.ScaleSemitones()
			for n := 0; n <= 127; n++ {
				mapped, err := m.MapNote(n)
				if err != nil {
					t.Fatalf("MapNote(%d) error = %v", n, err)
				}
				if !slices.Contains(scale, PitchClass(mapped)) {
					t.Fatalf("%v root %d: MapNote(%d) = %d is out of scale", st, root, n, mapped)
				}
				again, _ := m.MapNote(mapped)
				if again != mapped {
					t.Fatalf("%v root %d: MapNote(MapNote(%d)) = %d, want %d", st, root, n, again, mapped)
				}
			}
		}
	}
}

func TestMapNoteFastMatchesMapNote(t *testing.T) {
	m := mustMapper(t, 3, HarmonicMinor)
	if err := m.BuildLookupTable(); err != nil {
		t.Fatalf("BuildLookupTable() error = %v", err)
	}
	for n := 0; n <= 127; n++ {
		slow, _ := m.MapNote(n)
		fast, _ := m.MapNoteFast(n)
		if slow != fast {
			t.Errorf("MapNoteFast(%d) = %d, want %d", n, fast, slow)
		}
	}
}

func TestSetSettingsInvalidatesLookup(t *testing.T) {
	m := mustMapper(t, 0, Ionian)
	if _, err := m.MapNoteFast(61); err != nil {
		t.Fatalf("MapNoteFast() error = %v", err)
	}
	if !m.LookupValid() {
		t.Fatal("lookup table should be valid after MapNoteFast")
	}

	if err := m.SetSettings(ScaleSettings{RootNote: 1, Scale: Ionian}); err != nil {
		t.Fatalf("SetSettings() error = %v", err)
	}
	if m.LookupValid() {
		t.Error("lookup table should be invalid after SetSettings")
	}
	got, _ := m.MapNoteFast(61)
	if got != 61 {
		t.Errorf("MapNoteFast(61) in C# major = %d, want 61", got)
	}
}

func TestScaleDegree(t *testing.T) {
	m := mustMapper(t, 0, Ionian)
	tests := []struct {
		semitone, want int
	}{
		{0, 0},
		{4, 2},
		{11, 6},
		{1, -1},
		{16, 2},
		{-1, 6},
	}
	for _, tt := range tests {
		if got := m.ScaleDegree(tt.semitone); got != tt.want {
			t.Errorf("ScaleDegree(%d) = %d, want %d", tt.semitone, got, tt.want)
		}
	}
}

func TestChordIntervalsForDegree(t *testing.T) {
	m := mustMapper(t, 0, Ionian)
	tests := []struct {
		name    string
		degree  int
		quality int
		want    []int
	}{
		{"I dyad", 0, 0, []int{0, 4}},
		{"I seventh", 0, 1, []int{0, 4, 7, 11}},
		{"V seventh wraps", 4, 1, []int{7, 11, 14, 17}},
		{"vii ninth", 6, 2, []int{11, 14, 17, 21, 24, 28}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ChordIntervalsForDegree(tt.degree, tt.quality)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ChordIntervalsForDegree(%d, %d) = %v, want %v", tt.degree, tt.quality, got, tt.want)
			}
		})
	}
}

func TestChordIntervalsStrictlyIncreasingOnPentatonic(t *testing.T) {
	m := mustMapper(t, 0, MajorPentatonic)
	got := m.ChordIntervalsForDegree(3, 3)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("intervals not increasing at %d: %v", i, got)
		}
	}
}

func TestDetectScale(t *testing.T) {
	tests := []struct {
		name      string
		pcs       []int
		wantRoot  int
		wantScale ScaleType
	}{
		{"empty", nil, 0, Ionian},
		{"C major notes", []int{0, 2, 4, 5, 7, 9, 11}, 0, Ionian},
		{"G major notes", []int{7, 9, 11, 0, 2, 4, 6}, 0, Lydian},
		{"whole tone", []int{0, 2, 4, 6, 8, 10}, 0, WholeTone},
		{"single note", []int{5}, 0, Ionian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, scale := DetectScale(tt.pcs)
			if root != tt.wantRoot || scale != tt.wantScale {
				t.Errorf("DetectScale(%v) = (%d, %v), want (%d, %v)", tt.pcs, root, scale, tt.wantRoot, tt.wantScale)
			}
		})
	}
}

func TestScaleTypeString(t *testing.T) {
	if got := Aeolian.String(); got != "Natural Minor (Aeolian)" {
		t.Errorf("Aeolian.String() = %q", got)
	}
	if got := ScaleType(-1).String(); got != "Unknown" {
		t.Errorf("ScaleType(-1).String() = %q, want Unknown", got)
	}
}

func TestScaleTypeDegreeAndQuality(t *testing.T) {
	if !Mixolydian.IsMajor() || Dorian.IsMajor() || ScaleType(40).IsMajor() {
		t.Error("IsMajor() misclassified a scale")
	}
	if got := Ionian.Degree(7); got != 4 {
		t.Errorf("Ionian.Degree(7) = %d, want 4", got)
	}
	if got := Aeolian.Degree(4); got != -1 {
		t.Errorf("Aeolian.Degree(4) = %d, want -1", got)
	}
	if got := Ionian.Degree(-1); got != 6 {
		t.Errorf("Ionian.Degree(-1) = %d, want 6", got)
	}
}
