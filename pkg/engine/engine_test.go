package engine

import (
	"errors"
	"slices"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/scalechord/pkg/theory"
)

func newProcessor(t *testing.T, mutate func(*Settings)) *Processor {
	t.Helper()
	s := DefaultSettings()
	if mutate != nil {
		mutate(&s)
	}
	p, err := New(s, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

// notes splits output into note-on and note-off keys
func notes(msgs []midi.Message) (ons, offs []int) {
	for _, m := range msgs {
		var ch, key, vel uint8
		switch {
		case m.GetNoteStart(&ch, &key, &vel):
			ons = append(ons, int(key))
		case m.GetNoteEnd(&ch, &key):
			offs = append(offs, int(key))
		}
	}
	return ons, offs
}

func TestNoteOnQuantizesAndVoices(t *testing.T) {
	p := newProcessor(t, nil)

	out := p.Process(midi.NoteOn(0, 61, 100))
	ons, offs := notes(out)
	if !slices.Equal(ons, []int{60, 64, 67}) || len(offs) != 0 {
		t.Errorf("note-on 61: ons = %v, offs = %v, want [60 64 67], []", ons, offs)
	}

	ons, offs = notes(p.Process(midi.NoteOff(0, 61)))
	if len(ons) != 0 || !slices.Equal(offs, []int{60, 64, 67}) {
		t.Errorf("note-off 61: ons = %v, offs = %v, want [], [60 64 67]", ons, offs)
	}
	if got := p.SoundingNotes(); len(got) != 0 {
		t.Errorf("SoundingNotes() = %v, want empty", got)
	}
}

func TestZeroVelocityNoteOnReleases(t *testing.T) {
	p := newProcessor(t, nil)
	p.Process(midi.NoteOn(0, 60, 100))
	_, offs := notes(p.Process(midi.NoteOn(0, 60, 0)))
	if !slices.Equal(offs, []int{60, 64, 67}) {
		t.Errorf("offs = %v, want [60 64 67]", offs)
	}
}

func TestOutputChannelAndVelocity(t *testing.T) {
	p := newProcessor(t, func(s *Settings) {
		s.OutputChannel = 5
		s.VelocityScale = 0.5
	})

	for _, m := range p.Process(midi.NoteOn(0, 60, 100)) {
		var ch, key, vel uint8
		if !m.GetNoteStart(&ch, &key, &vel) {
			t.Fatalf("unexpected message %v", m)
		}
		if ch != 5 || vel != 50 {
			t.Errorf("note %d: channel %d velocity %d, want 5 and 50", key, ch, vel)
		}
	}
}

func TestVelocityNeverZero(t *testing.T) {
	p := newProcessor(t, func(s *Settings) { s.VelocityScale = 0 })
	for _, m := range p.Process(midi.NoteOn(0, 60, 100)) {
		var ch, key, vel uint8
		if !m.GetNoteStart(&ch, &key, &vel) {
			t.Errorf("velocity scale 0 produced %v, want note-on with velocity 1", m)
		}
	}
}

func TestSustainPedalHoldsChord(t *testing.T) {
	p := newProcessor(t, nil)
	p.Process(midi.NoteOn(0, 60, 100))

	if out := p.Process(midi.ControlChange(0, CCSustain, 127)); len(out) != 0 {
		t.Errorf("pedal down emitted %v", out)
	}
	if out := p.Process(midi.NoteOff(0, 60)); len(out) != 0 {
		t.Errorf("note-off under sustain emitted %v", out)
	}
	if got := p.SoundingNotes(); !slices.Equal(got, []int{60, 64, 67}) {
		t.Errorf("SoundingNotes() = %v, want [60 64 67]", got)
	}

	_, offs := notes(p.Process(midi.ControlChange(0, CCSustain, 0)))
	if !slices.Equal(offs, []int{60, 64, 67}) {
		t.Errorf("pedal up offs = %v, want [60 64 67]", offs)
	}
	if got := p.SoundingNotes(); len(got) != 0 {
		t.Errorf("SoundingNotes() after pedal up = %v, want empty", got)
	}
}

func TestSharedNotesStayUntilLastRelease(t *testing.T) {
	p := newProcessor(t, nil)
	p.Process(midi.NoteOn(0, 60, 100)) // C E G
	p.Process(midi.NoteOn(0, 64, 100)) // E G B

	_, offs := notes(p.Process(midi.NoteOff(0, 60)))
	if !slices.Equal(offs, []int{60}) {
		t.Errorf("offs = %v, want [60]", offs)
	}
	_, offs = notes(p.Process(midi.NoteOff(0, 64)))
	if !slices.Equal(offs, []int{64, 67, 71}) {
		t.Errorf("offs = %v, want [64 67 71]", offs)
	}
}

func TestRetriggerReleasesPreviousChord(t *testing.T) {
	p := newProcessor(t, nil)
	p.Process(midi.NoteOn(0, 60, 100))

	s := p.Settings()
	s.Voicer.OctaveOffset = -1
	if err := p.SetSettings(s); err != nil {
		t.Fatalf("SetSettings() error = %v", err)
	}

	out := p.Process(midi.NoteOn(0, 60, 100))
	ons, offs := notes(out)
	if !slices.Equal(offs, []int{60, 64, 67}) {
		t.Errorf("offs = %v, want [60 64 67]", offs)
	}
	if !slices.Equal(ons, []int{48, 52, 55}) {
		t.Errorf("ons = %v, want [48 52 55]", ons)
	}
	var ch, key uint8
	if !out[0].GetNoteEnd(&ch, &key) {
		t.Error("previous chord should be released before the new one starts")
	}
	if got := p.SoundingNotes(); !slices.Equal(got, []int{48, 52, 55}) {
		t.Errorf("SoundingNotes() = %v, want [48 52 55]", got)
	}
}

func TestVoiceLeadingAgainstLastChord(t *testing.T) {
	p := newProcessor(t, func(s *Settings) { s.VoiceLeading = true })
	p.Process(midi.NoteOn(0, 60, 100))
	p.Process(midi.NoteOff(0, 60))

	ons, _ := notes(p.Process(midi.NoteOn(0, 65, 100)))
	if !slices.Equal(ons, []int{60, 65, 69}) {
		t.Errorf("ons = %v, want [60 65 69]", ons)
	}
	if got := p.LastVoicing(); !slices.Equal(got, theory.Chord{60, 65, 69}) {
		t.Errorf("LastVoicing() = %v", got)
	}
}

func TestTritoneReharmonization(t *testing.T) {
	p := newProcessor(t, func(s *Settings) {
		s.Voicer.Voicing = theory.Seventh
		s.Reharm = ReharmTritone
	})

	ons, _ := notes(p.Process(midi.NoteOn(0, 67, 100)))
	if !slices.Equal(ons, []int{61, 65, 80, 83}) {
		t.Errorf("G7 ons = %v, want [61 65 80 83]", ons)
	}
	p.Process(midi.NoteOff(0, 67))

	ons, _ = notes(p.Process(midi.NoteOn(0, 60, 100)))
	if !slices.Equal(ons, []int{60, 64, 67, 71}) {
		t.Errorf("Cmaj7 ons = %v, want [60 64 67 71]", ons)
	}
}

func TestAllNotesOff(t *testing.T) {
	p := newProcessor(t, nil)
	p.Process(midi.NoteOn(0, 60, 100))
	p.Process(midi.NoteOn(0, 62, 100))

	out := p.Process(midi.ControlChange(0, CCAllNotesOff, 0))
	_, offs := notes(out)
	if !slices.Equal(offs, []int{60, 62, 64, 65, 67, 69}) {
		t.Errorf("offs = %v, want [60 62 64 65 67 69]", offs)
	}
	var ch, cc, val uint8
	if !out[len(out)-1].GetControlChange(&ch, &cc, &val) || cc != CCAllNotesOff {
		t.Errorf("last message = %v, want all notes off", out[len(out)-1])
	}
	if got := p.SoundingNotes(); len(got) != 0 {
		t.Errorf("SoundingNotes() = %v, want empty", got)
	}
}

func TestAllSoundOff(t *testing.T) {
	p := newProcessor(t, nil)
	p.Process(midi.NoteOn(0, 60, 100))

	out := p.Process(midi.ControlChange(0, CCAllSoundOff, 0))
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1", len(out))
	}
	if got := p.SoundingNotes(); len(got) != 0 {
		t.Errorf("SoundingNotes() = %v, want empty", got)
	}
	if _, offs := notes(p.Process(midi.NoteOff(0, 60))); len(offs) != 0 {
		t.Errorf("note-off after all sound off = %v, want nothing", offs)
	}
}

func TestControlChangeMovesToOutputChannel(t *testing.T) {
	p := newProcessor(t, func(s *Settings) { s.OutputChannel = 2 })
	out := p.Process(midi.ControlChange(7, 1, 50))
	if len(out) != 1 || !slices.Equal(out[0], midi.ControlChange(2, 1, 50)) {
		t.Errorf("Process(CC1) = %v, want CC1 on channel 2", out)
	}

	pc := midi.ProgramChange(0, 5)
	out = p.Process(pc)
	if len(out) != 1 || !slices.Equal(out[0], pc) {
		t.Errorf("Process(program change) = %v, want pass-through", out)
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.Scale.Scale = theory.ScaleType(42)
	if _, err := New(s, nil); !errors.Is(err, theory.ErrUnknownScale) {
		t.Errorf("New() error = %v, want ErrUnknownScale", err)
	}

	s = DefaultSettings()
	s.OutputChannel = 16
	if _, err := New(s, nil); err == nil {
		t.Error("New() accepted channel 16")
	}
}

func TestSetSettingsChangesScale(t *testing.T) {
	p := newProcessor(t, nil)
	s := p.Settings()
	s.Scale = theory.ScaleSettings{RootNote: 9, Scale: theory.Aeolian}
	if err := p.SetSettings(s); err != nil {
		t.Fatalf("SetSettings() error = %v", err)
	}
	ons, _ := notes(p.Process(midi.NoteOn(0, 57, 100)))
	if !slices.Equal(ons, []int{57, 60, 64}) {
		t.Errorf("ons = %v, want [57 60 64]", ons)
	}

	s.Voicer.Voicing = theory.VoicingType(9)
	if err := p.SetSettings(s); !errors.Is(err, theory.ErrUnknownVoicing) {
		t.Errorf("SetSettings() error = %v, want ErrUnknownVoicing", err)
	}
	if p.Settings().Voicer.Voicing != theory.Triad {
		t.Error("rejected settings were applied")
	}
}

func TestAnalysisAndSuggestions(t *testing.T) {
	p := newProcessor(t, func(s *Settings) { s.Voicer.Voicing = theory.Seventh })
	if got := p.Suggestions(); got != nil {
		t.Errorf("Suggestions() before any chord = %v, want nil", got)
	}

	p.Process(midi.NoteOn(0, 67, 100))
	info := p.LastAnalysis()
	if info.Quality != theory.Dominant7 || info.Function != theory.Dominant {
		t.Errorf("LastAnalysis() = %+v, want Dom7 dominant", info)
	}
	if got := p.LastDegree(); got != 4 {
		t.Errorf("LastDegree() = %d, want 4", got)
	}
	subs := p.Suggestions()
	if len(subs) != 4 || subs[0].Name != "7" {
		t.Errorf("Suggestions() = %+v, want the four V candidates", subs)
	}
}

func TestLastDegreeIgnoresVoiceLedBass(t *testing.T) {
	p := newProcessor(t, func(s *Settings) { s.VoiceLeading = true })
	p.Process(midi.NoteOn(0, 60, 100))
	p.Process(midi.NoteOff(0, 60))

	// A minor led against C major keeps C and E, so C is the lowest voice
	p.Process(midi.NoteOn(0, 69, 100))
	if got := p.LastVoicing(); !slices.Equal(got, theory.Chord{60, 64, 69}) {
		t.Fatalf("LastVoicing() = %v, want [60 64 69]", got)
	}
	if got := p.LastDegree(); got != 5 {
		t.Errorf("LastDegree() = %d, want 5", got)
	}
	want := theory.NewJazzReharmonizer().Substitutions(5, true)
	if got := p.Suggestions(); !slices.Equal(got, want) {
		t.Errorf("Suggestions() = %+v, want the vi candidates %+v", got, want)
	}

	p.Process(midi.ControlChange(0, CCAllSoundOff, 0))
	if got := p.LastDegree(); got != -1 {
		t.Errorf("LastDegree() after all sound off = %d, want -1", got)
	}
}

func TestTritoneRetriggerReleasesSubstitute(t *testing.T) {
	p := newProcessor(t, func(s *Settings) {
		s.Voicer.Voicing = theory.Seventh
		s.Reharm = ReharmTritone
	})
	p.Process(midi.NoteOn(0, 67, 100))

	// the same key again yields the same substitute, so nothing is released
	ons, offs := notes(p.Process(midi.NoteOn(0, 67, 100)))
	if !slices.Equal(ons, []int{61, 65, 80, 83}) {
		t.Errorf("ons = %v, want [61 65 80 83]", ons)
	}
	if len(offs) != 0 {
		t.Errorf("offs = %v, want none", offs)
	}
	if got := p.LastDegree(); got != 4 {
		t.Errorf("LastDegree() = %d, want 4", got)
	}
}
