// Package tracker keeps the live mapping from held input notes to the chord
// notes they generated, including sustain pedal hold-over.
//
// A NoteTracker is owned by one goroutine. After the first few chords its
// buffers are reused, so the note path does not allocate.
package tracker

import (
	"slices"

	"github.com/james-see/scalechord/pkg/theory"
)

const numNotes = theory.MaxNote + 1

// ActiveNote is one sounding or pedal-held input note
type ActiveNote struct {
	InputNote      int          `json:"input_note" yaml:"input_note"`
	GeneratedNotes theory.Chord `json:"generated_notes" yaml:"generated_notes"`
	Velocity       int          `json:"velocity" yaml:"velocity"`
	HeldBySustain  bool         `json:"held_by_sustain" yaml:"held_by_sustain"`
}

type slot struct {
	active bool
	note   ActiveNote
}

// NoteTracker maps input notes to generated notes.
// Note-on for an input note that is already tracked replaces its entry.
type NoteTracker struct {
	slots   [numNotes]slot
	refs    [numNotes]int // entries holding each generated note
	pending []int         // input notes waiting for the pedal to lift
	count   int
	sustain bool
}

// New creates an empty tracker
func New() *NoteTracker {
	return &NoteTracker{pending: make([]int, 0, numNotes)}
}

// TrackNoteOn records the chord generated by inputNote, replacing any
// existing entry for the same input note.
func (t *NoteTracker) TrackNoteOn(inputNote int, generated []int, velocity int) {
	inputNote = theory.ClampNote(inputNote)
	s := &t.slots[inputNote]
	if s.active {
		t.unref(s.note.GeneratedNotes)
		if s.note.HeldBySustain {
			t.dropPending(inputNote)
		}
	} else {
		t.count++
	}

	s.active = true
	s.note.InputNote = inputNote
	s.note.Velocity = velocity
	s.note.HeldBySustain = false
	s.note.GeneratedNotes = s.note.GeneratedNotes[:0]
	for _, n := range generated {
		n = theory.ClampNote(n)
		s.note.GeneratedNotes = append(s.note.GeneratedNotes, n)
		t.refs[n]++
	}
}

// TrackNoteOff handles the release of inputNote. With the sustain pedal down
// the entry is kept, marked held and queued for the next Poll, and nil is
// returned. Otherwise the entry is removed and its generated notes are
// returned. The returned slice is reused by the next TrackNoteOn for the same
// input note.
func (t *NoteTracker) TrackNoteOff(inputNote int) []int {
	inputNote = theory.ClampNote(inputNote)
	s := &t.slots[inputNote]
	if !s.active {
		return nil
	}
	if t.sustain {
		if !s.note.HeldBySustain {
			s.note.HeldBySustain = true
			t.pending = append(t.pending, inputNote)
		}
		return nil
	}
	t.remove(s)
	return s.note.GeneratedNotes
}

// SetSustainPedal stores the pedal state. Held notes are released by the
// next Poll that sees the pedal up.
func (t *NoteTracker) SetSustainPedal(active bool) {
	t.sustain = active
}

// SustainPedal reports the stored pedal state
func (t *NoteTracker) SustainPedal() bool {
	return t.sustain
}

// Poll is the flush point for pedal-held notes. If the pedal is up, every
// held entry is removed and its generated notes are appended to dst.
func (t *NoteTracker) Poll(dst []int) []int {
	if t.sustain || len(t.pending) == 0 {
		return dst
	}
	for _, in := range t.pending {
		s := &t.slots[in]
		if !s.active || !s.note.HeldBySustain {
			continue
		}
		t.remove(s)
		dst = append(dst, s.note.GeneratedNotes...)
	}
	t.pending = t.pending[:0]
	return dst
}

// PendingCount returns how many entries wait for the pedal to lift
func (t *NoteTracker) PendingCount() int {
	return len(t.pending)
}

// AllActiveGeneratedNotes returns the sorted union of every tracked entry's
// generated notes, held or sounding.
func (t *NoteTracker) AllActiveGeneratedNotes() []int {
	return t.AppendAllActiveGeneratedNotes(nil)
}

// AppendAllActiveGeneratedNotes is AllActiveGeneratedNotes appending into dst
func (t *NoteTracker) AppendAllActiveGeneratedNotes(dst []int) []int {
	for n, c := range t.refs {
		if c > 0 {
			dst = append(dst, n)
		}
	}
	return dst
}

// IsGeneratedNoteActive reports whether any tracked entry holds note
func (t *NoteTracker) IsGeneratedNoteActive(note int) bool {
	if note < theory.MinNote || note > theory.MaxNote {
		return false
	}
	return t.refs[note] > 0
}

// NoteOffsForInputNote returns a copy of the notes generated by inputNote
func (t *NoteTracker) NoteOffsForInputNote(inputNote int) []int {
	if !t.IsNotePlaying(inputNote) {
		return nil
	}
	return t.AppendNoteOffsForInputNote(nil, inputNote)
}

// AppendNoteOffsForInputNote is NoteOffsForInputNote appending into dst
func (t *NoteTracker) AppendNoteOffsForInputNote(dst []int, inputNote int) []int {
	if !t.IsNotePlaying(inputNote) {
		return dst
	}
	return append(dst, t.slots[inputNote].note.GeneratedNotes...)
}

// IsNotePlaying reports whether inputNote has an entry, held or sounding
func (t *NoteTracker) IsNotePlaying(inputNote int) bool {
	if inputNote < theory.MinNote || inputNote > theory.MaxNote {
		return false
	}
	return t.slots[inputNote].active
}

// ActiveNoteCount returns the number of tracked input notes
func (t *NoteTracker) ActiveNoteCount() int {
	return t.count
}

// ActiveNotes returns a snapshot of every entry ordered by input note
func (t *NoteTracker) ActiveNotes() []ActiveNote {
	out := make([]ActiveNote, 0, t.count)
	for i := range t.slots {
		s := &t.slots[i]
		if !s.active {
			continue
		}
		n := s.note
		n.GeneratedNotes = slices.Clone(n.GeneratedNotes)
		out = append(out, n)
	}
	return out
}

// Reset forgets every entry without releasing anything. The pedal state is kept.
func (t *NoteTracker) Reset() {
	for i := range t.slots {
		t.slots[i].active = false
		t.slots[i].note.HeldBySustain = false
		t.slots[i].note.GeneratedNotes = t.slots[i].note.GeneratedNotes[:0]
	}
	t.refs = [numNotes]int{}
	t.pending = t.pending[:0]
	t.count = 0
}

func (t *NoteTracker) remove(s *slot) {
	s.active = false
	s.note.HeldBySustain = false
	t.unref(s.note.GeneratedNotes)
	t.count--
}

func (t *NoteTracker) unref(notes []int) {
	for _, n := range notes {
		if t.refs[n] > 0 {
			t.refs[n]--
		}
	}
}

func (t *NoteTracker) dropPending(inputNote int) {
	if i := slices.Index(t.pending, inputNote); i >= 0 {
		t.pending = slices.Delete(t.pending, i, i+1)
	}
}
