package engine

import (
	"fmt"

	"github.com/james-see/scalechord/pkg/theory"
)

// ReharmMode selects the substitution applied to generated chords
type ReharmMode int

const (
	// ReharmOff plays chords as voiced
	ReharmOff ReharmMode = iota
	// ReharmTritone replaces dominant seventh chords with their tritone substitute
	ReharmTritone
)

func (m ReharmMode) String() string {
	switch m {
	case ReharmOff:
		return "off"
	case ReharmTritone:
		return "tritone"
	default:
		return fmt.Sprintf("ReharmMode(%d)", int(m))
	}
}

// Settings configures a Processor
type Settings struct {
	Scale         theory.ScaleSettings
	Voicer        theory.VoicerSettings
	VoiceLeading  bool
	OctaveRange   int
	Reharm        ReharmMode
	OutputChannel uint8   // 0-15
	VelocityScale float64 // multiplier applied to input velocity
}

// DefaultSettings returns C Ionian triads on channel 1 with no voice leading
func DefaultSettings() Settings {
	return Settings{
		Scale:         theory.ScaleSettings{RootNote: 0, Scale: theory.Ionian},
		Voicer:        theory.VoicerSettings{Voicing: theory.Triad},
		OctaveRange:   theory.DefaultOctaveRange,
		Reharm:        ReharmOff,
		VelocityScale: 1,
	}
}

// Validate checks the settings that cannot be clamped
func (s Settings) Validate() error {
	if !s.Scale.Scale.Valid() {
		return fmt.Errorf("scale %d: %w", int(s.Scale.Scale), theory.ErrUnknownScale)
	}
	if !s.Voicer.Voicing.Valid() {
		return fmt.Errorf("voicing %d: %w", int(s.Voicer.Voicing), theory.ErrUnknownVoicing)
	}
	if s.Reharm != ReharmOff && s.Reharm != ReharmTritone {
		return fmt.Errorf("unknown reharm mode %d", int(s.Reharm))
	}
	if s.OutputChannel > 15 {
		return fmt.Errorf("output channel %d out of range 0-15", s.OutputChannel)
	}
	if s.OctaveRange < 0 {
		return fmt.Errorf("octave range %d must not be negative", s.OctaveRange)
	}
	if s.VelocityScale < 0 {
		return fmt.Errorf("velocity scale %v must not be negative", s.VelocityScale)
	}
	return nil
}
