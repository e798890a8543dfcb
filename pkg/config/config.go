// Package config loads and saves scalechord settings as YAML and converts
// them into engine settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/theory"
)

// ErrUnknownName is returned when a root, scale, voicing or reharm name is not recognized
var ErrUnknownName = errors.New("unknown name")

// Config is the on-disk configuration
type Config struct {
	Root          string  `yaml:"root" json:"root"`
	Scale         string  `yaml:"scale" json:"scale"`
	Voicing       string  `yaml:"voicing" json:"voicing"`
	OctaveOffset  int     `yaml:"octave_offset" json:"octave_offset"`
	VoiceLeading  bool    `yaml:"voice_leading" json:"voice_leading"`
	OctaveRange   int     `yaml:"octave_range" json:"octave_range"`
	Reharmonize   string  `yaml:"reharmonize" json:"reharmonize"`
	OutputChannel int     `yaml:"output_channel" json:"output_channel"` // 1-16
	VelocityScale float64 `yaml:"velocity_scale" json:"velocity_scale"`
}

// Default returns the configuration matching engine.DefaultSettings
func Default() *Config {
	return FromSettings(engine.DefaultSettings())
}

// Load reads a YAML file on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := cfg.Settings(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Settings converts the configuration into engine settings
func (c *Config) Settings() (engine.Settings, error) {
	s := engine.DefaultSettings()

	root, err := ParseRoot(c.Root)
	if err != nil {
		return s, err
	}
	scale, err := ParseScale(c.Scale)
	if err != nil {
		return s, err
	}
	voicing, err := ParseVoicing(c.Voicing)
	if err != nil {
		return s, err
	}
	reharm, err := ParseReharm(c.Reharmonize)
	if err != nil {
		return s, err
	}
	if c.OutputChannel < 1 || c.OutputChannel > 16 {
		return s, fmt.Errorf("output_channel %d out of range 1-16", c.OutputChannel)
	}

	s.Scale = theory.ScaleSettings{RootNote: root, Scale: scale}
	s.Voicer = theory.VoicerSettings{Voicing: voicing, OctaveOffset: c.OctaveOffset}
	s.VoiceLeading = c.VoiceLeading
	s.OctaveRange = c.OctaveRange
	s.Reharm = reharm
	s.OutputChannel = uint8(c.OutputChannel - 1)
	s.VelocityScale = c.VelocityScale
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// FromSettings builds a configuration from engine settings
func FromSettings(s engine.Settings) *Config {
	return &Config{
		Root:          theory.NoteName(s.Scale.RootNote),
		Scale:         ScaleName(s.Scale.Scale),
		Voicing:       VoicingName(s.Voicer.Voicing),
		OctaveOffset:  s.Voicer.OctaveOffset,
		VoiceLeading:  s.VoiceLeading,
		OctaveRange:   s.OctaveRange,
		Reharmonize:   s.Reharm.String(),
		OutputChannel: int(s.OutputChannel) + 1,
		VelocityScale: s.VelocityScale,
	}
}

var scaleNames = map[string]theory.ScaleType{
	"ionian":           theory.Ionian,
	"major":            theory.Ionian,
	"dorian":           theory.Dorian,
	"phrygian":         theory.Phrygian,
	"lydian":           theory.Lydian,
	"mixolydian":       theory.Mixolydian,
	"aeolian":          theory.Aeolian,
	"minor":            theory.Aeolian,
	"natural-minor":    theory.Aeolian,
	"locrian":          theory.Locrian,
	"harmonic-minor":   theory.HarmonicMinor,
	"melodic-minor":    theory.MelodicMinor,
	"major-pentatonic": theory.MajorPentatonic,
	"minor-pentatonic": theory.MinorPentatonic,
	"major-blues":      theory.MajorBlues,
	"minor-blues":      theory.MinorBlues,
	"blues":            theory.MinorBlues,
	"whole-tone":       theory.WholeTone,
	"diminished":       theory.DiminishedScale,
}

// canonical names, indexed by scale type
var scaleKeys = [theory.NumScaleTypes]string{
	"ionian", "dorian", "phrygian", "lydian", "mixolydian", "aeolian", "locrian",
	"harmonic-minor", "melodic-minor", "major-pentatonic", "minor-pentatonic",
	"major-blues", "minor-blues", "whole-tone", "diminished",
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "-", " ", "-").Replace(name)
}

// ParseScale accepts a scale name such as "dorian" or "harmonic minor", or an ordinal
func ParseScale(name string) (theory.ScaleType, error) {
	n := normalize(name)
	if st, ok := scaleNames[n]; ok {
		return st, nil
	}
	if i, err := strconv.Atoi(n); err == nil && theory.ScaleType(i).Valid() {
		return theory.ScaleType(i), nil
	}
	return 0, fmt.Errorf("scale %q: %w", name, ErrUnknownName)
}

// ScaleName returns the canonical config name of a scale type
func ScaleName(st theory.ScaleType) string {
	if !st.Valid() {
		return strconv.Itoa(int(st))
	}
	return scaleKeys[st]
}

// ScaleNames lists the canonical scale names in ordinal order
func ScaleNames() []string {
	return slices.Clone(scaleKeys[:])
}

var voicingNames = map[string]theory.VoicingType{
	"triad":   theory.Triad,
	"seventh": theory.Seventh,
	"7th":     theory.Seventh,
	"open":    theory.Open,
}

// ParseVoicing accepts "triad", "seventh" or "open", or an ordinal
func ParseVoicing(name string) (theory.VoicingType, error) {
	n := normalize(name)
	if v, ok := voicingNames[n]; ok {
		return v, nil
	}
	if i, err := strconv.Atoi(n); err == nil && theory.VoicingType(i).Valid() {
		return theory.VoicingType(i), nil
	}
	return 0, fmt.Errorf("voicing %q: %w", name, ErrUnknownName)
}

// VoicingName returns the config name of a voicing
func VoicingName(v theory.VoicingType) string {
	switch v {
	case theory.Triad:
		return "triad"
	case theory.Seventh:
		return "seventh"
	case theory.Open:
		return "open"
	}
	return strconv.Itoa(int(v))
}

// ParseReharm accepts "off" (or empty) and "tritone"
func ParseReharm(name string) (engine.ReharmMode, error) {
	switch normalize(name) {
	case "", "off", "none":
		return engine.ReharmOff, nil
	case "tritone":
		return engine.ReharmTritone, nil
	}
	return 0, fmt.Errorf("reharmonize %q: %w", name, ErrUnknownName)
}

var pitchNames = map[string]int{
	"c": 0,
	"c#": 1, "db": 1,
	"d": 2,
	"d#": 3, "eb": 3,
	"e": 4,
	"f": 5,
	"f#": 6, "gb": 6,
	"g": 7,
	"g#": 8, "ab": 8,
	"a": 9,
	"a#": 10, "bb": 10,
	"b": 11,
}

// ParseRoot accepts a pitch name such as "F#" or "Bb", or a number 0-11.
// An empty string is C.
func ParseRoot(name string) (int, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return 0, nil
	}
	if pc, ok := pitchNames[n]; ok {
		return pc, nil
	}
	if i, err := strconv.Atoi(n); err == nil && i >= 0 && i < 12 {
		return i, nil
	}
	return 0, fmt.Errorf("root %q: %w", name, ErrUnknownName)
}

// ParseNote accepts a MIDI note number or a name with octave such as "C4" or "Bb3"
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		if i < theory.MinNote || i > theory.MaxNote {
			return 0, fmt.Errorf("note %d out of range 0-127", i)
		}
		return i, nil
	}
	split := strings.IndexAny(s, "-0123456789")
	if split <= 0 {
		return 0, fmt.Errorf("note %q: %w", s, ErrUnknownName)
	}
	pc, ok := pitchNames[strings.ToLower(s[:split])]
	if !ok {
		return 0, fmt.Errorf("note %q: %w", s, ErrUnknownName)
	}
	octave, err := strconv.Atoi(s[split:])
	if err != nil {
		return 0, fmt.Errorf("note %q: %w", s, ErrUnknownName)
	}
	note := theory.MakeMidiNote(pc, octave)
	if note < theory.MinNote || note > theory.MaxNote {
		return 0, fmt.Errorf("note %q out of range", s)
	}
	return note, nil
}

// ParseNotes parses a comma or space separated note list
func ParseNotes(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	notes := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := ParseNote(f)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}
