package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/james-see/scalechord/pkg/config"
	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/render"
	"github.com/james-see/scalechord/pkg/theory"
)

var (
	ambiguous  bool
	detectFile string
	minorKey   bool
	minorUpper bool
)

var mapCmd = &cobra.Command{
	Use:   "map <note>...",
	Short: "Quantize notes to the scale",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMap,
}

var chordCmd = &cobra.Command{
	Use:   "chord <note>...",
	Short: "Play notes through the chord engine",
	Long: `Each note is played and released in turn, so voice leading and
reharmonization see the previous chord.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChord,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <note>...",
	Short: "Recognize a chord",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

var detectCmd = &cobra.Command{
	Use:   "detect [note]...",
	Short: "Detect the scale of notes or a MIDI file",
	RunE:  runDetect,
}

var reharmCmd = &cobra.Command{
	Use:   "reharm",
	Short: "Jazz reharmonization tools",
}

var reharmSubsCmd = &cobra.Command{
	Use:   "subs <degree>",
	Short: "List substitutions for a scale degree (1-7)",
	Args:  cobra.ExactArgs(1),
	RunE:  runReharmSubs,
}

var reharmTritoneCmd = &cobra.Command{
	Use:   "tritone <note>...",
	Short: "Tritone substitution of a chord",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReharmTritone,
}

var reharmSecondaryCmd = &cobra.Command{
	Use:   "secondary <degree>",
	Short: "Secondary dominant of a scale degree (1-7)",
	Args:  cobra.ExactArgs(1),
	RunE:  runReharmSecondary,
}

var reharmUpperCmd = &cobra.Command{
	Use:   "upper <bass> <upper-root>",
	Short: "Upper structure triad over a bass note",
	Args:  cobra.ExactArgs(2),
	RunE:  runReharmUpper,
}

var reharmParallelCmd = &cobra.Command{
	Use:   "parallel <new-root> <note>...",
	Short: "Move a chord shape onto a new root",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runReharmParallel,
}

var voiceleadCmd = &cobra.Command{
	Use:   "voicelead <from> <to>",
	Short: "Revoice a chord toward the previous one",
	Long:  `Chords are comma separated note lists, for example "C4,E4,G4" "F4,A4,C5".`,
	Args:  cobra.ExactArgs(2),
	RunE:  runVoicelead,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&ambiguous, "ambiguous", "a", false, "List every interpretation")
	detectCmd.Flags().StringVar(&detectFile, "file", "", "MIDI file to read notes from")
	reharmSubsCmd.Flags().BoolVar(&minorKey, "minor", false, "Use the minor key table")
	reharmSecondaryCmd.Flags().BoolVar(&minorKey, "minor", false, "Use the minor key table")
	reharmUpperCmd.Flags().BoolVar(&minorUpper, "minor", false, "Minor upper triad")

	reharmCmd.AddCommand(reharmSubsCmd)
	reharmCmd.AddCommand(reharmTritoneCmd)
	reharmCmd.AddCommand(reharmSecondaryCmd)
	reharmCmd.AddCommand(reharmUpperCmd)
	reharmCmd.AddCommand(reharmParallelCmd)
}

// ChordResult is one generated chord
type ChordResult struct {
	Input       string                `json:"input" yaml:"input"`
	Mapped      string                `json:"mapped" yaml:"mapped"`
	Chord       theory.Chord          `json:"chord" yaml:"chord"`
	Names       []string              `json:"names" yaml:"names"`
	Symbol      string                `json:"symbol" yaml:"symbol"`
	Roman       string                `json:"roman,omitempty" yaml:"roman,omitempty"`
	Analysis    theory.ChordInfo      `json:"analysis" yaml:"analysis"`
	Suggestions []theory.Substitution `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// MappedNote is one quantized note
type MappedNote struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
	Note   int    `json:"note" yaml:"note"`
	Degree int    `json:"degree" yaml:"degree"` // 0-based, -1 outside the scale
}

func noteNames(notes []int) []string {
	names := make([]string, 0, len(notes))
	for _, n := range notes {
		names = append(names, theory.NoteNameOctave(n))
	}
	return names
}

func newProcessor() (*engine.Processor, error) {
	return engine.New(settings, logger)
}

func runMap(cmd *cobra.Command, args []string) error {
	notes, err := notesFromArgs(args)
	if err != nil {
		return err
	}
	p, err := newProcessor()
	if err != nil {
		return err
	}
	st := settings.Scale
	out := make([]MappedNote, 0, len(notes))
	for _, n := range notes {
		mapped, err := p.MapNote(n)
		if err != nil {
			return err
		}
		out = append(out, MappedNote{
			Input:  theory.NoteNameOctave(n),
			Output: theory.NoteNameOctave(mapped),
			Note:   mapped,
			Degree: st.Scale.Degree(mapped - st.RootNote),
		})
	}
	return printResult(cmd.OutOrStdout(), out)
}

func runChord(cmd *cobra.Command, args []string) error {
	notes, err := notesFromArgs(args)
	if err != nil {
		return err
	}
	p, err := newProcessor()
	if err != nil {
		return err
	}
	st := settings.Scale
	out := make([]ChordResult, 0, len(notes))
	for _, n := range notes {
		p.NoteOn(n, 100)
		mapped, _ := p.MapNote(n)
		chord := p.LastVoicing()
		info := p.LastAnalysis()
		res := ChordResult{
			Input:       theory.NoteNameOctave(n),
			Mapped:      theory.NoteNameOctave(mapped),
			Chord:       chord,
			Names:       noteNames(chord),
			Symbol:      info.Name(),
			Analysis:    info,
			Suggestions: p.Suggestions(),
		}
		if d := st.Scale.Degree(mapped - st.RootNote); d >= 0 && d < 7 {
			res.Roman = theory.RomanNumeral(d, st.Scale.IsMajor(), info.Quality)
		}
		out = append(out, res)
		p.NoteOff(n)
	}
	logger.Debug("chords generated", "count", len(out))
	return printResult(cmd.OutOrStdout(), out)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	notes, err := notesFromArgs(args)
	if err != nil {
		return err
	}
	a := theory.NewChordAnalyzer()
	key := settings.Scale.RootNote
	if ambiguous {
		return printResult(cmd.OutOrStdout(), a.AnalyzeChordAmbiguous(notes, key))
	}
	info := a.AnalyzeChord(notes, key)
	return printResult(cmd.OutOrStdout(), map[string]any{
		"name":     info.Name(),
		"analysis": info,
	})
}

func runDetect(cmd *cobra.Command, args []string) error {
	var pcs []int
	switch {
	case detectFile != "":
		data, err := readFile(detectFile)
		if err != nil {
			return err
		}
		if pcs, err = render.NewRenderer().PitchClasses(data); err != nil {
			return err
		}
	case len(args) > 0:
		notes, err := notesFromArgs(args)
		if err != nil {
			return err
		}
		for _, n := range notes {
			pcs = append(pcs, theory.PitchClass(n))
		}
	default:
		return fmt.Errorf("give notes or --file")
	}
	root, st := theory.DetectScale(pcs)
	return printResult(cmd.OutOrStdout(), map[string]any{
		"root":       theory.NoteName(root),
		"scale":      config.ScaleName(st),
		"scale_name": st.String(),
	})
}

// parseDegree reads a 1-based scale degree
func parseDegree(s string) (int, error) {
	d, err := strconv.Atoi(s)
	if err != nil || d < 1 || d > 7 {
		return 0, fmt.Errorf("degree %q: want 1-7", s)
	}
	return d - 1, nil
}

func runReharmSubs(cmd *cobra.Command, args []string) error {
	d, err := parseDegree(args[0])
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), theory.NewJazzReharmonizer().Substitutions(d, !minorKey))
}

func chordResult(chord theory.Chord) map[string]any {
	return map[string]any{
		"chord": chord,
		"names": noteNames(chord),
	}
}

func runReharmTritone(cmd *cobra.Command, args []string) error {
	notes, err := notesFromArgs(args)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), chordResult(theory.NewJazzReharmonizer().TritoneSubstitution(notes)))
}

func runReharmSecondary(cmd *cobra.Command, args []string) error {
	d, err := parseDegree(args[0])
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), chordResult(theory.NewJazzReharmonizer().SecondaryDominant(d, !minorKey)))
}

func runReharmUpper(cmd *cobra.Command, args []string) error {
	bass, err := config.ParseNote(args[0])
	if err != nil {
		return err
	}
	upper, err := config.ParseRoot(args[1])
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), chordResult(theory.NewJazzReharmonizer().UpperStructureTriad(bass, upper, !minorUpper)))
}

func runReharmParallel(cmd *cobra.Command, args []string) error {
	root, err := config.ParseNote(args[0])
	if err != nil {
		return err
	}
	ref, err := notesFromArgs(args[1:])
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), chordResult(theory.NewJazzReharmonizer().ParallelVoicing(ref, root)))
}

func runVoicelead(cmd *cobra.Command, args []string) error {
	from, err := config.ParseNotes(args[0])
	if err != nil {
		return err
	}
	to, err := config.ParseNotes(args[1])
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), theory.NewVoiceLeading().SuggestSmoothVoicing(from, to))
}
