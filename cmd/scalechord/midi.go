package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/james-see/scalechord/pkg/render"
	"github.com/james-see/scalechord/pkg/theory"
)

var (
	outputFile      string
	progressionFile string
	beats           float64
	tempo           float64
	octave          int
)

var renderCmd = &cobra.Command{
	Use:   "render <input.mid>",
	Short: "Re-render a MIDI performance as chords",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var progressionCmd = &cobra.Command{
	Use:   "progression [degree]...",
	Short: "Write a chord progression to a MIDI file",
	Long: `Degrees (1-7) are voiced in the configured key. A YAML progression file
can be given instead with --file.`,
	RunE: runProgression,
}

func init() {
	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	progressionCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	progressionCmd.Flags().StringVar(&progressionFile, "file", "", "YAML progression file")
	progressionCmd.Flags().Float64Var(&beats, "beats", 4, "Beats per chord")
	progressionCmd.Flags().Float64Var(&tempo, "tempo", render.DefaultTempo, "Tempo in BPM")
	progressionCmd.Flags().IntVar(&octave, "octave", 4, "Octave of the first degree")
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func getOutputPath(input, suffix string) string {
	if outputFile != "" {
		return outputFile
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

func runRender(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, "_chords.mid")

	p, err := newProcessor()
	if err != nil {
		return err
	}
	stats, err := render.NewRenderer().RenderFile(p, input, output)
	if err != nil {
		return err
	}
	logger.Info("rendered", "input", input, "output", output,
		"input_notes", stats.InputNotes, "output_notes", stats.OutputNotes, "events", stats.Events)
	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s -> %s\n", input, output)
	return nil
}

// loadProgression reads a YAML progression file
func loadProgression(path string) (*render.Progression, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var prog render.Progression
	if err := yaml.Unmarshal(data, &prog); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &prog, nil
}

// degreeProgression voices 1-based scale degrees with the configured settings
func degreeProgression(degrees []string) (*render.Progression, error) {
	m, err := theory.NewScaleMapper(settings.Scale)
	if err != nil {
		return nil, err
	}
	v := theory.NewChordVoicer(m)
	if err := v.SetSettings(settings.Voicer); err != nil {
		return nil, err
	}
	intervals := settings.Scale.Scale.Intervals()
	base := theory.MakeMidiNote(settings.Scale.RootNote, octave)

	prog := &render.Progression{
		Name:    "progression",
		Tempo:   tempo,
		Channel: settings.OutputChannel,
	}
	for _, s := range degrees {
		d, err := strconv.Atoi(s)
		if err != nil || d < 1 || d > len(intervals) {
			return nil, fmt.Errorf("degree %q: want 1-%d", s, len(intervals))
		}
		chord := v.MakeChordFromNote(base + intervals[d-1])
		prog.Steps = append(prog.Steps, render.ProgressionStep{Chord: chord, Beats: beats})
	}
	return prog, nil
}

func runProgression(cmd *cobra.Command, args []string) error {
	var prog *render.Progression
	var err error
	switch {
	case progressionFile != "":
		prog, err = loadProgression(progressionFile)
	case len(args) > 0:
		prog, err = degreeProgression(args)
	default:
		return fmt.Errorf("give degrees or --file")
	}
	if err != nil {
		return err
	}

	output := outputFile
	if output == "" {
		output = prog.Name + ".mid"
		if prog.Name == "" {
			output = "progression.mid"
		}
	}
	if err := render.NewRenderer().WriteProgressionFile(prog, output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chords -> %s\n", len(prog.Steps), output)
	return nil
}
