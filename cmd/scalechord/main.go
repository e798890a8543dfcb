// Package main is the entry point for the scalechord CLI
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/james-see/scalechord/pkg/api"
	"github.com/james-see/scalechord/pkg/config"
	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile   string
	verbose      bool
	outputFormat string
	serverPort   int

	// overrides applied on top of the config file
	rootName     string
	scaleName    string
	voicingName  string
	reharmName   string
	octaveOffset int
	voiceLeading bool
	channel      int

	logger   *slog.Logger
	cfg      *config.Config
	settings engine.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scalechord",
	Short: "Turn single notes into scale-aware chords",
	Long: `scalechord quantizes MIDI notes to a scale and answers each one with a
diatonic chord. It also analyzes chords, suggests jazz substitutions and
re-renders MIDI files as chord performances.

Examples:
  scalechord chord E4 --scale dorian --root D
  scalechord analyze C4 E4 G4 Bb4
  scalechord detect --file take.mid
  scalechord reharm subs 4
  scalechord render take.mid -o take_chords.mid --voicing seventh
  scalechord progression 2 5 1 --voicing seventh -o ii-V-I.mid
  scalechord tui
  scalechord serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal instrument",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&outputFormat, "format", "f", "yaml", "Result format (yaml, json)")
	pf.StringVar(&rootName, "root", "", "Key root (C, F#, Bb or 0-11)")
	pf.StringVarP(&scaleName, "scale", "s", "", "Scale name")
	pf.StringVar(&voicingName, "voicing", "", "Voicing (triad, seventh, open)")
	pf.StringVar(&reharmName, "reharm", "", "Reharmonization (off, tritone)")
	pf.IntVar(&octaveOffset, "octave-offset", 0, "Octaves added to generated chords")
	pf.BoolVar(&voiceLeading, "voice-leading", false, "Revoice each chord toward the previous one")
	pf.IntVar(&channel, "channel", 1, "Output MIDI channel (1-16)")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(chordCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(reharmCmd)
	rootCmd.AddCommand(voiceleadCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(progressionCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup configures logging and resolves the engine settings for every command
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	switch outputFormat {
	case "yaml", "json":
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", outputFormat)
	}

	var err error
	if cfg, err = config.Load(configFile); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = rootName
	}
	if flags.Changed("scale") {
		cfg.Scale = scaleName
	}
	if flags.Changed("voicing") {
		cfg.Voicing = voicingName
	}
	if flags.Changed("reharm") {
		cfg.Reharmonize = reharmName
	}
	if flags.Changed("octave-offset") {
		cfg.OctaveOffset = octaveOffset
	}
	if flags.Changed("voice-leading") {
		cfg.VoiceLeading = voiceLeading
	}
	if flags.Changed("channel") {
		cfg.OutputChannel = channel
	}
	if settings, err = cfg.Settings(); err != nil {
		return err
	}
	logger.Debug("settings resolved", "config", configFile, "root", cfg.Root, "scale", cfg.Scale, "voicing", cfg.Voicing)
	return nil
}

// printResult writes v in the selected format
func printResult(w io.Writer, v any) error {
	var data []byte
	var err error
	if outputFormat == "json" {
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// notesFromArgs parses every argument as a note list
func notesFromArgs(args []string) ([]int, error) {
	return config.ParseNotes(strings.Join(args, " "))
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(settings)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", serverPort)
	return api.StartServer(serverPort, logger)
}
