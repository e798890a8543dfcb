package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/james-see/scalechord/pkg/config"
	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/render"
)

func readUpload(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

// settingsFromQuery overlays query parameters on the default configuration
func settingsFromQuery(c *gin.Context) (engine.Settings, error) {
	cfg := config.Default()
	if v := c.Query("root"); v != "" {
		cfg.Root = v
	}
	if v := c.Query("scale"); v != "" {
		cfg.Scale = v
	}
	if v := c.Query("voicing"); v != "" {
		cfg.Voicing = v
	}
	if v := c.Query("reharmonize"); v != "" {
		cfg.Reharmonize = v
	}
	var err error
	if cfg.OctaveOffset, err = queryInt(c, "octave_offset", cfg.OctaveOffset); err != nil {
		return engine.Settings{}, err
	}
	if cfg.OutputChannel, err = queryInt(c, "channel", cfg.OutputChannel); err != nil {
		return engine.Settings{}, err
	}
	if cfg.VoiceLeading, err = queryBool(c, "voice_leading", cfg.VoiceLeading); err != nil {
		return engine.Settings{}, err
	}
	return cfg.Settings()
}

// handleRender godoc
// @Summary Render a MIDI file
// @Description Upload a MIDI performance and receive it re-rendered as chords
// @Tags midi
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "MIDI file"
// @Param root query string false "Key root (default C)"
// @Param scale query string false "Scale name (default ionian)"
// @Param voicing query string false "triad, seventh or open"
// @Param voice_leading query bool false "Enable voice leading"
// @Param reharmonize query string false "off or tritone"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/render [post]
func (s *Server) handleRender(c *gin.Context) {
	settings, err := settingsFromQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	data, name, ok := readUpload(c)
	if !ok {
		return
	}
	p, err := engine.New(settings, s.logger)
	if err != nil {
		badRequest(c, err)
		return
	}
	out, stats, err := s.renderer.Render(p, data)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.logger.Info("rendered midi", "file", name, "input_notes", stats.InputNotes, "output_notes", stats.OutputNotes)

	outputName := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + "_chords.mid"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Header("X-Input-Notes", fmt.Sprint(stats.InputNotes))
	c.Header("X-Output-Notes", fmt.Sprint(stats.OutputNotes))
	c.Data(http.StatusOK, "audio/midi", out)
}

// handleDetectScaleMIDI godoc
// @Summary Detect the scale of a MIDI file
// @Tags midi
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file"
// @Success 200 {object} DetectScaleResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/detect-scale/midi [post]
func (s *Server) handleDetectScaleMIDI(c *gin.Context) {
	data, _, ok := readUpload(c)
	if !ok {
		return
	}
	pcs, err := s.renderer.PitchClasses(data)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, detectResponse(pcs))
}

// handleProgression godoc
// @Summary Write a chord progression
// @Description Converts a list of chords into a MIDI file
// @Tags midi
// @Accept json
// @Produce audio/midi
// @Param request body render.Progression true "Progression"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/progression [post]
func (s *Server) handleProgression(c *gin.Context) {
	var prog render.Progression
	if err := c.ShouldBindJSON(&prog); err != nil {
		badRequest(c, err)
		return
	}
	data, err := s.renderer.WriteProgression(&prog)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := prog.Name
	if name == "" {
		name = "progression"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.mid", name))
	c.Data(http.StatusOK, "audio/midi", data)
}
