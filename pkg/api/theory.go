package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/james-see/scalechord/pkg/config"
	"github.com/james-see/scalechord/pkg/theory"
)

// ScaleParams selects a key. Names follow the config file format.
type ScaleParams struct {
	Root  string `json:"root" form:"root"`
	Scale string `json:"scale" form:"scale"`
}

func (p ScaleParams) settings() (theory.ScaleSettings, error) {
	root, err := config.ParseRoot(p.Root)
	if err != nil {
		return theory.ScaleSettings{}, err
	}
	name := p.Scale
	if name == "" {
		name = "ionian"
	}
	scale, err := config.ParseScale(name)
	if err != nil {
		return theory.ScaleSettings{}, err
	}
	return theory.ScaleSettings{RootNote: root, Scale: scale}, nil
}

// ScaleInfo describes one scale type
type ScaleInfo struct {
	ID        int    `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	Intervals []int  `json:"intervals"`
	Major     bool   `json:"major"`
}

// listScales godoc
// @Summary List scales
// @Description Returns every supported scale with its intervals
// @Tags theory
// @Produce json
// @Success 200 {object} map[string][]ScaleInfo
// @Router /api/v1/scales [get]
func listScales(c *gin.Context) {
	scales := make([]ScaleInfo, 0, theory.NumScaleTypes)
	for _, st := range theory.ScaleTypes() {
		scales = append(scales, ScaleInfo{
			ID:        int(st),
			Key:       config.ScaleName(st),
			Name:      st.String(),
			Intervals: st.Intervals(),
			Major:     st.IsMajor(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"scales": scales})
}

// MapRequest quantizes notes to a scale
type MapRequest struct {
	ScaleParams
	Notes []int `json:"notes" binding:"required"`
}

// handleMap godoc
// @Summary Quantize notes
// @Description Maps each note to the nearest note of the scale
// @Tags theory
// @Accept json
// @Produce json
// @Param request body MapRequest true "Notes and key"
// @Success 200 {object} map[string][]int
// @Failure 400 {object} map[string]string
// @Router /api/v1/map [post]
func handleMap(c *gin.Context) {
	var req MapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ss, err := req.settings()
	if err != nil {
		badRequest(c, err)
		return
	}
	m, err := theory.NewScaleMapper(ss)
	if err != nil {
		badRequest(c, err)
		return
	}
	mapped := make([]int, 0, len(req.Notes))
	for _, n := range req.Notes {
		out, err := m.MapNoteFast(n)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		mapped = append(mapped, out)
	}
	c.JSON(http.StatusOK, gin.H{
		"notes":  mapped,
		"scale":  m.ScaleSemitones(),
		"degree": degrees(m, mapped),
	})
}

func degrees(m *theory.ScaleMapper, notes []int) []int {
	st := m.Settings()
	out := make([]int, 0, len(notes))
	for _, n := range notes {
		out = append(out, st.Scale.Degree(n-st.RootNote))
	}
	return out
}

// ChordRequest builds a diatonic chord
type ChordRequest struct {
	ScaleParams
	Note         int    `json:"note"`
	Voicing      string `json:"voicing"`
	OctaveOffset int    `json:"octave_offset"`
}

// ChordResponse is a generated chord with its analysis
type ChordResponse struct {
	Input    int              `json:"input"`
	Mapped   int              `json:"mapped"`
	Chord    theory.Chord     `json:"chord"`
	Names    []string         `json:"names"`
	Analysis theory.ChordInfo `json:"analysis"`
	Roman    string           `json:"roman,omitempty"`
}

// handleChord godoc
// @Summary Build a chord
// @Description Quantizes a note and stacks a diatonic chord on it
// @Tags theory
// @Accept json
// @Produce json
// @Param request body ChordRequest true "Note, key and voicing"
// @Success 200 {object} ChordResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/chord [post]
func handleChord(c *gin.Context) {
	var req ChordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ss, err := req.settings()
	if err != nil {
		badRequest(c, err)
		return
	}
	vname := req.Voicing
	if vname == "" {
		vname = "triad"
	}
	voicing, err := config.ParseVoicing(vname)
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := theory.NewScaleMapper(ss)
	if err != nil {
		badRequest(c, err)
		return
	}
	v := theory.NewChordVoicer(m)
	if err := v.SetSettings(theory.VoicerSettings{Voicing: voicing, OctaveOffset: req.OctaveOffset}); err != nil {
		badRequest(c, err)
		return
	}
	mapped, err := m.MapNote(req.Note)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	chord := v.MakeChordFromNote(mapped)
	info := theory.NewChordAnalyzer().AnalyzeChord(chord, ss.RootNote)

	resp := ChordResponse{
		Input:    req.Note,
		Mapped:   mapped,
		Chord:    chord,
		Names:    noteNames(chord),
		Analysis: info,
	}
	if d := ss.Scale.Degree(mapped - ss.RootNote); d >= 0 && d < 7 {
		resp.Roman = theory.RomanNumeral(d, ss.Scale.IsMajor(), info.Quality)
	}
	c.JSON(http.StatusOK, resp)
}

func noteNames(notes []int) []string {
	names := make([]string, 0, len(notes))
	for _, n := range notes {
		names = append(names, theory.NoteNameOctave(n))
	}
	return names
}

// AnalyzeRequest classifies a note collection
type AnalyzeRequest struct {
	Notes     []int `json:"notes" binding:"required"`
	Key       int   `json:"key"`
	Ambiguous bool  `json:"ambiguous"`
}

// handleAnalyze godoc
// @Summary Analyze a chord
// @Description Recognizes chord quality and harmonic function
// @Tags theory
// @Accept json
// @Produce json
// @Param request body AnalyzeRequest true "Notes and key"
// @Success 200 {object} theory.ChordInfo
// @Failure 400 {object} map[string]string
// @Router /api/v1/analyze [post]
func handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a := theory.NewChordAnalyzer()
	if req.Ambiguous {
		c.JSON(http.StatusOK, gin.H{"interpretations": a.AnalyzeChordAmbiguous(req.Notes, req.Key)})
		return
	}
	info := a.AnalyzeChord(req.Notes, req.Key)
	c.JSON(http.StatusOK, gin.H{
		"analysis": info,
		"name":     info.Name(),
	})
}

// DetectScaleRequest lists pitch classes or notes to match against every scale
type DetectScaleRequest struct {
	Notes []int `json:"notes" binding:"required"`
}

// DetectScaleResponse is the best matching key
type DetectScaleResponse struct {
	Root      int    `json:"root"`
	RootName  string `json:"root_name"`
	Scale     string `json:"scale"`
	ScaleName string `json:"scale_name"`
}

func detectResponse(pcs []int) DetectScaleResponse {
	root, st := theory.DetectScale(pcs)
	return DetectScaleResponse{
		Root:      root,
		RootName:  theory.NoteName(root),
		Scale:     config.ScaleName(st),
		ScaleName: st.String(),
	}
}

// handleDetectScale godoc
// @Summary Detect a scale
// @Description Finds the root and scale covering the most input notes
// @Tags theory
// @Accept json
// @Produce json
// @Param request body DetectScaleRequest true "Notes"
// @Success 200 {object} DetectScaleResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/detect-scale [post]
func handleDetectScale(c *gin.Context) {
	var req DetectScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pcs := make([]int, 0, len(req.Notes))
	for _, n := range req.Notes {
		pcs = append(pcs, theory.PitchClass(n))
	}
	c.JSON(http.StatusOK, detectResponse(pcs))
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return i, nil
}

func queryBool(c *gin.Context, key string, def bool) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(key + " must be a boolean")
	}
	return b, nil
}

// handleSubstitutions godoc
// @Summary List substitutions
// @Description Returns substitution candidates for a scale degree
// @Tags reharm
// @Produce json
// @Param degree query int true "Scale degree 0-6"
// @Param major query bool false "Major key (default true)"
// @Success 200 {object} map[string][]theory.Substitution
// @Failure 400 {object} map[string]string
// @Router /api/v1/substitutions [get]
func handleSubstitutions(c *gin.Context) {
	degree, err := queryInt(c, "degree", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	major, err := queryBool(c, "major", true)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"degree":        degree,
		"substitutions": theory.NewJazzReharmonizer().Substitutions(degree, major),
	})
}

// ChordBody carries a single chord
type ChordBody struct {
	Chord []int `json:"chord" binding:"required"`
}

// handleTritone godoc
// @Summary Tritone substitution
// @Description Rebuilds a chord a tritone away from its first note
// @Tags reharm
// @Accept json
// @Produce json
// @Param request body ChordBody true "Chord"
// @Success 200 {object} map[string][]int
// @Failure 400 {object} map[string]string
// @Router /api/v1/tritone [post]
func handleTritone(c *gin.Context) {
	var req ChordBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sub := theory.NewJazzReharmonizer().TritoneSubstitution(req.Chord)
	c.JSON(http.StatusOK, gin.H{
		"chord": sub,
		"names": noteNames(sub),
	})
}

// handleSecondaryDominant godoc
// @Summary Secondary dominant
// @Description Returns the dominant seventh chord resolving to a scale degree
// @Tags reharm
// @Produce json
// @Param degree query int true "Target degree 0-6"
// @Param major query bool false "Major key (default true)"
// @Success 200 {object} map[string][]int
// @Failure 400 {object} map[string]string
// @Router /api/v1/secondary-dominant [get]
func handleSecondaryDominant(c *gin.Context) {
	degree, err := queryInt(c, "degree", 4)
	if err != nil {
		badRequest(c, err)
		return
	}
	major, err := queryBool(c, "major", true)
	if err != nil {
		badRequest(c, err)
		return
	}
	chord := theory.NewJazzReharmonizer().SecondaryDominant(degree, major)
	c.JSON(http.StatusOK, gin.H{
		"chord": chord,
		"names": noteNames(chord),
	})
}

// handleUpperStructure godoc
// @Summary Upper structure triad
// @Description Places a triad on upper above a bass note
// @Tags reharm
// @Produce json
// @Param root query int true "Bass MIDI note"
// @Param upper query int true "Triad root pitch class"
// @Param major query bool false "Major triad (default true)"
// @Success 200 {object} map[string][]int
// @Failure 400 {object} map[string]string
// @Router /api/v1/upper-structure [get]
func handleUpperStructure(c *gin.Context) {
	root, err := queryInt(c, "root", 48)
	if err != nil {
		badRequest(c, err)
		return
	}
	upper, err := queryInt(c, "upper", 2)
	if err != nil {
		badRequest(c, err)
		return
	}
	major, err := queryBool(c, "major", true)
	if err != nil {
		badRequest(c, err)
		return
	}
	chord := theory.NewJazzReharmonizer().UpperStructureTriad(root, upper, major)
	c.JSON(http.StatusOK, gin.H{
		"chord": chord,
		"names": noteNames(chord),
	})
}

// VoiceLeadingRequest asks for a smooth voicing of target after current
type VoiceLeadingRequest struct {
	Current []int `json:"current"`
	Target  []int `json:"target" binding:"required"`
}

// handleVoiceLeading godoc
// @Summary Voice leading
// @Description Revoices the target chord close to the current chord and scores the move
// @Tags theory
// @Accept json
// @Produce json
// @Param request body VoiceLeadingRequest true "Chords"
// @Success 200 {object} theory.VoiceLeadingResult
// @Failure 400 {object} map[string]string
// @Router /api/v1/voice-leading [post]
func handleVoiceLeading(c *gin.Context) {
	var req VoiceLeadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, theory.NewVoiceLeading().SuggestSmoothVoicing(req.Current, req.Target))
}
