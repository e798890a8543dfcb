// Package api provides the REST API server for scalechord
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/scalechord/pkg/render"
)

// @title ScaleChord API
// @version 1.0
// @description Scale quantization, chord generation, analysis and reharmonization
// @host localhost:8080
// @BasePath /api/v1

// Server holds the API state: live engine sessions and a MIDI renderer
type Server struct {
	logger   *slog.Logger
	renderer *render.Renderer

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewServer creates a server. A nil logger uses slog.Default.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:   logger,
		renderer: render.NewRenderer(),
		sessions: make(map[uuid.UUID]*session),
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/scales", listScales)
		v1.POST("/map", handleMap)
		v1.POST("/chord", handleChord)
		v1.POST("/analyze", handleAnalyze)
		v1.POST("/detect-scale", handleDetectScale)
		v1.POST("/detect-scale/midi", s.handleDetectScaleMIDI)
		v1.GET("/substitutions", handleSubstitutions)
		v1.POST("/tritone", handleTritone)
		v1.GET("/secondary-dominant", handleSecondaryDominant)
		v1.GET("/upper-structure", handleUpperStructure)
		v1.POST("/voice-leading", handleVoiceLeading)
		v1.POST("/render", s.handleRender)
		v1.POST("/progression", s.handleProgression)

		sessions := v1.Group("/sessions")
		sessions.POST("", s.createSession)
		sessions.GET("/:id", s.getSession)
		sessions.PUT("/:id/settings", s.updateSession)
		sessions.POST("/:id/events", s.sendEvents)
		sessions.DELETE("/:id", s.deleteSession)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int, logger *slog.Logger) error {
	return NewServer(logger).Router().Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scalechord",
	})
}
