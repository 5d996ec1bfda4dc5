// Package server - Haupt-Router und Handler fuer den GQCNN-Server
// Beinhaltet: Server-Struct, Router-Registrierung, CORS-Middleware, Handler
package server

import (
	"errors"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/moliushang/gqcnn/api"
	"github.com/moliushang/gqcnn/config"
	"github.com/moliushang/gqcnn/envconfig"
	"github.com/moliushang/gqcnn/registry"
	"github.com/moliushang/gqcnn/version"
)

var mode string = gin.ReleaseMode

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.ReleaseMode
	}

	gin.SetMode(mode)
}

// Server verwaltet den HTTP-Server und die Architektur-Registry.
type Server struct {
	addr  net.Addr
	store *registry.Store
}

// NewServer erstellt einen Server ueber einer geoeffneten Registry.
func NewServer(store *registry.Store) *Server {
	return &Server{store: store}
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() (http.Handler, error) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(cors.New(corsConfig))

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "GQCNN compiler is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "GQCNN compiler is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	// Kompilieren und Validieren
	r.POST("/api/compile", s.CompileHandler)
	r.POST("/api/validate", s.ValidateHandler)

	// Registry
	r.HEAD("/api/architectures", s.ListHandler)
	r.GET("/api/architectures", s.ListHandler)
	r.GET("/api/architectures/:name", s.ShowHandler)
	r.DELETE("/api/architectures/:name", s.DeleteHandler)

	return r, nil
}

// CompileHandler kompiliert eine YAML-Konfiguration und registriert das
// Kompilat optional unter einem Namen.
func (s *Server) CompileHandler(c *gin.Context) {
	var req api.CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Config == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing config"})
		return
	}

	cfg, err := config.Parse([]byte(req.Config))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	graph, err := cfg.Compile()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := api.CompileResponse{Graph: graph, OutputSize: graph.OutputSize}
	if req.Save {
		if req.Name == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "save requires a name"})
			return
		}
		rec := &registry.Record{
			Name:        req.Name,
			GripperMode: cfg.GQCNN.GripperMode,
			OutputSize:  graph.OutputSize,
			Source:      []byte(req.Config),
			Graph:       graph,
		}
		if err := s.store.Save(rec); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp.ID = rec.ID
		resp.Name = rec.Name
	}
	c.JSON(http.StatusOK, resp)
}

// ValidateHandler prueft eine Konfiguration strukturell. Strukturfehler
// sind hier keine HTTP-Fehler; die Antwort lokalisiert die Fundstelle.
func (s *Server) ValidateHandler(c *gin.Context) {
	var req api.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Config == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing config"})
		return
	}

	cfg, err := config.Parse([]byte(req.Config))
	if err == nil {
		_, err = cfg.Compile()
	}
	if err != nil {
		c.JSON(http.StatusOK, api.ValidateResponse{Valid: false, Error: api.DetailFromError(err)})
		return
	}
	c.JSON(http.StatusOK, api.ValidateResponse{Valid: true})
}

// ListHandler liefert alle registrierten Architekturen, neueste zuerst.
func (s *Server) ListHandler(c *gin.Context) {
	records, err := s.store.List()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Leere Registry liefert eine leere Liste, kein null.
	summaries := make([]api.ArchitectureSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(&rec))
	}
	c.JSON(http.StatusOK, api.ListResponse{Architectures: summaries})
}

// ShowHandler liefert eine registrierte Architektur samt Kompilat.
func (s *Server) ShowHandler(c *gin.Context) {
	rec, err := s.store.Get(c.Param("name"))
	if errors.Is(err, registry.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, api.ShowResponse{
		ArchitectureSummary: summarize(rec),
		Graph:               rec.Graph,
	})
}

// DeleteHandler entfernt eine registrierte Architektur.
func (s *Server) DeleteHandler(c *gin.Context) {
	err := s.store.Delete(c.Param("name"))
	if errors.Is(err, registry.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

func summarize(rec *registry.Record) api.ArchitectureSummary {
	return api.ArchitectureSummary{
		ID:          rec.ID,
		Name:        rec.Name,
		CreatedAt:   rec.CreatedAt,
		GripperMode: rec.GripperMode,
		OutputSize:  rec.OutputSize,
	}
}
