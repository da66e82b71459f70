package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/store"
	"contract-risk-eval/internal/upstream"
)

// DefaultMaxUploadBytes bounds request bodies, uploads included.
const DefaultMaxUploadBytes int64 = 50 << 20

var errTooLarge = errors.New("Fichier trop volumineux (maximum 50 Mo).")

// Config defines server dependencies.
type Config struct {
	DBPath         string
	SilentDB       bool
	AllowedOrigins []string
	Engine         *analysis.Engine
	Upstream       *upstream.Client
	AIProvider     string
	MaxUploadBytes int64
	MaxBatchItems  int
}

// Server wires HTTP handlers with the analysis engine and persistence.
type Server struct {
	db             *store.Database
	engine         *analysis.Engine
	upstream       *upstream.Client
	allowedOrigins []string
	aiProvider     string
	notifier       *AnalysisNotifier
	maxUpload      int64
	maxBatchItems  int
}

// NewServer constructs the API server. An empty DBPath disables report storage.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("analysis engine required")
	}

	var db *store.Database
	if strings.TrimSpace(cfg.DBPath) == "" {
		logrus.Info("report storage disabled - no database path configured")
	} else {
		opened, err := store.Open(cfg.DBPath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
		db = opened
	}

	client := cfg.Upstream
	if client == nil {
		client = upstream.NewClient(upstream.Config{})
	}

	server := &Server{
		db:             db,
		engine:         cfg.Engine,
		upstream:       client,
		allowedOrigins: cfg.AllowedOrigins,
		aiProvider:     cfg.AIProvider,
		notifier:       NewAnalysisNotifier(),
		maxUpload:      cfg.MaxUploadBytes,
		maxBatchItems:  cfg.MaxBatchItems,
	}
	if server.maxUpload <= 0 {
		server.maxUpload = DefaultMaxUploadBytes
	}
	if server.maxBatchItems <= 0 {
		server.maxBatchItems = 100
	}
	return server, nil
}

// Close releases the report store.
func (s *Server) Close() error {
	return s.db.Close()
}

// Notifier exposes the websocket broadcaster.
func (s *Server) Notifier() *AnalysisNotifier {
	return s.notifier
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = 8 << 20

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsCfg.ExposeHeaders = []string{"Content-Disposition"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/analyze", s.limitBody, s.handleAnalyze)
		api.POST("/analyze/batch", s.limitBody, s.handleAnalyzeBatch)
		api.GET("/analyze/stream", s.handleAnalyzeStream)
		api.GET("/rules", s.handleListRules)

		api.GET("/reports", s.handleListReports)
		api.GET("/reports/stats", s.handleReportStats)
		api.GET("/reports/export.csv", s.handleExportCSV)
		api.GET("/reports/export.json", s.handleExportJSON)
		api.GET("/reports/:id", s.handleGetReport)
		api.DELETE("/reports/:id", s.handleDeleteReport)

		api.POST("/ai-analyze", s.limitBody, s.handleProxyAnalyze)
		api.GET("/ai-analyze", s.handleProxyStatus)
		api.POST("/ai-analyze-text", s.limitBody, s.handleProxyAnalyzeText)
		api.POST("/ai-extract-text", s.limitBody, s.handleProxyExtractText)
		api.POST("/ai-upload-analyze", s.limitBody, s.handleProxyUploadAnalyze)
		api.POST("/export-pdf", s.limitBody, s.handleProxyExportPDF)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories":       s.engine.Catalog.Categories(),
		"default_type":     analysis.DefaultContractType,
		"ai_enabled":       s.engine.AIAvailable(),
		"ai_provider":      s.aiProvider,
		"ai_service_url":   s.upstream.BaseURL(),
		"storage_enabled":  s.db != nil,
		"max_upload_bytes": s.maxUpload,
		"report_version":   analysis.ReportVersion,
	})
}

func (s *Server) handleListRules(c *gin.Context) {
	catalog := s.engine.Catalog
	categories := catalog.Categories()
	if value := strings.TrimSpace(c.Query("type")); value != "" {
		categories = []string{catalog.Resolve(value)}
	}

	items := make([]RuleDTO, 0)
	for _, category := range categories {
		for _, rule := range catalog.Rules(category) {
			items = append(items, FromRule(category, rule))
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// limitBody caps the request body so oversized uploads fail while reading.
func (s *Server) limitBody(c *gin.Context) {
	if c.Request.ContentLength > s.maxUpload {
		s.renderError(c, http.StatusRequestEntityTooLarge, errTooLarge)
		c.Abort()
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	c.Next()
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		entry := logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func parsePaging(c *gin.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}
	return page * pageSize, pageSize
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
