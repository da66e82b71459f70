package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/upstream"
)

var (
	errNoFile      = errors.New("No file provided")
	errNoText      = errors.New("No text extracted.")
	errInvalidBody = errors.New("Invalid request body")
	errInvalidForm = errors.New("Invalid Form Data")
	errNotUTF8     = errors.New("Le fichier texte doit être encodé en UTF-8.")
)

const codeUnsupportedFormat = "UNSUPPORTED_FORMAT"

// analyzeInput is the normalized content of an analyze request.
type analyzeInput struct {
	text         string
	contractType string
	enableAI     *bool
}

// unsupportedFormatError reports an upload that needs the external extractor.
type unsupportedFormatError struct {
	filename string
}

func (e *unsupportedFormatError) Error() string {
	return fmt.Sprintf("format de fichier non pris en charge: %s", e.filename)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	input, err := s.readAnalyzeInput(c)
	if err != nil {
		var unsupported *unsupportedFormatError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &unsupported):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":       codeUnsupportedFormat,
				"message":     "Seuls les fichiers texte (.txt) sont analysés directement. Les PDF, DOCX et images passent par l'extraction IA.",
				"text":        "",
				"suggestions": upstream.Suggestions,
			})
		case errors.As(err, &tooLarge):
			s.renderError(c, http.StatusRequestEntityTooLarge, errTooLarge)
		default:
			s.renderError(c, http.StatusBadRequest, err)
		}
		return
	}

	if strings.TrimSpace(input.text) == "" {
		s.renderError(c, http.StatusUnprocessableEntity, errNoText)
		return
	}

	report, err := s.analyze(c.Request.Context(), uuid.NewString(), input.text, analysis.Config{
		ContractType: input.contractType,
		EnableAI:     s.wantsAI(input.enableAI),
	})
	if err != nil {
		var rejection *analysis.RejectionError
		if errors.As(err, &rejection) {
			c.JSON(http.StatusBadRequest, gin.H{"error": rejection.Error(), "kind": rejection.Kind})
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Success: true,
		Data:    report,
		Text:    input.text,
		Message: "Analysis successful",
	})
}

// analyze runs the engine, publishes progress on the websocket and stores the
// report. Storage failures are logged and never fail the analysis.
func (s *Server) analyze(ctx context.Context, requestID, text string, cfg analysis.Config) (*analysis.Report, error) {
	s.notifier.Broadcast(AnalysisEvent{
		Type:         EventStarted,
		RequestID:    requestID,
		ContractType: cfg.ContractType,
	})

	report, err := s.engine.Analyze(ctx, text, cfg)
	if err != nil {
		var rejection *analysis.RejectionError
		if errors.As(err, &rejection) {
			s.notifier.Broadcast(AnalysisEvent{
				Type:      EventRejected,
				RequestID: requestID,
				Message:   rejection.Error(),
			})
		}
		return nil, err
	}

	if s.db != nil {
		if err := s.db.SaveReport(report); err != nil {
			logrus.WithError(err).WithField("report_id", report.ID).Warn("save report")
		}
	}

	score := report.Score.Total
	s.notifier.Broadcast(AnalysisEvent{
		Type:         EventCompleted,
		RequestID:    requestID,
		ReportID:     report.ID,
		ContractType: report.ContractType,
		Score:        &score,
		Grade:        report.Score.Grade,
		RiskCount:    len(report.Risks),
		Message:      report.Summary,
	})
	return report, nil
}

// wantsAI enables the extractor when configured unless the caller opted out.
func (s *Server) wantsAI(requested *bool) bool {
	if !s.engine.AIAvailable() {
		return false
	}
	if requested == nil {
		return true
	}
	return *requested
}

func (s *Server) readAnalyzeInput(c *gin.Context) (analyzeInput, error) {
	contentType := c.ContentType()
	if contentType == "multipart/form-data" {
		return s.readMultipartInput(c)
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return analyzeInput{}, err
		}
		return analyzeInput{}, errInvalidBody
	}
	return analyzeInput{text: req.Text, contractType: req.ContractType, enableAI: req.EnableAI}, nil
}

func (s *Server) readMultipartInput(c *gin.Context) (analyzeInput, error) {
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return analyzeInput{}, err
		case errors.Is(err, http.ErrMissingFile):
			return analyzeInput{}, errNoFile
		default:
			return analyzeInput{}, errInvalidForm
		}
	}
	if header.Size > s.maxUpload {
		return analyzeInput{}, &http.MaxBytesError{Limit: s.maxUpload}
	}
	if !isPlainText(header) {
		return analyzeInput{}, &unsupportedFormatError{filename: header.Filename}
	}

	text, err := readFormFile(header)
	if err != nil {
		return analyzeInput{}, err
	}

	input := analyzeInput{
		text:         text,
		contractType: c.PostForm("contract_type"),
	}
	if raw := strings.TrimSpace(c.PostForm("enable_ai")); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			input.enableAI = &parsed
		}
	}
	return input, nil
}

func isPlainText(header *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(header.Filename), ".txt") {
		return true
	}
	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	return strings.HasPrefix(contentType, "text/plain")
}

func readFormFile(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errNotUTF8
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
