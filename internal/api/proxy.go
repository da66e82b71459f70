package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"contract-risk-eval/internal/upstream"
)

type proxyAnalyzeRequest struct {
	Text         string `json:"text"`
	ContractType string `json:"contract_type"`
}

func (s *Server) handleProxyAnalyze(c *gin.Context) {
	var req proxyAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Text == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("Text is required"))
		return
	}
	raw, err := s.upstream.Analyze(c.Request.Context(), req.Text, req.ContractType)
	if err != nil {
		s.renderUpstreamError(c, "Analysis failed", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) handleProxyStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "ai-analyze-proxy",
		"backend":  s.upstream.BaseURL(),
		"upstream": s.upstream.Health(c.Request.Context()),
	})
}

func (s *Server) handleProxyAnalyzeText(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.renderBodyError(c, err)
		return
	}
	raw, err := s.upstream.AnalyzeText(c.Request.Context(), body)
	if err != nil {
		s.renderUpstreamError(c, "Analysis Failed", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) handleProxyExtractText(c *gin.Context) {
	stream, err := s.upstream.ExtractText(c.Request.Context(), c.Request.Body, c.GetHeader("Content-Type"))
	if err != nil {
		s.renderUpstreamError(c, "OCR Failed", err)
		return
	}
	defer stream.Body.Close()

	c.Header("Content-Type", stream.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	buf := make([]byte, 32<<10)
	for {
		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				return
			}
			c.Writer.Flush()
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				logrus.WithError(readErr).Warn("extract-text stream interrupted")
			}
			return
		}
	}
}

func (s *Server) handleProxyUploadAnalyze(c *gin.Context) {
	raw, err := s.upstream.AnalyzeFile(c.Request.Context(), c.Request.Body, c.GetHeader("Content-Type"))
	if err != nil {
		s.renderUpstreamError(c, "Server Analysis Failed", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) handleProxyExportPDF(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.renderBodyError(c, err)
		return
	}
	doc, err := s.upstream.ExportPDF(c.Request.Context(), body)
	if err != nil {
		s.renderUpstreamError(c, "PDF generation failed", err)
		return
	}
	c.Header("Content-Disposition", doc.ContentDisposition)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// renderUpstreamError forwards the AI service failure with its mapped status.
func (s *Server) renderUpstreamError(c *gin.Context, label string, err error) {
	status := upstream.HTTPStatus(err)
	payload := gin.H{"error": label}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		payload["details"] = statusErr.Body
	} else {
		payload["details"] = err.Error()
	}
	if guidance := upstream.GuidanceFor(err); guidance.Message != "" {
		payload["message"] = guidance.Message
		payload["suggestions"] = guidance.Suggestions
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": status,
	}).Warn("ai service request failed")
	c.JSON(status, payload)
}

func (s *Server) renderBodyError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.renderError(c, http.StatusRequestEntityTooLarge, errTooLarge)
		return
	}
	s.renderError(c, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
}
