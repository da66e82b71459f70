package api

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/store"
)

var errStorageDisabled = errors.New("report storage disabled")

func (s *Server) requireStore(c *gin.Context) bool {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errStorageDisabled)
		return false
	}
	return true
}

func reportQuery(c *gin.Context) store.ReportQuery {
	minScore, _ := strconv.Atoi(firstNonEmpty(c.Query("min_score"), c.Query("minScore")))
	return store.ReportQuery{
		Grade:        c.Query("grade"),
		ContractType: firstNonEmpty(c.Query("type"), c.Query("contract_type")),
		MinScore:     minScore,
		Sort:         c.Query("sort"),
	}
}

func (s *Server) handleListReports(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	query := reportQuery(c)
	query.Offset, query.Limit = parsePaging(c)

	rows, total, err := s.db.ListReports(query)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]ReportSummaryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.JSON(http.StatusOK, ReportsResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetReport(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	rec, err := s.db.GetReport(c.Param("id"))
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	report, err := rec.Report()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	id := c.Param("id")
	if err := s.db.DeleteReport(id); err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleReportStats(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	var resp StatsResponse
	var g errgroup.Group
	g.Go(func() error {
		grades, err := s.db.GradeCounts()
		resp.Grades = grades
		return err
	})
	g.Go(func() error {
		ruleStats, err := s.db.RuleStats(limit)
		resp.Rules = ruleStats
		return err
	})
	if err := g.Wait(); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	rows, _, err := s.db.ListReports(reportQuery(c))
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=contract-risk-export.csv")
	c.Header("Content-Type", "text/csv")

	writer := csv.NewWriter(c.Writer)
	headers := []string{"id", "created_at", "contract_type", "score_total", "grade", "risk_count", "ai_enabled", "processing_time_ms", "risk_titles", "summary"}
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range rows {
		dto := FromModel(row)
		line := []string{
			dto.ID,
			dto.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			dto.ContractType,
			strconv.Itoa(dto.ScoreTotal),
			dto.Grade,
			strconv.Itoa(dto.RiskCount),
			strconv.FormatBool(dto.AIEnabled),
			strconv.FormatInt(dto.ProcessingTimeMs, 10),
			strings.Join(riskTitles(row), "|"),
			dto.Summary,
		}
		if err := writer.Write(line); err != nil {
			return
		}
	}
	writer.Flush()
}

func (s *Server) handleExportJSON(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	rows, _, err := s.db.ListReports(reportQuery(c))
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	reports := make([]*analysis.Report, 0, len(rows))
	for _, row := range rows {
		report, err := row.Report()
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, err)
			return
		}
		reports = append(reports, report)
	}
	c.Header("Content-Disposition", "attachment; filename=contract-risk-export.json")
	c.JSON(http.StatusOK, reports)
}

func (s *Server) renderStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, err)
		return
	}
	s.renderError(c, http.StatusInternalServerError, err)
}

func riskTitles(row store.ReportRecord) []string {
	report, err := row.Report()
	if err != nil {
		return nil
	}
	titles := make([]string, 0, len(report.Risks))
	for _, r := range report.Risks {
		titles = append(titles, r.Title)
	}
	return titles
}
