package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/util"
)

type batchJob struct {
	index int
	item  BatchItem
}

func (s *Server) handleAnalyzeBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, errInvalidBody)
		return
	}
	if len(req.Items) == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("items are required"))
		return
	}
	if len(req.Items) > s.maxBatchItems {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("too many items: %d (max %d)", len(req.Items), s.maxBatchItems))
		return
	}

	resp := s.runBatch(c.Request.Context(), req.Items, s.wantsAI(req.EnableAI))
	c.JSON(http.StatusOK, resp)
}

// runBatch analyses items on a bounded worker pool. Results keep request order.
func (s *Server) runBatch(ctx context.Context, items []BatchItem, enableAI bool) BatchResponse {
	timer := util.StartTimer()
	jobID := uuid.NewString()
	results := make([]BatchResult, len(items))

	jobs := make(chan batchJob)
	var wg sync.WaitGroup
	var mu sync.Mutex
	processed := 0

	workers := determineWorkerCount()
	if workers > len(items) {
		workers = len(items)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := s.analyzeBatchItem(ctx, jobID, job, enableAI)
				results[job.index] = result

				mu.Lock()
				processed++
				done := processed
				mu.Unlock()
				s.notifier.Broadcast(AnalysisEvent{
					Type:      EventProgress,
					RequestID: jobID,
					ReportID:  reportID(result),
					Total:     len(items),
					Processed: done,
				})
			}
		}()
	}

feed:
	for i, item := range items {
		select {
		case <-ctx.Done():
			for j := i; j < len(items); j++ {
				results[j] = BatchResult{Index: j, Name: items[j].Name, Error: ctx.Err().Error()}
			}
			break feed
		case jobs <- batchJob{index: i, item: item}:
		}
	}
	close(jobs)
	wg.Wait()

	resp := BatchResponse{JobID: jobID, Items: results}
	for _, r := range results {
		switch {
		case r.Report != nil:
			resp.Succeeded++
		case r.Kind != "":
			resp.Rejected++
		}
	}
	resp.ElapsedMs = timer.ElapsedMs()

	logrus.WithFields(logrus.Fields{
		"job":       jobID,
		"items":     len(items),
		"succeeded": resp.Succeeded,
		"rejected":  resp.Rejected,
		"workers":   workers,
		"duration":  timer.Elapsed(),
	}).Info("batch analysis completed")
	return resp
}

func (s *Server) analyzeBatchItem(ctx context.Context, jobID string, job batchJob, enableAI bool) BatchResult {
	result := BatchResult{Index: job.index, Name: job.item.Name}
	if strings.TrimSpace(job.item.Text) == "" {
		result.Error = errNoText.Error()
		return result
	}
	requestID := fmt.Sprintf("%s-%d", jobID, job.index)
	report, err := s.analyze(ctx, requestID, job.item.Text, analysis.Config{
		ContractType: job.item.ContractType,
		EnableAI:     enableAI,
	})
	if err != nil {
		var rejection *analysis.RejectionError
		if errors.As(err, &rejection) {
			result.Kind = rejection.Kind
		}
		result.Error = err.Error()
		return result
	}
	result.Report = report
	return result
}

func reportID(r BatchResult) string {
	if r.Report == nil {
		return ""
	}
	return r.Report.ID
}

func determineWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 12 {
		workers = 12
	}
	return workers
}
