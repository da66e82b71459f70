package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeForwardsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bail", body["text"])
		assert.Equal(t, "auto", body["contract_type"])
		_, _ = w.Write([]byte(`{"summary":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"})
	raw, err := client.Analyze(context.Background(), "bail", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"ok"}`, string(raw))
}

func TestStatusErrorForwarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("bad contract\n"))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).AnalyzeText(context.Background(), []byte(`{}`))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Status)
	assert.Equal(t, "bad contract", statusErr.Body)
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: server.URL, AnalyzeTimeout: 50 * time.Millisecond})
	_, err := client.Analyze(context.Background(), "bail", "housing")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(err))
	assert.NotEmpty(t, GuidanceFor(err).Message)
}

func TestUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: url})
	_, err := client.Analyze(context.Background(), "bail", "housing")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))
	assert.Equal(t, Suggestions, GuidanceFor(err).Suggestions)

	health := client.Health(context.Background())
	assert.False(t, health.Reachable)
}

func TestRetryOnTooManyRequests(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, RetryBackoff: time.Millisecond})
	raw, err := client.AnalyzeText(context.Background(), []byte(`{"text":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestExtractTextStreams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract-text", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		_, _ = w.Write([]byte("{\"progress\":50}\n{\"text\":\"bail\"}\n"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	stream, err := client.ExtractText(context.Background(), strings.NewReader("--x--"), "multipart/form-data; boundary=x")
	require.NoError(t, err)
	defer stream.Body.Close()

	data, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/x-ndjson", stream.ContentType)
	assert.Equal(t, "{\"progress\":50}\n{\"text\":\"bail\"}\n", string(data))
}

func TestExportPDF(t *testing.T) {
	cases := []struct {
		name        string
		disposition string
		expected    string
	}{
		{name: "upstream header", disposition: "attachment; filename=rapport_analyse_housing.pdf", expected: "attachment; filename=rapport_analyse_housing.pdf"},
		{name: "default header", disposition: "", expected: "attachment; filename=report.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.disposition != "" {
					w.Header().Set("Content-Disposition", tc.disposition)
				}
				w.Header().Set("Content-Type", "application/pdf")
				_, _ = w.Write([]byte("%PDF-1.4"))
			}))
			defer server.Close()

			doc, err := NewClient(Config{BaseURL: server.URL}).ExportPDF(context.Background(), []byte(`{}`))
			require.NoError(t, err)
			assert.Equal(t, "%PDF-1.4", string(doc.Data))
			assert.Equal(t, tc.expected, doc.ContentDisposition)
		})
	}
}

func TestHealthIsCached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"status":"ok","service":"ai-contract-analysis","version":"1.0.0"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, HealthTTL: time.Minute})
	first := client.Health(context.Background())
	second := client.Health(context.Background())

	assert.True(t, first.Reachable)
	assert.Equal(t, "ok", first.Status)
	assert.Equal(t, "1.0.0", second.Version)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(&StatusError{Status: http.StatusBadGateway}))
	assert.Empty(t, GuidanceFor(errors.New("boom")).Message)
}
