package reporter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipv4intel/internal/domain"
)

func testReporter() *CallbackReporter {
	r := NewCallbackReporter(time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.backoff = func(int) time.Duration { return time.Millisecond }
	return r
}

func TestReportBatch_Delivers(t *testing.T) {
	var got domain.BatchResult
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	result := domain.BatchResult{
		BatchID: "b-1",
		Reports: []domain.Report{{IP: "8.8.8.8"}},
	}
	require.NoError(t, testReporter().ReportBatch(context.Background(), srv.URL, result))

	assert.Equal(t, "b-1", got.BatchID)
	require.Len(t, got.Reports, 1)
	assert.Equal(t, "8.8.8.8", got.Reports[0].IP)
}

func TestReportBatch_RetriesThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testReporter().ReportBatch(context.Background(), srv.URL, domain.BatchResult{BatchID: "b-2"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestReportBatch_GivesUp(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testReporter().ReportBatch(context.Background(), srv.URL, domain.BatchResult{BatchID: "b-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}
