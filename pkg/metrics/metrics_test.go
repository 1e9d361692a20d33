package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveRequest("claude", "SUPPORTIVE_PROCESSING", 100, 20, true, "", 50*time.Millisecond)
	r.ObserveRequest("claude", "SUPPORTIVE_PROCESSING", 0, 0, false, "timeout", time.Second)
	r.IncCrisis("critical")
	r.IncGateBlocked()
	r.IncExerciseEvent(ExerciseCompleted)
	r.IncInvalidTransition("INIT", "EXERCISE_FACILITATION")
	r.ObserveTurn("SUPPORTIVE_PROCESSING", time.Second)

	assert.InDelta(t, 100, testutil.ToFloat64(r.tokensTotal.WithLabelValues("claude", "SUPPORTIVE_PROCESSING", "prompt")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.requestsTotal.WithLabelValues("claude", "SUPPORTIVE_PROCESSING", "error", "timeout")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.crisisTotal.WithLabelValues("critical")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.gateBlockedTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.exerciseEvents.WithLabelValues(ExerciseCompleted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.invalidTransitions.WithLabelValues("INIT", "EXERCISE_FACILITATION")), 0)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusRecorder(prometheus.NewRegistry())
		NewPrometheusRecorder(prometheus.NewRegistry())
	})
	assert.NotNil(t, NewRegistry())
}

func TestNopRecorder(t *testing.T) {
	r := Nop()
	assert.NotPanics(t, func() {
		r.ObserveRequest("m", "s", 1, 1, true, "", time.Second)
		r.IncCrisis("high")
		r.IncGateBlocked()
	})
}

// fakePrometheus answers instant queries with a fixed value per query prefix.
func fakePrometheus(t *testing.T, values map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.FormValue("query")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(query, "group by") {
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[`+
				`{"metric":{"model":"claude-sonnet"},"value":[1700000000,"1"]}]}}`)
			return
		}
		for prefix, v := range values {
			if strings.Contains(query, prefix) {
				fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"%s"]}]}}`, v)
				return
			}
		}
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
	}))
}

func TestQueryServiceSummary(t *testing.T) {
	srv := fakePrometheus(t, map[string]string{
		`type="prompt"`:     "300",
		`type="completion"`: "120",
		`status="error"`:    "2",
		`status=~`:          "10",
		"crisis_detections": "1",
		"exercise_events":   "4",
	})
	defer srv.Close()

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	s, err := q.GetUsageSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(300), s.PromptTokens)
	assert.Equal(t, int64(420), s.TotalTokens)
	assert.Equal(t, int64(10), s.Requests)
	assert.Equal(t, int64(2), s.FailedRequests)
	assert.Equal(t, int64(1), s.CrisisDetections)
	assert.Equal(t, int64(4), s.ExercisesCompleted)

	byModel, err := q.GetUsageByModel(context.Background())
	require.NoError(t, err)
	require.Contains(t, byModel, "claude-sonnet")
	assert.Equal(t, int64(120), byModel["claude-sonnet"].CompletionTokens)
	assert.Zero(t, byModel["claude-sonnet"].CrisisDetections)
}
