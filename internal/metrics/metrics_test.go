package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.RunStarted()
	r.Step(0.1, time.Millisecond)
	r.Step(0.2, time.Millisecond)
	r.RunCompleted()
	r.Risk("Lung Cancer", 42.5)

	if got := testutil.ToFloat64(r.steps); got != 2 {
		t.Fatalf("expected 2 steps, got %v", got)
	}
	if got := testutil.ToFloat64(r.simTime); got != 0.2 {
		t.Fatalf("expected sim time 0.2, got %v", got)
	}
	if got := testutil.ToFloat64(r.risk.WithLabelValues("Lung Cancer")); got != 42.5 {
		t.Fatalf("expected risk gauge 42.5, got %v", got)
	}

	r.Reset()
	if got := testutil.ToFloat64(r.simTime); got != 0 {
		t.Fatalf("expected sim time reset, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RunStarted()
	r.Step(1, time.Second)
	r.Risk("x", 1)
	r.Reset()
	r.RunCompleted()
	if r.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRecorder()
	r.Step(0.1, time.Microsecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), "omicsim_steps_total 1") {
		t.Fatalf("expected steps counter in output, got:\n%s", body)
	}
}
