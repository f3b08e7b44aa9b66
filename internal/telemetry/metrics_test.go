package telemetry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/wdm0006/jsjanitor/pkg/janitor"
	"github.com/wdm0006/jsjanitor/pkg/transform/script"
)

func counterValue(t *testing.T, m *Metrics, stage, status string) float64 {
	t.Helper()
	out := &dto.Metric{}
	if err := m.rows.WithLabelValues(stage, status).Write(out); err != nil {
		t.Fatal(err)
	}
	return out.GetCounter().GetValue()
}

func TestObserveRow(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveRow("js", time.Millisecond, nil)
	m.ObserveRow("js", time.Millisecond, errors.New("boom"))
	m.ObserveRow("js", time.Millisecond, &script.RuntimeError{Err: fmt.Errorf("%w: deadline", script.ErrInterrupted)})
	m.ObserveRow("js", time.Millisecond, nil)

	if v := counterValue(t, m, "js", StatusOK); v != 2 {
		t.Fatalf("ok = %v", v)
	}
	if v := counterValue(t, m, "js", StatusFailed); v != 1 {
		t.Fatalf("failed = %v", v)
	}
	if v := counterValue(t, m, "js", StatusInterrupted); v != 1 {
		t.Fatalf("interrupted = %v", v)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	f := janitor.NewFrame(janitor.Schema{})
	f.AppendNullRow()
	m.ObserveChunk(f)
	m.ObserveRow("js", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"jsjanitor_chunks_total 1", "jsjanitor_rows_total 1", `jsjanitor_script_rows_total{stage="js",status="ok"} 1`, "jsjanitor_script_eval_seconds_count"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestPush(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		paths <- r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveRow("js", time.Millisecond, nil)
	if err := m.Push(srv.URL, "jsjanitor", "abc"); err != nil {
		t.Fatal(err)
	}
	if p := <-paths; !strings.Contains(p, "/job/jsjanitor") || !strings.Contains(p, "/run/abc") {
		t.Fatalf("push path %q", p)
	}
	if err := m.Push("", "jsjanitor", ""); err == nil {
		t.Fatal("expected error for empty gateway")
	}
}
