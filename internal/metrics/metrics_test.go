package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ClipFinished(true, false)
	m.ClipFinished(true, false)
	m.ClipFinished(false, true)
	m.StageFailed("burn")
	m.FaceSamples(7, 3)

	if got := testutil.ToFloat64(m.ClipsTotal.WithLabelValues("true", "false")); got != 2 {
		t.Fatalf("clips{cropped=true,subtitled=false} = %v", got)
	}
	if got := testutil.ToFloat64(m.ClipFailuresTotal.WithLabelValues("burn")); got != 1 {
		t.Fatalf("failures{burn} = %v", got)
	}
	if got := testutil.ToFloat64(m.FaceSamplesTotal.WithLabelValues("none")); got != 3 {
		t.Fatalf("face samples{none} = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveTranscoder("render", 1500*time.Millisecond, nil)
	path := filepath.Join(t.TempDir(), "hlfinish.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `hlfinish_transcoder_duration_seconds_count{op="render"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", b)
	}
	if n := testutil.CollectAndCount(m.TranscoderDuration); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}
