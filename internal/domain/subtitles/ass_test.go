package subtitles

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/hlfinish/internal/types"
)

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
	if got := assTime(3*time.Hour + 5*time.Second); got != "3:00:05.00" {
		t.Fatalf("unexpected assTime: %s", got)
	}
	if got := assTime(-time.Second); got != "0:00:00.00" {
		t.Fatalf("negative time should clamp, got %s", got)
	}
}

func TestAssTime_RoundTrip(t *testing.T) {
	for _, sec := range []float64{0, 0.333, 2, 59.999, 61.234, 3599.5, 3725.01} {
		d := dur(sec)
		back := parseASSTime(t, assTime(d))
		if math.Abs(back.Seconds()-sec) > 0.011 {
			t.Fatalf("round trip %v -> %s -> %v", sec, assTime(d), back.Seconds())
		}
	}
}

func parseASSTime(t *testing.T, s string) time.Duration {
	t.Helper()
	var h, m, sec, cs int
	if _, err := fmt.Sscanf(s, "%d:%d:%d.%d", &h, &m, &sec, &cs); err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second + time.Duration(cs)*10*time.Millisecond
}

func TestInlineColor(t *testing.T) {
	tests := map[string]string{
		"&H0033CC00&": "&H33CC00&",
		"&HFF000000&": "&H000000&",
		"&H00FF00&":   "&H00FF00&",
	}
	for in, want := range tests {
		if got := inlineColor(in); got != want {
			t.Fatalf("inlineColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	if got := formatFloat(2); got != "2.0" {
		t.Fatalf("formatFloat(2) = %q", got)
	}
	if got := formatFloat(2.5); got != "2.5" {
		t.Fatalf("formatFloat(2.5) = %q", got)
	}
}

func TestAllahMahaBesar_WordByWord(t *testing.T) {
	segs := ExtractWindow([]types.Segment{
		{Start: 10, End: 13, Text: "Allah Maha Besar"},
	}, types.ClipWindow{StartSec: 8, EndSec: 30}, DefaultOverlapTolerance)
	if len(segs) != 1 || segs[0].Start != 2 || segs[0].End != 5 {
		t.Fatalf("unexpected rebased segments: %+v", segs)
	}

	words := CollectWords(segs, true)
	st, _ := ResolveStyle(nil, StyleRequest{VideoWidth: 1080, VideoHeight: 1920})
	st.Mode = ModeWordByWord
	events := Synthesize(words, st)

	want := []struct {
		start, end time.Duration
		word       string
	}{
		{2 * time.Second, 3 * time.Second, "Allah"},
		{3 * time.Second, 4 * time.Second, "Maha"},
		{4 * time.Second, 5 * time.Second, "Besar"},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, w := range want {
		ev := events[i]
		if ev.Start != w.start || ev.End != w.end {
			t.Fatalf("event %d spans %v-%v, want %v-%v", i, ev.Start, ev.End, w.start, w.end)
		}
		if !strings.HasSuffix(ev.Text, "}"+w.word) || !strings.Contains(ev.Text, "\\fs148") {
			t.Fatalf("event %d text %q", i, ev.Text)
		}
	}
}

func TestBuildDocument_Layout(t *testing.T) {
	st, _ := ResolveStyle(nil, StyleRequest{VideoWidth: 1080, VideoHeight: 1920})
	events := []Event{
		{Start: 0, End: 500 * time.Millisecond, Text: "a"},
		{Start: 500 * time.Millisecond, End: time.Second, Text: "b"},
	}
	doc := BuildDocument(st, events)

	for _, want := range []string{
		"[Script Info]\nScriptType: v4.00+\nPlayResX: 1080\nPlayResY: 1920\n",
		"Style: Default,Montserrat-Regular,124,&H00FFFFFF&,&H000000FF&,&HFF000000&,&H00000000&,1,0,0,0,100,100,0,0,1,2.5,2,2,10,10,115,1\n",
		"[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n",
		"Dialogue: 0,0:00:00.00,0:00:00.50,Default,,0,0,0,,a\nDialogue: 0,0:00:00.50,0:00:01.00,Default,,0,0,0,,b",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document missing %q:\n%s", want, doc)
		}
	}
	if strings.HasSuffix(doc, "\n") {
		t.Fatal("document should not end with a newline after the last event")
	}
}

func TestWriteDocument_BOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "001.ass")
	st, _ := ResolveStyle(nil, StyleRequest{VideoWidth: 1080, VideoHeight: 1920})
	if err := WriteDocument(path, st, []Event{{End: time.Second, Text: "ok"}}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) < 3 || b[0] != 0xEF || b[1] != 0xBB || b[2] != 0xBF {
		t.Fatalf("missing UTF-8 BOM, got % x", b[:3])
	}
}

func TestSanitizeASS(t *testing.T) {
	if got := sanitizeASS(` {bad}\n `); got != `(bad)\\n` {
		t.Fatalf("sanitizeASS = %q", got)
	}
}
