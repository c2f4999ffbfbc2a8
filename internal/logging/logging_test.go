package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", "console", &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Str("clip", "001").Msg("done")
	log.Debug().Msg("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if rec["clip"] != "001" || rec["message"] != "done" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("", "json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("empty level should default to info, got %q", buf.String())
	}

	if _, err := New("loud", "json", &buf); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
