package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
		{"nonsense", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Level: tt.level, Output: &buf})

			l.Debug().Msg("hidden?")

			if got := buf.Len() > 0; got != tt.debugSeen {
				t.Errorf("debug output = %v, want %v", got, tt.debugSeen)
			}
		})
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})

	l.WithComponent("ViewController").
		WithRequestID("req-1").
		WithIP("10.0.0.1").
		WithSession("abc").
		Info().Msg("hello")

	entry := decodeLine(t, &buf)
	want := map[string]string{
		"component":  "ViewController",
		"request_id": "req-1",
		"ip":         "10.0.0.1",
		"session_id": "abc",
		"message":    "hello",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("expected %s=%q, got %v", k, v, entry[k])
		}
	}
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Pretty: true, Output: &buf})

	l.Info().Msg("pretty line")

	out := buf.String()
	if !strings.Contains(out, "pretty line") {
		t.Errorf("expected message in output, got %q", out)
	}
	if strings.HasPrefix(out, "{") {
		t.Error("expected console output, not JSON")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	// must not panic
	l.Error().Msg("dropped")
	l.WithComponent("x").Info().Msg("dropped")
}

func TestNew_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var buf bytes.Buffer

	l := New(Config{Level: "info", Output: &buf, OutputFile: path})
	l.Info().Msg("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Errorf("expected the entry in both outputs, file=%q buf=%q", data, buf.String())
	}
}
