package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentLedger, Output: &buf})
	l.Info("hello", FieldRecordID, "42")

	out := buf.String()
	if !strings.Contains(out, `"component":"ledger"`) || !strings.Contains(out, `"record_id":"42"`) {
		t.Fatalf("unexpected output %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentAuth).Info("switch")
	if strings.Count(buf.String(), `"component"`) != 1 || !strings.Contains(buf.String(), `"component":"auth"`) {
		t.Fatalf("component must appear once: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"noise": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("%q: got %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected fallback logger")
	}
	l := Discard()
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatalf("expected the stored logger")
	}
}
