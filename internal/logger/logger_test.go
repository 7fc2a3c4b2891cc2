package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNewWithOptions(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantLevel zerolog.Level
	}{
		{name: "default", opts: Options{}, wantLevel: zerolog.InfoLevel},
		{name: "debug", opts: Options{Level: "debug"}, wantLevel: zerolog.DebugLevel},
		{name: "mixed case", opts: Options{Level: " WARN "}, wantLevel: zerolog.WarnLevel},
		{name: "unknown level", opts: Options{Level: "chatty"}, wantLevel: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Out = &bytes.Buffer{}
			log := NewWithOptions(tt.opts)
			if log.GetLevel() != tt.wantLevel {
				t.Errorf("level = %s, want %s", log.GetLevel(), tt.wantLevel)
			}
		})
	}
}

func TestNewWithOptions_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithOptions(Options{Format: "json", Out: buf})

	log.Info().Str("source", "bom.xlsx").Msg("reading")

	out := buf.String()
	if !strings.HasPrefix(out, "{") {
		t.Fatalf("Expected JSON output, got: %s", out)
	}
	if !strings.Contains(out, `"source":"bom.xlsx"`) {
		t.Errorf("Expected source field, got: %s", out)
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	retrieved := FromContext(ctx)
	retrieved.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"run":    "abc",
		"phases": 4,
	})
	log.Info().Msg("done")

	out := buf.String()
	if !strings.Contains(out, `"run":"abc"`) || !strings.Contains(out, `"phases":4`) {
		t.Errorf("Expected fields in output, got: %s", out)
	}
}

func TestForRow(t *testing.T) {
	buf := &bytes.Buffer{}
	log := ForRow(NewWithWriter(buf), 3, 5)
	log.Warn().Msg("skipped")

	out := buf.String()
	if !strings.Contains(out, `"row":3`) || !strings.Contains(out, `"sheet_row":5`) {
		t.Errorf("Expected row fields in output, got: %s", out)
	}
}
