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
		t.Errorf("Expected info level, got %v", log.GetLevel())
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("filename", "receipt.jpg").Msg("extracted")

	output := buf.String()
	if !strings.Contains(output, "extracted") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, `"filename":"receipt.jpg"`) {
		t.Errorf("Expected filename field, got: %s", output)
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Warn().Msg("invalid category")

	if !strings.Contains(buf.String(), "invalid category") {
		t.Errorf("Expected output from context logger, got: %q", buf.String())
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
		"batch_id": "b-1",
		"stage":    "infer",
	})

	log.Info().Msg("scan")

	output := buf.String()
	for _, want := range []string{`"batch_id":"b-1"`, `"stage":"infer"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in output, got: %s", want, output)
		}
	}
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zerolog.Level
		wantErr bool
	}{
		{name: "defaults", want: zerolog.InfoLevel},
		{name: "debug json", level: "debug", format: "json", want: zerolog.DebugLevel},
		{name: "upper case level", level: "WARN", format: "console", want: zerolog.WarnLevel},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := Configure(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if log.GetLevel() != tt.want {
				t.Errorf("Expected level %v, got %v", tt.want, log.GetLevel())
			}
		})
	}
}
