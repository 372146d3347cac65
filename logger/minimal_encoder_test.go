package logger

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func stripANSI(str string) string {
	return regexp.MustCompile(`\x1b\[[0-9;]*m`).ReplaceAllString(str, "")
}

func encode(t *testing.T, level zapcore.Level, name, msg string, fields ...zapcore.Field) string {
	t.Helper()
	entry := zapcore.Entry{
		Level:      level,
		Time:       time.Date(2024, 1, 2, 13, 4, 35, 0, time.UTC),
		LoggerName: name,
		Message:    msg,
	}
	buf, err := newMinimalEncoder().EncodeEntry(entry, fields)
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	return stripANSI(buf.String())
}

func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	out := encode(t, zapcore.InfoLevel, "session", "Detail shown",
		zap.Int64(FieldDetailID, 17),
		zap.String("kind", "topic"),
		zap.Bool("writable", true),
		zap.Int("critical_count", 999),
	)

	for _, want := range []string{"17", "kind=topic", "writable=true", "critical_count=999"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestMinimalEncoderLayout(t *testing.T) {
	out := encode(t, zapcore.InfoLevel, "session.selection", "Detail shown",
		zap.Int(FieldWidth, 240), zap.Int(FieldHeight, 180))

	if !strings.HasPrefix(out, "13:04:35  s.selection  Detail shown") {
		t.Errorf("unexpected layout %q", out)
	}
	if !strings.Contains(out, "(240x180)") {
		t.Errorf("size not rendered: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("entry not newline terminated")
	}
}

func TestMinimalEncoderLevels(t *testing.T) {
	if out := encode(t, zapcore.InfoLevel, "", "hello"); strings.Contains(out, "INFO") {
		t.Errorf("info level should not be labelled: %q", out)
	}
	if out := encode(t, zapcore.WarnLevel, "", "careful"); !strings.Contains(out, "WARN") {
		t.Errorf("warn level missing: %q", out)
	}
	if out := encode(t, zapcore.ErrorLevel, "", "boom", zap.Error(errors.New("disk full"))); !strings.Contains(out, "ERROR") || !strings.Contains(out, "disk full") {
		t.Errorf("error entry incomplete: %q", out)
	}
}

func TestSetTheme(t *testing.T) {
	defer SetTheme("everforest")

	SetTheme("gruvbox")
	if currentTheme != "gruvbox" {
		t.Fatalf("theme = %s", currentTheme)
	}
	SetTheme("solarized")
	if currentTheme != "gruvbox" {
		t.Errorf("unknown theme changed current theme to %s", currentTheme)
	}
}

func TestAbbreviateName(t *testing.T) {
	cases := map[string]string{
		"server":            "server",
		"session.selection": "s.selection",
		"persist.writer.q":  "p.writer.q",
	}
	for in, want := range cases {
		if got := abbreviateName(in); got != want {
			t.Errorf("abbreviateName(%q) = %q, want %q", in, got, want)
		}
	}
}
