package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		n    int
		want zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{7, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		if got := LevelForVerbosity(tt.n); got != tt.want {
			t.Errorf("LevelForVerbosity(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
		ok   bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{" INFO ", zerolog.InfoLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"trace", zerolog.TraceLevel, true},
		{"", zerolog.NoLevel, false},
		{"loud", zerolog.NoLevel, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveLevel(t *testing.T) {
	if got := (Config{Level: "error", Verbosity: 3}).ResolveLevel(); got != zerolog.ErrorLevel {
		t.Errorf("explicit level = %v, want error", got)
	}
	if got := (Config{Level: "bogus", Verbosity: 2}).ResolveLevel(); got != zerolog.DebugLevel {
		t.Errorf("fallback level = %v, want debug", got)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Verbosity: 1, Output: &buf})

	logger.Debug().Msg("hidden")
	logger.Info().Str("k", "v").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("output = %s, want JSON info line", out)
	}
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Verbosity: 1, Output: &buf, Pretty: true})
	logger.Info().Msg("hello")

	out := buf.String()
	if strings.Contains(out, `"message"`) || !strings.Contains(out, "hello") {
		t.Errorf("pretty output = %q", out)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true")
	}
}
