package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dlazar-im/toxcore/log"
)

func TestTextOutputContainsFields(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := &log.Logger{
		EntryHandler: log.OutputTextNoColor(buf),
		Level:        log.DebugLevel,
	}

	logger.WithFields(log.Fields{"friend": 3, "op": "tick"}).Infof("hello %s", "world")

	out := buf.String()
	if !strings.Contains(out, "hello world") {
		t.Fatalf("missing message in output: %q", out)
	}
	if !strings.Contains(out, "friend=3") || !strings.Contains(out, "op=tick") {
		t.Fatalf("missing fields in output: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := &log.Logger{
		EntryHandler: log.OutputTextNoColor(buf),
		Level:        log.WarnLevel,
	}

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	logger.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected warn output, got %q", buf.String())
	}
}

func TestJSONOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := &log.Logger{
		EntryHandler: log.OutputJSON(buf),
		Level:        log.InfoLevel,
	}
	logger.WithFields(log.Fields{"round": 1}).Info("ping")

	out := buf.String()
	if !strings.Contains(out, `"msg":"ping"`) {
		t.Fatalf("expected JSON msg field, got %q", out)
	}
	if !strings.Contains(out, `"round":1`) {
		t.Fatalf("expected JSON round field, got %q", out)
	}
}
