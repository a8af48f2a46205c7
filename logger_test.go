package skyfetch

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestSimpleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{out: log.New(&buf, "", 0)}

	logger.Info("cache hit", "key", "abc123", "ttl", "10m")

	line := buf.String()
	for _, want := range []string{"INFO", "cache hit", "key=abc123", "ttl=10m"} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %q in log line %q", want, line)
		}
	}
}

func TestSimpleLoggerOddPairs(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{out: log.New(&buf, "", 0)}

	logger.Warn("dangling", "orphan")

	if !strings.Contains(buf.String(), "orphan=?") {
		t.Errorf("Expected orphan marker in %q", buf.String())
	}
}

func TestSimpleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{out: log.New(&buf, "", 0)}

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	out := buf.String()
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		if !strings.Contains(out, level) {
			t.Errorf("Expected level %s in output", level)
		}
	}
}

func TestDefaultDebugConfig(t *testing.T) {
	cfg := DefaultDebugConfig()

	if cfg.Enabled {
		t.Error("Debug should be disabled by default")
	}
	if !cfg.LogRequests || !cfg.LogCache || !cfg.LogRetries {
		t.Error("Expected all event categories enabled")
	}

	id := cfg.RequestIDGen()
	if len(id) != 8 {
		t.Errorf("Expected 8-character request ID, got %q", id)
	}
	if id == cfg.RequestIDGen() {
		t.Error("Expected unique request IDs")
	}
}
