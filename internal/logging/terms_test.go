package logging

import (
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) add(line string) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
}

func (s *lineSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func TestOutputTermReceivesLines(t *testing.T) {
	sink := &lineSink{}
	AddOutputTerm("test-term", sink.add)
	defer RemoveOutputTerm("test-term")

	logger := zap.New(newTermCore(zapcore.InfoLevel))
	logger.Info("relay me", zap.String("key", "value"))

	lines := sink.snapshot()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "relay me") || !strings.Contains(lines[0], "value") {
		t.Errorf("line missing message or field: %q", lines[0])
	}
	if strings.HasSuffix(lines[0], "\n") {
		t.Error("term lines must not carry a trailing newline")
	}
}

func TestOutputTermLevelGate(t *testing.T) {
	sink := &lineSink{}
	AddOutputTerm("test-gate", sink.add)
	defer RemoveOutputTerm("test-gate")

	logger := zap.New(newTermCore(zapcore.WarnLevel))
	logger.Info("below the gate")
	logger.Warn("at the gate")

	lines := sink.snapshot()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "at the gate") {
		t.Errorf("wrong line forwarded: %q", lines[0])
	}
}

func TestRemoveOutputTerm(t *testing.T) {
	sink := &lineSink{}
	AddOutputTerm("test-remove", sink.add)
	RemoveOutputTerm("test-remove")

	logger := zap.New(newTermCore(zapcore.InfoLevel))
	logger.Info("nobody listening")

	if lines := sink.snapshot(); len(lines) != 0 {
		t.Errorf("got %d lines after removal, want 0", len(lines))
	}
}
