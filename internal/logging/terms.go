package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TermFunc receives one formatted log line (no trailing newline).
//
// Term functions run inline on the logging call path: they must not log
// through this package, or the call recurses.
type TermFunc func(line string)

var termRegistry = struct {
	mu    sync.RWMutex
	terms map[string]TermFunc
}{terms: make(map[string]TermFunc)}

// AddOutputTerm registers fn under tag. Log lines emitted after registration
// are forwarded to fn in addition to the normal outputs. Registering the same
// tag again replaces the previous function.
func AddOutputTerm(tag string, fn TermFunc) {
	if tag == "" || fn == nil {
		return
	}
	termRegistry.mu.Lock()
	termRegistry.terms[tag] = fn
	termRegistry.mu.Unlock()
}

// RemoveOutputTerm removes the term registered under tag, if any.
func RemoveOutputTerm(tag string) {
	termRegistry.mu.Lock()
	delete(termRegistry.terms, tag)
	termRegistry.mu.Unlock()
}

func dispatchToTerms(line string) {
	termRegistry.mu.RLock()
	defer termRegistry.mu.RUnlock()
	for _, fn := range termRegistry.terms {
		fn(line)
	}
}

func hasOutputTerms() bool {
	termRegistry.mu.RLock()
	defer termRegistry.mu.RUnlock()
	return len(termRegistry.terms) > 0
}

// termCore is a zapcore.Core that renders entries with a plain console
// encoder and hands the resulting line to every registered output term.
type termCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
}

func newTermCore(level zapcore.Level) *termCore {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return &termCore{
		LevelEnabler: level,
		enc:          zapcore.NewConsoleEncoder(cfg),
	}
}

func (c *termCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &termCore{
		LevelEnabler: c.LevelEnabler,
		enc:          c.enc.Clone(),
	}
	for i := range fields {
		fields[i].AddTo(clone.enc)
	}
	return clone
}

func (c *termCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) && hasOutputTerms() {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *termCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := buf.String()
	buf.Free()
	// EncodeEntry appends a newline; terms get the bare line.
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	dispatchToTerms(line)
	return nil
}

func (c *termCore) Sync() error { return nil }
