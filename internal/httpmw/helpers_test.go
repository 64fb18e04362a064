package httpmw

import (
	"context"
	"sync"

	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
)

type entry struct {
	level string
	msg   string
	err   error
	kv    map[string]any
}

// spyLogger records entries, including fields added through With.
type spyLogger struct {
	mu      *sync.Mutex
	entries *[]entry
	fields  map[string]any
}

func newSpyLogger() *spyLogger {
	return &spyLogger{mu: &sync.Mutex{}, entries: &[]entry{}, fields: map[string]any{}}
}

func (s *spyLogger) With(kv ...any) log.Logger {
	f := make(map[string]any, len(s.fields)+len(kv)/2)
	for k, v := range s.fields {
		f[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		f[kv[i].(string)] = kv[i+1]
	}
	return &spyLogger{mu: s.mu, entries: s.entries, fields: f}
}

func (s *spyLogger) add(level string, err error, msg string, kv []any) {
	e := entry{level: level, msg: msg, err: err, kv: map[string]any{}}
	for k, v := range s.fields {
		e.kv[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.kv[kv[i].(string)] = kv[i+1]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.entries = append(*s.entries, e)
}

func (s *spyLogger) Debug(_ context.Context, msg string, kv ...any) { s.add("debug", nil, msg, kv) }
func (s *spyLogger) Info(_ context.Context, msg string, kv ...any)  { s.add("info", nil, msg, kv) }
func (s *spyLogger) Warn(_ context.Context, msg string, kv ...any)  { s.add("warn", nil, msg, kv) }
func (s *spyLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	s.add("error", err, msg, kv)
}
func (s *spyLogger) Sync() error { return nil }

func (s *spyLogger) all() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entry(nil), *s.entries...)
}
