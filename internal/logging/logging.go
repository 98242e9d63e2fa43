package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which messages a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Field is a single structured key/value attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a single log field.
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// WithFields expands a map into log fields. Callers pass the result directly
// to a log method; ordering is normalized at write time.
func WithFields(fields map[string]interface{}) []Field {
	out := make([]Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, Field{Key: k, Value: v})
	}
	return out
}

// Logger writes leveled, field-structured lines to stderr. Logs go to stderr
// so MCP stdio mode keeps stdout clean for protocol traffic.
type Logger struct {
	mu    sync.Mutex
	level Level
}

// New creates a logger that emits messages at or above the given level.
func New(level Level) *Logger {
	return &Logger{level: level}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(LevelDebug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(LevelInfo, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(LevelWarn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(LevelError, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	flat := flatten(fields)
	sort.Slice(flat, func(i, j int) bool { return flat[i].Key < flat[j].Key })

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for _, f := range flat {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	os.Stderr.WriteString(b.String())
}

// flatten accepts both Field values and []Field slices so call sites can mix
// WithField and WithFields.
func flatten(fields []interface{}) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.(type) {
		case Field:
			out = append(out, v)
		case []Field:
			out = append(out, v...)
		}
	}
	return out
}
