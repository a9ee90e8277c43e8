package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/alder/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerService interface {
	Debug(msg string, args ...any)

	Info(msg string, args ...any)

	Warn(msg string, args ...any)

	Error(msg string, args ...any)

	Fatal(msg string, args ...any)

	// Named derives a logger for a component; names nest with '/'.
	Named(name string) LoggerService

	// With derives a logger that attaches key=value to every entry.
	With(key string, value any) LoggerService
}

type LoggerServiceImpl struct {
	LoggerService

	cfg    config.LogConfig
	name   string
	fields []field
	level  LogLevel
	out    *output
}

type field struct {
	Key   string
	Value any
}

// output is the writer shared by a logger and everything derived from it.
type output struct {
	mu     sync.Mutex
	writer io.Writer
}

type logEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Service   string         `json:"service,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func NewLoggerService(name string, cfg config.LogConfig) LoggerService {
	return NewWriterLogger(name, cfg, openWriter(cfg))
}

// NewWriterLogger writes entries formatted per cfg to w instead of the
// terminal and log file.
func NewWriterLogger(name string, cfg config.LogConfig, w io.Writer) LoggerService {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	return &LoggerServiceImpl{
		cfg:   cfg,
		name:  name,
		level: Parse(cfg.Level),
		out:   &output{writer: w},
	}
}

// NewDiscardLogger returns a logger that drops every entry.
func NewDiscardLogger() LoggerService {
	impl := NewWriterLogger("", config.LogConfig{NoColor: true}, io.Discard).(*LoggerServiceImpl)
	impl.level = Fatal + 1
	return impl
}

func openWriter(cfg config.LogConfig) io.Writer {
	var writers []io.Writer

	if !cfg.NoTerminal {
		writers = append(writers, os.Stdout)
	}

	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.Rotation.MaxSize,
			MaxBackups: cfg.Rotation.MaxBackups,
			MaxAge:     cfg.Rotation.MaxAge,
			Compress:   cfg.Rotation.Compress,
		})
	}

	if len(writers) == 0 {
		return os.Stdout
	}
	return io.MultiWriter(writers...)
}

func (impl *LoggerServiceImpl) log(level LogLevel, msg string, args ...any) {
	if level < impl.level {
		return
	}

	// Messages without arguments may carry SQL with literal '%'.
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	timestamp := time.Now().Format(impl.cfg.TimeFormat)

	var line string
	if impl.cfg.JSON {
		line = impl.formatJSON(timestamp, level, msg)
	} else {
		line = impl.formatText(timestamp, level, msg)
	}

	impl.out.mu.Lock()
	fmt.Fprintln(impl.out.writer, line)
	impl.out.mu.Unlock()

	if level == Fatal {
		os.Exit(1)
	}
}

func (impl *LoggerServiceImpl) formatJSON(timestamp string, level LogLevel, msg string) string {
	entry := logEntry{
		Timestamp: timestamp,
		Level:     level.String(),
		Service:   impl.name,
		Message:   msg,
	}
	if len(impl.fields) > 0 {
		entry.Fields = make(map[string]any, len(impl.fields))
		for _, f := range impl.fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":%q,"message":%q}`, level.String(), msg)
	}
	return string(data)
}

func (impl *LoggerServiceImpl) formatText(timestamp string, level LogLevel, msg string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s", timestamp, level)
	if impl.name != "" {
		fmt.Fprintf(&b, " [%s]", impl.name)
	}
	b.WriteString(" ")
	b.WriteString(msg)
	for _, f := range impl.fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}

	if !impl.cfg.NoTerminal && !impl.cfg.NoColor {
		return Color(level) + b.String() + "\033[0m"
	}
	return b.String()
}

func (impl *LoggerServiceImpl) Debug(msg string, args ...any) {
	impl.log(Debug, msg, args...)
}

func (impl *LoggerServiceImpl) Info(msg string, args ...any) {
	impl.log(Info, msg, args...)
}

func (impl *LoggerServiceImpl) Warn(msg string, args ...any) {
	impl.log(Warn, msg, args...)
}

func (impl *LoggerServiceImpl) Error(msg string, args ...any) {
	impl.log(Error, msg, args...)
}

func (impl *LoggerServiceImpl) Fatal(msg string, args ...any) {
	impl.log(Fatal, msg, args...)
}

func (impl *LoggerServiceImpl) derive() *LoggerServiceImpl {
	return &LoggerServiceImpl{
		cfg:    impl.cfg,
		name:   impl.name,
		fields: impl.fields[:len(impl.fields):len(impl.fields)],
		level:  impl.level,
		out:    impl.out,
	}
}

func (impl *LoggerServiceImpl) Named(name string) LoggerService {
	child := impl.derive()
	if impl.name != "" {
		child.name = impl.name + "/" + name
	} else {
		child.name = name
	}
	return child
}

// With keeps keys sorted so text output is stable; a repeated key
// replaces the earlier value.
func (impl *LoggerServiceImpl) With(key string, value any) LoggerService {
	child := impl.derive()

	fields := make([]field, 0, len(child.fields)+1)
	for _, f := range child.fields {
		if f.Key != key {
			fields = append(fields, f)
		}
	}
	fields = append(fields, field{Key: key, Value: value})
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })

	child.fields = fields
	return child
}
