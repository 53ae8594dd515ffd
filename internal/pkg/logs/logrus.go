package logs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const ctxKeyLogID ctxKey = "log_id"

var logrusLevels = map[LogLevel]logrus.Level{
	DebugLevel: logrus.DebugLevel,
	InfoLevel:  logrus.InfoLevel,
	WarnLevel:  logrus.WarnLevel,
	ErrorLevel: logrus.ErrorLevel,
	FatalLevel: logrus.FatalLevel,
}

var fromLogrusLevels = map[logrus.Level]LogLevel{
	logrus.DebugLevel: DebugLevel,
	logrus.InfoLevel:  InfoLevel,
	logrus.WarnLevel:  WarnLevel,
	logrus.ErrorLevel: ErrorLevel,
	logrus.FatalLevel: FatalLevel,
}

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// logrusLogger is the logrus-backed Logger used unless SetLogger installs
// something else.
type logrusLogger struct {
	core *logrus.Logger
}

func bootLogger() Logger {
	// Zero options resolve to stderr, text, info.
	l, err := newLogrusLogger(Options{})
	if err != nil {
		panic(err)
	}
	return l
}

func newLogrusLogger(opts Options) (*logrusLogger, error) {
	output := strings.ToLower(strings.TrimSpace(opts.Output))
	if output == "" {
		output = "stderr"
	}

	w, err := outputWriter(opts, output)
	if err != nil {
		return nil, err
	}

	core := logrus.New()
	core.SetOutput(w)
	core.SetLevel(logrusLevels[parseLevel(opts.Level)])
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		core.SetFormatter(&logrus.JSONFormatter{})
	} else {
		core.SetFormatter(&textFormatter{color: output != "file" && !color.NoColor})
	}
	return &logrusLogger{core: core}, nil
}

func (l *logrusLogger) SetLevel(level LogLevel) {
	if lv, ok := logrusLevels[level]; ok {
		l.core.SetLevel(lv)
	}
}

func (l *logrusLogger) GetLevel() LogLevel {
	if lv, ok := fromLogrusLevels[l.core.GetLevel()]; ok {
		return lv
	}
	return InfoLevel
}

func (l *logrusLogger) Debug(format string, v ...interface{}) { l.core.Debugf(format, v...) }
func (l *logrusLogger) Info(format string, v ...interface{})  { l.core.Infof(format, v...) }
func (l *logrusLogger) Warn(format string, v ...interface{})  { l.core.Warnf(format, v...) }
func (l *logrusLogger) Error(format string, v ...interface{}) { l.core.Errorf(format, v...) }
func (l *logrusLogger) Fatal(format string, v ...interface{}) { l.core.Fatalf(format, v...) }

func (l *logrusLogger) CtxDebug(ctx context.Context, format string, v ...interface{}) {
	l.core.WithContext(ctx).Debugf(format, v...)
}

func (l *logrusLogger) CtxInfo(ctx context.Context, format string, v ...interface{}) {
	l.core.WithContext(ctx).Infof(format, v...)
}

func (l *logrusLogger) CtxWarn(ctx context.Context, format string, v ...interface{}) {
	l.core.WithContext(ctx).Warnf(format, v...)
}

func (l *logrusLogger) CtxError(ctx context.Context, format string, v ...interface{}) {
	l.core.WithContext(ctx).Errorf(format, v...)
}

func (l *logrusLogger) CtxFatal(ctx context.Context, format string, v ...interface{}) {
	l.core.WithContext(ctx).Fatalf(format, v...)
}

func (l *logrusLogger) NewLogID() string {
	return uuid.New().String()
}

func (l *logrusLogger) SetLogID(ctx context.Context, logID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyLogID, logID)
}

func (l *logrusLogger) GetLogID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKeyLogID).(string)
	return id
}

func (l *logrusLogger) Flush() {}

func outputWriter(opts Options, output string) (io.Writer, error) {
	switch output {
	case "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "file":
		return rotatingWriter(opts)
	case "both":
		fw, err := rotatingWriter(opts)
		if err != nil {
			return nil, err
		}
		return io.MultiWriter(os.Stderr, ansiStripWriter{fw}), nil
	default:
		return nil, fmt.Errorf("unsupported log output: %s", output)
	}
}

func rotatingWriter(opts Options) (io.Writer, error) {
	if strings.TrimSpace(opts.File) == "" {
		return nil, fmt.Errorf("log file is required when output includes file")
	}
	if dir := filepath.Dir(opts.File); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}

	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}
	if lj.MaxSize <= 0 {
		lj.MaxSize = 100
	}
	if lj.MaxBackups < 0 {
		lj.MaxBackups = 0
	}
	if lj.MaxAge < 0 {
		lj.MaxAge = 0
	}
	return lj, nil
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// ansiStripWriter removes color escapes before the bytes reach a file. It
// reports the original length so an io.MultiWriter around it stays happy.
type ansiStripWriter struct {
	w io.Writer
}

func (a ansiStripWriter) Write(p []byte) (int, error) {
	if _, err := a.w.Write(ansiPattern.ReplaceAll(p, nil)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// textFormatter renders "2006-01-02 15:04:05.000 LEVEL dir/file.go:42 [id] msg".
type textFormatter struct {
	color bool
}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := fmt.Sprintf("%-5s", strings.ToUpper(entry.Level.String()))
	if f.color {
		level = levelColor(entry.Level).Sprint(level)
	}

	id := ""
	if entry.Context != nil {
		if v, ok := entry.Context.Value(ctxKeyLogID).(string); ok && v != "" {
			id = "[" + v + "] "
		}
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s %s%s\n",
		entry.Time.Format("2006-01-02 15:04:05.000"),
		level,
		callerLocation(),
		id,
		entry.Message,
	)
	return b.Bytes(), nil
}

var levelColors = map[logrus.Level]*color.Color{
	logrus.DebugLevel: color.New(color.FgCyan),
	logrus.InfoLevel:  color.New(color.FgGreen),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgRed),
	logrus.PanicLevel: color.New(color.FgRed),
}

func levelColor(level logrus.Level) *color.Color {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return color.New()
}

// pipelineFiles mark stack frames belonging to the logging pipeline itself:
// this package, logrus, and hertz's hlog shim in front of our adapter.
var pipelineFiles = []string{
	"/sirupsen/logrus",
	"/internal/pkg/logs",
	"/cloudwego/hertz/pkg/common/hlog",
}

// callerLocation walks the stack to the first frame outside the logging
// pipeline, so the reported file:line is the same whether the entry came in
// through a package function, the Logger interface, or the hertz adapter.
func callerLocation() string {
	var pcs [16]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if f.File != "" && !pipelineFrame(f.File) {
			return fmt.Sprintf("%s:%d", shortFile(f.File), f.Line)
		}
		if !more {
			return "?"
		}
	}
}

func pipelineFrame(file string) bool {
	for _, p := range pipelineFiles {
		if strings.Contains(file, p) {
			return true
		}
	}
	return false
}

// shortFile keeps the last path element and its parent, "bridge/openai.go".
func shortFile(path string) string {
	short := filepath.Base(path)
	if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
		short = dir + "/" + short
	}
	return short
}
