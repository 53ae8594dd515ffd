package logs

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudwego/hertz/pkg/common/hlog"
)

var hlogLevels = map[hlog.Level]LogLevel{
	hlog.LevelTrace:  DebugLevel,
	hlog.LevelDebug:  DebugLevel,
	hlog.LevelInfo:   InfoLevel,
	hlog.LevelNotice: InfoLevel,
	hlog.LevelWarn:   WarnLevel,
	hlog.LevelError:  ErrorLevel,
	hlog.LevelFatal:  FatalLevel,
}

// hertzLogger routes hertz's hlog calls to this package, so SetLogger swaps
// the hertz backend along with everything else.
type hertzLogger struct{}

// NewHertzLogger returns an hlog.FullLogger for hlog.SetLogger.
func NewHertzLogger() hlog.FullLogger {
	return hertzLogger{}
}

var _ hlog.FullLogger = hertzLogger{}

func (hertzLogger) Trace(v ...interface{})  { Debug("%s", fmt.Sprint(v...)) }
func (hertzLogger) Debug(v ...interface{})  { Debug("%s", fmt.Sprint(v...)) }
func (hertzLogger) Info(v ...interface{})   { Info("%s", fmt.Sprint(v...)) }
func (hertzLogger) Notice(v ...interface{}) { Info("%s", fmt.Sprint(v...)) }
func (hertzLogger) Warn(v ...interface{})   { Warn("%s", fmt.Sprint(v...)) }
func (hertzLogger) Error(v ...interface{})  { Error("%s", fmt.Sprint(v...)) }
func (hertzLogger) Fatal(v ...interface{})  { Fatal("%s", fmt.Sprint(v...)) }

func (hertzLogger) Tracef(format string, v ...interface{})  { Debug(format, v...) }
func (hertzLogger) Debugf(format string, v ...interface{})  { Debug(format, v...) }
func (hertzLogger) Infof(format string, v ...interface{})   { Info(format, v...) }
func (hertzLogger) Noticef(format string, v ...interface{}) { Info(format, v...) }
func (hertzLogger) Warnf(format string, v ...interface{})   { Warn(format, v...) }
func (hertzLogger) Errorf(format string, v ...interface{})  { Error(format, v...) }
func (hertzLogger) Fatalf(format string, v ...interface{})  { Fatal(format, v...) }

func (hertzLogger) CtxTracef(ctx context.Context, format string, v ...interface{}) {
	CtxDebug(ctx, format, v...)
}

func (hertzLogger) CtxDebugf(ctx context.Context, format string, v ...interface{}) {
	CtxDebug(ctx, format, v...)
}

func (hertzLogger) CtxInfof(ctx context.Context, format string, v ...interface{}) {
	CtxInfo(ctx, format, v...)
}

func (hertzLogger) CtxNoticef(ctx context.Context, format string, v ...interface{}) {
	CtxInfo(ctx, format, v...)
}

func (hertzLogger) CtxWarnf(ctx context.Context, format string, v ...interface{}) {
	CtxWarn(ctx, format, v...)
}

func (hertzLogger) CtxErrorf(ctx context.Context, format string, v ...interface{}) {
	CtxError(ctx, format, v...)
}

func (hertzLogger) CtxFatalf(ctx context.Context, format string, v ...interface{}) {
	CtxFatal(ctx, format, v...)
}

func (hertzLogger) SetLevel(level hlog.Level) {
	if lv, ok := hlogLevels[level]; ok {
		SetLogLevel(lv)
	}
}

// SetOutput is a no-op, output routing is decided by Init.
func (hertzLogger) SetOutput(io.Writer) {}
