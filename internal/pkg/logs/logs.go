// Package logs is slipway's logging facade. Boot code configures it once
// through Init; everything else logs through the package-level functions.
// Logs default to stderr because stdout is spoken for: `slipway run` prints
// the agent's answer there and `slipway mcp` owns it as the MCP transport.
package logs

import "context"

// Options mirror the logging section of the config file.
type Options struct {
	Level      string // debug, info, warn, error, fatal
	Format     string // text (default) or json
	Output     string // stderr (default), stdout, file, both
	File       string // required when Output includes file
	MaxSize    int    // MB per rotated file
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

var logger Logger = bootLogger()

// Init replaces the boot logger with one built from the given options.
func Init(opts Options) error {
	l, err := newLogrusLogger(opts)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger installs a different Logger implementation. Call it during
// startup only; installation is not synchronized.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	logger = l
}

// DefaultLogger returns the currently installed logger.
func DefaultLogger() Logger {
	return logger
}

// SetLogLevel adjusts the minimum emitted severity at runtime.
func SetLogLevel(level LogLevel) {
	logger.SetLevel(level)
}

func Debug(format string, v ...interface{}) { logger.Debug(format, v...) }
func Info(format string, v ...interface{})  { logger.Info(format, v...) }
func Warn(format string, v ...interface{})  { logger.Warn(format, v...) }
func Error(format string, v ...interface{}) { logger.Error(format, v...) }
func Fatal(format string, v ...interface{}) { logger.Fatal(format, v...) }

func CtxDebug(ctx context.Context, format string, v ...interface{}) {
	logger.CtxDebug(ctx, format, v...)
}

func CtxInfo(ctx context.Context, format string, v ...interface{}) {
	logger.CtxInfo(ctx, format, v...)
}

func CtxWarn(ctx context.Context, format string, v ...interface{}) {
	logger.CtxWarn(ctx, format, v...)
}

func CtxError(ctx context.Context, format string, v ...interface{}) {
	logger.CtxError(ctx, format, v...)
}

func CtxFatal(ctx context.Context, format string, v ...interface{}) {
	logger.CtxFatal(ctx, format, v...)
}

// NewLogID mints an id for correlating the log lines of one request.
func NewLogID() string {
	return logger.NewLogID()
}

// SetLogID returns a context whose Ctx* log lines carry the given id.
func SetLogID(ctx context.Context, logID string) context.Context {
	return logger.SetLogID(ctx, logID)
}

// GetLogID extracts the id set by SetLogID, or "".
func GetLogID(ctx context.Context) string {
	return logger.GetLogID(ctx)
}

func Flush() {
	logger.Flush()
}
