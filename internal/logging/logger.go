package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger that writes JSON to the given log file path
// and console output to stderr, both at level. Session name and PID are
// included as initial fields.
func New(logPath, sessionName string, level zapcore.Level) (*zap.Logger, error) {
	fileCore, err := newFileCore(logPath, level)
	if err != nil {
		return nil, err
	}
	stderrCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stderr), level)
	return withSession(zap.New(zapcore.NewTee(fileCore, stderrCore)), sessionName), nil
}

// NewFile is New without the stderr copy, for processes that own the
// terminal.
func NewFile(logPath, sessionName string, level zapcore.Level) (*zap.Logger, error) {
	fileCore, err := newFileCore(logPath, level)
	if err != nil {
		return nil, err
	}
	return withSession(zap.New(fileCore), sessionName), nil
}

func newFileCore(logPath string, level zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), level), nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

func withSession(l *zap.Logger, sessionName string) *zap.Logger {
	return l.With(
		zap.String("session", sessionName),
		zap.Int("pid", os.Getpid()),
	)
}

// NewClient returns the logger used by the command-line clients: warnings
// and above on stderr, nothing on disk.
func NewClient(level zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stderr), max(level, zapcore.WarnLevel))
	return zap.New(core)
}
