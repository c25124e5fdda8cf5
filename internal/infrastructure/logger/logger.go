package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Printer is a leveled sink with the log.Logger call shape.
type Printer struct {
	sugar *zap.SugaredLogger
	level zapcore.Level
}

func (p *Printer) Printf(format string, args ...any) {
	p.sugar.Logf(p.level, format, args...)
}

func (p *Printer) Println(args ...any) {
	p.sugar.Logln(p.level, args...)
}

var (
	Info  *Printer
	Error *Printer
	Debug *Printer
	Warn  *Printer

	base *zap.Logger
)

type Config struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Stderr sends console output to stderr, keeping stdout for command output.
	Stderr bool
}

func init() {
	_ = Setup(Config{Level: "info"})
}

// Setup replaces the package loggers. Console output goes to stdout (or stderr);
// when File is set, a rotated copy is written there too.
func Setup(cfg Config) error {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		CallerKey:      "caller",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	console := os.Stdout
	if cfg.Stderr {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(console), level),
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return err
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 20),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	install(zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// UseCore routes all package loggers to core. Tests use it with zaptest/observer.
func UseCore(core zapcore.Core) {
	install(zap.New(core))
}

func install(l *zap.Logger) {
	if base != nil {
		_ = base.Sync()
	}
	base = l
	sugar := l.Sugar()
	Info = &Printer{sugar: sugar, level: zapcore.InfoLevel}
	Error = &Printer{sugar: sugar, level: zapcore.ErrorLevel}
	Debug = &Printer{sugar: sugar, level: zapcore.DebugLevel}
	Warn = &Printer{sugar: sugar, level: zapcore.WarnLevel}
}

func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
