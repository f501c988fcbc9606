package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	case FATAL:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel maps LOG_LEVEL style names to a LogLevel. Unknown names fall
// back to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger is a thin wrapper over a logrus entry. Loggers derived with
// WithField share output, level and formatting with their parent.
type Logger struct {
	mu    *sync.Mutex
	cfg   *Config
	entry *logrus.Entry
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
	JSON       bool
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Prefix:     "",
		Colorize:   isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		ShowCaller: false,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stdout,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}

	base := logrus.New()
	base.SetOutput(cfg.Output)
	base.SetLevel(cfg.Level.logrus())
	base.SetReportCaller(cfg.ShowCaller)

	l := &Logger{mu: &sync.Mutex{}, cfg: &cfg, entry: logrus.NewEntry(base)}
	l.applyFormatter()
	if cfg.Prefix != "" {
		l.entry = l.entry.WithField("component", cfg.Prefix)
	}
	return l
}

func (l *Logger) applyFormatter() {
	if l.cfg.JSON {
		l.entry.Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  l.cfg.TimeFormat,
			DisableTimestamp: !l.cfg.ShowTime,
		})
		return
	}
	l.entry.Logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:      l.cfg.Colorize,
		DisableColors:    !l.cfg.Colorize,
		FullTimestamp:    l.cfg.ShowTime,
		DisableTimestamp: !l.cfg.ShowTime,
		TimestampFormat:  l.cfg.TimeFormat,
	})
}

func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			cfg.Level = ParseLevel(envLevel)
		}
		if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
			cfg.JSON = true
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// WithField returns a logger that attaches key=value to every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{mu: l.mu, cfg: l.cfg, entry: l.entry.WithField(key, value)}
}

// WithFields is WithField for several keys at once.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{mu: l.mu, cfg: l.cfg, entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Level = level
	l.entry.Logger.SetLevel(level.logrus())
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Output = w
	l.entry.Logger.SetOutput(w)
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Colorize = colorize
	l.applyFormatter()
}

func (l *Logger) SetShowCaller(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.ShowCaller = show
	l.entry.Logger.SetReportCaller(show)
}

func (l *Logger) Debug(msg string, args ...any) { l.Debugf(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.Infof(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Warnf(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.Errorf(msg, args...) }
func (l *Logger) Fatal(msg string, args ...any) { l.Fatalf(msg, args...) }

func (l *Logger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

// Fatalf logs and exits the process with status 1.
func (l *Logger) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

// Package-level convenience functions using the default logger

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	GetLogger().Fatal(msg, args...)
}

func Debugf(format string, args ...any) {
	GetLogger().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	GetLogger().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	GetLogger().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	GetLogger().Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	GetLogger().Fatalf(format, args...)
}

// WithField derives from the default logger.
func WithField(key string, value any) *Logger {
	return GetLogger().WithField(key, value)
}

func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

func SetColorize(colorize bool) {
	GetLogger().SetColorize(colorize)
}

func SetShowCaller(show bool) {
	GetLogger().SetShowCaller(show)
}
