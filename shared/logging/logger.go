package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Logger wraps zerolog with additional functionality
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Config holds logger configuration
type Config struct {
	Level       LogLevel
	Service     string
	Environment string
	Output      io.Writer
	PrettyLog   bool
	AddCaller   bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig(service string) *Config {
	return &Config{
		Level:       LogLevel(getEnv("LOG_LEVEL", string(LevelInfo))),
		Service:     service,
		Environment: getEnv("ENVIRONMENT", "development"),
		Output:      os.Stderr,
		PrettyLog:   getEnv("ENVIRONMENT", "development") == "development",
		AddCaller:   true,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig("unknown")
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = config.Output
	if output == nil {
		output = os.Stderr
	}
	if config.PrettyLog {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05.000",
		}
	}

	logger := zerolog.New(output).
		Level(parseLevel(config.Level)).
		With().
		Timestamp().
		Str("service", config.Service).
		Str("environment", config.Environment).
		Str("version", getEnv("SERVICE_VERSION", "unknown")).
		Logger()

	if config.AddCaller {
		logger = logger.With().Caller().Logger()
	}

	return &Logger{logger: logger, service: config.Service}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop(), service: "nop"}
}

// WithContext creates a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	c := l.logger.With()
	if v := AttemptID(ctx); v != "" {
		c = c.Str("attempt_id", v)
	}
	if v := WalletAddress(ctx); v != "" {
		c = c.Str("wallet_address", v)
	}
	return &Logger{logger: c.Logger(), service: l.service}
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger:  l.logger.With().Interface(key, value).Logger(),
		service: l.service,
	}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{
		logger:  l.logger.With().Fields(fields).Logger(),
		service: l.service,
	}
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	newLogger := l.logger.With().
		Err(err).
		Str("error_type", fmt.Sprintf("%T", err)).
		Logger()

	if stack := getStackTrace(2); len(stack) > 0 {
		newLogger = newLogger.With().Strs("stack", stack).Logger()
	}

	return &Logger{logger: newLogger, service: l.service}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }

func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }

func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }

func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }

// Audit logs an audit event
func (l *Logger) Audit(event string, fields map[string]interface{}) {
	auditLogger := l.logger.With().
		Str("audit_event", event).
		Time("audit_timestamp", time.Now()).
		Fields(fields).
		Logger()

	auditLogger.Info().Msg("AUDIT")
}

// Performance logs a performance metric. Waits over slow are logged at warn.
func (l *Logger) Performance(operation string, duration, slow time.Duration, fields map[string]interface{}) {
	perfLogger := l.logger.With().
		Str("operation", operation).
		Dur("duration_ms", duration).
		Fields(fields).
		Logger()

	if duration > slow {
		perfLogger.Warn().Msg("SLOW_OPERATION")
	} else {
		perfLogger.Info().Msg("PERFORMANCE")
	}
}

func parseLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getStackTrace(skip int) []string {
	var stack []string
	for i := skip; i < skip+5; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn != nil {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}
	return stack
}
