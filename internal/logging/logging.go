// Package logging provides the structured leveled logger used across
// regwave. Loggers are named per component, carry persistent fields, and
// honor per-package level overrides so one component can be raised to DEBUG
// without drowning the rest.
//
// Typical use:
//
//	logger := logging.GetLogger("propagation")
//	logger.Info("engine ready")
//	logger.InfoWithFields("run complete",
//	    logging.Field("tenant", tenantID),
//	    logging.Field("affected", affected),
//	)
//
// Initialize configures the default level and optional per-package
// overrides ({"cache": "debug", "risk.*": "warn"}). GetLogger falls back to
// INFO when Initialize was never called.
//
// Logger values are immutable: WithField, WithFields, WithName, and
// WithContext return copies, so loggers can be shared across goroutines
// without coordination.
package logging

import (
	"context"
	"os"
	"sync"
)

var (
	globalLogger *Logger
	initOnce     sync.Once
	// exitFunc is what Fatal calls to terminate the process; tests swap it.
	exitFunc = os.Exit
)

// Initialize sets the global default level and optional per-package
// overrides. An unrecognized default level falls back to INFO; an invalid
// per-package entry is an error.
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		level = INFO
	}
	globalLogger = &Logger{level: level, name: "regwave"}

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLogLevels(packageLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// GetLogger returns a logger named after the component. Safe for concurrent
// first use; initializes the global default lazily.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// shouldLog applies the per-package override when one matches, otherwise
// the logger's own level.
func (l *Logger) shouldLog(level LogLevel) bool {
	if override, ok := packageLevelFor(l.name); ok {
		return level >= override
	}
	return level >= l.level
}

// clone copies the logger so With* methods never mutate shared state.
func (l *Logger) clone() *Logger {
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
}

// WithName returns a copy of the logger under a different component name.
func (l *Logger) WithName(name string) *Logger {
	nl := l.clone()
	nl.name = name
	return nl
}

// WithField returns a copy of the logger with one persistent field added.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	nl := l.clone()
	nl.fields[key] = value
	return nl
}

// WithFields returns a copy of the logger with several persistent fields
// added.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	nl := l.clone()
	for _, f := range fields {
		nl.fields[f.Key] = f.Value
	}
	return nl
}

// WithContext returns a copy of the logger that extracts trace_id and
// span_id from ctx on every message.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	nl := l.clone()
	nl.ctx = ctx
	return nl
}

// Debug logs a formatted message at DEBUG.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf(DEBUG, msg, args...)
	}
}

// Info logs a formatted message at INFO.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf(INFO, msg, args...)
	}
}

// Warn logs a formatted message at WARN.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf(WARN, msg, args...)
	}
}

// Error logs a formatted message at ERROR.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(ERROR, msg, args...)
	}
}

// ErrorWithErr logs a formatted message at ERROR with the error appended.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf(ERROR, msg+" - %v", args...)
	}
}

// Fatal logs a formatted message at FATAL and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf(FATAL, msg, args...)
		exitFunc(1)
	}
}

// DebugWithFields logs a message with structured fields at DEBUG.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields(DEBUG, msg, fields...)
	}
}

// InfoWithFields logs a message with structured fields at INFO.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields(INFO, msg, fields...)
	}
}

// WarnWithFields logs a message with structured fields at WARN.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields(WARN, msg, fields...)
	}
}

// ErrorWithFields logs a message with structured fields at ERROR.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields(ERROR, msg, fields...)
	}
}

// FatalWithFields logs a message with structured fields at FATAL and exits
// with code 1.
func (l *Logger) FatalWithFields(msg string, fields ...LogField) {
	if l.shouldLog(FATAL) {
		l.logWithFields(FATAL, msg, fields...)
		exitFunc(1)
	}
}

// logWithFields merges context fields, the logger's persistent fields, and
// the call-site fields. Later sources win on key collisions.
func (l *Logger) logWithFields(level LogLevel, msg string, fields ...LogField) {
	contextFields := extractContextFields(l.ctx)

	var merged map[string]interface{}
	if contextFields != nil || len(l.fields) > 0 || len(fields) > 0 {
		merged = make(map[string]interface{})
		for k, v := range contextFields {
			merged[k] = v
		}
		for k, v := range l.fields {
			merged[k] = v
		}
		for _, f := range fields {
			merged[f.Key] = f.Value
		}
	}

	l.writeLog(level, msg, merged)
}
