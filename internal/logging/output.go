package logging

import (
	"fmt"
	"log"
	"os"
	"time"
)

// writeLog formats one line and routes it by severity: ERROR and FATAL go
// to stderr, everything else through the standard logger to stdout.
func (l *Logger) writeLog(level LogLevel, msg string, fields map[string]interface{}) {
	line := fmt.Sprintf("[%s] [%s] %s: %s", GetTimestamp(), level, l.name, msg)

	if len(fields) > 0 {
		line += " |"
		for k, v := range fields {
			line += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	if level >= ERROR {
		fmt.Fprintf(os.Stderr, "%s\n", line)
	} else {
		log.Println(line)
	}
}

// logf formats the message and merges context fields with the logger's
// persistent fields before writing.
func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)

	contextFields := extractContextFields(l.ctx)
	var merged map[string]interface{}
	if contextFields != nil || len(l.fields) > 0 {
		merged = make(map[string]interface{})
		for k, v := range contextFields {
			merged[k] = v
		}
		for k, v := range l.fields {
			merged[k] = v
		}
	}

	l.writeLog(level, formatted, merged)
}

// GetTimestamp returns the RFC3339 timestamp used in log lines. The
// LOG_TIMESTAMP env var overrides it for deterministic test output.
func GetTimestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
