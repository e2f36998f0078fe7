package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// LogLevel orders message severities from DEBUG (lowest) to FATAL.
type LogLevel int

const (
	// DEBUG level for detailed diagnostic output
	DEBUG LogLevel = iota
	// INFO level for normal operational messages
	INFO
	// WARN level for recoverable or suspicious conditions
	WARN
	// ERROR level for failures the process survives
	ERROR
	// FATAL level for failures that terminate the process
	FATAL
)

// String returns the canonical upper-case name of the level.
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
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a level name to its LogLevel, case-insensitively.
func ParseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("invalid level: %s (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}

// LogField is a single structured key/value pair.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger writes leveled, optionally structured log lines for one named
// component.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{} // persistent structured fields
	ctx    context.Context        // optional, for trace/span id extraction
}

// Per-package level overrides. Keys are logger names, optionally with a
// trailing ".*" wildcard that matches a whole subtree ("risk.*" matches
// "risk.timeline" but not "risk" itself).
var (
	packageLevels   = make(map[string]LogLevel)
	packageLevelsMu sync.RWMutex
)

// SetPackageLogLevels replaces all per-package overrides. Returns an error
// and leaves the previous overrides untouched when any level name is
// invalid.
func SetPackageLogLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}

	parsed := make(map[string]LogLevel, len(levels))
	for pkg, levelStr := range levels {
		level, err := ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for package %q: %w", pkg, err)
		}
		parsed[pkg] = level
	}

	packageLevelsMu.Lock()
	packageLevels = parsed
	packageLevelsMu.Unlock()
	return nil
}

// packageLevelFor resolves the override for a logger name. Exact matches
// win; among wildcard patterns the longest (most specific) wins.
func packageLevelFor(name string) (LogLevel, bool) {
	packageLevelsMu.RLock()
	defer packageLevelsMu.RUnlock()

	if level, ok := packageLevels[name]; ok {
		return level, true
	}

	var matches []string
	for pattern := range packageLevels {
		if matchesPattern(name, pattern) {
			matches = append(matches, pattern)
		}
	}
	if len(matches) == 0 {
		return 0, false
	}
	sort.Slice(matches, func(i, j int) bool { return len(matches[i]) > len(matches[j]) })
	return packageLevels[matches[0]], true
}

// matchesPattern reports whether name matches an override pattern. "risk.*"
// matches any name under the "risk." prefix.
func matchesPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(name, prefix+".")
	}
	return false
}
