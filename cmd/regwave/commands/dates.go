package commands

import (
	"fmt"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// parseDate accepts RFC3339, plain dates, and human-readable forms like
// "last january" or "3 months ago".
func parseDate(value, flagName string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("--%s is required", flagName)
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		PreferredDateSource: dps.CurrentPeriod,
	}
	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %q is not a recognizable date: %v", flagName, value, err)
	}
	if parsed.IsZero() {
		return time.Time{}, fmt.Errorf("--%s: %q could not be parsed as a date", flagName, value)
	}
	return parsed.Time, nil
}
