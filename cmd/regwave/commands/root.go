package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regwave/regwave/internal/logging"
)

const Version = "0.1.0"

var (
	logLevelFlags []string
	configPath    string
	seedPath      string
)

var rootCmd = &cobra.Command{
	Use:   "regwave",
	Short: "Regwave - regulatory impact propagation engine",
	Long: `Regwave models regulations, departments, budgets, services, and KPIs
as a weighted dependency graph and propagates regulatory impact through it
to produce risk scores, rankings, and before/after timeline comparisons.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLog(logLevelFlags)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Supports per-package log levels: --log-level debug --log-level propagation.engine=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level propagation.engine=debug --log-level cache=warn")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file. Unset keys keep their defaults.")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "",
		"Path to a YAML seed file. When empty the built-in demo tenant is used.")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(propagateCmd)
	rootCmd.AddCommand(risksCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(simulateCmd)
}

// HandleError prints the error and exits.
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags merges CLI flags over LOG_LEVEL_* environment
// variables. CLI format: ["debug"], or ["default=info", "cache=warn"].
// Env format: LOG_LEVEL_PROPAGATION_ENGINE=debug (uppercased, dots to
// underscores).
func parseLogLevelFlags(flags []string) (string, map[string]string, error) {
	result := make(map[string]string)

	for _, envPair := range os.Environ() {
		if !strings.HasPrefix(envPair, "LOG_LEVEL_") {
			continue
		}
		parts := strings.SplitN(envPair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimPrefix(parts[0], "LOG_LEVEL_")
		result[strings.ToLower(strings.ReplaceAll(name, "_", "."))] = parts[1]
	}

	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			result["default"] = flag
			continue
		}
		parts := strings.SplitN(flag, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := validateLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}
	return defaultLevel, result, nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error", "fatal":
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
}
