package state

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the settings shared by every command. Flags given on the
// command line take precedence over values read from a config file.
type Config struct {
	Timeout      time.Duration `yaml:"timeout,omitempty"`       // per round-trip timeout
	Retries      int           `yaml:"retries,omitempty"`       // retryable failures allowed per node
	Port         int           `yaml:"port,omitempty"`          // CoAP port of the nodes
	Hosts        []string      `yaml:"hosts,omitempty"`         // hosts-file style override sources
	Resolvers    []string      `yaml:"resolvers,omitempty"`     // dns servers used instead of the system ones
	Networks     []NetworkCfg  `yaml:"networks,omitempty"`      // named deployments, used to tag log output
	LogFile      string        `yaml:"log_file,omitempty"`      // if not empty, logs are also appended to this file
	ConsoleLevel string        `yaml:"console_level,omitempty"` // minimum level printed on stderr
	FileLevel    string        `yaml:"file_level,omitempty"`    // minimum level written to LogFile
	SampleDir    string        `yaml:"sample_dir,omitempty"`    // where grabbed samples are queued
	LockPath     string        `yaml:"lock_path,omitempty"`     // single instance lock file
}

func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		Retries:      DefaultRetries,
		Port:         DefaultPort,
		ConsoleLevel: "info",
		FileLevel:    "debug",
		SampleDir:    DefaultSampleDir,
		LockPath:     DefaultLockPath(),
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// ParseLevel accepts slog level names as well as the java.util.logging names
// older deployments have in their scripts.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FINEST", "FINER", "FINE", "CONFIG":
		return slog.LevelDebug, nil
	case "WARNING":
		return slog.LevelWarn, nil
	case "SEVERE":
		return slog.LevelError, nil
	case "OFF":
		return slog.LevelError + 4, nil
	case "ALL":
		return slog.LevelDebug - 4, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.New("unknown log level " + s)
	}
	return level, nil
}
