package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

// NodeValidator checks that every token names a node we could resolve.
func NodeValidator(tokens []string) error {
	if len(tokens) == 0 {
		return fmt.Errorf("at least one node is required")
	}
	for _, token := range tokens {
		if !IsValid(token) {
			return &InvalidHostError{Host: token}
		}
	}
	return nil
}

func ConfigValidator(cfg *Config) error {
	if cfg.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is out of range", cfg.Port)
	}
	if _, err := ParseLevel(cfg.ConsoleLevel); err != nil {
		return err
	}
	if _, err := ParseLevel(cfg.FileLevel); err != nil {
		return err
	}
	if cfg.LogFile != "" {
		if err := PathValidator(cfg.LogFile); err != nil {
			return fmt.Errorf("log file: %w", err)
		}
	}
	seen := make(map[string]bool)
	for _, network := range cfg.Networks {
		if err := NameValidator(network.Name); err != nil {
			return err
		}
		if seen[network.Name] {
			return fmt.Errorf("duplicate network %s", network.Name)
		}
		seen[network.Name] = true
		if !network.Prefix.IsValid() {
			return fmt.Errorf("network %s has an invalid prefix", network.Name)
		}
	}
	return nil
}
