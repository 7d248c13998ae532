package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultHost       = "127.0.0.1:8188"
	DefaultInputNode  = "10"
	DefaultOutputNode = "9"
	DefaultSource     = SourcePattern
	DefaultSaveDir    = "captures"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Server: Server{Host: DefaultHost},
		Workflow: Workflow{
			InputNode:  DefaultInputNode,
			OutputNode: DefaultOutputNode,
		},
		Capture: Capture{
			Source:  DefaultSource,
			SaveDir: DefaultSaveDir,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// LoadConfig reads and parses a comfycam.yaml file. If the file doesn't
// exist, returns the default config. Missing fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Host == "" {
		return ValidationError{Field: "server.host", Message: "must not be empty"}
	}
	if cfg.Workflow.InputNode == "" {
		return ValidationError{Field: "workflow.input_node", Message: "must not be empty"}
	}
	if cfg.Workflow.OutputNode == "" {
		return ValidationError{Field: "workflow.output_node", Message: "must not be empty"}
	}
	switch cfg.Capture.Source {
	case SourcePattern:
	case SourceDirectory:
		if cfg.Capture.Directory == "" {
			return ValidationError{Field: "capture.directory", Message: "required for the directory source"}
		}
	default:
		return ValidationError{
			Field:   "capture.source",
			Message: fmt.Sprintf("unknown source %q (expected %q or %q)", cfg.Capture.Source, SourcePattern, SourceDirectory),
		}
	}
	return nil
}
