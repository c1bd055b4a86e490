package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/cmdshell"
)

// Config represents the example shell configuration.
type Config struct {
	Delimiter  string   `yaml:"delimiter"`
	Theme      string   `yaml:"theme,omitempty"`       // "default", "dark", "light" or "accessible"
	LogFile    string   `yaml:"log_file,omitempty"`    // empty disables logging
	MaxHistory int      `yaml:"max_history,omitempty"` // 0 for the library default
	History    []string `yaml:"history,omitempty"`     // commands available from the start
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Delimiter: "shell> ",
		Theme:     "default",
	}
}

// LoadConfig reads the configuration from path.
// If the file doesn't exist, returns a default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user running the example
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Options converts the configuration into shell options.
func (c *Config) Options() ([]cmdshell.Option, error) {
	options := []cmdshell.Option{
		cmdshell.WithDelimiter(c.Delimiter),
		cmdshell.WithHistorySeed(c.History),
		cmdshell.WithMaxHistory(c.MaxHistory),
	}

	if c.Theme != "" {
		theme, ok := cmdshell.ThemeByName(c.Theme)
		if !ok {
			return nil, fmt.Errorf("unknown theme %q", c.Theme)
		}
		options = append(options, cmdshell.WithColorScheme(theme))
	}

	if c.LogFile != "" {
		// The terminal belongs to the shell, so logs go to a file.
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{c.LogFile}
		zc.ErrorOutputPaths = []string{c.LogFile}
		logger, err := zc.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		options = append(options, cmdshell.WithLogger(logger))
	}
	return options, nil
}
