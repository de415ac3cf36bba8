package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSevenZip(); err != nil {
		return err
	}
	return c.validateFlowShape()
}

// ValidateFlow additionally requires at least one configured step. It is
// checked by commands that execute or resolve the pipeline.
func (c *Config) ValidateFlow() error {
	if len(c.Flow.Steps) == 0 {
		return errors.New("flow.steps must contain at least one step (create a config with 'autounpack config init')")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateSevenZip() error {
	if c.SevenZip.OutputEncoding == "" {
		return nil
	}
	if _, err := htmlindex.Get(c.SevenZip.OutputEncoding); err != nil {
		return fmt.Errorf("sevenzip.output_encoding %q: %w", c.SevenZip.OutputEncoding, err)
	}
	return nil
}

func (c *Config) validateFlowShape() error {
	for i, step := range c.Flow.Steps {
		name, _ := step["name"].(string)
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("flow.steps[%d]: name is required", i)
		}
	}
	return nil
}
