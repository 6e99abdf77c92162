package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConvert() error {
	switch c.Convert.Format {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("convert.format must be png or jpeg, got %q", c.Convert.Format)
	}
	if c.Convert.JPEGQuality < 1 || c.Convert.JPEGQuality > 100 {
		return fmt.Errorf("convert.jpeg_quality must be between 1 and 100, got %d", c.Convert.JPEGQuality)
	}
	if c.Convert.Workers < 0 {
		return fmt.Errorf("convert.workers must be non-negative, got %d", c.Convert.Workers)
	}
	return nil
}

func (c *Config) validateWatch() error {
	if _, err := filepath.Match(c.Watch.Pattern, "probe.aris"); err != nil {
		return errors.New("watch.pattern is not a valid glob pattern")
	}
	return nil
}
