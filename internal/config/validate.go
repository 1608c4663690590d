package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values that would prevent the
// importer from operating, collecting every problem instead of stopping at
// the first.
func (c *Config) Validate() error {
	var problems []error

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, errors.New("paths.data_dir is required"))
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, errors.New("paths.log_dir is required"))
	}

	if err := validateURL("rankings.base_url", c.Rankings.BaseURL); err != nil {
		problems = append(problems, err)
	}
	if err := validateURL("members.base_url", c.Members.BaseURL); err != nil {
		problems = append(problems, err)
	}

	if c.Resolver.MinWindowDays > c.Resolver.DateWindowDays {
		problems = append(problems, fmt.Errorf(
			"resolver.min_window_days (%d) exceeds resolver.date_window_days (%d)",
			c.Resolver.MinWindowDays, c.Resolver.DateWindowDays))
	}
	if c.Resolver.ExtremeBodyweightDeltaKg > c.Resolver.ExtremeBodyweightDeltaHardKg {
		problems = append(problems, fmt.Errorf(
			"resolver.extreme_bodyweight_delta_kg (%.1f) exceeds resolver.extreme_bodyweight_delta_hard_kg (%.1f)",
			c.Resolver.ExtremeBodyweightDeltaKg, c.Resolver.ExtremeBodyweightDeltaHardKg))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}

	return errors.Join(problems...)
}

func validateURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: host is required", field)
	}
	return nil
}
