package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOverlay is the shape of the optional YAML tuning file. Every field is
// optional; zero values leave the environment-derived setting untouched.
type fileOverlay struct {
	Cache struct {
		L1TTL    string `yaml:"l1_ttl"`
		L2TTL    string `yaml:"l2_ttl"`
		L3TTL    string `yaml:"l3_ttl"`
		PriceTTL string `yaml:"price_ttl"`
	} `yaml:"cache"`
	RateLimit struct {
		Capacity       int    `yaml:"capacity"`
		RefillTokens   int    `yaml:"refill_tokens"`
		RefillInterval string `yaml:"refill_interval"`
	} `yaml:"rate_limit"`
	Maintenance struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"maintenance"`
}

// applyFile parses the YAML file at path and applies its values over cfg.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ov fileOverlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if err := overlayDur(&cfg.Cache.L1TTL, ov.Cache.L1TTL); err != nil {
		return err
	}
	if err := overlayDur(&cfg.Cache.L2TTL, ov.Cache.L2TTL); err != nil {
		return err
	}
	if err := overlayDur(&cfg.Cache.L3TTL, ov.Cache.L3TTL); err != nil {
		return err
	}
	if err := overlayDur(&cfg.Cache.PriceTTL, ov.Cache.PriceTTL); err != nil {
		return err
	}
	if ov.RateLimit.Capacity > 0 {
		cfg.RateLimit.Capacity = ov.RateLimit.Capacity
	}
	if ov.RateLimit.RefillTokens > 0 {
		cfg.RateLimit.RefillTokens = ov.RateLimit.RefillTokens
	}
	if err := overlayDur(&cfg.RateLimit.RefillInterval, ov.RateLimit.RefillInterval); err != nil {
		return err
	}
	if ov.Maintenance.Schedule != "" {
		cfg.Maintain.Schedule = ov.Maintenance.Schedule
	}
	return nil
}

func overlayDur(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*dst = d
	return nil
}
