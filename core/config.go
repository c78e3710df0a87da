package core

import (
	"fmt"
	"strings"
	"time"
)

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `koanf:"max_delay" mapstructure:"max_delay"`
	MaxRetries int           `koanf:"max_retries" mapstructure:"max_retries"`
	SweepBatch int           `koanf:"sweep_batch" mapstructure:"sweep_batch"`
}

type AutoDisableConfig struct {
	Threshold int `koanf:"threshold" mapstructure:"threshold"`
}

type DispatchConfig struct {
	MaxConcurrent int `koanf:"max_concurrent" mapstructure:"max_concurrent"`
}

type CleanupConfig struct {
	RetentionDays int `koanf:"retention_days" mapstructure:"retention_days"`
}

type Config struct {
	ServiceName          string            `koanf:"service_name" mapstructure:"service_name"`
	DefaultTimeout       time.Duration     `koanf:"default_timeout" mapstructure:"default_timeout"`
	ResponseSnippetBytes int               `koanf:"response_snippet_bytes" mapstructure:"response_snippet_bytes"`
	Retry                RetryConfig       `koanf:"retry" mapstructure:"retry"`
	AutoDisable          AutoDisableConfig `koanf:"auto_disable" mapstructure:"auto_disable"`
	Dispatch             DispatchConfig    `koanf:"dispatch" mapstructure:"dispatch"`
	Cleanup              CleanupConfig     `koanf:"cleanup" mapstructure:"cleanup"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:          "webhooks",
		DefaultTimeout:       30 * time.Second,
		ResponseSnippetBytes: 4 << 10,
		Retry: RetryConfig{
			BaseDelay:  10 * time.Second,
			MaxDelay:   15 * time.Minute,
			MaxRetries: 5,
			SweepBatch: 50,
		},
		AutoDisable: AutoDisableConfig{Threshold: 10},
		Dispatch:    DispatchConfig{MaxConcurrent: 16},
		Cleanup:     CleanupConfig{RetentionDays: 30},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("core: default_timeout must not be negative")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("core: retry delays must not be negative")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("core: retry base_delay exceeds max_delay")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("core: retry max_retries must not be negative")
	}
	if c.AutoDisable.Threshold < 0 {
		return fmt.Errorf("core: auto_disable threshold must not be negative")
	}
	if c.Cleanup.RetentionDays < 0 {
		return fmt.Errorf("core: cleanup retention_days must not be negative")
	}
	return nil
}
