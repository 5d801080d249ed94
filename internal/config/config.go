// Package config loads process configuration for the work-platform
// binaries (dispatcher, scheduler, fanout coordinator, reapers, CLI).
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for a work-platform process. Environment
// variables are parsed with the WORKQUEUE prefix, e.g. WORKQUEUE_POSTGRES_DSN.
type Config struct {
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Outbox dispatcher
	DispatchBatchSize   int    `envconfig:"DISPATCH_BATCH_SIZE" default:"50"`
	DispatchLeaseSecs   int    `envconfig:"DISPATCH_LEASE_SECONDS" default:"30"`
	DispatchConcurrency int    `envconfig:"DISPATCH_CONCURRENCY" default:"8"`
	DispatchMaxAttempts int    `envconfig:"DISPATCH_MAX_ATTEMPTS" default:"10"`
	DispatchBackoffCap  int    `envconfig:"DISPATCH_BACKOFF_CAP_SECONDS" default:"300"`
	PollInterval        string `envconfig:"POLL_INTERVAL" default:"2s"`

	// Reapers
	ReapInterval string `envconfig:"REAP_INTERVAL" default:"10s"`

	// Retention
	OutboxRetention string `envconfig:"OUTBOX_RETENTION" default:"168h"`
	InboxRetention  string `envconfig:"INBOX_RETENTION" default:"168h"`

	// Scheduler / Fanout leases
	SchedulerLeaseSecs int    `envconfig:"SCHEDULER_LEASE_SECONDS" default:"30"`
	SchedulerTick      string `envconfig:"SCHEDULER_TICK_INTERVAL" default:"1s"`
	FanoutLeaseSecs    int    `envconfig:"FANOUT_LEASE_SECONDS" default:"30"`
	FanoutTick         string `envconfig:"FANOUT_TICK_INTERVAL" default:"5s"`

	// Semaphore bounds (§4.6 validation)
	SemaphoreMaxTTLSeconds int `envconfig:"SEMAPHORE_MAX_TTL_SECONDS" default:"3600"`
	SemaphoreMaxLimit      int `envconfig:"SEMAPHORE_MAX_LIMIT" default:"10000"`

	InstanceID string `envconfig:"INSTANCE_ID" default:""`
}

// ResolveDefaults fills in values that have no static default.
func (c *Config) ResolveDefaults() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("WORKQUEUE_POSTGRES_DSN is required")
	}
	if c.InstanceID == "" {
		c.InstanceID = defaultInstanceID()
	}
	return nil
}

// New parses environment variables prefixed WORKQUEUE_ into a Config.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("WORKQUEUE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Int("dispatch_batch_size", cfg.DispatchBatchSize).
		Int("dispatch_concurrency", cfg.DispatchConcurrency).
		Str("poll_interval", cfg.PollInterval).
		Str("instance_id", cfg.InstanceID).
		Msg("configuration loaded")

	return &cfg, nil
}

// NewForTesting returns a Config populated with sane test defaults. Callers
// still need to set PostgresDSN before use.
func NewForTesting() *Config {
	return &Config{
		DispatchBatchSize:      50,
		DispatchLeaseSecs:      30,
		DispatchConcurrency:    4,
		DispatchMaxAttempts:    5,
		DispatchBackoffCap:     60,
		PollInterval:           "50ms",
		ReapInterval:           "50ms",
		OutboxRetention:        "24h",
		InboxRetention:         "24h",
		SchedulerLeaseSecs:     10,
		SchedulerTick:          "50ms",
		FanoutLeaseSecs:        10,
		FanoutTick:             "50ms",
		SemaphoreMaxTTLSeconds: 3600,
		SemaphoreMaxLimit:      10000,
		InstanceID:             "test-instance",
	}
}

func defaultInstanceID() string {
	host, err := osHostname()
	if err != nil || host == "" {
		return "instance"
	}
	return host
}
