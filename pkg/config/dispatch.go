package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DispatchConfig configures the scheduler's connection to the worker.
type DispatchConfig struct {
	Address string `mapstructure:"address"`
	Kind    string `mapstructure:"kind"`
	// Format of request bodies: cbor, json or proto.
	Format string `mapstructure:"format"`
	// Timeout per call. Zero waits forever.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries resends a call after a timeout or connection error.
	MaxRetries     uint64        `mapstructure:"max_retries"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	// DialAttempts caps connection retries while the worker is unreachable.
	DialAttempts uint64 `mapstructure:"dial_attempts"`
	FragmentSize int    `mapstructure:"fragment_size"`
}

func (d DispatchConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("dispatch.address", d.Address)
	v.SetDefault("dispatch.kind", d.Kind)
	v.SetDefault("dispatch.format", d.Format)
	v.SetDefault("dispatch.timeout", d.Timeout)
	v.SetDefault("dispatch.max_retries", d.MaxRetries)
	v.SetDefault("dispatch.backoff_initial", d.BackoffInitial)
	v.SetDefault("dispatch.backoff_max", d.BackoffMax)
	v.SetDefault("dispatch.dial_attempts", d.DialAttempts)
	v.SetDefault("dispatch.fragment_size", d.FragmentSize)
}

func (d *DispatchConfig) validate() error {
	d.Kind = strings.ToLower(strings.TrimSpace(d.Kind))
	d.Format = strings.ToLower(strings.TrimSpace(d.Format))
	switch d.Format {
	case "", "cbor", "json", "proto", "protobuf":
	default:
		return fmt.Errorf("invalid dispatch.format: %q", d.Format)
	}
	if d.Timeout < 0 {
		return fmt.Errorf("invalid dispatch.timeout: %s", d.Timeout)
	}
	if d.FragmentSize < 0 {
		return fmt.Errorf("invalid dispatch.fragment_size: %d", d.FragmentSize)
	}
	return nil
}
