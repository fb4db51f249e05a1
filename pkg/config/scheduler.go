package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Poll modes.
const (
	PollInterval  = "interval"
	PollNextStart = "next-start"
)

// Failure policies.
const (
	FailureContinue = "continue"
	FailureHalt     = "halt"
)

// SchedulerConfig configures the scheduler loop.
type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// PollMode: interval or next-start
	PollMode string `mapstructure:"poll_mode"`
	// FailurePolicy: continue or halt
	FailurePolicy string `mapstructure:"failure_policy"`
}

func (s SchedulerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.poll_interval", s.PollInterval)
	v.SetDefault("scheduler.poll_mode", s.PollMode)
	v.SetDefault("scheduler.failure_policy", s.FailurePolicy)
}

func (s *SchedulerConfig) validate() error {
	s.PollMode = strings.ToLower(strings.TrimSpace(s.PollMode))
	s.FailurePolicy = strings.ToLower(strings.TrimSpace(s.FailurePolicy))
	if s.PollMode == "" {
		s.PollMode = PollInterval
	}
	if s.FailurePolicy == "" {
		s.FailurePolicy = FailureContinue
	}
	if s.PollMode != PollInterval && s.PollMode != PollNextStart {
		return fmt.Errorf("invalid scheduler.poll_mode: %q", s.PollMode)
	}
	if s.FailurePolicy != FailureContinue && s.FailurePolicy != FailureHalt {
		return fmt.Errorf("invalid scheduler.failure_policy: %q", s.FailurePolicy)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("invalid scheduler.poll_interval: %s", s.PollInterval)
	}
	return nil
}
