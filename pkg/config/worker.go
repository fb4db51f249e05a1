package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAddress is where the worker listens and the scheduler dials.
const DefaultAddress = "127.0.0.1:5555"

// WorkerConfig configures the worker process.
// Example YAML:
//
//	worker:
//	  listen: "127.0.0.1:5555"
//	  kind: tcp
//	  name: worker-1
//	  reply_ttl: 5m
//	  output_dir: ./out
//	  departments: [IT, Finance]
type WorkerConfig struct {
	Listen string `mapstructure:"listen"`
	Kind   string `mapstructure:"kind"`
	// Name identifies the worker in control replies; empty picks a random one.
	Name string `mapstructure:"name"`
	// ReplyTTL is how long replies are kept for retried requests. Zero
	// disables the reply cache.
	ReplyTTL time.Duration `mapstructure:"reply_ttl"`
	// OutputDir receives files written by tasks.
	OutputDir string `mapstructure:"output_dir"`
	// Departments kept by the filter_departments task.
	Departments []string `mapstructure:"departments"`
}

func (w WorkerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("worker.listen", w.Listen)
	v.SetDefault("worker.kind", w.Kind)
	v.SetDefault("worker.name", w.Name)
	v.SetDefault("worker.reply_ttl", w.ReplyTTL)
	v.SetDefault("worker.output_dir", w.OutputDir)
	v.SetDefault("worker.departments", w.Departments)
}

func (w *WorkerConfig) validate() error {
	w.Kind = strings.ToLower(strings.TrimSpace(w.Kind))
	if strings.TrimSpace(w.Listen) == "" {
		return fmt.Errorf("worker.listen is required")
	}
	if w.ReplyTTL < 0 {
		return fmt.Errorf("invalid worker.reply_ttl: %s", w.ReplyTTL)
	}
	return nil
}
