package scheduler

import (
	"time"

	"github.com/smallbiznis/memberhud/internal/config"
)

// Config controls how often communities are synced.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	Communities []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Hour,
		JobTimeout:  10 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Sync.SchedulerEnable,
		RunInterval: cfg.Sync.Interval,
		JobTimeout:  cfg.Sync.Timeout * time.Duration(maxInt(len(cfg.Sync.Communities), 1)),
		Communities: cfg.Sync.Communities,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func maxInt(values ...int) int {
	out := 0
	for _, v := range values {
		if v > out {
			out = v
		}
	}
	return out
}
