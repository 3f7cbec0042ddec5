package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AnalyticsConfig tunes report generation. It is hot reloaded from analytics.yml.
type AnalyticsConfig struct {
	WindowDays       int     `mapstructure:"window_days"`
	CohortMaxMonths  int     `mapstructure:"cohort_max_months"`
	GrowthCeilingPct float64 `mapstructure:"growth_ceiling_pct"`
	MemberCeilingPct float64 `mapstructure:"member_ceiling_pct"`
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		WindowDays:       30,
		CohortMaxMonths:  6,
		GrowthCeilingPct: 0.95,
		MemberCeilingPct: 0.99,
	}
}

type AnalyticsConfigHolder struct {
	current atomic.Value // holds AnalyticsConfig
}

// NewStaticAnalyticsConfigHolder returns a holder that never reloads.
func NewStaticAnalyticsConfigHolder(cfg AnalyticsConfig) *AnalyticsConfigHolder {
	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewAnalyticsConfigHolder(cfg Config, log *zap.Logger) (*AnalyticsConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("analytics-config")

	v := viper.New()
	v.SetConfigName("analytics")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(cfg.AnalyticsConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/memberhud")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEMBERHUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAnalyticsConfig()
	v.SetDefault("analytics.window_days", defaults.WindowDays)
	v.SetDefault("analytics.cohort_max_months", defaults.CohortMaxMonths)
	v.SetDefault("analytics.growth_ceiling_pct", defaults.GrowthCeilingPct)
	v.SetDefault("analytics.member_ceiling_pct", defaults.MemberCeilingPct)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	loaded, err := unmarshalAnalytics(v)
	if err != nil {
		return nil, err
	}
	if err := validateAnalyticsConfig(loaded); err != nil {
		return nil, err
	}

	holder := NewStaticAnalyticsConfigHolder(loaded)
	if !fileFound {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalAnalytics(v)
		if err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateAnalyticsConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// unmarshalAnalytics goes through AllSettings so keys missing from the file
// keep their defaults.
func unmarshalAnalytics(v *viper.Viper) (AnalyticsConfig, error) {
	var wrapper struct {
		Analytics AnalyticsConfig `mapstructure:"analytics"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return AnalyticsConfig{}, err
	}
	return wrapper.Analytics, nil
}

func (h *AnalyticsConfigHolder) Get() AnalyticsConfig {
	if h == nil {
		return DefaultAnalyticsConfig()
	}
	cfg, ok := h.current.Load().(AnalyticsConfig)
	if !ok {
		return DefaultAnalyticsConfig()
	}
	return cfg
}

func validateAnalyticsConfig(cfg AnalyticsConfig) error {
	if cfg.WindowDays <= 0 {
		return errors.New("analytics.window_days must be positive")
	}
	if cfg.CohortMaxMonths <= 0 {
		return errors.New("analytics.cohort_max_months must be positive")
	}
	if cfg.GrowthCeilingPct <= 0 || cfg.GrowthCeilingPct >= 1 {
		return errors.New("analytics.growth_ceiling_pct must be in (0,1)")
	}
	if cfg.MemberCeilingPct <= 0 || cfg.MemberCeilingPct >= 1 {
		return errors.New("analytics.member_ceiling_pct must be in (0,1)")
	}
	return nil
}
