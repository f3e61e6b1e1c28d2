package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/thesyncim/hwcodec"
)

// Config holds all the settings for hwprobe.
type Config struct {
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"` // auto, console or json
	SharedHandle   bool          `mapstructure:"shared_handle"`
	TrialTimeout   time.Duration `mapstructure:"trial_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Samples        SamplesConfig `mapstructure:"samples"`
	Prefer         []string      `mapstructure:"prefer"`
	LUID           int64         `mapstructure:"luid"`
	ReportURL      string        `mapstructure:"report_url"`
	Output         string        `mapstructure:"output"` // yaml or json
}

// SamplesConfig names the probing sample files.
type SamplesConfig struct {
	Dir  string `mapstructure:"dir"`
	H264 string `mapstructure:"h264"`
	H265 string `mapstructure:"h265"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
	v.SetDefault("shared_handle", false)
	v.SetDefault("trial_timeout", 10*time.Second)
	v.SetDefault("max_concurrency", 0)
	v.SetDefault("samples.dir", "")
	v.SetDefault("samples.h264", "")
	v.SetDefault("samples.h265", "")
	v.SetDefault("prefer", []string{"nv", "amf", "vpl"})
	v.SetDefault("luid", 0)
	v.SetDefault("report_url", "")
	v.SetDefault("output", "yaml")
}

// loadConfig merges defaults, the optional config file, HWPROBE_* environment
// variables and any flags already bound to v.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("HWPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Output {
	case "yaml", "json":
	default:
		return fmt.Errorf("invalid output %q (want yaml or json)", c.Output)
	}
	switch c.LogFormat {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want auto, console or json)", c.LogFormat)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative")
	}
	if _, err := c.preferredDrivers(); err != nil {
		return err
	}
	return nil
}

func (c *Config) preferredDrivers() ([]hwcodec.Driver, error) {
	// Env values arrive as one comma-separated string.
	var names []string
	for _, p := range c.Prefer {
		for _, n := range strings.Split(p, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	return hwcodec.ParseDrivers(names)
}

// sampleSet loads the configured samples. Explicit files override the
// directory.
func (c *Config) sampleSet() (*hwcodec.SampleSet, error) {
	set := hwcodec.NewSampleSet()
	if c.Samples.Dir != "" {
		loaded, err := hwcodec.LoadSampleDir(c.Samples.Dir)
		if err != nil {
			return nil, err
		}
		set = loaded
	}
	for _, path := range []string{c.Samples.H264, c.Samples.H265} {
		if path == "" {
			continue
		}
		if _, err := set.Add(path); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (c *Config) proberConfig(samples *hwcodec.SampleSet) hwcodec.ProberConfig {
	pc := hwcodec.DefaultProberConfig()
	pc.Samples = samples
	pc.TrialTimeout = c.TrialTimeout
	pc.MaxConcurrency = c.MaxConcurrency
	return pc
}
