package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the flat on-disk layout shared by the YAML and TOML formats
type fileConfig struct {
	Host                    string   `yaml:"host" toml:"host"`
	CPCName                 string   `yaml:"cpc_name" toml:"cpc_name"`
	PhysicalAdapterMappings []string `yaml:"physical_adapter_mappings" toml:"physical_adapter_mappings"`
	PollInterval            string   `yaml:"poll_interval" toml:"poll_interval"`
	MaxPollInterval         string   `yaml:"max_poll_interval" toml:"max_poll_interval"`
	PollingStrategy         string   `yaml:"polling_strategy" toml:"polling_strategy"`
	QuittingRPCTimeout      string   `yaml:"quitting_rpc_timeout" toml:"quitting_rpc_timeout"`
	DeviceQueryTimeout      string   `yaml:"device_query_timeout" toml:"device_query_timeout"`
	WiringTimeout           string   `yaml:"wiring_timeout" toml:"wiring_timeout"`
	RemovalDebounceScans    int      `yaml:"removal_debounce_scans" toml:"removal_debounce_scans"`
	FirewallDriver          string   `yaml:"firewall_driver" toml:"firewall_driver"`
	DBHost                  string   `yaml:"db_host" toml:"db_host"`
	DBPort                  string   `yaml:"db_port" toml:"db_port"`
	DBUser                  string   `yaml:"db_user" toml:"db_user"`
	DBPassword              string   `yaml:"db_password" toml:"db_password"`
	DBName                  string   `yaml:"db_name" toml:"db_name"`
	HealthPort              string   `yaml:"health_port" toml:"health_port"`
	TracingEnabled          bool     `yaml:"tracing_enabled" toml:"tracing_enabled"`
	LogLevel                string   `yaml:"log_level" toml:"log_level"`
}

// loadFile overlays keys present in a YAML (.yaml, .yml) or TOML (.toml) file onto config
func loadFile(path string, config *Config) error {
	var raw fileConfig
	var defined func(key string) bool

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		defined = func(key string) bool { return meta.IsDefined(key) }

	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read yaml: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
		keys := map[string]interface{}{}
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
		defined = func(key string) bool {
			_, ok := keys[key]
			return ok
		}

	default:
		return fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}

	return raw.apply(config, defined)
}

func (f *fileConfig) apply(config *Config, defined func(string) bool) error {
	setString := func(key, value string, dst *string) {
		if defined(key) {
			if v := strings.TrimSpace(value); v != "" {
				*dst = v
			}
		}
	}
	setDuration := func(key, value string, dst *time.Duration) error {
		if !defined(key) {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("host", f.Host, &config.Agent.Host)
	setString("cpc_name", f.CPCName, &config.DPM.CPCName)
	if defined("physical_adapter_mappings") {
		config.DPM.PhysicalAdapterMappings = SplitMappings(strings.Join(f.PhysicalAdapterMappings, ","))
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"poll_interval", f.PollInterval, &config.Agent.PollInterval},
		{"max_poll_interval", f.MaxPollInterval, &config.Agent.MaxPollInterval},
		{"quitting_rpc_timeout", f.QuittingRPCTimeout, &config.Agent.QuittingRPCTimeout},
		{"device_query_timeout", f.DeviceQueryTimeout, &config.Agent.DeviceQueryTimeout},
		{"wiring_timeout", f.WiringTimeout, &config.Agent.WiringTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.key, d.value, d.dst); err != nil {
			return err
		}
	}

	setString("polling_strategy", f.PollingStrategy, &config.Agent.PollingStrategy)
	if defined("removal_debounce_scans") {
		config.Agent.RemovalDebounceScans = f.RemovalDebounceScans
	}
	setString("firewall_driver", f.FirewallDriver, &config.Agent.FirewallDriver)

	setString("db_host", f.DBHost, &config.Database.Host)
	setString("db_port", f.DBPort, &config.Database.Port)
	setString("db_user", f.DBUser, &config.Database.User)
	setString("db_password", f.DBPassword, &config.Database.Password)
	setString("db_name", f.DBName, &config.Database.Database)

	setString("health_port", f.HealthPort, &config.Health.Port)
	if defined("tracing_enabled") {
		config.Tracing.Enabled = f.TracingEnabled
	}
	setString("log_level", f.LogLevel, &config.LogLevel)

	return nil
}
