package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dpm-agent/internal/domain/constants"
	"dpm-agent/internal/domain/errors"
	"dpm-agent/pkg/utils"
)

// Config is a struct that holds application configuration
type Config struct {
	Agent    AgentConfig
	DPM      DPMConfig
	Database DatabaseConfig
	Health   HealthConfig
	Tracing  TracingConfig
	LogLevel string
}

// AgentConfig holds reconciliation loop settings
type AgentConfig struct {
	Host                 string
	PollInterval         time.Duration
	MaxPollInterval      time.Duration
	PollingStrategy      string
	QuittingRPCTimeout   time.Duration
	DeviceQueryTimeout   time.Duration
	WiringTimeout        time.Duration
	RemovalDebounceScans int
	FirewallDriver       string
	StartupRetries       int
	StartupRetryDelay    time.Duration
}

// DPMConfig holds the chassis name and the raw interface mapping entries
type DPMConfig struct {
	CPCName                 string
	PhysicalAdapterMappings []string
}

// DatabaseConfig is a struct that holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// HealthConfig is a struct that holds health check configuration
type HealthConfig struct {
	Port string
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRatio float64
}

// Polling strategies accepted by AgentConfig.PollingStrategy
const (
	StrategyFixed    = "fixed"
	StrategyBackoff  = "backoff"
	StrategyAdaptive = "adaptive"
)

// ConfigLoader is an interface for loading configuration
type ConfigLoader interface {
	Load() (*Config, error)
}

// EnvironmentConfigLoader loads configuration in layers:
// defaults, then an optional YAML or TOML file, then environment variables, then command-line flags.
type EnvironmentConfigLoader struct {
	args []string
}

// NewEnvironmentConfigLoader creates a new EnvironmentConfigLoader.
// args are the command-line arguments without the program name.
func NewEnvironmentConfigLoader(args []string) ConfigLoader {
	return &EnvironmentConfigLoader{args: args}
}

// Load loads and validates the configuration
func (l *EnvironmentConfigLoader) Load() (*Config, error) {
	flags, err := parseFlags(l.args)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to parse command-line flags", err)
	}

	config := Defaults()

	path := getEnvOrDefault("CONFIG_FILE", "")
	if flags.configFile != "" {
		path = flags.configFile
	}
	if path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("failed to load config file %s", path), err)
		}
	}

	applyEnvironment(config)
	if err := flags.apply(config); err != nil {
		return nil, errors.NewConfigurationError("invalid command-line flag", err)
	}

	if err := l.validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	host, _ := os.Hostname()
	return &Config{
		Agent: AgentConfig{
			Host:                 host,
			PollInterval:         constants.DefaultPollInterval,
			MaxPollInterval:      constants.DefaultMaxPollInterval,
			PollingStrategy:      constants.DefaultPollingStrategy,
			QuittingRPCTimeout:   constants.DefaultQuittingRPCTimeout,
			DeviceQueryTimeout:   constants.DefaultDeviceQueryTimeout,
			WiringTimeout:        constants.DefaultWiringTimeout,
			RemovalDebounceScans: constants.DefaultRemovalDebounceScans,
			FirewallDriver:       constants.DefaultFirewallDriver,
			StartupRetries:       3,
			StartupRetryDelay:    2 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         constants.DefaultDBHost,
			Port:         constants.DefaultDBPort,
			User:         "dpm",
			Database:     constants.DefaultDBName,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			MaxLifetime:  5 * time.Minute,
		},
		Health: HealthConfig{
			Port: constants.DefaultHealthPort,
		},
		Tracing: TracingConfig{
			ServiceName: constants.AgentBinary,
			SampleRatio: 1.0,
		},
		LogLevel: constants.DefaultLogLevel,
	}
}

// applyEnvironment overrides config values with environment variables that are set
func applyEnvironment(config *Config) {
	config.Agent.Host = getEnvOrDefault("AGENT_HOST", config.Agent.Host)
	config.Agent.PollInterval = getEnvDurationOrDefault("POLL_INTERVAL", config.Agent.PollInterval)
	config.Agent.MaxPollInterval = getEnvDurationOrDefault("MAX_POLL_INTERVAL", config.Agent.MaxPollInterval)
	config.Agent.PollingStrategy = getEnvOrDefault("POLLING_STRATEGY", config.Agent.PollingStrategy)
	config.Agent.QuittingRPCTimeout = getEnvDurationOrDefault("QUITTING_RPC_TIMEOUT", config.Agent.QuittingRPCTimeout)
	config.Agent.DeviceQueryTimeout = getEnvDurationOrDefault("DEVICE_QUERY_TIMEOUT", config.Agent.DeviceQueryTimeout)
	config.Agent.WiringTimeout = getEnvDurationOrDefault("WIRING_TIMEOUT", config.Agent.WiringTimeout)
	config.Agent.RemovalDebounceScans = getEnvIntOrDefault("REMOVAL_DEBOUNCE_SCANS", config.Agent.RemovalDebounceScans)
	config.Agent.FirewallDriver = getEnvOrDefault("FIREWALL_DRIVER", config.Agent.FirewallDriver)
	config.Agent.StartupRetries = getEnvIntOrDefault("STARTUP_RETRIES", config.Agent.StartupRetries)
	config.Agent.StartupRetryDelay = getEnvDurationOrDefault("STARTUP_RETRY_DELAY", config.Agent.StartupRetryDelay)

	config.DPM.CPCName = getEnvOrDefault("CPC_NAME", config.DPM.CPCName)
	if value := os.Getenv("PHYSICAL_ADAPTER_MAPPINGS"); value != "" {
		config.DPM.PhysicalAdapterMappings = SplitMappings(value)
	}

	config.Database.Host = getEnvOrDefault("DB_HOST", config.Database.Host)
	config.Database.Port = getEnvOrDefault("DB_PORT", config.Database.Port)
	config.Database.User = getEnvOrDefault("DB_USER", config.Database.User)
	config.Database.Password = getEnvOrDefault("DB_PASSWORD", config.Database.Password)
	config.Database.Database = getEnvOrDefault("DB_NAME", config.Database.Database)
	config.Database.MaxOpenConns = getEnvIntOrDefault("DB_MAX_OPEN_CONNS", config.Database.MaxOpenConns)
	config.Database.MaxIdleConns = getEnvIntOrDefault("DB_MAX_IDLE_CONNS", config.Database.MaxIdleConns)
	config.Database.MaxLifetime = getEnvDurationOrDefault("DB_MAX_LIFETIME", config.Database.MaxLifetime)

	config.Health.Port = getEnvOrDefault("HEALTH_PORT", config.Health.Port)

	config.Tracing.Enabled = getEnvBoolOrDefault("TRACING_ENABLED", config.Tracing.Enabled)
	config.Tracing.ServiceName = getEnvOrDefault("TRACING_SERVICE_NAME", config.Tracing.ServiceName)
	config.Tracing.SampleRatio = getEnvFloatOrDefault("TRACING_SAMPLE_RATIO", config.Tracing.SampleRatio)

	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
}

// validate validates the configuration
func (l *EnvironmentConfigLoader) validate(config *Config) error {
	if err := utils.ValidateHostname(config.Agent.Host); err != nil {
		return errors.NewConfigurationError("invalid agent host", err)
	}
	if config.Agent.PollInterval <= 0 {
		return errors.NewConfigurationError("invalid polling interval", nil)
	}
	if config.Agent.QuittingRPCTimeout <= 0 {
		return errors.NewConfigurationError("invalid quitting rpc timeout", nil)
	}
	if config.Agent.DeviceQueryTimeout <= 0 {
		return errors.NewConfigurationError("invalid device query timeout", nil)
	}
	if config.Agent.WiringTimeout <= 0 {
		return errors.NewConfigurationError("invalid wiring timeout", nil)
	}
	if config.Agent.RemovalDebounceScans < 1 {
		return errors.NewConfigurationError("removal debounce scans must be at least 1", nil)
	}
	if config.Agent.StartupRetries < 0 {
		return errors.NewConfigurationError("invalid startup retry count", nil)
	}
	switch config.Agent.PollingStrategy {
	case StrategyFixed, StrategyBackoff, StrategyAdaptive:
	default:
		return errors.NewConfigurationError(fmt.Sprintf("unknown polling strategy %q", config.Agent.PollingStrategy), nil)
	}
	if config.Agent.FirewallDriver == "" {
		return errors.NewConfigurationError("firewall driver not configured", nil)
	}

	if config.DPM.CPCName == "" {
		return errors.NewConfigurationError("CPC name not configured", nil)
	}
	if len(config.DPM.PhysicalAdapterMappings) == 0 {
		return errors.NewConfigurationError("physical adapter mappings not configured", nil)
	}

	db := config.Database
	if err := utils.ValidateDatabaseConfig(db.Host, db.Port, db.User, db.Database); err != nil {
		return errors.NewConfigurationError("invalid database configuration", err)
	}

	if config.Health.Port == "" {
		return errors.NewConfigurationError("health check port not configured", nil)
	}
	if config.Tracing.SampleRatio < 0 || config.Tracing.SampleRatio > 1 {
		return errors.NewConfigurationError("tracing sample ratio must be between 0 and 1", nil)
	}

	return nil
}

// SplitMappings splits a mapping list separated by ',' or ';' and drops empty entries
func SplitMappings(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Environment variable helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
