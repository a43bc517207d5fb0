package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// flagValues holds command-line overrides; only flags the user set are applied
type flagValues struct {
	set *pflag.FlagSet

	configFile     string
	host           string
	cpcName        string
	mappings       []string
	pollInterval   time.Duration
	strategy       string
	firewallDriver string
	healthPort     string
	logLevel       string
	debounceScans  int
}

// newFlagSet returns the agent's command-line flags bound to values
func newFlagSet(values *flagValues) *pflag.FlagSet {
	fs := pflag.NewFlagSet("dpm-agent", pflag.ContinueOnError)
	fs.StringVar(&values.configFile, "config-file", "", "path to a YAML or TOML config file")
	fs.StringVar(&values.host, "host", "", "host name reported by the agent")
	fs.StringVar(&values.cpcName, "cpc-name", "", "name of the DPM-enabled CPC managed by this agent")
	fs.StringArrayVar(&values.mappings, "physical-adapter-mappings", nil, "NETWORK:ADAPTER_ID[:PORT] entries separated by ',' or ';' (repeatable)")
	fs.DurationVar(&values.pollInterval, "poll-interval", 0, "interval between reconciliation passes")
	fs.StringVar(&values.strategy, "polling-strategy", "", "polling strategy: fixed, backoff or adaptive")
	fs.StringVar(&values.firewallDriver, "firewall-driver", "", "security group firewall driver")
	fs.StringVar(&values.healthPort, "health-port", "", "port of the health and metrics server")
	fs.StringVar(&values.logLevel, "log-level", "", "log level")
	fs.IntVar(&values.debounceScans, "removal-debounce-scans", 0, "consecutive scans a device must be missing before it is removed")
	return fs
}

func parseFlags(args []string) (*flagValues, error) {
	values := &flagValues{}
	values.set = newFlagSet(values)
	if err := values.set.Parse(args); err != nil {
		return nil, err
	}
	return values, nil
}

func (v *flagValues) apply(config *Config) error {
	changed := v.set.Changed

	if changed("host") {
		config.Agent.Host = v.host
	}
	if changed("cpc-name") {
		config.DPM.CPCName = v.cpcName
	}
	if changed("physical-adapter-mappings") {
		var entries []string
		for _, m := range v.mappings {
			entries = append(entries, SplitMappings(m)...)
		}
		config.DPM.PhysicalAdapterMappings = entries
	}
	if changed("poll-interval") {
		if v.pollInterval <= 0 {
			return fmt.Errorf("--poll-interval must be positive, got %v", v.pollInterval)
		}
		config.Agent.PollInterval = v.pollInterval
	}
	if changed("polling-strategy") {
		config.Agent.PollingStrategy = v.strategy
	}
	if changed("firewall-driver") {
		config.Agent.FirewallDriver = v.firewallDriver
	}
	if changed("health-port") {
		config.Health.Port = v.healthPort
	}
	if changed("log-level") {
		config.LogLevel = v.logLevel
	}
	if changed("removal-debounce-scans") {
		config.Agent.RemovalDebounceScans = v.debounceScans
	}
	return nil
}
