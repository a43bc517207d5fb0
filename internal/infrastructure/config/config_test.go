package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	domainErrors "dpm-agent/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapping = "physnet1:6a3a8c52-7a6c-11e6-a52b-0a0027000001"

// clearEnv는 테스트 중 설정 관련 환경 변수를 비웁니다
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "AGENT_HOST", "POLL_INTERVAL", "MAX_POLL_INTERVAL", "POLLING_STRATEGY",
		"QUITTING_RPC_TIMEOUT", "DEVICE_QUERY_TIMEOUT", "WIRING_TIMEOUT", "REMOVAL_DEBOUNCE_SCANS",
		"FIREWALL_DRIVER", "STARTUP_RETRIES", "STARTUP_RETRY_DELAY", "CPC_NAME", "PHYSICAL_ADAPTER_MAPPINGS",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "HEALTH_PORT",
		"TRACING_ENABLED", "TRACING_SERVICE_NAME", "TRACING_SAMPLE_RATIO", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEnvironmentConfigLoader_Load(t *testing.T) {
	tests := []struct {
		name      string
		envVars   map[string]string
		args      []string
		wantError bool
		validate  func(*testing.T, *Config)
	}{
		{
			name: "기본 설정값 사용",
			envVars: map[string]string{
				"CPC_NAME":                  "cpc-1",
				"PHYSICAL_ADAPTER_MAPPINGS": testMapping,
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "3306", cfg.Database.Port)
				assert.Equal(t, "dpm", cfg.Database.Database)
				assert.Equal(t, 2*time.Second, cfg.Agent.PollInterval)
				assert.Equal(t, 10*time.Second, cfg.Agent.QuittingRPCTimeout)
				assert.Equal(t, 2, cfg.Agent.RemovalDebounceScans)
				assert.Equal(t, "noop", cfg.Agent.FirewallDriver)
				assert.Equal(t, StrategyFixed, cfg.Agent.PollingStrategy)
				assert.Equal(t, "8080", cfg.Health.Port)
				assert.False(t, cfg.Tracing.Enabled)
				assert.NotEmpty(t, cfg.Agent.Host)
			},
		},
		{
			name: "환경 변수로 설정 오버라이드",
			envVars: map[string]string{
				"CPC_NAME":                  "cpc-2",
				"PHYSICAL_ADAPTER_MAPPINGS": testMapping + ";physnet2:6a3a8c52-7a6c-11e6-a52b-0a0027000002:1, ",
				"AGENT_HOST":                "compute-7",
				"POLL_INTERVAL":             "5s",
				"WIRING_TIMEOUT":            "3s",
				"DB_HOST":                   "db.internal",
				"DB_PASSWORD":               "secret",
				"HEALTH_PORT":               "9090",
				"TRACING_ENABLED":           "true",
				"LOG_LEVEL":                 "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "cpc-2", cfg.DPM.CPCName)
				assert.Equal(t, []string{testMapping, "physnet2:6a3a8c52-7a6c-11e6-a52b-0a0027000002:1"}, cfg.DPM.PhysicalAdapterMappings)
				assert.Equal(t, "compute-7", cfg.Agent.Host)
				assert.Equal(t, 5*time.Second, cfg.Agent.PollInterval)
				assert.Equal(t, 3*time.Second, cfg.Agent.WiringTimeout)
				assert.Equal(t, "db.internal", cfg.Database.Host)
				assert.Equal(t, "secret", cfg.Database.Password)
				assert.Equal(t, "9090", cfg.Health.Port)
				assert.True(t, cfg.Tracing.Enabled)
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
		{
			name: "유효하지 않은 duration 형식은 기본값 사용",
			envVars: map[string]string{
				"CPC_NAME":                  "cpc-1",
				"PHYSICAL_ADAPTER_MAPPINGS": testMapping,
				"POLL_INTERVAL":             "invalid-duration",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Second, cfg.Agent.PollInterval)
			},
		},
		{
			name: "플래그가 환경 변수보다 우선",
			envVars: map[string]string{
				"CPC_NAME":                  "cpc-env",
				"PHYSICAL_ADAPTER_MAPPINGS": testMapping,
				"POLL_INTERVAL":             "5s",
			},
			args: []string{
				"--cpc-name", "cpc-flag",
				"--poll-interval", "7s",
				"--physical-adapter-mappings", "physnet3:6a3a8c52-7a6c-11e6-a52b-0a0027000003",
				"--physical-adapter-mappings", "physnet4:6a3a8c52-7a6c-11e6-a52b-0a0027000004;physnet5:6a3a8c52-7a6c-11e6-a52b-0a0027000005",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "cpc-flag", cfg.DPM.CPCName)
				assert.Equal(t, 7*time.Second, cfg.Agent.PollInterval)
				assert.Len(t, cfg.DPM.PhysicalAdapterMappings, 3)
			},
		},
		{
			name:      "CPC 이름 누락",
			envVars:   map[string]string{"PHYSICAL_ADAPTER_MAPPINGS": testMapping},
			wantError: true,
		},
		{
			name:      "매핑 누락",
			envVars:   map[string]string{"CPC_NAME": "cpc-1"},
			wantError: true,
		},
		{
			name: "알 수 없는 폴링 전략",
			envVars: map[string]string{
				"CPC_NAME":                  "cpc-1",
				"PHYSICAL_ADAPTER_MAPPINGS": testMapping,
				"POLLING_STRATEGY":          "random",
			},
			wantError: true,
		},
		{
			name: "알 수 없는 플래그",
			envVars: map[string]string{
				"CPC_NAME":                  "cpc-1",
				"PHYSICAL_ADAPTER_MAPPINGS": testMapping,
			},
			args:      []string{"--no-such-flag"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			loader := NewEnvironmentConfigLoader(tt.args)
			config, err := loader.Load()

			if tt.wantError {
				assert.Error(t, err)
				assert.True(t, domainErrors.IsConfigurationError(err))
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
			tt.validate(t, config)
		})
	}
}

func TestEnvironmentConfigLoader_ConfigFile(t *testing.T) {
	t.Run("YAML 파일 적용", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "agent.yaml", `
cpc_name: cpc-yaml
physical_adapter_mappings:
  - physnet1:6a3a8c52-7a6c-11e6-a52b-0a0027000001
  - physnet2:6a3a8c52-7a6c-11e6-a52b-0a0027000002:1
poll_interval: 4s
polling_strategy: backoff
removal_debounce_scans: 3
db_host: yaml-db
`)
		t.Setenv("CONFIG_FILE", path)

		cfg, err := NewEnvironmentConfigLoader(nil).Load()
		require.NoError(t, err)
		assert.Equal(t, "cpc-yaml", cfg.DPM.CPCName)
		assert.Len(t, cfg.DPM.PhysicalAdapterMappings, 2)
		assert.Equal(t, 4*time.Second, cfg.Agent.PollInterval)
		assert.Equal(t, StrategyBackoff, cfg.Agent.PollingStrategy)
		assert.Equal(t, 3, cfg.Agent.RemovalDebounceScans)
		assert.Equal(t, "yaml-db", cfg.Database.Host)
		// 파일에 없는 키는 기본값 유지
		assert.Equal(t, 10*time.Second, cfg.Agent.QuittingRPCTimeout)
	})

	t.Run("TOML 파일 적용 후 환경 변수가 우선", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "agent.toml", `
cpc_name = "cpc-toml"
physical_adapter_mappings = ["physnet1:6a3a8c52-7a6c-11e6-a52b-0a0027000001"]
wiring_timeout = "12s"
health_port = "9100"
`)
		t.Setenv("HEALTH_PORT", "9200")

		cfg, err := NewEnvironmentConfigLoader([]string{"--config-file", path}).Load()
		require.NoError(t, err)
		assert.Equal(t, "cpc-toml", cfg.DPM.CPCName)
		assert.Equal(t, 12*time.Second, cfg.Agent.WiringTimeout)
		assert.Equal(t, "9200", cfg.Health.Port)
	})

	t.Run("잘못된 duration은 에러", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "agent.toml", `
cpc_name = "cpc-toml"
physical_adapter_mappings = ["physnet1:6a3a8c52-7a6c-11e6-a52b-0a0027000001"]
poll_interval = "soon"
`)
		_, err := NewEnvironmentConfigLoader([]string{"--config-file", path}).Load()
		require.Error(t, err)
		assert.True(t, domainErrors.IsConfigurationError(err))
	})

	t.Run("알 수 없는 TOML 키는 에러", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "agent.toml", `cpc = "typo"`)
		_, err := NewEnvironmentConfigLoader([]string{"--config-file", path}).Load()
		assert.Error(t, err)
	})

	t.Run("지원하지 않는 확장자", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "agent.ini", "cpc_name=x")
		_, err := NewEnvironmentConfigLoader([]string{"--config-file", path}).Load()
		assert.Error(t, err)
	})

	t.Run("존재하지 않는 파일", func(t *testing.T) {
		clearEnv(t)
		_, err := NewEnvironmentConfigLoader([]string{"--config-file", "/nonexistent/agent.yaml"}).Load()
		assert.Error(t, err)
	})
}

func TestEnvironmentConfigLoader_validate(t *testing.T) {
	loader := &EnvironmentConfigLoader{}

	valid := func() *Config {
		cfg := Defaults()
		cfg.Agent.Host = "compute-1"
		cfg.DPM.CPCName = "cpc-1"
		cfg.DPM.PhysicalAdapterMappings = []string{testMapping}
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{name: "유효한 설정", mutate: func(*Config) {}},
		{name: "빈 DB 호스트", mutate: func(c *Config) { c.Database.Host = "" }, wantError: true},
		{name: "빈 DB 포트", mutate: func(c *Config) { c.Database.Port = "" }, wantError: true},
		{name: "잘못된 폴링 간격", mutate: func(c *Config) { c.Agent.PollInterval = -time.Second }, wantError: true},
		{name: "잘못된 종료 유예 시간", mutate: func(c *Config) { c.Agent.QuittingRPCTimeout = 0 }, wantError: true},
		{name: "잘못된 연결 제한 시간", mutate: func(c *Config) { c.Agent.WiringTimeout = 0 }, wantError: true},
		{name: "제거 유예 0회", mutate: func(c *Config) { c.Agent.RemovalDebounceScans = 0 }, wantError: true},
		{name: "빈 방화벽 드라이버", mutate: func(c *Config) { c.Agent.FirewallDriver = "" }, wantError: true},
		{name: "샘플 비율 범위 초과", mutate: func(c *Config) { c.Tracing.SampleRatio = 1.5 }, wantError: true},
		{name: "빈 헬스 포트", mutate: func(c *Config) { c.Health.Port = "" }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := loader.validate(cfg)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitMappings(t *testing.T) {
	assert.Equal(t, []string{"a:b", "c:d", "e:f"}, SplitMappings(" a:b, c:d;e:f ;;"))
	assert.Empty(t, SplitMappings(""))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Run("getEnvOrDefault", func(t *testing.T) {
		assert.Equal(t, "default", getEnvOrDefault("NON_EXISTENT_VAR", "default"))

		t.Setenv("TEST_VAR", "test_value")
		assert.Equal(t, "test_value", getEnvOrDefault("TEST_VAR", "default"))
	})

	t.Run("getEnvIntOrDefault", func(t *testing.T) {
		assert.Equal(t, 42, getEnvIntOrDefault("NON_EXISTENT_INT", 42))

		t.Setenv("TEST_INT", "123")
		assert.Equal(t, 123, getEnvIntOrDefault("TEST_INT", 42))

		t.Setenv("TEST_BAD_INT", "not_a_number")
		assert.Equal(t, 42, getEnvIntOrDefault("TEST_BAD_INT", 42))
	})

	t.Run("getEnvDurationOrDefault", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, getEnvDurationOrDefault("NON_EXISTENT_DURATION", 30*time.Second))

		t.Setenv("TEST_DURATION", "1m30s")
		assert.Equal(t, 90*time.Second, getEnvDurationOrDefault("TEST_DURATION", 30*time.Second))

		t.Setenv("TEST_BAD_DURATION", "invalid")
		assert.Equal(t, 30*time.Second, getEnvDurationOrDefault("TEST_BAD_DURATION", 30*time.Second))
	})

	t.Run("getEnvBoolOrDefault", func(t *testing.T) {
		t.Setenv("TEST_BOOL", "true")
		assert.True(t, getEnvBoolOrDefault("TEST_BOOL", false))

		t.Setenv("TEST_BAD_BOOL", "maybe")
		assert.False(t, getEnvBoolOrDefault("TEST_BAD_BOOL", false))
	})
}
