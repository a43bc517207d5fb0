package constants

import "time"

// 에이전트 식별 상수들
const (
	// AgentBinary는 서버에 보고되는 에이전트 바이너리 이름입니다
	AgentBinary = "neutron-dpm-agent"

	// AgentType은 보고되는 에이전트 타입 태그입니다
	AgentType = "Macvtap agent"

	// AgentIDPrefix는 호스트명 앞에 붙는 에이전트 식별자 접두사입니다
	AgentIDPrefix = "dpm"

	// ExtensionDriverType은 에이전트 확장 드라이버 타입입니다
	ExtensionDriverType = "dpm"

	// AgentTopic은 에이전트가 보고하는 RPC 토픽입니다
	AgentTopic = "N/A"

	// RPCVersion은 알림 콜백이 지원하는 RPC API 버전입니다
	//
	//	1.1 보안 그룹 RPC 지원
	//	1.3 security_groups_provider_updated에 devices_to_update 추가
	//	1.4 network_update 지원
	RPCVersion = "1.4"

	// Version은 agent_info 메트릭에 기록되는 버전입니다
	Version = "0.1.0"
)

// RPC 토픽 상수들
const (
	TopicPort          = "port"
	TopicSecurityGroup = "security_group"
	TopicUpdate        = "update"
)

// 지원하는 방화벽 드라이버
var SupportedFirewallDrivers = []string{
	"neutron.agent.firewall.NoopFirewallDriver",
	"noop",
}

// 기본값 상수들
const (
	// 데이터베이스 기본값
	DefaultDBHost = "localhost"
	DefaultDBPort = "3306"
	DefaultDBName = "dpm"

	// 에이전트 기본값
	DefaultPollInterval         = 2 * time.Second
	DefaultMaxPollInterval      = 60 * time.Second
	DefaultQuittingRPCTimeout   = 10 * time.Second
	DefaultDeviceQueryTimeout   = 30 * time.Second
	DefaultWiringTimeout        = 30 * time.Second
	DefaultRemovalDebounceScans = 2
	DefaultPollingStrategy      = "fixed"
	DefaultFirewallDriver       = "noop"
	DefaultLogLevel             = "info"
	DefaultHealthPort           = "8080"
)
