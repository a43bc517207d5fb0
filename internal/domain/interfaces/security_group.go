package interfaces

import "context"

// SecurityGroupFilter는 보안 그룹 필터링 협력자입니다 (DPM에서는 no-op 드라이버만 지원)
type SecurityGroupFilter interface {
	// Name은 설정된 방화벽 드라이버 이름을 반환합니다
	Name() string
	// RefreshFirewall은 디바이스들의 필터 규칙을 갱신합니다
	RefreshFirewall(ctx context.Context, devices []string) error
}
