package interfaces

import (
	"context"

	"dpm-agent/internal/domain/entities"
)

// PortWiringGateway는 디바이스를 실제로 연결/해제/보호하는 외부 작업의 경계입니다.
// 모든 작업은 멱등이며 재시도해도 안전해야 합니다.
type PortWiringGateway interface {
	// ListAll은 이 에이전트가 관리하는 모든 디바이스 식별자를 반환합니다
	ListAll(ctx context.Context) (entities.DeviceSet, error)

	// DeviceDetails는 디바이스의 현재 상태(관리 상태, 물리 네트워크 등)를 조회합니다
	DeviceDetails(ctx context.Context, id entities.DeviceID) (entities.Device, error)

	// Attach는 디바이스를 어댑터 포트에 연결하고 연결 여부를 반환합니다
	Attach(ctx context.Context, device entities.Device) (bool, error)

	// Detach는 디바이스의 어댑터 포트 연결을 해제합니다
	Detach(ctx context.Context, id entities.DeviceID) error

	// SetAdminState는 디바이스의 관리 상태를 설정합니다
	SetAdminState(ctx context.Context, id entities.DeviceID, up bool) error

	// Protect는 디바이스에 ARP 스푸핑 방지를 설정합니다
	Protect(ctx context.Context, device entities.Device) error

	// Unprotect는 디바이스들의 ARP 스푸핑 방지를 제거합니다
	Unprotect(ctx context.Context, ids []entities.DeviceID) error

	// UnprotectUnreferenced는 current에 없는 디바이스의 보호 상태를 정리합니다
	UnprotectUnreferenced(ctx context.Context, current entities.DeviceSet) error
}
