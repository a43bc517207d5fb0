package interfaces

import (
	"context"

	"dpm-agent/internal/domain/entities"
)

// ChassisInventory는 하드웨어 관리 콘솔의 인벤토리 조회 인터페이스입니다
type ChassisInventory interface {
	// FindChassis는 이름으로 섀시를 조회합니다. 없으면 NOT_FOUND 에러를 반환합니다.
	FindChassis(ctx context.Context, name string) (*entities.Chassis, error)
}

// DeviceSource는 이 호스트에 바인딩된 포트 정보를 제공하는 저장소입니다
type DeviceSource interface {
	ListDeviceIDs(ctx context.Context, host string) ([]entities.DeviceID, error)
	GetDevice(ctx context.Context, host string, id entities.DeviceID) (*entities.Device, error)
}

// WiringStore는 어댑터 포트 바인딩과 스푸핑 방지 상태를 호스트 단위로 기록합니다.
// 모든 작업은 host가 기록한 행만 읽고 바꿉니다.
type WiringStore interface {
	UpsertBinding(ctx context.Context, host string, id entities.DeviceID, ap entities.AdapterPort, adminStateUp bool) error
	DeleteBinding(ctx context.Context, host string, id entities.DeviceID) error
	SetAdminState(ctx context.Context, host string, id entities.DeviceID, up bool) error
	SetProtected(ctx context.Context, host string, ids []entities.DeviceID, protected bool) error
	ListProtected(ctx context.Context, host string) ([]entities.DeviceID, error)
}
