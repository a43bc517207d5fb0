package inventory

import (
	"context"
	"fmt"
	"time"

	"dpm-agent/internal/domain/constants"
	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/errors"
	"dpm-agent/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// DeviceInventory는 이 에이전트가 관리하는 디바이스 집합과 에이전트 식별 정보를 제공합니다
type DeviceInventory struct {
	gateway      interfaces.PortWiringGateway
	mapping      *entities.InterfaceMapping
	host         string
	queryTimeout time.Duration
	logger       *logrus.Logger
}

// NewDeviceInventory는 새로운 DeviceInventory를 생성합니다
func NewDeviceInventory(
	gateway interfaces.PortWiringGateway,
	mapping *entities.InterfaceMapping,
	host string,
	queryTimeout time.Duration,
	logger *logrus.Logger,
) *DeviceInventory {
	return &DeviceInventory{
		gateway:      gateway,
		mapping:      mapping,
		host:         host,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// Scan은 현재 관리 중인 모든 디바이스 식별자를 조회합니다. 결과가 없으면 빈 집합을 반환합니다.
func (i *DeviceInventory) Scan(ctx context.Context) (entities.DeviceSet, error) {
	if i.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.queryTimeout)
		defer cancel()
	}

	devices, err := i.gateway.ListAll(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewTimeoutError(fmt.Sprintf("device scan timed out after %v", i.queryTimeout))
		}
		return nil, err
	}
	if devices == nil {
		devices = make(entities.DeviceSet)
	}
	return devices, nil
}

// DescribeConfiguration은 상태 보고용 인터페이스 매핑을 반환합니다
func (i *DeviceInventory) DescribeConfiguration() map[string]map[string]string {
	return i.mapping.ToMap()
}

// AgentIdentifier는 에이전트 타입과 호스트명을 결합한 식별자를 반환합니다
func (i *DeviceInventory) AgentIdentifier() string {
	return fmt.Sprintf("%s-%s", constants.AgentIDPrefix, i.host)
}

// Host는 에이전트 호스트명을 반환합니다
func (i *DeviceInventory) Host() string {
	return i.host
}

// AgentType은 보고되는 에이전트 타입 태그를 반환합니다
func (i *DeviceInventory) AgentType() string {
	return constants.AgentType
}

// Binary는 에이전트 바이너리 이름을 반환합니다
func (i *DeviceInventory) Binary() string {
	return constants.AgentBinary
}

// ExtensionDriverType은 확장 드라이버 타입을 반환합니다
func (i *DeviceInventory) ExtensionDriverType() string {
	return constants.ExtensionDriverType
}

// RPCConsumers는 에이전트가 구독하는 토픽 목록을 반환합니다
func (i *DeviceInventory) RPCConsumers() [][2]string {
	return [][2]string{
		{constants.TopicPort, constants.TopicUpdate},
		{constants.TopicSecurityGroup, constants.TopicUpdate},
	}
}

// DevicesModifiedTimestamps는 빠른 인스턴스 재생성 감지를 위한 확장 지점입니다.
// 아직 디바이스 소스가 수정 시각을 제공하지 않으므로 빈 맵을 반환합니다.
func (i *DeviceInventory) DevicesModifiedTimestamps(ids []entities.DeviceID) map[entities.DeviceID]time.Time {
	return map[entities.DeviceID]time.Time{}
}
