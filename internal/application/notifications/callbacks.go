package notifications

import (
	"context"

	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/interfaces"
	"dpm-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// Handler는 에이전트가 노출하는 알림 진입점입니다
type Handler interface {
	PortUpdate(ctx context.Context, n PortUpdateNotification)
	SecurityGroupsUpdated(ctx context.Context, devicesToUpdate []string)
	NetworkUpdate(ctx context.Context, networkID string)
}

// DeviceMarker는 변경된 디바이스를 다음 조정 패스에 넘깁니다
type DeviceMarker interface {
	MarkUpdated(id entities.DeviceID)
}

// PortPayload는 port update 알림에 포함된 포트 정보입니다
type PortPayload struct {
	ID           string `json:"id"`
	MACAddress   string `json:"mac_address"`
	NetworkID    string `json:"network_id,omitempty"`
	AdminStateUp *bool  `json:"admin_state_up,omitempty"`
}

// PortUpdateNotification은 port update 토픽의 페이로드입니다
type PortUpdateNotification struct {
	Port PortPayload `json:"port"`
}

// Callbacks는 알림을 UpdateTracker로 전달합니다.
// 알림 순서는 실제 변경 순서와 다를 수 있으므로 식별자만 저장하고
// 현재 상태는 조정 시점에 다시 조회합니다.
type Callbacks struct {
	marker DeviceMarker
	filter interfaces.SecurityGroupFilter
	logger *logrus.Logger
}

// NewCallbacks는 새로운 Callbacks를 생성합니다
func NewCallbacks(marker DeviceMarker, filter interfaces.SecurityGroupFilter, logger *logrus.Logger) *Callbacks {
	return &Callbacks{
		marker: marker,
		filter: filter,
		logger: logger,
	}
}

// PortUpdate는 포트의 MAC 주소를 변경 집합에 추가합니다
func (c *Callbacks) PortUpdate(ctx context.Context, n PortUpdateNotification) {
	metrics.RecordNotification("port_update")
	c.logger.WithFields(logrus.Fields{
		"port_id":     n.Port.ID,
		"mac_address": n.Port.MACAddress,
	}).Debug("port_update received")

	if n.Port.MACAddress == "" {
		c.logger.WithField("port_id", n.Port.ID).Warn("port_update without mac_address ignored")
		return
	}
	c.marker.MarkUpdated(entities.CanonicalDeviceID(n.Port.MACAddress))
}

// SecurityGroupsUpdated는 갱신 대상 디바이스를 모두 변경 집합에 추가하고 필터에 전달합니다
func (c *Callbacks) SecurityGroupsUpdated(ctx context.Context, devicesToUpdate []string) {
	metrics.RecordNotification("security_group_update")
	c.logger.WithField("devices", devicesToUpdate).Debug("security_groups_provider_updated received")

	for _, device := range devicesToUpdate {
		if device == "" {
			continue
		}
		c.marker.MarkUpdated(entities.CanonicalDeviceID(device))
	}

	if c.filter == nil {
		return
	}
	if err := c.filter.RefreshFirewall(ctx, devicesToUpdate); err != nil {
		c.logger.WithError(err).WithField("firewall_driver", c.filter.Name()).Warn("Failed to refresh firewall")
	}
}

// NetworkUpdate는 기록만 합니다. 네트워크 변경은 포트 상세 조회로 반영됩니다.
func (c *Callbacks) NetworkUpdate(ctx context.Context, networkID string) {
	metrics.RecordNotification("network_update")
	c.logger.WithField("network_id", networkID).Debug("network_update received")
}
