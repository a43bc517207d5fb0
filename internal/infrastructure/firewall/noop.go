package firewall

import (
	"context"

	"github.com/sirupsen/logrus"
)

// NoopFilter는 보안 그룹 필터링을 하지 않는 방화벽 드라이버입니다
type NoopFilter struct {
	driver string
	logger *logrus.Logger
}

// NewNoopFilter creates a no-op filter registered under the configured driver name
func NewNoopFilter(driver string, logger *logrus.Logger) *NoopFilter {
	return &NoopFilter{driver: driver, logger: logger}
}

// Name returns the configured firewall driver name
func (f *NoopFilter) Name() string {
	return f.driver
}

// RefreshFirewall only logs the request
func (f *NoopFilter) RefreshFirewall(ctx context.Context, devices []string) error {
	f.logger.WithField("devices", len(devices)).Debug("Noop firewall refresh")
	return nil
}
