package services

import (
	"context"
	"fmt"

	"dpm-agent/internal/domain/constants"
	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/errors"
	"dpm-agent/internal/domain/interfaces"
)

// ValidateFirewallDriver는 no-op 방화벽 드라이버만 허용합니다
func ValidateFirewallDriver(driver string) error {
	for _, supported := range constants.SupportedFirewallDrivers {
		if driver == supported {
			return nil
		}
	}
	return errors.NewConfigurationError(fmt.Sprintf(
		"unsupported configuration option for \"SECURITYGROUP.firewall_driver\": only the NoopFirewallDriver is supported, but %q is configured; set the firewall driver to \"noop\"",
		driver), nil)
}

// LookupDPMChassis는 섀시를 조회하고 DPM 모드인지 확인합니다
func LookupDPMChassis(ctx context.Context, inventory interfaces.ChassisInventory, name string) (*entities.Chassis, error) {
	chassis, err := inventory.FindChassis(ctx, name)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewInventoryLookupError(fmt.Sprintf("could not find CPC %s", name), err)
		}
		return nil, errors.NewInventoryLookupError(fmt.Sprintf("failed to query CPC %s", name), err)
	}
	if !chassis.DPMEnabled {
		return nil, errors.NewInventoryLookupError(fmt.Sprintf("CPC %s not in DPM mode", name), nil)
	}
	return chassis, nil
}
