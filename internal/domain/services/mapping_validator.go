package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/errors"
)

// MappingPattern은 NETWORK:ADAPTER_ID[:PORT] 문법 전체를 나타내는 정규식입니다
const MappingPattern = `^[^:]+:[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}(:[0-9]*)?$`

var (
	mappingRegex   = regexp.MustCompile(MappingPattern)
	adapterIDRegex = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)
	portRegex      = regexp.MustCompile(`^[0-9]+$`)
)

// MappingValidator는 인터페이스 매핑 항목을 파싱하고 정규화하는 상태 없는 값 타입입니다
type MappingValidator struct{}

// String은 진단용으로 내부 문법 패턴을 노출합니다
func (MappingValidator) String() string {
	return fmt.Sprintf("String(regex='%s')", MappingPattern)
}

// Matches는 raw가 매핑 문법 전체에 맞는지 확인합니다
func (MappingValidator) Matches(raw string) bool {
	return mappingRegex.MatchString(raw)
}

// Parse는 매핑 항목 하나를 (network, adapterID, port)로 파싱합니다.
// adapterID는 소문자로, 비어 있는 포트는 "0"으로 정규화됩니다.
func (v MappingValidator) Parse(raw string) (network, adapterID, port string, err error) {
	if raw == "" {
		return "", "", "", errors.NewInvalidMappingError(raw, "empty value")
	}

	fields := strings.Split(raw, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return "", "", "", errors.NewInvalidMappingError(raw, "expected NETWORK:ADAPTER_ID[:PORT]")
	}

	network = fields[0]
	if network == "" {
		return "", "", "", errors.NewInvalidMappingError(raw, "empty physical network name")
	}

	adapterID, err = NormalizeAdapterID(fields[1])
	if err != nil {
		return "", "", "", errors.NewInvalidMappingError(raw, err.Error())
	}

	rawPort := ""
	if len(fields) == 3 {
		rawPort = fields[2]
	}
	port, err = NormalizePort(rawPort)
	if err != nil {
		return "", "", "", errors.NewInvalidMappingError(raw, err.Error())
	}

	return network, adapterID, port, nil
}

// NormalizeAdapterID는 UUID 형태를 검증하고 소문자로 변환합니다
func NormalizeAdapterID(raw string) (string, error) {
	if !adapterIDRegex.MatchString(raw) {
		return "", fmt.Errorf("adapter id %q is not a UUID", raw)
	}
	return strings.ToLower(raw), nil
}

// NormalizePort는 포트를 검증합니다. 비어 있으면 "0"을 반환합니다.
func NormalizePort(raw string) (string, error) {
	if raw == "" {
		return entities.DefaultPort, nil
	}
	if !portRegex.MatchString(raw) {
		return "", fmt.Errorf("port %q is not a non-negative integer", raw)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return "", fmt.Errorf("port %q is out of range", raw)
	}
	return strconv.FormatUint(n, 10), nil
}

// BuildInterfaceMapping은 매핑 항목 목록을 파싱하여 InterfaceMapping을 생성합니다
func (v MappingValidator) BuildInterfaceMapping(entries []string) (*entities.InterfaceMapping, error) {
	mapping := entities.NewInterfaceMapping()
	for _, entry := range entries {
		network, adapterID, port, err := v.Parse(entry)
		if err != nil {
			return nil, err
		}
		ap := entities.AdapterPort{AdapterID: adapterID, Port: port}
		if !mapping.Add(network, ap) {
			return nil, errors.NewInvalidMappingError(entry,
				fmt.Sprintf("duplicate adapter/port %s/%s for physical network %s", adapterID, port, network))
		}
	}
	if mapping.Len() == 0 {
		return nil, errors.NewConfigurationError("no physical adapter mappings configured", errors.ErrInvalidMappingFormat)
	}
	return mapping, nil
}

// NormalizeMappings는 physnet -> adapter -> port 형태의 설정 값을 제자리에서 정규화합니다
func (v MappingValidator) NormalizeMappings(raw map[string]map[string]string) error {
	for network, adapters := range raw {
		if network == "" || strings.Contains(network, ":") {
			return errors.NewInvalidMappingError(network, "invalid physical network name")
		}
		if len(adapters) == 0 {
			return errors.NewInvalidMappingError(network, "no adapter configured for physical network")
		}
		normalized := make(map[string]string, len(adapters))
		for adapter, port := range adapters {
			entry := network + ":" + adapter + ":" + port
			adapterID, err := NormalizeAdapterID(adapter)
			if err != nil {
				return errors.NewInvalidMappingError(entry, err.Error())
			}
			p, err := NormalizePort(port)
			if err != nil {
				return errors.NewInvalidMappingError(entry, err.Error())
			}
			if _, dup := normalized[adapterID]; dup {
				return errors.NewInvalidMappingError(entry, "adapter configured twice for physical network")
			}
			normalized[adapterID] = p
		}
		for adapter := range adapters {
			delete(adapters, adapter)
		}
		for adapter, port := range normalized {
			adapters[adapter] = port
		}
	}
	return nil
}

// ValidateMappings는 모든 어댑터 포트가 섀시에 실제로 존재하는지 확인합니다.
// 실패 시 원인이 된 network/adapter/port를 담은 INVENTORY_LOOKUP 에러를 반환합니다.
func (v MappingValidator) ValidateMappings(ctx context.Context, mapping *entities.InterfaceMapping, chassis *entities.Chassis) error {
	if chassis == nil {
		return errors.NewInventoryLookupError("no chassis to validate interface mappings against", nil)
	}

	for _, network := range mapping.Networks() {
		if err := ctx.Err(); err != nil {
			return errors.NewInventoryLookupError("interface mapping validation interrupted", err)
		}
		ports, _ := mapping.Ports(network)
		for _, ap := range ports {
			if err := validateAdapterPort(network, ap, chassis); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateAdapterPort(network string, ap entities.AdapterPort, chassis *entities.Chassis) error {
	describe := fmt.Sprintf("adapter/port combination %s/%s for physical network %s", ap.AdapterID, ap.Port, network)

	adapter, ok := chassis.Adapter(ap.AdapterID)
	if !ok {
		return errors.NewInventoryLookupError(describe+" does not exist",
			errors.NewNotFoundError(fmt.Sprintf("adapter %s not found on chassis %s", ap.AdapterID, chassis.Name)))
	}
	if adapter.ChassisID != chassis.ObjectID {
		return errors.NewInventoryLookupError(
			fmt.Sprintf("%s is not on chassis %s (found on %s)", describe, chassis.Name, adapter.ChassisID), nil)
	}
	port, err := strconv.Atoi(ap.Port)
	if err != nil || port < 0 || port >= adapter.PortCount {
		return errors.NewInventoryLookupError(describe+" does not exist",
			errors.NewNotFoundError(fmt.Sprintf("adapter %s has %d ports", ap.AdapterID, adapter.PortCount)))
	}
	return nil
}
