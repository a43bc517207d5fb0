package entities

import (
	"errors"
	"regexp"
	"strings"
)

// DeviceID는 관리 대상 가상 NIC를 식별하는 MAC 형태의 토큰입니다
type DeviceID string

// Device는 에이전트가 관리하는 가상 네트워크 인터페이스 연결입니다
type Device struct {
	ID               DeviceID
	PortID           string
	NetworkID        string
	PhysicalNetwork  string // 소유 네트워크 세그먼트에서 조회한 물리 네트워크
	SegmentationType string
	DeviceOwner      string
	AdminStateUp     bool
}

var (
	ErrInvalidDeviceID = errors.New("invalid device identifier (MAC address expected)")

	macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)
)

// NewDeviceID는 MAC 주소를 검증하고 소문자, 콜론 구분 형태로 정규화합니다
func NewDeviceID(mac string) (DeviceID, error) {
	mac = strings.TrimSpace(mac)
	if !macPattern.MatchString(mac) {
		return "", ErrInvalidDeviceID
	}
	return DeviceID(strings.ToLower(strings.ReplaceAll(mac, "-", ":"))), nil
}

// CanonicalDeviceID는 알림에서 받은 식별자를 중복 제거용으로 정규화합니다.
// MAC 형태가 아니면 공백 제거와 소문자 변환만 적용합니다.
func CanonicalDeviceID(raw string) DeviceID {
	if id, err := NewDeviceID(raw); err == nil {
		return id
	}
	return DeviceID(strings.ToLower(strings.TrimSpace(raw)))
}

// String은 식별자의 문자열 표현을 반환합니다
func (id DeviceID) String() string {
	return string(id)
}

// Validate는 Device의 유효성을 검증합니다
func (d *Device) Validate() error {
	if !macPattern.MatchString(string(d.ID)) {
		return ErrInvalidDeviceID
	}
	return nil
}

// IsFlat은 세그먼트에 VLAN 태그가 없는지 확인합니다
func (d *Device) IsFlat() bool {
	return d.SegmentationType == "" || d.SegmentationType == "flat"
}
