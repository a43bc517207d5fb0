package entities

import "sort"

// DefaultPort는 매핑에 포트가 없을 때 사용하는 어댑터 포트 번호입니다
const DefaultPort = "0"

// AdapterPort는 물리 어댑터와 포트 번호 쌍입니다
type AdapterPort struct {
	AdapterID string // 소문자 UUID
	Port      string // 10진수 문자열
}

// InterfaceMapping은 물리 네트워크 이름에서 어댑터 포트 목록으로의 매핑입니다.
// 시작 시 한 번 만들어지고 이후에는 읽기 전용입니다.
type InterfaceMapping struct {
	networks map[string][]AdapterPort
}

// NewInterfaceMapping은 빈 매핑을 생성합니다
func NewInterfaceMapping() *InterfaceMapping {
	return &InterfaceMapping{networks: make(map[string][]AdapterPort)}
}

// Add는 어댑터 포트를 추가합니다. 이미 같은 쌍이 있으면 false를 반환합니다.
func (m *InterfaceMapping) Add(network string, ap AdapterPort) bool {
	for _, existing := range m.networks[network] {
		if existing == ap {
			return false
		}
	}
	m.networks[network] = append(m.networks[network], ap)
	return true
}

// Networks는 정렬된 물리 네트워크 이름 목록을 반환합니다
func (m *InterfaceMapping) Networks() []string {
	names := make([]string, 0, len(m.networks))
	for name := range m.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ports는 물리 네트워크의 어댑터 포트 목록 복사본을 반환합니다
func (m *InterfaceMapping) Ports(network string) ([]AdapterPort, bool) {
	ports, ok := m.networks[network]
	if !ok {
		return nil, false
	}
	out := make([]AdapterPort, len(ports))
	copy(out, ports)
	return out, true
}

// Len은 물리 네트워크 개수를 반환합니다
func (m *InterfaceMapping) Len() int {
	return len(m.networks)
}

// ToMap은 상태 보고용 physnet -> adapter -> port 형태의 깊은 복사본을 반환합니다
func (m *InterfaceMapping) ToMap() map[string]map[string]string {
	out := make(map[string]map[string]string, len(m.networks))
	for network, ports := range m.networks {
		inner := make(map[string]string, len(ports))
		for _, ap := range ports {
			inner[ap.AdapterID] = ap.Port
		}
		out[network] = inner
	}
	return out
}
