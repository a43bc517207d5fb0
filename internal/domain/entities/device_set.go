package entities

import "sort"

// DeviceSet은 디바이스 식별자 집합입니다
type DeviceSet map[DeviceID]struct{}

// NewDeviceSet은 주어진 식별자들로 집합을 생성합니다
func NewDeviceSet(ids ...DeviceID) DeviceSet {
	s := make(DeviceSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add는 식별자를 추가합니다
func (s DeviceSet) Add(id DeviceID) {
	s[id] = struct{}{}
}

// Remove는 식별자를 제거합니다
func (s DeviceSet) Remove(id DeviceID) {
	delete(s, id)
}

// Has는 식별자 포함 여부를 반환합니다
func (s DeviceSet) Has(id DeviceID) bool {
	_, ok := s[id]
	return ok
}

// Len은 원소 개수를 반환합니다
func (s DeviceSet) Len() int {
	return len(s)
}

// Clone은 독립적인 복사본을 반환합니다
func (s DeviceSet) Clone() DeviceSet {
	out := make(DeviceSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Union은 s ∪ other를 반환합니다
func (s DeviceSet) Union(other DeviceSet) DeviceSet {
	out := s.Clone()
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Difference는 s \ other를 반환합니다
func (s DeviceSet) Difference(other DeviceSet) DeviceSet {
	out := make(DeviceSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Intersect는 s ∩ other를 반환합니다
func (s DeviceSet) Intersect(other DeviceSet) DeviceSet {
	out := make(DeviceSet)
	for id := range s {
		if other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted는 로그와 테스트에서 쓰기 위해 정렬된 목록을 반환합니다
func (s DeviceSet) Sorted() []DeviceID {
	out := make([]DeviceID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
