package usecases

import "dpm-agent/internal/domain/entities"

// DeviceDiff는 한 패스에서 계산된 디바이스 변경 집합입니다
type DeviceDiff struct {
	Current entities.DeviceSet
	Added   entities.DeviceSet
	Removed entities.DeviceSet
	Updated entities.DeviceSet
}

// DiffDevices는 스캔 결과를 이전 스냅샷과 비교합니다.
// updated는 현재 존재하는 디바이스로 한정되며 added와 겹치지 않습니다.
func DiffDevices(current, previous, dirty entities.DeviceSet) DeviceDiff {
	added := current.Difference(previous)
	return DeviceDiff{
		Current: current,
		Added:   added,
		Removed: previous.Difference(current),
		Updated: dirty.Intersect(current).Difference(added),
	}
}

// HasChanges는 처리할 변경이 있는지 반환합니다
func (d DeviceDiff) HasChanges() bool {
	return d.Added.Len() > 0 || d.Removed.Len() > 0 || d.Updated.Len() > 0
}
