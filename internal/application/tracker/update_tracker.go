package tracker

import (
	"sync"

	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/infrastructure/metrics"
)

// UpdateTracker는 비동기 알림으로 변경된 디바이스 식별자를 조정 패스 사이에 누적합니다.
// 알림 핸들러(생산자)와 조정 루프(소비자)가 공유하는 유일한 가변 상태입니다.
type UpdateTracker struct {
	mu      sync.Mutex
	pending entities.DeviceSet
}

// NewUpdateTracker는 빈 UpdateTracker를 생성합니다
func NewUpdateTracker() *UpdateTracker {
	return &UpdateTracker{pending: make(entities.DeviceSet)}
}

// MarkUpdated는 식별자를 대기 집합에 추가합니다. 여러 번 호출해도 한 번만 남습니다.
func (t *UpdateTracker) MarkUpdated(id entities.DeviceID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending.Add(id)
	metrics.SetPendingUpdates(float64(len(t.pending)))
}

// Drain은 대기 집합을 반환하고 비웁니다.
// 반환 직후의 MarkUpdated는 다음 Drain에 포함됩니다.
// 대기 게이지는 잠금 안에서 갱신되어 항상 마지막 상태를 가리킵니다.
func (t *UpdateTracker) Drain() entities.DeviceSet {
	t.mu.Lock()
	defer t.mu.Unlock()

	drained := t.pending
	t.pending = make(entities.DeviceSet)
	metrics.SetPendingUpdates(0)
	return drained
}

// Pending은 현재 대기 중인 식별자 수를 반환합니다
func (t *UpdateTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
