package usecases

import (
	"sync/atomic"

	"dpm-agent/internal/infrastructure/metrics"
)

// LoopState는 조정 루프의 상태입니다
type LoopState string

const (
	StateIdle       LoopState = "idle"
	StateScanning   LoopState = "scanning"
	StateDiffing    LoopState = "diffing"
	StateWiring     LoopState = "wiring"
	StateTerminated LoopState = "terminated"
)

var allStates = []string{
	string(StateIdle),
	string(StateScanning),
	string(StateDiffing),
	string(StateWiring),
	string(StateTerminated),
}

// StateHolder는 루프 상태를 여러 고루틴에서 안전하게 읽고 쓰게 합니다.
// Terminated는 흡수 상태로, 한 번 들어가면 다른 상태로 바뀌지 않습니다.
type StateHolder struct {
	v atomic.Value
}

// NewStateHolder는 Idle 상태의 StateHolder를 생성합니다
func NewStateHolder() *StateHolder {
	h := &StateHolder{}
	h.v.Store(StateIdle)
	return h
}

// Get은 현재 상태를 반환합니다
func (h *StateHolder) Get() LoopState {
	return h.v.Load().(LoopState)
}

// Current는 상태 보고용 문자열을 반환합니다
func (h *StateHolder) Current() string {
	return string(h.Get())
}

// Set은 상태를 변경합니다. Terminated 이후의 변경은 무시됩니다.
func (h *StateHolder) Set(s LoopState) {
	if h.Get() == StateTerminated {
		return
	}
	h.v.Store(s)
	metrics.SetLoopState(string(s), allStates)
}
