package adapters

import (
	"time"

	"dpm-agent/internal/domain/interfaces"
)

// SystemClock은 실제 시스템 시간을 사용하는 Clock 구현체입니다
type SystemClock struct{}

// NewSystemClock은 새로운 SystemClock을 생성합니다
func NewSystemClock() interfaces.Clock {
	return SystemClock{}
}

// Now는 현재 시간을 반환합니다
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Since는 t 이후 경과 시간을 반환합니다
func (SystemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
