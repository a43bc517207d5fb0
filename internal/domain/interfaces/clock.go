package interfaces

import "time"

// Clock은 시간 관련 작업을 추상화하는 인터페이스입니다
type Clock interface {
	// Now는 현재 시간을 반환합니다
	Now() time.Time
	// Since는 t 이후 경과 시간을 반환합니다
	Since(t time.Time) time.Duration
}
