package errors

import (
	"errors"
	"fmt"
)

// ErrorType은 에러의 종류를 나타냅니다
type ErrorType string

const (
	// ErrorTypeConfiguration은 잘못된 매핑 문법이나 지원하지 않는 설정을 나타냅니다 (시작 시 치명적)
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// ErrorTypeInventoryLookup은 섀시/어댑터/디바이스 소스 조회 실패를 나타냅니다 (시작 시 치명적)
	ErrorTypeInventoryLookup ErrorType = "INVENTORY_LOOKUP"

	// ErrorTypeTransientWiring은 단일 디바이스의 연결/해제/보호 실패를 나타냅니다
	ErrorTypeTransientWiring ErrorType = "TRANSIENT_WIRING"

	// ErrorTypePassAbandoned는 디바이스 스캔 실패로 폐기된 조정 패스를 나타냅니다
	ErrorTypePassAbandoned ErrorType = "PASS_ABANDONED"

	// ErrorTypeNotFound는 리소스를 찾을 수 없음을 나타냅니다
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeSystem은 시스템 레벨 에러를 나타냅니다
	ErrorTypeSystem ErrorType = "SYSTEM"

	// ErrorTypeTimeout은 타임아웃 에러를 나타냅니다
	ErrorTypeTimeout ErrorType = "TIMEOUT"
)

// ErrInvalidMappingFormat은 NETWORK:ADAPTER_ID[:PORT] 문법 위반 시 반환됩니다
var ErrInvalidMappingFormat = errors.New("invalid interface mapping format")

// DomainError는 도메인 레벨의 에러를 나타냅니다
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error는 error 인터페이스를 구현합니다
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap은 내부 에러를 반환합니다
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is는 같은 타입의 DomainError끼리 일치하도록 비교합니다
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInvalidMappingError는 특정 매핑 값에 대한 형식 에러를 생성합니다
func NewInvalidMappingError(value string, reason string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeConfiguration,
		Message: fmt.Sprintf("invalid interface mapping %q: %s", value, reason),
		Cause:   ErrInvalidMappingFormat,
	}
}

// NewConfigurationError는 설정 에러를 생성합니다
func NewConfigurationError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeConfiguration,
		Message: message,
		Cause:   cause,
	}
}

// NewInventoryLookupError는 인벤토리 조회 에러를 생성합니다
func NewInventoryLookupError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeInventoryLookup,
		Message: message,
		Cause:   cause,
	}
}

// NewTransientWiringError는 디바이스 단위의 재시도 가능한 에러를 생성합니다
func NewTransientWiringError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeTransientWiring,
		Message: message,
		Cause:   cause,
	}
}

// NewPassAbandonedError는 폐기된 조정 패스 에러를 생성합니다
func NewPassAbandonedError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypePassAbandoned,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError는 리소스를 찾을 수 없는 에러를 생성합니다
func NewNotFoundError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewSystemError는 시스템 에러를 생성합니다
func NewSystemError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeSystem,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError는 타임아웃 에러를 생성합니다
func NewTimeoutError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeTimeout,
		Message: message,
	}
}

// 에러 타입 확인 헬퍼 함수들

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsConfigurationError는 설정 에러인지 확인합니다
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsInventoryLookupError는 인벤토리 조회 에러인지 확인합니다
func IsInventoryLookupError(err error) bool {
	return hasType(err, ErrorTypeInventoryLookup)
}

// IsTransientWiringError는 디바이스 연결 에러인지 확인합니다
func IsTransientWiringError(err error) bool {
	return hasType(err, ErrorTypeTransientWiring)
}

// IsPassAbandonedError는 폐기된 패스 에러인지 확인합니다
func IsPassAbandonedError(err error) bool {
	return hasType(err, ErrorTypePassAbandoned)
}

// IsNotFoundError는 리소스를 찾을 수 없는 에러인지 확인합니다
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsSystemError는 시스템 에러인지 확인합니다
func IsSystemError(err error) bool {
	return hasType(err, ErrorTypeSystem)
}

// IsTimeoutError는 타임아웃 에러인지 확인합니다
func IsTimeoutError(err error) bool {
	return hasType(err, ErrorTypeTimeout)
}

// Kind는 메트릭 라벨용 에러 종류를 반환합니다
func Kind(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return string(domainErr.Type)
	}
	return "UNKNOWN"
}
