package utils

import (
	"fmt"
	"regexp"
)

// 호스트네임 패턴
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]*[a-zA-Z0-9])?$`)

// ValidateHostname은 호스트네임이 유효한지 검증
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname is empty")
	}

	if len(hostname) > 253 {
		return fmt.Errorf("hostname too long: %d characters (max 253)", len(hostname))
	}

	if !hostnamePattern.MatchString(hostname) {
		return fmt.Errorf("invalid hostname format: %s", hostname)
	}

	return nil
}

// ValidateDatabaseConfig은 데이터베이스 접속 정보가 채워져 있는지 검증합니다. 비밀번호는 비어 있을 수 있습니다.
func ValidateDatabaseConfig(host, port, user, database string) error {
	if host == "" {
		return fmt.Errorf("database host is empty")
	}

	if port == "" {
		return fmt.Errorf("database port is empty")
	}

	if user == "" {
		return fmt.Errorf("database user is empty")
	}

	if database == "" {
		return fmt.Errorf("database name is empty")
	}

	return nil
}
