package polling

import (
	"math"
	"time"

	"dpm-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// Strategy는 폴링 전략 인터페이스입니다
type Strategy interface {
	// NextInterval은 다음 폴링까지의 대기 시간을 반환합니다
	NextInterval(success bool) time.Duration
	// Reset은 폴링 전략을 초기 상태로 리셋합니다
	Reset()
}

// FixedIntervalStrategy는 결과와 무관하게 같은 간격으로 폴링합니다
type FixedIntervalStrategy struct {
	interval time.Duration
}

// NewFixedIntervalStrategy는 고정 간격 전략을 생성합니다
func NewFixedIntervalStrategy(interval time.Duration) *FixedIntervalStrategy {
	return &FixedIntervalStrategy{interval: interval}
}

// NextInterval은 항상 설정된 간격을 반환합니다
func (s *FixedIntervalStrategy) NextInterval(success bool) time.Duration {
	return s.interval
}

// Reset은 아무 작업도 하지 않습니다
func (s *FixedIntervalStrategy) Reset() {}

// ExponentialBackoffStrategy는 폐기된 패스가 이어질 때 간격을 지수적으로 늘립니다
type ExponentialBackoffStrategy struct {
	baseInterval   time.Duration
	maxInterval    time.Duration
	multiplier     float64
	currentBackoff int
	logger         *logrus.Logger
}

// NewExponentialBackoffStrategy는 새로운 지수 백오프 전략을 생성합니다
func NewExponentialBackoffStrategy(
	baseInterval time.Duration,
	maxInterval time.Duration,
	multiplier float64,
	logger *logrus.Logger,
) *ExponentialBackoffStrategy {
	if multiplier <= 1 {
		multiplier = 2.0
	}
	if maxInterval < baseInterval {
		maxInterval = baseInterval
	}

	return &ExponentialBackoffStrategy{
		baseInterval: baseInterval,
		maxInterval:  maxInterval,
		multiplier:   multiplier,
		logger:       logger,
	}
}

// NextInterval은 다음 폴링까지의 대기 시간을 계산합니다
func (s *ExponentialBackoffStrategy) NextInterval(success bool) time.Duration {
	if success {
		if s.currentBackoff > 0 {
			s.logger.Debug("Resetting backoff after successful pass")
			s.currentBackoff = 0
			metrics.SetBackoffLevel(0)
		}
		return s.baseInterval
	}

	s.currentBackoff++
	metrics.SetBackoffLevel(float64(s.currentBackoff))

	backoff := float64(s.baseInterval) * math.Pow(s.multiplier, float64(s.currentBackoff-1))
	next := time.Duration(backoff)
	if next > s.maxInterval || next <= 0 {
		next = s.maxInterval
	}

	s.logger.WithFields(logrus.Fields{
		"backoff_count": s.currentBackoff,
		"next_interval": next,
		"max_interval":  s.maxInterval,
	}).Debug("Exponential backoff calculated")

	return next
}

// Reset은 백오프 카운터를 리셋합니다
func (s *ExponentialBackoffStrategy) Reset() {
	s.currentBackoff = 0
	metrics.SetBackoffLevel(0)
}

// AdaptiveStrategy는 패스에서 처리한 디바이스 유무에 따라 간격을 조정합니다.
// NextInterval의 인자는 성공 여부가 아니라 작업 유무로 해석됩니다.
type AdaptiveStrategy struct {
	minInterval       time.Duration
	maxInterval       time.Duration
	idleInterval      time.Duration
	workDetectedCount int
	noWorkCount       int
	thresholdForSlow  int
	thresholdForFast  int
	currentInterval   time.Duration
	logger            *logrus.Logger
}

// NewAdaptiveStrategy는 새로운 적응형 폴링 전략을 생성합니다
func NewAdaptiveStrategy(
	minInterval time.Duration,
	maxInterval time.Duration,
	idleInterval time.Duration,
	logger *logrus.Logger,
) *AdaptiveStrategy {
	return &AdaptiveStrategy{
		minInterval:      minInterval,
		maxInterval:      maxInterval,
		idleInterval:     idleInterval,
		thresholdForSlow: 5, // 5번 연속 작업 없으면 속도 감소
		thresholdForFast: 2, // 2번 연속 작업 있으면 속도 증가
		currentInterval:  minInterval,
		logger:           logger,
	}
}

// NextInterval은 작업량에 따라 다음 폴링 간격을 결정합니다
func (s *AdaptiveStrategy) NextInterval(hasWork bool) time.Duration {
	if hasWork {
		s.workDetectedCount++
		s.noWorkCount = 0

		if s.workDetectedCount >= s.thresholdForFast {
			s.currentInterval = s.minInterval
			s.logger.WithField("interval", s.currentInterval).Debug("Increased polling frequency due to device changes")
		}
		return s.currentInterval
	}

	s.noWorkCount++
	s.workDetectedCount = 0

	if s.noWorkCount >= s.thresholdForSlow {
		if s.currentInterval < s.maxInterval {
			s.currentInterval = time.Duration(float64(s.currentInterval) * 1.5)
			if s.currentInterval > s.maxInterval {
				s.currentInterval = s.maxInterval
			}
		}

		if s.noWorkCount >= s.thresholdForSlow*3 {
			s.currentInterval = s.idleInterval
		}

		s.logger.WithFields(logrus.Fields{
			"interval":      s.currentInterval,
			"no_work_count": s.noWorkCount,
		}).Debug("Decreased polling frequency due to no device changes")
	}

	return s.currentInterval
}

// Reset은 전략을 초기 상태로 리셋합니다
func (s *AdaptiveStrategy) Reset() {
	s.workDetectedCount = 0
	s.noWorkCount = 0
	s.currentInterval = s.minInterval
}
