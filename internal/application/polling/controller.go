package polling

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Outcome은 한 번의 작업 실행 결과입니다
type Outcome struct {
	HasWork bool
	Err     error
}

// Task는 폴링마다 실행되는 작업입니다
type Task func(ctx context.Context) Outcome

// PollingController는 작업을 직렬로 반복 실행합니다.
// 첫 실행은 즉시 이루어지고, 실행 중에 도착한 틱은 버려지므로 작업이 겹치지 않습니다.
type PollingController struct {
	strategy     Strategy
	graceTimeout time.Duration
	logger       *logrus.Logger
}

// NewPollingController는 새로운 폴링 컨트롤러를 생성합니다
func NewPollingController(strategy Strategy, graceTimeout time.Duration, logger *logrus.Logger) *PollingController {
	return &PollingController{
		strategy:     strategy,
		graceTimeout: graceTimeout,
		logger:       logger,
	}
}

// Start는 ctx가 취소될 때까지 폴링합니다.
// 종료 요청 시 진행 중인 작업을 graceTimeout까지 기다린 뒤 취소합니다.
func (c *PollingController) Start(ctx context.Context, task Task) error {
	outcome, stopped := c.runOnce(ctx, task)
	if stopped {
		return nil
	}

	ticker := time.NewTicker(c.nextInterval(outcome))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			outcome, stopped = c.runOnce(ctx, task)
			if stopped {
				return nil
			}
			ticker.Reset(c.nextInterval(outcome))
		}
	}
}

func (c *PollingController) nextInterval(outcome Outcome) time.Duration {
	if outcome.Err != nil {
		c.logger.WithError(outcome.Err).Error("Polling task failed")
	}

	signal := outcome.Err == nil
	if _, ok := c.strategy.(*AdaptiveStrategy); ok {
		signal = outcome.HasWork
	}

	next := c.strategy.NextInterval(signal)
	if next <= 0 {
		next = time.Second
	}
	return next
}

// runOnce는 작업을 별도 고루틴에서 실행합니다.
// 작업 컨텍스트는 ctx의 취소와 분리되어 종료 시 유예 시간 동안 계속 진행할 수 있습니다.
// 두 번째 반환값은 실행 도중 종료가 요청되었는지 여부입니다.
func (c *PollingController) runOnce(ctx context.Context, task Task) (Outcome, bool) {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		done <- task(taskCtx)
	}()

	select {
	case outcome := <-done:
		return outcome, ctx.Err() != nil
	case <-ctx.Done():
	}

	c.logger.WithField("grace_timeout", c.graceTimeout).Info("Shutdown requested, waiting for in-flight pass")

	grace := time.NewTimer(c.graceTimeout)
	defer grace.Stop()

	select {
	case outcome := <-done:
		return outcome, true
	case <-grace.C:
		c.logger.Warn("In-flight pass did not finish within grace timeout, cancelling it")
		cancel()
		return <-done, true
	}
}
