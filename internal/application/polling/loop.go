package polling

import (
	"context"
	"time"

	"dpm-agent/internal/application/usecases"
	"dpm-agent/internal/domain/errors"
	"dpm-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// Reconciler는 조정 패스 하나를 실행합니다
type Reconciler interface {
	Execute(ctx context.Context) (*usecases.ReconcileOutput, error)
}

// PassObserver는 패스 결과를 상태 보고 쪽에 전달받습니다
type PassObserver interface {
	ObservePass(success bool, managedDevices int, failedDevices int)
}

// ReconciliationLoop는 PollingController 위에서 조정 패스를 반복 실행하고
// 종료 시 루프 상태를 Terminated로 전환합니다
type ReconciliationLoop struct {
	controller *PollingController
	reconciler Reconciler
	state      *usecases.StateHolder
	observer   PassObserver
	logger     *logrus.Logger
}

// NewReconciliationLoop는 새로운 ReconciliationLoop를 생성합니다. observer는 nil일 수 있습니다.
func NewReconciliationLoop(
	controller *PollingController,
	reconciler Reconciler,
	state *usecases.StateHolder,
	observer PassObserver,
	logger *logrus.Logger,
) *ReconciliationLoop {
	return &ReconciliationLoop{
		controller: controller,
		reconciler: reconciler,
		state:      state,
		observer:   observer,
		logger:     logger,
	}
}

// Run은 ctx가 취소될 때까지 루프를 실행합니다
func (l *ReconciliationLoop) Run(ctx context.Context) error {
	l.logger.Info("Reconciliation loop started")
	err := l.controller.Start(ctx, l.pass)
	l.state.Set(usecases.StateTerminated)
	l.logger.Info("Reconciliation loop terminated")
	return err
}

func (l *ReconciliationLoop) pass(ctx context.Context) Outcome {
	start := time.Now()
	output, err := l.reconciler.Execute(ctx)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		// 종료로 취소된 패스는 헬스 상태에 실패로 남기지 않습니다
		if ctx.Err() != nil {
			metrics.RecordPass("cancelled", elapsed)
			return Outcome{Err: err}
		}
		metrics.RecordPass("abandoned", elapsed)
		metrics.RecordError(errors.Kind(err))
		if l.observer != nil {
			l.observer.ObservePass(false, 0, 0)
		}
		return Outcome{Err: err}
	}

	metrics.RecordPass("completed", elapsed)
	if l.observer != nil {
		l.observer.ObservePass(true, output.SnapshotSize, output.FailedCount)
	}

	if output.HasWork() || len(output.Deferred) > 0 {
		l.logger.WithFields(logrus.Fields{
			"added":    len(output.Added),
			"updated":  len(output.Updated),
			"removed":  len(output.Removed),
			"deferred": len(output.Deferred),
			"unbound":  len(output.Unbound),
			"failed":   output.FailedCount,
			"managed":  output.SnapshotSize,
			"duration": output.Duration,
		}).Info("Reconciliation pass completed")
	} else {
		l.logger.WithField("managed", output.SnapshotSize).Debug("Reconciliation pass completed without changes")
	}

	return Outcome{HasWork: output.HasWork()}
}
