package usecases

import (
	"context"
	"fmt"
	"time"

	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/errors"
	"dpm-agent/internal/domain/interfaces"
	"dpm-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dpm-agent/internal/application/usecases"

// UpdateSource는 알림으로 누적된 변경 디바이스를 제공합니다
type UpdateSource interface {
	MarkUpdated(id entities.DeviceID)
	Drain() entities.DeviceSet
}

// DeviceScanner는 현재 관리 중인 디바이스 집합을 조회합니다
type DeviceScanner interface {
	Scan(ctx context.Context) (entities.DeviceSet, error)
}

// ReconcileOptions는 조정 유스케이스의 동작 설정입니다
type ReconcileOptions struct {
	// WiringTimeout은 디바이스 단위 외부 호출의 제한 시간입니다
	WiringTimeout time.Duration
	// RemovalDebounceScans는 디바이스를 제거하기 전에 연속으로 보이지 않아야 하는 스캔 횟수입니다
	RemovalDebounceScans int
}

// ReconcileOutput은 한 번의 조정 패스 결과입니다
type ReconcileOutput struct {
	Added        []entities.DeviceID
	Updated      []entities.DeviceID
	Removed      []entities.DeviceID
	Deferred     []entities.DeviceID // 제거 유예 중인 디바이스
	Unbound      []entities.DeviceID // 매핑된 물리 네트워크가 없어 연결되지 않은 디바이스
	FailedCount  int
	SnapshotSize int
	Duration     time.Duration
}

// HasWork는 이번 패스에서 처리한 디바이스가 있는지 반환합니다
func (o *ReconcileOutput) HasWork() bool {
	return len(o.Added) > 0 || len(o.Updated) > 0 || len(o.Removed) > 0 || o.FailedCount > 0
}

// ReconcileDevicesUseCase는 인벤토리와 마지막 스냅샷을 비교하고
// 추가/변경/제거된 디바이스를 연결하는 조정 패스를 실행합니다.
// Execute는 한 번에 하나의 고루틴에서만 호출되어야 합니다.
type ReconcileDevicesUseCase struct {
	updates UpdateSource
	scanner DeviceScanner
	gateway interfaces.PortWiringGateway
	state   *StateHolder
	clock   interfaces.Clock
	opts    ReconcileOptions
	logger  *logrus.Logger
	tracer  trace.Tracer

	snapshot entities.DeviceSet
	retry    entities.DeviceSet
	missing  map[entities.DeviceID]int
}

// NewReconcileDevicesUseCase는 새로운 ReconcileDevicesUseCase를 생성합니다
func NewReconcileDevicesUseCase(
	updates UpdateSource,
	scanner DeviceScanner,
	gateway interfaces.PortWiringGateway,
	state *StateHolder,
	clock interfaces.Clock,
	opts ReconcileOptions,
	logger *logrus.Logger,
) *ReconcileDevicesUseCase {
	if opts.RemovalDebounceScans < 1 {
		opts.RemovalDebounceScans = 1
	}
	return &ReconcileDevicesUseCase{
		updates:  updates,
		scanner:  scanner,
		gateway:  gateway,
		state:    state,
		clock:    clock,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		snapshot: make(entities.DeviceSet),
		retry:    make(entities.DeviceSet),
		missing:  make(map[entities.DeviceID]int),
	}
}

// Snapshot은 마지막으로 완료된 패스의 스냅샷 복사본을 반환합니다
func (uc *ReconcileDevicesUseCase) Snapshot() entities.DeviceSet {
	return uc.snapshot.Clone()
}

// Execute는 조정 패스 하나를 실행합니다.
// 스캔 자체가 실패하면 패스 전체를 폐기하고 PASS_ABANDONED 에러를 반환합니다.
func (uc *ReconcileDevicesUseCase) Execute(ctx context.Context) (*ReconcileOutput, error) {
	start := uc.clock.Now()
	ctx, span := uc.tracer.Start(ctx, "reconcile.pass")
	defer span.End()
	defer uc.state.Set(StateIdle)

	// 1. 변경 집합 드레인 후 스캔
	uc.state.Set(StateScanning)
	dirty := uc.updates.Drain()

	current, err := uc.scanner.Scan(ctx)
	if err != nil {
		// 드레인한 변경은 다음 패스로 넘깁니다
		for id := range dirty {
			uc.updates.MarkUpdated(id)
		}
		metrics.SetDeviceSourceStatus(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "device scan failed")
		return nil, errors.NewPassAbandonedError("device scan failed, pass abandoned", err)
	}
	metrics.SetDeviceSourceStatus(true)

	// 2. 비교
	uc.state.Set(StateDiffing)
	diff := DiffDevices(current, uc.snapshot, dirty.Union(uc.retry))
	removed, deferred := uc.debounceRemovals(diff)

	span.SetAttributes(
		attribute.Int("devices.current", current.Len()),
		attribute.Int("devices.added", diff.Added.Len()),
		attribute.Int("devices.updated", diff.Updated.Len()),
		attribute.Int("devices.removed", removed.Len()),
	)

	// 3. 연결
	uc.state.Set(StateWiring)
	output := &ReconcileOutput{Deferred: deferred.Sorted()}
	next := uc.snapshot.Clone()

	uc.wireDevices(ctx, "added", diff.Added, next, output)
	uc.wireDevices(ctx, "updated", diff.Updated, next, output)
	uc.unwireDevices(ctx, removed, next, output)

	if removed.Len() > 0 {
		if err := uc.callWithTimeout(ctx, func(callCtx context.Context) error {
			return uc.gateway.UnprotectUnreferenced(callCtx, next.Union(current))
		}); err != nil {
			uc.logger.WithError(err).Warn("Failed to clean up unreferenced anti-spoofing protection")
			metrics.RecordError(errors.Kind(err))
		}
	}

	// 4. 스냅샷 교체
	uc.snapshot = next
	output.SnapshotSize = next.Len()
	output.Duration = uc.clock.Since(start)
	metrics.SetManagedDevices(float64(next.Len()))

	if output.FailedCount > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d devices left for retry", output.FailedCount))
	}
	return output, nil
}

// debounceRemovals는 연속 스캔에서 사라진 횟수를 세어 제거 확정 집합과 유예 집합을 나눕니다
func (uc *ReconcileDevicesUseCase) debounceRemovals(diff DeviceDiff) (removed, deferred entities.DeviceSet) {
	for id := range uc.missing {
		if diff.Current.Has(id) {
			delete(uc.missing, id)
		}
	}

	removed = make(entities.DeviceSet)
	deferred = make(entities.DeviceSet)
	for id := range diff.Removed {
		uc.missing[id]++
		if uc.missing[id] >= uc.opts.RemovalDebounceScans {
			removed.Add(id)
		} else {
			deferred.Add(id)
		}
	}
	return removed, deferred
}

func (uc *ReconcileDevicesUseCase) wireDevices(ctx context.Context, action string, ids entities.DeviceSet, next entities.DeviceSet, output *ReconcileOutput) {
	for _, id := range ids.Sorted() {
		if ctx.Err() != nil {
			// 종료 중에는 남은 디바이스를 다음 기회로 미룹니다
			uc.deferWiring(action, id, next)
			output.FailedCount++
			continue
		}

		started := uc.clock.Now()
		wired, err := uc.wireDevice(ctx, id)
		elapsed := uc.clock.Since(started).Seconds()

		if err != nil {
			uc.logger.WithError(err).WithFields(logrus.Fields{
				"device": id,
				"action": action,
			}).Warn("Device wiring failed, will retry on next pass")
			uc.deferWiring(action, id, next)
			output.FailedCount++
			metrics.RecordDevice(action, "failed", elapsed)
			metrics.RecordError(errors.Kind(err))
			continue
		}

		next.Add(id)
		delete(uc.retry, id)
		if !wired {
			output.Unbound = append(output.Unbound, id)
			metrics.RecordDevice(action, "unbound", elapsed)
			continue
		}

		if action == "added" {
			output.Added = append(output.Added, id)
		} else {
			output.Updated = append(output.Updated, id)
		}
		metrics.RecordDevice(action, "success", elapsed)
	}
}

// deferWiring은 실패한 디바이스를 미해결 상태로 남깁니다.
// 새로 추가된 디바이스는 스냅샷에 넣지 않아 다음 패스에서 다시 added가 되고,
// 기존 디바이스는 retry 집합으로 다음 패스의 updated에 합쳐집니다.
func (uc *ReconcileDevicesUseCase) deferWiring(action string, id entities.DeviceID, next entities.DeviceSet) {
	if action == "added" {
		next.Remove(id)
		return
	}
	uc.retry.Add(id)
}

// wireDevice는 디바이스의 현재 상태를 조회하여 보호, 연결, 관리 상태를 순서대로 적용합니다.
// 물리 네트워크가 매핑되지 않아 연결할 수 없으면 false를 반환합니다.
func (uc *ReconcileDevicesUseCase) wireDevice(ctx context.Context, id entities.DeviceID) (bool, error) {
	ctx, span := uc.tracer.Start(ctx, "reconcile.wire_device", trace.WithAttributes(attribute.String("device", id.String())))
	defer span.End()

	var device entities.Device
	if err := uc.callWithTimeout(ctx, func(callCtx context.Context) error {
		d, err := uc.gateway.DeviceDetails(callCtx, id)
		device = d
		return err
	}); err != nil {
		span.RecordError(err)
		return false, errors.NewTransientWiringError(fmt.Sprintf("failed to get details for device %s", id), err)
	}

	uc.logger.WithFields(logrus.Fields{
		"device":           id,
		"network_id":       device.NetworkID,
		"physical_network": device.PhysicalNetwork,
		"admin_state_up":   device.AdminStateUp,
	}).Debug("Wiring device")

	// 보호는 항상 연결보다 먼저 적용됩니다
	if err := uc.callWithTimeout(ctx, func(callCtx context.Context) error {
		return uc.gateway.Protect(callCtx, device)
	}); err != nil {
		span.RecordError(err)
		return false, errors.NewTransientWiringError(fmt.Sprintf("failed to protect device %s", id), err)
	}

	var wired bool
	if err := uc.callWithTimeout(ctx, func(callCtx context.Context) error {
		ok, err := uc.gateway.Attach(callCtx, device)
		wired = ok
		return err
	}); err != nil {
		span.RecordError(err)
		return false, errors.NewTransientWiringError(fmt.Sprintf("failed to attach device %s", id), err)
	}

	if !wired {
		uc.logger.WithFields(logrus.Fields{
			"device":           id,
			"physical_network": device.PhysicalNetwork,
		}).Info("Device not wired: physical network is not mapped on this host")
		return false, nil
	}

	if err := uc.callWithTimeout(ctx, func(callCtx context.Context) error {
		return uc.gateway.SetAdminState(callCtx, id, device.AdminStateUp)
	}); err != nil {
		span.RecordError(err)
		return false, errors.NewTransientWiringError(fmt.Sprintf("failed to set admin state of device %s", id), err)
	}

	return true, nil
}

func (uc *ReconcileDevicesUseCase) unwireDevices(ctx context.Context, ids entities.DeviceSet, next entities.DeviceSet, output *ReconcileOutput) {
	for _, id := range ids.Sorted() {
		if ctx.Err() != nil {
			output.FailedCount++
			continue
		}

		started := uc.clock.Now()
		err := uc.unwireDevice(ctx, id)
		elapsed := uc.clock.Since(started).Seconds()

		if err != nil {
			// 스냅샷에 남겨 다음 패스에서 다시 제거를 시도합니다
			uc.logger.WithError(err).WithField("device", id).Warn("Device removal failed, will retry on next pass")
			output.FailedCount++
			metrics.RecordDevice("removed", "failed", elapsed)
			metrics.RecordError(errors.Kind(err))
			continue
		}

		next.Remove(id)
		delete(uc.missing, id)
		delete(uc.retry, id)
		output.Removed = append(output.Removed, id)
		metrics.RecordDevice("removed", "success", elapsed)
	}
}

func (uc *ReconcileDevicesUseCase) unwireDevice(ctx context.Context, id entities.DeviceID) error {
	ctx, span := uc.tracer.Start(ctx, "reconcile.unwire_device", trace.WithAttributes(attribute.String("device", id.String())))
	defer span.End()

	if err := uc.callWithTimeout(ctx, func(callCtx context.Context) error {
		return uc.gateway.Unprotect(callCtx, []entities.DeviceID{id})
	}); err != nil {
		span.RecordError(err)
		return errors.NewTransientWiringError(fmt.Sprintf("failed to remove protection of device %s", id), err)
	}

	if err := uc.callWithTimeout(ctx, func(callCtx context.Context) error {
		return uc.gateway.Detach(callCtx, id)
	}); err != nil {
		span.RecordError(err)
		return errors.NewTransientWiringError(fmt.Sprintf("failed to detach device %s", id), err)
	}

	uc.logger.WithField("device", id).Info("Device removed")
	return nil
}

// callWithTimeout은 외부 호출을 WiringTimeout으로 제한합니다
func (uc *ReconcileDevicesUseCase) callWithTimeout(ctx context.Context, call func(context.Context) error) error {
	if uc.opts.WiringTimeout <= 0 {
		return call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.opts.WiringTimeout)
	defer cancel()

	err := call(callCtx)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return errors.NewTimeoutError(fmt.Sprintf("call timed out after %v: %v", uc.opts.WiringTimeout, err))
	}
	return err
}
