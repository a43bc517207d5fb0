package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 조정 패스 관련 메트릭
	ReconciliationPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpm_reconciliation_passes_total",
			Help: "Total number of reconciliation passes",
		},
		[]string{"result"}, // completed, abandoned, cancelled
	)

	ReconciliationPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dpm_reconciliation_pass_duration_seconds",
			Help:    "Time spent in each reconciliation pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollingBackoffLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpm_polling_backoff_level",
			Help: "Current backoff level (0 = no backoff)",
		},
	)

	LoopState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dpm_loop_state",
			Help: "Current reconciliation loop state (1 = active state)",
		},
		[]string{"state"},
	)

	// 디바이스 처리 관련 메트릭
	DevicesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpm_devices_processed_total",
			Help: "Total number of device wiring operations",
		},
		[]string{"action", "status"}, // action: added, updated, removed; status: success, failed, unbound
	)

	DeviceWiringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dpm_device_wiring_duration_seconds",
			Help:    "Time spent wiring or unwiring a single device",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	ManagedDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpm_managed_devices",
			Help: "Number of devices in the last reconciliation snapshot",
		},
	)

	PendingUpdates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpm_pending_updates",
			Help: "Number of device updates waiting for the next reconciliation pass",
		},
	)

	// 알림 관련 메트릭
	NotificationsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpm_notifications_received_total",
			Help: "Total number of RPC notifications received",
		},
		[]string{"topic"}, // port_update, security_group_update, network_update
	)

	// 디바이스 소스(데이터베이스) 관련 메트릭
	DeviceSourceStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpm_device_source_status",
			Help: "Device source reachability (1 = reachable, 0 = unreachable)",
		},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dpm_db_query_duration_seconds",
			Help:    "Time spent executing database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	// 에러 메트릭
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpm_errors_total",
			Help: "Total number of errors encountered",
		},
		[]string{"error_type"},
	)

	// 시스템 정보
	AgentInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dpm_agent_info",
			Help: "Agent information",
		},
		[]string{"version", "agent_type", "agent_id", "host"},
	)
)

// RecordPass는 조정 패스 결과를 기록합니다
func RecordPass(result string, duration float64) {
	ReconciliationPasses.WithLabelValues(result).Inc()
	ReconciliationPassDuration.Observe(duration)
}

// RecordDevice는 디바이스 단위 작업을 기록합니다
func RecordDevice(action, status string, duration float64) {
	DevicesProcessed.WithLabelValues(action, status).Inc()
	DeviceWiringDuration.WithLabelValues(action).Observe(duration)
}

// RecordNotification은 수신한 알림을 기록합니다
func RecordNotification(topic string) {
	NotificationsReceived.WithLabelValues(topic).Inc()
}

// RecordDBQuery는 데이터베이스 쿼리 시간을 기록합니다
func RecordDBQuery(queryType string, duration float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(duration)
}

// RecordError는 에러 발생을 기록합니다
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetLoopState는 현재 루프 상태만 1로 설정합니다
func SetLoopState(current string, all []string) {
	for _, s := range all {
		if s == current {
			LoopState.WithLabelValues(s).Set(1)
		} else {
			LoopState.WithLabelValues(s).Set(0)
		}
	}
}

// SetManagedDevices는 스냅샷 크기를 설정합니다
func SetManagedDevices(count float64) {
	ManagedDevices.Set(count)
}

// SetPendingUpdates는 대기 중인 업데이트 수를 설정합니다
func SetPendingUpdates(count float64) {
	PendingUpdates.Set(count)
}

// SetBackoffLevel은 현재 백오프 레벨을 설정합니다
func SetBackoffLevel(level float64) {
	PollingBackoffLevel.Set(level)
}

// SetDeviceSourceStatus는 디바이스 소스 연결 상태를 설정합니다
func SetDeviceSourceStatus(reachable bool) {
	if reachable {
		DeviceSourceStatus.Set(1)
	} else {
		DeviceSourceStatus.Set(0)
	}
}

// SetAgentInfo는 에이전트 정보를 설정합니다
func SetAgentInfo(version, agentType, agentID, host string) {
	AgentInfo.WithLabelValues(version, agentType, agentID, host).Set(1)
}
