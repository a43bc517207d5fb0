package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dpm-agent/internal/domain/constants"
	"dpm-agent/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// unhealthyAfterFailures is the number of consecutive abandoned passes after which
// the device source is considered unreachable
const unhealthyAfterFailures = 3

// LoopStateReader exposes the current reconciliation loop state
type LoopStateReader interface {
	Current() string
}

// AgentDescriber provides the identity and configuration reported on /agent
type AgentDescriber interface {
	DescribeConfiguration() map[string]map[string]string
	AgentIdentifier() string
	Host() string
	AgentType() string
	Binary() string
	ExtensionDriverType() string
}

// HealthService provides health check functionality
type HealthService struct {
	mu                  sync.RWMutex
	clock               interfaces.Clock
	logger              *logrus.Logger
	startTime           time.Time
	loopState           LoopStateReader
	agent               AgentDescriber
	dbHealthy           bool
	dbError             error
	completedPasses     int64
	abandonedPasses     int64
	consecutiveFailures int
	managedDevices      int
	failedDevices       int
	lastPass            time.Time
}

// HealthStatus represents health check status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the health check response struct
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	LastPass   string                 `json:"last_pass"`
	Components map[string]interface{} `json:"components"`
	Statistics map[string]interface{} `json:"statistics"`
}

// AgentReport is the agent state report served on /agent
type AgentReport struct {
	Binary         string             `json:"binary"`
	Host           string             `json:"host"`
	AgentType      string             `json:"agent_type"`
	AgentID        string             `json:"agent_id"`
	Topic          string             `json:"topic"`
	RPCVersion     string             `json:"rpc_version"`
	Configurations AgentConfiguration `json:"configurations"`
	StartFlag      bool               `json:"start_flag"`
}

// AgentConfiguration is the configuration section of AgentReport
type AgentConfiguration struct {
	InterfaceMappings map[string]map[string]string `json:"interface_mappings"`
	ExtensionDriver   string                       `json:"extension_driver"`
}

// NewHealthService creates a new HealthService
func NewHealthService(clock interfaces.Clock, loopState LoopStateReader, agent AgentDescriber, logger *logrus.Logger) *HealthService {
	return &HealthService{
		clock:     clock,
		logger:    logger,
		startTime: clock.Now(),
		loopState: loopState,
		agent:     agent,
	}
}

// UpdateDBHealth updates the device source health status
func (h *HealthService) UpdateDBHealth(healthy bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dbHealthy = healthy
	h.dbError = err
}

// ObservePass records the outcome of a reconciliation pass.
// An abandoned pass means the device source could not be scanned.
func (h *HealthService) ObservePass(success bool, managedDevices int, failedDevices int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastPass = h.clock.Now()
	if !success {
		h.abandonedPasses++
		h.consecutiveFailures++
		h.dbError = fmt.Errorf("device scan failed in %d consecutive passes", h.consecutiveFailures)
		if h.consecutiveFailures >= unhealthyAfterFailures {
			h.dbHealthy = false
		}
		return
	}

	h.completedPasses++
	h.consecutiveFailures = 0
	h.managedDevices = managedDevices
	h.failedDevices = failedDevices
	h.dbHealthy = true
	h.dbError = nil
}

// ServeHTTP handles the HTTP health check endpoint
func (h *HealthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := h.buildHealthResponse()

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, response)
}

// AgentHandler serves the agent state report.
// start_flag stays true until the first reconciliation pass completes.
func (h *HealthService) AgentHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.writeJSON(w, http.StatusOK, h.buildAgentReport())
	})
}

func (h *HealthService) buildAgentReport() AgentReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return AgentReport{
		Binary:     h.agent.Binary(),
		Host:       h.agent.Host(),
		AgentType:  h.agent.AgentType(),
		AgentID:    h.agent.AgentIdentifier(),
		Topic:      constants.AgentTopic,
		RPCVersion: constants.RPCVersion,
		Configurations: AgentConfiguration{
			InterfaceMappings: h.agent.DescribeConfiguration(),
			ExtensionDriver:   h.agent.ExtensionDriverType(),
		},
		StartFlag: h.completedPasses == 0,
	}
}

// buildHealthResponse constructs the health check response
func (h *HealthService) buildHealthResponse() HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.clock.Now()
	state := h.loopState.Current()

	components := map[string]interface{}{
		"device_source": map[string]interface{}{
			"healthy": h.dbHealthy,
			"error":   h.formatError(h.dbError),
		},
		"reconciliation_loop": map[string]interface{}{
			"state":                state,
			"consecutive_failures": h.consecutiveFailures,
		},
	}

	statistics := map[string]interface{}{
		"completed_passes": h.completedPasses,
		"abandoned_passes": h.abandonedPasses,
		"managed_devices":  h.managedDevices,
		"failed_devices":   h.failedDevices,
		"uptime":           h.formatUptime(now.Sub(h.startTime)),
	}

	lastPass := ""
	if !h.lastPass.IsZero() {
		lastPass = h.lastPass.Format(time.RFC3339)
	}

	return HealthResponse{
		Status:     h.determineOverallStatus(state),
		Timestamp:  now.Format(time.RFC3339),
		LastPass:   lastPass,
		Components: components,
		Statistics: statistics,
	}
}

// determineOverallStatus determines the overall health status
func (h *HealthService) determineOverallStatus(state string) HealthStatus {
	if !h.dbHealthy || state == "terminated" {
		return StatusUnhealthy
	}

	if h.consecutiveFailures > 0 {
		return StatusDegraded
	}

	// 관리 중인 디바이스의 절반 이상이 실패하면 degraded
	if h.managedDevices+h.failedDevices > 0 && h.failedDevices > 0 {
		failureRate := float64(h.failedDevices) / float64(h.managedDevices+h.failedDevices)
		if failureRate >= 0.5 {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

func (h *HealthService) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("failed to encode response")
	}
}

// formatError formats an error to string
func (h *HealthService) formatError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// formatUptime formats uptime duration to human-readable format
func (h *HealthService) formatUptime(duration time.Duration) string {
	days := int(duration.Hours()) / 24
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
