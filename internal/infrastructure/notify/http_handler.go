package notify

import (
	"encoding/json"
	"io"
	"net/http"

	"dpm-agent/internal/application/notifications"

	"github.com/sirupsen/logrus"
)

// Notification routes served by Handler
const (
	PortUpdatePath          = "/v1/notifications/port-update"
	SecurityGroupUpdatePath = "/v1/notifications/security-group-update"
	NetworkUpdatePath       = "/v1/notifications/network-update"
)

const maxBodyBytes = 1 << 20

// securityGroupUpdateRequest is the body of a security group provider update
type securityGroupUpdateRequest struct {
	DevicesToUpdate []string `json:"devices_to_update"`
}

// networkUpdateRequest is the body of a network update
type networkUpdateRequest struct {
	Network struct {
		ID string `json:"id"`
	} `json:"network"`
}

// Handler decodes notification payloads posted by the local RPC bridge and
// hands them to the agent callbacks. Delivery is fire-and-forget: a decoded
// notification is always acknowledged with 202.
type Handler struct {
	callbacks notifications.Handler
	logger    *logrus.Logger
}

// NewHandler creates a new notification Handler
func NewHandler(callbacks notifications.Handler, logger *logrus.Logger) *Handler {
	return &Handler{
		callbacks: callbacks,
		logger:    logger,
	}
}

// Register adds the notification routes to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(PortUpdatePath, h.handlePortUpdate)
	mux.HandleFunc(SecurityGroupUpdatePath, h.handleSecurityGroupUpdate)
	mux.HandleFunc(NetworkUpdatePath, h.handleNetworkUpdate)
}

func (h *Handler) handlePortUpdate(w http.ResponseWriter, r *http.Request) {
	var n notifications.PortUpdateNotification
	if !h.decode(w, r, &n) {
		return
	}
	if n.Port.MACAddress == "" {
		http.Error(w, "port.mac_address is required", http.StatusBadRequest)
		return
	}

	h.callbacks.PortUpdate(r.Context(), n)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleSecurityGroupUpdate(w http.ResponseWriter, r *http.Request) {
	var req securityGroupUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.callbacks.SecurityGroupsUpdated(r.Context(), req.DevicesToUpdate)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleNetworkUpdate(w http.ResponseWriter, r *http.Request) {
	var req networkUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.callbacks.NetworkUpdate(r.Context(), req.Network.ID)
	w.WriteHeader(http.StatusAccepted)
}

// decode reads a JSON body from a POST request, writing the error response itself on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		h.logger.WithError(err).WithField("path", r.URL.Path).Warn("Malformed notification payload")
		http.Error(w, "malformed JSON payload", http.StatusBadRequest)
		return false
	}
	return true
}
