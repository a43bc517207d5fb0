package wiring

import (
	"context"

	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// DPMGateway implements PortWiringGateway on top of the device source and the wiring store.
// A device is wired by recording its binding to the first adapter port mapped to its physical network.
type DPMGateway struct {
	source  interfaces.DeviceSource
	store   interfaces.WiringStore
	mapping *entities.InterfaceMapping
	host    string
	logger  *logrus.Logger
}

// NewDPMGateway creates a new DPMGateway
func NewDPMGateway(
	source interfaces.DeviceSource,
	store interfaces.WiringStore,
	mapping *entities.InterfaceMapping,
	host string,
	logger *logrus.Logger,
) *DPMGateway {
	return &DPMGateway{
		source:  source,
		store:   store,
		mapping: mapping,
		host:    host,
		logger:  logger,
	}
}

// ListAll returns every device bound to this host
func (g *DPMGateway) ListAll(ctx context.Context) (entities.DeviceSet, error) {
	ids, err := g.source.ListDeviceIDs(ctx, g.host)
	if err != nil {
		return nil, err
	}
	return entities.NewDeviceSet(ids...), nil
}

// DeviceDetails returns the current state of a device
func (g *DPMGateway) DeviceDetails(ctx context.Context, id entities.DeviceID) (entities.Device, error) {
	device, err := g.source.GetDevice(ctx, g.host, id)
	if err != nil {
		return entities.Device{}, err
	}
	if err := device.Validate(); err != nil {
		return entities.Device{}, err
	}
	return *device, nil
}

// Attach binds the device to an adapter port of its physical network.
// It returns false without error when the physical network is not mapped on this host.
func (g *DPMGateway) Attach(ctx context.Context, device entities.Device) (bool, error) {
	ports, ok := g.mapping.Ports(device.PhysicalNetwork)
	if !ok || len(ports) == 0 {
		g.logger.WithFields(logrus.Fields{
			"device":           device.ID,
			"physical_network": device.PhysicalNetwork,
			"mapped_networks":  g.mapping.Networks(),
		}).Debug("Physical network has no adapter mapping")
		return false, nil
	}

	ap := ports[0]
	if err := g.store.UpsertBinding(ctx, g.host, device.ID, ap, device.AdminStateUp); err != nil {
		return false, err
	}

	g.logger.WithFields(logrus.Fields{
		"device":           device.ID,
		"physical_network": device.PhysicalNetwork,
		"flat":             device.IsFlat(),
		"adapter":          ap.AdapterID,
		"port":             ap.Port,
	}).Info("Device attached")
	return true, nil
}

// Detach removes the device's adapter port binding
func (g *DPMGateway) Detach(ctx context.Context, id entities.DeviceID) error {
	return g.store.DeleteBinding(ctx, g.host, id)
}

// SetAdminState records the administrative state of a wired device
func (g *DPMGateway) SetAdminState(ctx context.Context, id entities.DeviceID, up bool) error {
	return g.store.SetAdminState(ctx, g.host, id, up)
}

// Protect records anti-spoofing protection for the device
func (g *DPMGateway) Protect(ctx context.Context, device entities.Device) error {
	return g.store.SetProtected(ctx, g.host, []entities.DeviceID{device.ID}, true)
}

// Unprotect removes anti-spoofing protection for the devices
func (g *DPMGateway) Unprotect(ctx context.Context, ids []entities.DeviceID) error {
	return g.store.SetProtected(ctx, g.host, ids, false)
}

// UnprotectUnreferenced removes protection from every device this host protected that is missing from current.
// Rows written by agents on other hosts are never touched.
func (g *DPMGateway) UnprotectUnreferenced(ctx context.Context, current entities.DeviceSet) error {
	protected, err := g.store.ListProtected(ctx, g.host)
	if err != nil {
		return err
	}

	var stale []entities.DeviceID
	for _, id := range protected {
		if !current.Has(id) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	g.logger.WithField("devices", stale).Info("Removing protection from unreferenced devices")
	return g.store.SetProtected(ctx, g.host, stale, false)
}
