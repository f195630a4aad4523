// Package probe walks the PCI bus looking for network controllers.
package probe

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// Controller is one verified network-class controller found on the bus.
type Controller struct {
	Addr   pci.Addr
	Vendor uint16
	Device uint16

	// Ordinal is the controller's zero-based position among the valid
	// network-class devices of one scan, in increasing-address order.
	Ordinal int
}

// Scanner finds network controllers on a bus. Each call to
// NetworkControllers performs a fresh scan from address zero.
type Scanner struct {
	bus pci.Bus
	cfg pci.ConfigSpace
	log *zap.Logger
}

// NewScanner creates a Scanner over the given bus and config space.
func NewScanner(bus pci.Bus, cfg pci.ConfigSpace, log *zap.Logger) *Scanner {
	return &Scanner{bus: bus, cfg: cfg, log: log}
}

// NetworkControllers scans the bus and returns every network-class device
// whose identity could be verified, in increasing-address order.
//
// The enumerator's cached vendor/device values are never trusted: both are
// re-read from configuration space, and a device whose re-read vendor or
// device is a sentinel (0x0000 or 0xFFFF) is dropped. Ordinals count only
// the devices that survive.
func (s *Scanner) NetworkControllers() ([]Controller, error) {
	devices, err := s.bus.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate bus devices: %w", err)
	}

	var found []Controller
	for _, dev := range devices {
		if dev.BaseClass() != pci.ClassNetwork {
			continue
		}

		// Re-read vendor/device as a single dword, like the live config
		// header read: vendor in the low word, device in the high word.
		raw, err := s.cfg.ReadDword(dev.Addr, pci.CfgVendorID)
		if err != nil {
			s.log.Debug("config read failed, skipping device",
				zap.Stringer("addr", dev.Addr),
				zap.Error(err))
			continue
		}
		vendor := uint16(raw)
		device := uint16(raw >> 16)
		if !pci.ValidID(vendor) || !pci.ValidID(device) {
			s.log.Debug("network controller has sentinel identity, skipping",
				zap.Stringer("addr", dev.Addr),
				zap.Uint16("vendor", vendor),
				zap.Uint16("device", device))
			continue
		}

		found = append(found, Controller{
			Addr:    dev.Addr,
			Vendor:  vendor,
			Device:  device,
			Ordinal: len(found),
		})
	}

	s.log.Debug("bus scan complete",
		zap.Int("devices", len(devices)),
		zap.Int("network_controllers", len(found)))
	return found, nil
}
