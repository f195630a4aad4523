package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hwcensus/pnpcensus/internal/census"
	"github.com/hwcensus/pnpcensus/pkg/models"
	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// DefaultNetRoot is where the kernel exposes network interfaces.
const DefaultNetRoot = "/sys/class/net"

// InterfaceSource lists active network interfaces from sysfs. Loopback is
// excluded; everything else is reported, with a PCI binding when the
// interface's device link points into the PCI tree and a virtual binding
// otherwise.
type InterfaceSource struct {
	root string
	log  *zap.Logger
}

// Compile-time interface guard.
var _ census.Source = (*InterfaceSource)(nil)

// NewInterfaceSource creates an InterfaceSource rooted at the given
// directory; an empty root means DefaultNetRoot.
func NewInterfaceSource(root string, log *zap.Logger) *InterfaceSource {
	if root == "" {
		root = DefaultNetRoot
	}
	return &InterfaceSource{root: root, log: log}
}

// Interfaces implements census.Source. sysfs directory order (sorted by
// name) is the enumeration order, so ordinals are stable across calls
// within a run.
func (s *InterfaceSource) Interfaces() ([]models.Interface, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.root, err)
	}

	ifaces := make([]models.Interface, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == "lo" || strings.HasPrefix(name, "lo:") {
			continue
		}
		ifaces = append(ifaces, models.Interface{
			Name:    name,
			Binding: s.binding(name),
		})
	}
	return ifaces, nil
}

// binding classifies what the interface sits on. Interfaces without a
// device link (bridges, bonds, tunnels) and interfaces on other buses
// (USB) get a virtual binding.
func (s *InterfaceSource) binding(name string) models.BusBinding {
	link := filepath.Join(s.root, name, "device")
	target, err := os.Readlink(link)
	if err != nil {
		return models.BusBinding{Kind: models.BusKindVirtual}
	}

	addr, err := pci.ParseBDF(filepath.Base(target))
	if err != nil {
		return models.BusBinding{Kind: models.BusKindVirtual}
	}

	id := &pci.Identity{Addr: addr}
	if v, err := readHexAttr(link, "vendor"); err == nil {
		id.Vendor = uint16(v)
	}
	if v, err := readHexAttr(link, "device"); err == nil {
		id.Device = uint16(v)
	}
	if v, err := readHexAttr(link, "subsystem_vendor"); err == nil {
		id.SubsysVendor = uint16(v)
	}
	if v, err := readHexAttr(link, "subsystem_device"); err == nil {
		id.SubsysDevice = uint16(v)
	}
	if v, err := readHexAttr(link, "revision"); err == nil {
		id.Revision = uint8(v)
	}

	s.log.Debug("interface has PCI binding",
		zap.String("interface", name),
		zap.Stringer("addr", addr))
	return models.BusBinding{Kind: models.BusKindPCI, PCI: id}
}
