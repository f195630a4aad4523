package models

import "github.com/hwcensus/pnpcensus/pkg/pci"

// BusKind tags how a network interface is bound to the underlying bus.
type BusKind string

const (
	// BusKindPCI means the interface is directly backed by a PCI device
	// whose configuration space is readable.
	BusKindPCI BusKind = "pci"
	// BusKindVirtual means the interface sits behind an abstraction layer
	// (firmware shim, virtual function, USB, ...) with no direct PCI
	// binding.
	BusKindVirtual BusKind = "virtual"
)

// BusBinding describes what an interface is attached to. The kind is fixed
// for the lifetime of the interface within one enumeration pass.
type BusBinding struct {
	Kind BusKind

	// PCI is the binding's cached identity when Kind is BusKindPCI, nil
	// otherwise. The snapshot is owned by the platform layer that built
	// the binding; resolution may alias it but never releases it. Cached
	// vendor/device values here may be synthetic placeholders substituted
	// by an abstraction layer.
	PCI *pci.Identity
}

// Interface is one active network interface as reported by the platform,
// in platform enumeration order.
type Interface struct {
	Name    string
	Binding BusBinding
}
