// Package pnppath renders a resolved PCI identity as a Windows-compatible
// Plug-and-Play hardware ID, the format driver-matching databases key on.
package pnppath

import (
	"fmt"

	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// Format renders the canonical PnP hardware ID:
//
//	PCI\VEN_vvvv&DEV_dddd&SUBSYS_ddddvvvv&REV_rr\b&s&f&bdf
//
// All ID fields are fixed-width upper-case hex; the trailing locator is the
// raw packed bus/slot/function value without padding. The SUBSYS field
// concatenates subsystem device then subsystem vendor — that ordering is
// part of the consuming convention and must not be "corrected".
func Format(id pci.Identity) string {
	subsysDevice, subsysVendor := Subsystem(id)
	return fmt.Sprintf("PCI\\VEN_%04X&DEV_%04X&SUBSYS_%04X%04X&REV_%02X\\%X&%X&%X&%X",
		id.Vendor, id.Device, subsysDevice, subsysVendor, id.Revision,
		id.Addr.Bus(), id.Addr.Slot(), id.Addr.Func(), uint32(id.Addr))
}

// Subsystem returns the (device, vendor) pair to place in the SUBSYS field.
// When either subsystem ID is a sentinel (0x0000 or 0xFFFF, checked
// independently) no true subsystem exists, and the convention substitutes
// the snapshot's own device ID in the subsystem-device slot and its vendor
// ID in the subsystem-vendor slot.
func Subsystem(id pci.Identity) (device, vendor uint16) {
	if !pci.ValidID(id.SubsysVendor) || !pci.ValidID(id.SubsysDevice) {
		return id.Device, id.Vendor
	}
	return id.SubsysDevice, id.SubsysVendor
}
