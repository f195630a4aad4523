// Package pci defines the primitives shared by every stage of NIC identity
// resolution: packed bus/slot/function locators, configuration-space layout,
// and the read-only interfaces a platform backend must provide.
package pci

import (
	"fmt"
)

// Addr is a packed bus/slot/function locator. Layout (low to high bits):
// function 3 bits, slot 5 bits, bus 8 bits, segment in the remaining high
// bits. Two identity snapshots refer to the same physical device iff their
// Addr values are equal, regardless of how each snapshot was obtained.
type Addr uint32

// MakeAddr packs a bus/slot/function triple into an Addr (segment zero).
func MakeAddr(bus, slot, fn uint8) Addr {
	return Addr(uint32(bus)<<8 | uint32(slot&0x1f)<<3 | uint32(fn&0x07))
}

// Bus returns the bus number component.
func (a Addr) Bus() uint8 { return uint8(a >> 8) }

// Slot returns the device (slot) number component.
func (a Addr) Slot() uint8 { return uint8(a>>3) & 0x1f }

// Func returns the function number component.
func (a Addr) Func() uint8 { return uint8(a) & 0x07 }

// Segment returns the PCI segment (domain) component.
func (a Addr) Segment() uint16 { return uint16(a >> 16) }

// String renders the locator as "bb:ss.f".
func (a Addr) String() string {
	return fmt.Sprintf("%02x:%02x.%x", a.Bus(), a.Slot(), a.Func())
}

// ParseBDF parses a locator in sysfs/ethtool form, either
// "dddd:bb:ss.f" or "bb:ss.f" (hex fields).
func ParseBDF(s string) (Addr, error) {
	var segment, bus, slot, fn uint32
	n, err := fmt.Sscanf(s, "%04x:%02x:%02x.%x", &segment, &bus, &slot, &fn)
	if err != nil || n != 4 {
		segment = 0
		n, err = fmt.Sscanf(s, "%02x:%02x.%x", &bus, &slot, &fn)
		if err != nil || n != 3 {
			return 0, fmt.Errorf("parse bus address %q: malformed", s)
		}
	}
	if bus > 0xff || slot > 0x1f || fn > 0x07 {
		return 0, fmt.Errorf("parse bus address %q: component out of range", s)
	}
	return Addr(segment<<16 | bus<<8 | slot<<3 | fn), nil
}

// Sentinel vendor/device ID values. A device reporting either value for its
// vendor or device ID is not a usable identity: 0x0000 means the field was
// never assigned, 0xFFFF is what a read of absent hardware returns.
const (
	IDUnassigned uint16 = 0x0000
	IDNotPresent uint16 = 0xFFFF
)

// ValidID reports whether a vendor or device ID is neither sentinel.
func ValidID(id uint16) bool {
	return id != IDUnassigned && id != IDNotPresent
}

// Configuration-space register offsets.
const (
	CfgVendorID       = 0x00 // word
	CfgDeviceID       = 0x02 // word
	CfgRevisionID     = 0x08 // byte
	CfgClassCode      = 0x09 // three bytes, prog-if first
	CfgSubsysVendorID = 0x2c // word
	CfgSubsysDeviceID = 0x2e // word
)

// ClassNetwork is the base class code for network controllers. A RawDevice's
// 24-bit class code matches when its top byte equals this value.
const ClassNetwork = 0x02

// Identity is a resolved device identity snapshot.
type Identity struct {
	Vendor       uint16
	Device       uint16
	SubsysVendor uint16
	SubsysDevice uint16
	Revision     uint8
	Addr         Addr
}

// SameDevice reports whether two snapshots describe the same physical
// device. Only the locator participates; the ID fields may legitimately
// differ between an abstracted reading and a config-space reading.
func (id Identity) SameDevice(other Identity) bool {
	return id.Addr == other.Addr
}

// RawDevice is one bus enumeration record: the locator plus the metadata
// the enumerator had cached for it. The cached vendor/device may be stale
// or zero; consumers that care re-read them from configuration space.
type RawDevice struct {
	Addr   Addr
	Vendor uint16
	Device uint16
	Class  uint32 // 24-bit class code, base class in the top byte
}

// BaseClass returns the record's base class code.
func (d RawDevice) BaseClass() uint8 { return uint8(d.Class >> 16) }

// ConfigSpace provides read access to a device's configuration space.
// Reads never modify device state. Each read independently reports
// success or failure.
type ConfigSpace interface {
	ReadByte(addr Addr, offset int) (uint8, error)
	ReadWord(addr Addr, offset int) (uint16, error)
	ReadDword(addr Addr, offset int) (uint32, error)
}

// Bus enumerates bus devices. Devices returns a fresh snapshot on every
// call, in deterministic increasing-Addr order, so callers may restart
// a walk simply by calling it again.
type Bus interface {
	Devices() ([]RawDevice, error)
}
