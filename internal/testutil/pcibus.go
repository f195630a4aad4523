package testutil

import (
	"fmt"

	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// FakeDevice is one device on a FakeBus. Cached* are the values the
// enumerator hands out; Vendor/Device are what configuration space
// actually contains. Splitting the two lets tests model stale or zeroed
// enumeration metadata.
type FakeDevice struct {
	Addr         pci.Addr
	Class        uint32
	CachedVendor uint16
	CachedDevice uint16

	Vendor       uint16
	Device       uint16
	SubsysVendor uint16
	SubsysDevice uint16
	Revision     uint8

	// FailOffsets forces config-space reads touching these offsets to
	// fail.
	FailOffsets map[int]bool
}

// FakeBus implements pci.Bus and pci.ConfigSpace over an in-memory device
// list. The zero value is an empty bus.
type FakeBus struct {
	List    []FakeDevice
	EnumErr error
}

// Compile-time interface guards.
var (
	_ pci.Bus         = (*FakeBus)(nil)
	_ pci.ConfigSpace = (*FakeBus)(nil)
)

// Devices returns the fake device list as enumeration records.
func (b *FakeBus) Devices() ([]pci.RawDevice, error) {
	if b.EnumErr != nil {
		return nil, b.EnumErr
	}
	out := make([]pci.RawDevice, 0, len(b.List))
	for _, d := range b.List {
		out = append(out, pci.RawDevice{
			Addr:   d.Addr,
			Vendor: d.CachedVendor,
			Device: d.CachedDevice,
			Class:  d.Class,
		})
	}
	return out, nil
}

func (b *FakeBus) find(addr pci.Addr) (*FakeDevice, error) {
	for i := range b.List {
		if b.List[i].Addr == addr {
			return &b.List[i], nil
		}
	}
	return nil, fmt.Errorf("no device at %s", addr)
}

// header renders the device's config header bytes (first 0x40 bytes).
func (d *FakeDevice) header() [0x40]byte {
	var h [0x40]byte
	putWord := func(off int, v uint16) {
		h[off] = byte(v)
		h[off+1] = byte(v >> 8)
	}
	putWord(pci.CfgVendorID, d.Vendor)
	putWord(pci.CfgDeviceID, d.Device)
	h[pci.CfgRevisionID] = d.Revision
	h[pci.CfgClassCode] = byte(d.Class)
	h[pci.CfgClassCode+1] = byte(d.Class >> 8)
	h[pci.CfgClassCode+2] = byte(d.Class >> 16)
	putWord(pci.CfgSubsysVendorID, d.SubsysVendor)
	putWord(pci.CfgSubsysDeviceID, d.SubsysDevice)
	return h
}

func (b *FakeBus) read(addr pci.Addr, offset, width int) (uint32, error) {
	d, err := b.find(addr)
	if err != nil {
		return 0, err
	}
	for i := 0; i < width; i++ {
		if d.FailOffsets[offset+i] {
			return 0, fmt.Errorf("config read failed at %s+%#x", addr, offset+i)
		}
	}
	if offset < 0 || offset+width > 0x40 {
		return 0, fmt.Errorf("config offset %#x out of range", offset)
	}
	h := d.header()
	var v uint32
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint32(h[offset+i])
	}
	return v, nil
}

// ReadByte implements pci.ConfigSpace.
func (b *FakeBus) ReadByte(addr pci.Addr, offset int) (uint8, error) {
	v, err := b.read(addr, offset, 1)
	return uint8(v), err
}

// ReadWord implements pci.ConfigSpace.
func (b *FakeBus) ReadWord(addr pci.Addr, offset int) (uint16, error) {
	v, err := b.read(addr, offset, 2)
	return uint16(v), err
}

// ReadDword implements pci.ConfigSpace.
func (b *FakeBus) ReadDword(addr pci.Addr, offset int) (uint32, error) {
	return b.read(addr, offset, 4)
}
