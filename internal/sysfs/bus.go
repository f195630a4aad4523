// Package sysfs implements the platform interfaces over the Linux sysfs
// tree: PCI enumeration and configuration space from /sys/bus/pci/devices,
// active network interfaces from /sys/class/net. Roots are injectable so
// tests can run against a synthetic tree.
package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// DefaultPCIRoot is where the kernel exposes PCI devices.
const DefaultPCIRoot = "/sys/bus/pci/devices"

// Bus reads PCI devices and their configuration space from sysfs.
type Bus struct {
	root string
	log  *zap.Logger
}

// Compile-time interface guards.
var (
	_ pci.Bus         = (*Bus)(nil)
	_ pci.ConfigSpace = (*Bus)(nil)
)

// NewBus creates a Bus rooted at the given directory; an empty root means
// DefaultPCIRoot.
func NewBus(root string, log *zap.Logger) *Bus {
	if root == "" {
		root = DefaultPCIRoot
	}
	return &Bus{root: root, log: log}
}

// Devices implements pci.Bus. Entries whose name is not a PCI address are
// ignored; the result is sorted by packed address so every walk sees the
// same increasing order.
func (b *Bus) Devices() ([]pci.RawDevice, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.root, err)
	}

	devices := make([]pci.RawDevice, 0, len(entries))
	for _, entry := range entries {
		addr, err := pci.ParseBDF(entry.Name())
		if err != nil {
			continue
		}
		dir := filepath.Join(b.root, entry.Name())
		vendor, err := readHexAttr(dir, "vendor")
		if err != nil {
			b.log.Debug("unreadable device attribute, skipping",
				zap.String("device", entry.Name()),
				zap.Error(err))
			continue
		}
		device, err := readHexAttr(dir, "device")
		if err != nil {
			continue
		}
		class, err := readHexAttr(dir, "class")
		if err != nil {
			continue
		}
		devices = append(devices, pci.RawDevice{
			Addr:   addr,
			Vendor: uint16(vendor),
			Device: uint16(device),
			Class:  class & 0xffffff,
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Addr < devices[j].Addr })
	return devices, nil
}

// ReadByte implements pci.ConfigSpace.
func (b *Bus) ReadByte(addr pci.Addr, offset int) (uint8, error) {
	buf, err := b.readConfig(addr, offset, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadWord implements pci.ConfigSpace.
func (b *Bus) ReadWord(addr pci.Addr, offset int) (uint16, error) {
	buf, err := b.readConfig(addr, offset, 2)
	if err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// ReadDword implements pci.ConfigSpace.
func (b *Bus) ReadDword(addr pci.Addr, offset int) (uint32, error) {
	buf, err := b.readConfig(addr, offset, 4)
	if err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// readConfig reads n bytes of the device's config file. The kernel
// truncates the file to the space the caller may see, so short reads fail
// like a refused bus access would.
func (b *Bus) readConfig(addr pci.Addr, offset, n int) ([]byte, error) {
	path := filepath.Join(b.root, bdfName(addr), "config")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config space %s: %w", addr, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("read config space %s+%#x: %w", addr, offset, err)
	}
	return buf, nil
}

// bdfName renders an Addr the way sysfs names device directories.
func bdfName(addr pci.Addr) string {
	return fmt.Sprintf("%04x:%02x:%02x.%x",
		addr.Segment(), addr.Bus(), addr.Slot(), addr.Func())
}

// readHexAttr parses a single-value sysfs attribute file like "0x8086\n".
func readHexAttr(dir, name string) (uint32, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return 0, err
	}
	s := strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", name, err)
	}
	return uint32(v), nil
}
