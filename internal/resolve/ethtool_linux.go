//go:build linux

package resolve

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// EthtoolResolver resolves an interface to its bus locator through the
// kernel's ETHTOOL_GDRVINFO ioctl, whose bus_info field carries the
// device's PCI address for PCI-backed interfaces.
type EthtoolResolver struct {
	fd int
}

// Compile-time interface guard.
var _ HandleResolver = (*EthtoolResolver)(nil)

// NewEthtoolResolver opens the control socket used for ethtool ioctls.
func NewEthtoolResolver() (*EthtoolResolver, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open ethtool control socket: %w", err)
	}
	return &EthtoolResolver{fd: fd}, nil
}

// Resolve returns the interface's PCI locator. Interfaces without a
// driver, or whose bus_info is not a PCI address (USB NICs, bonds,
// bridges), fail here and leave the caller to its fallback strategies.
func (e *EthtoolResolver) Resolve(ifName string) (pci.Addr, error) {
	info, err := unix.IoctlGetEthtoolDrvinfo(e.fd, ifName)
	if err != nil {
		return 0, fmt.Errorf("ethtool drvinfo %s: %w", ifName, err)
	}
	busInfo := unix.ByteSliceToString(info.Bus_info[:])
	if busInfo == "" {
		return 0, fmt.Errorf("interface %s reports no bus info", ifName)
	}
	addr, err := pci.ParseBDF(busInfo)
	if err != nil {
		return 0, fmt.Errorf("interface %s is not PCI-backed: %w", ifName, err)
	}
	return addr, nil
}

// Close releases the control socket.
func (e *EthtoolResolver) Close() error {
	return unix.Close(e.fd)
}
