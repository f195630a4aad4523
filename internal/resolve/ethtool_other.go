//go:build !linux

package resolve

import "github.com/hwcensus/pnpcensus/pkg/pci"

// EthtoolResolver is unavailable off Linux; the constructor reports the
// missing capability and resolution proceeds without the handle strategy.
type EthtoolResolver struct{}

// NewEthtoolResolver always fails on this platform.
func NewEthtoolResolver() (*EthtoolResolver, error) {
	return nil, ErrUnsupported
}

// Resolve implements HandleResolver.
func (e *EthtoolResolver) Resolve(string) (pci.Addr, error) {
	return 0, ErrUnsupported
}

// Close implements io.Closer.
func (e *EthtoolResolver) Close() error { return nil }
