// Package resolve determines the real PCI identity behind a network
// interface. An interface's cached binding may carry a synthetic
// placeholder identity substituted by a firmware abstraction layer;
// resolution tries the most authoritative source first and falls back to
// heuristics:
//
//	handle  - platform-native interface-to-bus lookup (when available)
//	binding - the interface's own cached PCI identity (when not synthetic)
//	scan    - bus scan with positional correlation
package resolve

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hwcensus/pnpcensus/internal/probe"
	"github.com/hwcensus/pnpcensus/internal/synthid"
	"github.com/hwcensus/pnpcensus/pkg/models"
	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// Source identifies which strategy produced a resolution.
type Source string

const (
	SourceHandle  Source = "handle"
	SourceBinding Source = "binding"
	SourceScan    Source = "scan"
)

// HandleResolver translates a network interface into its bus locator
// through a platform-native lookup. Implementations exist only where the
// platform exposes such a facility; absence is signalled by ErrUnsupported
// from the constructor, not by this interface.
type HandleResolver interface {
	Resolve(ifName string) (pci.Addr, error)
}

// Pool hands out identity snapshots to the strategies that must copy their
// result. Put is called exactly once per snapshot handed out, via
// Resolution.Release. Tests substitute a counting pool to verify the
// discipline.
type Pool interface {
	Get() *pci.Identity
	Put(*pci.Identity)
}

type defaultPool struct{ p sync.Pool }

func newDefaultPool() *defaultPool {
	return &defaultPool{p: sync.Pool{New: func() any { return new(pci.Identity) }}}
}

func (d *defaultPool) Get() *pci.Identity { return d.p.Get().(*pci.Identity) }
func (d *defaultPool) Put(id *pci.Identity) { d.p.Put(id) }

// Resolution is the outcome of a successful resolution. The release
// obligation is encoded in the type: a borrowed resolution aliases the
// interface's own binding and has nothing to release, an owned one holds a
// freshly filled snapshot that Release must return exactly once.
type Resolution struct {
	Identity *pci.Identity
	Source   Source
	release  func()
}

// Owned reports whether the caller must Release this resolution.
func (r *Resolution) Owned() bool { return r.release != nil }

// Release returns an owned snapshot. Safe to call more than once and on
// borrowed resolutions; only the first call on an owned resolution does
// anything. The Identity must not be used afterwards.
func (r *Resolution) Release() {
	if r.release != nil {
		r.release()
		r.release = nil
		r.Identity = nil
	}
}

// Resolver runs the per-interface resolution procedure.
type Resolver struct {
	handles HandleResolver
	scanner *probe.Scanner
	synth   *synthid.Table
	cfg     pci.ConfigSpace
	pool    Pool
	log     *zap.Logger
}

// New creates a Resolver. handles may be nil when the platform offers no
// handle-mediated lookup; pool may be nil to use an internal sync.Pool.
func New(scanner *probe.Scanner, synth *synthid.Table, cfg pci.ConfigSpace, handles HandleResolver, pool Pool, log *zap.Logger) *Resolver {
	if pool == nil {
		pool = newDefaultPool()
	}
	return &Resolver{
		handles: handles,
		scanner: scanner,
		synth:   synth,
		cfg:     cfg,
		pool:    pool,
		log:     log,
	}
}

// Resolve determines the identity behind one interface. ordinal is the
// interface's zero-based position in the active-interface list, total the
// list's length; both feed positional correlation on the scan path.
// Returns ErrUnidentified when no strategy succeeds — a documented
// "cannot identify" outcome, not a fault.
func (r *Resolver) Resolve(iface models.Interface, ordinal, total int) (*Resolution, error) {
	if res := r.tryHandle(iface); res != nil {
		return res, nil
	}
	if res := r.tryBinding(iface); res != nil {
		return res, nil
	}
	return r.tryScan(iface, ordinal, total)
}

// tryHandle attempts the platform-native lookup. Any failure along the way
// yields nil, never partial data.
func (r *Resolver) tryHandle(iface models.Interface) *Resolution {
	if r.handles == nil {
		return nil
	}
	addr, err := r.handles.Resolve(iface.Name)
	if err != nil {
		r.log.Debug("handle lookup failed",
			zap.String("interface", iface.Name),
			zap.Error(err))
		return nil
	}

	raw, err := r.cfg.ReadDword(addr, pci.CfgVendorID)
	if err != nil {
		r.log.Debug("config read behind handle failed",
			zap.String("interface", iface.Name),
			zap.Stringer("addr", addr),
			zap.Error(err))
		return nil
	}
	vendor := uint16(raw)
	device := uint16(raw >> 16)
	if !pci.ValidID(vendor) || !pci.ValidID(device) {
		r.log.Debug("handle resolved to sentinel identity",
			zap.String("interface", iface.Name),
			zap.Stringer("addr", addr))
		return nil
	}

	id := r.snapshot(addr, vendor, device)
	return &Resolution{
		Identity: id,
		Source:   SourceHandle,
		release:  func() { r.pool.Put(id) },
	}
}

// tryBinding inspects the interface's cached PCI binding directly. The
// cached identity is trusted unless the classifier knows it to be a
// placeholder. The result borrows the binding's snapshot; nothing is
// allocated.
func (r *Resolver) tryBinding(iface models.Interface) *Resolution {
	if iface.Binding.Kind != models.BusKindPCI || iface.Binding.PCI == nil {
		return nil
	}
	cached := iface.Binding.PCI
	if layer := r.synth.Lookup(cached.Vendor, cached.Device); layer != "" {
		r.log.Debug("cached identity is a known placeholder",
			zap.String("interface", iface.Name),
			zap.Uint16("vendor", cached.Vendor),
			zap.Uint16("device", cached.Device),
			zap.String("layer", layer))
		return nil
	}
	return &Resolution{Identity: cached, Source: SourceBinding}
}

// tryScan is the last resort: scan the bus for network controllers and
// pick one by position.
func (r *Resolver) tryScan(iface models.Interface, ordinal, total int) (*Resolution, error) {
	controllers, err := r.scanner.NetworkControllers()
	if err != nil {
		r.log.Warn("bus scan failed",
			zap.String("interface", iface.Name),
			zap.Error(err))
		return nil, ErrUnidentified
	}

	ctrl, ok := r.correlate(controllers, ordinal, total)
	if !ok {
		r.log.Debug("no scan result correlates with interface",
			zap.String("interface", iface.Name),
			zap.Int("ordinal", ordinal),
			zap.Int("controllers", len(controllers)))
		return nil, ErrUnidentified
	}

	id := r.snapshot(ctrl.Addr, ctrl.Vendor, ctrl.Device)
	return &Resolution{
		Identity: id,
		Source:   SourceScan,
		release:  func() { r.pool.Put(id) },
	}, nil
}

// correlate selects a scanned controller for the interface at the given
// ordinal. With a single active interface there is nothing to
// disambiguate, so the first controller wins regardless of ordinal.
// Otherwise the pairing assumes active-interface order and scan order
// correspond 1:1; a count mismatch makes that assumption shaky, so it is
// logged before the ordinal rule is applied anyway.
func (r *Resolver) correlate(controllers []probe.Controller, ordinal, total int) (probe.Controller, bool) {
	if total == 1 {
		if len(controllers) == 0 {
			return probe.Controller{}, false
		}
		return controllers[0], true
	}
	if len(controllers) != total {
		r.log.Warn("scanned controller count differs from active interface count; positional pairing may misattribute identities",
			zap.Int("controllers", len(controllers)),
			zap.Int("interfaces", total))
	}
	for _, c := range controllers {
		if c.Ordinal == ordinal {
			return c, true
		}
	}
	return probe.Controller{}, false
}

// snapshot fills an owned identity for a device whose vendor/device are
// already verified. Subsystem and revision reads may fail independently;
// each failure falls back to the documented default (0x0000 / 0x00).
func (r *Resolver) snapshot(addr pci.Addr, vendor, device uint16) *pci.Identity {
	id := r.pool.Get()
	*id = pci.Identity{Vendor: vendor, Device: device, Addr: addr}
	if v, err := r.cfg.ReadWord(addr, pci.CfgSubsysVendorID); err == nil {
		id.SubsysVendor = v
	}
	if v, err := r.cfg.ReadWord(addr, pci.CfgSubsysDeviceID); err == nil {
		id.SubsysDevice = v
	}
	if v, err := r.cfg.ReadByte(addr, pci.CfgRevisionID); err == nil {
		id.Revision = v
	}
	return id
}
