// Package census walks the active network interfaces and produces one PnP
// hardware ID per interface whose real identity could be resolved.
package census

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hwcensus/pnpcensus/internal/pnppath"
	"github.com/hwcensus/pnpcensus/internal/resolve"
	"github.com/hwcensus/pnpcensus/pkg/models"
	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// Source provides the active network interfaces in platform enumeration
// order. That order doubles as the ordinal space for positional
// correlation, so it must be stable for the duration of a run.
type Source interface {
	Interfaces() ([]models.Interface, error)
}

// Record is one successfully identified interface.
type Record struct {
	Interface string
	PnPID     string
	Identity  pci.Identity
	Source    resolve.Source
}

// Runner drives resolution and formatting across all active interfaces.
type Runner struct {
	source   Source
	resolver *resolve.Resolver
	log      *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(source Source, resolver *resolve.Resolver, log *zap.Logger) *Runner {
	return &Runner{source: source, resolver: resolver, log: log}
}

// Run resolves every active interface and returns the records in
// active-interface order. An interface that cannot be identified is
// skipped; only a failure to enumerate interfaces at all is an error.
func (r *Runner) Run() ([]Record, error) {
	ifaces, err := r.source.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("enumerate network interfaces: %w", err)
	}

	records := make([]Record, 0, len(ifaces))
	for i, iface := range ifaces {
		if rec, ok := r.step(iface, i, len(ifaces)); ok {
			records = append(records, rec)
		}
	}

	r.log.Info("census complete",
		zap.Int("interfaces", len(ifaces)),
		zap.Int("identified", len(records)))
	return records, nil
}

// step resolves and formats one interface. The resolution is released
// before returning on every path, so the record carries the identity by
// value.
func (r *Runner) step(iface models.Interface, ordinal, total int) (Record, bool) {
	res, err := r.resolver.Resolve(iface, ordinal, total)
	if err != nil {
		r.log.Debug("interface skipped",
			zap.String("interface", iface.Name),
			zap.Error(err))
		return Record{}, false
	}
	defer res.Release()

	id := *res.Identity
	return Record{
		Interface: iface.Name,
		PnPID:     pnppath.Format(id),
		Identity:  id,
		Source:    res.Source,
	}, true
}
