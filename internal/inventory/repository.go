package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hwcensus/pnpcensus/internal/census"
	"github.com/hwcensus/pnpcensus/internal/resolve"
	"github.com/hwcensus/pnpcensus/pkg/pci"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// Run is one recorded census execution.
type Run struct {
	ID        string
	Hostname  string
	StartedAt time.Time
}

// Repository provides access to recorded census runs.
type Repository struct {
	store *Store
}

// NewRepository creates a Repository over an open Store.
func NewRepository(store *Store) *Repository {
	return &Repository{store: store}
}

// RecordRun stores a census result as a new run and returns its ID. The
// run and all its records commit atomically.
func (r *Repository) RecordRun(ctx context.Context, hostname string, records []census.Record) (string, error) {
	runID := uuid.New().String()

	err := r.store.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO census_runs (id, hostname, started_at) VALUES (?, ?, ?)`,
			runID, hostname, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO census_records (
					run_id, if_name, pnp_id, vendor, device,
					subsys_vendor, subsys_device, revision, bdf, source
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, rec.Interface, rec.PnPID,
				rec.Identity.Vendor, rec.Identity.Device,
				rec.Identity.SubsysVendor, rec.Identity.SubsysDevice,
				rec.Identity.Revision, uint32(rec.Identity.Addr), string(rec.Source),
			); err != nil {
				return fmt.Errorf("insert record %q: %w", rec.Interface, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// Run returns a single recorded run by ID.
func (r *Repository) Run(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := r.store.db.QueryRowContext(ctx,
		`SELECT id, hostname, started_at FROM census_runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Hostname, &run.StartedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run %q: %w", id, err)
	}
	return &run, nil
}

// Runs lists recorded runs, most recent first.
func (r *Repository) Runs(ctx context.Context) ([]Run, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT id, hostname, started_at FROM census_runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Hostname, &run.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Records returns a run's records in interface-name order.
func (r *Repository) Records(ctx context.Context, runID string) ([]census.Record, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT if_name, pnp_id, vendor, device,
			subsys_vendor, subsys_device, revision, bdf, source
		FROM census_records WHERE run_id = ? ORDER BY if_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("list records for %q: %w", runID, err)
	}
	defer rows.Close()

	records := []census.Record{}
	for rows.Next() {
		var rec census.Record
		var vendor, device, subsysVendor, subsysDevice, revision, bdf int64
		var source string
		if err := rows.Scan(&rec.Interface, &rec.PnPID, &vendor, &device,
			&subsysVendor, &subsysDevice, &revision, &bdf, &source); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Identity = pci.Identity{
			Vendor:       uint16(vendor),
			Device:       uint16(device),
			SubsysVendor: uint16(subsysVendor),
			SubsysDevice: uint16(subsysDevice),
			Revision:     uint8(revision),
			Addr:         pci.Addr(bdf),
		}
		rec.Source = resolve.Source(source)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
