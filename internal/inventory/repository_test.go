package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hwcensus/pnpcensus/internal/census"
	"github.com/hwcensus/pnpcensus/internal/inventory"
	"github.com/hwcensus/pnpcensus/internal/resolve"
	"github.com/hwcensus/pnpcensus/internal/testutil"
	"github.com/hwcensus/pnpcensus/pkg/pci"
)

func newRepo(t *testing.T) *inventory.Repository {
	t.Helper()
	return inventory.NewRepository(testutil.NewStore(t))
}

func sampleRecords() []census.Record {
	return []census.Record{
		{
			Interface: "eth0",
			PnPID:     `PCI\VEN_8086&DEV_100E&SUBSYS_001E8086&REV_02\0&3&0&18`,
			Identity: pci.Identity{
				Vendor: 0x8086, Device: 0x100e,
				SubsysVendor: 0x8086, SubsysDevice: 0x001e,
				Revision: 0x02, Addr: pci.MakeAddr(0, 3, 0),
			},
			Source: resolve.SourceBinding,
		},
		{
			Interface: "eth1",
			PnPID:     `PCI\VEN_10EC&DEV_8168&SUBSYS_816810EC&REV_15\2&0&0&200`,
			Identity: pci.Identity{
				Vendor: 0x10ec, Device: 0x8168,
				Revision: 0x15, Addr: pci.MakeAddr(2, 0, 0),
			},
			Source: resolve.SourceScan,
		},
	}
}

func TestRecordRunAndReadBack(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	runID, err := repo.RecordRun(ctx, "testhost", sampleRecords())
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if runID == "" {
		t.Fatal("RecordRun returned empty ID")
	}

	run, err := repo.Run(ctx, runID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Hostname != "testhost" {
		t.Errorf("Hostname = %q, want testhost", run.Hostname)
	}
	if run.StartedAt.IsZero() {
		t.Error("StartedAt is zero")
	}

	records, err := repo.Records(ctx, runID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	want := sampleRecords()
	for i, rec := range records {
		if rec != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, rec, want[i])
		}
	}
}

func TestRunNotFound(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.Run(context.Background(), "nope"); !errors.Is(err, inventory.ErrNotFound) {
		t.Errorf("Run = %v, want ErrNotFound", err)
	}
}

func TestRunsOrderedNewestFirst(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first, err := repo.RecordRun(ctx, "host-a", nil)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	second, err := repo.RecordRun(ctx, "host-b", nil)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := repo.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	ids := map[string]bool{runs[0].ID: true, runs[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("runs %v missing recorded IDs", ids)
	}
	if runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Error("runs not ordered newest first")
	}
}

func TestRecordsEmptyRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	runID, err := repo.RecordRun(ctx, "testhost", nil)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	records, err := repo.Records(ctx, runID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}
