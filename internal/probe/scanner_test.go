package probe_test

import (
	"errors"
	"testing"

	"github.com/hwcensus/pnpcensus/internal/probe"
	"github.com/hwcensus/pnpcensus/internal/testutil"
	"github.com/hwcensus/pnpcensus/pkg/pci"
)

func nic(bus, slot, fn uint8, vendor, device uint16) testutil.FakeDevice {
	return testutil.FakeDevice{
		Addr:         pci.MakeAddr(bus, slot, fn),
		Class:        0x020000,
		CachedVendor: vendor,
		CachedDevice: device,
		Vendor:       vendor,
		Device:       device,
	}
}

func TestNetworkControllersFiltersClass(t *testing.T) {
	bus := &testutil.FakeBus{List: []testutil.FakeDevice{
		{Addr: pci.MakeAddr(0, 1, 0), Class: 0x030000, Vendor: 0x1234, Device: 0x1111}, // display
		nic(0, 3, 0, 0x8086, 0x100e),
		{Addr: pci.MakeAddr(0, 4, 0), Class: 0x010601, Vendor: 0x8086, Device: 0x2922}, // SATA
		nic(0, 5, 0, 0x10ec, 0x8168),
	}}
	s := probe.NewScanner(bus, bus, testutil.Logger())

	got, err := s.NetworkControllers()
	if err != nil {
		t.Fatalf("NetworkControllers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("found %d controllers, want 2", len(got))
	}
	if got[0].Addr != pci.MakeAddr(0, 3, 0) || got[1].Addr != pci.MakeAddr(0, 5, 0) {
		t.Errorf("unexpected controllers: %+v", got)
	}
}

func TestNetworkControllersRereadsConfigSpace(t *testing.T) {
	// Enumerator metadata is stale (zeroed); config space has the truth.
	dev := nic(0, 3, 0, 0, 0)
	dev.Vendor = 0x8086
	dev.Device = 0x100e
	bus := &testutil.FakeBus{List: []testutil.FakeDevice{dev}}
	s := probe.NewScanner(bus, bus, testutil.Logger())

	got, err := s.NetworkControllers()
	if err != nil {
		t.Fatalf("NetworkControllers: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("found %d controllers, want 1", len(got))
	}
	if got[0].Vendor != 0x8086 || got[0].Device != 0x100e {
		t.Errorf("got vendor/device %#04x/%#04x, want config-space values",
			got[0].Vendor, got[0].Device)
	}
}

func TestNetworkControllersSkipsSentinels(t *testing.T) {
	tests := []struct {
		name           string
		vendor, device uint16
	}{
		{"unassigned vendor", 0x0000, 0x100e},
		{"unassigned device", 0x8086, 0x0000},
		{"absent vendor", 0xffff, 0x100e},
		{"absent device", 0x8086, 0xffff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &testutil.FakeBus{List: []testutil.FakeDevice{
				nic(0, 3, 0, tt.vendor, tt.device),
			}}
			s := probe.NewScanner(bus, bus, testutil.Logger())
			got, err := s.NetworkControllers()
			if err != nil {
				t.Fatalf("NetworkControllers: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("sentinel device yielded: %+v", got)
			}
		})
	}
}

func TestNetworkControllersOrdinalsCountValidOnly(t *testing.T) {
	bus := &testutil.FakeBus{List: []testutil.FakeDevice{
		nic(0, 2, 0, 0x8086, 0x100e),
		nic(0, 3, 0, 0xffff, 0xffff), // dropped
		nic(0, 4, 0, 0x10ec, 0x8168),
	}}
	s := probe.NewScanner(bus, bus, testutil.Logger())

	got, err := s.NetworkControllers()
	if err != nil {
		t.Fatalf("NetworkControllers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("found %d controllers, want 2", len(got))
	}
	if got[0].Ordinal != 0 || got[1].Ordinal != 1 {
		t.Errorf("ordinals = %d, %d, want 0, 1", got[0].Ordinal, got[1].Ordinal)
	}
}

func TestNetworkControllersSkipsUnreadableDevice(t *testing.T) {
	dev := nic(0, 3, 0, 0x8086, 0x100e)
	dev.FailOffsets = map[int]bool{pci.CfgVendorID: true}
	bus := &testutil.FakeBus{List: []testutil.FakeDevice{
		dev,
		nic(0, 4, 0, 0x10ec, 0x8168),
	}}
	s := probe.NewScanner(bus, bus, testutil.Logger())

	got, err := s.NetworkControllers()
	if err != nil {
		t.Fatalf("NetworkControllers: %v", err)
	}
	if len(got) != 1 || got[0].Addr != pci.MakeAddr(0, 4, 0) {
		t.Errorf("got %+v, want only the readable controller", got)
	}
}

func TestNetworkControllersEnumerationError(t *testing.T) {
	wantErr := errors.New("bus is on fire")
	bus := &testutil.FakeBus{EnumErr: wantErr}
	s := probe.NewScanner(bus, bus, testutil.Logger())

	if _, err := s.NetworkControllers(); !errors.Is(err, wantErr) {
		t.Errorf("NetworkControllers error = %v, want wrapped %v", err, wantErr)
	}
}

func TestNetworkControllersRestartable(t *testing.T) {
	bus := &testutil.FakeBus{List: []testutil.FakeDevice{
		nic(0, 3, 0, 0x8086, 0x100e),
	}}
	s := probe.NewScanner(bus, bus, testutil.Logger())

	first, err := s.NetworkControllers()
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := s.NetworkControllers()
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("scans differ: %+v vs %+v", first, second)
	}
}
