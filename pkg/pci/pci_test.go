package pci

import "testing"

func TestMakeAddrRoundTrip(t *testing.T) {
	tests := []struct {
		bus, slot, fn uint8
	}{
		{0, 0, 0},
		{0, 3, 0},
		{0x02, 0x1f, 0x7},
		{0xff, 0x10, 0x3},
	}
	for _, tt := range tests {
		a := MakeAddr(tt.bus, tt.slot, tt.fn)
		if a.Bus() != tt.bus || a.Slot() != tt.slot || a.Func() != tt.fn {
			t.Errorf("MakeAddr(%d,%d,%d) unpacked to (%d,%d,%d)",
				tt.bus, tt.slot, tt.fn, a.Bus(), a.Slot(), a.Func())
		}
	}
}

func TestMakeAddrPacking(t *testing.T) {
	// The packed layout must match the bus<<8|slot<<3|fn convention used
	// by the trailing locator field of the PnP path.
	a := MakeAddr(0x02, 0x03, 0x1)
	if uint32(a) != 0x0219 {
		t.Errorf("MakeAddr(2,3,1) = %#x, want 0x219", uint32(a))
	}
}

func TestParseBDF(t *testing.T) {
	tests := []struct {
		in      string
		want    Addr
		wantErr bool
	}{
		{"0000:03:00.0", MakeAddr(3, 0, 0), false},
		{"0000:02:03.1", MakeAddr(2, 3, 1), false},
		{"02:03.1", MakeAddr(2, 3, 1), false},
		{"0001:00:1f.7", Addr(1<<16 | 0x1f<<3 | 7), false},
		{"not-a-bdf", 0, true},
		{"", 0, true},
		{"00:20.0", 0, true}, // slot out of range
		{"00:00.9", 0, true}, // function out of range
	}
	for _, tt := range tests {
		got, err := ParseBDF(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBDF(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBDF(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBDF(%q) = %#x, want %#x", tt.in, uint32(got), uint32(tt.want))
		}
	}
}

func TestAddrString(t *testing.T) {
	a := MakeAddr(0x03, 0x00, 0x0)
	if got := a.String(); got != "03:00.0" {
		t.Errorf("String() = %q, want %q", got, "03:00.0")
	}
}

func TestValidID(t *testing.T) {
	if ValidID(IDUnassigned) {
		t.Error("ValidID(0x0000) = true, want false")
	}
	if ValidID(IDNotPresent) {
		t.Error("ValidID(0xFFFF) = true, want false")
	}
	if !ValidID(0x8086) {
		t.Error("ValidID(0x8086) = false, want true")
	}
}

func TestSameDevice(t *testing.T) {
	a := Identity{Vendor: 0x8086, Device: 0x100e, Addr: MakeAddr(0, 3, 0)}
	b := Identity{Vendor: 0x1af4, Device: 0x1000, Addr: MakeAddr(0, 3, 0)}
	c := Identity{Vendor: 0x8086, Device: 0x100e, Addr: MakeAddr(0, 4, 0)}

	if !a.SameDevice(b) {
		t.Error("same locator with different IDs should be the same device")
	}
	if a.SameDevice(c) {
		t.Error("different locators should not be the same device")
	}
}

func TestRawDeviceBaseClass(t *testing.T) {
	d := RawDevice{Class: 0x020000}
	if d.BaseClass() != ClassNetwork {
		t.Errorf("BaseClass() = %#x, want %#x", d.BaseClass(), ClassNetwork)
	}
}
