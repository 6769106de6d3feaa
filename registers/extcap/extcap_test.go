package extcap

import (
	"testing"
	"unsafe"

	"github.com/silverarc/xhci/mmio"
)

func arenaBase(t *testing.T, size int) (mmio.Base, []byte) {
	t.Helper()
	buf := make([]byte, size)
	return mmio.Base(uintptr(unsafe.Pointer(&buf[0]))), buf
}

func writeDword(buf []byte, off int, v uint32) {
	*(*uint32)(unsafe.Pointer(&buf[off])) = v
}

func TestEmptyListYieldsNoEntries(t *testing.T) {
	if got := List(0x1000, 0); len(got) != 0 {
		t.Fatalf("List with pointer 0 should be empty, got %d entries", len(got))
	}
}

func TestListTraversal(t *testing.T) {
	base, buf := arenaBase(t, 64)
	// Two entries: USB Legacy Support at dword 0, Supported Protocol at
	// dword 4 (offset 16), chained via Next Capability Pointer.
	writeDword(buf, 0, uint32(IDUsbLegacySupport)|(4<<8))
	writeDword(buf, 16, uint32(IDSupportedProtocol))

	// The MMIO base sits one dword before the arena, so an Extended
	// Capabilities Pointer of 1 lands on dword 0 of the arena.
	entries := List(uintptr(base)-4, 1)
	if len(entries) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(entries))
	}
	if entries[0].ID != IDUsbLegacySupport {
		t.Fatalf("entries[0].ID = %v", entries[0].ID)
	}
	if entries[1].ID != IDSupportedProtocol {
		t.Fatalf("entries[1].ID = %v", entries[1].ID)
	}
}

func TestUsbLegacySupportOwnershipBits(t *testing.T) {
	base, buf := arenaBase(t, 16)
	_ = buf
	e := Entry{Base: base, ID: IDUsbLegacySupport}
	u := NewUsbLegacySupport(e)
	if u.HcBiosOwnedSemaphore() {
		t.Fatal("BIOS semaphore should start clear")
	}
	u.RequestOwnership()
	if !u.HcOsOwnedSemaphore() {
		t.Fatal("OS semaphore should be set after RequestOwnership")
	}
}

func TestListTraversalThreeEntries(t *testing.T) {
	base, buf := arenaBase(t, 64)
	// USB Legacy Support at dword 0, Supported Protocol at offset 16,
	// Extended Message Interrupt at offset 32, terminating the list.
	writeDword(buf, 0, uint32(IDUsbLegacySupport)|(4<<8))
	writeDword(buf, 16, uint32(IDSupportedProtocol)|(4<<8))
	writeDword(buf, 32, uint32(IDExtendedMessageInterrupt))

	// As in TestListTraversal: pointer 1 from base-4 is dword 0 of the arena.
	entries := List(uintptr(base)-4, 1)
	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(entries))
	}
	wantIDs := []ID{IDUsbLegacySupport, IDSupportedProtocol, IDExtendedMessageInterrupt}
	for i, want := range wantIDs {
		if entries[i].ID != want {
			t.Fatalf("entries[%d].ID = %v, want %v", i, entries[i].ID, want)
		}
	}
}

func TestUnknownCapabilityFallback(t *testing.T) {
	base, buf := arenaBase(t, 16)
	_ = buf
	e := Entry{Base: base, ID: IDIOVirtualization}
	u := NewUnknown(e)
	if u.ID != IDIOVirtualization {
		t.Fatalf("Unknown.ID = %v, want %v", u.ID, IDIOVirtualization)
	}
	if u.Base != base {
		t.Fatal("Unknown.Base should carry the capability's MMIO base")
	}
}

func TestProtocolSpeedIDTypeReservedValue(t *testing.T) {
	// PSIT bits 6..7 set to 1, the reserved value.
	p := ProtocolSpeedID{w: 1 << 6}
	if _, err := p.Type(); err == nil {
		t.Fatal("Type() should fail for the reserved PSIT value 1")
	}
}

func TestProtocolSpeedIDFullDuplexAndLinkProtocol(t *testing.T) {
	p := ProtocolSpeedID{w: 1 << 8}
	if !p.FullDuplex() {
		t.Fatal("FullDuplex should report true when bit 8 is set")
	}
	lp, err := p.LinkProtocol()
	if err != nil {
		t.Fatalf("LinkProtocol: %v", err)
	}
	if lp != LinkProtocolSuperSpeed {
		t.Fatalf("LinkProtocol = %v, want SuperSpeed", lp)
	}

	reserved := ProtocolSpeedID{w: 2 << 14}
	if _, err := reserved.LinkProtocol(); err == nil {
		t.Fatal("LinkProtocol() should fail for the reserved value 2")
	}
}

func TestUsbDebugCapability(t *testing.T) {
	base, buf := arenaBase(t, 0x28)
	writeDword(buf, 0, 3<<16) // DCERST Max exponent = 3 -> table max 8
	d := NewUsbDebug(Entry{Base: base, ID: IDUsbDebug})
	if got := d.EventRingSegmentTableMax(); got != 8 {
		t.Fatalf("EventRingSegmentTableMax = %d, want 8", got)
	}
	if d.DebugCapabilityEnable() {
		t.Fatal("Debug Capability Enable should start clear")
	}
	d.SetDebugCapabilityEnable(true)
	if !d.DebugCapabilityEnable() {
		t.Fatal("Debug Capability Enable should be set after SetDebugCapabilityEnable(true)")
	}
}

func TestSupportedProtocolSpeedIDs(t *testing.T) {
	base, buf := arenaBase(t, 32)
	writeDword(buf, 0, uint32(IDSupportedProtocol)|(3<<24)|(0<<16)) // major rev 3
	writeDword(buf, 8, 1<<28)                                       // psic = 1
	writeDword(buf, 16, 0x0001_0005)                                // one PSI entry: value=5, type/exp low bits

	sp := NewSupportedProtocol(Entry{Base: base, ID: IDSupportedProtocol})
	if sp.MajorRevision() != 3 {
		t.Fatalf("MajorRevision = %d, want 3", sp.MajorRevision())
	}
	if sp.ProtocolSpeedIDCount() != 1 {
		t.Fatalf("ProtocolSpeedIDCount = %d, want 1", sp.ProtocolSpeedIDCount())
	}
	psis := sp.SpeedIDs()
	if len(psis) != 1 {
		t.Fatalf("SpeedIDs returned %d entries, want 1", len(psis))
	}
	if psis[0].Value() != 5 {
		t.Fatalf("psi.Value() = %d, want 5", psis[0].Value())
	}
}
