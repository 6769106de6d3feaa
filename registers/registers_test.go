package registers

import (
	"testing"
	"unsafe"
)

func TestNewRejectsNullBase(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) should fail")
	}
}

// newMMIORegion builds a big enough backing array to hold Capability,
// Operational, Runtime, and Doorbell regions at realistic offsets, and
// returns a Registers handle derived from it the way a real driver
// would.
func newMMIORegion(t *testing.T) (Registers, []byte) {
	t.Helper()
	const size = 0x2000
	buf := make([]byte, size)
	base := uintptr(unsafe.Pointer(&buf[0]))

	w := func(off int, v uint32) {
		*(*uint32)(unsafe.Pointer(&buf[off])) = v
	}
	w(0x00, 0x0110_0020)         // caplength=0x20, hciversion=0x110
	w(0x04, 0x04|(1<<8)|(1<<24)) // hcsparams1: 4 slots, 1 interrupter, 1 port
	w(0x10, 0)                   // hccparams1: ext cap pointer = 0 (empty list)
	w(0x14, 0x100<<2)            // dboff = 0x100 dwords
	w(0x18, 0x80<<5)             // rtsoff = 0x1000 bytes

	r, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, buf
}

func TestDerivedOffsets(t *testing.T) {
	r, _ := newMMIORegion(t)
	if got := r.Capability().CapLength(); got != 0x20 {
		t.Fatalf("CapLength = %#x", got)
	}
	if got := r.Operational().NumberOfPorts(); got != 1 {
		t.Fatalf("NumberOfPorts = %d, want 1", got)
	}
	if got := r.Runtime().NumberOfInterrupters(); got != 1 {
		t.Fatalf("NumberOfInterrupters = %d, want 1", got)
	}
}

func TestUsbCommandRunStopRoundTrip(t *testing.T) {
	r, _ := newMMIORegion(t)
	cmd := r.Operational().UsbCmd()
	if cmd.RunStop() {
		t.Fatal("RunStop should start clear")
	}
	cmd.SetRunStop(true)
	if !cmd.RunStop() {
		t.Fatal("RunStop should be set after SetRunStop(true)")
	}
}

func TestCrcrMisalignedRejected(t *testing.T) {
	r, _ := newMMIORegion(t)
	crcr := r.Operational().Crcr()
	if err := crcr.SetCommandRingPointer(0x40, true); err != nil {
		t.Fatalf("64-byte aligned pointer should be accepted: %v", err)
	}
	if err := crcr.SetCommandRingPointer(0x10, true); err == nil {
		t.Fatal("non-64-byte-aligned pointer should be rejected")
	}
}

func TestPortRegisterSetIndexing(t *testing.T) {
	r, _ := newMMIORegion(t)
	portsc := r.Operational().PortRegisterSetN(1).Portsc()
	portsc.SetPortPower(true)
	if !portsc.PortPower() {
		t.Fatal("PortPower should read back set")
	}
}
