package registers

import (
	"testing"
	"unsafe"

	"github.com/silverarc/xhci/mmio"
)

func backing(words []uint32) mmio.Base {
	return mmio.Base(uintptr(unsafe.Pointer(&words[0])))
}

func TestCapabilityDecode(t *testing.T) {
	words := make([]uint32, capabilityWords)
	words[0] = 0x0110_0020 // CAPLENGTH=0x20, HCIVERSION=0x0110
	words[1] = 0x20 | (1 << 8) | (4 << 24) // hcsparams1: slots=32, interrupts=1, ports=4
	words[5] = 0x400 << 2 // dboff
	words[6] = 0x1000 << 5 // rtsoff
	words[4] = 1 << 16 // ext cap pointer = 1 dword

	c := NewCapabilityRegs(backing(words)).Read()
	if got := c.CapLength(); got != 0x20 {
		t.Fatalf("CapLength = %#x, want 0x20", got)
	}
	if got := c.HCIVersion(); got != 0x0110 {
		t.Fatalf("HCIVersion = %#x, want 0x0110", got)
	}
	hcs1 := c.HCSParams1()
	if got := hcs1.NumberOfDeviceSlots(); got != 0x20 {
		t.Fatalf("NumberOfDeviceSlots = %d, want 32", got)
	}
	if got := hcs1.NumberOfInterrupts(); got != 1 {
		t.Fatalf("NumberOfInterrupts = %d, want 1", got)
	}
	if got := hcs1.NumberOfPorts(); got != 4 {
		t.Fatalf("NumberOfPorts = %d, want 4", got)
	}
	if got := c.DBOff(); got != 0x400<<2 {
		t.Fatalf("DBOff = %#x", got)
	}
	if got := c.RTSOff(); got != 0x1000<<5 {
		t.Fatalf("RTSOff = %#x", got)
	}
	if got := c.HCCParams1().XHCIExtendedCapabilitiesPointer(); got != 1 {
		t.Fatalf("XHCIExtendedCapabilitiesPointer = %d, want 1", got)
	}
}

func TestMaxScratchpadBuffersComposition(t *testing.T) {
	// hi (bits 21..25) = 0b00001, lo (bits 27..31) = 0b00010 -> (1<<5)|2 = 34
	var p StructuralParameters2 = (1 << 21) | (2 << 27)
	if got := p.MaxScratchpadBuffers(); got != 34 {
		t.Fatalf("MaxScratchpadBuffers = %d, want 34", got)
	}
}
