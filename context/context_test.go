package context

import "testing"

func TestSlotStateRoundTrip(t *testing.T) {
	var slot SlotContext[Pad32]
	slot.SetSlotState(SlotStateAddressed)
	got, err := slot.SlotState()
	if err != nil {
		t.Fatalf("SlotState: %v", err)
	}
	if got != SlotStateAddressed {
		t.Fatalf("SlotState = %v, want Addressed", got)
	}
	if bits := (slot.words[3] >> 27) & 0x1f; bits != 0b00010 {
		t.Fatalf("word[3] bits 27..31 = %#b, want 0b00010", bits)
	}
}

func TestSlotStateReservedValue(t *testing.T) {
	var slot SlotContext[Pad32]
	slot.words[3] = 0b11111 << 27
	if _, err := slot.SlotState(); err == nil {
		t.Fatal("SlotState should reject a reserved bit pattern")
	}
}

func TestEndpointTRDequeuePointerAlignment(t *testing.T) {
	var ep EndpointContext[Pad32]
	if err := ep.SetTRDequeuePointer(0x1_2345_6780, true); err != nil {
		t.Fatalf("64-byte aligned pointer should be accepted: %v", err)
	}
}

func TestEndpointTRDequeuePointerRoundTrip(t *testing.T) {
	var ep EndpointContext[Pad32]
	const ptr = 0x0000_0001_2345_6780 // 64-byte aligned
	if err := ep.SetTRDequeuePointer(ptr, false); err != nil {
		t.Fatalf("SetTRDequeuePointer: %v", err)
	}
	if got := ep.TRDequeuePointer(); got != ptr {
		t.Fatalf("TRDequeuePointer = %#x, want %#x", got, ptr)
	}
	if ep.DequeueCycleState() {
		t.Fatal("DequeueCycleState should be false")
	}
}

func TestInputControlDropFlagReservedIndices(t *testing.T) {
	var ic InputControlContext[Pad32]
	if err := ic.SetDropContextFlag(0, true); err == nil {
		t.Fatal("drop flag index 0 should be reserved")
	}
	if err := ic.SetDropContextFlag(1, true); err == nil {
		t.Fatal("drop flag index 1 should be reserved")
	}
	if err := ic.SetDropContextFlag(5, true); err != nil {
		t.Fatalf("drop flag index 5 should be valid: %v", err)
	}
	got, err := ic.DropContextFlag(5)
	if err != nil || !got {
		t.Fatalf("DropContextFlag(5) = (%v, %v), want (true, nil)", got, err)
	}
}

func TestInputControlAddFlagOutOfRange(t *testing.T) {
	var ic InputControlContext[Pad32]
	if err := ic.SetAddContextFlag(32, true); err == nil {
		t.Fatal("add flag index 32 should be out of range")
	}
}

func TestDCIIndexingAliasesEndpointArray(t *testing.T) {
	var oc OutputContext[Pad32]
	ep1, err := oc.Endpoint(1)
	if err != nil {
		t.Fatalf("Endpoint(1): %v", err)
	}
	ep1.SetMult(3)
	if oc.ep[0].words[0]>>8&0x3 != 3 {
		t.Fatal("Endpoint(1) should alias position 0 of the endpoint array")
	}
	if _, err := oc.Endpoint(0); err == nil {
		t.Fatal("Endpoint(0) should fail, DCI 0 is the Slot")
	}
	if _, err := oc.Endpoint(32); err == nil {
		t.Fatal("Endpoint(32) should fail, DCI must be <= 31")
	}
}

func TestPad64DoublesStride(t *testing.T) {
	var in32 InputContext[Pad32]
	var in64 InputContext[Pad64]
	if (Pad32{}).stride() != 8 {
		t.Fatal("Pad32 stride should be 8 dwords")
	}
	if (Pad64{}).stride() != 16 {
		t.Fatal("Pad64 stride should be 16 dwords")
	}
	_ = in32
	_ = in64
}
