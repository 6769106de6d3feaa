package ring

import (
	"testing"
	"unsafe"

	"github.com/silverarc/xhci/mmio"
	"github.com/silverarc/xhci/registers"
	"github.com/silverarc/xhci/trbtype"
)

// fakeAllocator hands out slices from a pre-allocated arena so tests
// never touch real memory mappings.
type fakeAllocator struct {
	arena []byte
	next  uintptr
}

func newFakeAllocator(size int) *fakeAllocator {
	return &fakeAllocator{arena: make([]byte, size)}
}

func (a *fakeAllocator) Allocate(sizeBytes, alignment uintptr) (mmio.Base, error) {
	base := uintptr(unsafe.Pointer(&a.arena[0])) + a.next
	aligned := (base + alignment - 1) &^ (alignment - 1)
	a.next = aligned - uintptr(unsafe.Pointer(&a.arena[0])) + sizeBytes
	return mmio.Base(aligned), nil
}

func (a *fakeAllocator) Free(addr mmio.Base, sizeBytes, alignment uintptr) {}

func commandTRB() Block {
	var b Block
	b[3] = uint32(trbtype.NoOpCommand) << 10
	return b
}

func TestCommandRingPushSequence(t *testing.T) {
	alloc := newFakeAllocator(1 << 16)
	r := NewCommandRing(alloc)
	if err := r.AddSegment(4); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := r.Push(commandTRB()); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	seg := r.segments[0]
	for i := 0; i < 3; i++ {
		b := readBlock(seg.slotAddr(i))
		if !b.Cycle() {
			t.Fatalf("slot %d cycle should be true", i)
		}
	}
	link := readBlock(seg.slotAddr(3))
	if link.Type() != trbtype.Link {
		t.Fatalf("slot 3 should hold a Link TRB, got type %v", link.Type())
	}
	if !bitAt(link[3], 1) {
		t.Fatal("Link TRB toggle-cycle bit should be set for a single-segment ring")
	}

	// Fourth push wraps to slot 0 with the cycle flipped.
	addr, err := r.Push(commandTRB())
	if err != nil {
		t.Fatalf("fourth push: %v", err)
	}
	if addr != seg.slotAddr(0) {
		t.Fatal("fourth push should land on slot 0")
	}
	if r.CycleState() {
		t.Fatal("cycle should have flipped to false after wrapping")
	}
	b := readBlock(seg.slotAddr(0))
	if b.Cycle() {
		t.Fatal("slot 0 should now carry cycle bit false")
	}
}

func TestCommandRingRejectsWrongType(t *testing.T) {
	alloc := newFakeAllocator(1 << 16)
	r := NewCommandRing(alloc)
	if err := r.AddSegment(4); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}
	var normal Block
	normal[3] = uint32(trbtype.Normal) << 10
	if _, err := r.Push(normal); err == nil {
		t.Fatal("a Normal TRB should be rejected on a Command Ring")
	}
}

func TestCommandRingUninitialized(t *testing.T) {
	alloc := newFakeAllocator(1 << 16)
	r := NewCommandRing(alloc)
	if _, err := r.Push(commandTRB()); err == nil {
		t.Fatal("push into a ring with zero segments should fail")
	}
}

func bitAt(w uint32, i int) bool { return w&(1<<uint(i)) != 0 }

// fakeInterrupter backs an InterrupterRegisterSet with a plain byte
// arena so the Event Ring tests can drive ERSTSZ/ERSTBA/ERDP without a
// real MMIO region.
func fakeInterrupter(arena []byte) registers.InterrupterRegisterSet {
	base := mmio.Base(uintptr(unsafe.Pointer(&arena[0])))
	return registers.NewRuntimeRegs(base, 1).InterrupterRegisterSetN(0)
}

func TestEventRingPopSequence(t *testing.T) {
	interrupterArena := make([]byte, 0x1000)
	interrupter := fakeInterrupter(interrupterArena)

	alloc := newFakeAllocator(1 << 16)
	// ERSTBA only accepts a 64-byte aligned table base.
	erstBase, err := alloc.Allocate(64, 64)
	if err != nil {
		t.Fatalf("Allocate ERST: %v", err)
	}
	er, err := NewEventRing(alloc, interrupter, erstBase, 1)
	if err != nil {
		t.Fatalf("NewEventRing: %v", err)
	}
	if err := er.AddSegment(8); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	// Freshly zeroed segment: pop should report no event.
	if _, ok, err := er.Pop(); err != nil || ok {
		t.Fatalf("Pop on a fresh ring should be empty, got ok=%v err=%v", ok, err)
	}

	seg := er.segments[0]
	seeded := Block{1, 2, 3, 0}.WithCycle(true)
	writeBlock(seg.slotAddr(0), seeded)

	b, ok, err := er.Pop()
	if err != nil || !ok {
		t.Fatalf("Pop should return the seeded event, got ok=%v err=%v", ok, err)
	}
	if b != seeded {
		t.Fatalf("Pop returned %#v, want %#v", b, seeded)
	}

	if _, ok, err := er.Pop(); err != nil || ok {
		t.Fatalf("next Pop should be empty until slot 1 is seeded, got ok=%v err=%v", ok, err)
	}
}
