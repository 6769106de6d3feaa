// Package ring implements the Command, Transfer, and Event ring
// producer/consumer state machines (spec.md §4.5): a linked cycle of
// 64-byte-aligned segments chained by synthesized Link TRBs, and the
// Event Ring Segment Table indirection the controller consumes to
// follow an Event Ring across its segments.
//
// The library never maps or allocates memory on its own; every segment
// comes from a caller-supplied Allocator, matching spec.md §1's
// "DMA allocation is an external collaborator" non-goal.
package ring

import (
	"github.com/silverarc/xhci/bitfield"
	"github.com/silverarc/xhci/mmio"
	"github.com/silverarc/xhci/registers"
	"github.com/silverarc/xhci/trbtype"
	"github.com/silverarc/xhci/xhcierr"
)

// blockBytes is the fixed size, in bytes, of one TRB slot.
const blockBytes = 16

// Allocator supplies DMA-visible memory to the ring subsystem. The
// returned address must be the address the controller's DMA engine
// observes (an identity-mapped or IOMMU-translated virtual address);
// this package performs no translation itself. Free releases a block
// previously returned by Allocate with the same size and alignment.
type Allocator interface {
	Allocate(sizeBytes, alignment uintptr) (mmio.Base, error)
	Free(addr mmio.Base, sizeBytes, alignment uintptr)
}

// Block is the shared 16-byte TRB layout every ring entry uses. Ring
// code treats the first three dwords as an opaque payload and only
// decodes the fourth, where the cycle bit, chain bit, and TRB type
// live (spec.md §4.5.1).
type Block [4]uint32

// Cycle reports the cycle bit (word 3 bit 0).
func (b Block) Cycle() bool { return bitfield.GetBit(b[3], 0) }

// WithCycle returns b with its cycle bit set to c.
func (b Block) WithCycle(c bool) Block {
	b[3] = bitfield.SetBit(b[3], 0, c)
	return b
}

// Chain reports the chain bit (word 3 bit 4).
func (b Block) Chain() bool { return bitfield.GetBit(b[3], 4) }

// Type decodes the TRB Type field (word 3 bits 10..15).
func (b Block) Type() trbtype.Type {
	return trbtype.Type(bitfield.GetField(b[3], bitfield.Range{Lo: 10, Hi: 15}))
}

func linkBlock(nextSegmentBase mmio.Base, cycle, toggleCycle bool) Block {
	var b Block
	lo, hi := bitfield.SplitDoubleWord(uint64(nextSegmentBase))
	b[0], b[1] = lo, hi
	b[3] = bitfield.SetField[uint32](0, bitfield.Range{Lo: 10, Hi: 15}, uint32(trbtype.Link))
	b[3] = bitfield.SetBit(b[3], 1, toggleCycle)
	b[3] = bitfield.SetBit(b[3], 0, cycle)
	return b
}

type segment struct {
	base      mmio.Base
	sizeSlots int
}

func (s segment) slotAddr(i int) mmio.Base { return s.base.AtOffset(uintptr(i) * blockBytes) }

func readBlock(addr mmio.Base) Block { return Block(mmio.VolatileReadBlock(addr)) }

func writeBlock(addr mmio.Base, b Block) { mmio.VolatileWriteBlock(addr, b) }

func fillSegment(s segment, fillCycle bool) {
	zero := Block{}.WithCycle(fillCycle)
	for i := 0; i < s.sizeSlots; i++ {
		writeBlock(s.slotAddr(i), zero)
	}
}

// producerRing is the shared state machine behind CommandRing and
// TransferRing: an ordered list of segments linked by Link TRBs, a
// current write position, and a current cycle bit.
type producerRing struct {
	alloc    Allocator
	segments []segment
	curSeg   int
	curSlot  int
	cycle    bool
	allowed  map[trbtype.Type]bool
}

func newProducerRing(alloc Allocator, allowed map[trbtype.Type]bool) *producerRing {
	return &producerRing{alloc: alloc, cycle: true, allowed: allowed}
}

// AddSegment allocates and appends a new segment of sizeSlots TRB slots
// (sizeSlots includes the trailing Link TRB slot). The new segment's
// blocks are filled with the bit-complement of the ring's current cycle
// state, per spec.md §4.5.2.
func (r *producerRing) AddSegment(sizeSlots int) error {
	base, err := r.alloc.Allocate(uintptr(sizeSlots)*blockBytes, 64)
	if err != nil {
		return err
	}
	s := segment{base, sizeSlots}
	fillSegment(s, !r.cycle)
	r.segments = append(r.segments, s)
	return nil
}

// Push validates b's TRB type for this ring kind, stamps it with the
// ring's current cycle bit, writes it at the current slot, and advances
// the write position, synthesizing a Link TRB when the segment boundary
// is reached (spec.md §4.5.2). It returns the address the block was
// written to, which doubles as the TRB's hardware-visible pointer for
// later correlation with a completion event.
func (r *producerRing) Push(b Block) (mmio.Base, error) {
	if len(r.segments) == 0 {
		return 0, xhcierr.ErrUninitialized
	}
	if !r.allowed[b.Type()] {
		return 0, xhcierr.ErrInvalidTrbType
	}
	cur := r.segments[r.curSeg]
	addr := cur.slotAddr(r.curSlot)
	writeBlock(addr, b.WithCycle(r.cycle))

	lastDataSlot := cur.sizeSlots - 2
	if r.curSlot >= lastDataSlot {
		nextSeg := (r.curSeg + 1) % len(r.segments)
		toggle := nextSeg == 0
		next := r.segments[nextSeg]
		writeBlock(cur.slotAddr(cur.sizeSlots-1), linkBlock(next.base, r.cycle, toggle))
		r.curSeg = nextSeg
		r.curSlot = 0
		if toggle {
			r.cycle = !r.cycle
		}
	} else {
		r.curSlot++
	}
	return addr, nil
}

// CycleState returns the ring's current software cycle bit, the value
// CRCR's RCS field must be initialized to before the first doorbell
// ring.
func (r *producerRing) CycleState() bool { return r.cycle }

// BaseAddress returns the address of segment 0, slot 0 — the value to
// program into CRCR or an Endpoint Context's TR Dequeue Pointer.
func (r *producerRing) BaseAddress() (mmio.Base, error) {
	if len(r.segments) == 0 {
		return 0, xhcierr.ErrUninitialized
	}
	return r.segments[0].base, nil
}

// Close releases every segment back to the allocator. The caller must
// first ensure hardware is no longer walking this ring (spec.md §6's
// ownership note): stopping the ring is a documented precondition, not
// something this method can verify.
func (r *producerRing) Close() {
	for _, s := range r.segments {
		r.alloc.Free(s.base, uintptr(s.sizeSlots)*blockBytes, 64)
	}
	r.segments = nil
}

// CommandRing is the producer-side ring used to issue Command TRBs to
// the Command Ring doorbell.
type CommandRing struct{ *producerRing }

// NewCommandRing constructs an empty Command Ring. Call AddSegment at
// least once before Push.
func NewCommandRing(alloc Allocator) *CommandRing {
	return &CommandRing{newProducerRing(alloc, trbtype.CommandRingAllowed)}
}

// TransferRing is the producer-side ring used to issue Transfer TRBs on
// a Device Slot's endpoint doorbell.
type TransferRing struct{ *producerRing }

// NewTransferRing constructs an empty Transfer Ring. Call AddSegment at
// least once before Push.
func NewTransferRing(alloc Allocator) *TransferRing {
	return &TransferRing{newProducerRing(alloc, trbtype.TransferRingAllowed)}
}

// erstEntry is one 16-byte Event Ring Segment Table Entry: base address
// (64-byte aligned), segment size in TRB entries, and 48 reserved bits.
type erstEntry struct {
	base mmio.Base
	size uint16
}

func (e erstEntry) encode() [4]uint32 {
	var w [4]uint32
	lo, hi := bitfield.SplitDoubleWord(uint64(e.base))
	w[0], w[1] = lo, hi
	w[2] = uint32(e.size)
	return w
}

// EventRing is the consumer-side ring the controller writes Event TRBs
// into, indirected through an Event Ring Segment Table that a single
// Interrupter Register Set points at (spec.md §4.5.3).
type EventRing struct {
	alloc       Allocator
	interrupter registers.InterrupterRegisterSet
	segments    []segment
	erstBase    mmio.Base
	erstCap     int
	curSeg      int
	curSlot     int
	cycle       bool
}

// NewEventRing constructs an Event Ring bound to interrupter. The
// caller must allocate erstCap entries' worth of 64-byte-aligned ERST
// storage and supply it as erstBase; erstCap bounds how many segments
// may be added (spec.md §4.5.3's 255-segment limit still applies on
// top of this).
func NewEventRing(alloc Allocator, interrupter registers.InterrupterRegisterSet, erstBase mmio.Base, erstCap int) (*EventRing, error) {
	if erstCap <= 0 || erstCap > 255 {
		return nil, xhcierr.ErrSegmentLimitExceeded
	}
	return &EventRing{alloc: alloc, interrupter: interrupter, erstBase: erstBase, erstCap: erstCap, cycle: true}, nil
}

func (r *EventRing) erstEntryAddr(i int) mmio.Base { return r.erstBase.AtOffset(uintptr(i) * 16) }

// AddSegment allocates a new 64-byte-aligned segment of sizeSlots TRB
// entries, appends its ERST entry, and — only for the very first
// segment — points the Interrupter's ERDP at its base. ERSTSZ is
// written before ERSTBA, matching the wire ordering spec.md §4.5.3
// requires.
func (r *EventRing) AddSegment(sizeSlots int) error {
	if sizeSlots <= 0 || sizeSlots > 65535 {
		return xhcierr.ErrSegmentLimitExceeded
	}
	if len(r.segments) >= r.erstCap {
		return xhcierr.ErrSegmentLimitExceeded
	}
	base, err := r.alloc.Allocate(uintptr(sizeSlots)*blockBytes, 64)
	if err != nil {
		return err
	}
	s := segment{base, sizeSlots}
	fillSegment(s, !r.cycle)
	first := len(r.segments) == 0
	r.segments = append(r.segments, s)

	mmio.VolatileWriteBlock(r.erstEntryAddr(len(r.segments)-1), erstEntry{base, uint16(sizeSlots)}.encode())

	if err := r.interrupter.Erstsz().SetTableSize(uint16(len(r.segments))); err != nil {
		return err
	}
	if first {
		if err := r.interrupter.Erdp().Set(uint64(base), 0); err != nil {
			return err
		}
	}
	return r.interrupter.Erstba().Set(uint64(r.erstBase))
}

// Pop reads the block at the Interrupter's current dequeue pointer. If
// its cycle bit does not match the ring's current cycle state, there is
// no new event and Pop returns ok == false. Otherwise it advances ERDP
// — crossing into the next segment and flipping the cycle bit on wrap
// to segment 0 — and returns the consumed block (spec.md §4.5.3).
func (r *EventRing) Pop() (block Block, ok bool, err error) {
	if len(r.segments) == 0 {
		return Block{}, false, xhcierr.ErrUninitialized
	}
	erdp := r.interrupter.Erdp()
	segIdx := int(erdp.DequeueErstSegmentIndex())
	ptr := mmio.Base(erdp.Pointer())

	b := readBlock(ptr)
	if b.Cycle() != r.cycle {
		return Block{}, false, nil
	}

	cur := r.segments[segIdx]
	next := ptr.AtOffset(blockBytes)
	bound := cur.base.AtOffset(uintptr(cur.sizeSlots) * blockBytes)
	if uintptr(next) == uintptr(bound) {
		segIdx = (segIdx + 1) % len(r.segments)
		next = r.segments[segIdx].base
		if segIdx == 0 {
			r.cycle = !r.cycle
		}
	}

	if err := erdp.Set(uint64(next), uint8(segIdx)); err != nil {
		return Block{}, false, err
	}
	return b, true, nil
}

// Close releases every segment back to the allocator. Stopping the
// Event Ring in hardware first is the caller's responsibility.
func (r *EventRing) Close() {
	for _, s := range r.segments {
		r.alloc.Free(s.base, uintptr(s.sizeSlots)*blockBytes, 64)
	}
	r.segments = nil
}
