// Package mmio provides the typed, access-tagged pointer primitives that
// every register view in this module is built on (spec.md §4.2's
// "Volatile Pointer Abstraction"). A register is never exposed as a bare
// *uint32: it is wrapped in one of ROWord32/RWWord32/WOWord32 (or
// RWWord64 for a 64-bit register), so that calling a writer on a read-only register,
// or a reader on a write-only one, is a compile-time error — the method
// simply does not exist on that type.
//
// These wrappers never own the memory they point into. Dropping one has
// no effect on the controller; the backing MMIO region is mapped and
// unmapped entirely by the caller (spec.md §1, §5).
package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Base is the virtual address of a caller-mapped MMIO region. It is an
// opaque, non-owning view: this package never allocates or unmaps it.
type Base uintptr

// AtOffset returns the address Base+offset, still within the caller's
// mapping.
func (b Base) AtOffset(offset uintptr) Base { return b + Base(offset) }

func (b Base) word32() *uint32 { return (*uint32)(unsafe.Pointer(uintptr(b))) }

// ROWord32 is a read-only view over one 32-bit hardware register.
type ROWord32 struct{ base Base }

// NewROWord32 wraps the 32-bit word at addr as a read-only register.
func NewROWord32(addr Base) ROWord32 { return ROWord32{addr} }

// Load performs one volatile read of the register.
func (r ROWord32) Load() uint32 { return atomic.LoadUint32(r.base.word32()) }

// Addr returns the address backing this view, e.g. to correlate an
// enqueue pointer with a later completion event.
func (r ROWord32) Addr() uintptr { return uintptr(r.base) }

// RWWord32 is a read-write view over one 32-bit hardware register.
type RWWord32 struct{ base Base }

// NewRWWord32 wraps the 32-bit word at addr as a read-write register.
func NewRWWord32(addr Base) RWWord32 { return RWWord32{addr} }

// Load performs one volatile read of the register.
func (r RWWord32) Load() uint32 { return atomic.LoadUint32(r.base.word32()) }

// Store performs one volatile write of the full 32 bits of the register.
// Callers that must preserve unrelated bits use Update instead.
func (r RWWord32) Store(v uint32) { atomic.StoreUint32(r.base.word32(), v) }

// Update performs a read-modify-write: it loads the current value, passes
// it through f, and stores the result. Field setters in this module use
// Update so that bits outside the field being set are written back as
// read; whole-register writes (pointer registers, ERSTSZ, W1C clears)
// use Store.
func (r RWWord32) Update(f func(uint32) uint32) { r.Store(f(r.Load())) }

// Addr returns the address backing this view.
func (r RWWord32) Addr() uintptr { return uintptr(r.base) }

// WOWord32 is a write-only view over one 32-bit hardware register (e.g.
// a Doorbell entry). Reading it back is not meaningful on real hardware.
type WOWord32 struct{ base Base }

// NewWOWord32 wraps the 32-bit word at addr as a write-only register.
func NewWOWord32(addr Base) WOWord32 { return WOWord32{addr} }

// Store performs one volatile write of the register.
func (r WOWord32) Store(v uint32) { atomic.StoreUint32(r.base.word32(), v) }

// RWWord64 is a read-write view over a 64-bit register implemented, as
// xHCI requires on a 32-bit register bus, as two adjacent 32-bit dwords:
// the low dword at base, the high dword at base+4. Store always writes
// the low dword before the high dword, matching the wire-level ordering
// spec.md §6 requires for CRCR, DCBAAP, and ERSTBA.
type RWWord64 struct{ lo, hi Base }

// NewRWWord64 wraps the 64-bit pair at addr (low dword) / addr+4 (high
// dword) as a read-write register.
func NewRWWord64(addr Base) RWWord64 { return RWWord64{addr, addr.AtOffset(4)} }

// Load performs two volatile 32-bit reads (low dword then high dword)
// and composes them into a 64-bit value.
func (r RWWord64) Load() uint64 {
	lo := atomic.LoadUint32(r.lo.word32())
	hi := atomic.LoadUint32(r.hi.word32())
	return uint64(hi)<<32 | uint64(lo)
}

// Store performs two volatile 32-bit writes, low dword first, high
// dword second.
func (r RWWord64) Store(v uint64) {
	atomic.StoreUint32(r.lo.word32(), uint32(v))
	atomic.StoreUint32(r.hi.word32(), uint32(v>>32))
}

// Update performs a read-modify-write of the full 64-bit register.
func (r RWWord64) Update(f func(uint64) uint64) { r.Store(f(r.Load())) }

// Addr returns the address of the low dword.
func (r RWWord64) Addr() uintptr { return uintptr(r.lo) }

// VolatileReadBlock reads four consecutive 32-bit dwords starting at
// base as one TRB-sized unit, one dword at a time, low-to-high. It is
// used by the ring subsystem, which treats every TRB slot as an opaque
// 16-byte block.
func VolatileReadBlock(base Base) [4]uint32 {
	var out [4]uint32
	for i := range out {
		out[i] = atomic.LoadUint32(base.AtOffset(uintptr(i) * 4).word32())
	}
	return out
}

// VolatileWriteBlock writes four consecutive 32-bit dwords starting at
// base, low-to-high, one dword at a time. Word 3 (the cycle/chain/type
// dword) is written last so hardware never observes a partially-formed
// TRB bearing the producer's current cycle bit (spec.md §5).
func VolatileWriteBlock(base Base, v [4]uint32) {
	for i := 0; i < 3; i++ {
		atomic.StoreUint32(base.AtOffset(uintptr(i)*4).word32(), v[i])
	}
	atomic.StoreUint32(base.AtOffset(12).word32(), v[3])
}
