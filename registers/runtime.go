package registers

import (
	"github.com/silverarc/xhci/bitfield"
	"github.com/silverarc/xhci/mmio"
	"github.com/silverarc/xhci/xhcierr"
)

// RuntimeRegs is the Host Controller Runtime Register Space, rooted at
// RTSOff bytes past the MMIO base.
type RuntimeRegs struct {
	base            mmio.Base
	numInterrupters uint16
}

// NewRuntimeRegs wraps the Runtime Register Space block starting at
// base, which must expose numInterrupters Interrupter Register Sets.
func NewRuntimeRegs(base mmio.Base, numInterrupters uint16) RuntimeRegs {
	return RuntimeRegs{base, numInterrupters}
}

// MicroframeIndex returns the Microframe Index register.
func (r RuntimeRegs) MicroframeIndex() MicroframeIndexRegister {
	return MicroframeIndexRegister{mmio.NewROWord32(r.base.AtOffset(0x00))}
}

// InterrupterRegisterSetN returns the Interrupter Register Set for
// 0-based interrupter index n.
func (r RuntimeRegs) InterrupterRegisterSetN(n uint16) InterrupterRegisterSet {
	if n >= r.numInterrupters {
		panic("registers: interrupter index out of range")
	}
	return InterrupterRegisterSet{r.base.AtOffset(0x20 + uintptr(n)*0x20)}
}

// NumberOfInterrupters reports how many Interrupter Register Sets exist.
func (r RuntimeRegs) NumberOfInterrupters() uint16 { return r.numInterrupters }

// MicroframeIndexRegister is MFINDEX, read-only.
type MicroframeIndexRegister struct{ w mmio.ROWord32 }

// Index returns the 14-bit microframe counter.
func (r MicroframeIndexRegister) Index() uint16 {
	return uint16(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 13}))
}

// InterrupterRegisterSet groups the five registers of one Interrupter
// (spec.md §3).
type InterrupterRegisterSet struct{ base mmio.Base }

// Iman returns the Interrupter Management register.
func (i InterrupterRegisterSet) Iman() InterrupterManagementRegister {
	return InterrupterManagementRegister{mmio.NewRWWord32(i.base.AtOffset(0x00))}
}

// Imod returns the Interrupter Moderation register.
func (i InterrupterRegisterSet) Imod() InterrupterModerationRegister {
	return InterrupterModerationRegister{mmio.NewRWWord32(i.base.AtOffset(0x04))}
}

// Erstsz returns the Event Ring Segment Table Size register.
func (i InterrupterRegisterSet) Erstsz() EventRingSegmentTableSizeRegister {
	return EventRingSegmentTableSizeRegister{mmio.NewRWWord32(i.base.AtOffset(0x08))}
}

// Erstba returns the Event Ring Segment Table Base Address register.
func (i InterrupterRegisterSet) Erstba() EventRingSegmentTableBaseAddressRegister {
	return EventRingSegmentTableBaseAddressRegister{mmio.NewRWWord64(i.base.AtOffset(0x10))}
}

// Erdp returns the Event Ring Dequeue Pointer register.
func (i InterrupterRegisterSet) Erdp() EventRingDequeuePointerRegister {
	return EventRingDequeuePointerRegister{mmio.NewRWWord64(i.base.AtOffset(0x18))}
}

// InterrupterManagementRegister is IMAN.
type InterrupterManagementRegister struct{ w mmio.RWWord32 }

// InterruptPending reports IP (W1C; see ClearInterruptPending).
func (r InterrupterManagementRegister) InterruptPending() bool {
	return bitfield.GetBit(r.w.Load(), 0)
}

// ClearInterruptPending writes 1 to IP.
func (r InterrupterManagementRegister) ClearInterruptPending() {
	r.w.Store(bitfield.SetW1C[uint32](0))
}

// InterruptEnable reports IE.
func (r InterrupterManagementRegister) InterruptEnable() bool {
	return bitfield.GetBit(r.w.Load(), 1)
}

// SetInterruptEnable sets or clears IE.
func (r InterrupterManagementRegister) SetInterruptEnable(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 1, v) })
}

// InterrupterModerationRegister is IMOD.
type InterrupterModerationRegister struct{ w mmio.RWWord32 }

// ModerationInterval returns IMODI, in 250ns units.
func (r InterrupterModerationRegister) ModerationInterval() uint16 {
	return uint16(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 15}))
}

// SetModerationInterval sets IMODI.
func (r InterrupterModerationRegister) SetModerationInterval(v uint16) {
	r.w.Update(func(x uint32) uint32 {
		return bitfield.SetField(x, bitfield.Range{Lo: 0, Hi: 15}, uint32(v))
	})
}

// ModerationCounter returns IMODC.
func (r InterrupterModerationRegister) ModerationCounter() uint16 {
	return uint16(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 16, Hi: 31}))
}

// EventRingSegmentTableSizeRegister is ERSTSZ.
type EventRingSegmentTableSizeRegister struct{ w mmio.RWWord32 }

// TableSize returns the number of valid entries in the ERST.
func (r EventRingSegmentTableSizeRegister) TableSize() uint16 {
	return uint16(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 15}))
}

// SetTableSize sets the number of valid ERST entries. Per spec.md §6,
// callers must write ERSTSZ before ERSTBA.
func (r EventRingSegmentTableSizeRegister) SetTableSize(n uint16) error {
	if n > 255 {
		return xhcierr.ErrSegmentLimitExceeded
	}
	r.w.Store(uint32(n))
	return nil
}

// EventRingSegmentTableBaseAddressRegister is ERSTBA, a 64-byte aligned
// pointer to the first ERST entry.
type EventRingSegmentTableBaseAddressRegister struct{ w mmio.RWWord64 }

// Get returns the current table base address.
func (r EventRingSegmentTableBaseAddressRegister) Get() uint64 { return r.w.Load() &^ 0x3f }

// Set writes the table base address, which must be 64-byte aligned.
func (r EventRingSegmentTableBaseAddressRegister) Set(addr uint64) error {
	if bitfield.TrailingZeros64(addr) < 6 {
		return xhcierr.ErrMisaligned
	}
	r.w.Store(addr)
	return nil
}

// EventRingDequeuePointerRegister is ERDP. Its low 4 bits are
// DESI/EHB control bits, and bits [63:4] are the 16-byte aligned Event
// Ring Dequeue Pointer.
type EventRingDequeuePointerRegister struct{ w mmio.RWWord64 }

// DequeueErstSegmentIndex returns DESI.
func (r EventRingDequeuePointerRegister) DequeueErstSegmentIndex() uint8 {
	return uint8(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 2}))
}

// EventHandlerBusy reports EHB (W1C; Set writes 1 to it, clearing it).
func (r EventRingDequeuePointerRegister) EventHandlerBusy() bool {
	return bitfield.GetBit(r.w.Load(), 3)
}

// Pointer returns the 16-byte aligned dequeue pointer, masking off the
// DESI/EHB control bits.
func (r EventRingDequeuePointerRegister) Pointer() uint64 { return r.w.Load() &^ 0xf }

// Set writes the dequeue pointer along with its segment index, and
// writes 1 to EHB to clear it, acknowledging the event(s) consumed so
// far. ptr must be 16-byte aligned.
func (r EventRingDequeuePointerRegister) Set(ptr uint64, segmentIndex uint8) error {
	if bitfield.TrailingZeros64(ptr) < 4 {
		return xhcierr.ErrMisaligned
	}
	v := ptr &^ 0xf
	v = bitfield.SetField(v, bitfield.Range{Lo: 0, Hi: 2}, uint64(segmentIndex))
	v = bitfield.SetBit(v, 3, true)
	r.w.Store(v)
	return nil
}
