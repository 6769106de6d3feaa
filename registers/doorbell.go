package registers

import (
	"github.com/silverarc/xhci/bitfield"
	"github.com/silverarc/xhci/mmio"
)

// DoorbellArray is the write-only Doorbell Register Array, rooted at
// DBOff bytes past the MMIO base. Index 0 rings the Command Ring
// doorbell; indices 1..MaxSlots ring a device slot's Transfer Ring
// doorbells.
type DoorbellArray struct {
	base     mmio.Base
	numSlots uint8
}

func newDoorbellArray(base mmio.Base, numSlots uint8) DoorbellArray {
	return DoorbellArray{base, numSlots}
}

// DoorbellN returns the doorbell register at index n. n must be in
// [0, numSlots].
func (d DoorbellArray) DoorbellN(n uint8) Doorbell {
	if n > d.numSlots {
		panic("registers: doorbell index out of range")
	}
	return Doorbell{mmio.NewWOWord32(d.base.AtOffset(uintptr(n) * 4))}
}

// Doorbell is a single write-only doorbell register.
type Doorbell struct{ w mmio.WOWord32 }

// Ring rings the doorbell with the given target (DB Target field) and,
// for isochronous/interrupt transfer ring doorbells, the stream ID.
// Ringing doorbell 0 (the Command Ring doorbell) ignores streamID;
// target should be 0 there.
func (d Doorbell) Ring(target uint8, streamID uint16) {
	v := bitfield.SetField[uint32](0, bitfield.Range{Lo: 0, Hi: 7}, uint32(target))
	v = bitfield.SetField(v, bitfield.Range{Lo: 16, Hi: 31}, uint32(streamID))
	d.w.Store(v)
}
