// Package extcap walks the xHCI Extended Capabilities linked list and
// decodes each entry into a typed variant (spec.md §4.3). The list
// lives in the same MMIO region as the Capability/Operational/Runtime
// registers but is addressed independently, by dword offset from the
// MMIO base, so this package takes the bare MMIO base address rather
// than a registers.Registers.
package extcap

import (
	"github.com/silverarc/xhci/bitfield"
	"github.com/silverarc/xhci/mmio"
	"github.com/silverarc/xhci/xhcierr"
)

// ID identifies an Extended Capability's type (xHCI 1.2 Table 7-1).
type ID uint8

const (
	IDUsbLegacySupport       ID = 1
	IDSupportedProtocol      ID = 2
	IDExtendedPowerManagement ID = 3
	IDIOVirtualization       ID = 4
	IDMessageInterrupt       ID = 5
	IDLocalMemory            ID = 6
	IDUsbDebug               ID = 10
	IDExtendedMessageInterrupt ID = 17
)

// Header is the first dword common to every Extended Capability.
type Header struct{ w mmio.ROWord32 }

// CapabilityID returns the ID field.
func (h Header) CapabilityID() ID {
	return ID(bitfield.GetField(h.w.Load(), bitfield.Range{Lo: 0, Hi: 7}))
}

// NextCapabilityPointer returns the dword offset, relative to this
// capability's own dword, of the next capability. Zero means this is
// the last entry.
func (h Header) NextCapabilityPointer() uint8 {
	return uint8(bitfield.GetField(h.w.Load(), bitfield.Range{Lo: 8, Hi: 15}))
}

// Entry is one decoded node of the Extended Capabilities list, carrying
// its own MMIO base so the caller can further decode it with the
// ID-specific constructors below.
type Entry struct {
	Base mmio.Base
	ID   ID
}

// List iterates the Extended Capabilities list starting at
// mmioBase+firstPtr*4. firstPtr is Capability.HCCParams1().
// XHCIExtendedCapabilitiesPointer(); a firstPtr of 0 yields an empty
// list.
func List(mmioBase uintptr, firstPtr uint16) []Entry {
	var out []Entry
	if firstPtr == 0 {
		return out
	}
	cur := mmio.Base(mmioBase).AtOffset(uintptr(firstPtr) * 4)
	for {
		h := Header{mmio.NewROWord32(cur)}
		next := h.NextCapabilityPointer()
		out = append(out, Entry{Base: cur, ID: h.CapabilityID()})
		if next == 0 {
			return out
		}
		cur = cur.AtOffset(uintptr(next) * 4)
	}
}

// UsbLegacySupport decodes a USB Legacy Support capability (ID 1).
type UsbLegacySupport struct{ w mmio.RWWord32 }

// NewUsbLegacySupport wraps the capability at e.Base.
func NewUsbLegacySupport(e Entry) UsbLegacySupport {
	return UsbLegacySupport{mmio.NewRWWord32(e.Base)}
}

// HcBiosOwnedSemaphore reports the BIOS Owned Semaphore bit.
func (u UsbLegacySupport) HcBiosOwnedSemaphore() bool { return bitfield.GetBit(u.w.Load(), 16) }

// HcOsOwnedSemaphore reports the OS Owned Semaphore bit.
func (u UsbLegacySupport) HcOsOwnedSemaphore() bool { return bitfield.GetBit(u.w.Load(), 24) }

// RequestOwnership sets the OS Owned Semaphore bit, beginning the BIOS
// handoff protocol; the caller must then poll until
// HcBiosOwnedSemaphore clears.
func (u UsbLegacySupport) RequestOwnership() {
	u.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 24, true) })
}

// PsiType is the PSIV interpretation within a Supported Protocol slot.
type PsiType uint8

const (
	PsiTypeSymmetric PsiType = 0
	PsiTypeAsymmetricRx PsiType = 2
	PsiTypeAsymmetricTx PsiType = 3
)

// BitRate is the PSIE unit that ProtocolSpeedID.Mantissa is counted in.
type BitRate uint8

const (
	BitRateBitsPerSec BitRate = iota
	BitRateKbPerSec
	BitRateMbPerSec
	BitRateGbPerSec
)

// SupportedProtocol decodes a Supported Protocol capability (ID 2).
type SupportedProtocol struct {
	base mmio.Base
	psic uint8
}

// NewSupportedProtocol wraps the capability at e.Base.
func NewSupportedProtocol(e Entry) SupportedProtocol {
	dw2 := mmio.NewROWord32(e.Base.AtOffset(8)).Load()
	psic := uint8(bitfield.GetField(dw2, bitfield.Range{Lo: 28, Hi: 31}))
	return SupportedProtocol{e.Base, psic}
}

// MajorRevision returns the Major Revision field.
func (s SupportedProtocol) MajorRevision() uint8 {
	dw0 := mmio.NewROWord32(s.base).Load()
	return uint8(bitfield.GetField(dw0, bitfield.Range{Lo: 24, Hi: 31}))
}

// MinorRevision returns the Minor Revision field.
func (s SupportedProtocol) MinorRevision() uint8 {
	dw0 := mmio.NewROWord32(s.base).Load()
	return uint8(bitfield.GetField(dw0, bitfield.Range{Lo: 16, Hi: 23}))
}

// ProtocolSpeedIDCount returns PSIC, the number of entries in the
// Protocol Speed ID list that immediately follows the fixed dwords.
func (s SupportedProtocol) ProtocolSpeedIDCount() uint8 { return s.psic }

// CompatiblePortOffset returns the Compatible Port Offset field.
func (s SupportedProtocol) CompatiblePortOffset() uint8 {
	dw2 := mmio.NewROWord32(s.base.AtOffset(8)).Load()
	return uint8(bitfield.GetField(dw2, bitfield.Range{Lo: 0, Hi: 7}))
}

// CompatiblePortCount returns the Compatible Port Count field.
func (s SupportedProtocol) CompatiblePortCount() uint8 {
	dw2 := mmio.NewROWord32(s.base.AtOffset(8)).Load()
	return uint8(bitfield.GetField(dw2, bitfield.Range{Lo: 8, Hi: 15}))
}

// ProtocolSpeedID decodes one element of the Protocol Speed ID list.
type ProtocolSpeedID struct {
	w uint32
}

// Value returns the PSIV field, the speed identifier used elsewhere
// (e.g. in a Port Status register's speed field).
func (p ProtocolSpeedID) Value() uint8 {
	return uint8(bitfield.GetField(p.w, bitfield.Range{Lo: 0, Hi: 3}))
}

// Exponent returns the PSIE field as a BitRate unit.
func (p ProtocolSpeedID) Exponent() BitRate {
	return BitRate(bitfield.GetField(p.w, bitfield.Range{Lo: 4, Hi: 5}))
}

// Type decodes the PSIT field, failing with ReservedValue for value 1,
// which xHCI leaves undefined.
func (p ProtocolSpeedID) Type() (PsiType, error) {
	v := PsiType(bitfield.GetField(p.w, bitfield.Range{Lo: 6, Hi: 7}))
	switch v {
	case PsiTypeSymmetric, PsiTypeAsymmetricRx, PsiTypeAsymmetricTx:
		return v, nil
	default:
		return 0, xhcierr.ErrReservedValue
	}
}

// FullDuplex reports the PSI Full-Duplex bit.
func (p ProtocolSpeedID) FullDuplex() bool { return bitfield.GetBit(p.w, 8) }

// LinkProtocol identifies the link-level protocol a Protocol Speed ID
// entry describes (SuperSpeed vs. SuperSpeedPlus).
type LinkProtocol uint8

const (
	LinkProtocolSuperSpeed LinkProtocol = iota
	LinkProtocolSuperSpeedPlus
)

// LinkProtocol decodes the Link Protocol field, failing with
// ReservedValue for values 2 and 3.
func (p ProtocolSpeedID) LinkProtocol() (LinkProtocol, error) {
	v := bitfield.GetField(p.w, bitfield.Range{Lo: 14, Hi: 15})
	if v > uint32(LinkProtocolSuperSpeedPlus) {
		return 0, xhcierr.ErrReservedValue
	}
	return LinkProtocol(v), nil
}

// Mantissa returns the PSIM field; combined with Exponent it gives the
// bit rate this entry describes.
func (p ProtocolSpeedID) Mantissa() uint16 {
	return uint16(bitfield.GetField(p.w, bitfield.Range{Lo: 16, Hi: 31}))
}

// SpeedIDs reads the Protocol Speed ID list that follows the fixed
// dwords of this capability.
func (s SupportedProtocol) SpeedIDs() []ProtocolSpeedID {
	out := make([]ProtocolSpeedID, 0, s.psic)
	for i := uint8(0); i < s.psic; i++ {
		w := mmio.NewROWord32(s.base.AtOffset(uintptr(16 + int(i)*4))).Load()
		out = append(out, ProtocolSpeedID{w})
	}
	return out
}

// ExtendedPowerManagement decodes an xHCI Extended Power Management
// capability (ID 3).
type ExtendedPowerManagement struct{ w mmio.RWWord32 }

// NewExtendedPowerManagement wraps the capability at e.Base.
func NewExtendedPowerManagement(e Entry) ExtendedPowerManagement {
	return ExtendedPowerManagement{mmio.NewRWWord32(e.Base)}
}

// D3ColdWakeLatency returns the D3Cold Wake Latency field, in
// milliseconds.
func (p ExtendedPowerManagement) D3ColdWakeLatency() uint8 {
	return uint8(bitfield.GetField(p.w.Load(), bitfield.Range{Lo: 16, Hi: 23}))
}

// MessageInterrupt decodes an xHCI Message Interrupt capability (ID 5),
// which is 32-bit or 64-bit addressed depending on bit 7 of its Message
// Control dword.
type MessageInterrupt struct {
	base    mmio.Base
	is64bit bool
}

// NewMessageInterrupt wraps the capability at e.Base.
func NewMessageInterrupt(e Entry) MessageInterrupt {
	ctrl := mmio.NewROWord32(e.Base).Load()
	return MessageInterrupt{e.Base, bitfield.GetBit(ctrl, 23)}
}

// Is64Bit reports whether this capability uses a 64-bit Message
// Address.
func (m MessageInterrupt) Is64Bit() bool { return m.is64bit }

// MessageAddress returns the Message Address field, composed from one
// or two dwords depending on Is64Bit.
func (m MessageInterrupt) MessageAddress() uint64 {
	lo := mmio.NewROWord32(m.base.AtOffset(4)).Load()
	if !m.is64bit {
		return uint64(lo)
	}
	hi := mmio.NewROWord32(m.base.AtOffset(8)).Load()
	return bitfield.ComposeDoubleWord(lo, hi)
}

// MessageData returns the Message Data field.
func (m MessageInterrupt) MessageData() uint16 {
	off := uintptr(8)
	if m.is64bit {
		off = 12
	}
	v := mmio.NewROWord32(m.base.AtOffset(off)).Load()
	return uint16(bitfield.GetField(v, bitfield.Range{Lo: 0, Hi: 15}))
}

// LocalMemory decodes an xHCI Local Memory capability (ID 6).
type LocalMemory struct {
	base mmio.Base
	w    mmio.RWWord32
}

// NewLocalMemory wraps the capability at e.Base.
func NewLocalMemory(e Entry) LocalMemory {
	return LocalMemory{e.Base, mmio.NewRWWord32(e.Base)}
}

// LocalMemoryEnable reports the LMEnable bit.
func (l LocalMemory) LocalMemoryEnable() bool { return bitfield.GetBit(l.w.Load(), 16) }

// SetLocalMemoryEnable sets or clears LMEnable.
func (l LocalMemory) SetLocalMemoryEnable(v bool) {
	l.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 16, v) })
}

// LocalMemorySizeInKiB returns the Local Memory Size field, in KiB, read
// from the second dword.
func (l LocalMemory) LocalMemorySizeInKiB() uint32 {
	return mmio.NewROWord32(l.base.AtOffset(4)).Load()
}

// ExtendedMessageInterrupt decodes an xHCI Extended Message Interrupt
// capability (ID 17), the MSI-X-style table descriptor.
type ExtendedMessageInterrupt struct{ w mmio.ROWord32 }

// NewExtendedMessageInterrupt wraps the capability at e.Base.
func NewExtendedMessageInterrupt(e Entry) ExtendedMessageInterrupt {
	return ExtendedMessageInterrupt{mmio.NewROWord32(e.Base)}
}

// TableSize returns the number of MSI-X table entries: the Table Size
// field, which encodes that number minus one, plus one.
func (m ExtendedMessageInterrupt) TableSize() uint16 {
	return uint16(bitfield.GetField(m.w.Load(), bitfield.Range{Lo: 16, Hi: 26})) + 1
}

// UsbDebug decodes an xHCI Debug Capability (ID 10). It exposes the
// fields needed to detect and enable the capability; driving the
// Debug Capability's own private event ring and context is the job of
// a dedicated debug-target driver built on top of the ring and context
// packages, not this package.
type UsbDebug struct{ base mmio.Base }

// NewUsbDebug wraps the capability at e.Base.
func NewUsbDebug(e Entry) UsbDebug { return UsbDebug{e.Base} }

// EventRingSegmentTableMax returns the maximum number of entries the
// Debug Capability's private Event Ring Segment Table can hold. The
// DCID register stores the exponent, not the value itself.
func (d UsbDebug) EventRingSegmentTableMax() uint16 {
	dcid := mmio.NewROWord32(d.base).Load()
	exp := bitfield.GetField(dcid, bitfield.Range{Lo: 16, Hi: 20})
	return uint16(1) << exp
}

// DoorbellTarget returns the Doorbell Target field of the Debug
// Capability's private Doorbell register (DCDB).
func (d UsbDebug) DoorbellTarget() uint8 {
	v := mmio.NewRWWord32(d.base.AtOffset(0x04)).Load()
	return uint8(bitfield.GetField(v, bitfield.Range{Lo: 8, Hi: 15}))
}

// SetDoorbellTarget writes the Doorbell Target field, ringing the
// Debug Capability's private doorbell.
func (d UsbDebug) SetDoorbellTarget(v uint8) {
	mmio.NewRWWord32(d.base.AtOffset(0x04)).Update(func(x uint32) uint32 {
		return bitfield.SetField(x, bitfield.Range{Lo: 8, Hi: 15}, uint32(v))
	})
}

// DbCRun reports the DbC Run bit of the Control register (DCCTRL).
func (d UsbDebug) DbCRun() bool {
	return bitfield.GetBit(mmio.NewROWord32(d.base.AtOffset(0x20)).Load(), 0)
}

// DebugCapabilityEnable reports the Debug Capability Enable bit, the
// master switch for the capability.
func (d UsbDebug) DebugCapabilityEnable() bool {
	return bitfield.GetBit(mmio.NewROWord32(d.base.AtOffset(0x20)).Load(), 31)
}

// SetDebugCapabilityEnable sets or clears the Debug Capability Enable
// bit.
func (d UsbDebug) SetDebugCapabilityEnable(v bool) {
	mmio.NewRWWord32(d.base.AtOffset(0x20)).Update(func(x uint32) uint32 {
		return bitfield.SetBit(x, 31, v)
	})
}

// EventRingNotEmpty reports the Event Ring Not Empty bit of the Status
// register (DCST).
func (d UsbDebug) EventRingNotEmpty() bool {
	return bitfield.GetBit(mmio.NewROWord32(d.base.AtOffset(0x24)).Load(), 0)
}

// DebugPortNumber returns the Debug Port Number field of DCST, the
// 1-based Root Hub port the Debug Capability is bound to.
func (d UsbDebug) DebugPortNumber() uint8 {
	v := mmio.NewROWord32(d.base.AtOffset(0x24)).Load()
	return uint8(bitfield.GetField(v, bitfield.Range{Lo: 24, Hi: 31}))
}

// Unknown wraps an Extended Capability whose ID this package does not
// decode further. List's caller uses this to skip past a capability it
// does not recognize without failing the walk (spec.md §4.3).
type Unknown struct {
	Base mmio.Base
	ID   ID
}

// NewUnknown wraps the capability at e.Base.
func NewUnknown(e Entry) Unknown { return Unknown{e.Base, e.ID} }
