// Package registers implements the typed register definitions of
// spec.md §4.1-§4.2: Capability, Operational, Runtime, Port, Doorbell and
// Interrupter registers, and the Registers handle that derives their
// offsets from a single MMIO base address.
package registers

import (
	"github.com/silverarc/xhci/bitfield"
	"github.com/silverarc/xhci/mmio"
)

// capabilityWords is the number of 32-bit dwords in the 0x20-byte
// Capability Register block (spec.md §3 entity catalog).
const capabilityWords = 8

// CapabilityRegs is the read-only MMIO view over the Host Controller
// Capability Registers. It has no Store method: capability registers
// cannot be written, and that is a compile-time guarantee here, not a
// runtime check.
type CapabilityRegs struct {
	base mmio.Base
}

// NewCapabilityRegs wraps the Capability Register block starting at base.
func NewCapabilityRegs(base mmio.Base) CapabilityRegs { return CapabilityRegs{base} }

// Read takes one eagerly-evaluated snapshot of every Capability register.
// Registers.New reads this snapshot exactly once to derive every other
// region's offset (spec.md §4.2).
func (c CapabilityRegs) Read() Capability {
	var cap Capability
	for i := 0; i < capabilityWords; i++ {
		cap.words[i] = mmio.NewROWord32(c.base.AtOffset(uintptr(i) * 4)).Load()
	}
	return cap
}

// Capability is an immutable snapshot of the Host Controller Capability
// Registers, decoded bit-exactly per spec.md §3/§4.2.
type Capability struct {
	words [capabilityWords]uint32
}

// CapLength returns the offset, in bytes, of the Operational Register
// Space from the MMIO base.
func (c Capability) CapLength() uint8 {
	return uint8(bitfield.GetField(c.words[0], bitfield.Range{Lo: 0, Hi: 7}))
}

// HCIVersion returns the BCD-encoded xHCI specification revision, e.g.
// 0x0110 for version 1.1.0.
func (c Capability) HCIVersion() uint16 {
	return uint16(bitfield.GetField(c.words[0], bitfield.Range{Lo: 16, Hi: 31}))
}

// HCSParams1 returns the Structural Parameters 1 register.
func (c Capability) HCSParams1() StructuralParameters1 { return StructuralParameters1(c.words[1]) }

// HCSParams2 returns the Structural Parameters 2 register.
func (c Capability) HCSParams2() StructuralParameters2 { return StructuralParameters2(c.words[2]) }

// HCSParams3 returns the Structural Parameters 3 register.
func (c Capability) HCSParams3() StructuralParameters3 { return StructuralParameters3(c.words[3]) }

// HCCParams1 returns the Capability Parameters 1 register.
func (c Capability) HCCParams1() CapabilityParameters1 { return CapabilityParameters1(c.words[4]) }

// DBOff returns the offset, in bytes, of the Doorbell Array from the
// MMIO base.
func (c Capability) DBOff() uint32 {
	return bitfield.GetField(c.words[5], bitfield.Range{Lo: 2, Hi: 31}) << 2
}

// RTSOff returns the offset, in bytes, of the Runtime Registers from the
// MMIO base.
func (c Capability) RTSOff() uint32 {
	return bitfield.GetField(c.words[6], bitfield.Range{Lo: 5, Hi: 31}) << 5
}

// HCCParams2 returns the Capability Parameters 2 register.
func (c Capability) HCCParams2() CapabilityParameters2 { return CapabilityParameters2(c.words[7]) }

// StructuralParameters1 is the HCSPARAMS1 register.
type StructuralParameters1 uint32

// NumberOfDeviceSlots returns the number of Device Slot Contexts the xHC
// supports.
func (p StructuralParameters1) NumberOfDeviceSlots() uint8 {
	return uint8(bitfield.GetField(uint32(p), bitfield.Range{Lo: 0, Hi: 7}))
}

// NumberOfInterrupts returns the number of Interrupters implemented.
func (p StructuralParameters1) NumberOfInterrupts() uint16 {
	return uint16(bitfield.GetField(uint32(p), bitfield.Range{Lo: 8, Hi: 18}))
}

// NumberOfPorts returns the number of Root Hub ports.
func (p StructuralParameters1) NumberOfPorts() uint8 {
	return uint8(bitfield.GetField(uint32(p), bitfield.Range{Lo: 24, Hi: 31}))
}

// StructuralParameters2 is the HCSPARAMS2 register.
type StructuralParameters2 uint32

// IsochronousSchedulingThreshold returns the IST field.
func (p StructuralParameters2) IsochronousSchedulingThreshold() uint8 {
	return uint8(bitfield.GetField(uint32(p), bitfield.Range{Lo: 0, Hi: 3}))
}

func (p StructuralParameters2) erstMax() uint32 {
	return bitfield.GetField(uint32(p), bitfield.Range{Lo: 4, Hi: 7})
}

// EventRingSegmentTableMax returns the maximum number of elements the
// Event Ring Segment Table can contain. The ERST Max field holds the
// exponent; this returns the computed value.
func (p StructuralParameters2) EventRingSegmentTableMax() uint16 {
	return 1 << p.erstMax()
}

// ScratchpadRestore reports the Scratchpad Restore bit.
func (p StructuralParameters2) ScratchpadRestore() bool {
	return bitfield.GetBit(uint32(p), 26)
}

// MaxScratchpadBuffers returns the number of scratchpad buffers xHC
// requires, composed from the high and low scratchpad-count fields:
// (hi << 5) | lo (spec.md §9 Open Question (b)).
func (p StructuralParameters2) MaxScratchpadBuffers() uint32 {
	hi := bitfield.GetField(uint32(p), bitfield.Range{Lo: 21, Hi: 25})
	lo := bitfield.GetField(uint32(p), bitfield.Range{Lo: 27, Hi: 31})
	return hi<<5 | lo
}

// StructuralParameters3 is the HCSPARAMS3 register.
type StructuralParameters3 uint32

// U1DeviceExitLatency returns the worst-case U1 exit latency, in
// microseconds.
func (p StructuralParameters3) U1DeviceExitLatency() uint8 {
	return uint8(bitfield.GetField(uint32(p), bitfield.Range{Lo: 0, Hi: 7}))
}

// U2DeviceExitLatency returns the worst-case U2 exit latency, in
// microseconds.
func (p StructuralParameters3) U2DeviceExitLatency() uint16 {
	return uint16(bitfield.GetField(uint32(p), bitfield.Range{Lo: 16, Hi: 31}))
}

// CapabilityParameters1 is the HCCPARAMS1 register.
type CapabilityParameters1 uint32

// AddressingCapability reports the 64-bit Addressing Capability bit.
func (p CapabilityParameters1) AddressingCapability() bool { return bitfield.GetBit(uint32(p), 0) }

// BWNegotiationCapability reports the BW Negotiation Capability bit.
func (p CapabilityParameters1) BWNegotiationCapability() bool { return bitfield.GetBit(uint32(p), 1) }

// ContextSize reports the Context Size bit: false selects 32-byte
// contexts, true selects 64-byte contexts (spec.md §4.4, §9).
func (p CapabilityParameters1) ContextSize() bool { return bitfield.GetBit(uint32(p), 2) }

// PortPowerControl reports the Port Power Control bit.
func (p CapabilityParameters1) PortPowerControl() bool { return bitfield.GetBit(uint32(p), 3) }

// PortIndicators reports the Port Indicators bit.
func (p CapabilityParameters1) PortIndicators() bool { return bitfield.GetBit(uint32(p), 4) }

// LightHCResetCapability reports the Light HC Reset Capability bit.
func (p CapabilityParameters1) LightHCResetCapability() bool { return bitfield.GetBit(uint32(p), 5) }

// LatencyToleranceMessagingCapability reports the LTM Capability bit.
func (p CapabilityParameters1) LatencyToleranceMessagingCapability() bool {
	return bitfield.GetBit(uint32(p), 6)
}

// NoSecondarySIDSupport reports the No Secondary SID Support bit.
func (p CapabilityParameters1) NoSecondarySIDSupport() bool { return bitfield.GetBit(uint32(p), 7) }

// ParseAllEventData reports the Parse All Event Data bit.
func (p CapabilityParameters1) ParseAllEventData() bool { return bitfield.GetBit(uint32(p), 8) }

// StoppedShortPacketCapability reports the Stopped - Short Packet
// Capability bit.
func (p CapabilityParameters1) StoppedShortPacketCapability() bool {
	return bitfield.GetBit(uint32(p), 9)
}

// StoppedEDTLACapability reports the Stopped EDTLA Capability bit.
func (p CapabilityParameters1) StoppedEDTLACapability() bool { return bitfield.GetBit(uint32(p), 10) }

// ContiguousFrameIDCapability reports the Contiguous Frame ID Capability
// bit.
func (p CapabilityParameters1) ContiguousFrameIDCapability() bool {
	return bitfield.GetBit(uint32(p), 11)
}

// MaximumPrimaryStreamArraySize returns the MaxPSASize field.
func (p CapabilityParameters1) MaximumPrimaryStreamArraySize() uint8 {
	return uint8(bitfield.GetField(uint32(p), bitfield.Range{Lo: 12, Hi: 15}))
}

// XHCIExtendedCapabilitiesPointer returns the dword offset of the first
// Extended Capability from the MMIO base. Zero means the list is empty.
func (p CapabilityParameters1) XHCIExtendedCapabilitiesPointer() uint16 {
	return uint16(bitfield.GetField(uint32(p), bitfield.Range{Lo: 16, Hi: 31}))
}

// CapabilityParameters2 is the HCCPARAMS2 register.
type CapabilityParameters2 uint32

// U3EntryCapability reports the U3 Entry Capability bit.
func (p CapabilityParameters2) U3EntryCapability() bool { return bitfield.GetBit(uint32(p), 0) }

// ConfigEPCommandMaxExitLatencyTooLargeCapability reports that bit.
func (p CapabilityParameters2) ConfigEPCommandMaxExitLatencyTooLargeCapability() bool {
	return bitfield.GetBit(uint32(p), 1)
}

// ForceSaveContextCapability reports the Force Save Context Capability
// bit.
func (p CapabilityParameters2) ForceSaveContextCapability() bool { return bitfield.GetBit(uint32(p), 2) }

// ComplianceTransitionCapability reports that bit.
func (p CapabilityParameters2) ComplianceTransitionCapability() bool {
	return bitfield.GetBit(uint32(p), 3)
}

// LargeESITPayloadCapability reports that bit.
func (p CapabilityParameters2) LargeESITPayloadCapability() bool { return bitfield.GetBit(uint32(p), 4) }

// ConfigurationInformationCapability reports that bit.
func (p CapabilityParameters2) ConfigurationInformationCapability() bool {
	return bitfield.GetBit(uint32(p), 5)
}

// ExtendedTBCCapability reports the Extended TBC Capability bit.
func (p CapabilityParameters2) ExtendedTBCCapability() bool { return bitfield.GetBit(uint32(p), 6) }

// ExtendedTBCTRBStatusCapability reports that bit.
func (p CapabilityParameters2) ExtendedTBCTRBStatusCapability() bool {
	return bitfield.GetBit(uint32(p), 7)
}

// GetSetExtendedPropertyCapability reports that bit.
func (p CapabilityParameters2) GetSetExtendedPropertyCapability() bool {
	return bitfield.GetBit(uint32(p), 8)
}

// VirtualizationBasedTrustedIOCapability reports that bit.
func (p CapabilityParameters2) VirtualizationBasedTrustedIOCapability() bool {
	return bitfield.GetBit(uint32(p), 9)
}
