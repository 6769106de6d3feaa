package registers

import (
	"github.com/silverarc/xhci/bitfield"
	"github.com/silverarc/xhci/mmio"
	"github.com/silverarc/xhci/xhcierr"
)

// OperationalRegs is the Host Controller Operational Register Space,
// rooted at CapLength bytes past the MMIO base (spec.md §4.2).
type OperationalRegs struct {
	base      mmio.Base
	numPorts  uint8
}

func newOperationalRegs(base mmio.Base, numPorts uint8) OperationalRegs {
	return OperationalRegs{base, numPorts}
}

// UsbCmd returns the USB Command register.
func (o OperationalRegs) UsbCmd() UsbCommandRegister {
	return UsbCommandRegister{mmio.NewRWWord32(o.base.AtOffset(0x00))}
}

// UsbSts returns the USB Status register.
func (o OperationalRegs) UsbSts() UsbStatusRegister {
	return UsbStatusRegister{mmio.NewRWWord32(o.base.AtOffset(0x04))}
}

// PageSize returns the Page Size register.
func (o OperationalRegs) PageSize() PageSizeRegister {
	return PageSizeRegister{mmio.NewROWord32(o.base.AtOffset(0x08))}
}

// DNCtrl returns the Device Notification Control register.
func (o OperationalRegs) DNCtrl() DeviceNotificationControl {
	return DeviceNotificationControl{mmio.NewRWWord32(o.base.AtOffset(0x14))}
}

// Crcr returns the Command Ring Control register.
func (o OperationalRegs) Crcr() CommandRingControlRegister {
	return CommandRingControlRegister{mmio.NewRWWord64(o.base.AtOffset(0x18))}
}

// Dcbaap returns the Device Context Base Address Array Pointer register.
func (o OperationalRegs) Dcbaap() DeviceContextBaseAddressArrayPointerRegister {
	return DeviceContextBaseAddressArrayPointerRegister{mmio.NewRWWord64(o.base.AtOffset(0x30))}
}

// Config returns the Configure register.
func (o OperationalRegs) Config() ConfigureRegister {
	return ConfigureRegister{mmio.NewRWWord32(o.base.AtOffset(0x38))}
}

// PortRegisterSetN returns the Port Register Set for 1-based port index
// n. n must be in [1, NumberOfPorts] (spec.md §3).
func (o OperationalRegs) PortRegisterSetN(n uint8) PortRegisterSet {
	if n == 0 || n > o.numPorts {
		panic("registers: port index out of range")
	}
	off := uintptr(0x400) + uintptr(n-1)*0x10
	return PortRegisterSet{o.base.AtOffset(off)}
}

// NumberOfPorts reports how many Port Register Sets exist.
func (o OperationalRegs) NumberOfPorts() uint8 { return o.numPorts }

// UsbCommandRegister is USBCMD.
type UsbCommandRegister struct{ w mmio.RWWord32 }

// RunStop reads the Run/Stop bit.
func (r UsbCommandRegister) RunStop() bool { return bitfield.GetBit(r.w.Load(), 0) }

// SetRunStop sets or clears the Run/Stop bit.
func (r UsbCommandRegister) SetRunStop(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 0, v) })
}

// HCReset reads the Host Controller Reset bit. Software must poll this
// until it clears before touching any other operational register.
func (r UsbCommandRegister) HCReset() bool { return bitfield.GetBit(r.w.Load(), 1) }

// SetHCReset sets or clears the Host Controller Reset bit.
func (r UsbCommandRegister) SetHCReset(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 1, v) })
}

// InterrupterEnable reads the Interrupter Enable bit.
func (r UsbCommandRegister) InterrupterEnable() bool { return bitfield.GetBit(r.w.Load(), 2) }

// SetInterrupterEnable sets or clears the Interrupter Enable bit.
func (r UsbCommandRegister) SetInterrupterEnable(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 2, v) })
}

// HostSystemErrorEnable reads the Host System Error Enable bit.
func (r UsbCommandRegister) HostSystemErrorEnable() bool { return bitfield.GetBit(r.w.Load(), 3) }

// SetHostSystemErrorEnable sets or clears the Host System Error Enable
// bit.
func (r UsbCommandRegister) SetHostSystemErrorEnable(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 3, v) })
}

// SetLightHCReset sets or clears the Light Host Controller Reset bit.
func (r UsbCommandRegister) SetLightHCReset(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 7, v) })
}

// SetSaveState sets or clears the Save State bit.
func (r UsbCommandRegister) SetSaveState(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 8, v) })
}

// SetRestoreState sets or clears the Restore State bit.
func (r UsbCommandRegister) SetRestoreState(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 9, v) })
}

// SetEnableWrapEvent sets or clears the Enable Wrap Event bit.
func (r UsbCommandRegister) SetEnableWrapEvent(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 10, v) })
}

// UsbStatusRegister is USBSTS. Its HCH/SSS/RSS/CNR/HCE bits are RO; its
// EINT/PCD/SRE/HSE bits are W1C (spec.md §4.1).
type UsbStatusRegister struct{ w mmio.RWWord32 }

// HCHalted reports whether the controller is halted.
func (r UsbStatusRegister) HCHalted() bool { return bitfield.GetBit(r.w.Load(), 0) }

// HostSystemError reports the Host System Error bit (W1C; see
// ClearHostSystemError).
func (r UsbStatusRegister) HostSystemError() bool { return bitfield.GetBit(r.w.Load(), 2) }

// ClearHostSystemError writes 1 to the HSE bit, clearing it, while
// writing 0 to every other W1C bit so no sibling status is disturbed.
func (r UsbStatusRegister) ClearHostSystemError() { r.w.Store(bitfield.SetW1C[uint32](2)) }

// EventInterrupt reports the Event Interrupt bit.
func (r UsbStatusRegister) EventInterrupt() bool { return bitfield.GetBit(r.w.Load(), 3) }

// ClearEventInterrupt writes 1 to the EINT bit, clearing it.
func (r UsbStatusRegister) ClearEventInterrupt() { r.w.Store(bitfield.SetW1C[uint32](3)) }

// PortChangeDetect reports the Port Change Detect bit.
func (r UsbStatusRegister) PortChangeDetect() bool { return bitfield.GetBit(r.w.Load(), 4) }

// ClearPortChangeDetect writes 1 to the PCD bit, clearing it.
func (r UsbStatusRegister) ClearPortChangeDetect() { r.w.Store(bitfield.SetW1C[uint32](4)) }

// SaveStateStatus reports the Save State Status bit.
func (r UsbStatusRegister) SaveStateStatus() bool { return bitfield.GetBit(r.w.Load(), 8) }

// RestoreStateStatus reports the Restore State Status bit.
func (r UsbStatusRegister) RestoreStateStatus() bool { return bitfield.GetBit(r.w.Load(), 9) }

// SaveRestoreError reports the Save/Restore Error bit (W1C; see
// ClearSaveRestoreError).
func (r UsbStatusRegister) SaveRestoreError() bool { return bitfield.GetBit(r.w.Load(), 10) }

// ClearSaveRestoreError writes 1 to the SRE bit, clearing it.
func (r UsbStatusRegister) ClearSaveRestoreError() { r.w.Store(bitfield.SetW1C[uint32](10)) }

// ControllerNotReady reports the Controller Not Ready bit.
func (r UsbStatusRegister) ControllerNotReady() bool { return bitfield.GetBit(r.w.Load(), 11) }

// HostControllerError reports the Host Controller Error bit.
func (r UsbStatusRegister) HostControllerError() bool { return bitfield.GetBit(r.w.Load(), 12) }

// PageSizeRegister is PAGESIZE, a read-only bitmap of supported page
// sizes. Bit i set means page size 2^(i+12) bytes is supported.
type PageSizeRegister struct{ w mmio.ROWord32 }

// Bitmap returns the raw 16-bit page size support bitmap.
func (r PageSizeRegister) Bitmap() uint16 {
	return uint16(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 15}))
}

// DeviceNotificationControl is DNCTRL: 16 enable bits, one per
// notification type (spec.md §9 Open Question (d)).
type DeviceNotificationControl struct{ w mmio.RWWord32 }

// Get reports whether notification index n is enabled. n must be in
// [0, 15].
func (r DeviceNotificationControl) Get(n int) (bool, error) {
	if n < 0 || n > 15 {
		return false, xhcierr.ErrNotificationIndexOutOfRange
	}
	return bitfield.GetBit(r.w.Load(), n), nil
}

// Set enables or disables notification index n.
func (r DeviceNotificationControl) Set(n int, v bool) error {
	if n < 0 || n > 15 {
		return xhcierr.ErrNotificationIndexOutOfRange
	}
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, n, v) })
	return nil
}

// CommandRingControlRegister is CRCR, a double-dword register whose low
// 6 bits are control/status and whose remaining 58 bits are the 64-byte
// aligned Command Ring Pointer.
type CommandRingControlRegister struct{ w mmio.RWWord64 }

// RingCycleState reports the RCS bit last written by software; the
// controller does not update it, so reading it back returns what was
// stored, not live ring state.
func (r CommandRingControlRegister) RingCycleState() bool { return bitfield.GetBit(r.w.Load(), 0) }

// SetCommandStop asserts the Command Stop bit (self-clearing on hardware).
func (r CommandRingControlRegister) SetCommandStop() {
	r.w.Update(func(x uint64) uint64 { return bitfield.SetBit(x, 1, true) })
}

// SetCommandAbort asserts the Command Abort bit (self-clearing on
// hardware).
func (r CommandRingControlRegister) SetCommandAbort() {
	r.w.Update(func(x uint64) uint64 { return bitfield.SetBit(x, 2, true) })
}

// CommandRingRunning reports the read-only CRR bit.
func (r CommandRingControlRegister) CommandRingRunning() bool {
	return bitfield.GetBit(r.w.Load(), 3)
}

// SetCommandRingPointer writes the Command Ring Pointer field along with
// the cycle state bit in one 64-bit, low-dword-first write. ptr must be
// 64-byte aligned.
func (r CommandRingControlRegister) SetCommandRingPointer(ptr uint64, cycle bool) error {
	if bitfield.TrailingZeros64(ptr) < 6 {
		return xhcierr.ErrMisaligned
	}
	v := bitfield.SetField[uint64](0, bitfield.Range{Lo: 6, Hi: 63}, ptr>>6)
	v = bitfield.SetBit(v, 0, cycle)
	r.w.Store(v)
	return nil
}

// DeviceContextBaseAddressArrayPointerRegister is DCBAAP: a 64-byte
// aligned pointer to the Device Context Base Address Array.
type DeviceContextBaseAddressArrayPointerRegister struct{ w mmio.RWWord64 }

// Get returns the current pointer value.
func (r DeviceContextBaseAddressArrayPointerRegister) Get() uint64 {
	return r.w.Load() &^ 0x3f
}

// Set writes ptr, which must be 64-byte aligned.
func (r DeviceContextBaseAddressArrayPointerRegister) Set(ptr uint64) error {
	if bitfield.TrailingZeros64(ptr) < 6 {
		return xhcierr.ErrMisaligned
	}
	r.w.Store(ptr)
	return nil
}

// ConfigureRegister is CONFIG.
type ConfigureRegister struct{ w mmio.RWWord32 }

// MaxSlotsEnabled returns the number of Device Slots software has
// enabled.
func (r ConfigureRegister) MaxSlotsEnabled() uint8 {
	return uint8(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 7}))
}

// SetMaxSlotsEnabled sets the number of Device Slots to enable.
func (r ConfigureRegister) SetMaxSlotsEnabled(n uint8) {
	r.w.Update(func(x uint32) uint32 {
		return bitfield.SetField(x, bitfield.Range{Lo: 0, Hi: 7}, uint32(n))
	})
}

// U3EntryEnable reports the U3 Entry Enable bit.
func (r ConfigureRegister) U3EntryEnable() bool { return bitfield.GetBit(r.w.Load(), 8) }

// SetU3EntryEnable sets or clears the U3 Entry Enable bit.
func (r ConfigureRegister) SetU3EntryEnable(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 8, v) })
}

// ConfigurationInformationEnable reports the CIE bit.
func (r ConfigureRegister) ConfigurationInformationEnable() bool {
	return bitfield.GetBit(r.w.Load(), 9)
}

// SetConfigurationInformationEnable sets or clears the CIE bit.
func (r ConfigureRegister) SetConfigurationInformationEnable(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 9, v) })
}

// PortRegisterSet groups the four registers associated with one Root
// Hub port (spec.md §3).
type PortRegisterSet struct{ base mmio.Base }

// Portsc returns the Port Status and Control register.
func (p PortRegisterSet) Portsc() PortStatusAndControlRegister {
	return PortStatusAndControlRegister{mmio.NewRWWord32(p.base.AtOffset(0x00))}
}

// Portpmsc returns the Port Power Management Status and Control
// register.
func (p PortRegisterSet) Portpmsc() PortPowerManagementStatusAndControlRegister {
	return PortPowerManagementStatusAndControlRegister{mmio.NewRWWord32(p.base.AtOffset(0x04))}
}

// Portli returns the Port Link Info register.
func (p PortRegisterSet) Portli() PortLinkInfoRegister {
	return PortLinkInfoRegister{mmio.NewROWord32(p.base.AtOffset(0x08))}
}

// Porthlpmc returns the Port Hardware LPM Control register.
func (p PortRegisterSet) Porthlpmc() PortHardwareLpmControlRegister {
	return PortHardwareLpmControlRegister{mmio.NewRWWord32(p.base.AtOffset(0x0c))}
}

// PortIndicator is the PIC field of PORTSC.
type PortIndicator uint8

const (
	PortIndicatorOff PortIndicator = iota
	PortIndicatorAmber
	PortIndicatorGreen
	PortIndicatorUndefined
)

// PortStatusAndControlRegister is PORTSC. CCS/PED/PLS/PP/PIC/PLC/CSC/PEC
// etc. mix RO, RW, and W1C semantics field by field (spec.md §4.1).
type PortStatusAndControlRegister struct{ w mmio.RWWord32 }

// CurrentConnectStatus reports CCS.
func (r PortStatusAndControlRegister) CurrentConnectStatus() bool {
	return bitfield.GetBit(r.w.Load(), 0)
}

// PortEnabled reports PED.
func (r PortStatusAndControlRegister) PortEnabled() bool { return bitfield.GetBit(r.w.Load(), 1) }

// ClearPortEnabled writes 1 to PED, disabling the port (W1C).
func (r PortStatusAndControlRegister) ClearPortEnabled() { r.w.Store(bitfield.SetW1C[uint32](1)) }

// OverCurrentActive reports OCA.
func (r PortStatusAndControlRegister) OverCurrentActive() bool {
	return bitfield.GetBit(r.w.Load(), 3)
}

// PortReset reports PR.
func (r PortStatusAndControlRegister) PortReset() bool { return bitfield.GetBit(r.w.Load(), 4) }

// SetPortReset asserts PR.
func (r PortStatusAndControlRegister) SetPortReset() {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 4, true) })
}

// PortLinkState returns PLS.
func (r PortStatusAndControlRegister) PortLinkState() uint8 {
	return uint8(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 5, Hi: 8}))
}

// SetPortLinkState writes PLS along with the Link State Write Strobe
// bit, as required for the write to take effect.
func (r PortStatusAndControlRegister) SetPortLinkState(pls uint8) {
	r.w.Update(func(x uint32) uint32 {
		x = bitfield.SetField(x, bitfield.Range{Lo: 5, Hi: 8}, uint32(pls))
		return bitfield.SetBit(x, 16, true)
	})
}

// PortPower reports PP.
func (r PortStatusAndControlRegister) PortPower() bool { return bitfield.GetBit(r.w.Load(), 9) }

// SetPortPower sets or clears PP.
func (r PortStatusAndControlRegister) SetPortPower(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 9, v) })
}

// PortIndicatorControl returns PIC.
func (r PortStatusAndControlRegister) PortIndicatorControl() PortIndicator {
	return PortIndicator(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 14, Hi: 15}))
}

// SetPortIndicatorControl writes PIC.
func (r PortStatusAndControlRegister) SetPortIndicatorControl(v PortIndicator) {
	r.w.Update(func(x uint32) uint32 {
		return bitfield.SetField(x, bitfield.Range{Lo: 14, Hi: 15}, uint32(v))
	})
}

// ConnectStatusChange reports CSC (W1C; see ClearConnectStatusChange).
func (r PortStatusAndControlRegister) ConnectStatusChange() bool {
	return bitfield.GetBit(r.w.Load(), 17)
}

// ClearConnectStatusChange writes 1 to CSC.
func (r PortStatusAndControlRegister) ClearConnectStatusChange() {
	r.w.Store(bitfield.SetW1C[uint32](17))
}

// PortResetChange reports PRC (W1C; see ClearPortResetChange).
func (r PortStatusAndControlRegister) PortResetChange() bool {
	return bitfield.GetBit(r.w.Load(), 21)
}

// ClearPortResetChange writes 1 to PRC.
func (r PortStatusAndControlRegister) ClearPortResetChange() {
	r.w.Store(bitfield.SetW1C[uint32](21))
}

// SetWarmPortReset writes WPR, valid only on USB3 ports.
func (r PortStatusAndControlRegister) SetWarmPortReset() {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 31, true) })
}

// L1Status is the L1S field of PORTPMSC for USB2 ports.
type L1Status uint8

const (
	L1StatusInvalid L1Status = iota
	L1StatusSuccess
	L1StatusTimeoutOrNYET
	L1StatusNotYet
	L1StatusNotSupported
	L1StatusVendorSpecific
)

// PortPowerManagementStatusAndControlRegister is PORTPMSC. Its field
// layout differs between USB2 and USB3 ports; this models the USB2
// layout the xHCI spec marks as default, matching the reference
// decoder's nodyn fallback.
type PortPowerManagementStatusAndControlRegister struct{ w mmio.RWWord32 }

// L1S decodes the L1 Status field (USB2 ports). It reports ok=false
// for the reserved codes 6 and 7 rather than failing, since L1 Status
// is read in a hot path (polling after an L1 entry request) where a
// reserved code should read as "no answer yet", not an error.
func (r PortPowerManagementStatusAndControlRegister) L1S() (status L1Status, ok bool) {
	v := bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 2})
	if v > uint32(L1StatusVendorSpecific) {
		return 0, false
	}
	return L1Status(v), true
}

// TestMode is the decoded Port Test Control field of PORTPMSC (USB2
// ports).
type TestMode uint8

const (
	TestModeNotEnabled TestMode = iota
	TestModeJState
	TestModeKState
	TestModeSe0Nak
	TestModePacket
	TestModeForceEnable
	TestModePortTestControlError TestMode = 15
)

// PortTestControl decodes the Port Test Control field (USB2 ports,
// bits 28..31). Values 6..14 are reserved; ok is false for those.
func (r PortPowerManagementStatusAndControlRegister) PortTestControl() (mode TestMode, ok bool) {
	v := bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 28, Hi: 31})
	switch TestMode(v) {
	case TestModeNotEnabled, TestModeJState, TestModeKState, TestModeSe0Nak,
		TestModePacket, TestModeForceEnable, TestModePortTestControlError:
		return TestMode(v), true
	default:
		return 0, false
	}
}

// SetPortTestControl writes the Port Test Control field.
func (r PortPowerManagementStatusAndControlRegister) SetPortTestControl(m TestMode) {
	r.w.Update(func(x uint32) uint32 {
		return bitfield.SetField(x, bitfield.Range{Lo: 28, Hi: 31}, uint32(m))
	})
}

// RemoteWakeEnable reports the Remote Wake Enable bit (RWE, USB2 ports).
func (r PortPowerManagementStatusAndControlRegister) RemoteWakeEnable() bool {
	return bitfield.GetBit(r.w.Load(), 3)
}

// SetRemoteWakeEnable sets or clears RWE.
func (r PortPowerManagementStatusAndControlRegister) SetRemoteWakeEnable(v bool) {
	r.w.Update(func(x uint32) uint32 { return bitfield.SetBit(x, 3, v) })
}

// HIRD returns the Host Initiated Resume Duration field (USB2 ports).
func (r PortPowerManagementStatusAndControlRegister) HIRD() uint8 {
	return uint8(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 4, Hi: 7}))
}

// U1Timeout returns the U1 Timeout field (USB3 ports).
func (r PortPowerManagementStatusAndControlRegister) U1Timeout() uint8 {
	return uint8(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 7}))
}

// U2Timeout returns the U2 Timeout field (USB3 ports).
func (r PortPowerManagementStatusAndControlRegister) U2Timeout() uint8 {
	return uint8(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 8, Hi: 15}))
}

// PortLinkInfoRegister is PORTLI, read-only.
type PortLinkInfoRegister struct{ w mmio.ROWord32 }

// LinkErrorCount returns the USB3 Link Error Count field.
func (r PortLinkInfoRegister) LinkErrorCount() uint16 {
	return uint16(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 15}))
}

// PortHardwareLpmControlRegister is PORTHLPMC. Its field layout, like
// PORTPMSC's, is version/speed dependent; only the USB2 HIRDM field is
// exposed here.
type PortHardwareLpmControlRegister struct{ w mmio.RWWord32 }

// HostInitiatedResumeDurationMode returns bits 0..1 (HIRDM, USB2 ports).
func (r PortHardwareLpmControlRegister) HostInitiatedResumeDurationMode() uint8 {
	return uint8(bitfield.GetField(r.w.Load(), bitfield.Range{Lo: 0, Hi: 1}))
}
