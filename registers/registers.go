package registers

import (
	"github.com/silverarc/xhci/mmio"
	"github.com/silverarc/xhci/xhcierr"
)

// Registers is the fully-derived view over one xHCI MMIO region: the
// Capability Registers plus the Operational, Runtime, and Doorbell
// regions whose offsets the Capability Registers describe (spec.md
// §4.2). Constructing one reads the Capability block exactly once.
type Registers struct {
	capability Capability
	operational OperationalRegs
	runtime     RuntimeRegs
	doorbell    DoorbellArray
	extCapBase  mmio.Base
	extCapPtr   uint16
}

// New derives a Registers handle from a non-null MMIO base address. The
// caller is responsible for mapping base for the lifetime of the
// returned handle (spec.md §1, §5); this package never maps or unmaps
// memory itself.
func New(base uintptr) (Registers, error) {
	if base == 0 {
		return Registers{}, xhcierr.ErrNullMmioBase
	}
	b := mmio.Base(base)
	cap := NewCapabilityRegs(b).Read()
	hcs1 := cap.HCSParams1()
	hccp1 := cap.HCCParams1()

	opBase := b.AtOffset(uintptr(cap.CapLength()))
	rtBase := b.AtOffset(uintptr(cap.RTSOff()))
	dbBase := b.AtOffset(uintptr(cap.DBOff()))

	return Registers{
		capability:  cap,
		operational: newOperationalRegs(opBase, hcs1.NumberOfPorts()),
		runtime:     NewRuntimeRegs(rtBase, hcs1.NumberOfInterrupts()),
		doorbell:    newDoorbellArray(dbBase, hcs1.NumberOfDeviceSlots()),
		extCapBase:  b,
		extCapPtr:   hccp1.XHCIExtendedCapabilitiesPointer(),
	}, nil
}

// Capability returns the decoded Capability Register snapshot this
// handle was derived from.
func (r Registers) Capability() Capability { return r.capability }

// Operational returns the Operational Register Space view.
func (r Registers) Operational() OperationalRegs { return r.operational }

// Runtime returns the Runtime Register Space view.
func (r Registers) Runtime() RuntimeRegs { return r.runtime }

// Doorbell returns the Doorbell Register Array view.
func (r Registers) Doorbell() DoorbellArray { return r.doorbell }

// ExtendedCapabilitiesBase and ExtendedCapabilitiesPointer expose the
// raw values needed to walk the Extended Capabilities linked list via
// package extcap, which needs the MMIO base and the first dword offset,
// not a Registers value, to stay decoupled from this package.
func (r Registers) ExtendedCapabilitiesBase() uintptr { return uintptr(r.extCapBase) }

// ExtendedCapabilitiesPointer returns the dword offset of the first
// Extended Capability, or 0 if the list is empty.
func (r Registers) ExtendedCapabilitiesPointer() uint16 { return r.extCapPtr }
