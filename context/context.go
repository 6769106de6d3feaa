// Package context implements the in-memory Input and Output (Device)
// Context layouts that software shares with the controller via DMA
// (spec.md §4.4): Input Control, Slot, and Endpoint contexts, each in
// 32-byte or 64-byte variants selected by the controller's Context Size
// capability bit.
//
// Go has no const generics, so the 32-/64-byte "pad" parameter from the
// reference design becomes two concrete block types, Pad32 and Pad64,
// satisfying a common Pad interface; InputContext and OutputContext are
// generic over that interface. The accessor bit-manipulation code is
// identical either way — only the stride between logical contexts
// changes.
package context

import (
	"github.com/silverarc/xhci/bitfield"
	"github.com/silverarc/xhci/xhcierr"
)

// rawContextWords is the size, in dwords, of one logical Slot or
// Endpoint Context before padding.
const rawContextWords = 8

// Pad is the reserved trailing storage appended to each logical context
// in 64-byte mode. It carries no accessors: software must keep it zero
// (spec.md §4.4).
type Pad interface {
	Pad32 | Pad64
	stride() int
}

// Pad32 selects the 32-byte context layout: no trailing pad.
type Pad32 struct{}

func (Pad32) stride() int { return rawContextWords }

// Pad64 selects the 64-byte context layout: 32 bytes (8 dwords) of
// reserved trailing storage after each logical context.
type Pad64 struct{ _ [8]uint32 }

func (Pad64) stride() int { return rawContextWords * 2 }

// rawContext is the fixed 8-dword backing store shared by Slot and
// Endpoint contexts; which interpretation applies depends on which
// wrapper type holds it.
type rawContext[P Pad] struct {
	words [rawContextWords]uint32
	_     P
}

// InputContext is the 33-slot structure software builds to describe a
// Configure Endpoint or Evaluate Context command: one Input Control
// Context followed by one Slot Context and 31 Endpoint Contexts. It
// must be 16-byte aligned in memory.
type InputContext[P Pad] struct {
	control rawContext[P]
	slot    rawContext[P]
	ep      [31]rawContext[P]
}

// InputControl returns the Input Control Context.
func (c *InputContext[P]) InputControl() *InputControlContext[P] {
	return (*InputControlContext[P])(&c.control)
}

// Slot returns the Slot Context (DCI 0).
func (c *InputContext[P]) Slot() *SlotContext[P] { return (*SlotContext[P])(&c.slot) }

// Endpoint returns the Endpoint Context for dci, which must be in
// [1, 31].
func (c *InputContext[P]) Endpoint(dci int) (*EndpointContext[P], error) {
	if dci < 1 || dci > 31 {
		return nil, xhcierr.ErrDciOutOfRange
	}
	return (*EndpointContext[P])(&c.ep[dci-1]), nil
}

// OutputContext is the 32-slot structure the controller reads and
// writes for an enabled device slot: one Slot Context and 31 Endpoint
// Contexts. It must be 64-byte aligned in memory.
type OutputContext[P Pad] struct {
	slot rawContext[P]
	ep   [31]rawContext[P]
}

// Slot returns the Slot Context (DCI 0).
func (c *OutputContext[P]) Slot() *SlotContext[P] { return (*SlotContext[P])(&c.slot) }

// Endpoint returns the Endpoint Context for dci, which must be in
// [1, 31].
func (c *OutputContext[P]) Endpoint(dci int) (*EndpointContext[P], error) {
	if dci < 1 || dci > 31 {
		return nil, xhcierr.ErrDciOutOfRange
	}
	return (*EndpointContext[P])(&c.ep[dci-1]), nil
}

// InputControlContext is the first logical context of an Input Context:
// a drop-context bitmap, an add-context bitmap, and three configuration
// fields (spec.md §4.4).
type InputControlContext[P Pad] rawContext[P]

// DropContextFlag reports drop-context bit index, which must be in
// [2, 31]; bits 0 and 1 are reserved (DCI 0 and 1 can never be dropped).
func (c *InputControlContext[P]) DropContextFlag(index int) (bool, error) {
	if index < 2 || index > 31 {
		return false, xhcierr.ErrDropFlagIndexReserved
	}
	return bitfield.GetBit(c.words[0], index), nil
}

// SetDropContextFlag sets or clears drop-context bit index.
func (c *InputControlContext[P]) SetDropContextFlag(index int, v bool) error {
	if index < 2 || index > 31 {
		return xhcierr.ErrDropFlagIndexReserved
	}
	c.words[0] = bitfield.SetBit(c.words[0], index, v)
	return nil
}

// AddContextFlag reports add-context bit index, which must be in
// [0, 31].
func (c *InputControlContext[P]) AddContextFlag(index int) (bool, error) {
	if index < 0 || index > 31 {
		return false, xhcierr.ErrAddFlagIndexOutOfRange
	}
	return bitfield.GetBit(c.words[1], index), nil
}

// SetAddContextFlag sets or clears add-context bit index.
func (c *InputControlContext[P]) SetAddContextFlag(index int, v bool) error {
	if index < 0 || index > 31 {
		return xhcierr.ErrAddFlagIndexOutOfRange
	}
	c.words[1] = bitfield.SetBit(c.words[1], index, v)
	return nil
}

// ConfigurationValue returns the bConfigurationValue field.
func (c *InputControlContext[P]) ConfigurationValue() uint8 {
	return uint8(bitfield.GetField(c.words[7], bitfield.Range{Lo: 0, Hi: 7}))
}

// SetConfigurationValue sets the bConfigurationValue field.
func (c *InputControlContext[P]) SetConfigurationValue(v uint8) {
	c.words[7] = bitfield.SetField(c.words[7], bitfield.Range{Lo: 0, Hi: 7}, uint32(v))
}

// InterfaceNumber returns the bInterfaceNumber field.
func (c *InputControlContext[P]) InterfaceNumber() uint8 {
	return uint8(bitfield.GetField(c.words[7], bitfield.Range{Lo: 8, Hi: 15}))
}

// SetInterfaceNumber sets the bInterfaceNumber field.
func (c *InputControlContext[P]) SetInterfaceNumber(v uint8) {
	c.words[7] = bitfield.SetField(c.words[7], bitfield.Range{Lo: 8, Hi: 15}, uint32(v))
}

// AlternateSetting returns the bAlternateSetting field.
func (c *InputControlContext[P]) AlternateSetting() uint8 {
	return uint8(bitfield.GetField(c.words[7], bitfield.Range{Lo: 16, Hi: 23}))
}

// SetAlternateSetting sets the bAlternateSetting field.
func (c *InputControlContext[P]) SetAlternateSetting(v uint8) {
	c.words[7] = bitfield.SetField(c.words[7], bitfield.Range{Lo: 16, Hi: 23}, uint32(v))
}

// SlotState is the decoded Slot Context State field.
type SlotState uint8

const (
	SlotStateDisabledEnabled SlotState = iota
	SlotStateDefault
	SlotStateAddressed
	SlotStateConfigured
)

// SlotContext is the Slot Context logical block (spec.md §4.4).
type SlotContext[P Pad] rawContext[P]

// RouteString returns the Route String field.
func (c *SlotContext[P]) RouteString() uint32 {
	return bitfield.GetField(c.words[0], bitfield.Range{Lo: 0, Hi: 19})
}

// SetRouteString sets the Route String field.
func (c *SlotContext[P]) SetRouteString(v uint32) {
	c.words[0] = bitfield.SetField(c.words[0], bitfield.Range{Lo: 0, Hi: 19}, v)
}

// Speed returns the raw Speed field, a Protocol Speed ID value.
func (c *SlotContext[P]) Speed() uint8 {
	return uint8(bitfield.GetField(c.words[0], bitfield.Range{Lo: 20, Hi: 23}))
}

// SetSpeed sets the Speed field.
func (c *SlotContext[P]) SetSpeed(v uint8) {
	c.words[0] = bitfield.SetField(c.words[0], bitfield.Range{Lo: 20, Hi: 23}, uint32(v))
}

// MultiTT reports the Multi-TT bit.
func (c *SlotContext[P]) MultiTT() bool { return bitfield.GetBit(c.words[0], 25) }

// SetMultiTT sets the Multi-TT bit.
func (c *SlotContext[P]) SetMultiTT(v bool) { c.words[0] = bitfield.SetBit(c.words[0], 25, v) }

// Hub reports the Hub bit.
func (c *SlotContext[P]) Hub() bool { return bitfield.GetBit(c.words[0], 26) }

// SetHub sets the Hub bit.
func (c *SlotContext[P]) SetHub(v bool) { c.words[0] = bitfield.SetBit(c.words[0], 26, v) }

// ContextEntries returns the Context Entries field.
func (c *SlotContext[P]) ContextEntries() uint8 {
	return uint8(bitfield.GetField(c.words[0], bitfield.Range{Lo: 27, Hi: 31}))
}

// SetContextEntries sets the Context Entries field.
func (c *SlotContext[P]) SetContextEntries(v uint8) {
	c.words[0] = bitfield.SetField(c.words[0], bitfield.Range{Lo: 27, Hi: 31}, uint32(v))
}

// MaxExitLatency returns the Max Exit Latency field.
func (c *SlotContext[P]) MaxExitLatency() uint16 {
	return uint16(bitfield.GetField(c.words[1], bitfield.Range{Lo: 0, Hi: 15}))
}

// SetMaxExitLatency sets the Max Exit Latency field.
func (c *SlotContext[P]) SetMaxExitLatency(v uint16) {
	c.words[1] = bitfield.SetField(c.words[1], bitfield.Range{Lo: 0, Hi: 15}, uint32(v))
}

// RootHubPortNumber returns the Root Hub Port Number field.
func (c *SlotContext[P]) RootHubPortNumber() uint8 {
	return uint8(bitfield.GetField(c.words[1], bitfield.Range{Lo: 16, Hi: 23}))
}

// SetRootHubPortNumber sets the Root Hub Port Number field.
func (c *SlotContext[P]) SetRootHubPortNumber(v uint8) {
	c.words[1] = bitfield.SetField(c.words[1], bitfield.Range{Lo: 16, Hi: 23}, uint32(v))
}

// NumberOfPorts returns the Number of Ports field (hub slots only).
func (c *SlotContext[P]) NumberOfPorts() uint8 {
	return uint8(bitfield.GetField(c.words[1], bitfield.Range{Lo: 24, Hi: 31}))
}

// SetNumberOfPorts sets the Number of Ports field.
func (c *SlotContext[P]) SetNumberOfPorts(v uint8) {
	c.words[1] = bitfield.SetField(c.words[1], bitfield.Range{Lo: 24, Hi: 31}, uint32(v))
}

// ParentHubSlotID returns the Parent Hub Slot ID field.
func (c *SlotContext[P]) ParentHubSlotID() uint8 {
	return uint8(bitfield.GetField(c.words[2], bitfield.Range{Lo: 0, Hi: 7}))
}

// SetParentHubSlotID sets the Parent Hub Slot ID field.
func (c *SlotContext[P]) SetParentHubSlotID(v uint8) {
	c.words[2] = bitfield.SetField(c.words[2], bitfield.Range{Lo: 0, Hi: 7}, uint32(v))
}

// ParentPortNumber returns the Parent Port Number field.
func (c *SlotContext[P]) ParentPortNumber() uint8 {
	return uint8(bitfield.GetField(c.words[2], bitfield.Range{Lo: 8, Hi: 15}))
}

// SetParentPortNumber sets the Parent Port Number field.
func (c *SlotContext[P]) SetParentPortNumber(v uint8) {
	c.words[2] = bitfield.SetField(c.words[2], bitfield.Range{Lo: 8, Hi: 15}, uint32(v))
}

// TTThinkTime returns the TT Think Time field.
func (c *SlotContext[P]) TTThinkTime() uint8 {
	return uint8(bitfield.GetField(c.words[2], bitfield.Range{Lo: 16, Hi: 17}))
}

// SetTTThinkTime sets the TT Think Time field.
func (c *SlotContext[P]) SetTTThinkTime(v uint8) {
	c.words[2] = bitfield.SetField(c.words[2], bitfield.Range{Lo: 16, Hi: 17}, uint32(v))
}

// InterrupterTarget returns the Interrupter Target field.
func (c *SlotContext[P]) InterrupterTarget() uint16 {
	return uint16(bitfield.GetField(c.words[2], bitfield.Range{Lo: 22, Hi: 31}))
}

// SetInterrupterTarget sets the Interrupter Target field.
func (c *SlotContext[P]) SetInterrupterTarget(v uint16) {
	c.words[2] = bitfield.SetField(c.words[2], bitfield.Range{Lo: 22, Hi: 31}, uint32(v))
}

// UsbDeviceAddress returns the USB Device Address field.
func (c *SlotContext[P]) UsbDeviceAddress() uint8 {
	return uint8(bitfield.GetField(c.words[3], bitfield.Range{Lo: 0, Hi: 7}))
}

// SlotState decodes the Slot State field, failing with ReservedValue if
// the bit pattern does not name one of the four defined states.
func (c *SlotContext[P]) SlotState() (SlotState, error) {
	v := bitfield.GetField(c.words[3], bitfield.Range{Lo: 27, Hi: 31})
	if v > uint32(SlotStateConfigured) {
		return 0, xhcierr.ErrReservedValue
	}
	return SlotState(v), nil
}

// SetSlotState sets the Slot State field. Software normally never calls
// this directly; the controller advances Slot State on its own in
// response to commands. It exists for test fixtures and for the rare
// commands (e.g. Reset Device) that document a specific resulting
// state.
func (c *SlotContext[P]) SetSlotState(s SlotState) {
	c.words[3] = bitfield.SetField(c.words[3], bitfield.Range{Lo: 27, Hi: 31}, uint32(s))
}

// EndpointState is the decoded Endpoint Context State field.
type EndpointState uint8

const (
	EndpointStateDisabled EndpointState = iota
	EndpointStateRunning
	EndpointStateHalted
	EndpointStateStopped
	EndpointStateError
)

// EndpointType is the decoded Endpoint Type field.
type EndpointType uint8

const (
	EndpointTypeNotValid EndpointType = iota
	EndpointTypeIsochOut
	EndpointTypeBulkOut
	EndpointTypeInterruptOut
	EndpointTypeControl
	EndpointTypeIsochIn
	EndpointTypeBulkIn
	EndpointTypeInterruptIn
)

// EndpointContext is the Endpoint Context logical block (spec.md §4.4).
type EndpointContext[P Pad] rawContext[P]

// EndpointState decodes the Endpoint State field.
func (c *EndpointContext[P]) EndpointState() (EndpointState, error) {
	v := bitfield.GetField(c.words[0], bitfield.Range{Lo: 0, Hi: 2})
	if v > uint32(EndpointStateError) {
		return 0, xhcierr.ErrReservedValue
	}
	return EndpointState(v), nil
}

// Mult returns the Mult field.
func (c *EndpointContext[P]) Mult() uint8 {
	return uint8(bitfield.GetField(c.words[0], bitfield.Range{Lo: 8, Hi: 9}))
}

// SetMult sets the Mult field.
func (c *EndpointContext[P]) SetMult(v uint8) {
	c.words[0] = bitfield.SetField(c.words[0], bitfield.Range{Lo: 8, Hi: 9}, uint32(v))
}

// MaxPrimaryStreams returns the MaxPStreams field.
func (c *EndpointContext[P]) MaxPrimaryStreams() uint8 {
	return uint8(bitfield.GetField(c.words[0], bitfield.Range{Lo: 10, Hi: 14}))
}

// SetMaxPrimaryStreams sets the MaxPStreams field.
func (c *EndpointContext[P]) SetMaxPrimaryStreams(v uint8) {
	c.words[0] = bitfield.SetField(c.words[0], bitfield.Range{Lo: 10, Hi: 14}, uint32(v))
}

// LinearStreamArray reports the LSA bit.
func (c *EndpointContext[P]) LinearStreamArray() bool { return bitfield.GetBit(c.words[0], 15) }

// SetLinearStreamArray sets the LSA bit.
func (c *EndpointContext[P]) SetLinearStreamArray(v bool) {
	c.words[0] = bitfield.SetBit(c.words[0], 15, v)
}

// Interval returns the Interval field.
func (c *EndpointContext[P]) Interval() uint8 {
	return uint8(bitfield.GetField(c.words[0], bitfield.Range{Lo: 16, Hi: 23}))
}

// SetInterval sets the Interval field.
func (c *EndpointContext[P]) SetInterval(v uint8) {
	c.words[0] = bitfield.SetField(c.words[0], bitfield.Range{Lo: 16, Hi: 23}, uint32(v))
}

// MaxESITPayloadHi returns the high byte of Max ESIT Payload.
func (c *EndpointContext[P]) MaxESITPayloadHi() uint8 {
	return uint8(bitfield.GetField(c.words[0], bitfield.Range{Lo: 24, Hi: 31}))
}

// SetMaxESITPayloadHi sets the high byte of Max ESIT Payload.
func (c *EndpointContext[P]) SetMaxESITPayloadHi(v uint8) {
	c.words[0] = bitfield.SetField(c.words[0], bitfield.Range{Lo: 24, Hi: 31}, uint32(v))
}

// ErrorCount returns the CErr field.
func (c *EndpointContext[P]) ErrorCount() uint8 {
	return uint8(bitfield.GetField(c.words[1], bitfield.Range{Lo: 1, Hi: 2}))
}

// SetErrorCount sets the CErr field.
func (c *EndpointContext[P]) SetErrorCount(v uint8) {
	c.words[1] = bitfield.SetField(c.words[1], bitfield.Range{Lo: 1, Hi: 2}, uint32(v))
}

// EndpointType decodes the Endpoint Type field. Every 3-bit pattern is
// a defined EndpointType value, so this never fails.
func (c *EndpointContext[P]) EndpointType() EndpointType {
	return EndpointType(bitfield.GetField(c.words[1], bitfield.Range{Lo: 3, Hi: 5}))
}

// SetEndpointType sets the Endpoint Type field.
func (c *EndpointContext[P]) SetEndpointType(t EndpointType) {
	c.words[1] = bitfield.SetField(c.words[1], bitfield.Range{Lo: 3, Hi: 5}, uint32(t))
}

// HostInitiateDisable reports the HID bit.
func (c *EndpointContext[P]) HostInitiateDisable() bool { return bitfield.GetBit(c.words[1], 7) }

// SetHostInitiateDisable sets the HID bit.
func (c *EndpointContext[P]) SetHostInitiateDisable(v bool) {
	c.words[1] = bitfield.SetBit(c.words[1], 7, v)
}

// MaxBurstSize returns the Max Burst Size field.
func (c *EndpointContext[P]) MaxBurstSize() uint8 {
	return uint8(bitfield.GetField(c.words[1], bitfield.Range{Lo: 8, Hi: 15}))
}

// SetMaxBurstSize sets the Max Burst Size field.
func (c *EndpointContext[P]) SetMaxBurstSize(v uint8) {
	c.words[1] = bitfield.SetField(c.words[1], bitfield.Range{Lo: 8, Hi: 15}, uint32(v))
}

// MaxPacketSize returns the Max Packet Size field.
func (c *EndpointContext[P]) MaxPacketSize() uint16 {
	return uint16(bitfield.GetField(c.words[1], bitfield.Range{Lo: 16, Hi: 31}))
}

// SetMaxPacketSize sets the Max Packet Size field.
func (c *EndpointContext[P]) SetMaxPacketSize(v uint16) {
	c.words[1] = bitfield.SetField(c.words[1], bitfield.Range{Lo: 16, Hi: 31}, uint32(v))
}

// DequeueCycleState returns the DCS bit of the TR Dequeue Pointer word.
func (c *EndpointContext[P]) DequeueCycleState() bool { return bitfield.GetBit(c.words[2], 0) }

// TRDequeuePointer returns the 64-byte aligned TR Dequeue Pointer,
// composed from dwords 2 and 3 (spec.md §4.4 names "4 bits" of
// zero-trailing but then calls the result "64-byte aligned"; 64-byte
// alignment requires 6 trailing zero bits, which is what this masks).
func (c *EndpointContext[P]) TRDequeuePointer() uint64 {
	v := bitfield.ComposeDoubleWord(c.words[2], c.words[3])
	return v &^ 0x3f
}

// SetTRDequeuePointer sets the TR Dequeue Pointer and DCS bit. ptr must
// be 64-byte aligned.
func (c *EndpointContext[P]) SetTRDequeuePointer(ptr uint64, cycle bool) error {
	if bitfield.TrailingZeros64(ptr) < 6 {
		return xhcierr.ErrMisaligned
	}
	v := ptr &^ 0x3f
	if cycle {
		v |= 1
	}
	c.words[2], c.words[3] = bitfield.SplitDoubleWord(v)
	return nil
}

// AverageTRBLength returns the Average TRB Length field.
func (c *EndpointContext[P]) AverageTRBLength() uint16 {
	return uint16(bitfield.GetField(c.words[4], bitfield.Range{Lo: 0, Hi: 15}))
}

// SetAverageTRBLength sets the Average TRB Length field.
func (c *EndpointContext[P]) SetAverageTRBLength(v uint16) {
	c.words[4] = bitfield.SetField(c.words[4], bitfield.Range{Lo: 0, Hi: 15}, uint32(v))
}

// MaxESITPayloadLo returns the low 16 bits of Max ESIT Payload.
func (c *EndpointContext[P]) MaxESITPayloadLo() uint16 {
	return uint16(bitfield.GetField(c.words[4], bitfield.Range{Lo: 16, Hi: 31}))
}

// SetMaxESITPayloadLo sets the low 16 bits of Max ESIT Payload.
func (c *EndpointContext[P]) SetMaxESITPayloadLo(v uint16) {
	c.words[4] = bitfield.SetField(c.words[4], bitfield.Range{Lo: 16, Hi: 31}, uint32(v))
}

// MaxESITPayload composes the full Max ESIT Payload value from its high
// and low halves.
func (c *EndpointContext[P]) MaxESITPayload() uint32 {
	return uint32(c.MaxESITPayloadHi())<<16 | uint32(c.MaxESITPayloadLo())
}
