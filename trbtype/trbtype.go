// Package trbtype catalogs the TRB Type field (xHCI 1.2 Table 6-91) and
// which types each ring kind may legally carry, so ring.CommandRing and
// ring.TransferRing can reject a malformed push before it ever reaches
// hardware (spec.md §5's "ring enqueue validation"). EventRingAllowed
// lists the types the controller writes to an Event Ring; ring.EventRing
// does not check it.
package trbtype

// Type is the 6-bit TRB Type field occupying bits [15:10] of a TRB's
// fourth dword.
type Type uint8

const (
	Reserved Type = iota
	Normal
	SetupStage
	DataStage
	StatusStage
	Isoch
	Link
	EventData
	NoOp
	EnableSlotCommand
	DisableSlotCommand
	AddressDeviceCommand
	ConfigureEndpointCommand
	EvaluateContextCommand
	ResetEndpointCommand
	StopEndpointCommand
	SetTRDequeuePointerCommand
	ResetDeviceCommand
	ForceEventCommand
	NegotiateBandwidthCommand
	SetLatencyToleranceValueCommand
	GetPortBandwidthCommand
	ForceHeaderCommand
	NoOpCommand
	GetExtendedPropertyCommand
	SetExtendedPropertyCommand
)

const (
	TransferEvent Type = iota + 32
	CommandCompletionEvent
	PortStatusChangeEvent
	BandwidthRequestEvent
	DoorbellEvent
	HostControllerEvent
	DeviceNotificationEvent
	MFINDEXWrapEvent
)

// CommandRingAllowed is the set of TRB types valid as an entry on a
// Command Ring, plus Link which every producer ring must be able to
// enqueue at a segment boundary.
var CommandRingAllowed = map[Type]bool{
	Link: true, NoOpCommand: true, EnableSlotCommand: true, DisableSlotCommand: true,
	AddressDeviceCommand: true, ConfigureEndpointCommand: true, EvaluateContextCommand: true,
	ResetEndpointCommand: true, StopEndpointCommand: true, SetTRDequeuePointerCommand: true,
	ResetDeviceCommand: true, ForceEventCommand: true, NegotiateBandwidthCommand: true,
	SetLatencyToleranceValueCommand: true, GetPortBandwidthCommand: true, ForceHeaderCommand: true,
	GetExtendedPropertyCommand: true, SetExtendedPropertyCommand: true,
}

// TransferRingAllowed is the set of TRB types valid as an entry on a
// Transfer Ring.
var TransferRingAllowed = map[Type]bool{
	Link: true, Normal: true, SetupStage: true, DataStage: true,
	StatusStage: true, Isoch: true, EventData: true, NoOp: true,
}

// EventRingAllowed is the set of TRB types the controller may produce
// on an Event Ring; software never enqueues onto an Event Ring, but
// event-processing code uses this set to detect corruption.
var EventRingAllowed = map[Type]bool{
	TransferEvent: true, CommandCompletionEvent: true, PortStatusChangeEvent: true,
	BandwidthRequestEvent: true, DoorbellEvent: true, HostControllerEvent: true,
	DeviceNotificationEvent: true, MFINDEXWrapEvent: true,
}
