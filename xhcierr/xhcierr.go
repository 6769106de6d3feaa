// Package xhcierr defines the fixed error taxonomy used across the xHCI
// access library. Every failure the library can return is a programmer
// error: a malformed register value, an out-of-range index, or a ring
// operation attempted on the wrong state. None of them are retried,
// logged, or recovered from inside the library.
package xhcierr

import "errors"

// Kind identifies one of the error categories below. It exists so
// callers can classify a wrapped error without string matching.
type Kind int

const (
	// ReservedValue means decoding an enum-typed bitfield found a
	// reserved bit pattern.
	ReservedValue Kind = iota
	// DciOutOfRange means an Endpoint Context was requested for DCI 0
	// (the Slot) or DCI > 31.
	DciOutOfRange
	// DropFlagIndexReserved means an Input Control Drop Context flag
	// index of 0 or 1 was requested; those bits are reserved.
	DropFlagIndexReserved
	// AddFlagIndexOutOfRange means an Input Control Add Context flag
	// index greater than 31 was requested.
	AddFlagIndexOutOfRange
	// NotificationIndexOutOfRange means a Device Notification Control
	// index of 16 or greater was requested.
	NotificationIndexOutOfRange
	// Misaligned means a caller passed an address to a setter that
	// requires stricter alignment than the address has.
	Misaligned
	// InvalidTrbType means a ring enqueue was attempted with a TRB
	// whose type is not permitted on that ring.
	InvalidTrbType
	// Uninitialized means a push or pop was attempted on a ring with
	// zero segments.
	Uninitialized
	// SegmentLimitExceeded means an Event Ring was asked to hold more
	// than 255 segments, or a segment larger than 65535 entries.
	SegmentLimitExceeded
	// NullMmioBase means a zero MMIO base address was supplied where a
	// non-null address is required.
	NullMmioBase
)

func (k Kind) String() string {
	switch k {
	case ReservedValue:
		return "reserved value"
	case DciOutOfRange:
		return "device context index out of range"
	case DropFlagIndexReserved:
		return "drop context flag index reserved"
	case AddFlagIndexOutOfRange:
		return "add context flag index out of range"
	case NotificationIndexOutOfRange:
		return "notification index out of range"
	case Misaligned:
		return "address misaligned"
	case InvalidTrbType:
		return "invalid trb type for ring"
	case Uninitialized:
		return "ring has no segments"
	case SegmentLimitExceeded:
		return "segment limit exceeded"
	case NullMmioBase:
		return "mmio base is null"
	default:
		return "unknown xhci error"
	}
}

// sentinel is a Kind wrapped as an error so that errors.Is works against
// the package-level Err* values below, regardless of how much call-site
// context fmt.Errorf("...: %w", ...) has added on top.
type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return s.kind.String() }

// Is lets errors.Is(err, xhcierr.ErrReservedValue) succeed even when err
// is one of these sentinels compared against itself.
func (s *sentinel) Is(target error) bool {
	other, ok := target.(*sentinel)
	return ok && other.kind == s.kind
}

var (
	ErrReservedValue               = &sentinel{ReservedValue}
	ErrDciOutOfRange                = &sentinel{DciOutOfRange}
	ErrDropFlagIndexReserved        = &sentinel{DropFlagIndexReserved}
	ErrAddFlagIndexOutOfRange       = &sentinel{AddFlagIndexOutOfRange}
	ErrNotificationIndexOutOfRange  = &sentinel{NotificationIndexOutOfRange}
	ErrMisaligned                   = &sentinel{Misaligned}
	ErrInvalidTrbType               = &sentinel{InvalidTrbType}
	ErrUninitialized                = &sentinel{Uninitialized}
	ErrSegmentLimitExceeded         = &sentinel{SegmentLimitExceeded}
	ErrNullMmioBase                 = &sentinel{NullMmioBase}
)

// KindOf reports the Kind of err, if err wraps one of the sentinels
// above anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var s *sentinel
	if errors.As(err, &s) {
		return s.kind, true
	}
	return 0, false
}
