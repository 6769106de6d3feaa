package xhcierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("decode slot state: %w", ErrReservedValue)
	if !errors.Is(wrapped, ErrReservedValue) {
		t.Fatal("errors.Is should see through fmt.Errorf wrapping")
	}
	if errors.Is(wrapped, ErrMisaligned) {
		t.Fatal("errors.Is should not match a different sentinel")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("endpoint: %w", ErrDciOutOfRange)
	kind, ok := KindOf(wrapped)
	if !ok || kind != DciOutOfRange {
		t.Fatalf("KindOf = (%v, %v), want (DciOutOfRange, true)", kind, ok)
	}
	if _, ok := KindOf(errors.New("unrelated")); ok {
		t.Fatal("KindOf should fail on an unrelated error")
	}
}

func TestKindString(t *testing.T) {
	if ReservedValue.String() == "" {
		t.Fatal("Kind.String should not be empty")
	}
}
