package registers

import (
	"testing"

	"github.com/silverarc/xhci/mmio"
)

func TestL1SReservedCodeReportsNotOK(t *testing.T) {
	words := make([]uint32, 4)
	r := PortPowerManagementStatusAndControlRegister{mmio.NewRWWord32(backing(words))}
	words[0] = 6 // reserved L1 Status code
	if _, ok := r.L1S(); ok {
		t.Fatal("L1S() should report ok=false for the reserved code 6")
	}
	words[0] = uint32(L1StatusSuccess)
	status, ok := r.L1S()
	if !ok || status != L1StatusSuccess {
		t.Fatalf("L1S() = (%v, %v), want (Success, true)", status, ok)
	}
}

func TestPortTestControlReservedCodeReportsNotOK(t *testing.T) {
	words := make([]uint32, 4)
	r := PortPowerManagementStatusAndControlRegister{mmio.NewRWWord32(backing(words))}
	words[0] = 9 << 28 // reserved Test Mode code
	if _, ok := r.PortTestControl(); ok {
		t.Fatal("PortTestControl() should report ok=false for a reserved code")
	}
	r.SetPortTestControl(TestModeForceEnable)
	mode, ok := r.PortTestControl()
	if !ok || mode != TestModeForceEnable {
		t.Fatalf("PortTestControl() = (%v, %v), want (ForceEnable, true)", mode, ok)
	}
}
