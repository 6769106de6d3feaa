package bitfield

import "testing"

func TestGetSetFieldRoundTrip(t *testing.T) {
	r := Range{Lo: 4, Hi: 11}
	var w uint32 = 0xffffffff
	w = SetField(w, r, 0x5a)
	if got := GetField(w, r); got != 0x5a {
		t.Fatalf("GetField = %#x, want 0x5a", got)
	}
	// bits outside the range must survive untouched.
	if w&0xf != 0xf || w>>12 != 0xfffff {
		t.Fatalf("SetField disturbed bits outside its range: %#x", w)
	}
}

func TestSetFieldTruncatesValue(t *testing.T) {
	r := Range{Lo: 0, Hi: 3}
	w := SetField[uint8](0, r, 0xff)
	if got := GetField(w, r); got != 0x0f {
		t.Fatalf("GetField = %#x, want 0x0f", got)
	}
}

func TestGetSetBit(t *testing.T) {
	var w uint16 = 0
	w = SetBit(w, 5, true)
	if !GetBit(w, 5) {
		t.Fatal("bit 5 should be set")
	}
	w = SetBit(w, 5, false)
	if GetBit(w, 5) {
		t.Fatal("bit 5 should be clear")
	}
}

func TestComposeSplitDoubleWord(t *testing.T) {
	v := ComposeDoubleWord(0x12345678, 0x9abcdef0)
	if v != 0x9abcdef012345678 {
		t.Fatalf("ComposeDoubleWord = %#x", v)
	}
	lo, hi := SplitDoubleWord(v)
	if lo != 0x12345678 || hi != 0x9abcdef0 {
		t.Fatalf("SplitDoubleWord = (%#x, %#x)", lo, hi)
	}
}

func TestTrailingZeros64(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 64},
		{1, 0},
		{0x40, 6},
		{0x1_2345_6780, 7},
	}
	for _, c := range cases {
		if got := TrailingZeros64(c.v); got != c.want {
			t.Errorf("TrailingZeros64(%#x) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestMaskFullWidth(t *testing.T) {
	r := Range{Lo: 0, Hi: 63}
	var w uint64 = 0x1
	w = SetField(w, r, ^uint64(0))
	if w != ^uint64(0) {
		t.Fatalf("full-width SetField = %#x", w)
	}
}
