package addr

import "testing"

func TestAlignRoundTrip(t *testing.T) {
	a := New(0x8020_1234)
	down := a.AlignDown()
	up := a.AlignUp()
	if !down.Aligned() {
		t.Fatalf("AlignDown() = %#x not aligned", down)
	}
	if !up.Aligned() {
		t.Fatalf("AlignUp() = %#x not aligned", up)
	}
	if down.Uint64() != 0x8020_1000 {
		t.Errorf("AlignDown() = %#x, want 0x8020_1000", down)
	}
	if up.Uint64() != 0x8020_2000 {
		t.Errorf("AlignUp() = %#x, want 0x8020_2000", up)
	}
	if down.Add(a.PageOffset()) != a {
		t.Errorf("AlignDown()+PageOffset() = %#x, want %#x", down.Add(a.PageOffset()), a)
	}
}

func TestAlignedPageAlreadyAligned(t *testing.T) {
	a := New(0x1000)
	if a.AlignUp() != a {
		t.Errorf("AlignUp() of already-aligned addr changed it: %#x", a.AlignUp())
	}
	if a.AlignDown() != a {
		t.Errorf("AlignDown() of already-aligned addr changed it: %#x", a.AlignDown())
	}
}

func TestIndexesDecomposition(t *testing.T) {
	// Construct a VA with known level indices: level2=1, level1=2, level0=3.
	va := New((1 << (12 + 18)) | (2 << (12 + 9)) | (3 << 12))
	idx := va.Indexes()
	want := [3]int{1, 2, 3}
	if idx != want {
		t.Errorf("Indexes() = %v, want %v", idx, want)
	}
}

func TestPTERoundTrip(t *testing.T) {
	pa := New(0x8030_0000)
	pte := NewPTE(pa, FlagV|FlagR|FlagW)
	if !pte.Valid() {
		t.Fatal("PTE not valid")
	}
	if !pte.Leaf() {
		t.Fatal("PTE with R set should be a leaf")
	}
	if pte.Interior() {
		t.Fatal("PTE with R set should not be interior")
	}
	if pte.PA() != pa {
		t.Errorf("PTE.PA() = %#x, want %#x", pte.PA(), pa)
	}
	if pte.Flags() != FlagV|FlagR|FlagW {
		t.Errorf("PTE.Flags() = %v, want V|R|W", pte.Flags())
	}
}

func TestPTEInteriorHasNoRWX(t *testing.T) {
	pte := NewPTE(New(0x8040_0000), FlagV)
	if !pte.Interior() {
		t.Fatal("PTE with no RWX bits should be interior")
	}
	if pte.Leaf() {
		t.Fatal("PTE with no RWX bits should not be a leaf")
	}
}

func TestPTEUser(t *testing.T) {
	pte := NewPTE(New(0x8050_0000), FlagV|FlagR|FlagU)
	if !pte.User() {
		t.Fatal("expected User() true")
	}
	pte2 := NewPTE(New(0x8050_0000), FlagV|FlagR)
	if pte2.User() {
		t.Fatal("expected User() false")
	}
}
