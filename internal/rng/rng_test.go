package rng

import "testing"

func TestSameSeedSameSequence(t *testing.T) {
	a := New("seed-1")
	b := New("seed-1")
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
	bufA := make([]byte, 16)
	bufB := make([]byte, 16)
	a.Read(bufA)
	b.Read(bufB)
	if string(bufA) != string(bufB) {
		t.Fatalf("expected identical bytes")
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New("alpha")
	b := New("beta")
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 20 {
		t.Fatalf("expected different sequences for different seeds")
	}
}

func TestPickAndIntnBounds(t *testing.T) {
	g := New("bounds")
	if g.Pick(0) != -1 {
		t.Fatalf("expected -1 for empty pick")
	}
	if g.Intn(0) != 0 {
		t.Fatalf("expected 0 for Intn(0)")
	}
	for i := 0; i < 200; i++ {
		if v := g.Pick(3); v < 0 || v > 2 {
			t.Fatalf("pick out of range: %d", v)
		}
	}
	if g.Bool(0) {
		t.Fatalf("Bool(0) must be false")
	}
	if !g.Bool(1.01) {
		t.Fatalf("Bool(>1) must be true")
	}
}

func TestResumeContinuesSequence(t *testing.T) {
	a := New("resume")
	for i := 0; i < 37; i++ {
		a.Float64()
		a.Intn(5)
	}
	buf := make([]byte, 16)
	a.Read(buf)
	a.Pick(3)

	b := Resume("resume", a.Draws())
	if b.Draws() != a.Draws() {
		t.Fatalf("resume at %d draws, want %d", b.Draws(), a.Draws())
	}
	for i := 0; i < 50; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d after resume differs: %v vs %v", i, x, y)
		}
	}
	bufA := make([]byte, 16)
	bufB := make([]byte, 16)
	a.Read(bufA)
	b.Read(bufB)
	if string(bufA) != string(bufB) {
		t.Fatalf("bytes after resume differ")
	}
}

func TestResumeFromZeroMatchesNew(t *testing.T) {
	a := New("zero")
	b := Resume("zero", 0)
	if a.Float64() != b.Float64() {
		t.Fatalf("Resume(seed, 0) should match New(seed)")
	}
}
