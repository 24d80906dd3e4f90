package embedding

import (
	"math"
	"testing"

	"github.com/clearcart/relevance/internal/textutil"
)

func TestGenerate_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "the of and", "a an it"} {
		vec := Generate(in)
		if len(vec) != Dimensions {
			t.Fatalf("Generate(%q): length %d, want %d", in, len(vec), Dimensions)
		}
		for i, v := range vec {
			if v != 0 {
				t.Fatalf("Generate(%q): position %d = %f, want zero vector", in, i, v)
			}
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	text := "Apple iPhone 15 Pro Max smartphone with titanium case"
	a := Generate(text)
	b := Generate(text)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestGenerate_UnitNorm(t *testing.T) {
	vec := Generate("samsung qled tv with quantum hdr")
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-9 {
		t.Errorf("magnitude = %f, want 1.0", math.Sqrt(sum))
	}
}

func TestGenerate_SemanticAnchorsOverlap(t *testing.T) {
	// "iphone" and "smartphone" share the phone anchor band, so their
	// vectors should be closer than "iphone" and an unrelated term.
	iphone := Generate("iphone")
	smartphone := Generate("smartphone phone")
	sofa := Generate("sofa furniture")

	phoneSim := Cosine(iphone, smartphone)
	sofaSim := Cosine(iphone, sofa)
	if phoneSim <= sofaSim {
		t.Errorf("expected phone terms closer than sofa terms: %f vs %f", phoneSim, sofaSim)
	}
}

func TestGenerate_AccumulatorWraps(t *testing.T) {
	// Repeating a semantic keyword keeps bumping its anchor positions;
	// the modulo-1 wrap means values never leave [0, 1) pre-normalization.
	// 4 bumps of 0.3 = 1.2 -> wraps to 0.2. Verify by checking the raw
	// accumulation through a text that repeats "iphone" four times.
	vec := make([]float64, Dimensions)
	for i := 0; i < 4; i++ {
		addToken(vec, "iphone")
	}
	anchor := semanticAnchors["iphone"]
	got := vec[anchor]
	if math.Abs(got-0.2) > 1e-9 {
		// The hash spread may also land on the anchor; allow for its
		// contribution before failing.
		h := 0.0
		if overlapsHashSpread("iphone", anchor) {
			h = 1.0 // sentinel: skip strict check when spreads collide
		}
		if h == 0 {
			t.Errorf("anchor position = %f, want 0.2 after wrap", got)
		}
	}
	for i, v := range vec {
		if v < 0 || v >= 1 {
			t.Errorf("position %d = %f, want [0,1) before normalization", i, v)
		}
	}
}

func overlapsHashSpread(tok string, pos int) bool {
	vec := make([]float64, Dimensions)
	h := textutil.Hash(tok)
	for i := 0; i < hashSpread; i++ {
		vec[(h+i)%Dimensions] = 1
	}
	return vec[pos] == 1
}

func TestCosine(t *testing.T) {
	v := Generate("wireless bluetooth headphones")
	if sim := Cosine(v, v); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("self similarity = %f, want 1.0", sim)
	}

	zero := make([]float64, Dimensions)
	if sim := Cosine(v, zero); sim != 0 {
		t.Errorf("zero-vector similarity = %f, want 0", sim)
	}
	if sim := Cosine(nil, v); sim != 0 {
		t.Errorf("nil similarity = %f, want 0", sim)
	}
	if sim := Cosine(v[:10], v); sim != 0 {
		t.Errorf("mismatched-length similarity = %f, want 0", sim)
	}
}
