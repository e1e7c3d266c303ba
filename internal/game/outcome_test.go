package game

import (
	"bytes"
	"testing"
)

func TestResultFor(t *testing.T) {
	tests := []struct {
		number int
		color  Color
		size   Size
	}{
		{0, ColorRedViolet, SizeSmall},
		{1, ColorGreen, SizeSmall},
		{2, ColorRed, SizeSmall},
		{3, ColorGreen, SizeSmall},
		{4, ColorRed, SizeSmall},
		{5, ColorGreenViolet, SizeBig},
		{6, ColorRed, SizeBig},
		{7, ColorGreen, SizeBig},
		{8, ColorRed, SizeBig},
		{9, ColorGreen, SizeBig},
	}

	for _, tt := range tests {
		got := ResultFor(tt.number)
		if got.Number != tt.number || got.Color != tt.color || got.Size != tt.size {
			t.Errorf("ResultFor(%d) = %+v, want {%d %s %s}", tt.number, got, tt.number, tt.color, tt.size)
		}
	}
}

func TestCryptoOutcome_Distribution(t *testing.T) {
	const samples = 20000
	var counts [10]int

	src := CryptoOutcome{}
	for i := 0; i < samples; i++ {
		res, err := src.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if res.Number < 0 || res.Number > 9 {
			t.Fatalf("number %d out of range", res.Number)
		}
		if res != ResultFor(res.Number) {
			t.Fatalf("derived fields inconsistent: %+v", res)
		}
		counts[res.Number]++
	}

	// Expected 2000 per digit; allow a wide band to keep the test stable.
	for n, c := range counts {
		if c < 1600 || c > 2400 {
			t.Errorf("digit %d drawn %d times out of %d", n, c, samples)
		}
	}
}

func TestCryptoOutcome_ReaderFailure(t *testing.T) {
	src := CryptoOutcome{Reader: bytes.NewReader(nil)}
	if _, err := src.Generate(); err == nil {
		t.Error("Generate() should fail when the entropy source is exhausted")
	}
}
