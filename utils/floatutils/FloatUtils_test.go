package floatutils

import (
	"math"
	"testing"
)

func TestMaxSliceTies(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 3, 2, 3})
	if max != 3 {
		t.Errorf("max: want(3) have(%v)", max)
	}
	if len(indices) != 2 || indices[0] != 1 || indices[1] != 3 {
		t.Errorf("indices: want([1 3]) have(%v)", indices)
	}
	if a := ArgMax([]float64{0.5, 0.5}); a != 0 {
		t.Errorf("argmax: ties should resolve to the lowest index, have(%v)", a)
	}
}

func TestSignAndClip(t *testing.T) {
	for _, c := range []struct{ in, want float64 }{
		{4, 1}, {-0.3, -1}, {0, 0},
	} {
		if s := Sign(c.in); s != c.want {
			t.Errorf("sign(%v): want(%v) have(%v)", c.in, c.want, s)
		}
	}
	if c := Clip(5, -1, 1); c != 1 {
		t.Errorf("clip: want(1) have(%v)", c)
	}
}

func TestMean(t *testing.T) {
	if m := Mean([]float64{1, 2, 3}); m != 2 {
		t.Errorf("mean: want(2) have(%v)", m)
	}
	if m := Mean(nil); !math.IsNaN(m) {
		t.Errorf("mean of empty slice: want(NaN) have(%v)", m)
	}
}
