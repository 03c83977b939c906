package vector

import "testing"

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit", []float32{0, 0}, []float32{1, 1}, 2},
		{"negative", []float32{-1, 0}, []float32{2, 4}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SquaredL2(tt.a, tt.b); got != tt.want {
				t.Errorf("SquaredL2 = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectNearest(t *testing.T) {
	got := selectNearest([]float32{3, 1, 1, 0, 2}, 3)
	want := []Neighbor{{3, 0}, {1, 1}, {2, 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if r := selectNearest(nil, 3); len(r) != 0 {
		t.Errorf("empty input should yield nothing, got %v", r)
	}
}

func TestFloat32Codec(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3e10}
	out := DecodeFloat32s(EncodeFloat32s(in))
	if len(out) != len(in) {
		t.Fatalf("len=%d", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}
