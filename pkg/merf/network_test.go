package merf

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func matrix(in, out int, f func(j, i int) float64) [][]float64 {
	m := make([][]float64, in)
	for j := range m {
		m[j] = make([]float64, out)
		for i := range m[j] {
			m[j][i] = f(j, i)
		}
	}
	return m
}

func TestPadLayer_Shape(t *testing.T) {
	tests := []struct {
		in, out       int
		wantIn, wantO int
	}{
		{34, 16, 36, 16},
		{5, 3, 8, 4},
		{4, 4, 4, 4},
		{1, 1, 4, 4},
		{16, 3, 16, 4},
	}

	for _, tt := range tests {
		w := matrix(tt.in, tt.out, func(j, i int) float64 { return float64(j*100+i) + 1 })
		b := make([]float64, tt.out)
		for i := range b {
			b[i] = float64(i) + 0.5
		}

		l, err := PadLayer(w, b)
		if err != nil {
			t.Fatalf("%dx%d: PadLayer failed: %v", tt.in, tt.out, err)
		}
		if l.PaddedIn() != tt.wantIn || l.PaddedOut() != tt.wantO {
			t.Errorf("%dx%d: padded to %dx%d, want %dx%d", tt.in, tt.out, l.PaddedIn(), l.PaddedOut(), tt.wantIn, tt.wantO)
		}
		if l.In != tt.in || l.Out != tt.out {
			t.Errorf("%dx%d: unpadded counts %dx%d", tt.in, tt.out, l.In, l.Out)
		}
		for j := range l.Weights {
			for i := range l.Weights[j] {
				inside := j < tt.in && i < tt.out
				if !inside && l.Weights[j][i] != 0 {
					t.Fatalf("%dx%d: padding entry [%d][%d] = %g", tt.in, tt.out, j, i, l.Weights[j][i])
				}
				if inside && l.Weights[j][i] != w[j][i] {
					t.Fatalf("%dx%d: entry [%d][%d] changed", tt.in, tt.out, j, i)
				}
			}
		}
		for i, v := range l.Bias {
			if i < tt.out && v != b[i] {
				t.Errorf("%dx%d: bias[%d] = %g, want %g", tt.in, tt.out, i, v, b[i])
			}
			if i >= tt.out && v != 0 {
				t.Errorf("%dx%d: bias padding [%d] = %g", tt.in, tt.out, i, v)
			}
		}
	}
}

func TestPadLayer_Malformed(t *testing.T) {
	tests := []struct {
		name string
		w    [][]float64
		b    []float64
	}{
		{"empty", nil, nil},
		{"empty row", [][]float64{{}}, nil},
		{"ragged", [][]float64{{1, 2}, {3}}, []float64{0, 0}},
		{"bias mismatch", [][]float64{{1, 2}, {3, 4}}, []float64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PadLayer(tt.w, tt.b); !errors.Is(err, ErrPrecondition) {
				t.Errorf("expected ErrPrecondition, got %v", err)
			}
		})
	}
}

func TestPackLayer_Layout(t *testing.T) {
	w := matrix(8, 4, func(j, i int) float64 { return float64(j*10 + i) })
	l, err := PadLayer(w, make([]float64, 4))
	if err != nil {
		t.Fatalf("PadLayer failed: %v", err)
	}
	if len(l.Packed) != 8*4 {
		t.Fatalf("packed length %d, want 32", len(l.Packed))
	}
	// Texel (j/4)*out + i holds weights[j..j+3][i].
	for j := 0; j < 8; j += 4 {
		for i := 0; i < 4; i++ {
			texel := (j/4)*4 + i
			for c := 0; c < 4; c++ {
				if got, want := l.Packed[texel*4+c], float32(w[j+c][i]); got != want {
					t.Errorf("texel %d[%d] = %g, want %g", texel, c, got, want)
				}
			}
		}
	}
}

func TestForward_PaddingPreservesDotProducts(t *testing.T) {
	in, out := 7, 5
	w := matrix(in, out, func(j, i int) float64 { return math.Sin(float64(j*out+i)) * 0.25 })
	b := []float64{0.1, -0.2, 0.3, -0.4, 0.5}
	x := []float64{0.5, -1, 2, 0.125, -0.75, 1.5, 0.25}

	l, err := PadLayer(w, b)
	if err != nil {
		t.Fatalf("PadLayer failed: %v", err)
	}
	padded := append(append([]float64(nil), x...), 0)
	got := l.Forward(padded)

	for i := 0; i < out; i++ {
		want := b[i]
		for j := 0; j < in; j++ {
			want += float32Round(w[j][i]) * x[j]
		}
		if math.Abs(got[i]-want) > 1e-12 {
			t.Errorf("output %d = %.15f, want %.15f", i, got[i], want)
		}
	}
	for i := out; i < len(got); i++ {
		if got[i] != 0 {
			t.Errorf("padded output %d = %g, want 0", i, got[i])
		}
	}
}

func float32Round(v float64) float64 { return float64(float32(v)) }

func TestBiasLiterals(t *testing.T) {
	got := BiasLiterals([]float64{1, -0.5, 0, 0.25, 3.14159265, 0, 0, 0})
	want := "vec4(1.0000000, -0.5000000, 0.0000000, 0.2500000), vec4(3.1415927, 0.0000000, 0.0000000, 0.0000000)"
	if got != want {
		t.Errorf("BiasLiterals =\n%s\nwant\n%s", got, want)
	}
}

func TestWeightBlockLiterals(t *testing.T) {
	w := matrix(4, 8, func(j, i int) float64 { return float64(j*8 + i) })
	l, err := PadLayer(w, make([]float64, 8))
	if err != nil {
		t.Fatalf("PadLayer failed: %v", err)
	}
	blocks := WeightBlockLiterals(&l)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	// Column jj of block (0, i0) lists weights[jj][i0..i0+3].
	want := "mat4(4.0000000, 5.0000000, 6.0000000, 7.0000000, 12.0000000"
	if !strings.HasPrefix(blocks[1], want) {
		t.Errorf("block 1 = %s, want prefix %s", blocks[1], want)
	}
	if strings.Count(blocks[0], ",") != 15 {
		t.Errorf("block 0 has %d separators, want 15", strings.Count(blocks[0], ","))
	}
}

func testNetworkParams(hidden int) *SceneParameters {
	p := testParams()
	p.Weights0 = matrix(NetworkInputs, hidden, func(int, int) float64 { return 0 })
	p.Bias0 = make([]float64, hidden)
	p.Weights1 = matrix(hidden, hidden, func(int, int) float64 { return 0 })
	p.Bias1 = make([]float64, hidden)
	p.Weights2 = matrix(hidden, 3, func(int, int) float64 { return 0 })
	p.Bias2 = make([]float64, 3)
	return p
}

func TestPackNetwork(t *testing.T) {
	p := testNetworkParams(16)
	n, err := PackNetwork(p)
	if err != nil {
		t.Fatalf("PackNetwork failed: %v", err)
	}
	if n.Layers[0].PaddedIn() != 36 || n.Layers[2].PaddedOut() != 4 {
		t.Errorf("padded shapes %d in, %d out", n.Layers[0].PaddedIn(), n.Layers[2].PaddedOut())
	}

	// Zero weights and biases give sigmoid(0) on every channel.
	rgb := n.Evaluate(mgl64.Vec3{0.2, 0.4, 0.6}, mgl64.Vec4{1, 2, 3, 4}, mgl64.Vec3{0, 0, 1})
	for c := 0; c < 3; c++ {
		if math.Abs(rgb[c]-0.5) > 1e-12 {
			t.Errorf("channel %d = %g, want 0.5", c, rgb[c])
		}
	}
}

func TestPackNetwork_Chain(t *testing.T) {
	p := testNetworkParams(16)
	p.Weights1 = matrix(12, 16, func(int, int) float64 { return 0 })
	if _, err := PackNetwork(p); !errors.Is(err, ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for broken chain, got %v", err)
	}

	p = testNetworkParams(16)
	p.Weights0 = matrix(30, 16, func(int, int) float64 { return 0 })
	if _, err := PackNetwork(p); !errors.Is(err, ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for wrong input count, got %v", err)
	}
}

func TestNetworkEvaluate_Bias(t *testing.T) {
	p := testNetworkParams(4)
	p.Bias0 = []float64{1, -1, 0, 0}
	// Output r follows hidden unit 0 through layers 1 and 2; the negative
	// unit is clipped by the ReLU.
	p.Weights1[0][0] = 2
	p.Weights1[1][1] = 5
	p.Weights2[0][0] = 1
	p.Weights2[1][1] = 1
	n, err := PackNetwork(p)
	if err != nil {
		t.Fatalf("PackNetwork failed: %v", err)
	}
	rgb := n.Evaluate(mgl64.Vec3{}, mgl64.Vec4{}, mgl64.Vec3{1, 0, 0})
	if math.Abs(rgb[0]-Sigmoid(2)) > 1e-9 {
		t.Errorf("r = %g, want %g", rgb[0], Sigmoid(2))
	}
	if math.Abs(rgb[1]-0.5) > 1e-9 {
		t.Errorf("g = %g, want 0.5", rgb[1])
	}
}

func TestEncodeInput(t *testing.T) {
	dir := mgl64.Vec3{0.1, 0.2, 0.3}
	in := EncodeInput(mgl64.Vec3{1, 2, 3}, mgl64.Vec4{4, 5, 6, 7}, dir)
	if len(in) != 36 {
		t.Fatalf("input length %d, want 36", len(in))
	}
	for k, want := range []float64{1, 2, 3, 4, 5, 6, 7, 0.1, 0.2, 0.3} {
		if in[k] != want {
			t.Errorf("in[%d] = %g, want %g", k, in[k], want)
		}
	}
	// sin block, scale 8, y component
	if got, want := in[10+3*3+1], math.Sin(8*0.2); got != want {
		t.Errorf("sin(8*dir.y) = %g, want %g", got, want)
	}
	// cos block, scale 1, x component
	if got, want := in[22], math.Cos(0.1); got != want {
		t.Errorf("cos(dir.x) = %g, want %g", got, want)
	}
	if in[34] != 0 || in[35] != 0 {
		t.Error("padding inputs must be zero")
	}
}
