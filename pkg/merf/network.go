package merf

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Network topology.
const (
	LayerCount   = 3
	PosEncScales = 4
	// NetworkInputs is color(3) + features(4) + direction(3) + sin and cos
	// of the direction at PosEncScales octaves.
	NetworkInputs = 3 + 4 + 3 + 2*3*PosEncScales
)

// Layer is one fully connected layer, zero-padded to multiples of 4.
type Layer struct {
	In  int // unpadded input count
	Out int // unpadded output count

	Weights [][]float64 // [PaddedIn][PaddedOut]
	Bias    []float64   // [PaddedOut]

	// Packed holds PaddedIn*PaddedOut floats as texels of 4: texel
	// (j/4)*PaddedOut+i carries Weights[j..j+3][i].
	Packed []float32
}

// PaddedIn returns the padded input count.
func (l *Layer) PaddedIn() int { return len(l.Weights) }

// PaddedOut returns the padded output count.
func (l *Layer) PaddedOut() int { return len(l.Bias) }

// NetworkWeights is the packed view-dependence network.
type NetworkWeights struct {
	Layers [LayerCount]Layer
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}

// PadLayer validates a weight matrix stored [in][out] with its bias and
// returns the layer zero-padded to multiples of 4 in both dimensions.
// The packed buffer is filled as well.
func PadLayer(weights [][]float64, bias []float64) (Layer, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return Layer{}, fmt.Errorf("%w: empty weight matrix", ErrPrecondition)
	}
	in, out := len(weights), len(weights[0])
	for j, row := range weights {
		if len(row) != out {
			return Layer{}, fmt.Errorf("%w: weight row %d has %d entries, expected %d",
				ErrPrecondition, j, len(row), out)
		}
	}
	if len(bias) != out {
		return Layer{}, fmt.Errorf("%w: bias has %d entries, weights have %d outputs",
			ErrPrecondition, len(bias), out)
	}

	l := Layer{In: in, Out: out}
	pin, pout := roundUp4(in), roundUp4(out)
	l.Weights = make([][]float64, pin)
	for j := range l.Weights {
		l.Weights[j] = make([]float64, pout)
		if j < in {
			copy(l.Weights[j], weights[j])
		}
	}
	l.Bias = make([]float64, pout)
	copy(l.Bias, bias)
	l.Packed = PackLayer(&l)
	return l, nil
}

// PackLayer lays out the padded weights so 4 consecutive inputs of one
// output are contiguous.
func PackLayer(l *Layer) []float32 {
	pin, pout := l.PaddedIn(), l.PaddedOut()
	packed := make([]float32, pin*pout)
	for j := 0; j < pin; j += 4 {
		for i := 0; i < pout; i++ {
			texel := (j/4)*pout + i
			for c := 0; c < 4; c++ {
				packed[texel*4+c] = float32(l.Weights[j+c][i])
			}
		}
	}
	return packed
}

// PackNetwork pads and packs the three layers of the scene's network and
// checks that they chain: the first layer takes NetworkInputs values, each
// layer feeds the next and the last produces at least 3 outputs.
func PackNetwork(p *SceneParameters) (*NetworkWeights, error) {
	weights := [LayerCount][][]float64{p.Weights0, p.Weights1, p.Weights2}
	biases := [LayerCount][]float64{p.Bias0, p.Bias1, p.Bias2}

	var n NetworkWeights
	for i := range n.Layers {
		l, err := PadLayer(weights[i], biases[i])
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		n.Layers[i] = l
	}
	if in := n.Layers[0].In; in != NetworkInputs {
		return nil, fmt.Errorf("%w: layer 0 takes %d inputs, expected %d", ErrPrecondition, in, NetworkInputs)
	}
	for i := 1; i < LayerCount; i++ {
		if n.Layers[i].In != n.Layers[i-1].Out {
			return nil, fmt.Errorf("%w: layer %d takes %d inputs, layer %d produces %d",
				ErrPrecondition, i, n.Layers[i].In, i-1, n.Layers[i-1].Out)
		}
	}
	if out := n.Layers[LayerCount-1].Out; out < 3 {
		return nil, fmt.Errorf("%w: output layer produces %d values, expected at least 3", ErrPrecondition, out)
	}
	return &n, nil
}

// BiasLiterals renders a padded bias vector as comma separated vec4
// literals with 7 decimals.
func BiasLiterals(bias []float64) string {
	var sb strings.Builder
	for i := 0; i < len(bias); i += 4 {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("vec4(")
		for c := 0; c < 4; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			v := 0.0
			if i+c < len(bias) {
				v = bias[i+c]
			}
			sb.WriteString(formatLiteral(v))
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// WeightBlockLiterals renders every 4x4 weight block of a padded layer as
// a column-major mat4 literal, so that mat4 * inputs[j..j+3] yields the
// contribution to outputs[i..i+3]. Blocks are ordered by input block,
// then output block.
func WeightBlockLiterals(l *Layer) []string {
	var blocks []string
	for j := 0; j < l.PaddedIn(); j += 4 {
		for i := 0; i < l.PaddedOut(); i += 4 {
			var sb strings.Builder
			sb.WriteString("mat4(")
			for jj := 0; jj < 4; jj++ {
				for ii := 0; ii < 4; ii++ {
					if jj+ii > 0 {
						sb.WriteString(", ")
					}
					sb.WriteString(formatLiteral(l.Weights[j+jj][i+ii]))
				}
			}
			sb.WriteString(")")
			blocks = append(blocks, sb.String())
		}
	}
	return blocks
}

func formatLiteral(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}

// EncodeInput assembles the network input: color, features, the view
// direction and its sine and cosine at PosEncScales octaves. The result
// is zero-padded to a multiple of 4.
func EncodeInput(color mgl64.Vec3, features mgl64.Vec4, dir mgl64.Vec3) []float64 {
	in := make([]float64, 0, roundUp4(NetworkInputs))
	in = append(in, color[:]...)
	in = append(in, features[:]...)
	in = append(in, dir[:]...)
	for _, fn := range []func(float64) float64{math.Sin, math.Cos} {
		for s := 0; s < PosEncScales; s++ {
			scale := math.Exp2(float64(s))
			for a := 0; a < 3; a++ {
				in = append(in, fn(scale*dir[a]))
			}
		}
	}
	for len(in) < cap(in) {
		in = append(in, 0)
	}
	return in
}

// Forward evaluates one layer from its packed buffer without activation.
// input must hold PaddedIn values.
func (l *Layer) Forward(input []float64) []float64 {
	pout := l.PaddedOut()
	out := append([]float64(nil), l.Bias...)
	for j := 0; j+3 < len(input) && j < l.PaddedIn(); j += 4 {
		for i := 0; i < pout; i++ {
			t := ((j/4)*pout + i) * 4
			w := l.Packed[t : t+4 : t+4]
			out[i] += float64(w[0])*input[j] + float64(w[1])*input[j+1] +
				float64(w[2])*input[j+2] + float64(w[3])*input[j+3]
		}
	}
	return out
}

// Evaluate runs the network: ReLU after the first two layers and a
// sigmoid on the first three outputs of the last.
func (n *NetworkWeights) Evaluate(color mgl64.Vec3, features mgl64.Vec4, dir mgl64.Vec3) mgl64.Vec3 {
	x := EncodeInput(color, features, dir)
	for i := range n.Layers {
		x = n.Layers[i].Forward(x)
		if i < LayerCount-1 {
			for k := range x {
				x[k] = math.Max(x[k], 0)
			}
		}
	}
	return mgl64.Vec3{Sigmoid(x[0]), Sigmoid(x[1]), Sigmoid(x[2])}
}
