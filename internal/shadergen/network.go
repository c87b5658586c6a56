package shadergen

import (
	"fmt"
	"strings"

	"github.com/Faultbox/merfbake/pkg/merf"
)

var channelConsts = [merf.LayerCount + 1]string{
	"NUM_CHANNELS_ZERO", "NUM_CHANNELS_ONE", "NUM_CHANNELS_TWO", "NUM_CHANNELS_THREE",
}

const (
	networkBias2    = "NETWORK_BIAS_2"
	networkWeights2 = "NETWORK_WEIGHTS_2"
)

// networkConsts declares the padded layer widths and bias array lengths.
func networkConsts(net *merf.NetworkWeights, compact bool) []Decl {
	decls := []Decl{
		Const{Type: "int", Name: "NUM_INPUTS", Value: Int(merf.NetworkInputs)},
		Const{Type: "int", Name: "NUM_POSENC_SCALES", Value: Int(merf.PosEncScales)},
		Const{Type: "int", Name: channelConsts[0], Value: Int(net.Layers[0].PaddedIn())},
	}
	for i := range net.Layers {
		decls = append(decls, Const{Type: "int", Name: channelConsts[i+1], Value: Int(net.Layers[i].PaddedOut())})
	}
	for i := range net.Layers {
		decls = append(decls, Const{Type: "int", Name: biasLenConst(i), Value: Int(net.Layers[i].PaddedOut() / 4)})
	}
	if compact {
		last := &net.Layers[merf.LayerCount-1]
		decls = append(decls,
			Const{Type: "vec4", Name: networkBias2, ArrayLen: last.PaddedOut() / 4,
				Value: Literal(merf.BiasLiterals(last.Bias))},
			Const{Type: "mat4", Name: networkWeights2, ArrayLen: last.PaddedIn() / 4 * last.PaddedOut() / 4,
				Value: Literal(strings.Join(merf.WeightBlockLiterals(last), ",\n    "))},
		)
	}
	return decls
}

// networkFunc builds evaluateNetwork(color, features, viewdir): the
// positional encoding followed by the three dense layers. Weights are read
// from the packed textures with texelFetch; with compact set the output
// layer uses the literal mat4 blocks instead.
func networkFunc(compact bool) Func {
	body := encodeInputs()
	body = append(body, denseLayer(0, "inputs", "hidden1", true)...)
	body = append(body, denseLayer(1, "hidden1", "hidden2", true)...)
	if compact {
		body = append(body, compactLayer("hidden2", "result")...)
		body = append(body, Return{Call{"sigmoid", []Expr{Swizzle{Index{Ident("result"), Int(0)}, "xyz"}}}})
	} else {
		body = append(body, denseLayer(2, "hidden2", "result", false)...)
		body = append(body, Return{Call{"sigmoid", []Expr{
			Call{"vec3", []Expr{
				Index{Ident("result"), Int(0)},
				Index{Ident("result"), Int(1)},
				Index{Ident("result"), Int(2)},
			}},
		}}})
	}
	return Func{
		Ret:  "vec3",
		Name: "evaluateNetwork",
		Params: []Param{
			{"vec3", "color"},
			{"vec4", "features"},
			{"vec3", "viewdir"},
		},
		Body: body,
	}
}

func encodeInputs() []Stmt {
	in := Ident("inputs")
	at := func(i Expr) Expr { return Index{in, i} }
	stmts := []Stmt{
		Var{Type: "float", Name: "inputs", ArrayLen: Ident(channelConsts[0])},
	}
	sources := []Expr{
		Swizzle{Ident("color"), "r"}, Swizzle{Ident("color"), "g"}, Swizzle{Ident("color"), "b"},
		Swizzle{Ident("features"), "r"}, Swizzle{Ident("features"), "g"},
		Swizzle{Ident("features"), "b"}, Swizzle{Ident("features"), "a"},
		Swizzle{Ident("viewdir"), "x"}, Swizzle{Ident("viewdir"), "y"}, Swizzle{Ident("viewdir"), "z"},
	}
	for i, src := range sources {
		stmts = append(stmts, Assign{LHS: at(Int(i)), RHS: src})
	}
	encBase := Int(len(sources))
	// inputs[10 + 3s + a] = sin(2^s * d[a]); the cos block follows.
	slot := Binary{"+", encBase, Binary{"+", Binary{"*", Int(3), Ident("s")}, Ident("a")}}
	arg := Binary{"*", Ident("scale"), Index{Ident("viewdir"), Ident("a")}}
	stmts = append(stmts,
		For{Var: "s", From: Int(0), To: Ident("NUM_POSENC_SCALES"), Body: []Stmt{
			Var{Type: "float", Name: "scale", Init: Call{"exp2", []Expr{Call{"float", []Expr{Ident("s")}}}}},
			For{Var: "a", From: Int(0), To: Int(3), Body: []Stmt{
				Assign{LHS: at(slot), RHS: Call{"sin", []Expr{arg}}},
				Assign{LHS: at(Binary{"+", slot, Binary{"*", Int(3), Ident("NUM_POSENC_SCALES")}}),
					RHS: Call{"cos", []Expr{arg}}},
			}},
		}},
		For{Var: "i", From: Ident("NUM_INPUTS"), To: Ident(channelConsts[0]), Body: []Stmt{
			Assign{LHS: at(Ident("i")), RHS: Float(0)},
		}},
	)
	return stmts
}

// quad gathers prev[j..j+3] into a vec4.
func quad(prev string) Expr {
	p := Ident(prev)
	j := Ident("j")
	return Call{"vec4", []Expr{
		Index{p, j},
		Index{p, Binary{"+", j, Int(1)}},
		Index{p, Binary{"+", j, Int(2)}},
		Index{p, Binary{"+", j, Int(3)}},
	}}
}

// denseLayer emits out = W_layer * prev + b_layer, optionally followed by
// ReLU. Texel (i, j/4) of uWeights{layer} holds the weights of inputs
// j..j+3 into output i.
func denseLayer(layer int, prev, out string, relu bool) []Stmt {
	width := Ident(channelConsts[layer+1])
	o := Index{Ident(out), Ident("i")}
	i := Ident("i")
	stmts := []Stmt{
		Var{Type: "float", Name: out, ArrayLen: width},
		For{Var: "i", From: Int(0), To: width, Body: []Stmt{
			Assign{LHS: o, RHS: Index{Index{Ident(SlotBias(layer)), Binary{"/", i, Int(4)}}, Binary{"%", i, Int(4)}}},
		}},
		For{Var: "j", From: Int(0), To: Ident(channelConsts[layer]), Step: 4, Body: []Stmt{
			Var{Type: "vec4", Name: "x", Init: quad(prev)},
			For{Var: "i", From: Int(0), To: width, Body: []Stmt{
				Assign{LHS: o, Op: "+=", RHS: Call{"dot", []Expr{
					Call{"texelFetch", []Expr{
						Ident(SlotWeights(layer)),
						Call{"ivec2", []Expr{i, Binary{"/", Ident("j"), Int(4)}}},
						Int(0),
					}},
					Ident("x"),
				}}},
			}},
		}},
	}
	if relu {
		stmts = append(stmts, For{Var: "i", From: Int(0), To: width, Body: []Stmt{
			Assign{LHS: o, RHS: Call{"max", []Expr{o, Float(0)}}},
		}})
	}
	return stmts
}

// compactLayer evaluates the output layer from the constant mat4 blocks.
func compactLayer(prev, out string) []Stmt {
	blocks := Binary{"/", Ident(channelConsts[3]), Int(4)}
	o := Index{Ident(out), Ident("i")}
	block := Binary{"+", Binary{"*", Binary{"/", Ident("j"), Int(4)}, blocks}, Ident("i")}
	return []Stmt{
		Var{Type: "vec4", Name: out, ArrayLen: blocks},
		For{Var: "i", From: Int(0), To: blocks, Body: []Stmt{
			Assign{LHS: o, RHS: Index{Ident(networkBias2), Ident("i")}},
		}},
		For{Var: "j", From: Int(0), To: Ident(channelConsts[2]), Step: 4, Body: []Stmt{
			Var{Type: "vec4", Name: "x", Init: quad(prev)},
			For{Var: "i", From: Int(0), To: blocks, Body: []Stmt{
				Assign{LHS: o, Op: "+=", RHS: Binary{"*", Index{Ident(networkWeights2), block}, Ident("x")}},
			}},
		}},
	}
}

func layerSummary(net *merf.NetworkWeights) string {
	parts := make([]string, 0, merf.LayerCount+1)
	parts = append(parts, fmt.Sprint(net.Layers[0].PaddedIn()))
	for i := range net.Layers {
		parts = append(parts, fmt.Sprint(net.Layers[i].PaddedOut()))
	}
	return strings.Join(parts, "-")
}
