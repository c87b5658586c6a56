// Package shadergen generates the GLSL ray marching kernel for a baked
// scene. The program is assembled from typed declarations and printed
// once; the fixed library and main body are embedded verbatim.
package shadergen

import (
	"fmt"

	"github.com/Faultbox/merfbake/internal/shadergen/shaders"
	"github.com/Faultbox/merfbake/pkg/merf"
)

// GLSLVersion is the version line of every generated shader.
const GLSLVersion = "410 core"

// Vertex stage interface names.
const (
	AttribPosition = "aPosition"
	VaryingDir     = "vDirection"
	FragOutput     = "fragColor"
)

// Options selects the kernel variant.
type Options struct {
	UseTriplane             bool
	UseSparseGrid           bool
	LargerStepsWhenOccluded bool
	// CompactOutputLayer bakes the output layer as constant mat4 blocks
	// instead of reading it from its weight texture.
	CompactOutputLayer bool
}

// DefaultOptions enables every representation the scene carries.
func DefaultOptions(p *merf.SceneParameters) Options {
	return Options{
		UseTriplane:   p.UsesTriplane(),
		UseSparseGrid: p.UsesSparseGrid(),
	}
}

// Kernel is a generated vertex/fragment shader pair.
type Kernel struct {
	Vertex   string
	Fragment string
}

// Generate builds the kernel for a scene and its packed network.
func Generate(p *merf.SceneParameters, net *merf.NetworkWeights, opts Options) (*Kernel, error) {
	if net == nil {
		return nil, fmt.Errorf("%w: missing network weights", merf.ErrPrecondition)
	}
	if !opts.UseTriplane && !opts.UseSparseGrid {
		return nil, fmt.Errorf("%w: kernel needs triplanes or a sparse grid", merf.ErrPrecondition)
	}
	if opts.UseTriplane && !p.UsesTriplane() {
		return nil, fmt.Errorf("%w: triplanes requested but scene has none", merf.ErrPrecondition)
	}
	if opts.UseSparseGrid && !p.UsesSparseGrid() {
		return nil, fmt.Errorf("%w: sparse grid requested but scene has none", merf.ErrPrecondition)
	}
	return &Kernel{
		Vertex:   VertexProgram().String(),
		Fragment: FragmentProgram(net, opts).String(),
	}, nil
}

// FragmentProgram assembles the ray marching fragment shader.
func FragmentProgram(net *merf.NetworkWeights, opts Options) *Program {
	decls := []Decl{Comment("network " + layerSummary(net))}
	for _, f := range []struct {
		name string
		on   bool
	}{
		{FeatureTriplane, opts.UseTriplane},
		{FeatureSparseGrid, opts.UseSparseGrid},
		{FeatureLargeSteps, opts.LargerStepsWhenOccluded},
	} {
		if f.on {
			decls = append(decls, Define{Name: f.name})
		}
	}

	decls = append(decls,
		Const{Type: "float", Name: "DENSITY_MIN", Value: Float(merf.DensityMin)},
		Const{Type: "float", Name: "DENSITY_MAX", Value: Float(merf.DensityMax)},
		Const{Type: "float", Name: "FEATURE_MIN", Value: Float(merf.FeatureMin)},
		Const{Type: "float", Name: "FEATURE_MAX", Value: Float(merf.FeatureMax)},
		Const{Type: "float", Name: "ALPHA_EPSILON", Value: Binary{"/", Float(0.5), Float(255)}},
	)
	decls = append(decls, networkConsts(net, opts.CompactOutputLayer)...)
	decls = append(decls,
		InOut{Qualifier: "in", Type: "vec3", Name: VaryingDir},
		InOut{Qualifier: "out", Type: "vec4", Name: FragOutput},
	)
	decls = append(decls, uniformDecls(StageFragment)...)
	decls = append(decls,
		Verbatim(shaders.RaymarchLibrary),
		networkFunc(opts.CompactOutputLayer),
		Verbatim(shaders.RaymarchMain),
	)
	return &Program{Version: GLSLVersion, Decls: decls}
}

// VertexProgram builds the full-screen pass that unprojects each corner
// into a world-space view direction.
func VertexProgram() *Program {
	pos := Ident(AttribPosition)
	unproject := func(name string, depth float64) []Stmt {
		return []Stmt{
			Var{Type: "vec4", Name: name, Init: Binary{"*", Ident(SlotInvViewProj),
				Call{"vec4", []Expr{pos, Float(depth), Float(1)}}}},
			Assign{LHS: Ident(name), Op: "/=", RHS: Swizzle{Ident(name), "w"}},
		}
	}
	body := unproject("farPoint", 1)
	body = append(body, unproject("nearPoint", -1)...)
	body = append(body,
		Assign{LHS: Ident(VaryingDir), RHS: Binary{"-", Swizzle{Ident("farPoint"), "xyz"}, Swizzle{Ident("nearPoint"), "xyz"}}},
		Assign{LHS: Ident("gl_Position"), RHS: Call{"vec4", []Expr{pos, Float(0), Float(1)}}},
	)

	decls := []Decl{
		InOut{Qualifier: "layout(location = 0) in", Type: "vec2", Name: AttribPosition},
		InOut{Qualifier: "out", Type: "vec3", Name: VaryingDir},
	}
	decls = append(decls, uniformDecls(StageVertex)...)
	decls = append(decls, Func{Ret: "void", Name: "main", Body: body})
	return &Program{Version: GLSLVersion, Decls: decls}
}

// uniformDecls declares every slot of a stage, grouping optional slots
// under their feature guard in table order.
func uniformDecls(stage Stage) []Decl {
	var decls []Decl
	guarded := map[string][]Decl{}
	var order []string
	for _, s := range Slots {
		if s.Stage != stage {
			continue
		}
		u := Uniform{Type: s.Kind.GLSL(), Name: s.Name, ArrayLen: s.ArrayLen}
		if s.Feature == "" {
			decls = append(decls, u)
			continue
		}
		if _, ok := guarded[s.Feature]; !ok {
			order = append(order, s.Feature)
		}
		guarded[s.Feature] = append(guarded[s.Feature], u)
	}
	for _, f := range order {
		decls = append(decls, IfDef{Name: f, Decls: guarded[f]})
	}
	return decls
}
