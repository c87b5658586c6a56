package shadergen

import "testing"

func TestExprPrinting(t *testing.T) {
	tests := []struct {
		e    Expr
		want string
	}{
		{Float(1), "1.0"},
		{Float(-14), "-14.0"},
		{Float(0.25), "0.25"},
		{Int(36), "36"},
		{Binary{"*", Ident("a"), Float(2)}, "(a * 2.0)"},
		{Index{Ident("x"), Binary{"/", Ident("i"), Int(4)}}, "x[(i / 4)]"},
		{Swizzle{Call{"f", []Expr{Ident("v")}}, "xyz"}, "f(v).xyz"},
	}
	for _, tt := range tests {
		if got := tt.e.expr(); got != tt.want {
			t.Errorf("expr = %q, want %q", got, tt.want)
		}
	}
}

func TestProgramPrinting(t *testing.T) {
	p := &Program{Version: "410 core", Decls: []Decl{
		Define{Name: "FLAG"},
		Const{Type: "float", Name: "ARR", ArrayLen: 2, Value: Literal("1.0, 2.0")},
		IfDef{Name: "FLAG", Decls: []Decl{Uniform{Type: "vec4", Name: "uB", ArrayLen: "N"}}},
		Func{Ret: "float", Name: "f", Params: []Param{{"float", "x"}}, Body: []Stmt{
			Var{Type: "float", Name: "acc", Init: Float(0)},
			For{Var: "j", From: Int(0), To: Int(8), Step: 4, Body: []Stmt{
				Assign{LHS: Ident("acc"), Op: "+=", RHS: Ident("x")},
			}},
			Return{Ident("acc")},
		}},
	}}
	want := `#version 410 core
#define FLAG
const float ARR[2] = float[2](1.0, 2.0);
#ifdef FLAG
uniform vec4 uB[N];
#endif
float f(float x) {
    float acc = 0.0;
    for (int j = 0; j < 8; j += 4) {
        acc += x;
    }
    return acc;
}

`
	if got := p.String(); got != want {
		t.Errorf("program =\n%s\nwant\n%s", got, want)
	}
}
