// Package shaders provides the fixed GLSL parts of the ray-march kernel.
package shaders

import _ "embed"

// RaymarchLibrary holds the contraction, quadrant and occupancy helpers.
//
//go:embed raymarch_lib.glsl
var RaymarchLibrary string

// RaymarchMain is the fragment entry point.
//
//go:embed raymarch_main.glsl
var RaymarchMain string
