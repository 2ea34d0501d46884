//go:build !nogpu

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

// presentShaderWGSL blits a sampled texture to the surface. Compiled once
// per process; contexts fetch the SPIR-V through PresentShader.
const presentShaderWGSL = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32(i32(idx & 1u) * 4 - 1);
    let y = f32(i32(idx >> 1u) * 4 - 1);
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, (1.0 - y) * 0.5);
    return out;
}

@group(0) @binding(0) var src: texture_2d<f32>;
@group(0) @binding(1) var smp: sampler;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(src, smp, in.uv);
}
`

var (
	presentOnce  sync.Once
	presentSPIRV []uint32
	presentErr   error
)

// PresentShader returns the SPIR-V words of the surface-present shader,
// compiling the WGSL source on first use.
func PresentShader() ([]uint32, error) {
	presentOnce.Do(func() {
		presentSPIRV, presentErr = compileWGSL(presentShaderWGSL)
	})
	return presentSPIRV, presentErr
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("wgpu: shader compilation failed: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
