package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed strip.wgsl
var StripWGSL string

//go:embed blit.wgsl
var BlitWGSL string

// Entry points in StripWGSL and BlitWGSL.
const (
	VSDirect      = "vs_direct"
	FSSingle      = "fs_single"
	VSDeferred    = "vs_deferred"
	FSProgressive = "fs_progressive"
	VSBlit        = "vs_blit"
	FSBlit        = "fs_blit"
)

// Sources lists every embedded shader by label.
func Sources() map[string]string {
	return map[string]string{
		"strip": StripWGSL,
		"blit":  BlitWGSL,
	}
}

// CompileSPIRV compiles WGSL to SPIR-V words. The wgpu backend consumes WGSL
// directly; this is used to check shaders offline.
func CompileSPIRV(label, wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("shaders: compile %s: %w", label, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shaders: compile %s: SPIR-V length %d is not word aligned", label, len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Validate compiles every embedded shader and returns the first failure.
func Validate() error {
	for _, label := range []string{"strip", "blit"} {
		if _, err := CompileSPIRV(label, Sources()[label]); err != nil {
			return err
		}
	}
	return nil
}
