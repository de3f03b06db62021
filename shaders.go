package vox

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// defaultShaderFS carries the default WGSL shader set. New writes these
// into the shader directory when it holds no WGSL sources, so a fresh
// checkout renders without any shader setup.
//
//go:embed shaders/*.wgsl
var defaultShaderFS embed.FS

// materializeShaders seeds dir with the embedded defaults. A directory
// that already contains WGSL sources is left untouched.
func materializeShaders(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vox: create shader dir: %w", err)
	}

	existing, err := filepath.Glob(filepath.Join(dir, "*.wgsl"))
	if err != nil {
		return fmt.Errorf("vox: scan shader dir: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	entries, err := defaultShaderFS.ReadDir("shaders")
	if err != nil {
		return fmt.Errorf("vox: read embedded shaders: %w", err)
	}
	for _, entry := range entries {
		data, err := defaultShaderFS.ReadFile(path.Join("shaders", entry.Name()))
		if err != nil {
			return fmt.Errorf("vox: read embedded shader %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, entry.Name()), data, 0o644); err != nil {
			return fmt.Errorf("vox: write shader %s: %w", entry.Name(), err)
		}
	}
	return nil
}
