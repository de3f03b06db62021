package gpu

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vox/cache"
)

// Shader catalog errors.
var (
	// ErrUnknownShader is returned when a batch names a shader the
	// catalog has never seen.
	ErrUnknownShader = errors.New("gpu: unknown shader")
)

// ShaderKind is the pipeline stage a shader source targets, encoded in
// the file name as <name>.<kind>.wgsl.
type ShaderKind uint8

const (
	ShaderVertex ShaderKind = iota
	ShaderFragment
	ShaderCompute
)

// String returns the file-name suffix of the kind.
func (k ShaderKind) String() string {
	switch k {
	case ShaderVertex:
		return "vs"
	case ShaderFragment:
		return "fs"
	case ShaderCompute:
		return "cs"
	default:
		return "unknown"
	}
}

func shaderKindFromSuffix(s string) (ShaderKind, bool) {
	switch s {
	case "vs":
		return ShaderVertex, true
	case "fs":
		return ShaderFragment, true
	case "cs":
		return ShaderCompute, true
	}
	return 0, false
}

// shaderSource tracks one WGSL source file and its compiled artifact.
type shaderSource struct {
	path     string
	artifact string
	mtime    time.Time

	// failed marks a source whose last compile errored. It is not
	// retried until its mtime moves.
	failed bool
}

// ShaderCatalog watches a directory of WGSL sources, compiles stale ones
// to SPIR-V artifacts, and loads shader modules lazily.
//
// Sources are named <name>.<kind>.wgsl with kind vs, fs, or cs; the
// compiled artifact is <name>.<kind>.spirv in the artifact directory.
// A source is recompiled when its mtime moves past the recorded one or
// the artifact is missing. Every recompile bumps the catalog generation,
// which pipeline owners compare to decide on rebuilds.
type ShaderCatalog struct {
	device hal.Device
	srcDir string
	outDir string

	mu         sync.Mutex
	sources    map[string]*shaderSource // key: "<name>.<kind>"
	generation uint64

	// modules caches lazily created shader modules by artifact path.
	// Evicted modules are destroyed through the cache callback.
	modules *cache.Sharded[string, hal.ShaderModule]
}

// newShaderCatalog creates a catalog over srcDir compiling into outDir.
func newShaderCatalog(device hal.Device, srcDir, outDir string) *ShaderCatalog {
	modules := cache.NewSharded[string, hal.ShaderModule](64, cache.StringHasher)
	modules.OnEvict(func(_ string, m hal.ShaderModule) {
		if m != nil {
			device.DestroyShaderModule(m)
		}
	})
	return &ShaderCatalog{
		device:  device,
		srcDir:  srcDir,
		outDir:  outDir,
		sources: make(map[string]*shaderSource),
		modules: modules,
	}
}

// Rescan walks the source directory and recompiles every stale source.
// Called once per frame; unchanged sources cost one stat each.
func (c *ShaderCatalog) Rescan() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.srcDir)
	if err != nil {
		return fmt.Errorf("read shader dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wgsl") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".wgsl")
		dot := strings.LastIndexByte(base, '.')
		if dot < 0 {
			continue
		}
		if _, ok := shaderKindFromSuffix(base[dot+1:]); !ok {
			continue
		}

		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("stat shader %s: %w", e.Name(), err)
		}

		src, known := c.sources[base]
		if !known {
			src = &shaderSource{
				path:     filepath.Join(c.srcDir, e.Name()),
				artifact: filepath.Join(c.outDir, base+".spirv"),
			}
			c.sources[base] = src
		}

		stale := !known || info.ModTime().After(src.mtime)
		if !stale {
			if src.failed {
				continue
			}
			if _, err := os.Stat(src.artifact); err == nil {
				continue
			}
			// Artifact vanished; rebuild it.
		}

		if err := c.compile(src); err != nil {
			// A broken source is parked until its mtime moves; frames
			// keep running on the previously compiled pipelines.
			src.mtime = info.ModTime()
			src.failed = true
			slogger().Warn("gpu: shader compile failed", "shader", base, "error", err)
			continue
		}
		src.failed = false
		src.mtime = info.ModTime()
		c.generation++
		slogger().Debug("gpu: shader compiled", "shader", base, "generation", c.generation)
	}
	return nil
}

// compile runs one source through naga and writes the SPIR-V artifact.
// Any cached module for the old artifact is dropped.
func (c *ShaderCatalog) compile(src *shaderSource) error {
	wgsl, err := os.ReadFile(src.path)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	spirv, err := naga.Compile(string(wgsl))
	if err != nil {
		return fmt.Errorf("naga: %w", err)
	}
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(src.artifact, spirv, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	c.modules.Delete(src.artifact)
	return nil
}

// Module returns the shader module for a catalog entry, creating it on
// first use. The module stays cached until the source recompiles.
func (c *ShaderCatalog) Module(name string, kind ShaderKind) (hal.ShaderModule, error) {
	key := name + "." + kind.String()

	c.mu.Lock()
	src, ok := c.sources[key]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShader, key)
	}

	if m, ok := c.modules.Get(src.artifact); ok {
		return m, nil
	}

	raw, err := os.ReadFile(src.artifact)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", src.artifact, err)
	}
	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: key,
		Source: hal.ShaderSource{
			SPIRV: spirvWords(raw),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", key, err)
	}
	c.modules.Set(src.artifact, module)
	return module, nil
}

// Generation returns a counter that increments on every recompile.
func (c *ShaderCatalog) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Close destroys every cached module. Safe to call twice.
func (c *ShaderCatalog) Close() {
	c.modules.Clear()
}

// spirvWords converts little-endian SPIR-V bytes to 32-bit words.
func spirvWords(raw []byte) []uint32 {
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = uint32(raw[i*4]) |
			uint32(raw[i*4+1])<<8 |
			uint32(raw[i*4+2])<<16 |
			uint32(raw[i*4+3])<<24
	}
	return words
}
