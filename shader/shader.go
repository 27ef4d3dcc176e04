// Package shader turns shader sources into CompiledShader values ready for
// reflection and module creation. WGSL is compiled with naga; SPIR-V
// binaries are loaded as they are.
package shader

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	nspirv "github.com/gogpu/naga/spirv"
	"github.com/pkg/errors"

	"github.com/celer/vkbind/spirv"
)

// CompiledShader is one entry point of a compiled module.
type CompiledShader struct {
	Stage      spirv.Stage
	EntryPoint string
	Words      []uint32
	// Source is the path or name the shader was built from
	Source string
}

// Source names a shader file and the entry point to use from it.
type Source struct {
	Path  string
	Entry string
}

// CompilationError reports a source that could not be turned into SPIR-V.
type CompilationError struct {
	Source string
	Err    error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Source, e.Err)
}

func (e *CompilationError) Cause() error  { return e.Err }
func (e *CompilationError) Unwrap() error { return e.Err }

// Options used for every WGSL compile. Debug keeps OpName and
// OpMemberName, which reflection needs for resource and field names.
var compileOptions = naga.CompileOptions{
	SPIRVVersion: nspirv.Version1_3,
	Debug:        true,
	Validate:     true,
}

// Compile loads path and selects entry from it. Files ending in .wgsl are
// compiled, anything else is read as a SPIR-V binary. A stage tag in the
// file name (shader.vert.spv, shader.frag.wgsl, shader.geom) must agree
// with the entry point's execution model.
func Compile(path, entry string) (CompiledShader, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return CompiledShader{}, &CompilationError{Source: path, Err: err}
	}
	if strings.EqualFold(filepath.Ext(path), ".wgsl") {
		return CompileSource(path, string(data), entry)
	}
	return LoadSPIRV(path, data, entry)
}

// CompileSource compiles WGSL source text. name is used for stage tags and
// error messages.
func CompileSource(name, src, entry string) (CompiledShader, error) {
	bin, err := naga.CompileWithOptions(src, compileOptions)
	if err != nil {
		return CompiledShader{}, &CompilationError{Source: name, Err: err}
	}
	return LoadSPIRV(name, bin, entry)
}

// LoadSPIRV wraps an already compiled little-endian SPIR-V binary.
func LoadSPIRV(name string, data []byte, entry string) (CompiledShader, error) {
	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		return CompiledShader{}, &CompilationError{Source: name, Err: err}
	}
	return fromWords(name, words, entry)
}

// CompileChain compiles every source in order, stopping at the first
// failure.
func CompileChain(sources []Source) ([]CompiledShader, error) {
	ret := make([]CompiledShader, 0, len(sources))
	for _, s := range sources {
		cs, err := Compile(s.Path, s.Entry)
		if err != nil {
			return nil, err
		}
		ret = append(ret, cs)
	}
	return ret, nil
}

func fromWords(name string, words []uint32, entry string) (CompiledShader, error) {
	eps, err := spirv.EntryPoints(words)
	if err != nil {
		return CompiledShader{}, &CompilationError{Source: name, Err: err}
	}
	tag, tagged := StageTag(name)

	var chosen *spirv.EntryPoint
	for i := range eps {
		ep := &eps[i]
		if entry != "" {
			if ep.Name == entry {
				chosen = ep
				break
			}
			continue
		}
		if !tagged {
			chosen = ep
			break
		}
		if s, err := spirv.StageFromExecutionModel(ep.Model); err == nil && s == tag {
			chosen = ep
			break
		}
	}
	if chosen == nil {
		if entry != "" {
			return CompiledShader{}, &CompilationError{Source: name, Err: errors.Errorf("no entry point named %q", entry)}
		}
		return CompiledShader{}, &CompilationError{Source: name, Err: errors.New("no usable entry point")}
	}

	stage, err := spirv.StageFromExecutionModel(chosen.Model)
	if err != nil {
		return CompiledShader{}, errors.Wrapf(err, "entry point %q of %s", chosen.Name, name)
	}
	if tagged && stage != tag {
		return CompiledShader{}, &CompilationError{
			Source: name,
			Err:    errors.Errorf("entry point %q is a %s shader but the file is tagged %s", chosen.Name, stage, tag),
		}
	}
	return CompiledShader{Stage: stage, EntryPoint: chosen.Name, Words: words, Source: name}, nil
}

// StageTag extracts a stage from a file name such as "lit.frag.spv" or
// "lit.vert".
func StageTag(name string) (spirv.Stage, bool) {
	parts := strings.Split(filepath.Base(name), ".")
	for i := len(parts) - 1; i >= 1 && i >= len(parts)-2; i-- {
		if s, ok := spirv.ParseStage(parts[i]); ok {
			return s, true
		}
	}
	return 0, false
}

// Bytes returns the shader's words as a little-endian byte stream.
func (c CompiledShader) Bytes() []byte {
	out := make([]byte, len(c.Words)*4)
	for i, w := range c.Words {
		out[i*4] = byte(w)
		out[i*4+1] = byte(w >> 8)
		out[i*4+2] = byte(w >> 16)
		out[i*4+3] = byte(w >> 24)
	}
	return out
}
