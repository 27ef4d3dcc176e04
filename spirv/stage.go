package spirv

import (
	"strings"
)

// Stage is a pipeline stage a shader entry point runs in. Stages are
// totally ordered: Vertex < Fragment < Geometry.
type Stage int

const (
	Vertex Stage = iota
	Fragment
	Geometry
)

// StageFlags is a set of stages. Bit values match VkShaderStageFlagBits.
type StageFlags uint32

const (
	VertexBit   StageFlags = 0x01
	GeometryBit StageFlags = 0x08
	FragmentBit StageFlags = 0x10
)

// Stages lists every supported stage in order.
var Stages = []Stage{Vertex, Fragment, Geometry}

func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case Fragment:
		return "fragment"
	case Geometry:
		return "geometry"
	}
	return "unknown"
}

// Flags returns the single-bit flag set for this stage.
func (s Stage) Flags() StageFlags {
	switch s {
	case Vertex:
		return VertexBit
	case Fragment:
		return FragmentBit
	case Geometry:
		return GeometryBit
	}
	return 0
}

// ParseStage maps a file-extension style stage tag ("vert", "frag", "geom")
// to a Stage.
func ParseStage(tag string) (Stage, bool) {
	switch strings.ToLower(strings.TrimPrefix(tag, ".")) {
	case "vert":
		return Vertex, true
	case "frag":
		return Fragment, true
	case "geom":
		return Geometry, true
	}
	return 0, false
}

// StageFromExecutionModel converts a SPIR-V execution model. Only vertex,
// geometry and fragment are supported.
func StageFromExecutionModel(model uint32) (Stage, error) {
	switch model {
	case execVertex:
		return Vertex, nil
	case execGeometry:
		return Geometry, nil
	case execFragment:
		return Fragment, nil
	}
	return 0, reflectErrorf(0, "unsupported execution model %d", model)
}

// Has reports whether every stage in o is also in f.
func (f StageFlags) Has(o StageFlags) bool {
	return f&o == o
}

// Stages returns the stages in f in stage order.
func (f StageFlags) Stages() []Stage {
	ret := make([]Stage, 0, len(Stages))
	for _, s := range Stages {
		if f.Has(s.Flags()) {
			ret = append(ret, s)
		}
	}
	return ret
}

func (f StageFlags) String() string {
	if f == 0 {
		return "none"
	}
	names := make([]string, 0, 3)
	for _, s := range f.Stages() {
		names = append(names, s.String())
	}
	return strings.Join(names, "|")
}
