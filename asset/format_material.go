package asset

import (
	"fmt"
	"strconv"
	"strings"
)

// MaterialType distinguishes an opaque material from one requiring blending,
// mirroring Material_Type.
type MaterialType int

const (
	MaterialTypeOpaque MaterialType = iota
	MaterialTypeTransparent
)

// CullMode mirrors Cull_Mode.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace mirrors Front_Face.
type FrontFace int

const (
	FrontFaceClockwise FrontFace = iota
	FrontFaceCounterClockwise
)

// CompareOperation mirrors Compare_Operation.
type CompareOperation int

const (
	CompareNever CompareOperation = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

// StencilOperation mirrors Stencil_Operation.
type StencilOperation int

const (
	StencilKeep StencilOperation = iota
	StencilZero
	StencilReplace
	StencilIncrementAndClamp
	StencilDecrementAndClamp
	StencilInvert
	StencilIncrementAndWrap
	StencilDecrementAndWrap
)

// MaterialPropertyType mirrors the subset of Shader_Data_Type load_material
// actually switches over: scalars and the three float vector widths.
type MaterialPropertyType int

const (
	MaterialPropertyU32 MaterialPropertyType = iota
	MaterialPropertyF32
	MaterialPropertyVector2F
	MaterialPropertyVector3F
	MaterialPropertyVector4F
)

// MaterialProperty is one named shader-uniform override carried by a
// material asset, mirroring Material_Property. IsTextureAsset is set for a
// U32 property whose name ends in "texture" or "cubemap" — its U64Value is
// then a referenced asset's UUID rather than a literal shader constant.
type MaterialProperty struct {
	Name           string
	Type           MaterialPropertyType
	IsTextureAsset bool

	U32Value   uint32
	U64Value   uint64
	F32Value   float32
	VectorValue []float32
}

// MaterialDescriptor is the parsed contents of a .hamaterial file (spec
// §4.4's "material" built-in type), mirroring Material_Descriptor plus the
// Pipeline_State_Settings it embeds. A renderer-facing package turns this
// into a concrete pipeline/bind group via gpu.Core — this package only
// parses the text format.
type MaterialDescriptor struct {
	Version    uint64
	Type       MaterialType
	ShaderUUID UUID

	CullMode  CullMode
	FrontFace FrontFace

	DepthOperation CompareOperation
	DepthTesting   bool
	DepthWriting   bool

	StencilOperation      CompareOperation
	StencilTesting        bool
	StencilPass           StencilOperation
	StencilFail           StencilOperation
	DepthFail             StencilOperation
	StencilCompareMask    uint32
	StencilWriteMask      uint32
	StencilReferenceValue uint32

	Properties []MaterialProperty
}

var cullModeNames = []string{"none", "front", "back"}
var frontFaceNames = []string{"clockwise", "counter_clockwise"}
var compareOpNames = []string{"never", "less", "equal", "less_or_equal", "greater", "not_equal", "greater_or_equal", "always"}
var stencilOpNames = []string{"keep", "zero", "replace", "increment_and_clamp", "decrement_and_clamp", "invert", "increment_and_wrap", "decrement_and_wrap"}

func indexOfName(names []string, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("asset: unrecognized value %q", s)
}

// ParseMaterial parses the text contents of a .hamaterial file, mirroring
// load_material in original_source/Engine/assets/material_importer.cpp.
func ParseMaterial(data string) (*MaterialDescriptor, error) {
	t := newTextScanner(data)
	desc := &MaterialDescriptor{}

	var err error
	if desc.Version, err = t.u64("version"); err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}

	typeStr, err := t.value("type")
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	if typeStr == "opaque" {
		desc.Type = MaterialTypeOpaque
	} else {
		desc.Type = MaterialTypeTransparent
	}

	shaderUUID, err := t.u64("shader")
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	desc.ShaderUUID = UUID(shaderUUID)

	cullStr, err := t.value("cull_mode")
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	cullIdx, err := indexOfName(cullModeNames, cullStr)
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: cull_mode: %w", err)
	}
	desc.CullMode = CullMode(cullIdx)

	frontFaceStr, err := t.value("front_face")
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	frontFaceIdx, err := indexOfName(frontFaceNames, frontFaceStr)
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: front_face: %w", err)
	}
	desc.FrontFace = FrontFace(frontFaceIdx)

	depthOpStr, err := t.value("depth_operation")
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	depthOpIdx, err := indexOfName(compareOpNames, depthOpStr)
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: depth_operation: %w", err)
	}
	desc.DepthOperation = CompareOperation(depthOpIdx)

	if desc.DepthTesting, err = t.boolean("depth_testing"); err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	if desc.DepthWriting, err = t.boolean("depth_writing"); err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}

	stencilOpStr, err := t.value("stencil_operation")
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	stencilOpIdx, err := indexOfName(compareOpNames, stencilOpStr)
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: stencil_operation: %w", err)
	}
	desc.StencilOperation = CompareOperation(stencilOpIdx)

	if desc.StencilTesting, err = t.boolean("stencil_testing"); err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}

	desc.StencilPass, err = parseStencilOp(t, "stencil_pass")
	if err != nil {
		return nil, err
	}
	desc.StencilFail, err = parseStencilOp(t, "stencil_fail")
	if err != nil {
		return nil, err
	}
	desc.DepthFail, err = parseStencilOp(t, "depth_fail")
	if err != nil {
		return nil, err
	}

	if desc.StencilCompareMask, err = t.u32("stencil_compare_mask"); err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	if desc.StencilWriteMask, err = t.u32("stencil_write_mask"); err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}
	if desc.StencilReferenceValue, err = t.u32("stencil_reference_value"); err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}

	propertyCount, err := t.u32("property_count")
	if err != nil {
		return nil, fmt.Errorf("asset: parse material: %w", err)
	}

	desc.Properties = make([]MaterialProperty, 0, propertyCount)
	for i := uint32(0); i < propertyCount; i++ {
		prop, err := parseMaterialProperty(t)
		if err != nil {
			return nil, fmt.Errorf("asset: parse material: property %d: %w", i, err)
		}
		desc.Properties = append(desc.Properties, prop)
	}

	return desc, nil
}

func parseStencilOp(t *textScanner, key string) (StencilOperation, error) {
	s, err := t.value(key)
	if err != nil {
		return 0, fmt.Errorf("asset: parse material: %w", err)
	}
	idx, err := indexOfName(stencilOpNames, s)
	if err != nil {
		return 0, fmt.Errorf("asset: parse material: %s: %w", key, err)
	}
	return StencilOperation(idx), nil
}

// parseMaterialProperty parses one "name type value..." property line.
// load_material's is_texture_asset rule: a U32 property whose name ends in
// "texture" or "cubemap" holds an asset UUID rather than a literal value.
func parseMaterialProperty(t *textScanner) (MaterialProperty, error) {
	name, err := t.token()
	if err != nil {
		return MaterialProperty{}, err
	}
	typeTok, err := t.token()
	if err != nil {
		return MaterialProperty{}, err
	}

	isTextureAsset := (strings.HasSuffix(name, "texture") || strings.HasSuffix(name, "cubemap"))

	prop := MaterialProperty{Name: name}

	switch typeTok {
	case "u32":
		prop.Type = MaterialPropertyU32
		v, err := t.token()
		if err != nil {
			return prop, err
		}
		if isTextureAsset {
			prop.IsTextureAsset = true
			u, err := parseUint(v)
			if err != nil {
				return prop, err
			}
			prop.U64Value = u
		} else {
			u, err := parseUint(v)
			if err != nil {
				return prop, err
			}
			prop.U32Value = uint32(u)
		}
	case "f32":
		prop.Type = MaterialPropertyF32
		vs, err := t.floats(1)
		if err != nil {
			return prop, err
		}
		prop.F32Value = vs[0]
	case "vector2f":
		prop.Type = MaterialPropertyVector2F
		vs, err := t.floats(2)
		if err != nil {
			return prop, err
		}
		prop.VectorValue = vs
	case "vector3f":
		prop.Type = MaterialPropertyVector3F
		vs, err := t.floats(3)
		if err != nil {
			return prop, err
		}
		prop.VectorValue = vs
	case "vector4f":
		prop.Type = MaterialPropertyVector4F
		vs, err := t.floats(4)
		if err != nil {
			return prop, err
		}
		prop.VectorValue = vs
	default:
		return prop, fmt.Errorf("unsupported property data type %q", typeTok)
	}

	return prop, nil
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
