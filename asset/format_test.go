package asset

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMaterial(t *testing.T) {
	src := `version 1
type opaque
shader 42
cull_mode back
front_face counter_clockwise
depth_operation less
depth_testing true
depth_writing true
stencil_operation always
stencil_testing false
stencil_pass keep
stencil_fail keep
depth_fail keep
stencil_compare_mask 255
stencil_write_mask 255
stencil_reference_value 0
property_count 3
base_color_texture u32 7
roughness f32 0.5
tint vector3f 1 0.5 0.25
`
	desc, err := ParseMaterial(src)
	require.NoError(t, err)

	require.Equal(t, uint64(1), desc.Version)
	require.Equal(t, MaterialTypeOpaque, desc.Type)
	require.Equal(t, UUID(42), desc.ShaderUUID)
	require.Equal(t, CullModeBack, desc.CullMode)
	require.Equal(t, FrontFaceCounterClockwise, desc.FrontFace)
	require.Equal(t, CompareLess, desc.DepthOperation)
	require.True(t, desc.DepthTesting)
	require.True(t, desc.DepthWriting)
	require.Equal(t, CompareAlways, desc.StencilOperation)
	require.False(t, desc.StencilTesting)
	require.Equal(t, uint32(255), desc.StencilCompareMask)

	require.Len(t, desc.Properties, 3)

	texProp := desc.Properties[0]
	require.Equal(t, "base_color_texture", texProp.Name)
	require.Equal(t, MaterialPropertyU32, texProp.Type)
	require.True(t, texProp.IsTextureAsset)
	require.Equal(t, uint64(7), texProp.U64Value)

	roughProp := desc.Properties[1]
	require.Equal(t, MaterialPropertyF32, roughProp.Type)
	require.Equal(t, float32(0.5), roughProp.F32Value)

	tintProp := desc.Properties[2]
	require.Equal(t, MaterialPropertyVector3F, tintProp.Type)
	require.Equal(t, []float32{1, 0.5, 0.25}, tintProp.VectorValue)
}

func TestParseMaterialRejectsUnknownPropertyType(t *testing.T) {
	src := `version 1
type opaque
shader 1
cull_mode none
front_face clockwise
depth_operation never
depth_testing false
depth_writing false
stencil_operation never
stencil_testing false
stencil_pass keep
stencil_fail keep
depth_fail keep
stencil_compare_mask 0
stencil_write_mask 0
stencil_reference_value 0
property_count 1
foo matrix4f 1
`
	_, err := ParseMaterial(src)
	require.Error(t, err)
}

func TestParseSkybox(t *testing.T) {
	src := `version 1
positive_x 10
negative_x 11
positive_y 12
negative_y 13
positive_z 14
negative_z 15
`
	desc, err := ParseSkybox(src)
	require.NoError(t, err)

	require.Equal(t, uint64(1), desc.Version)
	require.Equal(t, [6]UUID{10, 11, 12, 13, 14, 15}, desc.Faces)
}

func TestParseScene(t *testing.T) {
	nodeName := "root"
	src := "version 2\n" +
		"ambient_color 0.1 0.2 0.3\n" +
		"skybox_material_asset 99\n" +
		"node_count 1\n" +
		"node_name " + strconv.Itoa(len(nodeName)) + " " + nodeName + "\n" +
		"parent -1\n" +
		"component_count 2\n" +
		"component transform\n" +
		"position 1 2 3\n" +
		"rotation 0 0 0 1\n" +
		"scale 1 1 1\n" +
		"component mesh\n" +
		"static_mesh_asset 5\n" +
		"material_count 1\n" +
		"material_asset 6\n"

	desc, err := ParseScene(src)
	require.NoError(t, err)

	require.Equal(t, uint64(2), desc.Version)
	require.Equal(t, [3]float32{0.1, 0.2, 0.3}, desc.AmbientColor)
	require.Equal(t, UUID(99), desc.SkyboxMaterialAsset)
	require.Len(t, desc.Nodes, 1)

	node := desc.Nodes[0]
	require.Equal(t, "root", node.Name)
	require.Equal(t, int32(-1), node.ParentIndex)
	require.Equal(t, [3]float32{1, 2, 3}, node.Transform.Position)
	require.Equal(t, [4]float32{0, 0, 0, 1}, node.Transform.Rotation)
	require.True(t, node.HasMesh)
	require.Equal(t, UUID(5), node.Mesh.StaticMeshAsset)
	require.Equal(t, []UUID{6}, node.Mesh.MaterialAssets)
	require.False(t, node.HasLight)
}
