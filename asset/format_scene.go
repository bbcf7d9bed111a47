package asset

import "fmt"

// LightType mirrors Light_Type.
type LightType int

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

// Transform is a node's local position/rotation/scale, mirroring Transform.
// Rotation is stored in the file's own component order (x, y, z, w).
type Transform struct {
	Position [3]float32
	Rotation [4]float32
	Scale    [3]float32
}

// LightComponent mirrors Light_Component.
type LightComponent struct {
	Type       LightType
	Color      [3]float32
	Intensity  float32
	Radius     float32
	InnerAngle float32
	OuterAngle float32
}

// MeshComponent mirrors Static_Mesh_Component: the static mesh asset plus
// one material asset per submesh.
type MeshComponent struct {
	StaticMeshAsset UUID
	MaterialAssets  []UUID
}

// SceneNode is one entry in a scene's flat, index-based node array (spec §9
// "Cyclic object graphs"): ParentIndex is -1 for a root node.
type SceneNode struct {
	Name        string
	ParentIndex int32

	Transform Transform
	HasMesh   bool
	Mesh      MeshComponent
	HasLight  bool
	Light     LightComponent
}

// SceneDescriptor is the parsed contents of a .hascene file (spec §4.4's
// "scene" built-in type and end-to-end scenario 6), mirroring load_scene in
// original_source/Engine/assets/scene_importer.cpp. Turning this into live
// renderer state (acquiring referenced assets, building GPU-side draw
// lists) is a renderer-facing concern built on top of this parse.
type SceneDescriptor struct {
	Version             uint64
	AmbientColor         [3]float32
	SkyboxMaterialAsset UUID
	Nodes               []SceneNode
}

// ParseScene parses the text contents of a .hascene file.
func ParseScene(data string) (*SceneDescriptor, error) {
	t := newTextScanner(data)
	desc := &SceneDescriptor{}

	version, err := t.u64("version")
	if err != nil {
		return nil, fmt.Errorf("asset: parse scene: %w", err)
	}
	desc.Version = version

	ambient, err := t.vec3("ambient_color")
	if err != nil {
		return nil, fmt.Errorf("asset: parse scene: ambient_color: %w", err)
	}
	desc.AmbientColor = ambient

	skyboxUUID, err := t.u64("skybox_material_asset")
	if err != nil {
		return nil, fmt.Errorf("asset: parse scene: %w", err)
	}
	desc.SkyboxMaterialAsset = UUID(skyboxUUID)

	nodeCount, err := t.u32("node_count")
	if err != nil {
		return nil, fmt.Errorf("asset: parse scene: %w", err)
	}

	desc.Nodes = make([]SceneNode, 0, nodeCount)
	for i := uint32(0); i < nodeCount; i++ {
		node, err := parseSceneNode(t)
		if err != nil {
			return nil, fmt.Errorf("asset: parse scene: node %d: %w", i, err)
		}
		desc.Nodes = append(desc.Nodes, node)
	}

	return desc, nil
}

func parseSceneNode(t *textScanner) (SceneNode, error) {
	var node SceneNode

	nameCount, err := t.u64("node_name")
	if err != nil {
		return node, err
	}
	t.eatWhitespace()
	name, err := t.raw(int(nameCount))
	if err != nil {
		return node, fmt.Errorf("node_name: %w", err)
	}
	node.Name = name

	if node.ParentIndex, err = t.s32("parent"); err != nil {
		return node, err
	}

	componentCount, err := t.u32("component_count")
	if err != nil {
		return node, err
	}

	for i := uint32(0); i < componentCount; i++ {
		kind, err := t.value("component")
		if err != nil {
			return node, fmt.Errorf("component %d: %w", i, err)
		}

		switch kind {
		case "transform":
			if node.Transform, err = parseTransform(t); err != nil {
				return node, fmt.Errorf("component %d transform: %w", i, err)
			}
		case "mesh":
			node.HasMesh = true
			if node.Mesh, err = parseMeshComponent(t); err != nil {
				return node, fmt.Errorf("component %d mesh: %w", i, err)
			}
		case "light":
			node.HasLight = true
			if node.Light, err = parseLightComponent(t); err != nil {
				return node, fmt.Errorf("component %d light: %w", i, err)
			}
		default:
			return node, fmt.Errorf("component %d: unrecognized type %q", i, kind)
		}
	}

	return node, nil
}

func parseTransform(t *textScanner) (Transform, error) {
	var tr Transform

	pos, err := t.vec3("position")
	if err != nil {
		return tr, err
	}
	tr.Position = pos

	if _, err := t.token(); err != nil { // "rotation"
		return tr, err
	}
	rot, err := t.floats(4)
	if err != nil {
		return tr, err
	}
	copy(tr.Rotation[:], rot)

	scale, err := t.vec3("scale")
	if err != nil {
		return tr, err
	}
	tr.Scale = scale

	return tr, nil
}

func parseMeshComponent(t *textScanner) (MeshComponent, error) {
	var mesh MeshComponent

	staticMeshUUID, err := t.u64("static_mesh_asset")
	if err != nil {
		return mesh, err
	}
	mesh.StaticMeshAsset = UUID(staticMeshUUID)

	materialCount, err := t.u32("material_count")
	if err != nil {
		return mesh, err
	}

	mesh.MaterialAssets = make([]UUID, materialCount)
	for i := uint32(0); i < materialCount; i++ {
		materialUUID, err := t.u64("material_asset")
		if err != nil {
			return mesh, fmt.Errorf("material %d: %w", i, err)
		}
		mesh.MaterialAssets[i] = UUID(materialUUID)
	}

	return mesh, nil
}

var lightTypeNames = []string{"directional", "point", "spot"}

func parseLightComponent(t *textScanner) (LightComponent, error) {
	var light LightComponent

	typeStr, err := t.value("type")
	if err != nil {
		return light, err
	}
	idx, err := indexOfName(lightTypeNames, typeStr)
	if err != nil {
		return light, fmt.Errorf("type: %w", err)
	}
	light.Type = LightType(idx)

	color, err := t.vec3("color")
	if err != nil {
		return light, err
	}
	light.Color = color

	if light.Intensity, err = t.f32("intensity"); err != nil {
		return light, err
	}
	if light.Radius, err = t.f32("radius"); err != nil {
		return light, err
	}
	if light.InnerAngle, err = t.f32("inner_angle"); err != nil {
		return light, err
	}
	if light.OuterAngle, err = t.f32("outer_angle"); err != nil {
		return light, err
	}

	return light, nil
}
