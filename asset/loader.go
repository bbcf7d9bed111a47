package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TypeInfoByName returns the registered type with the given name, mirroring
// the by-name overload of get_asset_info.
func (r *Registry) TypeInfoByName(name string) (TypeInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range r.infos {
		if info.Name == name {
			return info, true
		}
	}
	return TypeInfo{}, false
}

// TypeInfoForExtension returns the registered type recognizing ext (with or
// without a leading dot), mirroring get_asset_info_from_extension.
func (r *Registry) TypeInfoForExtension(ext string) (TypeInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, info := r.typeInfoForExtension(ext)
	if info == nil {
		return TypeInfo{}, false
	}
	return *info, true
}

// TypeInfoOf returns the registered type backing h, resolved from its
// path's extension.
func (r *Registry) TypeInfoOf(h Handle) (TypeInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[h.UUID]
	if !ok {
		return TypeInfo{}, false
	}
	_, info := r.typeInfoForExtension(filepath.Ext(entry.Path))
	if info == nil {
		return TypeInfo{}, false
	}
	return *info, true
}

// RegisterBuiltinTypes registers the default asset types the engine ships
// with, mirroring init_asset_manager's registration block (texture,
// environment_map, shader, material, static_mesh, model, skybox, scene).
// Callers supply the concrete load/unload/on-import hooks per type since
// those depend on engine packages (renderer, scene) this package doesn't
// import, keeping asset free of a dependency cycle.
func (r *Registry) RegisterBuiltinTypes(hooks BuiltinTypeHooks) error {
	types := []TypeInfo{
		{Name: "texture", Extensions: []string{"png", "jpeg", "jpg", "tga", "psd"}, Load: hooks.Texture, Unload: hooks.UnloadGeneric},
		{Name: "environment_map", Extensions: []string{"hdr"}, Load: hooks.EnvironmentMap, Unload: hooks.UnloadGeneric},
		{Name: "shader", Extensions: []string{"wgsl"}, Load: hooks.Shader, Unload: hooks.UnloadGeneric},
		{Name: "material", Extensions: []string{"hamaterial"}, Load: hooks.Material, Unload: hooks.UnloadGeneric},
		{Name: "static_mesh", Extensions: []string{"hastaticmesh"}, Load: hooks.StaticMesh, Unload: hooks.UnloadGeneric},
		{Name: "model", Extensions: []string{"gltf", "glb"}, Load: hooks.Model, Unload: hooks.UnloadGeneric, OnImport: hooks.OnImportModel},
		{Name: "skybox", Extensions: []string{"haskybox"}, Load: hooks.Skybox, Unload: hooks.UnloadGeneric},
		{Name: "scene", Extensions: []string{"hascene"}, Load: hooks.Scene, Unload: hooks.UnloadGeneric},
	}

	for _, t := range types {
		if t.Load == nil {
			continue
		}
		if err := r.RegisterType(t); err != nil {
			return err
		}
	}
	return nil
}

// BuiltinTypeHooks supplies the load/unload/on-import callbacks for each
// built-in asset type (spec §4.4). Any field left nil skips registering
// that type.
type BuiltinTypeHooks struct {
	Texture        LoadProc
	EnvironmentMap LoadProc
	Shader         LoadProc
	Material       LoadProc
	StaticMesh     LoadProc
	Model          LoadProc
	Skybox         LoadProc
	Scene          LoadProc
	OnImportModel  OnImportProc
	UnloadGeneric  UnloadProc
}

// DefaultBuiltinTypeHooks returns the BuiltinTypeHooks this package can
// supply on its own: the three hand-authored text formats (material, scene,
// skybox) whose loaders only need to read and parse a file, no renderer
// dependency. Texture, environment_map, shader, and model still need a
// gpu.Core to produce a GPU resource, so a caller with renderer access
// fills those fields in before calling RegisterBuiltinTypes.
func DefaultBuiltinTypeHooks() BuiltinTypeHooks {
	return BuiltinTypeHooks{
		Material: loadMaterialFile,
		Scene:    loadSceneFile,
		Skybox:   loadSkyboxFile,
	}
}

func loadMaterialFile(path string, _ *EmbeddedParams) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("asset: load material %q: %w", path, err)
	}
	desc, err := ParseMaterial(string(data))
	if err != nil {
		return LoadResult{}, fmt.Errorf("asset: load material %q: %w", path, err)
	}
	return LoadResult{Success: true, Data: desc}, nil
}

func loadSceneFile(path string, _ *EmbeddedParams) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("asset: load scene %q: %w", path, err)
	}
	desc, err := ParseScene(string(data))
	if err != nil {
		return LoadResult{}, fmt.Errorf("asset: load scene %q: %w", path, err)
	}
	return LoadResult{Success: true, Data: desc}, nil
}

func loadSkyboxFile(path string, _ *EmbeddedParams) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("asset: load skybox %q: %w", path, err)
	}
	desc, err := ParseSkybox(string(data))
	if err != nil {
		return LoadResult{}, fmt.Errorf("asset: load skybox %q: %w", path, err)
	}
	return LoadResult{Success: true, Data: desc}, nil
}

// extensionOf is a small helper for callers building LoadProc
// implementations that need to branch on extension without a second
// filepath import.
func extensionOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i+1:]
}
