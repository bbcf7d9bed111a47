package asset

import "fmt"

// skyboxFaceCount mirrors Skybox_Face::COUNT (+X, -X, +Y, -Y, +Z, -Z).
const skyboxFaceCount = 6

// SkyboxDescriptor is the parsed contents of a .haskybox file (spec §4.4's
// "skybox" built-in type), mirroring load_skybox's text-format parse in
// original_source/Engine/assets/skybox_importer.cpp. Building the actual
// cubemap texture from the six referenced texture assets is a renderer
// concern (it needs decoded pixel data and a gpu.Core); this package only
// resolves which texture asset backs each face.
type SkyboxDescriptor struct {
	Version uint64
	Faces   [skyboxFaceCount]UUID
}

// ParseSkybox parses the text contents of a .haskybox file.
func ParseSkybox(data string) (*SkyboxDescriptor, error) {
	t := newTextScanner(data)
	desc := &SkyboxDescriptor{}

	version, err := t.u64("version")
	if err != nil {
		return nil, fmt.Errorf("asset: parse skybox: %w", err)
	}
	desc.Version = version

	for i := 0; i < skyboxFaceCount; i++ {
		if _, err := t.token(); err != nil { // face name, e.g. "positive_x"
			return nil, fmt.Errorf("asset: parse skybox: face %d name: %w", i, err)
		}
		uuidTok, err := t.token()
		if err != nil {
			return nil, fmt.Errorf("asset: parse skybox: face %d asset: %w", i, err)
		}
		uuid, err := parseUint(uuidTok)
		if err != nil {
			return nil, fmt.Errorf("asset: parse skybox: face %d asset: %w", i, err)
		}
		desc.Faces[i] = UUID(uuid)
	}

	return desc, nil
}
