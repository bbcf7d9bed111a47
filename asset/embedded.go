package asset

import (
	"fmt"
	"strconv"
	"strings"
)

// embeddedPrefix marks a path referencing data embedded within another
// asset's source file (spec §4.4 "Embedded asset resolution"), e.g. a
// texture packed inside a glTF. Grammar: "@<uuid>-<data_id>/name.ext".
const embeddedPrefix = "@"

// embeddedRef is the parsed form of an embedded asset path.
type embeddedRef struct {
	Embedder UUID
	DataID   uint64
	Name     string
}

// parseEmbedded parses path per the "@<uuid>-<data_id>/name.ext" grammar,
// mirroring is_asset_embeded's sscanf(path, "@%llu-%llu/%s", ...) in
// original_source/Engine/assets/asset_manager.cpp. Returns ok=false if path
// does not match the grammar.
func parseEmbedded(path string) (ref embeddedRef, ok bool) {
	if !strings.HasPrefix(path, embeddedPrefix) {
		return embeddedRef{}, false
	}
	rest := path[len(embeddedPrefix):]

	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return embeddedRef{}, false
	}
	head, name := rest[:slash], rest[slash+1:]
	if name == "" {
		return embeddedRef{}, false
	}

	dash := strings.IndexByte(head, '-')
	if dash < 0 {
		return embeddedRef{}, false
	}

	uuidPart, dataIDPart := head[:dash], head[dash+1:]
	uuidVal, err := strconv.ParseUint(uuidPart, 10, 64)
	if err != nil {
		return embeddedRef{}, false
	}
	dataID, err := strconv.ParseUint(dataIDPart, 10, 64)
	if err != nil {
		return embeddedRef{}, false
	}

	return embeddedRef{Embedder: UUID(uuidVal), DataID: dataID, Name: name}, true
}

// formatEmbedded produces the canonical embedded-asset path for embedder,
// mirroring format_embedded_asset.
func formatEmbedded(embedder UUID, dataID uint64, name string) string {
	return fmt.Sprintf("%s%d-%d/%s", embeddedPrefix, uint64(embedder), dataID, name)
}
