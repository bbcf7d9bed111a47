package asset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oxy-forge/engine/job"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// registryFileName is the on-disk name of the persisted registry, per spec
// §6 ("asset_registry.haregistry" in the original source).
const registryFileName = "asset_registry.haregistry"

// LoadResult is what a type's LoadProc produces for a single asset.
type LoadResult struct {
	Success bool
	Data    any
}

// EmbeddedParams is passed to LoadProc when the asset being loaded is
// embedded within another asset's source file (spec §4.4).
type EmbeddedParams struct {
	Name     string
	TypeName string
	DataID   uint64
}

// LoadProc loads the asset at path (already resolved to an absolute path)
// and returns its in-memory representation. embedded is non-nil when the
// asset is packed inside another file.
type LoadProc func(path string, embedded *EmbeddedParams) (LoadResult, error)

// UnloadProc releases whatever LoadProc allocated.
type UnloadProc func(LoadResult)

// OnImportProc is an optional hook invoked right after ImportAsset creates a
// new registry entry, letting a type (e.g. "model") eagerly import
// sub-assets it embeds.
type OnImportProc func(h Handle)

// TypeInfo is a registered asset type: its name, recognized file
// extensions, and load/unload/on-import hooks (spec §4.4, grounded on
// Asset_Info in original_source/Engine/assets/asset_manager.h).
type TypeInfo struct {
	Name       string
	Extensions []string
	Load       LoadProc
	Unload     UnloadProc
	OnImport   OnImportProc
}

// Entry is one row of the registry (spec §3, Asset_Registry_Entry). The
// backing TypeInfo is resolved lazily from Path's extension rather than
// cached by index, so entries reloaded from disk resolve correctly
// regardless of whether RegisterType ran before or after Load.
type Entry struct {
	Path          string
	Parent        UUID
	LastWriteTime int64
	RefCount      uint32
	State         State
	Job           job.Handle
	Deleted       bool
}

// Registry is the Asset Registry (C4): a UUID-keyed table of entries with a
// path index, an embedded-asset index, and a dependency index, guarded by a
// single mutex per spec §5 ("asset_mutex"). Loading is delegated to the Job
// System so Acquire never blocks the caller.
type Registry struct {
	mu sync.Mutex

	assetPath    string
	registryPath string

	infos []TypeInfo

	entries    map[UUID]*Entry
	pathIndex  map[string]UUID
	dependency map[UUID][]UUID // parent/embedder UUID -> dependent UUIDs
	embedded   map[UUID][]UUID // embedder UUID -> embedded asset UUIDs
	cache      map[UUID]LoadResult

	jobs *job.System
	log  zerolog.Logger
}

// NewRegistry constructs a Registry rooted at assetPath, backed by jobs for
// asynchronous loads. assetPath must already exist.
func NewRegistry(assetPath string, jobs *job.System) (*Registry, error) {
	info, err := os.Stat(assetPath)
	if err != nil {
		return nil, fmt.Errorf("asset: registry root %q: %w", assetPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset: registry root %q is not a directory", assetPath)
	}

	r := &Registry{
		assetPath:    assetPath,
		registryPath: filepath.Join(assetPath, registryFileName),
		entries:      make(map[UUID]*Entry),
		pathIndex:    make(map[string]UUID),
		dependency:   make(map[UUID][]UUID),
		embedded:     make(map[UUID][]UUID),
		cache:        make(map[UUID]LoadResult),
		jobs:         jobs,
		log:          log.With().Str("component", "asset.Registry").Logger(),
	}

	if _, err := os.Stat(r.registryPath); err == nil {
		if err := r.load(); err != nil {
			return nil, fmt.Errorf("asset: deserialize registry: %w", err)
		}
	}

	return r, nil
}

// RegisterType adds a new asset type. Returns an error if name is already
// registered (spec §4.4 "register_asset").
func (r *Registry) RegisterType(info TypeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.infos {
		if existing.Name == info.Name {
			return fmt.Errorf("asset: type %q already registered", info.Name)
		}
	}
	r.infos = append(r.infos, info)
	return nil
}

func (r *Registry) typeInfoForExtension(ext string) (int, *TypeInfo) {
	ext = strings.TrimPrefix(ext, ".")
	for i := range r.infos {
		for _, e := range r.infos[i].Extensions {
			if strings.EqualFold(e, ext) {
				return i, &r.infos[i]
			}
		}
	}
	return -1, nil
}

// ImportAsset registers path as a new asset (or returns the existing
// handle if already imported), mirroring import_asset. path is relative to
// the asset root, except for embedded-asset paths.
func (r *Registry) ImportAsset(path string) Handle {
	if path == "" {
		r.log.Error().Msg("import asset: empty path")
		return Invalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path = sanitizePath(path)
	name := filepath.Base(path)

	// Resurrect a previously-deleted entry with the same name, matching
	// import_asset's tombstone-reuse behavior.
	for id, entry := range r.entries {
		if filepath.Base(entry.Path) == name && entry.Deleted {
			delete(r.pathIndex, entry.Path)
			entry.Path = path
			entry.Deleted = false
			r.pathIndex[path] = id
			return Handle{UUID: id}
		}
		if entry.Path == path {
			if entry.Deleted {
				return Invalid
			}
			return Handle{UUID: id}
		}
	}

	ref, isEmbedded := parseEmbedded(path)
	var embedder UUID
	if isEmbedded {
		embedder = ref.Embedder
		if !r.isValidLocked(Handle{UUID: embedder}) {
			r.log.Error().Str("path", path).Msg("import asset: embedder is invalid")
			return Invalid
		}
	} else {
		abs := filepath.Join(r.assetPath, path)
		if _, err := os.Stat(abs); err != nil {
			r.log.Error().Str("path", path).Msg("import asset: file does not exist")
			return Invalid
		}
	}

	ext := filepath.Ext(path)
	_, info := r.typeInfoForExtension(ext)
	if info == nil {
		r.log.Error().Str("path", path).Str("ext", ext).Msg("import asset: extension not registered")
		return Invalid
	}

	id := NewUUID()
	entry := &Entry{
		Path:  path,
		State: StateUnloaded,
		Job:   job.Invalid,
	}
	if isEmbedded {
		// An embedded child's bytes live inside the embedder's file
		// (resolveLoad redirects its LoadProc there), so the embedder must be
		// loaded before the child is safe to parse. Recording it as Parent
		// (not just in the dependency/embedded indexes) makes acquireLocked's
		// parent-first job ordering and the watcher's parent-before-child
		// reload cascade apply to embedded assets the same way they do to an
		// explicit SetParent relationship.
		entry.Parent = embedder
	}
	r.entries[id] = entry
	r.pathIndex[path] = id

	if isEmbedded {
		r.addEmbeddedLocked(embedder, id)
		r.addDependencyLocked(embedder, id)
	}

	if info.OnImport != nil {
		info.OnImport(Handle{UUID: id})
	}

	r.log.Trace().Str("path", path).Msg("imported asset")
	return Handle{UUID: id}
}

func (r *Registry) addEmbeddedLocked(embedder, child UUID) {
	for _, existing := range r.embedded[embedder] {
		if existing == child {
			return
		}
	}
	r.embedded[embedder] = append(r.embedded[embedder], child)
}

func (r *Registry) addDependencyLocked(parent, child UUID) {
	for _, existing := range r.dependency[parent] {
		if existing == child {
			return
		}
	}
	r.dependency[parent] = append(r.dependency[parent], child)
}

// GetHandle resolves path to its Handle, or Invalid if not imported.
func (r *Registry) GetHandle(path string) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	path = sanitizePath(path)
	if id, ok := r.pathIndex[path]; ok {
		if entry := r.entries[id]; entry != nil && !entry.Deleted {
			return Handle{UUID: id}
		}
	}
	return Invalid
}

// IsValid reports whether h references a live (non-deleted) entry.
func (r *Registry) IsValid(h Handle) bool {
	if !h.IsValid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isValidLocked(h)
}

func (r *Registry) isValidLocked(h Handle) bool {
	entry, ok := r.entries[h.UUID]
	return ok && !entry.Deleted
}

// IsLoaded reports whether h's asset is currently resident in the cache.
func (r *Registry) IsLoaded(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[h.UUID]
	return ok && res.Success
}

// Entry returns a copy of h's registry row.
func (r *Registry) Entry(h Handle) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[h.UUID]
	if !ok {
		return Entry{}, fmt.Errorf("asset: unknown handle %v", h)
	}
	return *entry, nil
}

// SetParent records parent as h's parent dependency, mirroring set_parent.
// Passing Invalid as parent clears the relationship.
func (r *Registry) SetParent(h, parent Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[h.UUID]
	if !ok {
		return fmt.Errorf("asset: unknown handle %v", h)
	}

	if entry.Parent != InvalidUUID {
		children := r.dependency[entry.Parent]
		for i, c := range children {
			if c == h.UUID {
				r.dependency[entry.Parent] = append(children[:i], children[i+1:]...)
				break
			}
		}
	}

	if parent.IsValid() {
		if _, ok := r.entries[parent.UUID]; !ok {
			return fmt.Errorf("asset: set parent: parent %v is invalid", parent)
		}
		r.addDependencyLocked(parent.UUID, h.UUID)
	}

	entry.Parent = parent.UUID
	return nil
}

// Acquire increments h's reference count, scheduling a load job the first
// time an entry transitions out of StateUnloaded, and returns the Job
// Handle the caller can wait on for completion (spec §4.5 "acquire_asset").
func (r *Registry) Acquire(h Handle) (job.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(h)
}

func (r *Registry) acquireLocked(h Handle) (job.Handle, error) {
	entry, ok := r.entries[h.UUID]
	if !ok {
		return job.Invalid, fmt.Errorf("asset: unknown handle %v", h)
	}

	entry.RefCount++

	if entry.State != StateUnloaded {
		return entry.Job, nil
	}
	entry.State = StatePending

	var parentJob job.Handle = job.Invalid
	if entry.Parent != InvalidUUID && r.isValidLocked(Handle{UUID: entry.Parent}) {
		pj, err := r.acquireLocked(Handle{UUID: entry.Parent})
		if err == nil {
			parentJob = pj
		}
	}

	target := h.UUID
	h2, err := r.jobs.ExecuteJob(job.Params{Proc: func(ctx *job.Context) error {
		return r.runLoad(target)
	}}, parentJob)
	if err != nil {
		entry.State = StateFailedToLoad
		return job.Invalid, err
	}

	entry.Job = h2
	return h2, nil
}

func (r *Registry) runLoad(id UUID) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("asset: unknown handle during load")
	}
	path := entry.Path
	r.mu.Unlock()

	load, embeddedParams, absPath, err := r.resolveLoad(path)
	if err != nil {
		r.mu.Lock()
		entry.State = StateFailedToLoad
		r.mu.Unlock()
		return err
	}

	result, err := load(absPath, embeddedParams)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil || !result.Success {
		entry.State = StateFailedToLoad
		r.log.Error().Err(err).Str("path", path).Msg("failed to load asset")
		if err == nil {
			err = fmt.Errorf("asset: load %q failed", path)
		}
		return err
	}

	entry.State = StateLoaded
	r.cache[id] = result
	r.log.Trace().Str("path", path).Msg("loaded asset")
	return nil
}

// resolveLoad follows the embedded-asset indirection (an embedded asset is
// loaded through its embedder's LoadProc) and returns the absolute path to
// read plus the LoadProc to invoke.
func (r *Registry) resolveLoad(path string) (LoadProc, *EmbeddedParams, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	relative := path
	_, info := r.typeInfoForExtension(filepath.Ext(path))
	if info == nil {
		return nil, nil, "", fmt.Errorf("asset: no type registered for %q", path)
	}
	load := info.Load
	typeName := info.Name

	var embeddedParams *EmbeddedParams
	if ref, ok := parseEmbedded(path); ok {
		embedderEntry, exists := r.entries[ref.Embedder]
		if !exists {
			return nil, nil, "", fmt.Errorf("asset: embedder %v missing for %q", ref.Embedder, path)
		}
		relative = embedderEntry.Path
		_, embedderInfo := r.typeInfoForExtension(filepath.Ext(embedderEntry.Path))
		if embedderInfo == nil {
			return nil, nil, "", fmt.Errorf("asset: no type registered for embedder %q", embedderEntry.Path)
		}
		load = embedderInfo.Load
		embeddedParams = &EmbeddedParams{
			Name:     ref.Name,
			TypeName: typeName,
			DataID:   ref.DataID,
		}
	}

	if load == nil {
		return nil, nil, "", fmt.Errorf("asset: no loader registered for %q", path)
	}

	return load, embeddedParams, filepath.Join(r.assetPath, relative), nil
}

// Get returns the cached LoadResult for h. The caller must have Acquired
// and waited for completion first.
func (r *Registry) Get(h Handle) (LoadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[h.UUID]
	if !ok {
		return LoadResult{}, fmt.Errorf("asset: %v is not loaded", h)
	}
	return res, nil
}

// Release decrements h's reference count, unloading it via the registered
// UnloadProc once the count reaches zero (spec §4.5 "release_asset").
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[h.UUID]
	if !ok {
		return nil
	}
	if entry.RefCount == 0 {
		return fmt.Errorf("asset: release called on %v with zero ref count", h)
	}
	entry.RefCount--
	if entry.RefCount > 0 {
		return nil
	}

	result, ok := r.cache[h.UUID]
	if ok {
		if _, info := r.typeInfoForExtension(filepath.Ext(entry.Path)); info != nil && info.Unload != nil {
			info.Unload(result)
		}
		delete(r.cache, h.UUID)
	}
	entry.State = StateUnloaded
	r.log.Trace().Str("path", entry.Path).Msg("unloaded asset")
	return nil
}

// EmbeddedAssets returns the UUIDs embedded within h's source file.
func (r *Registry) EmbeddedAssets(h Handle) []UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	children := r.embedded[h.UUID]
	out := make([]UUID, len(children))
	copy(out, children)
	return out
}

// Dependents returns the UUIDs that depend on h (children in the
// dependency index), used to cascade reloads.
func (r *Registry) Dependents(h Handle) []UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	children := r.dependency[h.UUID]
	out := make([]UUID, len(children))
	copy(out, children)
	return out
}

// sanitizePath normalizes path separators to forward slashes, since the
// registry persists paths in a platform-independent form.
func sanitizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// Save persists the registry to its on-disk file in the text format
// described in spec §6, grounded on serialize_asset_registry's
// "version 1 / entry_count N / asset UUID / parent UUID / path LEN DATA"
// line grammar.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	ids := make([]UUID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}

	embeddedSet := make(map[UUID]bool)
	for _, children := range r.embedded {
		for _, c := range children {
			embeddedSet[c] = true
		}
	}

	// Sort by (hasParent || isEmbedded, uuid) ascending, exactly as
	// specified. This is NOT a strict topological order with respect to
	// the dependency index — see DESIGN.md open question #2.
	rank := func(id UUID) int {
		entry := r.entries[id]
		if entry.Parent != InvalidUUID || embeddedSet[id] {
			return 1
		}
		return 0
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := rank(ids[i]), rank(ids[j])
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "version 1\n")
	fmt.Fprintf(&b, "entry_count %d\n", len(ids))
	for _, id := range ids {
		entry := r.entries[id]
		fmt.Fprintf(&b, "\nasset %d\n", uint64(id))
		fmt.Fprintf(&b, "parent %d\n", uint64(entry.Parent))
		fmt.Fprintf(&b, "path %d %s\n", len(entry.Path), entry.Path)
	}

	return os.WriteFile(r.registryPath, []byte(b.String()), 0o644)
}

func (r *Registry) load() error {
	f, err := os.Open(r.registryPath)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	readLine := func() (string, bool) {
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			return line, true
		}
		return "", false
	}

	line, ok := readLine()
	if !ok || !strings.HasPrefix(line, "version ") {
		return fmt.Errorf("asset: malformed registry header")
	}

	line, ok = readLine()
	if !ok || !strings.HasPrefix(line, "entry_count ") {
		return fmt.Errorf("asset: malformed registry header")
	}
	count, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "entry_count ")))
	if err != nil {
		return fmt.Errorf("asset: malformed entry_count: %w", err)
	}

	for i := 0; i < count; i++ {
		assetLine, ok := readLine()
		if !ok || !strings.HasPrefix(assetLine, "asset ") {
			return fmt.Errorf("asset: malformed asset line at entry %d", i)
		}
		idVal, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(assetLine, "asset ")), 10, 64)
		if err != nil {
			return fmt.Errorf("asset: malformed uuid at entry %d: %w", i, err)
		}

		parentLine, ok := readLine()
		if !ok || !strings.HasPrefix(parentLine, "parent ") {
			return fmt.Errorf("asset: malformed parent line at entry %d", i)
		}
		parentVal, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(parentLine, "parent ")), 10, 64)
		if err != nil {
			return fmt.Errorf("asset: malformed parent uuid at entry %d: %w", i, err)
		}

		pathLine, ok := readLine()
		if !ok || !strings.HasPrefix(pathLine, "path ") {
			return fmt.Errorf("asset: malformed path line at entry %d", i)
		}
		rest := strings.TrimPrefix(pathLine, "path ")
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return fmt.Errorf("asset: malformed path line at entry %d", i)
		}
		pathCount, err := strconv.Atoi(rest[:sp])
		if err != nil {
			return fmt.Errorf("asset: malformed path length at entry %d: %w", i, err)
		}
		path := rest[sp+1:]
		if len(path) != pathCount {
			// Tolerate trailing whitespace trimmed by the scanner.
			if len(path) < pathCount {
				return fmt.Errorf("asset: truncated path at entry %d", i)
			}
			path = path[:pathCount]
		}

		id := UUID(idVal)
		entry := &Entry{
			Path:   path,
			Parent: UUID(parentVal),
			State:  StateUnloaded,
			Job:    job.Invalid,
		}

		abs := filepath.Join(r.assetPath, path)
		if ref, isEmbedded := parseEmbedded(path); isEmbedded {
			if embedder, exists := r.entries[ref.Embedder]; exists {
				abs = filepath.Join(r.assetPath, embedder.Path)
			}
		}
		if _, statErr := os.Stat(abs); statErr != nil {
			entry.Deleted = true
		}

		r.entries[id] = entry
		r.pathIndex[path] = id

		if ref, isEmbedded := parseEmbedded(path); isEmbedded {
			if _, exists := r.entries[ref.Embedder]; exists {
				r.addEmbeddedLocked(ref.Embedder, id)
				r.addDependencyLocked(ref.Embedder, id)
			}
		}
		if entry.Parent != InvalidUUID {
			if _, exists := r.entries[entry.Parent]; exists {
				r.addDependencyLocked(entry.Parent, id)
			}
		}
	}

	return scanner.Err()
}

// LastWriteTime returns the modification time of h's backing file. The
// watcher does not consult it when deciding whether to reload.
func (r *Registry) LastWriteTime(h Handle) (time.Time, error) {
	entry, err := r.Entry(h)
	if err != nil {
		return time.Time{}, err
	}
	abs := filepath.Join(r.assetPath, entry.Path)
	info, err := os.Stat(abs)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
