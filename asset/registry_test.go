package asset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oxy-forge/engine/job"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	jobs := job.New(2, 64)

	r, err := NewRegistry(dir, jobs)
	require.NoError(t, err)

	var loaded []string
	err = r.RegisterType(TypeInfo{
		Name:       "text",
		Extensions: []string{"txt"},
		Load: func(path string, embedded *EmbeddedParams) (LoadResult, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return LoadResult{}, err
			}
			return LoadResult{Success: true, Data: string(data)}, nil
		},
		Unload: func(res LoadResult) {
			loaded = append(loaded, res.Data.(string))
		},
	})
	require.NoError(t, err)

	return r, dir
}

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestImportAssetRequiresExistingFile(t *testing.T) {
	r, _ := newTestRegistry(t)
	h := r.ImportAsset("missing.txt")
	require.False(t, h.IsValid())
}

func TestImportAssetIsIdempotent(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeAsset(t, dir, "mesh.txt", "hello")

	h1 := r.ImportAsset("mesh.txt")
	require.True(t, h1.IsValid())
	h2 := r.ImportAsset("mesh.txt")
	require.Equal(t, h1, h2)
}

func TestImportAssetRejectsUnregisteredExtension(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeAsset(t, dir, "mesh.bin", "hello")
	h := r.ImportAsset("mesh.bin")
	require.False(t, h.IsValid())
}

func TestAcquireLoadsAndReleaseUnloads(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeAsset(t, dir, "mesh.txt", "hello world")

	h := r.ImportAsset("mesh.txt")
	require.True(t, h.IsValid())

	jh, err := r.Acquire(h)
	require.NoError(t, err)

	r.jobs.WaitForJobs(jh)
	require.True(t, r.IsLoaded(h))

	res, err := r.Get(h)
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Data)

	require.NoError(t, r.Release(h))
	require.False(t, r.IsLoaded(h))
}

func TestAcquireRecursivelyAcquiresParent(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeAsset(t, dir, "parent.txt", "parent")
	writeAsset(t, dir, "child.txt", "child")

	parent := r.ImportAsset("parent.txt")
	child := r.ImportAsset("child.txt")
	require.NoError(t, r.SetParent(child, parent))

	jh, err := r.Acquire(child)
	require.NoError(t, err)
	r.jobs.WaitForJobs(jh)

	require.True(t, r.IsLoaded(child))
	require.True(t, r.IsLoaded(parent))
}

func TestSetParentTracksDependents(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeAsset(t, dir, "parent.txt", "parent")
	writeAsset(t, dir, "child.txt", "child")

	parent := r.ImportAsset("parent.txt")
	child := r.ImportAsset("child.txt")
	require.NoError(t, r.SetParent(child, parent))

	deps := r.Dependents(parent)
	require.Len(t, deps, 1)
	require.Equal(t, child.UUID, deps[0])

	require.NoError(t, r.SetParent(child, Invalid))
	require.Empty(t, r.Dependents(parent))
}

func TestEmbeddedAssetImport(t *testing.T) {
	r, dir := newTestRegistry(t)
	require.NoError(t, r.RegisterType(TypeInfo{
		Name:       "subtext",
		Extensions: []string{"sub"},
		Load: func(path string, embedded *EmbeddedParams) (LoadResult, error) {
			require.NotNil(t, embedded)
			return LoadResult{Success: true, Data: embedded.Name}, nil
		},
	}))

	writeAsset(t, dir, "bundle.txt", "bundle contents")
	embedder := r.ImportAsset("bundle.txt")
	require.True(t, embedder.IsValid())

	embeddedPath := formatEmbedded(embedder.UUID, 3, "piece.sub")
	child := r.ImportAsset(embeddedPath)
	require.True(t, child.IsValid())

	children := r.EmbeddedAssets(embedder)
	require.Contains(t, children, child.UUID)

	jh, err := r.Acquire(child)
	require.NoError(t, err)
	r.jobs.WaitForJobs(jh)
	require.True(t, r.IsLoaded(child))

	entry, err := r.Entry(child)
	require.NoError(t, err)
	require.Equal(t, embedder.UUID, entry.Parent)
	require.True(t, r.IsLoaded(embedder))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeAsset(t, dir, "parent.txt", "parent")
	writeAsset(t, dir, "child.txt", "child")

	parent := r.ImportAsset("parent.txt")
	child := r.ImportAsset("child.txt")
	require.NoError(t, r.SetParent(child, parent))
	require.NoError(t, r.Save())

	jobs2 := job.New(2, 64)
	r2, err := NewRegistry(dir, jobs2)
	require.NoError(t, err)
	require.NoError(t, r2.RegisterType(TypeInfo{Name: "text", Extensions: []string{"txt"}, Load: func(path string, e *EmbeddedParams) (LoadResult, error) {
		return LoadResult{Success: true}, nil
	}}))

	h := r2.GetHandle("child.txt")
	require.True(t, h.IsValid())
	require.Equal(t, child.UUID, h.UUID)

	entry, err := r2.Entry(h)
	require.NoError(t, err)
	require.Equal(t, parent.UUID, entry.Parent)
}

func TestReleaseWithoutAcquireErrors(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeAsset(t, dir, "mesh.txt", "hello")
	h := r.ImportAsset("mesh.txt")
	require.Error(t, r.Release(h))
}
