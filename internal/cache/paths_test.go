package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}
}

func TestResolvePathsLiteral(t *testing.T) {
	root := t.TempDir()
	makeFiles(t, root, "dist/app.js", "README.md")

	got, err := ResolvePaths(root, []string{"dist", "README.md", "missing", "  "})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "dist"}, got)
}

func TestResolvePathsGlob(t *testing.T) {
	root := t.TempDir()
	makeFiles(t, root,
		"pkg/a/go.sum",
		"pkg/b/go.sum",
		"pkg/b/deep/go.sum",
		"pkg/b/other.txt",
	)

	got, err := ResolvePaths(root, []string{"pkg/*/go.sum"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("pkg", "a", "go.sum"),
		filepath.Join("pkg", "b", "go.sum"),
	}, got)

	got, err = ResolvePaths(root, []string{"pkg/**/go.sum"})
	require.NoError(t, err)
	assert.Contains(t, got, filepath.Join("pkg", "b", "deep", "go.sum"))
}

func TestResolvePathsExclusion(t *testing.T) {
	root := t.TempDir()
	makeFiles(t, root, "out/a.bin", "out/b.bin", "out/keep.txt")

	got, err := ResolvePaths(root, []string{"out/*", "!out/*.bin"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("out", "keep.txt")}, got)

	got, err = ResolvePaths(root, []string{"out/*", "!out"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolvePathsOutsideWorkDir(t *testing.T) {
	base := t.TempDir()
	work := filepath.Join(base, "work")
	makeFiles(t, base, "shared/deps.lock", "work/x")

	got, err := ResolvePaths(work, []string{filepath.Join(base, "shared")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("..", "shared")}, got)
}

func TestResolvePathsHomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	makeFiles(t, home, ".npm/_cacache/index")

	work := t.TempDir()
	got, err := ResolvePaths(work, []string{"~/.npm"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	abs := filepath.Join(work, got[0])
	assert.Equal(t, filepath.Join(home, ".npm"), filepath.Clean(abs))
}

func TestResolvePathsWorkDirWithGlobCharacters(t *testing.T) {
	for _, name := range []string{"build[1]", "{tmp}", "a*b"} {
		t.Run(name, func(t *testing.T) {
			work := filepath.Join(t.TempDir(), name)
			makeFiles(t, work, "dist/a.txt", "dist/b.md")

			got, err := ResolvePaths(work, []string{"dist"})
			require.NoError(t, err)
			assert.Equal(t, []string{"dist"}, got)

			got, err = ResolvePaths(work, []string{"dist/*.txt"})
			require.NoError(t, err)
			assert.Equal(t, []string{filepath.Join("dist", "a.txt")}, got)
		})
	}
}

func TestResolvePathsExistingNameWithGlobCharacters(t *testing.T) {
	root := t.TempDir()
	makeFiles(t, root, "report[1].txt", "report1.txt")

	got, err := ResolvePaths(root, []string{"report[1].txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"report[1].txt"}, got)

	got, err = ResolvePaths(root, []string{"report[0-9].txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"report1.txt"}, got)
}

func TestResolvePathsAbsoluteGlob(t *testing.T) {
	root := t.TempDir()
	other := filepath.Join(t.TempDir(), "logs")
	makeFiles(t, other, "keep.log", "skip.txt")

	got, err := ResolvePaths(root, []string{filepath.Join(other, "*.log")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep.log", filepath.Base(got[0]))
}
