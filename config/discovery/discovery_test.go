package discovery

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x = 1\n"), 0o644))
	}
}

func newTestFinder(fs afero.Fs, opts ...Option) *Finder {
	base := []Option{
		WithFS(fs),
		WithSystemDir("/etc"),
		WithUserDir("/home/u/.config"),
		WithWorkDir("/work/proj/sub"),
	}
	return New(append(base, opts...)...)
}

func TestCandidatesOrder(t *testing.T) {
	f := newTestFinder(afero.NewMemMapFs())
	cands := f.Candidates("app")

	require.Len(t, cands, 7)
	assert.Equal(t, LevelSystem, cands[0].Level)
	assert.Equal(t, "/etc/app", cands[0].Dir)
	assert.Equal(t, LevelUser, cands[1].Level)
	assert.Equal(t, "/home/u/.config/app", cands[1].Dir)

	for _, c := range cands[2:6] {
		assert.Equal(t, LevelAncestor, c.Level)
	}

	last := cands[len(cands)-1]
	assert.Equal(t, LevelProject, last.Level)
	// No marker anywhere: the working directory is the project root.
	assert.Equal(t, "/work/proj/sub/.app", last.Dir)
}

func TestCandidatesAncestorWalkReachesWorkDir(t *testing.T) {
	f := newTestFinder(afero.NewMemMapFs())

	var dirs []string
	for _, c := range f.Candidates("app") {
		if c.Level == LevelAncestor {
			dirs = append(dirs, c.Dir)
		}
	}
	assert.Equal(t, []string{"/", "/work", "/work/proj", "/work/proj/sub"}, dirs)
}

func TestCandidatesExtensionOrder(t *testing.T) {
	f := newTestFinder(afero.NewMemMapFs())
	cands := f.Candidates("app")

	assert.Equal(t, []string{
		"/etc/app/config.toml",
		"/etc/app/config.yaml",
		"/etc/app/config.yml",
		"/etc/app/config.json",
		"/etc/app/config.jsonc",
	}, cands[0].Paths)

	root := cands[2]
	assert.Equal(t, "/app.toml", root.Paths[0])
	assert.Equal(t, "/.app.toml", root.Paths[len(DefaultExtensions)])
}

func TestCandidatesEmptyApp(t *testing.T) {
	assert.Empty(t, newTestFinder(afero.NewMemMapFs()).Candidates(""))
}

func TestDiscover(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/etc/app/config.yaml",
		"/etc/app/config.json", // same level, lower in extension order
		"/home/u/.config/app/config.toml",
		"/work/app.json",
		"/work/proj/.app.yaml",
		"/work/proj/.app/config.toml",
	)
	require.NoError(t, fs.MkdirAll("/work/proj/.git", 0o755))

	found := newTestFinder(fs).Discover("app")

	want := []Found{
		{Level: LevelSystem, Path: "/etc/app/config.yaml"},
		{Level: LevelUser, Path: "/home/u/.config/app/config.toml"},
		{Level: LevelAncestor, Path: "/work/app.json"},
		{Level: LevelAncestor, Path: "/work/proj/.app.yaml"},
		{Level: LevelProject, Path: "/work/proj/.app/config.toml"},
	}
	assert.Equal(t, want, found)
}

func TestDiscoverOnePerLevel(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/work/proj/app.toml", "/work/proj/.app.toml", "/work/proj/app.json")

	paths := DiscoverPaths("app",
		WithFS(fs), WithSystemDir(""), WithUserDir(""), WithWorkDir("/work/proj"))

	assert.Equal(t, []string{"/work/proj/app.toml"}, paths)
}

func TestDiscoverSkipsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/etc/app/config.toml", 0o755))
	writeFiles(t, fs, "/etc/app/config.yaml")

	found := newTestFinder(fs).Discover("app")
	require.Len(t, found, 1)
	assert.Equal(t, "/etc/app/config.yaml", found[0].Path)
}

func TestDiscoverDeduplicates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/shared/app/config.toml")

	// System and user levels resolve to the same directory; the file is
	// reported once, at the lower level.
	found := New(
		WithFS(fs),
		WithSystemDir("/shared"),
		WithUserDir("/shared"),
		WithWorkDir("/work"),
	).Discover("app")

	assert.Equal(t, []Found{{Level: LevelSystem, Path: "/shared/app/config.toml"}}, found)
}

func TestDiscoverProjectMarker(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/repo/.app/config.json", "/repo/go.mod")

	found := newTestFinder(fs,
		WithWorkDir("/repo/pkg/deep"),
		WithProjectMarker("go.mod"),
	).Discover("app")

	require.Len(t, found, 1)
	assert.Equal(t, Found{Level: LevelProject, Path: "/repo/.app/config.json"}, found[0])
}

func TestDiscoverCustomExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/etc/app/config.toml", "/etc/app/config.json")

	found := newTestFinder(fs, WithExtensions(".json", ".toml")).Discover("app")
	require.Len(t, found, 1)
	assert.Equal(t, "/etc/app/config.json", found[0].Path)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "system", LevelSystem.String())
	assert.Equal(t, "project", LevelProject.String())
	assert.Equal(t, "unknown", Level(42).String())
}
