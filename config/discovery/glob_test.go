package discovery

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlob(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/conf/b.toml",
		"/conf/a.yaml",
		"/conf/nested/c.toml",
		"/conf/nested/skip.txt",
	)
	require.NoError(t, fs.MkdirAll("/conf/dir.toml", 0o755))

	got, err := Glob(fs, "/conf", []string{"**/*.{toml,yaml}"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/conf", "a.yaml"),
		filepath.Join("/conf", "b.toml"),
		filepath.Join("/conf", "nested", "c.toml"),
	}, got)
}

func TestGlobBadPattern(t *testing.T) {
	_, err := Glob(afero.NewMemMapFs(), "/", []string{"*.toml", "["})
	assert.ErrorIs(t, err, doublestar.ErrBadPattern)

	_, err = Glob(afero.NewMemMapFs(), "/", []string{"*.toml"}, WithPriority("["))
	assert.ErrorIs(t, err, doublestar.ErrBadPattern)
}

func TestGlobMultiplePatterns(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/app.toml", "/d/app.yaml", "/d/extra.json")

	got, err := Glob(fs, "/d", []string{"*.toml", "app.*", "*.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/d/app.toml", "/d/app.yaml", "/d/extra.json"}, got, "overlapping patterns list each file once")
}

func TestGlobMaxDepth(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/r/a.toml", "/r/one/b.toml", "/r/one/two/c.toml")

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"/r/a.toml"}},
		{1, []string{"/r/a.toml", "/r/one/b.toml"}},
		{5, []string{"/r/a.toml", "/r/one/b.toml", "/r/one/two/c.toml"}},
		{-1, []string{"/r/a.toml", "/r/one/b.toml", "/r/one/two/c.toml"}},
	}
	for _, tt := range tests {
		got, err := Glob(fs, "/r", []string{"**/*.toml"}, WithMaxDepth(tt.depth))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "depth %d", tt.depth)
	}
}

func TestGlobOrders(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	files := []struct {
		path    string
		size    int
		modTime time.Time
	}{
		{"/o/base.toml", 30, base.Add(2 * time.Hour)},
		{"/o/local.toml", 10, base},
		{"/o/zz-override.toml", 20, base.Add(time.Hour)},
		{"/o/sub/all.toml", 40, base.Add(3 * time.Hour)},
	}
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f.path, []byte(strings.Repeat("#", f.size)), 0o644))
		require.NoError(t, fs.Chtimes(f.path, f.modTime, f.modTime))
	}

	tests := []struct {
		name string
		opts []GlobOption
		want []string
	}{
		{"default", nil, []string{"/o/sub/all.toml", "/o/base.toml", "/o/local.toml", "/o/zz-override.toml"}},
		{"alphabetical", []GlobOption{WithOrder(OrderAlphabetical)}, []string{"/o/sub/all.toml", "/o/base.toml", "/o/local.toml", "/o/zz-override.toml"}},
		{"reverse", []GlobOption{WithOrder(OrderReverse)}, []string{"/o/zz-override.toml", "/o/local.toml", "/o/base.toml", "/o/sub/all.toml"}},
		{"size", []GlobOption{WithOrder(OrderSizeAscending)}, []string{"/o/local.toml", "/o/zz-override.toml", "/o/base.toml", "/o/sub/all.toml"}},
		{"size desc", []GlobOption{WithOrder(OrderSizeDescending)}, []string{"/o/sub/all.toml", "/o/base.toml", "/o/zz-override.toml", "/o/local.toml"}},
		{"mtime", []GlobOption{WithOrder(OrderModTimeAscending)}, []string{"/o/local.toml", "/o/zz-override.toml", "/o/base.toml", "/o/sub/all.toml"}},
		{"mtime desc", []GlobOption{WithOrder(OrderModTimeDescending)}, []string{"/o/sub/all.toml", "/o/base.toml", "/o/zz-override.toml", "/o/local.toml"}},
		{"priority", []GlobOption{WithPriority("base.*", "local.*")}, []string{"/o/base.toml", "/o/local.toml", "/o/sub/all.toml", "/o/zz-override.toml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Glob(fs, "/o", []string{"**/*.toml"}, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlobOrderTiesUseName(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/t/b.toml", "/t/a.toml", "/t/c.toml")

	got, err := Glob(fs, "/t", []string{"*.toml"}, WithOrder(OrderSizeDescending))
	require.NoError(t, err)
	assert.Equal(t, []string{"/t/a.toml", "/t/b.toml", "/t/c.toml"}, got)
}

func TestParseOrder(t *testing.T) {
	for _, o := range []Order{OrderAlphabetical, OrderReverse, OrderSizeAscending, OrderSizeDescending, OrderModTimeAscending, OrderModTimeDescending} {
		got, err := ParseOrder(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	assert.Equal(t, "priority", OrderPriority.String())
	assert.Equal(t, "unknown", Order(99).String())

	_, err := ParseOrder("priority")
	assert.Error(t, err)
	_, err = ParseOrder("random")
	assert.Error(t, err)
}
