package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/stratum/config/loader"
)

type serverSettings struct {
	Host string `json:"host"`
	Port int    `json:"port" validate:"min=1,max=65535"`
}

type appSettings struct {
	Name     string         `json:"name" validate:"required"`
	Server   serverSettings `json:"server"`
	Features []string       `json:"features"`
	Timeout  string         `json:"timeout"`
}

func sampleComposition(t *testing.T, opts ...Option) *Composition {
	t.Helper()
	fs := newTestFS(t, map[string]string{
		"/app.yaml": "name: svc\nserver:\n  host: example.com\n  port: 8080\nfeatures: [a, b]\ntimeout: 5s\n",
	})
	return newTestComposition(fs, nil, opts...).WithFile("/app.yaml")
}

func TestExtract(t *testing.T) {
	got, err := Extract[appSettings](sampleComposition(t))
	require.NoError(t, err)

	assert.Equal(t, appSettings{
		Name:     "svc",
		Server:   serverSettings{Host: "example.com", Port: 8080},
		Features: []string{"a", "b"},
		Timeout:  "5s",
	}, got)
}

func TestExtractSchemaMismatch(t *testing.T) {
	c := sampleComposition(t).WithOverride(map[string]any{
		"server": map[string]any{"port": "not-a-number"},
	})

	_, err := Extract[appSettings](c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, "server.port", sm.Path)
	assert.Equal(t, "int", sm.Expected)
	assert.Equal(t, "string", sm.Found)
	assert.Equal(t, "schema mismatch at server.port: expected int, found string", sm.Error())
}

func TestExtractRootMismatch(t *testing.T) {
	_, err := Extract[[]string](sampleComposition(t))
	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, "", sm.Path)
	assert.Contains(t, sm.Error(), "<root>")
}

func TestExtractValidation(t *testing.T) {
	c := sampleComposition(t, WithValidator(nil)).
		WithOverride(map[string]any{"name": "", "server": map[string]any{"port": 0}})

	_, err := Extract[appSettings](c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, verr.Error(), "appSettings.Name")
	assert.Contains(t, verr.Error(), "appSettings.Server.Port")

	// Without a validator the same data extracts.
	noValidation := sampleComposition(t).
		WithOverride(map[string]any{"name": "", "server": map[string]any{"port": 0}})
	_, err = Extract[appSettings](noValidation)
	assert.NoError(t, err)
}

func TestExtractPath(t *testing.T) {
	c := sampleComposition(t)

	port, err := ExtractPath[int](c, "server.port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	server, err := ExtractPath[serverSettings](c, "server")
	require.NoError(t, err)
	assert.Equal(t, "example.com", server.Host)

	_, err = ExtractPath[int](c, "server.missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	bad := c.WithOverride(map[string]any{"server": map[string]any{"port": true}})
	_, err = ExtractPath[serverSettings](bad, "server")
	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, "server.port", sm.Path)
	assert.Equal(t, "bool", sm.Found)
}

func TestExtractOnto(t *testing.T) {
	fs := newTestFS(t, map[string]string{"/app.toml": "[server]\nport = 9090\n"})
	c := newTestComposition(fs, nil).WithFile("/app.toml")

	dst := appSettings{
		Name:   "preset",
		Server: serverSettings{Host: "keep.example.com", Port: 1},
	}
	require.NoError(t, c.ExtractOnto(&dst))

	assert.Equal(t, "preset", dst.Name)
	assert.Equal(t, "keep.example.com", dst.Server.Host)
	assert.Equal(t, 9090, dst.Server.Port)
}

func TestExtractInvalidTargets(t *testing.T) {
	c := sampleComposition(t)

	var settings appSettings
	assert.ErrorIs(t, c.ExtractInto(settings), ErrInvalidTarget)
	assert.ErrorIs(t, c.ExtractInto((*appSettings)(nil)), ErrInvalidTarget)

	var m map[string]any
	assert.ErrorIs(t, c.ExtractOnto(&m), ErrInvalidTarget)
}

func TestExtractAfterFailure(t *testing.T) {
	c := sampleComposition(t).WithFile("/missing.json")

	_, err := Extract[appSettings](c)
	assert.ErrorIs(t, err, loader.ErrNotFound)
	assert.False(t, errors.Is(err, ErrSchemaMismatch))

	var dst appSettings
	assert.ErrorIs(t, c.ExtractOnto(&dst), loader.ErrNotFound)
	_, err = c.Accessor()
	assert.ErrorIs(t, err, loader.ErrNotFound)
}

func TestCompositionAccessor(t *testing.T) {
	a, err := sampleComposition(t).Accessor()
	require.NoError(t, err)

	port, err := a.GetInt("server.port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	timeout, err := a.GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)

	features, err := a.GetStringSlice("features")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, features)
}
