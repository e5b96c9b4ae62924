package loader

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/stratum/config/value"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"config.json", FormatJSON},
		{"/etc/app/config.JSON", FormatJSON},
		{"settings.jsonc", FormatJSONC},
		{"app.toml", FormatTOML},
		{"app.yaml", FormatYAML},
		{"app.yml", FormatYAML},
		{"prod.env", FormatEnv},
		{".env", FormatEnv},
		{"/srv/.env.local", FormatEnv},
		{"config", FormatUnknown},
		{"config.conf", FormatUnknown},
	}

	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Errorf("FormatForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestParseFormatName(t *testing.T) {
	for name, want := range map[string]Format{
		"json": FormatJSON, "JSONC": FormatJSONC, ".toml": FormatTOML,
		"yml": FormatYAML, "yaml": FormatYAML, "dotenv": FormatEnv,
	} {
		got, err := ParseFormatName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseFormatName("ini")
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Format
	}{
		{"json object", `  {"a": 1}`, FormatJSON},
		{"json array", `[1, 2, 3]`, FormatJSON},
		{"json string array", `["a", "b"]`, FormatJSON},
		{"toml table first", "[server]\nport = 80\n", FormatTOML},
		{"toml array of tables", "[[products]]\nname = \"x\"\n", FormatTOML},
		{"toml table later", "title = \"x\"\n\n[db]\nhost = \"h\"\n", FormatTOML},
		{"yaml document marker", "---\nname: x\n", FormatYAML},
		{"yaml directive", "%YAML 1.2\n---\na: 1\n", FormatYAML},
		{"yaml mapping", "# comment\nname: app\nport: 80\n", FormatYAML},
		{"yaml list", "- a\n- b\n", FormatYAML},
		{"env lines", "PORT=8080\nHOST=localhost\n", FormatEnv},
		{"env export", "# secrets\nexport API_KEY=abc\n", FormatEnv},
		{"toml assignments", "port = 8080\nhost = \"localhost\"\n", FormatTOML},
		{"lowercase assignment", "port=8080\n", FormatTOML},
		{"mixed env and toml", "PORT=1\nhost = \"x\"\n", FormatTOML},
		{"bom", "\xEF\xBB\xBF{\"a\":1}", FormatJSON},
		{"unknown", "just some words", FormatJSON},
		{"empty", "", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff([]byte(tt.content)))
		})
	}
}

func TestDetectFormatPrefersExtension(t *testing.T) {
	assert.Equal(t, FormatTOML, DetectFormat("x.toml", []byte(`{"looks":"like json"}`)))
	assert.Equal(t, FormatJSON, DetectFormat("noext", []byte(`{"a":1}`)))
}

func TestParseEachFormat(t *testing.T) {
	want := value.NewMapping(
		value.P("name", value.String("app")),
		value.P("port", value.Int(8080)),
		value.P("tags", value.Sequence(value.String("a"), value.String("b"))),
		value.P("db", value.NewMapping(value.P("host", value.String("localhost")))),
	)

	tests := []struct {
		path    string
		content string
		format  Format
	}{
		{"c.json", `{"name":"app","port":8080,"tags":["a","b"],"db":{"host":"localhost"}}`, FormatJSON},
		{"c.jsonc", `{
			// service name
			"name": "app",
			"port": 8080, /* http */
			"tags": ["a", "b",],
			"db": {"host": "localhost",},
		}`, FormatJSONC},
		{"c.toml", "name = \"app\"\nport = 8080\ntags = [\"a\", \"b\"]\n\n[db]\nhost = \"localhost\"\n", FormatTOML},
		{"c.yaml", "name: app\nport: 8080\ntags: [a, b]\ndb:\n  host: localhost\n", FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, f, err := Parse(tt.path, []byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.format, f)
			assert.True(t, value.Equal(got, want), "Parse() = %v", got)
		})
	}
}

func TestParseTOMLKeepsDocumentOrder(t *testing.T) {
	content := `zeta = 1
alpha = 2
"quoted key" = 3
point = { y = 1, x = 2 }
b.z = 1
b.a = 2

[mid]
second = true
first = false

[[items]]
name = "n"
id = 1

[[items]]
name = "m"
id = 2
`
	got, _, err := Parse("order.toml", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "quoted key", "point", "b", "mid", "items"}, got.Keys())
	tests := []struct {
		path string
		want []string
	}{
		{"point", []string{"y", "x"}},
		{"b", []string{"z", "a"}},
		{"mid", []string{"second", "first"}},
		{"items.0", []string{"name", "id"}},
		{"items.1", []string{"name", "id"}},
	}
	for _, tt := range tests {
		v, ok := got.Lookup(tt.path)
		require.True(t, ok, tt.path)
		assert.Equal(t, tt.want, v.Keys(), tt.path)
	}
}

func TestParseEnvFile(t *testing.T) {
	content := "# service\nPORT=8080\nNAME=\"hello world\"\nexport DEBUG=true\nLIST=[1,2]\n"

	got, f, err := Parse(".env", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, FormatEnv, f)

	want := value.NewMapping(
		value.P("DEBUG", value.Bool(true)),
		value.P("LIST", value.Sequence(value.Int(1), value.Int(2))),
		value.P("NAME", value.String("hello world")),
		value.P("PORT", value.Int(8080)),
	)
	assert.True(t, value.Equal(got, want), "Parse() = %v", got)
	assert.Equal(t, []string{"DEBUG", "LIST", "NAME", "PORT"}, got.Keys())
}

func TestParseBlankIsEmptyMapping(t *testing.T) {
	for _, path := range []string{"a.json", "a.toml", "a.yaml", "a.env", "a.jsonc", "noext"} {
		got, _, err := Parse(path, []byte("  \n\t\n"))
		require.NoError(t, err, path)
		assert.True(t, got.IsMapping() && got.Len() == 0, "%s: %v", path, got)
	}

	got, _, err := Parse("a.yaml", []byte("# only a comment\n"))
	require.NoError(t, err)
	assert.True(t, got.IsMapping() && got.Len() == 0)
}

func TestParseTopLevelSequence(t *testing.T) {
	got, _, err := Parse("list.json", []byte(`[1, 2]`))
	require.NoError(t, err)
	assert.True(t, got.IsSequence())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		format   Format
		wantLine int
	}{
		{"json", "bad.json", "{\n  \"a\": 1,\n  \"b\": }\n", FormatJSON, 3},
		{"json trailing", "bad.json", `{"a":1} x`, FormatJSON, 0},
		{"toml", "bad.toml", "a = 1\nb = \n", FormatTOML, -1},
		{"yaml", "bad.yaml", "a: b\nc: [1, 2\n", FormatYAML, -1},
		{"extension not second-guessed", "data.toml", `{"a": 1}`, FormatTOML, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.path, []byte(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
			assert.False(t, errors.Is(err, ErrIO))

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.format, le.Format)
			assert.Equal(t, tt.path, le.Path)
			assert.Contains(t, le.Error(), tt.format.String())

			switch {
			case tt.wantLine > 0:
				assert.Equal(t, tt.wantLine, le.Line)
			case tt.wantLine < 0:
				assert.Positive(t, le.Line)
			}
		})
	}
}

func TestLoadErrorMessages(t *testing.T) {
	ioErr := &LoadError{Kind: KindIO, Path: "/x", Message: "permission denied"}
	assert.Equal(t, "reading config file /x: permission denied", ioErr.Error())

	pe := &LoadError{Kind: KindParse, Path: "/x.toml", Format: FormatTOML, Line: 2, Column: 5, Message: "bad"}
	assert.True(t, strings.HasPrefix(pe.Error(), "toml parse error in /x.toml at line 2, column 5"))
}
