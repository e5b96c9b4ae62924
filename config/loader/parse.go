package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/dshills/stratum/config/value"
)

var yamlErrLineRe = regexp.MustCompile(`line (\d+)`)

// Parse detects the format of raw content read from path and parses it.
// Parse failures are reported as a *LoadError tagged with the attempted
// format; a recognized extension is never second-guessed.
func Parse(path string, raw []byte) (value.Value, Format, error) {
	f := DetectFormat(path, raw)
	v, err := ParseFormat(f, raw)
	if err != nil {
		return value.Value{}, f, parseError(path, f, raw, err)
	}
	return v, f, nil
}

// ParseFormat parses raw content with the given format. Blank content is
// an empty mapping in every format.
func ParseFormat(f Format, raw []byte) (value.Value, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return value.EmptyMapping(), nil
	}
	return decode(f, bytes.NewReader(raw))
}

func decode(f Format, r io.Reader) (value.Value, error) {
	switch f {
	case FormatJSON:
		return value.DecodeJSON(r)

	case FormatJSONC:
		data, err := io.ReadAll(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.DecodeJSON(bytes.NewReader(jsonc.ToJSON(data)))

	case FormatTOML:
		data, err := io.ReadAll(r)
		if err != nil {
			return value.Value{}, err
		}
		return tomlValue(data)

	case FormatYAML:
		var doc yaml.Node
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return value.EmptyMapping(), nil
			}
			return value.Value{}, err
		}
		return value.FromYAMLNode(&doc)

	case FormatEnv:
		m, err := godotenv.Parse(r)
		if err != nil {
			return value.Value{}, err
		}
		return envFileValue(m), nil

	default:
		return value.Value{}, fmt.Errorf("unsupported format %s", f)
	}
}

// envFileValue keeps keys verbatim and coerces values like environment
// variables.
func envFileValue(m map[string]string) value.Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := value.NewBuilder()
	for _, k := range keys {
		b.Set(k, InferValue(m[k]))
	}
	return b.Build()
}

func parseError(path string, f Format, raw []byte, err error) *LoadError {
	le := &LoadError{
		Kind:    KindParse,
		Path:    path,
		Format:  f,
		Message: err.Error(),
		Err:     err,
	}

	var syntaxErr *json.SyntaxError
	var decodeErr *toml.DecodeError
	switch {
	case errors.As(err, &syntaxErr):
		le.Line = lineAt(raw, syntaxErr.Offset)
	case errors.As(err, &decodeErr):
		le.Line, le.Column = decodeErr.Position()
	case f == FormatYAML:
		if m := yamlErrLineRe.FindStringSubmatch(err.Error()); m != nil {
			le.Line, _ = strconv.Atoi(m[1])
		}
	}

	return le
}

// lineAt returns the 1-based line containing byte offset, or 0 when raw is
// unavailable.
func lineAt(raw []byte, offset int64) int {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(raw) == 0 {
		return 0
	}
	offset = min(max(offset, 0), int64(len(raw)))
	return bytes.Count(raw[:offset], []byte{'\n'}) + 1
}
