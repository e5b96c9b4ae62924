package loader

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/stratum/config/value"
)

// DefaultSeparator joins the prefix and path segments of an environment
// variable name.
const DefaultSeparator = "_"

var (
	intRe   = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatRe = regexp.MustCompile(`^[+-]?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)([eE][+-]?[0-9]+)?$`)

	sensitiveMarkers = []string{"password", "secret", "token", "key"}
)

// EnvOption configures Structure.
type EnvOption func(*envOptions)

type envOptions struct {
	separator   string
	splitLimit  int
	ignoreEmpty bool
	exclude     map[string]bool
	logger      zerolog.Logger
}

// WithSeparator sets the segment separator. The default is "_".
func WithSeparator(sep string) EnvOption {
	return func(o *envOptions) {
		if sep != "" {
			o.separator = sep
		}
	}
}

// WithSplitLimit caps the number of path segments produced from one
// variable; the last segment keeps any remaining separators. Zero or a
// negative limit splits on every separator.
func WithSplitLimit(n int) EnvOption {
	return func(o *envOptions) {
		o.splitLimit = n
	}
}

// IgnoreEmpty skips variables whose value is the empty string.
func IgnoreEmpty() EnvOption {
	return func(o *envOptions) {
		o.ignoreEmpty = true
	}
}

// Exclude skips the named variables. Names are matched exactly,
// including the prefix.
func Exclude(names ...string) EnvOption {
	return func(o *envOptions) {
		if o.exclude == nil {
			o.exclude = make(map[string]bool, len(names))
		}
		for _, name := range names {
			o.exclude[name] = true
		}
	}
}

// WithEnvLogger traces each structured variable. Values of variables whose
// names look sensitive are masked.
func WithEnvLogger(l zerolog.Logger) EnvOption {
	return func(o *envOptions) {
		o.logger = l
	}
}

// EnvironSnapshot returns the current process environment.
func EnvironSnapshot() []string {
	return os.Environ()
}

// Structure converts the variables in environ that start with prefix and
// the separator into a nested mapping.
//
// APP_DB_HOST=localhost becomes {"db": {"host": "localhost"}}. Segments are
// lower-cased and empty segments dropped. A trailing ADD or REMOVE segment
// stays attached to the previous one so that APP_FEATURES_ADD produces the
// array directive key "features_add". Values are inferred with InferValue.
//
// When a variable addresses a path below an existing leaf, the leaf is
// replaced by a mapping. Collisions are resolved last-write-wins in environ
// order. Structure never fails.
func Structure(prefix string, environ []string, opts ...EnvOption) value.Value {
	o := envOptions{
		separator: DefaultSeparator,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	want := ""
	if prefix != "" {
		want = strings.TrimSuffix(prefix, o.separator) + o.separator
	}

	root := value.EmptyMapping()
	for _, kv := range environ {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, want) {
			continue
		}
		if (o.ignoreEmpty && raw == "") || o.exclude[name] {
			continue
		}

		segments := splitSegments(name[len(want):], o.separator, o.splitLimit)
		if len(segments) == 0 {
			continue
		}

		v := InferValue(raw)
		o.logger.Trace().
			Str("var", name).
			Str("value", MaskValue(name, raw)).
			Str("path", strings.Join(segments, ".")).
			Str("type", v.Kind().String()).
			Msg("environment variable")

		root = value.SetPath(root, segments, v)
	}

	return root
}

func splitSegments(rest, sep string, limit int) []string {
	if rest == "" {
		return nil
	}

	var parts []string
	if limit > 0 {
		parts = strings.SplitN(rest, sep, limit)
	} else {
		parts = strings.Split(rest, sep)
	}

	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(p); p != "" {
			segments = append(segments, p)
		}
	}

	if n := len(segments); n > 1 {
		if last := segments[n-1]; last == "add" || last == "remove" {
			segments[n-2] += "_" + last
			segments = segments[:n-1]
		}
	}

	return segments
}

// InferValue coerces a raw environment string. The first matching rule
// wins: a JSON object or array literal, an integer, a float, true or false
// in any case, and finally the raw string.
func InferValue(raw string) value.Value {
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		if v, err := value.DecodeJSON(strings.NewReader(raw)); err == nil {
			return v
		}
	}

	if intRe.MatchString(raw) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return value.Int(i)
		}
	}

	if floatRe.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return value.Float(f)
		}
	}

	switch strings.ToLower(raw) {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}

	return value.String(raw)
}

// IsSensitive reports whether an environment variable name suggests a
// credential.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// MaskValue returns raw, or a mask when name is sensitive.
func MaskValue(name, raw string) string {
	if IsSensitive(name) {
		return "***"
	}
	return raw
}
