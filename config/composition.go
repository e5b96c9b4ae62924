package config

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/stratum/config/discovery"
	"github.com/dshills/stratum/config/layer"
	"github.com/dshills/stratum/config/loader"
	"github.com/dshills/stratum/config/value"
)

// Composition accumulates configuration layers and merges them on demand.
//
// Every With method returns a new Composition and leaves the receiver
// untouched, so a partially built composition can be shared and extended
// along different branches. A single Composition is not safe for
// concurrent use while it is being extended; a finished one may be read
// from several goroutines.
type Composition struct {
	opts   *options
	logger zerolog.Logger
	layers []layer.Layer
	diags  []Diagnostic
	err    error
	merge  *mergeResult
}

type mergeResult struct {
	once  sync.Once
	value value.Value
	diags []Diagnostic
}

type options struct {
	logger      zerolog.Logger
	detector    *loader.Detector
	environ     func() []string
	discovery   []discovery.Option
	validate    *validator.Validate
	incremental bool
}

// Option configures a Composition.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDetector sets the file loader. The default shares the process-wide
// file cache.
func WithDetector(d *loader.Detector) Option {
	return func(o *options) {
		if d != nil {
			o.detector = d
		}
	}
}

// WithEnviron sets the source of environment variables, in "KEY=value"
// form. The default reads the process environment.
func WithEnviron(fn func() []string) Option {
	return func(o *options) {
		if fn != nil {
			o.environ = fn
		}
	}
}

// WithDiscoveryOptions sets options passed to the hierarchical finder.
// The detector's filesystem is always used.
func WithDiscoveryOptions(opts ...discovery.Option) Option {
	return func(o *options) {
		o.discovery = append(o.discovery, opts...)
	}
}

// WithValidator validates extracted structs with v. Pass nil to use a
// validator with default settings.
func WithValidator(v *validator.Validate) Option {
	return func(o *options) {
		if v == nil {
			v = validator.New(validator.WithRequiredStructEnabled())
		}
		o.validate = v
	}
}

// WithIncrementalDirectives resolves array directives after every layer
// instead of once after all layers are merged.
func WithIncrementalDirectives() Option {
	return func(o *options) {
		o.incremental = true
	}
}

// New creates an empty composition.
func New(opts ...Option) *Composition {
	o := &options{
		logger:   zerolog.Nop(),
		detector: loader.Default(),
		environ:  loader.EnvironSnapshot,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Composition{
		opts:   o,
		logger: o.logger.With().Str("composition", uuid.NewString()).Logger(),
		merge:  &mergeResult{},
	}
}

// derive returns a copy that can be extended without affecting c.
func (c *Composition) derive() *Composition {
	n := *c
	n.layers = slices.Clip(c.layers)
	n.diags = slices.Clip(c.diags)
	n.merge = &mergeResult{}
	return &n
}

func (c *Composition) push(l layer.Layer) {
	c.layers = append(c.layers, l)
	c.logger.Debug().
		EmbedObject(l.Meta).
		Int("keys", l.Value.Len()).
		Msg("layer added")
}

// fail records a required-layer failure. Later With calls are no-ops.
func (c *Composition) fail(err error) {
	c.err = err
	var m zerolog.LogObjectMarshaler
	ev := c.logger.Error().Err(err)
	if errors.As(err, &m) {
		ev = ev.EmbedObject(m)
	}
	ev.Msg("composition failed")
}

// WithDefaults adds a defaults layer. defaults may be a value.Value, a
// struct (encoded through its json tags), a map or any value accepted by
// value.FromInterface. A nil defaults adds nothing.
func (c *Composition) WithDefaults(defaults any) *Composition {
	if c.err != nil || defaults == nil {
		return c
	}
	n := c.derive()
	v, err := toValue(defaults)
	if err != nil {
		n.fail(fmt.Errorf("defaults: %w", err))
		return n
	}
	n.push(layer.New(layer.KindDefaults, "defaults", v))
	return n
}

// WithDefaultsString adds a defaults layer parsed from content, whose
// format is sniffed.
func (c *Composition) WithDefaultsString(content string) *Composition {
	if c.err != nil {
		return c
	}
	n := c.derive()
	doc, err := c.opts.detector.Parse("", []byte(content))
	if err != nil {
		n.fail(err)
		return n
	}
	l := layer.New(layer.KindDefaults, "defaults", doc.Value)
	l.Meta.Format = doc.Format.String()
	n.push(l)
	return n
}

// WithFile adds a required file layer. A path without an extension that
// does not exist is resolved by trying path+ext for each of
// loader.Extensions. A file that cannot be read or parsed makes the
// composition fail with a *loader.LoadError.
func (c *Composition) WithFile(path string) *Composition {
	if c.err != nil {
		return c
	}
	n := c.derive()
	doc, err := c.opts.detector.LoadBase(path)
	if err != nil {
		n.fail(err)
		return n
	}
	n.push(fileLayer(doc))
	return n
}

// WithOptionalFile adds a file layer that may be missing or broken. Paths
// are resolved as for WithFile. A missing file is recorded as an info diagnostic and any other failure as
// a warning; either way the layer is left out.
func (c *Composition) WithOptionalFile(path string) *Composition {
	if c.err != nil {
		return c
	}
	n := c.derive()
	n.loadOptional(path)
	return n
}

func (c *Composition) loadOptional(path string) {
	doc, err := c.opts.detector.LoadBase(path)
	if err == nil {
		c.push(fileLayer(doc))
		return
	}

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  err.Error(),
		Source:   layer.Meta{Kind: layer.KindFile, Location: path},
		Err:      err,
	}
	var le *loader.LoadError
	if errors.As(err, &le) {
		d.Source.Location = le.Path
		d.Source.Line = le.Line
		if le.NotFound() {
			d.Severity = SeverityInfo
			d.Message = "optional config file not found: " + le.Path
		}
	}
	c.diagnose(d)
}

// WithHierarchical adds one file layer for every configuration file found
// for app across the system, user, ancestor and project levels, lowest
// precedence first. Files that fail to load become warnings.
func (c *Composition) WithHierarchical(app string) *Composition {
	if c.err != nil {
		return c
	}
	n := c.derive()
	opts := append(slices.Clip(c.opts.discovery), discovery.WithFS(c.opts.detector.FS()))
	for _, found := range discovery.New(opts...).Discover(app) {
		c.logger.Debug().Str("level", found.Level.String()).Str("path", found.Path).Msg("config file discovered")
		n.loadOptional(found.Path)
	}
	return n
}

// WithGlob adds one optional file layer for every file under root that
// matches any of patterns, alphabetically by file name unless an order
// option says otherwise. Doublestar patterns such as "conf.d/**/*.toml"
// are supported. An invalid pattern adds nothing and is reported as a
// warning.
func (c *Composition) WithGlob(root string, patterns []string, opts ...discovery.GlobOption) *Composition {
	if c.err != nil {
		return c
	}
	n := c.derive()
	matches, err := discovery.Glob(c.opts.detector.FS(), root, patterns, opts...)
	if err != nil {
		n.diagnose(Diagnostic{
			Severity: SeverityWarning,
			Message:  err.Error(),
			Source:   layer.Meta{Kind: layer.KindFile, Location: root},
			Err:      err,
		})
		return n
	}
	for _, path := range matches {
		n.loadOptional(path)
	}
	return n
}

// WithEnvironment adds a layer built from variables named
// "<prefix>_<SEGMENT>_...". See loader.Structure.
func (c *Composition) WithEnvironment(prefix string, opts ...loader.EnvOption) *Composition {
	if c.err != nil {
		return c
	}
	n := c.derive()
	envOpts := append([]loader.EnvOption{loader.WithEnvLogger(c.logger)}, opts...)
	v := loader.Structure(prefix, c.opts.environ(), envOpts...)
	n.push(layer.New(layer.KindEnvironment, prefix, v))
	return n
}

// WithOverride adds a caller-supplied layer above everything added so far.
func (c *Composition) WithOverride(override any) *Composition {
	return c.withOverride(override, false)
}

// WithOverrideIgnoreEmpty is WithOverride with empty strings, sequences
// and mappings removed first, so unset CLI flags do not clobber lower
// layers.
func (c *Composition) WithOverrideIgnoreEmpty(override any) *Composition {
	return c.withOverride(override, true)
}

func (c *Composition) withOverride(override any, prune bool) *Composition {
	if c.err != nil || override == nil {
		return c
	}
	n := c.derive()
	v, err := toValue(override)
	if err != nil {
		n.fail(fmt.Errorf("override: %w", err))
		return n
	}
	if prune {
		v = value.PruneEmpty(v)
	}
	n.push(layer.New(layer.KindOverride, "override", v))
	return n
}

// WithLayer adds a layer built by the caller.
func (c *Composition) WithLayer(l layer.Layer) *Composition {
	if c.err != nil {
		return c
	}
	n := c.derive()
	n.push(l)
	return n
}

// Layers returns the layers in merge order.
func (c *Composition) Layers() []layer.Layer {
	return slices.Clone(c.layers)
}

// Err returns the error of the first required layer that failed.
func (c *Composition) Err() error {
	return c.err
}

// Diagnostics returns every diagnostic recorded while loading layers,
// followed by those produced by merging them.
func (c *Composition) Diagnostics() []Diagnostic {
	out := slices.Clone(c.diags)
	if c.err == nil {
		out = append(out, c.result().diags...)
	}
	return out
}

// HasWarnings reports whether any diagnostic is a warning.
func (c *Composition) HasWarnings() bool {
	return slices.ContainsFunc(c.Diagnostics(), func(d Diagnostic) bool {
		return d.Severity >= SeverityWarning
	})
}

// Merged returns the merged value of all layers.
func (c *Composition) Merged() (value.Value, error) {
	if c.err != nil {
		return value.Value{}, c.err
	}
	return c.result().value, nil
}

func (c *Composition) result() *mergeResult {
	r := c.merge
	r.once.Do(func() {
		values := layer.Values(c.layers)
		var conflicts []layer.Conflict
		if c.opts.incremental {
			r.value, conflicts = layer.MergeIncremental(values...)
		} else {
			r.value, conflicts = layer.MergeReport(values...)
		}
		for _, conflict := range conflicts {
			d := Diagnostic{Severity: SeverityWarning, Message: conflict.String()}
			r.diags = append(r.diags, d)
			c.logDiagnostic(d)
		}
		c.logger.Debug().Int("layers", len(c.layers)).Int("keys", r.value.Len()).Msg("layers merged")
	})
	return r
}

// Keys returns the top-level keys of the merged value.
func (c *Composition) Keys() ([]string, error) {
	v, err := c.Merged()
	if err != nil {
		return nil, err
	}
	return v.Keys(), nil
}

// HasKey reports whether the merged value holds path.
func (c *Composition) HasKey(path string) bool {
	v, err := c.Merged()
	if err != nil {
		return false
	}
	_, ok := v.Lookup(path)
	return ok
}

// Provenance returns the metadata of the highest layer that defines path,
// either directly or through an array directive.
func (c *Composition) Provenance(path string) (layer.Meta, bool) {
	segments := value.SplitPath(path)
	if len(segments) == 0 {
		return layer.Meta{}, false
	}
	parent, last := segments[:len(segments)-1], segments[len(segments)-1]
	for i := len(c.layers) - 1; i >= 0; i-- {
		v := c.layers[i].Value
		if _, ok := v.LookupSegments(segments); ok {
			return c.layers[i].Meta, true
		}
		for _, suffix := range []string{layer.AddSuffix, layer.RemoveSuffix} {
			if _, ok := v.LookupSegments(append(slices.Clip(parent), last+suffix)); ok {
				return c.layers[i].Meta, true
			}
		}
	}
	return layer.Meta{}, false
}

// AsJSON returns the merged value as indented JSON.
func (c *Composition) AsJSON() ([]byte, error) {
	v, err := c.Merged()
	if err != nil {
		return nil, err
	}
	return value.MarshalIndentJSON(v, "", "  ")
}

// AsYAML returns the merged value as YAML.
func (c *Composition) AsYAML() ([]byte, error) {
	v, err := c.Merged()
	if err != nil {
		return nil, err
	}
	return value.EncodeYAML(v)
}

// AsTOML returns the merged value as TOML. Null values are omitted.
func (c *Composition) AsTOML() ([]byte, error) {
	v, err := c.Merged()
	if err != nil {
		return nil, err
	}
	return value.EncodeTOML(v)
}

// toValue converts caller input into a tree. Structs go through
// encoding/json so their tags and field order are honored.
func toValue(in any) (value.Value, error) {
	switch in.(type) {
	case value.Value, *value.Value, encoding.TextMarshaler:
		return value.FromInterface(in)
	}
	rv := reflect.ValueOf(in)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return value.FromInterface(in)
	}

	data, err := json.Marshal(in)
	if err != nil {
		return value.Value{}, err
	}
	return value.DecodeJSON(bytes.NewReader(data))
}

func fileLayer(doc *loader.Document) layer.Layer {
	l := layer.New(layer.KindFile, doc.Path, doc.Value)
	l.Meta.Format = doc.Format.String()
	return l
}
