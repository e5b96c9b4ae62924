package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"

	"github.com/dshills/stratum/config/access"
	"github.com/dshills/stratum/config/value"
)

// Extract decodes the merged value into a new T.
//
// Decoding follows encoding/json rules, so struct fields are matched by
// their json tags. A value that does not fit T is reported as a
// *SchemaMismatchError; when a validator is configured, a struct that
// fails its tags is reported as a *ValidationError.
func Extract[T any](c *Composition) (T, error) {
	var out T
	err := c.ExtractInto(&out)
	return out, err
}

// ExtractPath decodes the value at path into a new T.
func ExtractPath[T any](c *Composition, path string) (T, error) {
	var out T
	v, err := c.Merged()
	if err != nil {
		return out, err
	}
	sub, ok := v.Lookup(path)
	if !ok {
		return out, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	if err := decodeValue(sub, &out, path); err != nil {
		return out, err
	}
	return out, c.validate(&out)
}

// ExtractInto decodes the merged value into dst, which must be a non-nil
// pointer.
func (c *Composition) ExtractInto(dst any) error {
	if err := checkTarget(dst); err != nil {
		return err
	}
	v, err := c.Merged()
	if err != nil {
		return err
	}
	if err := decodeValue(v, dst, ""); err != nil {
		return err
	}
	return c.validate(dst)
}

// ExtractOnto overlays the merged value onto the struct dst points to.
// Fields the configuration sets to a non-zero value replace those in dst;
// all other fields keep their current values.
func (c *Composition) ExtractOnto(dst any) error {
	if err := checkTarget(dst); err != nil {
		return err
	}
	if reflect.TypeOf(dst).Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: ExtractOnto needs a struct, got %T", ErrInvalidTarget, dst)
	}
	v, err := c.Merged()
	if err != nil {
		return err
	}

	fresh := reflect.New(reflect.TypeOf(dst).Elem())
	if err := decodeValue(v, fresh.Interface(), ""); err != nil {
		return err
	}
	if err := mergo.Merge(dst, fresh.Interface(), mergo.WithOverride); err != nil {
		return fmt.Errorf("overlay configuration: %w", err)
	}
	return c.validate(dst)
}

// Accessor returns a typed accessor over the merged value.
func (c *Composition) Accessor() (*access.Accessor, error) {
	v, err := c.Merged()
	if err != nil {
		return nil, err
	}
	return access.New(v), nil
}

func (c *Composition) validate(dst any) error {
	if c.opts.validate == nil {
		return nil
	}
	rv := reflect.ValueOf(dst)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := c.opts.validate.Struct(rv.Interface())
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		verr := &ValidationError{Fields: fields}
		c.logger.Debug().EmbedObject(verr).Msg("extracted configuration failed validation")
		return verr
	}
	return err
}

func checkTarget(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: got %T", ErrInvalidTarget, dst)
	}
	return nil
}

// decodeValue runs v through encoding/json into dst. prefix is prepended
// to error paths when decoding a subtree.
func decodeValue(v value.Value, dst any, prefix string) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return &SchemaMismatchError{Path: prefix, Expected: targetName(dst), Found: err.Error(), Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(dst); err != nil {
		return schemaMismatch(err, dst, prefix)
	}
	return nil
}

func schemaMismatch(err error, dst any, prefix string) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := typeErr.Field
		if prefix != "" {
			path = joinPath(prefix, path)
		}
		expected := "value"
		if typeErr.Type != nil {
			expected = typeErr.Type.String()
		}
		return &SchemaMismatchError{Path: path, Expected: expected, Found: typeErr.Value, Err: err}
	}
	return &SchemaMismatchError{Path: prefix, Expected: targetName(dst), Found: err.Error(), Err: err}
}

func targetName(dst any) string {
	t := reflect.TypeOf(dst)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "nil"
	}
	return t.String()
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	default:
		return prefix + "." + path
	}
}
