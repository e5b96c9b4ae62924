package access

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dshills/stratum/config/value"
)

func tree(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.DecodeJSON(strings.NewReader(s))
	if err != nil {
		t.Fatalf("DecodeJSON error = %v", err)
	}
	return v
}

func newTestAccessor(t *testing.T) *Accessor {
	t.Helper()
	values := tree(t, `{
		"server": {"host": "example.com", "port": 8080, "ratio": 0.5, "whole": 3.0, "tls": true, "none": null},
		"tags": ["a", "b"],
		"mixed": ["a", 1],
		"timeouts": {"read": "500ms", "write": 250, "idle": 1.5, "bad": "soon"}
	}`)
	defaults := tree(t, `{"server": {"host": "localhost", "workers": 4}, "log": {"level": "info"}}`)
	return NewWithDefaults(values, defaults)
}

func TestAccessor_Get(t *testing.T) {
	a := newTestAccessor(t)

	// Value from the tree wins over the default.
	v, err := a.Get("server.host")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !value.Equal(v, value.String("example.com")) {
		t.Errorf("server.host = %v, want example.com", v)
	}

	// Missing value falls back to the default.
	v, err = a.Get("server.workers")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !value.Equal(v, value.Int(4)) {
		t.Errorf("server.workers = %v, want 4", v)
	}

	_, err = a.Get("nonexistent.setting")
	if !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("Get(nonexistent) error = %v, want ErrSettingNotFound", err)
	}
}

func TestAccessor_Has(t *testing.T) {
	a := newTestAccessor(t)
	if !a.Has("log.level") {
		t.Error("Has(log.level) = false, want true from defaults")
	}
	if a.Has("log.format") {
		t.Error("Has(log.format) = true, want false")
	}
}

func TestAccessor_TypedGetters(t *testing.T) {
	a := newTestAccessor(t)

	if s, err := a.GetString("server.host"); err != nil || s != "example.com" {
		t.Errorf("GetString = %q, %v", s, err)
	}
	if i, err := a.GetInt("server.port"); err != nil || i != 8080 {
		t.Errorf("GetInt = %d, %v", i, err)
	}
	if i, err := a.GetInt64("server.whole"); err != nil || i != 3 {
		t.Errorf("GetInt64(whole float) = %d, %v", i, err)
	}
	if f, err := a.GetFloat64("server.ratio"); err != nil || f != 0.5 {
		t.Errorf("GetFloat64 = %v, %v", f, err)
	}
	if f, err := a.GetFloat64("server.port"); err != nil || f != 8080 {
		t.Errorf("GetFloat64(int) = %v, %v", f, err)
	}
	if b, err := a.GetBool("server.tls"); err != nil || !b {
		t.Errorf("GetBool = %v, %v", b, err)
	}
	if s, err := a.GetStringSlice("tags"); err != nil || !reflect.DeepEqual(s, []string{"a", "b"}) {
		t.Errorf("GetStringSlice = %v, %v", s, err)
	}
	m, err := a.GetMap("log")
	if err != nil || m["level"] != "info" {
		t.Errorf("GetMap = %v, %v", m, err)
	}
}

func TestAccessor_NullIsZero(t *testing.T) {
	a := newTestAccessor(t)

	if s, err := a.GetString("server.none"); err != nil || s != "" {
		t.Errorf("GetString(null) = %q, %v", s, err)
	}
	if i, err := a.GetInt("server.none"); err != nil || i != 0 {
		t.Errorf("GetInt(null) = %d, %v", i, err)
	}
}

func TestAccessor_TypeErrors(t *testing.T) {
	a := newTestAccessor(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"string from int", func() error { _, err := a.GetString("server.port"); return err }},
		{"int from fraction", func() error { _, err := a.GetInt("server.ratio"); return err }},
		{"int from string", func() error { _, err := a.GetInt("server.host"); return err }},
		{"bool from string", func() error { _, err := a.GetBool("server.host"); return err }},
		{"float from bool", func() error { _, err := a.GetFloat64("server.tls"); return err }},
		{"slice from mapping", func() error { _, err := a.GetStringSlice("server"); return err }},
		{"slice with int element", func() error { _, err := a.GetStringSlice("mixed"); return err }},
		{"map from sequence", func() error { _, err := a.GetMap("tags"); return err }},
		{"duration from bool", func() error { _, err := a.GetDuration("server.tls"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var te *TypeError
			if !errors.As(err, &te) {
				t.Fatalf("error = %v, want *TypeError", err)
			}
			if te.Path == "" || te.Expected == "" || te.Actual == "" {
				t.Errorf("incomplete TypeError: %+v", te)
			}
		})
	}
}

func TestAccessor_GetDuration(t *testing.T) {
	a := newTestAccessor(t)

	tests := []struct {
		path string
		want time.Duration
	}{
		{"timeouts.read", 500 * time.Millisecond},
		{"timeouts.write", 250 * time.Millisecond},
		{"timeouts.idle", 1500 * time.Microsecond},
	}

	for _, tt := range tests {
		got, err := a.GetDuration(tt.path)
		if err != nil {
			t.Errorf("GetDuration(%q) error = %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("GetDuration(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if _, err := a.GetDuration("timeouts.bad"); err == nil {
		t.Error("GetDuration(bad string) expected error")
	}
}

func TestTypeError_Error(t *testing.T) {
	err := &TypeError{Path: "a.b", Expected: "string", Actual: "integer"}
	want := "type error at a.b: expected string, got integer"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
