package cli

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/stratum/config/value"
)

// parseSets turns repeated "path=value" flags into one override tree.
// Values that are valid JSON (numbers, booleans, arrays, objects, quoted
// strings) are kept as JSON; anything else is a plain string. Later flags
// win.
func parseSets(sets []string) (value.Value, error) {
	doc := "{}"
	for _, set := range sets {
		path, raw, ok := strings.Cut(set, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return value.Value{}, fmt.Errorf("invalid --set %q: want path=value", set)
		}

		var err error
		if gjson.Valid(raw) {
			doc, err = sjson.SetRaw(doc, path, raw)
		} else {
			doc, err = sjson.Set(doc, path, raw)
		}
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid --set %q: %w", set, err)
		}
	}
	return value.DecodeJSON(strings.NewReader(doc))
}

// getPath returns the value at a gjson path in the merged JSON. Strings
// are returned bare, everything else as JSON.
func getPath(doc []byte, path string) (string, bool) {
	res := gjson.GetBytes(doc, path)
	if !res.Exists() {
		return "", false
	}
	if res.Type == gjson.String {
		return res.String(), true
	}
	return res.Raw, true
}
