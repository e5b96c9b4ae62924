// Package config composes configuration from layered sources into a single
// value that can be decoded into a caller-defined type.
//
// # Architecture
//
// A Composition is an ordered list of layers. Later layers override
// earlier ones:
//
//	┌─────────────────────────────┐
//	│  Overrides (CLI flags)      │  ← Highest priority
//	├─────────────────────────────┤
//	│  Environment Variables      │  ← APP_SERVER_PORT=8080
//	├─────────────────────────────┤
//	│  Explicit File              │  ← APP_CONFIG or WithFile
//	├─────────────────────────────┤
//	│  Project Root               │  ← .app/config.toml
//	├─────────────────────────────┤
//	│  Working Dir and Ancestors  │  ← app.yaml, .app.json
//	├─────────────────────────────┤
//	│  User                       │  ← ~/.config/app/config.toml
//	├─────────────────────────────┤
//	│  System                     │  ← /etc/app/config.toml
//	├─────────────────────────────┤
//	│  Defaults                   │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - value: the configuration value tree and its encoders
//   - loader: format detection, parsing, the file cache and environment structuring
//   - discovery: hierarchical and glob file discovery
//   - layer: layer metadata and the array-aware merge engine
//   - access: typed path-based reads
//   - watcher: file watching for live reload
//
// # Basic Usage
//
//	type Settings struct {
//	    Server struct {
//	        Host string `json:"host"`
//	        Port int    `json:"port" validate:"min=1,max=65535"`
//	    } `json:"server"`
//	    Features []string `json:"features"`
//	}
//
//	c := config.New(config.WithValidator(nil)).
//	    WithDefaults(map[string]any{"server": map[string]any{"host": "localhost", "port": 8080}}).
//	    WithHierarchical("myapp").
//	    WithEnvironment("MYAPP")
//
//	settings, err := config.Extract[Settings](c)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range c.Diagnostics() {
//	    log.Println(d)
//	}
//
// # Array Directives
//
// Arrays are replaced by default. A sibling key with an "_add" or
// "_remove" suffix edits the array instead:
//
//	# defaults: features = ["auth", "metrics"]
//	features_add = ["search"]
//	features_remove = ["metrics"]
//	# result:   features = ["auth", "search"]
//
// Environment variables take part too: MYAPP_FEATURES_ADD='["beta"]'.
//
// # Error Handling
//
// Required layers (WithFile) that fail stop the composition; the error is
// returned by Err, Merged and every Extract call. Optional layers that fail
// are dropped and recorded as diagnostics.
package config
