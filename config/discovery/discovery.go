// Package discovery locates configuration files across system, user and
// project scopes.
//
// Candidates are returned lowest precedence first:
//
//  1. the system directory (/etc/<app>, /Library/Application Support/<app>
//     on macOS, %ProgramData%\<app> on Windows), trying config.<ext>
//  2. the user directory ($XDG_CONFIG_HOME/<app> or the platform user
//     config directory), trying config.<ext>
//  3. every directory from the filesystem root down to the working
//     directory, trying <app>.<ext> and then .<app>.<ext>
//  4. the project root (nearest ancestor holding .git, else the working
//     directory), trying .<app>/config.<ext>
//
// At most one file per directory level is used: the first that exists in
// extension order. Missing files are expected and never reported.
package discovery

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/spf13/afero"

	"github.com/dshills/stratum/config/loader"
)

// DefaultExtensions is the order in which extensions are tried. It is a
// copy of loader.Extensions.
var DefaultExtensions = slices.Clone(loader.Extensions)

// DefaultProjectMarker identifies a project root.
const DefaultProjectMarker = ".git"

// Level is the scope a candidate belongs to.
type Level uint8

const (
	// LevelSystem is the machine-wide configuration directory.
	LevelSystem Level = iota
	// LevelUser is the per-user configuration directory.
	LevelUser
	// LevelAncestor is a directory between the filesystem root and the
	// working directory.
	LevelAncestor
	// LevelProject is the project root's explicit configuration directory.
	LevelProject
)

// String returns the name of the level.
func (l Level) String() string {
	switch l {
	case LevelSystem:
		return "system"
	case LevelUser:
		return "user"
	case LevelAncestor:
		return "ancestor"
	case LevelProject:
		return "project"
	default:
		return "unknown"
	}
}

// Candidate is one directory level together with the paths tried there.
type Candidate struct {
	Level Level
	Dir   string
	Paths []string
}

// Found is an existing configuration file.
type Found struct {
	Level Level
	Path  string
}

// Finder computes candidate paths and checks which exist.
type Finder struct {
	fs         afero.Fs
	workDir    string
	systemBase string
	userBase   string
	extensions []string
	marker     string
}

// Option configures a Finder.
type Option func(*Finder)

// WithFS sets the filesystem existence checks run against.
func WithFS(fs afero.Fs) Option {
	return func(f *Finder) {
		if fs != nil {
			f.fs = fs
		}
	}
}

// WithWorkDir sets the directory the ancestor walk starts from.
func WithWorkDir(dir string) Option {
	return func(f *Finder) {
		f.workDir = dir
	}
}

// WithSystemDir sets the parent of the system-level application
// directory. An empty dir disables the system level.
func WithSystemDir(dir string) Option {
	return func(f *Finder) {
		f.systemBase = dir
	}
}

// WithUserDir sets the parent of the user-level application directory.
// An empty dir disables the user level.
func WithUserDir(dir string) Option {
	return func(f *Finder) {
		f.userBase = dir
	}
}

// WithExtensions sets the extensions tried at each level, in order.
func WithExtensions(exts ...string) Option {
	return func(f *Finder) {
		if len(exts) > 0 {
			f.extensions = append([]string(nil), exts...)
		}
	}
}

// WithProjectMarker sets the file or directory name that identifies a
// project root.
func WithProjectMarker(name string) Option {
	return func(f *Finder) {
		if name != "" {
			f.marker = name
		}
	}
}

// New creates a Finder for the OS filesystem and the current working
// directory.
func New(opts ...Option) *Finder {
	f := &Finder{
		fs:         afero.NewOsFs(),
		systemBase: defaultSystemBase(),
		userBase:   defaultUserBase(),
		extensions: DefaultExtensions,
		marker:     DefaultProjectMarker,
	}
	if wd, err := os.Getwd(); err == nil {
		f.workDir = wd
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Candidates returns every directory level with the paths tried there,
// lowest precedence first.
func (f *Finder) Candidates(app string) []Candidate {
	if app == "" {
		return nil
	}

	var out []Candidate
	if f.systemBase != "" {
		dir := filepath.Join(f.systemBase, app)
		out = append(out, Candidate{Level: LevelSystem, Dir: dir, Paths: f.names(dir, "config")})
	}
	if f.userBase != "" {
		dir := filepath.Join(f.userBase, app)
		out = append(out, Candidate{Level: LevelUser, Dir: dir, Paths: f.names(dir, "config")})
	}

	if f.workDir == "" {
		return out
	}
	workDir := filepath.Clean(f.workDir)

	for _, dir := range ancestors(workDir) {
		out = append(out, Candidate{
			Level: LevelAncestor,
			Dir:   dir,
			Paths: append(f.names(dir, app), f.names(dir, "."+app)...),
		})
	}

	dir := filepath.Join(f.projectRoot(workDir), "."+app)
	out = append(out, Candidate{Level: LevelProject, Dir: dir, Paths: f.names(dir, "config")})

	return out
}

// Discover returns the existing files, lowest precedence first. Each
// directory level contributes at most one file and a path reached from
// two levels is reported once, at the first.
func (f *Finder) Discover(app string) []Found {
	var found []Found
	seen := make(map[string]bool)
	for _, c := range f.Candidates(app) {
		for _, p := range c.Paths {
			if !f.isFile(p) {
				continue
			}
			if !seen[p] {
				seen[p] = true
				found = append(found, Found{Level: c.Level, Path: p})
			}
			break
		}
	}
	return found
}

// Discover returns the existing configuration files for app.
func Discover(app string, opts ...Option) []Found {
	return New(opts...).Discover(app)
}

// DiscoverPaths returns the paths of the existing configuration files for
// app, lowest precedence first.
func DiscoverPaths(app string, opts ...Option) []string {
	found := Discover(app, opts...)
	paths := make([]string, len(found))
	for i, fd := range found {
		paths[i] = fd.Path
	}
	return paths
}

func (f *Finder) names(dir, stem string) []string {
	paths := make([]string, len(f.extensions))
	for i, ext := range f.extensions {
		paths[i] = filepath.Join(dir, stem+ext)
	}
	return paths
}

func (f *Finder) isFile(path string) bool {
	info, err := f.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// projectRoot returns the nearest ancestor of dir holding the project
// marker, or dir itself.
func (f *Finder) projectRoot(dir string) string {
	for current := dir; ; {
		if _, err := f.fs.Stat(filepath.Join(current, f.marker)); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}

// ancestors returns the directories from the filesystem root down to dir.
func ancestors(dir string) []string {
	var chain []string
	for current := dir; ; {
		chain = append(chain, current)
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func defaultSystemBase() string {
	switch runtime.GOOS {
	case "windows":
		if pd := os.Getenv("ProgramData"); pd != "" {
			return pd
		}
		return `C:\ProgramData`
	case "darwin":
		return "/Library/Application Support"
	default:
		return "/etc"
	}
}

func defaultUserBase() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}
