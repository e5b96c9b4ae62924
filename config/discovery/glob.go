package discovery

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Order decides the sequence glob matches are layered in. Later files take
// precedence over earlier ones.
type Order uint8

const (
	// OrderAlphabetical sorts by file name.
	OrderAlphabetical Order = iota
	// OrderReverse sorts by file name, descending.
	OrderReverse
	// OrderSizeAscending puts the smallest file first.
	OrderSizeAscending
	// OrderSizeDescending puts the largest file first.
	OrderSizeDescending
	// OrderModTimeAscending puts the oldest file first, so the newest wins.
	OrderModTimeAscending
	// OrderModTimeDescending puts the newest file first.
	OrderModTimeDescending
	// OrderPriority sorts by the first priority pattern each file name
	// matches. Set with WithPriority.
	OrderPriority
)

var orderNames = []string{
	OrderAlphabetical:      "alphabetical",
	OrderReverse:           "reverse",
	OrderSizeAscending:     "size",
	OrderSizeDescending:    "size-desc",
	OrderModTimeAscending:  "mtime",
	OrderModTimeDescending: "mtime-desc",
	OrderPriority:          "priority",
}

// String returns the order name accepted by ParseOrder.
func (o Order) String() string {
	if int(o) < len(orderNames) {
		return orderNames[o]
	}
	return "unknown"
}

// ParseOrder returns the order with the given name. OrderPriority cannot be
// selected by name because it needs patterns.
func ParseOrder(name string) (Order, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range orderNames {
		if n == name && Order(i) != OrderPriority {
			return Order(i), nil
		}
	}
	return OrderAlphabetical, fmt.Errorf("unknown glob order %q", name)
}

type globOptions struct {
	order    Order
	priority []string
	maxDepth int
}

// GlobOption configures Glob.
type GlobOption func(*globOptions)

// WithOrder sets the merge order. The default is OrderAlphabetical.
func WithOrder(o Order) GlobOption {
	return func(g *globOptions) {
		g.order = o
	}
}

// WithPriority selects OrderPriority. Files whose name matches
// patterns[0] come first, then patterns[1], and so on; files matching none
// come last. Ties are broken by file name.
func WithPriority(patterns ...string) GlobOption {
	return func(g *globOptions) {
		g.order = OrderPriority
		g.priority = patterns
	}
}

// WithMaxDepth limits matches to files at most n directories below root.
// Zero keeps only files directly in root; a negative n is unlimited, the
// default.
func WithMaxDepth(n int) GlobOption {
	return func(g *globOptions) {
		g.maxDepth = n
	}
}

type match struct {
	path    string
	name    string
	size    int64
	modTime time.Time
}

// Glob returns the files under root matching any of patterns, each file
// once, in merge order. Patterns use doublestar syntax: "**" crosses
// directories and "{a,b}" alternates. Sizes and modification times are
// read through fs; files that cannot be stat'ed sort as empty and old.
func Glob(fs afero.Fs, root string, patterns []string, opts ...GlobOption) ([]string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	o := globOptions{maxDepth: -1}
	for _, opt := range opts {
		opt(&o)
	}
	for _, p := range append(slices.Clip(patterns), o.priority...) {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, p)
		}
	}

	fsys := afero.NewIOFS(afero.NewBasePathFs(fs, root))
	seen := make(map[string]bool)
	var found []match
	for _, pattern := range patterns {
		rel, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range rel {
			if seen[m] || (o.maxDepth >= 0 && strings.Count(m, "/") > o.maxDepth) {
				continue
			}
			seen[m] = true
			path := filepath.Join(root, filepath.FromSlash(m))
			fm := match{path: path, name: filepath.Base(path)}
			if info, err := fs.Stat(path); err == nil {
				fm.size = info.Size()
				fm.modTime = info.ModTime()
			}
			found = append(found, fm)
		}
	}

	sortMatches(found, o)
	paths := make([]string, len(found))
	for i, m := range found {
		paths[i] = m.path
	}
	return paths, nil
}

func sortMatches(found []match, o globOptions) {
	byName := func(a, b match) int {
		return cmp.Or(cmp.Compare(a.name, b.name), cmp.Compare(a.path, b.path))
	}

	var less func(a, b match) int
	switch o.order {
	case OrderReverse:
		less = func(a, b match) int { return byName(b, a) }
	case OrderSizeAscending:
		less = func(a, b match) int { return cmp.Or(cmp.Compare(a.size, b.size), byName(a, b)) }
	case OrderSizeDescending:
		less = func(a, b match) int { return cmp.Or(cmp.Compare(b.size, a.size), byName(a, b)) }
	case OrderModTimeAscending:
		less = func(a, b match) int { return cmp.Or(a.modTime.Compare(b.modTime), byName(a, b)) }
	case OrderModTimeDescending:
		less = func(a, b match) int { return cmp.Or(b.modTime.Compare(a.modTime), byName(a, b)) }
	case OrderPriority:
		less = func(a, b match) int {
			return cmp.Or(cmp.Compare(priorityOf(a.name, o.priority), priorityOf(b.name, o.priority)), byName(a, b))
		}
	default:
		less = byName
	}
	slices.SortFunc(found, less)
}

// priorityOf returns the index of the first pattern name matches, or
// len(patterns) when none does.
func priorityOf(name string, patterns []string) int {
	for i, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return i
		}
	}
	return len(patterns)
}
