package loader

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"errors"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/dshills/stratum/config/value"
)

// StreamThreshold is the default file size above which content is decoded
// from a buffered stream instead of being read into memory first.
const StreamThreshold = 1 << 20

const streamBuf = 64 << 10

var errIsDir = errors.New("is a directory")

// Detector loads configuration files, detecting their format and caching
// the parsed result by modification time.
type Detector struct {
	fs              afero.Fs
	cache           *Cache
	streamThreshold int64
	logger          zerolog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithFS sets the filesystem files are read from.
func WithFS(fs afero.Fs) Option {
	return func(d *Detector) {
		if fs != nil {
			d.fs = fs
		}
	}
}

// WithCache sets the parsed-file cache. A nil cache disables caching.
func WithCache(c *Cache) Option {
	return func(d *Detector) {
		d.cache = c
	}
}

// WithStreamThreshold sets the size above which files are streamed.
func WithStreamThreshold(n int64) Option {
	return func(d *Detector) {
		if n > 0 {
			d.streamThreshold = n
		}
	}
}

// WithLogger sets the logger used for load events.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// NewDetector creates a detector. By default it reads the OS filesystem
// and shares the process-wide cache.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		fs:              afero.NewOsFs(),
		cache:           processCache,
		streamThreshold: StreamThreshold,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDetector = NewDetector()

// Default returns the detector backed by the OS filesystem and the
// process-wide cache.
func Default() *Detector {
	return defaultDetector
}

// FS returns the filesystem the detector reads from.
func (d *Detector) FS() afero.Fs {
	return d.fs
}

// Canonical returns the cache key for path: absolute and clean, with
// symlinks resolved on the OS filesystem.
func (d *Detector) Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.Clean(abs)
	if _, ok := d.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
	}
	return abs
}

// Invalidate drops any cached parse of path.
func (d *Detector) Invalidate(path string) {
	if d.cache != nil {
		d.cache.Invalidate(d.Canonical(path))
	}
}

// Parse detects and parses content that was already read from path. The
// cache is not consulted.
func (d *Detector) Parse(path string, raw []byte) (*Document, error) {
	v, f, err := Parse(path, raw)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Format: f, Value: v}, nil
}

// Load reads and parses the file at path.
//
// When the cache holds an entry whose modification time and size match the
// file, it is returned without touching the file contents. Filesystems that
// report no modification time fall back to comparing a content hash, which
// costs a read but not a parse.
func (d *Detector) Load(path string) (*Document, error) {
	key := d.Canonical(path)

	info, err := d.fs.Stat(key)
	if err != nil {
		return nil, ioError(key, err)
	}
	if info.IsDir() {
		return nil, &LoadError{Kind: KindIO, Path: key, Message: errIsDir.Error(), Err: errIsDir}
	}

	var (
		cached    cacheEntry
		hasCached bool
	)
	if d.cache != nil {
		cached, hasCached = d.cache.lookup(key)
		if hasCached && cached.fresh(info.ModTime(), info.Size()) {
			d.logger.Debug().Str("path", key).Str("format", cached.format.String()).Msg("config cache hit")
			return &Document{Path: key, Format: cached.format, Value: cached.value, Cached: true}, nil
		}
	}

	var (
		entry  cacheEntry
		reused bool
	)
	if info.Size() > d.streamThreshold {
		entry, reused, err = d.loadStream(key, cached, hasCached)
	} else {
		entry, reused, err = d.loadBytes(key, cached, hasCached)
	}
	if err != nil {
		return nil, err
	}

	entry.modTime = info.ModTime()
	entry.size = info.Size()
	if d.cache != nil {
		d.cache.store(key, entry)
	}

	d.logger.Debug().
		Str("path", key).
		Str("format", entry.format.String()).
		Int64("size", entry.size).
		Bool("reparsed", !reused).
		Msg("config file loaded")

	return &Document{Path: key, Format: entry.format, Value: entry.value, Cached: reused}, nil
}

// LoadBase loads path like Load. When path has no extension and does not
// exist, the first existing path+ext is loaded instead, trying Extensions
// in order, so "config" finds "config.toml" before "config.yaml". The
// not-found error for path itself is returned when nothing matches.
func (d *Detector) LoadBase(path string) (*Document, error) {
	doc, err := d.Load(path)
	if err == nil || filepath.Ext(path) != "" || !errors.Is(err, ErrNotFound) {
		return doc, err
	}
	for _, ext := range Extensions {
		alt := d.Canonical(path + ext)
		if info, statErr := d.fs.Stat(alt); statErr != nil || info.IsDir() {
			continue
		}
		d.logger.Debug().Str("base", path).Str("path", alt).Msg("config base resolved")
		return d.Load(alt)
	}
	return nil, err
}

func (d *Detector) loadBytes(key string, cached cacheEntry, hasCached bool) (cacheEntry, bool, error) {
	data, err := afero.ReadFile(d.fs, key)
	if err != nil {
		return cacheEntry{}, false, ioError(key, err)
	}

	sum := sha256.Sum256(data)
	if hasCached && cached.sum == sum {
		return cached, true, nil
	}

	v, f, err := Parse(key, data)
	if err != nil {
		return cacheEntry{}, false, err
	}
	return cacheEntry{value: v, format: f, sum: sum}, false, nil
}

func (d *Detector) loadStream(key string, cached cacheEntry, hasCached bool) (cacheEntry, bool, error) {
	if hasCached {
		sum, err := d.hashFile(key)
		if err != nil {
			return cacheEntry{}, false, ioError(key, err)
		}
		if sum == cached.sum {
			return cached, true, nil
		}
	}

	f, err := d.fs.Open(key)
	if err != nil {
		return cacheEntry{}, false, ioError(key, err)
	}
	defer f.Close()

	format := FormatForPath(key)
	if format == FormatUnknown {
		if format, err = SniffReader(f); err != nil {
			return cacheEntry{}, false, ioError(key, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return cacheEntry{}, false, ioError(key, err)
		}
	}

	br := bufio.NewReaderSize(f, streamBuf)
	head, err := br.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) {
		return cacheEntry{}, false, ioError(key, err)
	}

	h := sha256.New()
	tee := io.TeeReader(br, h)
	if bytes.Equal(head, utf8BOM) {
		if _, err := io.ReadFull(tee, make([]byte, len(utf8BOM))); err != nil {
			return cacheEntry{}, false, ioError(key, err)
		}
	}

	content := &blankTracker{r: tee}
	v, decodeErr := decode(format, content)
	if _, err := io.Copy(io.Discard, content); err != nil {
		return cacheEntry{}, false, ioError(key, err)
	}
	switch {
	case !content.seen:
		v = value.EmptyMapping()
	case decodeErr != nil:
		return cacheEntry{}, false, parseError(key, format, nil, decodeErr)
	}

	entry := cacheEntry{value: v, format: format}
	copy(entry.sum[:], h.Sum(nil))
	return entry, false, nil
}

// blankTracker records whether anything but whitespace was read through it.
type blankTracker struct {
	r    io.Reader
	seen bool
}

func (t *blankTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if !t.seen && len(bytes.TrimSpace(p[:n])) > 0 {
		t.seen = true
	}
	return n, err
}

func (d *Detector) hashFile(key string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := d.fs.Open(key)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
