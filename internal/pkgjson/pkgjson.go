// Package pkgjson reads the package.json fields that drive resolution.
//
// Only name, version, main and the browser (or legacy browserify) field
// are extracted; everything else in the manifest is ignored. Reads are
// memoized per directory for the lifetime of a Reader.
package pkgjson

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
)

// FileName is the manifest file looked up in each directory.
const FileName = "package.json"

// Package is the subset of a manifest used by the resolver.
type Package struct {
	// Dir is the directory containing the manifest.
	Dir string

	Name    string
	Version string
	Main    string

	// BrowserMain is set when the browser field is a string. It replaces
	// the package's main entry.
	BrowserMain string

	// Browser holds the object form of the browser field, in declaration
	// order. Entries mapped to false are dropped.
	Browser []Override
}

// Override is one source to target entry of a browser object.
type Override struct {
	Source string
	Target string
}

// HasBrowser reports whether the manifest declares any browser override.
func (p *Package) HasBrowser() bool {
	return p.BrowserMain != "" || len(p.Browser) > 0
}

// ParseError reports a manifest that is not valid JSON or not an object.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNotObject   = errors.New("manifest is not a JSON object")
)

// Parse decodes manifest bytes. dir is recorded on the result.
func Parse(dir string, data []byte) (*Package, error) {
	path := filepath.Join(dir, FileName)
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: path, Err: errInvalidJSON}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ParseError{Path: path, Err: errNotObject}
	}

	pkg := &Package{
		Dir:     dir,
		Name:    root.Get("name").String(),
		Version: root.Get("version").String(),
		Main:    root.Get("main").String(),
	}

	browser := root.Get("browser")
	if !browser.Exists() {
		browser = root.Get("browserify")
	}
	switch {
	case browser.Type == gjson.String:
		pkg.BrowserMain = browser.String()
	case browser.IsObject():
		browser.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				pkg.Browser = append(pkg.Browser, Override{Source: key.String(), Target: value.String()})
			}
			return true
		})
	}

	return pkg, nil
}

type entry struct {
	pkg *Package
	err error
}

// Reader loads manifests from disk and caches the outcome per directory,
// including absence and parse failures.
//
// Thread-safety: all methods are safe for concurrent use.
type Reader struct {
	mu    sync.Mutex
	cache map[string]entry
}

// NewReader creates an empty Reader.
func NewReader() *Reader {
	return &Reader{cache: make(map[string]entry)}
}

// Read returns the manifest in dir. A directory without a manifest yields
// (nil, nil).
func (r *Reader) Read(dir string) (*Package, error) {
	dir = filepath.Clean(dir)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.cache[dir]; ok {
		return e.pkg, e.err
	}

	e := load(dir)
	r.cache[dir] = e
	return e.pkg, e.err
}

func load(dir string) entry {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return entry{}
	}
	if err != nil {
		return entry{err: fmt.Errorf("read manifest: %w", err)}
	}
	pkg, err := Parse(dir, data)
	return entry{pkg: pkg, err: err}
}
