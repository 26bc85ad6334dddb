// Package overrides implements the package.json "browser" field.
//
// Every directory gets a Table built from its own manifest. A directory
// whose manifest has no "name" (or that has no manifest at all) chains to
// the table of its parent directory, so lookups walk outward until the
// enclosing named package has been consulted. The nearest declaration
// wins.
//
// Keys are either absolute file paths (sources written as "./x" or "../x"
// are joined to the declaring directory) or bare module names. The Engine
// only classifies a hit; following it is up to the caller.
package overrides

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/roach88/rmod/internal/modpath"
	"github.com/roach88/rmod/internal/pkgjson"
)

// Kind classifies an override target.
type Kind int

const (
	// KindFile targets a file relative to the declaring directory.
	KindFile Kind = iota + 1
	// KindModule targets another module that must be resolved again from
	// the declaring directory.
	KindModule
)

// Target is a matched override.
type Target struct {
	Kind Kind

	// Value is the raw target: a relative path for KindFile, a module
	// request for KindModule.
	Value string

	// Dir is the directory whose manifest declared the override.
	Dir string
}

// MainFunc returns the entry file of a directory. It backs the string
// form of the browser field, which replaces the directory's main.
type MainFunc func(dir string) (string, bool)

// Table holds the overrides declared by one directory.
type Table struct {
	Dir     string
	entries map[string]string
	parent  *Table
	hits    map[string]*Target
}

// Parent returns the table lookups fall through to, or nil.
func (t *Table) Parent() *Table {
	return t.parent
}

// Len returns the number of overrides declared directly by the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Engine builds tables on demand and memoizes them per directory along
// with every lookup result.
//
// Thread-safety: all methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	reader *pkgjson.Reader
	mainOf MainFunc
	exts   []string
	tables map[string]*Table
}

// New creates an Engine reading manifests through reader. exts are the
// registered extensions used to match keys declared without one.
func New(reader *pkgjson.Reader, mainOf MainFunc, exts []string) *Engine {
	return &Engine{
		reader: reader,
		mainOf: mainOf,
		exts:   exts,
		tables: make(map[string]*Table),
	}
}

// Table returns the table for dir, loading it and its ancestors as needed.
func (e *Engine) Table(dir string) (*Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table(filepath.Clean(dir))
}

func (e *Engine) table(dir string) (*Table, error) {
	if t, ok := e.tables[dir]; ok {
		return t, nil
	}

	pkg, err := e.reader.Read(dir)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Dir:     dir,
		entries: make(map[string]string),
		hits:    make(map[string]*Target),
	}
	if pkg != nil {
		e.load(t, pkg)
	}

	if pkg == nil || pkg.Name == "" {
		if parent := filepath.Dir(dir); parent != dir {
			p, err := e.table(parent)
			if err != nil {
				return nil, err
			}
			t.parent = p
		}
	}

	e.tables[dir] = t
	return t, nil
}

func (e *Engine) load(t *Table, pkg *pkgjson.Package) {
	if pkg.BrowserMain != "" && e.mainOf != nil {
		if main, ok := e.mainOf(t.Dir); ok {
			target := pkg.BrowserMain
			if !modpath.IsRelative(target) {
				target = "./" + target
			}
			t.entries[main] = target
		}
	}

	for _, o := range pkg.Browser {
		source := o.Source
		if strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
			source = filepath.Join(t.Dir, filepath.FromSlash(source))
		}
		t.entries[source] = o.Target
	}
}

// Lookup finds the override for requested, a bare module name or an
// absolute file path, starting at the table of dir. A file path also
// matches a key declared without its registered extension. A nil Target
// means no scope overrides requested.
func (e *Engine) Lookup(dir, requested string) (*Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.table(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}
	if hit, ok := t.hits[requested]; ok {
		return hit, nil
	}

	keys := []string{requested}
	if stripped := modpath.StripExt(requested, e.exts); stripped != requested {
		keys = append(keys, stripped)
	}

	var hit *Target
	for cur := t; cur != nil && hit == nil; cur = cur.parent {
		for _, key := range keys {
			value, ok := cur.entries[key]
			if !ok {
				continue
			}
			hit = &Target{Kind: classify(value), Value: value, Dir: cur.Dir}
			break
		}
	}

	t.hits[requested] = hit
	return hit, nil
}

func classify(target string) Kind {
	if modpath.IsRelative(target) || modpath.IsAbsolute(target) {
		return KindFile
	}
	return KindModule
}
