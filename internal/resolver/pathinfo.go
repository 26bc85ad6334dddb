package resolver

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/rmod/internal/modpath"
	"github.com/roach88/rmod/internal/overrides"
	"github.com/roach88/rmod/internal/probe"
)

// defaultVersion is used for installed packages whose manifest has no
// version.
const defaultVersion = "0.0.0"

// Dep is the dependency edge implied by a path inside node_modules.
type Dep struct {
	// ParentPath is the logical path of the directory owning the
	// node_modules the package is installed in. The project root is "".
	ParentPath   string `json:"parentPath" yaml:"parentPath"`
	ChildName    string `json:"childName" yaml:"childName"`
	ChildVersion string `json:"childVersion" yaml:"childVersion"`

	// Alias is the name the edge is requested under when it differs from
	// ChildName: the installed directory name, or the module name a
	// browser override replaced.
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// Main is the entry file of a directory.
type Main struct {
	FilePath string `json:"filePath" yaml:"filePath"`

	// Path is relative to the directory, extension removed.
	Path string `json:"path" yaml:"path"`
}

// Remap replaces the real path From with To, a path relative to From's
// directory that may cross into another package through a "$" segment.
type Remap struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// PathInfo describes a resolved file or directory.
type PathInfo struct {
	LogicalPath string `json:"logicalPath" yaml:"logicalPath"`
	RealPath    string `json:"realPath" yaml:"realPath"`
	FilePath    string `json:"filePath" yaml:"filePath"`
	IsDir       bool   `json:"isDir" yaml:"isDir"`

	Dep   *Dep   `json:"dep,omitempty" yaml:"dep,omitempty"`
	Main  *Main  `json:"main,omitempty" yaml:"main,omitempty"`
	Remap *Remap `json:"remap,omitempty" yaml:"remap,omitempty"`

	IsBrowserOverride bool `json:"isBrowserOverride,omitempty" yaml:"isBrowserOverride,omitempty"`
}

// PathInfo describes the file or directory at path.
func (r *Resolver) PathInfo(path string) (*PathInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("path info: %w", err)
	}
	return r.pathInfo(abs, 0)
}

func (r *Resolver) pathInfo(path string, depth int) (*PathInfo, error) {
	path = filepath.Clean(path)
	kind := r.fs.Stat(path)
	if kind == probe.Missing {
		return nil, &NotFoundError{Request: path, From: filepath.Dir(path)}
	}

	root, err := r.ProjectRoot(path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("path %s is outside project root %s", path, root)
	}

	relSlash := modpath.Separator
	if rel != "." {
		relSlash += filepath.ToSlash(rel)
	}

	logical, err := r.logicalPath(root, relSlash)
	if err != nil {
		return nil, err
	}
	info := &PathInfo{
		LogicalPath: logical,
		FilePath:    path,
		IsDir:       kind == probe.Dir,
	}
	info.RealPath = info.LogicalPath

	dep, realPath, err := r.installedPackage(root, relSlash)
	if err != nil {
		return nil, err
	}
	if dep != nil {
		info.Dep = dep
		info.RealPath = realPath
	}

	if info.IsDir {
		main, err := r.dirMain(path)
		if err != nil {
			return nil, err
		}
		info.Main = main
		return info, nil
	}

	if r.opts.RemoveExt {
		info.LogicalPath = modpath.StripExt(info.LogicalPath, r.opts.Extensions)
		info.RealPath = modpath.StripExt(info.RealPath, r.opts.Extensions)
	}

	if !r.opts.Browser {
		return info, nil
	}
	target, err := r.overrides.Lookup(filepath.Dir(path), path)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return info, nil
	}
	return r.applyFileOverride(info, target, depth)
}

// installedPackage derives the dependency edge and real path of rel, a
// slash path relative to root, from its last node_modules segment.
func (r *Resolver) installedPackage(root, rel string) (*Dep, string, error) {
	segs := strings.Split(rel, modpath.Separator)
	idx := -1
	for i := len(segs) - 2; i >= 0; i-- {
		if segs[i] == modpath.NodeModules {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, "", nil
	}

	end := idx + 2
	if strings.HasPrefix(segs[idx+1], "@") && end < len(segs) {
		end++
	}
	dirName := strings.Join(segs[idx+1:end], modpath.Separator)

	pkgDir := filepath.Join(root, filepath.FromSlash(strings.Join(segs[:end], modpath.Separator)))
	pkg, err := r.pkgs.Read(pkgDir)
	if err != nil {
		return nil, "", err
	}

	name, version := dirName, defaultVersion
	if pkg != nil {
		if pkg.Name != "" {
			name = pkg.Name
		}
		if pkg.Version != "" {
			version = pkg.Version
		}
	}

	sub := ""
	if end < len(segs) {
		sub = modpath.Separator + strings.Join(segs[end:], modpath.Separator)
	}

	parent, err := r.logicalPath(root, strings.Join(segs[:idx], modpath.Separator))
	if err != nil {
		return nil, "", err
	}
	dep := &Dep{
		ParentPath:   parent,
		ChildName:    name,
		ChildVersion: version,
	}
	if dirName != name {
		dep.Alias = dirName
	}
	return dep, modpath.RealPath(name, version, sub), nil
}

// logicalPath encodes rel, a slash path relative to root, naming every
// installed package by its manifest name. The client binds logical paths
// under the package name, so an install directory renamed from its
// package must not leak into them.
func (r *Resolver) logicalPath(root, rel string) (string, error) {
	segs := strings.Split(rel, modpath.Separator)
	out := make([]string, 0, len(segs))
	for i := 0; i < len(segs); i++ {
		if segs[i] != modpath.NodeModules {
			out = append(out, segs[i])
			continue
		}
		out = append(out, modpath.MarkerSegment)
		if i+1 >= len(segs) {
			break
		}

		end := i + 2
		if strings.HasPrefix(segs[i+1], "@") && end < len(segs) {
			end++
		}
		name := strings.Join(segs[i+1:end], modpath.Separator)
		pkgDir := filepath.Join(root, filepath.FromSlash(strings.Join(segs[:end], modpath.Separator)))
		pkg, err := r.pkgs.Read(pkgDir)
		if err != nil {
			return "", err
		}
		if pkg != nil && pkg.Name != "" {
			name = pkg.Name
		}
		out = append(out, strings.Split(name, modpath.Separator)...)
		i = end - 1
	}
	return strings.Join(out, modpath.Separator), nil
}

// dirMain computes the main binding of dir. A string browser field
// declared by dir replaces the entry file.
func (r *Resolver) dirMain(dir string) (*Main, error) {
	mainFile, ok, err := r.mainFile(dir, 0)
	if err != nil || !ok {
		return nil, err
	}

	if r.opts.Browser {
		target, err := r.overrides.Lookup(dir, mainFile)
		if err != nil {
			return nil, err
		}
		if target != nil && target.Kind == overrides.KindFile {
			if f, err := r.overrideFile(mainFile, target); err == nil {
				mainFile = f
			}
		}
	}

	rel, err := filepath.Rel(dir, mainFile)
	if err != nil {
		return nil, fmt.Errorf("main of %s: %w", dir, err)
	}
	return &Main{
		FilePath: mainFile,
		Path:     modpath.StripExt(filepath.ToSlash(rel), r.opts.Extensions),
	}, nil
}

// applyFileOverride replaces info by the description of the override
// target and records the remap the client needs to follow it.
func (r *Resolver) applyFileOverride(info *PathInfo, target *overrides.Target, depth int) (*PathInfo, error) {
	if depth >= maxOverrideDepth {
		return nil, &OverrideError{Path: info.FilePath, Target: target.Value, Reason: "override chain too deep"}
	}

	var targetFile string
	switch target.Kind {
	case overrides.KindFile:
		f, err := r.overrideFile(info.FilePath, target)
		if err != nil {
			return nil, err
		}
		targetFile = f
	case overrides.KindModule:
		resolved, err := r.resolveRequire(target.Value, target.Dir, depth+1)
		if err != nil {
			return nil, err
		}
		switch {
		case resolved.Main != nil:
			targetFile = resolved.Main.FilePath
		case !resolved.IsDir:
			targetFile = resolved.FilePath
		default:
			return nil, &OverrideError{Path: info.FilePath, Target: target.Value, Reason: "target module has no main"}
		}
	}

	rel, err := filepath.Rel(filepath.Dir(info.FilePath), targetFile)
	if err != nil {
		return nil, fmt.Errorf("remap %s: %w", info.FilePath, err)
	}
	to := modpath.EncodeNodeModules(filepath.ToSlash(rel))
	if r.opts.RemoveExt {
		to = modpath.StripExt(to, r.opts.Extensions)
	}

	over, err := r.pathInfo(targetFile, depth+1)
	if err != nil {
		return nil, err
	}
	over.IsBrowserOverride = true
	over.Remap = &Remap{From: info.RealPath, To: to}

	r.logger.Debug("browser override applied",
		"file", info.FilePath,
		"target", targetFile,
		"from", over.Remap.From,
		"to", over.Remap.To)
	return over, nil
}

// overrideFile resolves a file target against its declaring directory.
func (r *Resolver) overrideFile(source string, target *overrides.Target) (string, error) {
	p := filepath.FromSlash(target.Value)
	if !filepath.IsAbs(p) {
		p = filepath.Join(target.Dir, p)
	}

	f, kind := r.fs.ResolveFile(p, r.opts.Extensions)
	switch kind {
	case probe.File:
		return f, nil
	case probe.Dir:
		if main, ok, err := r.mainFile(f, 0); err != nil {
			return "", err
		} else if ok {
			return main, nil
		}
	}
	return "", &OverrideError{Path: source, Target: target.Value, Reason: "target not found"}
}
