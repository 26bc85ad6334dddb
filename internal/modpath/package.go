package modpath

import "strings"

// NodeModules is the directory name package managers install into.
const NodeModules = "node_modules"

// SplitPackage splits a bare request into its dependency name and the
// remaining subpath. The subpath keeps its leading slash:
//
//	SplitPackage("baz/lib/index")   // "baz", "/lib/index"
//	SplitPackage("@scope/pkg/x")    // "@scope/pkg", "/x"
//	SplitPackage("baz")             // "baz", ""
func SplitPackage(request string) (name, subpath string) {
	start := 0
	if strings.HasPrefix(request, "@") {
		if i := strings.Index(request, Separator); i >= 0 {
			start = i + 1
		}
	}
	i := strings.Index(request[start:], Separator)
	if i < 0 {
		return request, ""
	}
	return request[:start+i], request[start+i:]
}

// RealPath builds the version-qualified path /<name>@<version><subpath>.
func RealPath(name, version, subpath string) string {
	return Separator + name + "@" + version + subpath
}

// EncodeNodeModules replaces every node_modules segment with the "$"
// marker segment.
func EncodeNodeModules(p string) string {
	parts := strings.Split(p, Separator)
	for i, seg := range parts {
		if seg == NodeModules {
			parts[i] = MarkerSegment
		}
	}
	return strings.Join(parts, Separator)
}

// Ext returns the extension of the last segment, including the dot.
func Ext(p string) string {
	base := Basename(p)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[i:]
	}
	return ""
}

// StripExt removes the extension of the last segment when it is one of
// exts. Other extensions are left untouched.
func StripExt(p string, exts []string) string {
	ext := Ext(p)
	if ext == "" {
		return p
	}
	for _, candidate := range exts {
		if candidate == ext {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

// DefaultExtensions are the registered extensions when none are
// configured, in trial order.
var DefaultExtensions = []string{".js", ".json"}
