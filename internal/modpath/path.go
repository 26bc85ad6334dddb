package modpath

import "strings"

// Separator is the only separator logical and real paths use.
const Separator = "/"

// Normalize resolves "." and ".." segments.
//
// A leading slash is preserved and counts as the outermost segment, so
// "/abc/.." becomes "/" while "/abc/../.." cancels out to "". Empty
// segments, including a trailing slash, are dropped.
func Normalize(p string) string {
	if p == "" {
		return ""
	}

	root := p[0] == '/'
	parts := strings.Split(p, Separator)
	out := make([]string, len(parts))
	n := 0

	for _, seg := range parts {
		switch seg {
		case "", ".":
			continue
		case "..":
			if n > 0 {
				n--
			} else if root {
				root = false
			}
			continue
		}
		out[n] = seg
		n++
	}

	joined := strings.Join(out[:n], Separator)
	if root {
		return Separator + joined
	}
	return joined
}

// Join appends relative to base and normalizes the result.
//
// relative is expected to start with "." or "..". Absolute and bare module
// requests are routed to dedicated resolution branches and never joined.
func Join(base, relative string) string {
	if base == "" {
		return Normalize(relative)
	}
	return Normalize(base + Separator + relative)
}

// Dirname returns every segment of p except the last one.
func Dirname(p string) string {
	i := strings.LastIndex(p, Separator)
	switch {
	case i < 0:
		return ""
	case i == 0:
		return Separator
	}
	return p[:i]
}

// Basename returns the last segment of p.
func Basename(p string) string {
	return p[strings.LastIndex(p, Separator)+1:]
}

// IsRelative reports whether request starts with "." ("./x", "../x", ".").
func IsRelative(request string) bool {
	return strings.HasPrefix(request, ".")
}

// IsAbsolute reports whether request starts with "/".
func IsAbsolute(request string) bool {
	return strings.HasPrefix(request, Separator)
}
