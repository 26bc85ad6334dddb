package modpath

import "strings"

// MarkerSegment is the reserved segment that introduces a dependency name.
const MarkerSegment = "$"

// Kind classifies a path segment.
type Kind int

const (
	// Plain is an ordinary directory or file segment.
	Plain Kind = iota
	// Marker is a "$/<name>" pair. Value holds the dependency name, which
	// spans two raw segments for scoped packages ("@scope/name").
	Marker
)

// Segment is one token of a parsed path.
type Segment struct {
	Kind  Kind
	Value string
}

// PlainSegment returns a Plain segment.
func PlainSegment(value string) Segment {
	return Segment{Kind: Plain, Value: value}
}

// MarkerFor returns the Marker segment for dependency name.
func MarkerFor(name string) Segment {
	return Segment{Kind: Marker, Value: name}
}

func (s Segment) String() string {
	if s.Kind == Marker {
		return MarkerSegment + Separator + s.Value
	}
	return s.Value
}

// Path is a normalized path split into segments.
type Path struct {
	Absolute bool
	Segments []Segment
}

// Parse normalizes p and tokenizes it. A trailing "$" with no name after
// it is kept as a Plain segment.
func Parse(p string) Path {
	p = Normalize(p)
	path := Path{Absolute: IsAbsolute(p)}
	if p == "" || p == Separator {
		return path
	}

	raw := strings.Split(strings.TrimPrefix(p, Separator), Separator)
	for i := 0; i < len(raw); i++ {
		seg := raw[i]
		if seg != MarkerSegment || i+1 >= len(raw) {
			path.Segments = append(path.Segments, PlainSegment(seg))
			continue
		}
		name := raw[i+1]
		i++
		if strings.HasPrefix(name, "@") && i+1 < len(raw) {
			name += Separator + raw[i+1]
			i++
		}
		path.Segments = append(path.Segments, MarkerFor(name))
	}
	return path
}

// String renders the path back to its textual form.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p.Segments {
		if i > 0 || p.Absolute {
			b.WriteString(Separator)
		}
		b.WriteString(seg.String())
	}
	if b.Len() == 0 && p.Absolute {
		return Separator
	}
	return b.String()
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.Segments)
}

// IsEmpty reports whether the path has no segments.
func (p Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// HasMarker reports whether any segment is a Marker.
func (p Path) HasMarker() bool {
	return p.LastMarker() >= 0
}

// LastMarker returns the index of the last Marker segment, or -1.
func (p Path) LastMarker() int {
	for i := len(p.Segments) - 1; i >= 0; i-- {
		if p.Segments[i].Kind == Marker {
			return i
		}
	}
	return -1
}

// Slice returns the segments in [from, to) as a new path. The result is
// absolute only when it starts at the first segment of an absolute path.
func (p Path) Slice(from, to int) Path {
	segs := make([]Segment, to-from)
	copy(segs, p.Segments[from:to])
	return Path{Absolute: p.Absolute && from == 0, Segments: segs}
}

// Parent drops the last segment. Dropping a Marker removes the "$" and the
// dependency name together, so a parent never ends on a bare marker.
// ok is false when there is nothing left to drop.
func (p Path) Parent() (Path, bool) {
	if p.IsEmpty() {
		return p, false
	}
	return p.Slice(0, len(p.Segments)-1), true
}

// Append returns a copy of p with segs added.
func (p Path) Append(segs ...Segment) Path {
	out := make([]Segment, 0, len(p.Segments)+len(segs))
	out = append(out, p.Segments...)
	out = append(out, segs...)
	return Path{Absolute: p.Absolute, Segments: out}
}

// AppendString parses rel and appends its segments.
func (p Path) AppendString(rel string) Path {
	return p.Append(Parse(rel).Segments...)
}

// Rooted returns p as an absolute path.
func (p Path) Rooted() Path {
	p.Absolute = true
	return p
}

// DependencyKey is the registry key of the edge that resolves name from
// scope: scope + "/$/" + name. Scope "" and "/" both denote the project
// root, whose edges are keyed "/$/<name>".
func DependencyKey(scope Path, name string) string {
	return scope.Rooted().Append(MarkerFor(name)).String()
}
