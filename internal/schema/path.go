package schema

import (
	"strconv"
	"strings"
)

// Path is an immutable dotted path. Push and Index return new paths and
// never modify the receiver, so a path can be shared across recursive calls.
type Path struct {
	parts []string
}

// NewPath returns a path made of parts.
func NewPath(parts ...string) Path {
	return Path{parts: append([]string(nil), parts...)}
}

// Push returns p extended with part.
func (p Path) Push(part string) Path {
	parts := make([]string, len(p.parts), len(p.parts)+1)
	copy(parts, p.parts)
	return Path{parts: append(parts, part)}
}

// Index returns p with "[i]" appended to its last part.
func (p Path) Index(i int) Path {
	if len(p.parts) == 0 {
		return Path{parts: []string{"[" + strconv.Itoa(i) + "]"}}
	}
	parts := make([]string, len(p.parts))
	copy(parts, p.parts)
	parts[len(parts)-1] += "[" + strconv.Itoa(i) + "]"
	return Path{parts: parts}
}

// Len returns the number of parts.
func (p Path) Len() int {
	return len(p.parts)
}

func (p Path) String() string {
	return strings.Join(p.parts, ".")
}
