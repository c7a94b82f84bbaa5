package endpoint

import (
	"strings"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
)

// Path is a concrete, fully-literal slash-separated path, e.g. "/a/b".
type Path struct {
	raw    string
	levels []string
}

// ParsePath parses a concrete path into its literal levels.
func ParsePath(p string) (Path, error) {
	if p == "" || p[0] != '/' {
		return Path{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "path %q must start with '/'", p)
	}
	if p == "/" {
		return Path{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "root path '/' is invalid")
	}
	levels := strings.Split(p[1:], "/")
	for _, l := range levels {
		if l == "" {
			return Path{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "path %q has an empty level", p)
		}
	}
	return Path{raw: p, levels: levels}, nil
}

// String renders the path back to its textual form.
func (p Path) String() string {
	return p.raw
}

// Levels returns the literal levels of the path, in order.
func (p Path) Levels() []string {
	return p.levels
}

// Bindings maps a parameter identifier to the concrete literal it captured.
type Bindings map[string]string

// MatchPath returns the parameter bindings if the concrete path matches this
// endpoint pattern: same number of levels, every literal level equal, and
// every parameter level bound consistently (same ident -> same value within
// the same pattern).
func (e Endpoint) MatchPath(concrete Path) (Bindings, bool) {
	if len(e.levels) != len(concrete.levels) {
		return nil, false
	}

	bindings := make(Bindings)
	for i, level := range e.levels {
		lit := concrete.levels[i]
		switch level.Kind {
		case LevelLiteral:
			if level.Value != lit {
				return nil, false
			}
		case LevelParameter:
			if existing, ok := bindings[level.Value]; ok {
				if existing != lit {
					return nil, false
				}
			} else {
				bindings[level.Value] = lit
			}
		}
	}
	return bindings, true
}

// Overlaps reports whether there exists any concrete path matched by both
// endpoints: same length, and at every position either level is a parameter
// or the literals are equal.
func (e Endpoint) Overlaps(other Endpoint) bool {
	if len(e.levels) != len(other.levels) {
		return false
	}
	for i := range e.levels {
		a, b := e.levels[i], other.levels[i]
		if a.Kind == LevelLiteral && b.Kind == LevelLiteral && a.Value != b.Value {
			return false
		}
	}
	return true
}
