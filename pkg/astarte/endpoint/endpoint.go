// Package endpoint implements the endpoint pattern parser and concrete-path
// matcher (C2): parameterized, slash-separated paths with O(n) parsing and
// total error coverage over malformed input.
package endpoint

import (
	"strings"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
)

// LevelKind distinguishes a literal path segment from a parameter one.
type LevelKind int

const (
	LevelLiteral LevelKind = iota
	LevelParameter
)

// Level is one slash-separated segment of an endpoint pattern.
type Level struct {
	Kind  LevelKind
	Value string
}

// Endpoint is a parsed, parameterized path pattern, e.g. "/a/%{x}/c".
type Endpoint struct {
	raw    string
	levels []Level
}

// Len returns the number of levels in the pattern.
func (e Endpoint) Len() int {
	return len(e.levels)
}

// Levels returns the parsed levels, in path order.
func (e Endpoint) Levels() []Level {
	return e.levels
}

// String renders the endpoint back to its canonical textual form. Parsing
// then re-serializing always round-trips for any valid endpoint.
func (e Endpoint) String() string {
	if e.raw != "" {
		return e.raw
	}
	var b strings.Builder
	for _, l := range e.levels {
		b.WriteByte('/')
		if l.Kind == LevelParameter {
			b.WriteString("%{")
			b.WriteString(l.Value)
			b.WriteByte('}')
		} else {
			b.WriteString(l.Value)
		}
	}
	return b.String()
}

const reservedChars = "#+ \t\n\r"

func isLiteralChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

// Parse parses an endpoint pattern string. Parsing is total over the input
// characters and runs in O(n).
func Parse(pattern string) (Endpoint, error) {
	if pattern == "" {
		return Endpoint{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "empty endpoint")
	}
	if pattern[0] != '/' {
		return Endpoint{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "endpoint %q must start with '/'", pattern)
	}
	if pattern == "/" {
		return Endpoint{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "root endpoint '/' is invalid")
	}

	rawLevels := strings.Split(pattern[1:], "/")
	levels := make([]Level, 0, len(rawLevels))
	seenParams := make(map[string]struct{})

	for _, raw := range rawLevels {
		level, err := parseLevel(raw, pattern)
		if err != nil {
			return Endpoint{}, err
		}
		if level.Kind == LevelParameter {
			if _, dup := seenParams[level.Value]; dup {
				return Endpoint{}, astarteerrors.Newf(astarteerrors.KindEndpoint,
					"endpoint %q has a duplicated parameter %%{%s}", pattern, level.Value)
			}
			seenParams[level.Value] = struct{}{}
		}
		levels = append(levels, level)
	}

	return Endpoint{raw: pattern, levels: levels}, nil
}

func parseLevel(raw string, pattern string) (Level, error) {
	if raw == "" {
		return Level{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "endpoint %q has an empty level", pattern)
	}

	if strings.HasPrefix(raw, "%{") {
		if !strings.HasSuffix(raw, "}") {
			return Level{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "endpoint %q has a malformed parameter %q", pattern, raw)
		}
		ident := raw[2 : len(raw)-1]
		if ident == "" {
			return Level{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "endpoint %q has an empty parameter %%{}", pattern)
		}
		for i := 0; i < len(ident); i++ {
			if !isIdentChar(ident[i]) {
				return Level{}, astarteerrors.Newf(astarteerrors.KindEndpoint,
					"endpoint %q has an invalid parameter identifier %q", pattern, ident)
			}
		}
		return Level{Kind: LevelParameter, Value: ident}, nil
	}

	if strings.ContainsAny(raw, reservedChars) || strings.ContainsRune(raw, '%') {
		return Level{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "endpoint %q has an invalid level %q", pattern, raw)
	}
	if raw[0] == '-' {
		return Level{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "endpoint %q has a level starting with '-': %q", pattern, raw)
	}
	for i := 0; i < len(raw); i++ {
		if !isLiteralChar(raw[i]) {
			return Level{}, astarteerrors.Newf(astarteerrors.KindEndpoint, "endpoint %q has an invalid character in level %q", pattern, raw)
		}
	}

	return Level{Kind: LevelLiteral, Value: raw}, nil
}
