// Package registry implements the interface registry (C4): the name-keyed,
// ownership-indexed collection of loaded interfaces with a cached
// introspection string, generalized from the teacher's spec loader in
// pkg/newtron/spec/loader.go (name-keyed store + cross-reference validation,
// here specialized to minor-compatible-extension replacement).
package registry

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/endpoint"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
)

// AddResult reports what Add actually did.
type AddResult int

const (
	Added AddResult = iota
	Replaced
	Unchanged
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case Replaced:
		return "replaced"
	default:
		return "unchanged"
	}
}

// MappingRef is the result of resolving a concrete path against a loaded
// interface: the interface itself, the matching mapping, and the parameter
// bindings extracted from the path.
type MappingRef struct {
	Interface *interfaces.Interface
	Mapping   interfaces.Mapping
	Bindings  endpoint.Bindings
}

// Registry is the name-keyed collection of loaded interfaces, with a
// secondary ownership index and a cached canonical introspection string.
// Readers (Resolve, PropertyMapping, Get, Names) never block each other;
// writers (Add, Remove) are exclusive, and so is Introspection, which may
// refresh the cached string.
type Registry struct {
	mu          sync.RWMutex
	byName      map[string]*interfaces.Interface
	byOwnership map[interfaces.Ownership]map[string]struct{}
	cached      string
	dirty       bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName:      make(map[string]*interfaces.Interface),
		byOwnership: make(map[interfaces.Ownership]map[string]struct{}),
		dirty:       true,
	}
}

// Add inserts iface, or replaces an existing interface of the same name iff
// the candidate is a minor-compatible extension: same major, minor >= the
// previous minor, and every previous mapping present unchanged (only
// additions allowed). A same-name, same-version, semantically identical
// candidate returns Unchanged without mutating the registry.
func (r *Registry) Add(iface *interfaces.Interface) (AddResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byName[iface.Name]
	if !ok {
		r.insertLocked(iface)
		return Added, nil
	}

	if existing.VersionMajor == iface.VersionMajor && existing.VersionMinor == iface.VersionMinor {
		if sameMappingSet(existing.Mappings, iface.Mappings) {
			return Unchanged, nil
		}
		return Unchanged, astarteerrors.Newf(astarteerrors.KindInterface,
			"interface %q already loaded at %d.%d with different mappings", iface.Name, iface.VersionMajor, iface.VersionMinor).
			WithInterface(iface.Name)
	}

	if existing.VersionMajor != iface.VersionMajor {
		r.insertLocked(iface)
		return Replaced, nil
	}

	if iface.VersionMinor < existing.VersionMinor {
		return Unchanged, astarteerrors.Newf(astarteerrors.KindInterface,
			"interface %q: new minor %d is lower than loaded minor %d", iface.Name, iface.VersionMinor, existing.VersionMinor).
			WithInterface(iface.Name)
	}
	if !isMinorCompatibleExtension(existing, iface) {
		return Unchanged, astarteerrors.Newf(astarteerrors.KindInterface,
			"interface %q: minor bump from %d to %d is not a compatible extension",
			iface.Name, existing.VersionMinor, iface.VersionMinor).WithInterface(iface.Name)
	}

	r.insertLocked(iface)
	return Replaced, nil
}

// ExtendInterfaces adds every interface in ifaces, returning the names that
// were actually Added or Replaced (skipping Unchanged resubmits). The first
// error aborts the batch; interfaces processed before the failing one remain
// loaded.
func (r *Registry) ExtendInterfaces(ifaces []*interfaces.Interface) ([]string, error) {
	var changed []string
	for _, iface := range ifaces {
		result, err := r.Add(iface)
		if err != nil {
			return changed, err
		}
		if result != Unchanged {
			changed = append(changed, iface.Name)
		}
	}
	return changed, nil
}

func (r *Registry) insertLocked(iface *interfaces.Interface) {
	if prev, ok := r.byName[iface.Name]; ok {
		delete(r.byOwnership[prev.Ownership], iface.Name)
	}
	r.byName[iface.Name] = iface
	if r.byOwnership[iface.Ownership] == nil {
		r.byOwnership[iface.Ownership] = make(map[string]struct{})
	}
	r.byOwnership[iface.Ownership][iface.Name] = struct{}{}
	r.dirty = true
}

// Remove deletes the named interface, reporting whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	iface, ok := r.byName[name]
	if !ok {
		return false
	}
	delete(r.byName, name)
	delete(r.byOwnership[iface.Ownership], name)
	r.dirty = true
	return true
}

// Resolve looks up name, then walks its mappings for the first endpoint
// matching concretePath.
func (r *Registry) Resolve(name string, concretePath string) (MappingRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	iface, ok := r.byName[name]
	if !ok {
		return MappingRef{}, astarteerrors.NotFoundInterface(name)
	}

	path, err := endpoint.ParsePath(concretePath)
	if err != nil {
		return MappingRef{}, err
	}

	for _, m := range iface.Mappings {
		if bindings, ok := m.Endpoint.MatchPath(path); ok {
			return MappingRef{Interface: iface, Mapping: m, Bindings: bindings}, nil
		}
	}
	return MappingRef{}, astarteerrors.NotFoundMapping(name, concretePath)
}

// PropertyMapping behaves like Resolve but additionally asserts the
// interface is of type Properties.
func (r *Registry) PropertyMapping(name string, concretePath string) (MappingRef, error) {
	ref, err := r.Resolve(name, concretePath)
	if err != nil {
		return MappingRef{}, err
	}
	if ref.Interface.Type != interfaces.TypeProperties {
		return MappingRef{}, astarteerrors.Newf(astarteerrors.KindType,
			"interface %q is not of type properties", name).WithInterface(name).WithPath(concretePath)
	}
	return ref, nil
}

// Get returns the loaded interface by name, if present.
func (r *Registry) Get(name string) (*interfaces.Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	iface, ok := r.byName[name]
	return iface, ok
}

// Names returns every loaded interface name, server-owned and device-owned.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamesByOwnership returns the loaded interface names restricted to the
// given ownership.
func (r *Registry) NamesByOwnership(ownership interfaces.Ownership) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byOwnership[ownership]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Introspection returns the canonical, cached introspection string: every
// loaded interface's "name:major:minor" token, sorted and joined with ';'.
func (r *Registry) Introspection() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return r.cached
	}

	tokens := make([]string, 0, len(r.byName))
	for _, iface := range r.byName {
		tokens = append(tokens, iface.IntrospectionToken())
	}
	sort.Strings(tokens)
	r.cached = strings.Join(tokens, ";")
	r.dirty = false
	return r.cached
}

func sameMappingSet(a, b []interfaces.Mapping) bool {
	if len(a) != len(b) {
		return false
	}
	byEndpoint := make(map[string]interfaces.Mapping, len(a))
	for _, m := range a {
		byEndpoint[m.Endpoint.String()] = m
	}
	for _, m := range b {
		ref, ok := byEndpoint[m.Endpoint.String()]
		if !ok || !sameMapping(ref, m) {
			return false
		}
	}
	return true
}

// sameMapping compares every declared attribute of two mappings with the
// same endpoint.
func sameMapping(a, b interfaces.Mapping) bool {
	return a.Type == b.Type && a.Reliability == b.Reliability &&
		a.ExplicitTimestamp == b.ExplicitTimestamp && a.AllowUnset == b.AllowUnset &&
		reflect.DeepEqual(a.Retention, b.Retention) &&
		reflect.DeepEqual(a.DatabaseRetention, b.DatabaseRetention)
}

// isMinorCompatibleExtension reports whether candidate is `prev` plus only
// additions: every mapping present in prev must also be present, unchanged,
// in candidate.
func isMinorCompatibleExtension(prev, candidate *interfaces.Interface) bool {
	byEndpoint := make(map[string]interfaces.Mapping, len(candidate.Mappings))
	for _, m := range candidate.Mappings {
		byEndpoint[m.Endpoint.String()] = m
	}
	for _, old := range prev.Mappings {
		next, ok := byEndpoint[old.Endpoint.String()]
		if !ok {
			return false
		}
		if !sameMapping(old, next) {
			return false
		}
	}
	return true
}
