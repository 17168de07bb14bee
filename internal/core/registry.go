package core

import "sort"

// Registry maps connections to the names they joined under.
// It keeps a per-name connection count and a name -> connections index.
// Registry is not safe for concurrent use; the hub goroutine owns it.
type Registry struct {
	names  map[ConnID]string
	counts map[string]int
	groups map[string]map[ConnID]struct{}
}

// BindResult reports the effect of a successful Bind.
type BindResult struct {
	Name string
	// First is true when this connection is the only one using Name.
	First bool
}

// UnbindResult reports the effect of an Unbind.
type UnbindResult struct {
	Name string
	// Last is true when no connection uses Name anymore.
	Last bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:  make(map[ConnID]string),
		counts: make(map[string]int),
		groups: make(map[string]map[ConnID]struct{}),
	}
}

// Bind associates conn with name.
func (r *Registry) Bind(conn ConnID, name string) (BindResult, error) {
	if name == "" {
		return BindResult{}, ErrEmptyName
	}
	if _, bound := r.names[conn]; bound {
		return BindResult{}, ErrAlreadyBound
	}

	r.names[conn] = name
	r.counts[name]++

	group, ok := r.groups[name]
	if !ok {
		group = make(map[ConnID]struct{})
		r.groups[name] = group
	}
	group[conn] = struct{}{}

	return BindResult{Name: name, First: r.counts[name] == 1}, nil
}

// Unbind removes conn's binding. ok is false when conn was not bound.
func (r *Registry) Unbind(conn ConnID) (res UnbindResult, ok bool) {
	name, bound := r.names[conn]
	if !bound {
		return UnbindResult{}, false
	}
	delete(r.names, conn)

	if group := r.groups[name]; group != nil {
		delete(group, conn)
		if len(group) == 0 {
			delete(r.groups, name)
		}
	}

	r.counts[name]--
	if r.counts[name] <= 0 {
		delete(r.counts, name)
		return UnbindResult{Name: name, Last: true}, true
	}
	return UnbindResult{Name: name}, true
}

// NameOf returns the name conn joined under.
func (r *Registry) NameOf(conn ConnID) (string, bool) {
	name, ok := r.names[conn]
	return name, ok
}

// AllNamesExcept returns every online name except the one conn is bound to,
// sorted. If conn is not bound, every name is returned.
func (r *Registry) AllNamesExcept(conn ConnID) []string {
	own, bound := r.names[conn]

	names := make([]string, 0, len(r.counts))
	for name := range r.counts {
		if bound && name == own {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns every online name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.counts))
	for name := range r.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConnectionsFor returns the connections bound to name, sorted.
// The result is empty when nobody uses name.
func (r *Registry) ConnectionsFor(name string) []ConnID {
	group := r.groups[name]
	conns := make([]ConnID, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i] < conns[j] })
	return conns
}

// Count returns how many connections use name.
func (r *Registry) Count(name string) int {
	return r.counts[name]
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	return len(r.names)
}
