package callback

import (
	"errors"
	"fmt"
	"sort"
)

// Priority orders how multiple resolutions for the same callback site are
// run. Lower values run first. An explicit spec given directly on a state
// or transition always runs ahead of a naming-convention lookup, and a
// convention name scoped to one state/event always runs ahead of the
// applies-to-everything generic convention.
type Priority int

const (
	PriorityInline     Priority = iota // spec given directly (string or func) on the definition
	PriorityConvention                 // e.g. on_enter_<id>, before_<event>
	PriorityGeneric                    // e.g. on_enter_state, before_transition
)

// Entry is one resolved, wrapped callable ready to be invoked with a Context.
type Entry struct {
	Adapter  *Adapter
	Priority Priority
	dedupKey string
}

// List is an ordered, de-duplicated set of resolved callback Entries for one
// site (a state's enter/exit list, or a transition's before/on/after/
// validators list).
type List struct {
	Entries []Entry
}

// CallAll invokes every entry in priority order, stopping at and returning
// the first error.
func (l *List) CallAll(ctx *Context) error {
	for _, e := range l.Entries {
		if _, err := e.Adapter.Call(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CallAllCollect invokes every entry in priority order, collecting each
// call's return value (nil for callables with no return value), stopping
// at and returning the first error along with whatever results were
// collected before it.
func (l *List) CallAllCollect(ctx *Context) ([]any, error) {
	results := make([]any, 0, len(l.Entries))
	for _, e := range l.Entries {
		v, err := e.Adapter.Call(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, v)
	}
	return results, nil
}

// AllTrue invokes every entry in priority order, short-circuiting (and
// returning false) at the first entry whose coerced boolean result is
// false. Used for guard lists, where every guard must pass.
func (l *List) AllTrue(ctx *Context) (bool, error) {
	for _, e := range l.Entries {
		ok, err := e.Adapter.CallBool(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Registry resolves symbolic CallbackSpec values (strings naming a
// convention, or direct Go function values) against a prioritized set of
// lookup objects — typically a user model, the machine itself, and any
// listeners added via AddListener — and caches the resulting, wrapped
// Entry lists.
//
// This recasts the source's ObjectConfig/dispatcher resolution: where that
// walks declared attribute names across candidate objects at call time, the
// Registry resolves once (at build time) and caches the bound Adapters, so
// the hot path (engine microsteps) never touches reflection-based name
// lookup again.
type Registry struct {
	lookups []registeredLookup
}

type registeredLookup struct {
	resolver Resolver
	ownerID  any
}

// NewRegistry creates an empty Registry. Lookup objects are added in the
// order they should be preferred at equal Priority (first added, first
// resolved).
func NewRegistry() *Registry {
	return &Registry{}
}

// AddLookup registers a Resolver. ownerID must uniquely identify the
// underlying object for de-duplication; ReflectResolver and FuncResolver
// both expose an OwnerID() method for this purpose.
func (r *Registry) AddLookup(resolver Resolver, ownerID any) {
	r.lookups = append(r.lookups, registeredLookup{resolver: resolver, ownerID: ownerID})
}

// Resolve builds a List for one callback site out of explicit specs plus
// naming-convention lookups. conventionNames pairs a name with the Priority
// it should resolve at (PriorityConvention, PriorityGeneric); explicit
// specs always resolve at PriorityInline. required, if true, causes Resolve
// to fail with an AttrNotFound-shaped error when none of the explicit specs
// or convention names resolve to anything at all.
func (r *Registry) Resolve(specs []any, conventionNames map[string]Priority, required bool) (*List, error) {
	list := &List{}
	seen := map[string]bool{}

	// name is part of the key because every method value obtained through
	// reflection shares one code pointer; it is "" for direct callables.
	addEntry := func(adapter *Adapter, name string, priority Priority, ownerID any) {
		key := dedupKey(adapter, ownerID) + ":" + toPascalCase(name)
		if seen[key] {
			return
		}
		seen[key] = true
		list.Entries = append(list.Entries, Entry{Adapter: adapter, Priority: priority, dedupKey: key})
	}

	for _, spec := range specs {
		if spec == nil {
			continue
		}
		if name, ok := spec.(string); ok {
			resolved := r.resolveName(name)
			if len(resolved) == 0 {
				return nil, fmt.Errorf("callback: %w: %q", ErrAttrNotFound, name)
			}
			for _, rc := range resolved {
				adapter, err := Wrap(rc.fn)
				if err != nil {
					return nil, err
				}
				addEntry(adapter, name, PriorityInline, rc.ownerID)
			}
			continue
		}
		adapter, err := Wrap(spec)
		if err != nil {
			return nil, err
		}
		addEntry(adapter, "", PriorityInline, "direct")
	}

	for name, priority := range conventionNames {
		for _, rc := range r.resolveName(name) {
			adapter, err := Wrap(rc.fn)
			if err != nil {
				return nil, err
			}
			addEntry(adapter, name, priority, rc.ownerID)
		}
	}

	sort.SliceStable(list.Entries, func(i, j int) bool { return list.Entries[i].Priority < list.Entries[j].Priority })

	if required && len(list.Entries) == 0 {
		return nil, fmt.Errorf("callback: %w: no spec or convention resolved", ErrAttrNotFound)
	}
	return list, nil
}

// ResolveGuardPredicate resolves name against the registered lookups and
// returns it as a boolean Predicate, for use as a guard.Lookup entry.
func (r *Registry) ResolveGuardPredicate(name string) (func(kwargs map[string]any) bool, bool) {
	resolved := r.resolveName(name)
	if len(resolved) == 0 {
		return nil, false
	}
	adapter, err := Wrap(resolved[0].fn)
	if err != nil {
		return nil, false
	}
	return func(kwargs map[string]any) bool {
		ok, _ := adapter.CallBool(&Context{Kwargs: kwargs})
		return ok
	}, true
}

type resolvedCallable struct {
	fn      any
	ownerID any
}

func (r *Registry) resolveName(name string) []resolvedCallable {
	var out []resolvedCallable
	for _, l := range r.lookups {
		if fn, ok := l.resolver.Resolve(name); ok {
			out = append(out, resolvedCallable{fn: fn, ownerID: l.ownerID})
		}
	}
	return out
}

func dedupKey(a *Adapter, ownerID any) string {
	return fmt.Sprintf("%v@%v", a.fn.Pointer(), ownerID)
}

// ErrAttrNotFound is wrapped into the errors Resolve produces when a
// required spec or naming convention resolves to nothing.
var ErrAttrNotFound = errors.New("callback attribute not found")
