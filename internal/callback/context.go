// Package callback resolves symbolic callback references (names, bound
// methods, properties) against a prioritised list of lookup objects, and
// invokes the resolved callables with a superset of engine-provided
// arguments — binding, per callable, only the arguments it actually
// declares.
package callback

import "github.com/comalice/hsm/internal/tree"

// Context is the superset of engine-provided values passed to every
// callback invocation. A callback "binds" only the subset it declares by
// the types of its own parameters; see Adapter.
//
// This is the Go recast of the source's keyword-argument dispatch: Go has
// no named parameters at runtime, so binding is driven by parameter type
// rather than parameter name, with Source/Target/State/Model/Transition
// distinguished by their static Go types.
type Context struct {
	EventType string
	Args      []any
	Kwargs    map[string]any
	SendID    string

	Source     tree.StateID
	Target     tree.StateID
	State      tree.StateID
	Transition *tree.Transition
	EventData  any
	Model      any
}

// KwargsOrEmpty returns Kwargs, or an empty (non-nil) map if it is nil.
func (c *Context) KwargsOrEmpty() map[string]any {
	if c.Kwargs == nil {
		return map[string]any{}
	}
	return c.Kwargs
}
