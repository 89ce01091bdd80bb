package callback

import (
	"fmt"
	"reflect"

	"github.com/comalice/hsm/internal/tree"
)

// Adapter wraps an arbitrary callable so the engine can invoke it with a
// Context superset, passing through only the parameters the callee
// declares, in the right slots. The binding plan (which Context field feeds
// which parameter) is computed once, at Wrap time, and cached on the
// Adapter — repeated Call invocations never re-inspect the signature.
type Adapter struct {
	fn     reflect.Value
	providers []func(*Context) reflect.Value
	variadic  bool
	elemType  reflect.Type // element type when variadic
	hasError  bool         // last return value is error
	hasValue  bool         // a non-error return value is produced
}

var (
	contextPtrType   = reflect.TypeOf((*Context)(nil))
	stateIDType      = reflect.TypeOf(tree.StateID(""))
	transitionPtrType = reflect.TypeOf((*tree.Transition)(nil))
	stringType       = reflect.TypeOf("")
	argsSliceType    = reflect.TypeOf([]any(nil))
	kwargsMapType    = reflect.TypeOf(map[string]any(nil))
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
	anyType          = reflect.TypeOf((*any)(nil)).Elem()
)

// Wrap builds an Adapter around fn, which must be a Go function value.
// Supported parameter types (matched positionally by type, consumed in this
// priority order so repeated same-typed parameters bind to successive
// Context fields): *callback.Context, string (EventType), []any (Args),
// map[string]any (Kwargs), tree.StateID (Source, then Target, then State),
// *tree.Transition, any (EventData, then Model). Supported return shapes:
// no return, error, a single non-error value, or (value, error).
func Wrap(fn any) (*Adapter, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("callback: %T is not a function", fn)
	}
	t := v.Type()

	a := &Adapter{fn: v}

	stateIDSeen := 0
	anySeen := 0
	for i := 0; i < t.NumIn(); i++ {
		pt := t.In(i)
		switch {
		case pt == contextPtrType:
			a.providers = append(a.providers, func(c *Context) reflect.Value { return reflect.ValueOf(c) })
		case pt == stringType:
			a.providers = append(a.providers, func(c *Context) reflect.Value { return reflect.ValueOf(c.EventType) })
		case pt == argsSliceType:
			a.providers = append(a.providers, func(c *Context) reflect.Value { return reflect.ValueOf(c.Args) })
		case pt == kwargsMapType:
			a.providers = append(a.providers, func(c *Context) reflect.Value { return reflect.ValueOf(c.KwargsOrEmpty()) })
		case pt == stateIDType:
			slot := stateIDSeen
			stateIDSeen++
			a.providers = append(a.providers, stateIDProvider(slot))
		case pt == transitionPtrType:
			a.providers = append(a.providers, func(c *Context) reflect.Value { return reflect.ValueOf(c.Transition) })
		case pt == anyType:
			slot := anySeen
			anySeen++
			a.providers = append(a.providers, anyProvider(slot))
		default:
			return nil, fmt.Errorf("callback: unsupported parameter type %s at index %d", pt, i)
		}
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			a.hasError = true
		} else {
			a.hasValue = true
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("callback: second return value must be error")
		}
		a.hasValue = true
		a.hasError = true
	default:
		return nil, fmt.Errorf("callback: too many return values (max 2)")
	}

	return a, nil
}

func stateIDProvider(slot int) func(*Context) reflect.Value {
	return func(c *Context) reflect.Value {
		switch slot {
		case 0:
			return reflect.ValueOf(c.Source)
		case 1:
			return reflect.ValueOf(c.Target)
		default:
			return reflect.ValueOf(c.State)
		}
	}
}

func anyProvider(slot int) func(*Context) reflect.Value {
	return func(c *Context) reflect.Value {
		var v any
		if slot == 0 {
			v = c.EventData
		} else {
			v = c.Model
		}
		if v == nil {
			return reflect.Zero(anyType)
		}
		return reflect.ValueOf(v)
	}
}

// Call invokes the wrapped callable with ctx, returning its non-error
// result (nil if it has none) and any error it returned.
func (a *Adapter) Call(ctx *Context) (any, error) {
	in := make([]reflect.Value, len(a.providers))
	for i, p := range a.providers {
		in[i] = p(ctx)
	}
	out := a.fn.Call(in)

	var result any
	var err error
	idx := 0
	if a.hasValue {
		result = out[idx].Interface()
		idx++
	}
	if a.hasError {
		if e, ok := out[idx].Interface().(error); ok {
			err = e
		}
	}
	return result, err
}

// CallBool invokes the wrapped callable and coerces its primary return
// value to bool (used for guard evaluation: a non-bool, non-error return is
// treated as truthy if non-nil/non-zero). Guard callables are expected to
// return bool directly; this coercion only matters for a callback list that
// mixes guard-shaped and action-shaped entries.
func (a *Adapter) CallBool(ctx *Context) (bool, error) {
	result, err := a.Call(ctx)
	if err != nil {
		return false, err
	}
	if b, ok := result.(bool); ok {
		return b, nil
	}
	return result != nil && !reflect.ValueOf(result).IsZero(), nil
}
