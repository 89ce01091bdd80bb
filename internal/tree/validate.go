package tree

import "fmt"

// ValidationError describes one build-time structural problem. Builder
// collects every error it can find rather than failing on the first.
type ValidationError struct {
	Kind    string // "no-initial", "empty-parallel", "final-with-transitions", "trap-state", "bad-internal", "unreachable", "no-final-path"
	StateID StateID
	Message string
}

func (e *ValidationError) Error() string {
	if e.StateID != "" {
		return fmt.Sprintf("%s: state %q: %s", e.Kind, e.StateID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ValidationErrors aggregates every ValidationError found during Build.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, ve := range e {
		msg += "\n  - " + ve.Error()
	}
	return msg
}

// Validate walks the whole tree rooted at root and returns every structural
// problem spec.md §4.6 requires to be caught at build time. strict controls
// whether trap-state and no-final-path warnings become errors.
func Validate(root *State, strict bool) ValidationErrors {
	var errs ValidationErrors

	var walk func(s *State)
	walk = func(s *State) {
		switch s.Kind {
		case Compound:
			if s.Initial == nil {
				errs = append(errs, &ValidationError{Kind: "no-initial", StateID: s.ID,
					Message: "compound state has no initial child"})
			}
		case Parallel:
			if len(s.Children) == 0 {
				errs = append(errs, &ValidationError{Kind: "empty-parallel", StateID: s.ID,
					Message: "parallel state has no regions"})
			}
		}

		if s.IsFinal() && len(s.Transitions) > 0 {
			errs = append(errs, &ValidationError{Kind: "final-with-transitions", StateID: s.ID,
				Message: "final states may not have outgoing transitions"})
		}

		if !s.IsFinal() && len(s.Children) == 0 && len(s.Transitions) == 0 {
			msg := &ValidationError{Kind: "trap-state", StateID: s.ID,
				Message: "non-final atomic state has no outgoing transitions"}
			if strict {
				errs = append(errs, msg)
			}
		}

		for _, t := range s.Transitions {
			if t.Internal && t.Target != nil && t.Target != s {
				errs = append(errs, &ValidationError{Kind: "bad-internal", StateID: s.ID,
					Message: "internal transition must target its own source"})
			}
		}

		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(root)

	if reach := unreachableStates(root); len(reach) > 0 {
		for _, id := range reach {
			errs = append(errs, &ValidationError{Kind: "unreachable", StateID: id,
				Message: "not reachable from the initial configuration"})
		}
	}

	if strict {
		for _, id := range statesWithoutPathToFinal(root) {
			errs = append(errs, &ValidationError{Kind: "no-final-path", StateID: id,
				Message: "no path to any final state"})
		}
	}

	return errs
}

// unreachableStates returns the IDs of every state not reachable from root
// by following Children and Transition targets.
func unreachableStates(root *State) []StateID {
	visited := map[*State]bool{}
	var visit func(s *State)
	visit = func(s *State) {
		if s == nil || visited[s] {
			return
		}
		visited[s] = true
		for _, c := range s.Children {
			visit(c)
		}
		for _, t := range s.Transitions {
			visit(t.Target)
			if t.TargetHistory != nil && t.TargetHistory.Default != nil {
				visit(t.TargetHistory.Default.Target)
			}
		}
	}
	visit(root)

	var all []*State
	var collect func(s *State)
	collect = func(s *State) {
		all = append(all, s)
		for _, c := range s.Children {
			collect(c)
		}
	}
	collect(root)

	var out []StateID
	for _, s := range all {
		if !visited[s] {
			out = append(out, s.ID)
		}
	}
	return out
}

// statesWithoutPathToFinal returns every non-final state with no transition
// path (possibly through descendants/ancestors) reaching a final state.
func statesWithoutPathToFinal(root *State) []StateID {
	var all []*State
	var collect func(s *State)
	collect = func(s *State) {
		all = append(all, s)
		for _, c := range s.Children {
			collect(c)
		}
	}
	collect(root)

	canReachFinal := map[*State]bool{}
	var reaches func(s *State, seen map[*State]bool) bool
	reaches = func(s *State, seen map[*State]bool) bool {
		if s.IsFinal() {
			return true
		}
		if seen[s] {
			return false
		}
		seen[s] = true
		for _, c := range s.Children {
			if reaches(c, seen) {
				return true
			}
		}
		for _, t := range s.Transitions {
			if t.Target != nil && reaches(t.Target, seen) {
				return true
			}
		}
		return false
	}
	for _, s := range all {
		canReachFinal[s] = reaches(s, map[*State]bool{})
	}

	var out []StateID
	for _, s := range all {
		if !s.IsFinal() && !canReachFinal[s] {
			out = append(out, s.ID)
		}
	}
	return out
}
