package compiler

import "github.com/roach88/stepwise/internal/syntax"

func paramScope(params []*syntax.Param, vararg string) *syntax.Scope {
	scope := &syntax.Scope{
		Locals:    map[string]bool{},
		Globals:   map[string]bool{},
		Nonlocals: map[string]bool{},
	}
	for _, p := range params {
		scope.Locals[p.Name] = true
	}
	if vararg != "" {
		scope.Locals[vararg] = true
	}
	return scope
}

// functionScope classifies the names of a function body. A name bound
// anywhere in the body is local unless declared global or nonlocal.
func functionScope(params []*syntax.Param, vararg string, body []syntax.Stmt) *syntax.Scope {
	scope := paramScope(params, vararg)
	bound := map[string]bool{}
	declared(body, scope)
	bindings(body, bound)
	for name := range bound {
		if !scope.Globals[name] && !scope.Nonlocals[name] {
			scope.Locals[name] = true
		}
	}
	return scope
}

// declared collects global and nonlocal declarations, skipping nested
// function bodies.
func declared(body []syntax.Stmt, scope *syntax.Scope) {
	for _, s := range body {
		switch s := s.(type) {
		case *syntax.Global:
			for _, n := range s.Names {
				scope.Globals[n] = true
			}
		case *syntax.Nonlocal:
			for _, n := range s.Names {
				scope.Nonlocals[n] = true
			}
		default:
			for _, block := range blocks(s) {
				declared(block, scope)
			}
		}
	}
}

// bindings collects every name a statement list binds, skipping nested
// function bodies (but not the function names themselves).
func bindings(body []syntax.Stmt, out map[string]bool) {
	for _, s := range body {
		switch s := s.(type) {
		case *syntax.Assign:
			for _, t := range s.Targets {
				collectTargets(t, out)
			}
		case *syntax.AnnAssign:
			collectTargets(s.Target, out)
		case *syntax.AugAssign:
			collectTargets(s.Target, out)
		case *syntax.For:
			collectTargets(s.Target, out)
		case *syntax.FuncDef:
			out[s.Name] = true
		case *syntax.ClassDef:
			out[s.Name] = true
		case *syntax.Import:
			for _, a := range s.Names {
				if a.AsName != "" {
					out[a.AsName] = true
				} else {
					out[firstSegment(a.Name)] = true
				}
			}
		case *syntax.ImportFrom:
			for _, a := range s.Names {
				out[a.Bound()] = true
			}
		case *syntax.Delete:
			for _, t := range s.Targets {
				collectTargets(t, out)
			}
		case *syntax.Try:
			for _, h := range s.Handlers {
				if h.Name != "" {
					out[h.Name] = true
				}
			}
		}
		for _, block := range blocks(s) {
			bindings(block, out)
		}
	}
}

// blocks returns the nested statement lists of a compound statement that
// belong to the same scope.
func blocks(s syntax.Stmt) [][]syntax.Stmt {
	switch s := s.(type) {
	case *syntax.If:
		return [][]syntax.Stmt{s.Body, s.Else}
	case *syntax.While:
		return [][]syntax.Stmt{s.Body, s.Else}
	case *syntax.For:
		return [][]syntax.Stmt{s.Body, s.Else}
	case *syntax.Try:
		out := [][]syntax.Stmt{s.Body, s.Else, s.Finally}
		for _, h := range s.Handlers {
			out = append(out, h.Body)
		}
		return out
	case *syntax.With:
		return [][]syntax.Stmt{s.Body}
	}
	return nil
}

// collectTargets adds the plain names bound by an assignment target.
func collectTargets(x syntax.Expr, out map[string]bool) {
	switch t := x.(type) {
	case *syntax.Name:
		out[t.Id] = true
	case *syntax.TupleExpr:
		for _, e := range t.Elts {
			collectTargets(e, out)
		}
	case *syntax.ListExpr:
		for _, e := range t.Elts {
			collectTargets(e, out)
		}
	case *syntax.GuardedUnpack:
		for _, e := range t.Targets {
			collectTargets(e, out)
		}
	case *syntax.Starred:
		collectTargets(t.X, out)
	}
}

func firstSegment(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}
