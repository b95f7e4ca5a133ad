// Package optimize implements the MIR optimization pipeline: a fixpoint
// loop of local rewrite passes driven by a shared pureness analysis.
package optimize

import (
	"candy/internal/builtins"
	"candy/internal/mir"
)

// PurenessInsights classifies defined ids as pure (side-effect-free, so
// removable when unused) or const (pure and context-independent, so
// liftable out of functions). It is maintained incrementally: passes call
// VisitOptimized as they walk bindings in order and OnRemove when they
// delete one, so the fixpoint loop never recomputes the whole analysis.
type PurenessInsights struct {
	pure        mir.IdSet
	constant    mir.IdSet
	definitions map[mir.Id]mir.Expression
}

// NewPurenessInsights returns an empty analysis.
func NewPurenessInsights() *PurenessInsights {
	return &PurenessInsights{
		pure:        make(mir.IdSet),
		constant:    make(mir.IdSet),
		definitions: make(map[mir.Id]mir.Expression),
	}
}

// VisitOptimized records the classification of a binding. Bindings must be
// visited in evaluation order so that referenced ids are classified first.
func (p *PurenessInsights) VisitOptimized(id mir.Id, expr mir.Expression) {
	p.definitions[id] = expr
	if p.isExpressionPure(expr) {
		p.pure.Add(id)
	} else {
		delete(p.pure, id)
	}
	if p.isExpressionConst(expr) {
		p.constant.Add(id)
	} else {
		delete(p.constant, id)
	}
	if fn, ok := expr.(mir.Function); ok {
		for _, param := range fn.Parameters {
			p.VisitOptimized(param, mir.Parameter{})
		}
		p.VisitOptimized(fn.ResponsibleParameter, mir.Parameter{})
		p.visitBody(fn.Body)
	}
	if multiple, ok := expr.(mir.Multiple); ok {
		p.visitBody(multiple.Body)
	}
}

func (p *PurenessInsights) visitBody(body mir.Body) {
	for _, binding := range body.Bindings {
		p.VisitOptimized(binding.Id, binding.Expression)
	}
}

// OnRemove forgets a removed binding.
func (p *PurenessInsights) OnRemove(id mir.Id) {
	delete(p.pure, id)
	delete(p.constant, id)
	delete(p.definitions, id)
}

// OnNormalizeIds remaps the analysis after a whole-body id renaming.
func (p *PurenessInsights) OnNormalizeIds(mapping map[mir.Id]mir.Id) {
	remapSet := func(set mir.IdSet) mir.IdSet {
		out := make(mir.IdSet, len(set))
		for id := range set {
			if to, ok := mapping[id]; ok {
				out.Add(to)
			}
		}
		return out
	}
	p.pure = remapSet(p.pure)
	p.constant = remapSet(p.constant)
	definitions := make(map[mir.Id]mir.Expression, len(p.definitions))
	for id, expr := range p.definitions {
		to, ok := mapping[id]
		if !ok {
			continue
		}
		definitions[to] = mir.ReplaceAllIds(expr, func(inner mir.Id) mir.Id {
			if mapped, ok := mapping[inner]; ok {
				return mapped
			}
			return inner
		})
	}
	p.definitions = definitions
}

// IsPure reports whether the binding at id is free of observable side
// effects.
func (p *PurenessInsights) IsPure(id mir.Id) bool { return p.pure.Contains(id) }

// IsConst reports whether the binding at id evaluates to the same value in
// every context, making it safe to lift.
func (p *PurenessInsights) IsConst(id mir.Id) bool { return p.constant.Contains(id) }

// Definition returns the expression currently bound to id, if known.
func (p *PurenessInsights) Definition(id mir.Id) (mir.Expression, bool) {
	expr, ok := p.definitions[id]
	return expr, ok
}

func (p *PurenessInsights) isExpressionPure(expr mir.Expression) bool {
	switch e := expr.(type) {
	case mir.Int, mir.Text, mir.Tag, mir.Builtin, mir.List, mir.Struct,
		mir.Reference, mir.HirIdent, mir.Function, mir.Parameter:
		return true
	case mir.Call:
		// Only calls to builtins with no observable effects can be
		// considered pure; calling an arbitrary function may diverge
		// or panic.
		if callee, ok := p.definitions[e.Function]; ok {
			if builtin, ok := callee.(mir.Builtin); ok {
				return builtin.Fn.IsPure()
			}
		}
		return false
	case mir.Multiple:
		for _, binding := range e.Body.Bindings {
			if !p.isExpressionPure(binding.Expression) {
				return false
			}
		}
		return true
	default:
		// UseModule, Panic, module brackets, trace events.
		return false
	}
}

func (p *PurenessInsights) isExpressionConst(expr mir.Expression) bool {
	if _, isParam := expr.(mir.Parameter); isParam {
		return false
	}
	if !p.isExpressionPure(expr) {
		return false
	}
	for id := range mir.ReferencedIds(expr) {
		if !p.constant.Contains(id) {
			return false
		}
	}
	return true
}

// PureBuiltins is exposed for tests that assert which builtins fold.
func PureBuiltins() []builtins.Builtin {
	var out []builtins.Builtin
	for b := builtins.Builtin(0); b.IsValid(); b++ {
		if b.IsPure() {
			out = append(out, b)
		}
	}
	return out
}
