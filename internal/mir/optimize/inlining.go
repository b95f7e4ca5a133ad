package optimize

import "candy/internal/mir"

// inlineFunctionsContainingUse inlines calls whose callee is a known
// function containing a `use`. Imports only become foldable once the
// importing call disappears, so this pass unlocks module-bracket
// cancellation and constant propagation across module boundaries.
func inlineFunctionsContainingUse(m *mir.Mir, insights *PurenessInsights) {
	m.Body.VisitExpressions(func(id mir.Id, expr *mir.Expression) {
		insights.VisitOptimized(id, *expr)
		call, ok := (*expr).(mir.Call)
		if !ok {
			return
		}
		callee, ok := insights.Definition(call.Function)
		if !ok {
			return
		}
		fn, ok := callee.(mir.Function)
		if !ok || !containsUse(fn.Body) {
			return
		}
		if len(fn.Parameters) != len(call.Arguments) {
			return
		}
		inlined := inlineCall(fn, call, m.IdGen)
		*expr = inlined
		insights.VisitOptimized(id, inlined)
	})
}

func containsUse(body mir.Body) bool {
	found := false
	body.VisitExpressions(func(_ mir.Id, expr *mir.Expression) {
		if _, ok := (*expr).(mir.UseModule); ok {
			found = true
		}
	})
	return found
}

// inlineCall builds a Multiple that binds the function's parameters to
// the call's arguments and then runs a copy of the body. All ids defined
// inside the function are replaced by fresh ones so the copy does not
// collide with the original definition, which may still have other
// callers.
func inlineCall(fn mir.Function, call mir.Call, gen *mir.IdGenerator) mir.Expression {
	fresh := make(map[mir.Id]mir.Id)
	for _, param := range fn.Parameters {
		fresh[param] = gen.Generate()
	}
	fresh[fn.ResponsibleParameter] = gen.Generate()
	for _, id := range fn.Body.AllDefinedIds() {
		fresh[id] = gen.Generate()
	}
	renamed := mir.ReplaceAllIds(fn, func(id mir.Id) mir.Id {
		if mapped, ok := fresh[id]; ok {
			return mapped
		}
		return id
	}).(mir.Function)

	var body mir.Body
	for i, param := range renamed.Parameters {
		body.Push(param, mir.Reference{Target: call.Arguments[i]})
	}
	body.Push(renamed.ResponsibleParameter, mir.Reference{Target: call.Responsible})
	body.Bindings = append(body.Bindings, renamed.Body.Bindings...)
	return mir.Multiple{Body: body}
}
