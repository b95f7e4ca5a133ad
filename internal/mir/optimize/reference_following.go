package optimize

import "candy/internal/mir"

// followReferences replaces every use of an id bound to a Reference with
// the reference's target, chasing chains of references. Afterwards a
// trailing reference that only re-exports the previous binding is
// dropped, so bodies do not accumulate redundant return indirections.
func followReferences(m *mir.Mir, insights *PurenessInsights) {
	targets := make(map[mir.Id]mir.Id)
	m.Body.VisitExpressions(func(id mir.Id, expr *mir.Expression) {
		if ref, ok := (*expr).(mir.Reference); ok {
			targets[id] = ref.Target
		}
	})
	if len(targets) == 0 {
		removeRedundantReturnReferences(m, insights)
		return
	}
	follow := func(id mir.Id) mir.Id {
		for {
			target, ok := targets[id]
			if !ok {
				return id
			}
			id = target
		}
	}
	m.Body.VisitExpressions(func(id mir.Id, expr *mir.Expression) {
		if _, isRef := (*expr).(mir.Reference); isRef {
			// Keep the reference binding itself intact; uses of its id
			// are rewritten, and tree shaking removes it once unused.
			return
		}
		*expr = mir.ReplaceIdUses(*expr, follow)
		insights.VisitOptimized(id, *expr)
	})
	removeRedundantReturnReferences(m, insights)
}

// removeRedundantReturnReferences drops a body's last binding when it is a
// reference to the binding directly before it. The previous binding then
// becomes the return value.
func removeRedundantReturnReferences(m *mir.Mir, insights *PurenessInsights) {
	m.Body.VisitBodies(func(body *mir.Body) {
		for len(body.Bindings) >= 2 {
			last := body.Bindings[len(body.Bindings)-1]
			ref, ok := last.Expression.(mir.Reference)
			if !ok || ref.Target != body.Bindings[len(body.Bindings)-2].Id {
				break
			}
			body.Bindings = body.Bindings[:len(body.Bindings)-1]
			insights.OnRemove(last.Id)
		}
	})
}
