package optimize

import "candy/internal/mir"

// treeShake removes bindings that are pure and not transitively needed by
// a body's return value. Impure bindings are always kept: removing them
// would change observable behavior.
func treeShake(m *mir.Mir, insights *PurenessInsights) {
	m.Body.VisitBodies(func(body *mir.Body) {
		shakeBody(body, insights)
	})
}

func shakeBody(body *mir.Body, insights *PurenessInsights) {
	keep := mir.NewIdSet(body.ReturnValue())
	for i := len(body.Bindings) - 1; i >= 0; i-- {
		binding := body.Bindings[i]
		if !keep.Contains(binding.Id) && insights.IsPure(binding.Id) {
			continue
		}
		keep.Add(binding.Id)
		for id := range mir.ReferencedIds(binding.Expression) {
			keep.Add(id)
		}
	}
	body.RemoveAll(func(id mir.Id) bool {
		if keep.Contains(id) {
			return true
		}
		insights.OnRemove(id)
		return false
	})
}
