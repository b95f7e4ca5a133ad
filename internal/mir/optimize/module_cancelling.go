package optimize

import "candy/internal/mir"

// cancelOutModuleExpressions erases ModuleStarts/ModuleEnds brackets with
// nothing between them. Import cycles are detected when the brackets are
// generated, so an empty bracket pair carries no information; both ids
// are rebound to Nothing and tree shaking cleans them up.
func cancelOutModuleExpressions(m *mir.Mir, insights *PurenessInsights) {
	m.Body.VisitBodies(func(body *mir.Body) {
		for i := 0; i+1 < len(body.Bindings); i++ {
			_, isStart := body.Bindings[i].Expression.(mir.ModuleStarts)
			_, isEnd := body.Bindings[i+1].Expression.(mir.ModuleEnds)
			if !isStart || !isEnd {
				continue
			}
			body.Bindings[i].Expression = mir.Nothing()
			body.Bindings[i+1].Expression = mir.Nothing()
			insights.VisitOptimized(body.Bindings[i].Id, body.Bindings[i].Expression)
			insights.VisitOptimized(body.Bindings[i+1].Id, body.Bindings[i+1].Expression)
		}
	})
}
