package optimize

import "candy/internal/mir"

// liftConstants hoists const bindings out of function bodies into the
// enclosing scope. Without this, importing the same module from many
// closures would duplicate its constants once per closure. A lifted
// binding that was a body's return value leaves a reference behind so the
// body keeps its shape.
func liftConstants(m *mir.Mir, insights *PurenessInsights) {
	liftInBody(&m.Body, m.IdGen, insights)
}

func liftInBody(body *mir.Body, gen *mir.IdGenerator, insights *PurenessInsights) {
	result := make([]mir.Binding, 0, len(body.Bindings))
	for _, binding := range body.Bindings {
		fn, ok := binding.Expression.(mir.Function)
		if !ok {
			insights.VisitOptimized(binding.Id, binding.Expression)
			result = append(result, binding)
			continue
		}
		liftInBody(&fn.Body, gen, insights)
		lifted, remaining := splitLiftableConstants(fn.Body, gen, insights)
		fn.Body = remaining
		result = append(result, lifted...)
		binding.Expression = fn
		insights.VisitOptimized(binding.Id, fn)
		result = append(result, binding)
	}
	body.Bindings = result
}

// splitLiftableConstants removes const bindings from a function body and
// returns them for insertion before the function. A const return value
// cannot be removed outright, so it is replaced by a reference to the
// lifted binding.
func splitLiftableConstants(body mir.Body, gen *mir.IdGenerator, insights *PurenessInsights) (lifted []mir.Binding, remaining mir.Body) {
	returnValue := body.ReturnValue()
	for _, binding := range body.Bindings {
		if !insights.IsConst(binding.Id) {
			remaining.Bindings = append(remaining.Bindings, binding)
			continue
		}
		if binding.Id == returnValue {
			liftedId := gen.Generate()
			lifted = append(lifted, mir.Binding{Id: liftedId, Expression: binding.Expression})
			insights.VisitOptimized(liftedId, binding.Expression)
			ref := mir.Reference{Target: liftedId}
			remaining.Bindings = append(remaining.Bindings, mir.Binding{Id: binding.Id, Expression: ref})
			insights.VisitOptimized(binding.Id, ref)
			continue
		}
		lifted = append(lifted, binding)
	}
	return lifted, remaining
}
