package optimize

import (
	"sort"

	"candy/internal/mir"
)

// cleanup runs once after the fixpoint: leading constants are sorted into
// a canonical order and all ids are renumbered densely in definition
// order, so equal programs optimize to byte-identical MIR.
func cleanup(m *mir.Mir, insights *PurenessInsights) {
	sortLeadingConstants(&m.Body)
	normalizeIds(m, insights)
}

// sortLeadingConstants reorders the maximal prefix of top-level bindings
// that reference nothing (literals, builtins, HIR ids). They have no
// dependencies among each other, so any order is valid; sorting by
// rendering makes the order deterministic.
func sortLeadingConstants(body *mir.Body) {
	end := 0
	for end < len(body.Bindings) {
		if !isLeafConstant(body.Bindings[end].Expression) {
			break
		}
		end++
	}
	leading := body.Bindings[:end]
	sort.SliceStable(leading, func(i, j int) bool {
		return mir.RenderExpression(leading[i].Expression) < mir.RenderExpression(leading[j].Expression)
	})
}

func isLeafConstant(expr mir.Expression) bool {
	switch e := expr.(type) {
	case mir.Int, mir.Text, mir.Builtin, mir.HirIdent:
		return true
	case mir.Tag:
		return e.Value == mir.NoId
	default:
		return false
	}
}

// normalizeIds renumbers every defined id starting from 1, in definition
// order, and resets the generator accordingly.
func normalizeIds(m *mir.Mir, insights *PurenessInsights) {
	mapping := make(map[mir.Id]mir.Id)
	gen := mir.NewIdGenerator()
	assign := func(id mir.Id) {
		if _, ok := mapping[id]; !ok {
			mapping[id] = gen.Generate()
		}
	}
	var assignBody func(body mir.Body)
	assignBody = func(body mir.Body) {
		for _, binding := range body.Bindings {
			assign(binding.Id)
			switch inner := binding.Expression.(type) {
			case mir.Function:
				for _, param := range inner.Parameters {
					assign(param)
				}
				assign(inner.ResponsibleParameter)
				assignBody(inner.Body)
			case mir.Multiple:
				assignBody(inner.Body)
			}
		}
	}
	assignBody(m.Body)

	remap := func(id mir.Id) mir.Id {
		if mapped, ok := mapping[id]; ok {
			return mapped
		}
		return id
	}
	bindings := make([]mir.Binding, len(m.Body.Bindings))
	for i, binding := range m.Body.Bindings {
		bindings[i] = mir.Binding{
			Id:         remap(binding.Id),
			Expression: mir.ReplaceAllIds(binding.Expression, remap),
		}
	}
	m.Body = mir.Body{Bindings: bindings}
	m.IdGen = gen
	insights.OnNormalizeIds(mapping)
}
