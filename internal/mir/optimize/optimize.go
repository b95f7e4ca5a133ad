package optimize

import "candy/internal/mir"

// Optimize runs the whole pipeline on a module's MIR: the self-contained
// passes loop until the body stops changing, then tracing simplification
// and cleanup run once. Passes unlock each other, so a single sweep is
// not enough: reference following exposes literal operands to constant
// folding, constant lifting exposes duplicate subtrees across sibling
// functions to elimination.
//
// The result is validated; an invalid MIR afterwards is a bug in a pass,
// not a user error, and panics.
func Optimize(m *mir.Mir, tracing TracingConfig) {
	insights := NewPurenessInsights()
	previous := ""
	for {
		optimizeObviousSelfContained(m, insights)
		simplifyCallTracing(m, tracing, insights)
		m.Body.FlattenMultiples()
		treeShake(m, insights)
		rendered := m.String()
		if rendered == previous {
			break
		}
		previous = rendered
	}
	cleanup(m, insights)
	m.MustValidate()
}

// optimizeObviousSelfContained runs the passes that need no configuration.
func optimizeObviousSelfContained(m *mir.Mir, insights *PurenessInsights) {
	followReferences(m, insights)
	foldConstants(m, insights)
	inlineFunctionsContainingUse(m, insights)
	m.Body.FlattenMultiples()
	liftConstants(m, insights)
	eliminateCommonSubtrees(m, insights)
	cancelOutModuleExpressions(m, insights)
}
