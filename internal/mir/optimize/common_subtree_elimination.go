package optimize

import (
	"fmt"

	"candy/internal/mir"
)

// eliminateCommonSubtrees deduplicates pure expressions: when two
// bindings have structurally identical pure expressions and the earlier
// one is still visible at the later site, the later binding becomes a
// reference to the earlier one. Expressions are keyed by a normalized
// rendering in which locally-defined ids are renumbered canonically, so
// two identical functions match even though their parameter ids differ.
// Impure expressions are never merged.
func eliminateCommonSubtrees(m *mir.Mir, insights *PurenessInsights) {
	eliminateInBody(&m.Body, newVisibleKeys(nil), insights)
}

// visibleKeys is a scope chain of normalized-expression keys to the id of
// their first visible occurrence.
type visibleKeys struct {
	parent *visibleKeys
	keys   map[string]mir.Id
}

func newVisibleKeys(parent *visibleKeys) *visibleKeys {
	return &visibleKeys{parent: parent, keys: make(map[string]mir.Id)}
}

func (v *visibleKeys) lookup(key string) (mir.Id, bool) {
	for scope := v; scope != nil; scope = scope.parent {
		if id, ok := scope.keys[key]; ok {
			return id, true
		}
	}
	return mir.NoId, false
}

func eliminateInBody(body *mir.Body, visible *visibleKeys, insights *PurenessInsights) {
	for i := range body.Bindings {
		binding := &body.Bindings[i]
		if fn, ok := binding.Expression.(mir.Function); ok {
			eliminateInBody(&fn.Body, newVisibleKeys(visible), insights)
			binding.Expression = fn
		}
		insights.VisitOptimized(binding.Id, binding.Expression)
		if !insights.IsPure(binding.Id) {
			continue
		}
		if _, isRef := binding.Expression.(mir.Reference); isRef {
			continue
		}
		key := normalizedKey(binding.Expression)
		if earlier, ok := visible.lookup(key); ok {
			ref := mir.Reference{Target: earlier}
			binding.Expression = ref
			insights.VisitOptimized(binding.Id, ref)
			continue
		}
		visible.keys[key] = binding.Id
	}
}

// normalizedKey renders an expression with its internally-defined ids
// renumbered in definition order, so structural twins produce the same
// key regardless of their concrete ids. Ids defined outside the
// expression keep their identity, since merging is only legal when those
// resolve to the same bindings anyway.
func normalizedKey(expr mir.Expression) string {
	defined := definedIdsInOrder(expr)
	canonical := make(map[mir.Id]mir.Id, len(defined))
	for i, id := range defined {
		canonical[id] = mir.Id(-(i + 1))
	}
	normalized := mir.ReplaceAllIds(expr, func(id mir.Id) mir.Id {
		if mapped, ok := canonical[id]; ok {
			return mapped
		}
		return id
	})
	return fmt.Sprintf("%T|%s", expr, mir.RenderExpression(normalized))
}

func definedIdsInOrder(expr mir.Expression) []mir.Id {
	var ids []mir.Id
	switch e := expr.(type) {
	case mir.Function:
		ids = append(ids, e.Parameters...)
		ids = append(ids, e.ResponsibleParameter)
		ids = append(ids, e.Body.AllDefinedIds()...)
	case mir.Multiple:
		ids = e.Body.AllDefinedIds()
	}
	return ids
}
