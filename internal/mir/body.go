package mir

// Binding is one id-bound expression inside a body.
type Binding struct {
	Id         Id
	Expression Expression
}

// Body is an ordered list of bindings. The last binding's value is the
// body's return value; an empty body is invalid.
type Body struct {
	Bindings []Binding
}

// Push appends a binding.
func (b *Body) Push(id Id, expr Expression) {
	b.Bindings = append(b.Bindings, Binding{Id: id, Expression: expr})
}

// PushNew generates a fresh id, binds expr to it, and returns the id.
func (b *Body) PushNew(gen *IdGenerator, expr Expression) Id {
	id := gen.Generate()
	b.Push(id, expr)
	return id
}

// ReturnValue is the id of the body's last binding.
func (b *Body) ReturnValue() Id {
	return b.Bindings[len(b.Bindings)-1].Id
}

// ExpressionFor returns the expression bound to id in this body, searching
// only the top level.
func (b *Body) ExpressionFor(id Id) (Expression, bool) {
	for _, binding := range b.Bindings {
		if binding.Id == id {
			return binding.Expression, true
		}
	}
	return nil, false
}

// RemoveAll drops every binding whose id the predicate accepts.
func (b *Body) RemoveAll(keep func(Id) bool) {
	filtered := b.Bindings[:0]
	for _, binding := range b.Bindings {
		if keep(binding.Id) {
			filtered = append(filtered, binding)
		}
	}
	b.Bindings = filtered
}

// InsertAt inserts a binding before index i.
func (b *Body) InsertAt(i int, id Id, expr Expression) {
	b.Bindings = append(b.Bindings, Binding{})
	copy(b.Bindings[i+1:], b.Bindings[i:])
	b.Bindings[i] = Binding{Id: id, Expression: expr}
}

// FlattenMultiples replaces every Multiple binding by the bindings of its
// inner body, rebinding the Multiple's id to a reference to the inner
// return value. Passes wrap replacement code in a Multiple; this folds it
// back into straight-line form.
func (b *Body) FlattenMultiples() {
	flattened := make([]Binding, 0, len(b.Bindings))
	for _, binding := range b.Bindings {
		expr := flattenNestedMultiples(binding.Expression)
		multiple, ok := expr.(Multiple)
		if !ok {
			flattened = append(flattened, Binding{Id: binding.Id, Expression: expr})
			continue
		}
		inner := multiple.Body
		inner.FlattenMultiples()
		flattened = append(flattened, inner.Bindings...)
		flattened = append(flattened, Binding{
			Id:         binding.Id,
			Expression: Reference{Target: inner.ReturnValue()},
		})
	}
	b.Bindings = flattened
}

func flattenNestedMultiples(expr Expression) Expression {
	if fn, ok := expr.(Function); ok {
		fn.Body.FlattenMultiples()
		return fn
	}
	return expr
}

// VisitExpressions calls visit for every binding in the body and,
// recursively, in nested function and Multiple bodies, in evaluation
// order. The pointers stay valid for in-place replacement.
func (b *Body) VisitExpressions(visit func(id Id, expr *Expression)) {
	for i := range b.Bindings {
		binding := &b.Bindings[i]
		switch inner := binding.Expression.(type) {
		case Function:
			inner.Body.VisitExpressions(visit)
			binding.Expression = inner
		case Multiple:
			inner.Body.VisitExpressions(visit)
			binding.Expression = inner
		}
		visit(binding.Id, &binding.Expression)
	}
}

// VisitBodies calls visit for this body and every nested one, innermost
// first.
func (b *Body) VisitBodies(visit func(body *Body)) {
	for i := range b.Bindings {
		binding := &b.Bindings[i]
		switch inner := binding.Expression.(type) {
		case Function:
			inner.Body.VisitBodies(visit)
			binding.Expression = inner
		case Multiple:
			inner.Body.VisitBodies(visit)
			binding.Expression = inner
		}
	}
	visit(b)
}

// AllDefinedIds collects the ids defined anywhere inside the body,
// including function parameters and nested bodies.
func (b *Body) AllDefinedIds() []Id {
	var ids []Id
	b.collectDefinedIds(&ids)
	return ids
}

func (b *Body) collectDefinedIds(ids *[]Id) {
	for _, binding := range b.Bindings {
		*ids = append(*ids, binding.Id)
		switch inner := binding.Expression.(type) {
		case Function:
			*ids = append(*ids, inner.Parameters...)
			*ids = append(*ids, inner.ResponsibleParameter)
			inner.Body.collectDefinedIds(ids)
		case Multiple:
			inner.Body.collectDefinedIds(ids)
		}
	}
}
