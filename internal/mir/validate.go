package mir

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of the Mir: bodies are
// non-empty, every id is defined exactly once, and every use refers to an
// id that is visible at that point. All violations are reported together.
func (m *Mir) Validate() error {
	v := &validator{defined: make(IdSet)}
	v.body(m.Body, make(IdSet), "root")
	return errors.Join(v.errs...)
}

// MustValidate panics on an invalid Mir. Optimization passes must
// preserve validity, so a failure here is an internal error.
func (m *Mir) MustValidate() {
	if err := m.Validate(); err != nil {
		panic(fmt.Sprintf("invalid MIR: %v", err))
	}
}

type validator struct {
	defined IdSet
	errs    []error
}

func (v *validator) define(id Id, where string) {
	if id == NoId {
		v.errs = append(v.errs, fmt.Errorf("missing id defined in %s", where))
		return
	}
	if v.defined.Contains(id) {
		v.errs = append(v.errs, fmt.Errorf("%s is defined twice (second time in %s)", id, where))
		return
	}
	v.defined.Add(id)
}

func (v *validator) body(body Body, visible IdSet, where string) {
	if len(body.Bindings) == 0 {
		v.errs = append(v.errs, fmt.Errorf("body of %s is empty", where))
		return
	}
	for _, binding := range body.Bindings {
		v.expression(binding.Id, binding.Expression, visible)
		v.define(binding.Id, where)
		visible.Add(binding.Id)
	}
	for _, binding := range body.Bindings {
		delete(visible, binding.Id)
	}
}

func (v *validator) expression(id Id, expr Expression, visible IdSet) {
	for used := range ReferencedIds(expr) {
		if !visible.Contains(used) {
			v.errs = append(v.errs, fmt.Errorf("%s references %s, which is not in scope", id, used))
		}
	}
	switch e := expr.(type) {
	case Function:
		where := fmt.Sprintf("function %s", id)
		for _, param := range e.Parameters {
			v.define(param, where)
			visible.Add(param)
		}
		v.define(e.ResponsibleParameter, where)
		visible.Add(e.ResponsibleParameter)
		v.body(e.Body, visible, where)
		for _, param := range e.Parameters {
			delete(visible, param)
		}
		delete(visible, e.ResponsibleParameter)
	case Multiple:
		v.body(e.Body, visible, fmt.Sprintf("multiple %s", id))
	case Parameter:
		v.errs = append(v.errs, fmt.Errorf("%s binds a bare parameter expression", id))
	}
}
