package mir

import (
	"math/big"
	"strings"
	"testing"

	"candy/internal/module"
)

func testModule(t *testing.T) module.Module {
	t.Helper()
	return module.New("example", "main")
}

func intExpr(v int64) Expression {
	return Int{Value: big.NewInt(v)}
}

func TestReferencedIdsOfFunctionAreItsCaptures(t *testing.T) {
	gen := NewIdGenerator()
	captured := gen.Generate()
	param := gen.Generate()
	responsible := gen.Generate()
	inner := gen.Generate()

	fn := Function{
		Parameters:           []Id{param},
		ResponsibleParameter: responsible,
		Body: Body{Bindings: []Binding{
			{Id: inner, Expression: List{Items: []Id{captured, param}}},
		}},
	}

	free := ReferencedIds(fn)
	if !free.Contains(captured) {
		t.Fatalf("captured id %s missing from %v", captured, free)
	}
	if free.Contains(param) || free.Contains(responsible) || free.Contains(inner) {
		t.Fatalf("locally bound ids leaked into capture set: %v", free)
	}
}

func TestFlattenMultiples(t *testing.T) {
	m := Build(func(body *Body, gen *IdGenerator) {
		inner := Body{}
		a := inner.PushNew(gen, intExpr(1))
		inner.PushNew(gen, Reference{Target: a})
		body.PushNew(gen, Multiple{Body: inner})
	})
	m.Body.FlattenMultiples()

	if len(m.Body.Bindings) != 3 {
		t.Fatalf("expected 3 bindings after flattening, got %d:\n%s", len(m.Body.Bindings), m)
	}
	last := m.Body.Bindings[2].Expression
	ref, ok := last.(Reference)
	if !ok {
		t.Fatalf("last binding should be a reference, got %T", last)
	}
	if ref.Target != m.Body.Bindings[1].Id {
		t.Fatalf("multiple's id should alias the inner return value")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("flattened body is invalid: %v", err)
	}
}

func TestValidateRejectsDuplicateDefinitions(t *testing.T) {
	m := New()
	id := m.IdGen.Generate()
	m.Body.Push(id, intExpr(1))
	m.Body.Push(id, intExpr(2))

	err := m.Validate()
	if err == nil {
		t.Fatal("expected a validation error for a duplicate id")
	}
	if !strings.Contains(err.Error(), "defined twice") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUseBeforeDefinition(t *testing.T) {
	m := New()
	a := m.IdGen.Generate()
	b := m.IdGen.Generate()
	m.Body.Push(a, Reference{Target: b})
	m.Body.Push(b, intExpr(1))

	err := m.Validate()
	if err == nil {
		t.Fatal("expected a validation error for use before definition")
	}
	if !strings.Contains(err.Error(), "not in scope") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsOutOfScopeFunctionLocals(t *testing.T) {
	m := New()
	gen := m.IdGen
	fnId := gen.Generate()
	param := gen.Generate()
	responsible := gen.Generate()
	local := gen.Generate()
	m.Body.Push(fnId, Function{
		Parameters:           []Id{param},
		ResponsibleParameter: responsible,
		Body: Body{Bindings: []Binding{
			{Id: local, Expression: intExpr(7)},
		}},
	})
	m.Body.Push(gen.Generate(), Reference{Target: local})

	if err := m.Validate(); err == nil {
		t.Fatal("function-local ids must not be visible outside the function")
	}
}

func TestReplaceIdUsesKeepsDefinitions(t *testing.T) {
	gen := NewIdGenerator()
	old := gen.Generate()
	new_ := gen.Generate()
	param := gen.Generate()
	responsible := gen.Generate()
	inner := gen.Generate()

	fn := Function{
		Parameters:           []Id{param},
		ResponsibleParameter: responsible,
		Body: Body{Bindings: []Binding{
			{Id: inner, Expression: List{Items: []Id{old, param}}},
		}},
	}
	replaced := ReplaceIdUses(fn, func(id Id) Id {
		if id == old {
			return new_
		}
		return id
	}).(Function)

	if replaced.Parameters[0] != param {
		t.Fatal("definition sites must not change")
	}
	items := replaced.Body.Bindings[0].Expression.(List).Items
	if items[0] != new_ || items[1] != param {
		t.Fatalf("use sites rewritten incorrectly: %v", items)
	}
}

func TestStringIsDeterministic(t *testing.T) {
	build := func() *Mir {
		return Build(func(body *Body, gen *IdGenerator) {
			a := body.PushNew(gen, intExpr(42))
			b := body.PushNew(gen, Text{Value: "hi"})
			body.PushNew(gen, List{Items: []Id{a, b}})
		})
	}
	if build().String() != build().String() {
		t.Fatal("identical Mirs must render identically")
	}
}

func TestBuildPanickingModule(t *testing.T) {
	m := BuildPanickingModule(testModule(t), "the module has errors")
	if err := m.Validate(); err != nil {
		t.Fatalf("panicking module is invalid: %v", err)
	}
	last := m.Body.Bindings[len(m.Body.Bindings)-1].Expression
	if _, ok := last.(Panic); !ok {
		t.Fatalf("expected the module to end in a panic, got %T", last)
	}
}
