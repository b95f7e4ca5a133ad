package optimize

import (
	"math/big"
	"testing"

	"candy/internal/builtins"
	"candy/internal/hir"
	"candy/internal/mir"
	"candy/internal/module"
)

func testModule() module.Module {
	return module.New("example", "main")
}

func intExpr(v int64) mir.Expression {
	return mir.Int{Value: big.NewInt(v)}
}

func defaultTracing() TracingConfig {
	return TracingConfig{CallTracing: TraceNoCalls}
}

func TestOptimizeReachesFixpoint(t *testing.T) {
	build := func() *mir.Mir {
		return mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
			a := body.PushNew(gen, intExpr(1))
			b := body.PushNew(gen, intExpr(2))
			add := body.PushNew(gen, mir.Builtin{Fn: builtins.IntAdd})
			responsible := body.PushNew(gen, mir.HirIdent{Id: hir.ModuleId(testModule())})
			sum := body.PushNew(gen, mir.Call{
				Function:    add,
				Arguments:   []mir.Id{a, b},
				Responsible: responsible,
			})
			body.PushNew(gen, mir.Reference{Target: sum})
		})
	}

	once := build()
	Optimize(once, defaultTracing())
	rendered := once.String()
	Optimize(once, defaultTracing())
	if once.String() != rendered {
		t.Fatalf("second optimization changed the MIR:\nfirst:\n%s\nsecond:\n%s", rendered, once)
	}
}

func TestConstantFoldingEvaluatesIntAdd(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		a := body.PushNew(gen, intExpr(20))
		b := body.PushNew(gen, intExpr(22))
		add := body.PushNew(gen, mir.Builtin{Fn: builtins.IntAdd})
		responsible := body.PushNew(gen, mir.HirIdent{Id: hir.ModuleId(testModule())})
		body.PushNew(gen, mir.Call{
			Function:    add,
			Arguments:   []mir.Id{a, b},
			Responsible: responsible,
		})
	})
	Optimize(m, defaultTracing())

	result, ok := m.Body.ExpressionFor(m.Body.ReturnValue())
	if !ok {
		t.Fatal("return value has no binding")
	}
	folded, ok := result.(mir.Int)
	if !ok {
		t.Fatalf("expected the call to fold to an int, got %T:\n%s", result, m)
	}
	if folded.Value.Int64() != 42 {
		t.Fatalf("20 + 22 folded to %s", folded.Value)
	}
}

func TestConstantFoldingLeavesDivisionByZero(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		a := body.PushNew(gen, intExpr(1))
		b := body.PushNew(gen, intExpr(0))
		div := body.PushNew(gen, mir.Builtin{Fn: builtins.IntDivideTruncating})
		responsible := body.PushNew(gen, mir.HirIdent{Id: hir.ModuleId(testModule())})
		body.PushNew(gen, mir.Call{
			Function:    div,
			Arguments:   []mir.Id{a, b},
			Responsible: responsible,
		})
	})
	Optimize(m, defaultTracing())

	result, _ := m.Body.ExpressionFor(m.Body.ReturnValue())
	if _, ok := result.(mir.Call); !ok {
		t.Fatalf("division by zero must stay a runtime call, got %T", result)
	}
}

func TestTreeShakingKeepsImpureAndNeeded(t *testing.T) {
	var printId, deadId mir.Id
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		deadId = body.PushNew(gen, intExpr(1))
		text := body.PushNew(gen, mir.Text{Value: "hello"})
		print := body.PushNew(gen, mir.Builtin{Fn: builtins.Print})
		responsible := body.PushNew(gen, mir.HirIdent{Id: hir.ModuleId(testModule())})
		printId = body.PushNew(gen, mir.Call{
			Function:    print,
			Arguments:   []mir.Id{text},
			Responsible: responsible,
		})
		body.PushNew(gen, mir.Tag{Symbol: "Nothing"})
	})

	insights := NewPurenessInsights()
	m.Body.VisitExpressions(func(id mir.Id, expr *mir.Expression) {
		insights.VisitOptimized(id, *expr)
	})
	treeShake(m, insights)

	ids := mir.NewIdSet(m.Body.AllDefinedIds()...)
	if !ids.Contains(printId) {
		t.Fatal("tree shaking removed an impure call")
	}
	if ids.Contains(deadId) {
		t.Fatal("tree shaking kept an unused pure binding")
	}
	for _, binding := range m.Body.Bindings {
		for referenced := range mir.ReferencedIds(binding.Expression) {
			if !ids.Contains(referenced) {
				t.Fatalf("%s references removed id %s", binding.Id, referenced)
			}
		}
	}
}

func TestCommonSubtreeEliminationMergesPureTwins(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		first := body.PushNew(gen, mir.Text{Value: "twin"})
		second := body.PushNew(gen, mir.Text{Value: "twin"})
		body.PushNew(gen, mir.List{Items: []mir.Id{first, second}})
	})
	insights := NewPurenessInsights()
	eliminateCommonSubtrees(m, insights)

	second := m.Body.Bindings[1]
	ref, ok := second.Expression.(mir.Reference)
	if !ok {
		t.Fatalf("expected the second twin to become a reference, got %T", second.Expression)
	}
	if ref.Target != m.Body.Bindings[0].Id {
		t.Fatalf("reference points at %s instead of the first twin", ref.Target)
	}
}

func TestCommonSubtreeEliminationNeverMergesImpure(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		text := body.PushNew(gen, mir.Text{Value: "hi"})
		print := body.PushNew(gen, mir.Builtin{Fn: builtins.Print})
		responsible := body.PushNew(gen, mir.HirIdent{Id: hir.ModuleId(testModule())})
		body.PushNew(gen, mir.Call{Function: print, Arguments: []mir.Id{text}, Responsible: responsible})
		body.PushNew(gen, mir.Call{Function: print, Arguments: []mir.Id{text}, Responsible: responsible})
	})
	insights := NewPurenessInsights()
	eliminateCommonSubtrees(m, insights)

	for _, binding := range m.Body.Bindings[3:] {
		if _, ok := binding.Expression.(mir.Reference); ok {
			t.Fatal("impure calls must not be merged")
		}
	}
}

func TestModuleBracketCancellation(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		body.PushNew(gen, mir.ModuleStarts{Module: testModule()})
		body.PushNew(gen, mir.ModuleEnds{})
		body.PushNew(gen, intExpr(3))
	})
	insights := NewPurenessInsights()
	cancelOutModuleExpressions(m, insights)

	for _, binding := range m.Body.Bindings[:2] {
		tag, ok := binding.Expression.(mir.Tag)
		if !ok || tag.Symbol != "Nothing" {
			t.Fatalf("bracket should cancel to Nothing, got %s", mir.RenderExpression(binding.Expression))
		}
	}
}

func TestModuleBracketWithUseSurvives(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		body.PushNew(gen, mir.ModuleStarts{Module: testModule()})
		path := body.PushNew(gen, mir.Text{Value: ".imported"})
		responsible := body.PushNew(gen, mir.HirIdent{Id: hir.ModuleId(testModule())})
		body.PushNew(gen, mir.UseModule{
			CurrentModule: testModule(),
			RelativePath:  path,
			Responsible:   responsible,
		})
		body.PushNew(gen, mir.ModuleEnds{})
		body.PushNew(gen, mir.Tag{Symbol: "Nothing"})
	})
	insights := NewPurenessInsights()
	cancelOutModuleExpressions(m, insights)

	if _, ok := m.Body.Bindings[0].Expression.(mir.ModuleStarts); !ok {
		t.Fatal("non-empty module bracket must survive")
	}
}

func TestConstantLiftingHoistsFunctionConstants(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		param := gen.Generate()
		responsible := gen.Generate()
		var fnBody mir.Body
		fnBody.PushNew(gen, mir.Text{Value: "lifted"})
		fnBody.PushNew(gen, mir.Reference{Target: param})
		body.PushNew(gen, mir.Function{
			Parameters:           []mir.Id{param},
			ResponsibleParameter: responsible,
			Body:                 fnBody,
		})
	})
	insights := NewPurenessInsights()
	m.Body.VisitExpressions(func(id mir.Id, expr *mir.Expression) {
		insights.VisitOptimized(id, *expr)
	})
	liftConstants(m, insights)

	if len(m.Body.Bindings) != 2 {
		t.Fatalf("expected the text to be lifted to the top level:\n%s", m)
	}
	if _, ok := m.Body.Bindings[0].Expression.(mir.Text); !ok {
		t.Fatalf("lifted binding is %T, want Text", m.Body.Bindings[0].Expression)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("lifting produced invalid MIR: %v", err)
	}
}

func TestReferenceFollowingShortensChains(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		value := body.PushNew(gen, intExpr(9))
		first := body.PushNew(gen, mir.Reference{Target: value})
		second := body.PushNew(gen, mir.Reference{Target: first})
		body.PushNew(gen, mir.List{Items: []mir.Id{second}})
	})
	insights := NewPurenessInsights()
	followReferences(m, insights)

	last, _ := m.Body.ExpressionFor(m.Body.ReturnValue())
	list := last.(mir.List)
	if list.Items[0] != m.Body.Bindings[0].Id {
		t.Fatalf("chain not followed to the value: %s", mir.RenderExpression(last))
	}
}

func TestTailCallCollapsing(t *testing.T) {
	m := mir.Build(func(body *mir.Body, gen *mir.IdGenerator) {
		fnParam := gen.Generate()
		fnResponsible := gen.Generate()
		inner := mir.Body{}
		inner.PushNew(gen, mir.Reference{Target: fnParam})
		fn := body.PushNew(gen, mir.Function{
			Parameters:           []mir.Id{fnParam},
			ResponsibleParameter: fnResponsible,
			Body:                 inner,
		})
		arg := body.PushNew(gen, intExpr(1))
		hirCall := body.PushNew(gen, mir.HirIdent{Id: hir.NewId(testModule(), "call")})
		responsible := body.PushNew(gen, mir.HirIdent{Id: hir.ModuleId(testModule())})
		body.PushNew(gen, mir.TraceCallStarts{
			HirCall:     hirCall,
			Function:    fn,
			Arguments:   []mir.Id{arg},
			Responsible: responsible,
		})
		call := body.PushNew(gen, mir.Call{
			Function:    fn,
			Arguments:   []mir.Id{arg},
			Responsible: responsible,
		})
		body.PushNew(gen, mir.TraceCallEnds{ReturnValue: call})
		body.PushNew(gen, mir.Reference{Target: call})
	})
	collapseTailCalls(&m.Body)

	n := len(m.Body.Bindings)
	if _, ok := m.Body.Bindings[n-3].Expression.(mir.TraceTailCall); !ok {
		t.Fatalf("expected a tail call marker:\n%s", m)
	}
	for _, binding := range m.Body.Bindings {
		if _, ok := binding.Expression.(mir.TraceCallEnds); ok {
			t.Fatal("ends marker should be gone after collapsing")
		}
	}
}
