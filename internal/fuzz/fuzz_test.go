package fuzz

import (
	"context"
	"strings"
	"testing"

	"candy/internal/hir"
	"candy/internal/lir"
	"candy/internal/module"
	"candy/internal/vm"
)

func testModule() module.Module {
	return module.New("example", "main")
}

// fuzzableModule builds a module that reports one fuzzable closure with
// a single parameter. The closure's body is provided by the caller.
func fuzzableModule(definition hir.Id, body []lir.Instruction) *lir.Lir {
	l := &lir.Lir{}
	def := l.AddConstant(lir.NewHirIdConstant(definition))
	child := l.AddBody(lir.Body{
		ParameterCount: 1,
		Instructions:   body,
	})
	l.AddBody(lir.Body{
		Instructions: []lir.Instruction{
			{Kind: lir.InstrPushConstant, PushConstant: lir.PushConstantInstr{Constant: def}},
			{Kind: lir.InstrCreateClosure, CreateClosure: lir.CreateClosureInstr{Body: child}},
			{Kind: lir.InstrTraceFoundFuzzableClosure},
			{Kind: lir.InstrPopMultipleBelowTop, PopMultipleBelowTop: lir.PopMultipleBelowTopInstr{Count: 1}},
			{Kind: lir.InstrReturn},
		},
	})
	return l
}

func TestRunFindsAlwaysPanickingClosure(t *testing.T) {
	definition := hir.NewId(testModule(), "broken")
	inside := definition.Child("body")

	l := fuzzableModule(definition, nil)
	reason := l.AddConstant(lir.Constant{Kind: lir.ConstantText, Text: "always fails"})
	responsible := l.AddConstant(lir.NewHirIdConstant(inside))
	body, _ := l.Body(lir.BodyId(0))
	body.Instructions = []lir.Instruction{
		{Kind: lir.InstrPushConstant, PushConstant: lir.PushConstantInstr{Constant: reason}},
		{Kind: lir.InstrPushConstant, PushConstant: lir.PushConstantInstr{Constant: responsible}},
		{Kind: lir.InstrPanic},
	}
	l.Bodies[0] = body

	opts := Options{Seed: 1, CasesPerClosure: 4, MaxInstructions: 10_000, Workers: 2}
	findings, err := Run(context.Background(), l, hir.ModuleId(testModule()), vm.PanickingUseProvider{}, opts)
	if err != nil {
		t.Fatalf("fuzzing failed: %v", err)
	}
	if len(findings) != 4 {
		t.Fatalf("expected every case to fail, got %d finding(s)", len(findings))
	}
	for _, finding := range findings {
		if !finding.Closure.Equal(definition) {
			t.Errorf("finding blames %s, want %s", finding.Closure, definition)
		}
		if finding.Panic.Reason != "always fails" {
			t.Errorf("unexpected reason %q", finding.Panic.Reason)
		}
		if len(finding.Arguments) != 1 {
			t.Errorf("expected 1 rendered argument, got %v", finding.Arguments)
		}
	}
}

func TestRunIgnoresWellBehavedClosure(t *testing.T) {
	definition := hir.NewId(testModule(), "fine")
	l := fuzzableModule(definition, nil)
	nothing := l.AddConstant(lir.Constant{Kind: lir.ConstantTag, Tag: lir.TagConstant{Symbol: "Nothing"}})
	body, _ := l.Body(lir.BodyId(0))
	body.Instructions = []lir.Instruction{
		{Kind: lir.InstrPushConstant, PushConstant: lir.PushConstantInstr{Constant: nothing}},
		{Kind: lir.InstrPopMultipleBelowTop, PopMultipleBelowTop: lir.PopMultipleBelowTopInstr{Count: 2}},
		{Kind: lir.InstrReturn},
	}
	l.Bodies[0] = body

	opts := Options{Seed: 1, CasesPerClosure: 8, MaxInstructions: 10_000, Workers: 2}
	findings, err := Run(context.Background(), l, hir.ModuleId(testModule()), vm.PanickingUseProvider{}, opts)
	if err != nil {
		t.Fatalf("fuzzing failed: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %v", findings)
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a := newGenerator(7)
	b := newGenerator(7)
	for i := 0; i < 20; i++ {
		pa, pb := a.packet(), b.packet()
		ta := pa.Heap.DebugText(pa.Value)
		tb := pb.Heap.DebugText(pb.Value)
		if ta != tb {
			t.Fatalf("same seed diverged at value %d: %q vs %q", i, ta, tb)
		}
	}
}

func TestFindingRendersItsPanic(t *testing.T) {
	finding := Finding{
		Closure:   hir.NewId(testModule(), "broken"),
		Arguments: []string{"42"},
		Panic:     vm.Panic{Reason: "boom"},
	}
	if !strings.Contains(finding.String(), "boom") {
		t.Fatalf("finding rendering misses the reason: %s", finding)
	}
}
