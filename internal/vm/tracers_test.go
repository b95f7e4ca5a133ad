package vm

import (
	"bytes"
	"strings"
	"testing"

	"candy/internal/hir"
	"candy/internal/module"
)

func TestEvaluatedValuesTracerClonesValues(t *testing.T) {
	tracer := NewEvaluatedValuesTracer()
	ft := tracer.TracerForFiber(0)
	expression := hir.NewId(module.New("example", "main"), "x")

	heap := NewHeap()
	value := heap.NewText("evaluated")
	ft.ValueEvaluated(expression, value, heap)
	// The fiber may free the value afterwards; the tracer keeps a clone.
	heap.Drop(value)

	kept, ok := tracer.Value(expression)
	if !ok {
		t.Fatal("tracer lost the evaluated value")
	}
	if got := tracer.Heap().DebugText(kept); got != `"evaluated"` {
		t.Fatalf("kept value renders as %s", got)
	}
}

func TestEvaluatedValuesTracerKeepsTheLatestValue(t *testing.T) {
	tracer := NewEvaluatedValuesTracer()
	ft := tracer.TracerForFiber(0)
	expression := hir.NewId(module.New("example", "main"), "x")

	heap := NewHeap()
	ft.ValueEvaluated(expression, NewSmallInt(1), heap)
	ft.ValueEvaluated(expression, NewSmallInt(2), heap)

	if got, _ := tracer.Value(expression); got != NewSmallInt(2) {
		t.Fatalf("expected the later evaluation to win, got %v", got)
	}
	if tracer.Heap().Size() != 0 {
		t.Fatalf("overwritten inline values should leave no objects, heap has %d", tracer.Heap().Size())
	}
}

func TestFuzzablesTracerReportsEachDefinitionOnce(t *testing.T) {
	tracer := NewFuzzablesTracer()
	ft := tracer.TracerForFiber(0)

	heap := NewHeap()
	closure := heap.NewText("stand-in")
	// Equal ids built independently must count as the same definition.
	ft.FoundFuzzableClosure(hir.NewId(module.New("example", "main"), "f"), closure, heap)
	ft.FoundFuzzableClosure(hir.NewId(module.New("example", "main"), "f"), closure, heap)

	if got := len(tracer.Fuzzables()); got != 1 {
		t.Fatalf("recorded %d fuzzables, want 1", got)
	}
}

func TestStackTracerTailCallReplacesTheSpan(t *testing.T) {
	tracer := NewStackTracer()
	ft := tracer.TracerForFiber(0)
	call := hir.NewId(module.New("example", "main"), "call")

	heap := NewHeap()
	first := heap.NewText("first")
	second := heap.NewText("second")
	ft.CallStarted(call, first, nil, call, heap)
	ft.TailCall(call, second, nil, call, heap)

	stack := tracer.Stack(0)
	if len(stack) != 1 {
		t.Fatalf("a tail call must not deepen the stack, got %d span(s)", len(stack))
	}
	if got := tracer.Heap().DebugText(stack[0].Callee); got != `"second"` {
		t.Fatalf("top span callee = %s, want the tail callee", got)
	}
}

func TestStreamTracerWritesFiberEvents(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewStreamTracer(&buf)

	machine := NewVM(tracer)
	machine.SetUpForRunningModuleClosure(moduleClosure(additionModule()), testResponsible())
	machine.Run(PanickingUseProvider{}, RunForever{})
	if machine.Status() != VMDone {
		t.Fatalf("VM status = %v, want done", machine.Status())
	}

	out := buf.String()
	for _, want := range []string{"fiber-0 created", "fiber-0 started executing", "fiber-0 done"} {
		if !strings.Contains(out, want) {
			t.Errorf("stream output misses %q:\n%s", want, out)
		}
	}
}
