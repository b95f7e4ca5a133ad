package vm

import (
	"fmt"
	"strings"

	"candy/internal/hir"
)

// CallSpan is one call that is currently in progress.
type CallSpan struct {
	Call        hir.Id
	Callee      Value
	Arguments   []Value
	Responsible hir.Id
}

// StackTracer keeps the stack of in-progress calls per fiber so that a
// panic can be reported with the user-level call stack that led to it.
// All traced values are cloned into the tracer's own heap, so they stay
// valid after the traced fiber is gone.
type StackTracer struct {
	heap   *Heap
	stacks map[FiberId][]CallSpan
	panics map[FiberId]Panic
}

func NewStackTracer() *StackTracer {
	return &StackTracer{
		heap:   NewHeap(),
		stacks: make(map[FiberId][]CallSpan),
		panics: make(map[FiberId]Panic),
	}
}

// Heap owns every value referenced from the recorded spans.
func (t *StackTracer) Heap() *Heap { return t.heap }

// Stack returns the recorded spans of fiber, outermost first.
func (t *StackTracer) Stack(fiber FiberId) []CallSpan { return t.stacks[fiber] }

func (t *StackTracer) FiberCreated(fiber FiberId) {}
func (t *StackTracer) FiberDone(fiber FiberId)    { delete(t.stacks, fiber) }
func (t *StackTracer) FiberPanicked(fiber FiberId, reason Panic) {
	t.panics[fiber] = reason
}
func (t *StackTracer) FiberCanceled(fiber FiberId)         { delete(t.stacks, fiber) }
func (t *StackTracer) FiberExecutionStarted(fiber FiberId) {}
func (t *StackTracer) FiberExecutionEnded(fiber FiberId)   {}
func (t *StackTracer) ChannelCreated(channel ChannelId)    {}

func (t *StackTracer) TracerForFiber(fiber FiberId) FiberTracer {
	return &stackFiberTracer{tracer: t, fiber: fiber}
}

func (t *StackTracer) IntegrateFiberTracer(fiber FiberId, tracer FiberTracer, heap *Heap) {
	// Spans are recorded directly against the shared tables; there is
	// nothing left to merge.
}

// Report renders the stack that led to the panic of fiber, innermost
// call last. It returns "" if the fiber did not panic.
func (t *StackTracer) Report(fiber FiberId) string {
	reason, ok := t.panics[fiber]
	if !ok {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "the program panicked: %s\n", reason.Reason)
	fmt.Fprintf(&sb, "%s is responsible\n", reason.Responsible)
	for _, span := range t.stacks[fiber] {
		fmt.Fprintf(&sb, "  %s called %s", span.Call, t.heap.DebugText(span.Callee))
		for _, arg := range span.Arguments {
			fmt.Fprintf(&sb, " %s", t.heap.DebugText(arg))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

type stackFiberTracer struct {
	tracer *StackTracer
	fiber  FiberId
}

func (ft *stackFiberTracer) ValueEvaluated(expression hir.Id, value Value, heap *Heap) {}

func (ft *stackFiberTracer) CallStarted(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
	ft.push(call, callee, arguments, responsible, heap)
}

func (ft *stackFiberTracer) CallEnded(returnValue Value, heap *Heap) {
	stack := ft.tracer.stacks[ft.fiber]
	if len(stack) == 0 {
		return
	}
	ft.drop(stack[len(stack)-1])
	ft.tracer.stacks[ft.fiber] = stack[:len(stack)-1]
}

func (ft *stackFiberTracer) TailCall(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
	// A tail call replaces the current span instead of nesting.
	ft.CallEnded(Nothing(), heap)
	ft.push(call, callee, arguments, responsible, heap)
}

func (ft *stackFiberTracer) FoundFuzzableClosure(definition hir.Id, closure Value, heap *Heap) {}

func (ft *stackFiberTracer) push(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
	mapping := make(map[Handle]Handle)
	span := CallSpan{
		Call:        call,
		Callee:      heap.CloneTo(ft.tracer.heap, callee, mapping),
		Responsible: responsible,
	}
	for _, arg := range arguments {
		span.Arguments = append(span.Arguments, heap.CloneTo(ft.tracer.heap, arg, mapping))
	}
	ft.tracer.stacks[ft.fiber] = append(ft.tracer.stacks[ft.fiber], span)
}

func (ft *stackFiberTracer) drop(span CallSpan) {
	ft.tracer.heap.Drop(span.Callee)
	for _, arg := range span.Arguments {
		ft.tracer.heap.Drop(arg)
	}
}

var (
	_ Tracer      = (*StackTracer)(nil)
	_ FiberTracer = (*stackFiberTracer)(nil)
)

// EvaluatedValuesTracer remembers the value each expression evaluated
// to, most recent evaluation wins. Editors use this to show inline
// evaluation hints. Ids contain key paths, so the maps key by the
// canonical rendering.
type EvaluatedValuesTracer struct {
	heap   *Heap
	values map[string]Value
}

func NewEvaluatedValuesTracer() *EvaluatedValuesTracer {
	return &EvaluatedValuesTracer{
		heap:   NewHeap(),
		values: make(map[string]Value),
	}
}

func (t *EvaluatedValuesTracer) Heap() *Heap { return t.heap }

// Value returns the last value the expression evaluated to. The value
// lives in the tracer's heap.
func (t *EvaluatedValuesTracer) Value(expression hir.Id) (Value, bool) {
	value, ok := t.values[expression.String()]
	return value, ok
}

func (t *EvaluatedValuesTracer) FiberCreated(fiber FiberId)                {}
func (t *EvaluatedValuesTracer) FiberDone(fiber FiberId)                   {}
func (t *EvaluatedValuesTracer) FiberPanicked(fiber FiberId, reason Panic) {}
func (t *EvaluatedValuesTracer) FiberCanceled(fiber FiberId)               {}
func (t *EvaluatedValuesTracer) FiberExecutionStarted(fiber FiberId)       {}
func (t *EvaluatedValuesTracer) FiberExecutionEnded(fiber FiberId)         {}
func (t *EvaluatedValuesTracer) ChannelCreated(channel ChannelId)          {}

func (t *EvaluatedValuesTracer) TracerForFiber(fiber FiberId) FiberTracer {
	return &evaluatedValuesFiberTracer{tracer: t}
}

func (t *EvaluatedValuesTracer) IntegrateFiberTracer(fiber FiberId, tracer FiberTracer, heap *Heap) {
}

type evaluatedValuesFiberTracer struct {
	tracer *EvaluatedValuesTracer
}

func (ft *evaluatedValuesFiberTracer) ValueEvaluated(expression hir.Id, value Value, heap *Heap) {
	key := expression.String()
	if previous, ok := ft.tracer.values[key]; ok {
		ft.tracer.heap.Drop(previous)
	}
	ft.tracer.values[key] = heap.CloneTo(ft.tracer.heap, value, make(map[Handle]Handle))
}

func (ft *evaluatedValuesFiberTracer) CallStarted(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
}
func (ft *evaluatedValuesFiberTracer) CallEnded(returnValue Value, heap *Heap) {}
func (ft *evaluatedValuesFiberTracer) TailCall(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
}
func (ft *evaluatedValuesFiberTracer) FoundFuzzableClosure(definition hir.Id, closure Value, heap *Heap) {
}

var (
	_ Tracer      = (*EvaluatedValuesTracer)(nil)
	_ FiberTracer = (*evaluatedValuesFiberTracer)(nil)
)

// Fuzzable is a closure the program defined, paired with where it was
// defined. The closure is cloned into its own packet so a fuzzer can run
// it long after the defining fiber finished.
type Fuzzable struct {
	Definition hir.Id
	Closure    Packet
}

// FuzzablesTracer collects every closure the program reports as
// fuzzable.
type FuzzablesTracer struct {
	fuzzables []Fuzzable
	seen      map[string]bool
}

func NewFuzzablesTracer() *FuzzablesTracer {
	return &FuzzablesTracer{seen: make(map[string]bool)}
}

func (t *FuzzablesTracer) Fuzzables() []Fuzzable { return t.fuzzables }

func (t *FuzzablesTracer) FiberCreated(fiber FiberId)                {}
func (t *FuzzablesTracer) FiberDone(fiber FiberId)                   {}
func (t *FuzzablesTracer) FiberPanicked(fiber FiberId, reason Panic) {}
func (t *FuzzablesTracer) FiberCanceled(fiber FiberId)               {}
func (t *FuzzablesTracer) FiberExecutionStarted(fiber FiberId)       {}
func (t *FuzzablesTracer) FiberExecutionEnded(fiber FiberId)         {}
func (t *FuzzablesTracer) ChannelCreated(channel ChannelId)          {}

func (t *FuzzablesTracer) TracerForFiber(fiber FiberId) FiberTracer {
	return &fuzzablesFiberTracer{tracer: t}
}

func (t *FuzzablesTracer) IntegrateFiberTracer(fiber FiberId, tracer FiberTracer, heap *Heap) {}

type fuzzablesFiberTracer struct {
	tracer *FuzzablesTracer
}

func (ft *fuzzablesFiberTracer) ValueEvaluated(expression hir.Id, value Value, heap *Heap) {}
func (ft *fuzzablesFiberTracer) CallStarted(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
}
func (ft *fuzzablesFiberTracer) CallEnded(returnValue Value, heap *Heap) {}
func (ft *fuzzablesFiberTracer) TailCall(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
}

func (ft *fuzzablesFiberTracer) FoundFuzzableClosure(definition hir.Id, closure Value, heap *Heap) {
	if ft.tracer.seen[definition.String()] {
		return
	}
	ft.tracer.seen[definition.String()] = true
	ft.tracer.fuzzables = append(ft.tracer.fuzzables, Fuzzable{
		Definition: definition,
		Closure:    NewPacket(heap, closure),
	})
}

var (
	_ Tracer      = (*FuzzablesTracer)(nil)
	_ FiberTracer = (*fuzzablesFiberTracer)(nil)
)
