package vm

import "candy/internal/hir"

// Tracer observes one VM run. The VM calls it at fiber lifecycle events
// and never branches on the concrete implementation; behavior differences
// live entirely inside the tracer.
type Tracer interface {
	FiberCreated(fiber FiberId)
	FiberDone(fiber FiberId)
	FiberPanicked(fiber FiberId, reason Panic)
	FiberCanceled(fiber FiberId)
	FiberExecutionStarted(fiber FiberId)
	FiberExecutionEnded(fiber FiberId)
	ChannelCreated(channel ChannelId)

	// TracerForFiber creates the per-fiber tracer for a new fiber.
	TracerForFiber(fiber FiberId) FiberTracer
	// IntegrateFiberTracer merges a finished fiber's trace data back into
	// the aggregate. The fiber's heap is still alive during this call, so
	// values the tracer wants to keep must be cloned out now.
	IntegrateFiberTracer(fiber FiberId, tracer FiberTracer, heap *Heap)
}

// FiberTracer observes instruction-level events of a single fiber. The
// heap passed alongside values is the fiber's heap; values are only valid
// during the call unless cloned.
type FiberTracer interface {
	ValueEvaluated(expression hir.Id, value Value, heap *Heap)
	CallStarted(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap)
	CallEnded(returnValue Value, heap *Heap)
	// TailCall replaces the innermost open call span in one step.
	TailCall(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap)
	FoundFuzzableClosure(definition hir.Id, closure Value, heap *Heap)
}

// NopTracer ignores every event.
type NopTracer struct{}

var _ Tracer = NopTracer{}

func (NopTracer) FiberCreated(FiberId)                             {}
func (NopTracer) FiberDone(FiberId)                                {}
func (NopTracer) FiberPanicked(FiberId, Panic)                     {}
func (NopTracer) FiberCanceled(FiberId)                            {}
func (NopTracer) FiberExecutionStarted(FiberId)                    {}
func (NopTracer) FiberExecutionEnded(FiberId)                      {}
func (NopTracer) ChannelCreated(ChannelId)                         {}
func (NopTracer) TracerForFiber(FiberId) FiberTracer               { return NopFiberTracer{} }
func (NopTracer) IntegrateFiberTracer(FiberId, FiberTracer, *Heap) {}

// NopFiberTracer ignores every event.
type NopFiberTracer struct{}

var _ FiberTracer = NopFiberTracer{}

func (NopFiberTracer) ValueEvaluated(hir.Id, Value, *Heap)               {}
func (NopFiberTracer) CallStarted(hir.Id, Value, []Value, hir.Id, *Heap) {}
func (NopFiberTracer) CallEnded(Value, *Heap)                            {}
func (NopFiberTracer) TailCall(hir.Id, Value, []Value, hir.Id, *Heap)    {}
func (NopFiberTracer) FoundFuzzableClosure(hir.Id, Value, *Heap)         {}
