package vm

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"candy/internal/hir"
)

// StreamTracer writes one line per event to an io.Writer, immediately.
// Values are rendered at event time, so nothing needs to outlive the
// traced fiber. Write errors are ignored; tracing must never disturb
// the program it observes.
type StreamTracer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamTracer creates a tracer streaming to w.
func NewStreamTracer(w io.Writer) *StreamTracer {
	return &StreamTracer{w: w}
}

func (t *StreamTracer) emit(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Best-effort write.
	fmt.Fprintf(t.w, format+"\n", args...)
}

func (t *StreamTracer) FiberCreated(fiber FiberId) { t.emit("%s created", fiber) }
func (t *StreamTracer) FiberDone(fiber FiberId)    { t.emit("%s done", fiber) }
func (t *StreamTracer) FiberPanicked(fiber FiberId, reason Panic) {
	t.emit("%s panicked: %s (%s is responsible)", fiber, reason.Reason, reason.Responsible)
}
func (t *StreamTracer) FiberCanceled(fiber FiberId)         { t.emit("%s canceled", fiber) }
func (t *StreamTracer) FiberExecutionStarted(fiber FiberId) { t.emit("%s started executing", fiber) }
func (t *StreamTracer) FiberExecutionEnded(fiber FiberId)   { t.emit("%s stopped executing", fiber) }
func (t *StreamTracer) ChannelCreated(channel ChannelId)    { t.emit("%s created", channel) }

func (t *StreamTracer) TracerForFiber(fiber FiberId) FiberTracer {
	return &streamFiberTracer{tracer: t, fiber: fiber}
}

func (t *StreamTracer) IntegrateFiberTracer(fiber FiberId, tracer FiberTracer, heap *Heap) {}

type streamFiberTracer struct {
	tracer *StreamTracer
	fiber  FiberId
}

func (ft *streamFiberTracer) ValueEvaluated(expression hir.Id, value Value, heap *Heap) {
	ft.tracer.emit("%s: %s evaluated to %s", ft.fiber, expression, heap.DebugText(value))
}

func (ft *streamFiberTracer) CallStarted(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
	ft.tracer.emit("%s: %s calls %s%s", ft.fiber, call, heap.DebugText(callee), renderArguments(arguments, heap))
}

func (ft *streamFiberTracer) CallEnded(returnValue Value, heap *Heap) {
	ft.tracer.emit("%s: call returned %s", ft.fiber, heap.DebugText(returnValue))
}

func (ft *streamFiberTracer) TailCall(call hir.Id, callee Value, arguments []Value, responsible hir.Id, heap *Heap) {
	ft.tracer.emit("%s: %s tail-calls %s%s", ft.fiber, call, heap.DebugText(callee), renderArguments(arguments, heap))
}

func (ft *streamFiberTracer) FoundFuzzableClosure(definition hir.Id, closure Value, heap *Heap) {
	ft.tracer.emit("%s: %s is fuzzable", ft.fiber, definition)
}

func renderArguments(arguments []Value, heap *Heap) string {
	if len(arguments) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, argument := range arguments {
		sb.WriteByte(' ')
		sb.WriteString(heap.DebugText(argument))
	}
	return sb.String()
}

var (
	_ Tracer      = (*StreamTracer)(nil)
	_ FiberTracer = (*streamFiberTracer)(nil)
)
