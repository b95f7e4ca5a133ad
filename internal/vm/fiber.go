package vm

import (
	"fmt"
	"unicode/utf8"

	"candy/internal/hir"
	"candy/internal/lir"
	"candy/internal/module"
)

// Status is a fiber's lifecycle state. Running fibers execute
// instructions; CreatingChannel, Sending, Receiving, and Spawning are
// suspended states the scheduler resolves; Done and Panicked are
// terminal.
type Status uint8

const (
	// StatusRunning executes instructions.
	StatusRunning Status = iota
	// StatusCreatingChannel waits for the scheduler to allocate a channel.
	StatusCreatingChannel
	// StatusSending waits for channel capacity.
	StatusSending
	// StatusReceiving waits for a packet.
	StatusReceiving
	// StatusSpawning waits for the scheduler to create a child fiber.
	StatusSpawning
	// StatusDone holds the fiber's result.
	StatusDone
	// StatusPanicked holds the fiber's panic.
	StatusPanicked
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCreatingChannel:
		return "creating channel"
	case StatusSending:
		return "sending"
	case StatusReceiving:
		return "receiving"
	case StatusSpawning:
		return "spawning"
	case StatusDone:
		return "done"
	case StatusPanicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// Panic is a program-level failure: a reason and the source identity
// blamed for it. It is a value, never a Go panic.
type Panic struct {
	Reason      string
	Responsible hir.Id
}

// InstructionPointer addresses one instruction. The Lir pointer is part
// of the address because imported modules execute their own Lir.
type InstructionPointer struct {
	Lir         *lir.Lir
	Body        lir.BodyId
	Instruction int
}

// Fiber is one cooperative thread of execution with an isolated heap.
type Fiber struct {
	status      Status
	heap        *Heap
	dataStack   []Value
	callStack   []InstructionPointer
	importStack []module.Module
	tracer      FiberTracer

	// Status payloads.
	channelCapacity  int       // CreatingChannel
	channel          ChannelId // Sending, Receiving
	outgoing         Packet    // Sending, Spawning
	spawnResponsible hir.Id    // Spawning
	result           Packet    // Done
	panicked         Panic     // Panicked
}

// NewFiberForClosure sets up a fiber that calls a closure with no
// arguments, blaming responsible for an arity mismatch.
func NewFiberForClosure(closure Packet, responsible hir.Id, tracer FiberTracer) *Fiber {
	return NewFiberForCall(closure, nil, responsible, tracer)
}

// NewFiberForCall sets up a fiber that calls a closure with the given
// arguments. The closure and arguments are cloned into the fiber's heap.
func NewFiberForCall(closure Packet, arguments []Packet, responsible hir.Id, tracer FiberTracer) *Fiber {
	f := &Fiber{
		status: StatusRunning,
		heap:   NewHeap(),
		tracer: tracer,
	}
	closureValue := closure.CloneInto(f.heap)
	args := make([]Value, len(arguments))
	for i, argument := range arguments {
		args[i] = argument.CloneInto(f.heap)
	}
	responsibleValue := f.heap.NewHirId(responsible)
	f.call(closureValue, args, responsibleValue)
	return f
}

// Status returns the fiber's current state.
func (f *Fiber) Status() Status { return f.status }

// Heap returns the fiber's heap.
func (f *Fiber) Heap() *Heap { return f.heap }

// Tracer returns the fiber's per-fiber tracer.
func (f *Fiber) Tracer() FiberTracer { return f.tracer }

// Result returns the fiber's return value. Only valid when Done.
func (f *Fiber) Result() Packet { return f.result }

// PanicValue returns the fiber's panic. Only valid when Panicked.
func (f *Fiber) PanicValue() Panic { return f.panicked }

func (f *Fiber) push(v Value) { f.dataStack = append(f.dataStack, v) }

func (f *Fiber) pop() Value {
	if len(f.dataStack) == 0 {
		panic("popping from an empty data stack")
	}
	v := f.dataStack[len(f.dataStack)-1]
	f.dataStack = f.dataStack[:len(f.dataStack)-1]
	return v
}

func (f *Fiber) popMultiple(n int) []Value {
	values := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		values[i] = f.pop()
	}
	return values
}

// panicWith fails the fiber: the data stack is released and the call
// stack unwinds completely.
func (f *Fiber) panicWith(reason string, responsible hir.Id) {
	for _, v := range f.dataStack {
		f.heap.Drop(v)
	}
	f.dataStack = nil
	f.callStack = nil
	f.status = StatusPanicked
	f.panicked = Panic{Reason: reason, Responsible: responsible}
}

// responsibleId reads the HIR id out of a responsibility value. Anything
// else on the responsibility slot is a compiler bug.
func (f *Fiber) responsibleId(v Value) hir.Id {
	obj := f.heap.Get(v)
	if obj.Kind != OKHirId {
		panic(fmt.Sprintf("responsibility slot holds %v, not a HIR id", obj.Kind))
	}
	return obj.HirId
}

// Run executes instructions until the fiber leaves the Running state or
// the controller ends the slice.
func (f *Fiber) Run(provider UseProvider, controller ExecutionController) {
	for f.status == StatusRunning && len(f.callStack) > 0 && controller.ShouldContinue() {
		ip := &f.callStack[len(f.callStack)-1]
		body, ok := ip.Lir.Body(ip.Body)
		if !ok || ip.Instruction >= len(body.Instructions) {
			panic(fmt.Sprintf("instruction pointer out of range: %v at %d", ip.Body, ip.Instruction))
		}
		instruction := body.Instructions[ip.Instruction]
		ip.Instruction++
		f.execute(instruction, provider)
		controller.InstructionExecuted()
	}
}

func (f *Fiber) execute(instruction lir.Instruction, provider UseProvider) {
	switch instruction.Kind {
	case lir.InstrPushConstant:
		f.push(f.materializeConstant(f.currentLir(), instruction.PushConstant.Constant))

	case lir.InstrCreateTag:
		value := f.pop()
		f.push(f.heap.NewTag(InternSymbol(instruction.CreateTag.Symbol), value, true))

	case lir.InstrCreateList:
		items := f.popMultiple(instruction.CreateList.Length)
		f.push(f.heap.NewList(items))

	case lir.InstrCreateStruct:
		flat := f.popMultiple(instruction.CreateStruct.Fields * 2)
		entries := make([]StructEntry, instruction.CreateStruct.Fields)
		for i := range entries {
			entries[i] = StructEntry{Key: flat[2*i], Value: flat[2*i+1]}
		}
		f.push(f.heap.NewStruct(entries))

	case lir.InstrCreateClosure:
		captured := make([]Value, len(instruction.CreateClosure.Captured))
		for i, offset := range instruction.CreateClosure.Captured {
			v := f.dataStack[len(f.dataStack)-1-offset]
			f.heap.Dup(v)
			captured[i] = v
		}
		f.push(f.heap.NewClosure(f.currentLir(), instruction.CreateClosure.Body, captured))

	case lir.InstrPushFromStack:
		v := f.dataStack[len(f.dataStack)-1-instruction.PushFromStack.Offset]
		f.heap.Dup(v)
		f.push(v)

	case lir.InstrPopMultipleBelowTop:
		top := f.pop()
		for _, v := range f.popMultiple(instruction.PopMultipleBelowTop.Count) {
			f.heap.Drop(v)
		}
		f.push(top)

	case lir.InstrCall:
		responsible := f.pop()
		arguments := f.popMultiple(instruction.Call.Arguments)
		callee := f.pop()
		f.call(callee, arguments, responsible)

	case lir.InstrReturn:
		f.callStack = f.callStack[:len(f.callStack)-1]
		if len(f.callStack) == 0 {
			result := f.pop()
			f.status = StatusDone
			f.result = NewPacket(f.heap, result)
			f.heap.Drop(result)
		}

	case lir.InstrUseModule:
		f.useModule(instruction.UseModule.CurrentModule, provider)

	case lir.InstrPanic:
		responsible := f.pop()
		reason := f.pop()
		responsibleId := f.responsibleId(responsible)
		reasonText := f.heap.DebugText(reason)
		if reason.Kind == VKHeap {
			if obj := f.heap.Get(reason); obj.Kind == OKText {
				reasonText = obj.Text
			}
		}
		f.dropAll(reason, responsible)
		f.panicWith(reasonText, responsibleId)

	case lir.InstrModuleStarts:
		mod := instruction.ModuleStarts.Module
		for _, imported := range f.importStack {
			if imported.Equal(mod) {
				f.panicWith(
					fmt.Sprintf("importing %s would form a cycle", mod),
					hir.ModuleId(mod),
				)
				return
			}
		}
		f.importStack = append(f.importStack, mod)
		f.push(Nothing())

	case lir.InstrModuleEnds:
		if len(f.importStack) == 0 {
			panic("module ends without a matching module start")
		}
		f.importStack = f.importStack[:len(f.importStack)-1]
		f.push(Nothing())

	case lir.InstrTraceCallStarts:
		responsible := f.pop()
		arguments := f.popMultiple(instruction.TraceCallStarts.Arguments)
		callee := f.pop()
		hirCall := f.pop()
		f.tracer.CallStarted(
			f.responsibleId(hirCall), callee, arguments,
			f.responsibleId(responsible), f.heap,
		)
		f.dropAll(responsible, hirCall, callee)
		f.dropValues(arguments)
		f.push(Nothing())

	case lir.InstrTraceCallEnds:
		returnValue := f.pop()
		f.tracer.CallEnded(returnValue, f.heap)
		f.heap.Drop(returnValue)
		f.push(Nothing())

	case lir.InstrTraceExpressionEvaluated:
		value := f.pop()
		expression := f.pop()
		f.tracer.ValueEvaluated(f.responsibleId(expression), value, f.heap)
		f.dropAll(value, expression)
		f.push(Nothing())

	case lir.InstrTraceFoundFuzzableClosure:
		closure := f.pop()
		definition := f.pop()
		f.tracer.FoundFuzzableClosure(f.responsibleId(definition), closure, f.heap)
		f.dropAll(closure, definition)
		f.push(Nothing())

	case lir.InstrTraceTailCall:
		responsible := f.pop()
		arguments := f.popMultiple(instruction.TraceTailCall.Arguments)
		callee := f.pop()
		hirCall := f.pop()
		f.tracer.TailCall(
			f.responsibleId(hirCall), callee, arguments,
			f.responsibleId(responsible), f.heap,
		)
		f.dropAll(responsible, hirCall, callee)
		f.dropValues(arguments)
		f.push(Nothing())

	default:
		panic(fmt.Sprintf("unknown instruction kind %d", instruction.Kind))
	}
}

func (f *Fiber) currentLir() *lir.Lir {
	return f.callStack[len(f.callStack)-1].Lir
}

func (f *Fiber) dropAll(values ...Value) { f.dropValues(values) }

func (f *Fiber) dropValues(values []Value) {
	for _, v := range values {
		f.heap.Drop(v)
	}
}

// call invokes callee with arguments, consuming one reference to each
// value involved.
func (f *Fiber) call(callee Value, arguments []Value, responsible Value) {
	responsibleId := f.responsibleId(responsible)
	switch callee.Kind {
	case VKBuiltin:
		builtin := callee.Builtin
		f.heap.Drop(responsible)
		f.runBuiltin(builtin, arguments, responsibleId)
		return
	case VKHeap:
		obj := f.heap.Get(callee)
		if obj.Kind == OKClosure {
			body, ok := obj.Closure.Lir.Body(obj.Closure.Body)
			if !ok {
				panic(fmt.Sprintf("closure references missing body %v", obj.Closure.Body))
			}
			if len(arguments) != body.ParameterCount {
				f.dropValues(arguments)
				f.dropAll(callee, responsible)
				f.panicWith(fmt.Sprintf(
					"a closure expected %d argument(s), but you called it with %d",
					body.ParameterCount, len(arguments),
				), responsibleId)
				return
			}
			for _, captured := range obj.Closure.Captured {
				f.heap.Dup(captured)
				f.push(captured)
			}
			for _, argument := range arguments {
				f.push(argument)
			}
			f.push(responsible)
			f.callStack = append(f.callStack, InstructionPointer{
				Lir:  obj.Closure.Lir,
				Body: obj.Closure.Body,
			})
			f.heap.Drop(callee)
			return
		}
	}
	reason := fmt.Sprintf("you can only call functions and builtins, not %s", f.heap.DebugText(callee))
	f.dropValues(arguments)
	f.dropAll(callee, responsible)
	f.panicWith(reason, responsibleId)
}

func (f *Fiber) useModule(current module.Module, provider UseProvider) {
	responsible := f.pop()
	pathValue := f.pop()
	responsibleId := f.responsibleId(responsible)
	defer f.dropAll(responsible, pathValue)

	pathObj := f.heap.Get(pathValue)
	if pathObj.Kind != OKText {
		f.panicWith("a use path must be a text", responsibleId)
		return
	}
	usePath, err := module.ParseUsePath(pathObj.Text)
	if err != nil {
		f.panicWith(err.Error(), responsibleId)
		return
	}
	target, err := usePath.ResolveRelativeTo(current)
	if err != nil {
		f.panicWith(err.Error(), responsibleId)
		return
	}
	for _, imported := range f.importStack {
		if imported.Equal(target) {
			f.panicWith(fmt.Sprintf("importing %s would form a cycle", target), responsibleId)
			return
		}
	}
	result, err := provider.Use(target)
	if err != nil {
		f.panicWith(err.Error(), responsibleId)
		return
	}
	switch result.Kind {
	case UseCode:
		// The imported body follows the normal call convention, so it
		// expects the responsible value on the data stack and pops it
		// below its result before returning.
		f.heap.Dup(responsible)
		f.push(responsible)
		f.callStack = append(f.callStack, InstructionPointer{
			Lir:  result.Code,
			Body: result.Code.ModuleBody(),
		})
	case UseAsset:
		if !utf8.Valid(result.Asset) {
			f.panicWith(fmt.Sprintf("asset %s is not valid UTF-8", target), responsibleId)
			return
		}
		f.push(f.heap.NewText(string(result.Asset)))
	}
}

// Channel-operation completions, called by the scheduler.

// CompleteChannelCreate resumes a fiber waiting in CreatingChannel with
// the new channel's ports, packed in a struct keyed by the SendPort and
// ReceivePort symbols.
func (f *Fiber) CompleteChannelCreate(channel ChannelId) {
	f.push(f.heap.NewStruct([]StructEntry{
		{Key: NewSymbol(SymbolSendPort), Value: f.heap.NewSendPort(channel)},
		{Key: NewSymbol(SymbolReceivePort), Value: f.heap.NewReceivePort(channel)},
	}))
	f.status = StatusRunning
}

// CompleteSend resumes a fiber whose send was accepted.
func (f *Fiber) CompleteSend() {
	f.push(Nothing())
	f.status = StatusRunning
}

// CompleteReceive resumes a fiber with a received packet, cloned into its
// heap.
func (f *Fiber) CompleteReceive(packet Packet) {
	f.push(packet.CloneInto(f.heap))
	f.status = StatusRunning
}

// CompleteSpawn resumes a fiber after its child was created.
func (f *Fiber) CompleteSpawn() {
	f.push(Nothing())
	f.status = StatusRunning
}
