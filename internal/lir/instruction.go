package lir

import "candy/internal/module"

// InstructionKind enumerates instruction kinds.
type InstructionKind uint8

const (
	// InstrPushConstant pushes a constant from the pool.
	InstrPushConstant InstructionKind = iota
	// InstrCreateTag pops a value and pushes a tag containing it.
	InstrCreateTag
	// InstrCreateList pops N values and pushes a list of them.
	InstrCreateList
	// InstrCreateStruct pops N key-value pairs and pushes a struct.
	InstrCreateStruct
	// InstrCreateClosure pushes a closure capturing stack values.
	InstrCreateClosure
	// InstrPushFromStack duplicates a value from deeper in the stack.
	InstrPushFromStack
	// InstrPopMultipleBelowTop removes values below the top of the stack.
	InstrPopMultipleBelowTop
	// InstrCall pops responsible, arguments, and callee, then calls.
	InstrCall
	// InstrReturn leaves the current body, keeping the top as result.
	InstrReturn
	// InstrUseModule pops responsible and a relative path, then imports.
	InstrUseModule
	// InstrPanic pops responsible and a reason, then panics the program.
	InstrPanic
	// InstrModuleStarts marks the start of an imported module's code.
	InstrModuleStarts
	// InstrModuleEnds closes the most recent InstrModuleStarts.
	InstrModuleEnds
	// InstrTraceCallStarts reports a call to the tracer.
	InstrTraceCallStarts
	// InstrTraceCallEnds reports the most recent traced call's return.
	InstrTraceCallEnds
	// InstrTraceExpressionEvaluated reports an evaluated value.
	InstrTraceExpressionEvaluated
	// InstrTraceFoundFuzzableClosure reports a fuzzable closure.
	InstrTraceFoundFuzzableClosure
	// InstrTraceTailCall reports a call that replaces the current frame.
	InstrTraceTailCall
)

// Instruction is one LIR instruction. Exactly the variant matching Kind
// is meaningful.
type Instruction struct {
	Kind InstructionKind

	PushConstant        PushConstantInstr
	CreateTag           CreateTagInstr
	CreateList          CreateListInstr
	CreateStruct        CreateStructInstr
	CreateClosure       CreateClosureInstr
	PushFromStack       PushFromStackInstr
	PopMultipleBelowTop PopMultipleBelowTopInstr
	Call                CallInstr
	UseModule           UseModuleInstr
	ModuleStarts        ModuleStartsInstr
	TraceCallStarts     TraceCallStartsInstr
	TraceTailCall       TraceTailCallInstr
}

// PushConstantInstr pushes the constant at Constant.
type PushConstantInstr struct {
	Constant ConstantId
}

// CreateTagInstr pops the tag's value from the stack.
type CreateTagInstr struct {
	Symbol string
}

// CreateListInstr pops Length values; the first-pushed becomes the first
// element.
type CreateListInstr struct {
	Length int
}

// CreateStructInstr pops Fields key-value pairs (key pushed before value).
type CreateStructInstr struct {
	Fields int
}

// CreateClosureInstr pushes a closure over the body at Body. Captured
// lists stack offsets from the top (0 is the top) whose values the
// closure captures, in capture order.
type CreateClosureInstr struct {
	Body     BodyId
	Captured []int
}

// PushFromStackInstr duplicates the value Offset slots below the top.
type PushFromStackInstr struct {
	Offset int
}

// PopMultipleBelowTopInstr removes Count values directly below the top,
// keeping the top in place.
type PopMultipleBelowTopInstr struct {
	Count int
}

// CallInstr expects the stack to hold the callee, Arguments argument
// values, and the responsible id on top.
type CallInstr struct {
	Arguments int
}

// UseModuleInstr imports a module relative to CurrentModule. The stack
// holds the relative path and the responsible id on top.
type UseModuleInstr struct {
	CurrentModule module.Module
}

// ModuleStartsInstr pushes CurrentModule onto the fiber's import stack.
type ModuleStartsInstr struct {
	Module module.Module
}

// TraceCallStartsInstr expects the stack to hold the call's HIR id, the
// callee, Arguments argument values, and the responsible id on top. All
// of them are popped after being reported.
type TraceCallStartsInstr struct {
	Arguments int
}

// TraceTailCallInstr mirrors TraceCallStartsInstr for tail positions.
type TraceTailCallInstr struct {
	Arguments int
}
