package lir

import (
	"errors"
	"fmt"
)

// Validate checks that a decoded module is structurally sound: every
// constant and body reference resolves, counts are non-negative, and
// there is a module body to run. It does not simulate the stack; a
// malformed program still fails at run time with a program panic or an
// internal panic, but Validate catches truncated or corrupted files
// before anything executes.
func (l *Lir) Validate() error {
	var errs []error

	if len(l.Bodies) == 0 {
		errs = append(errs, errors.New("module has no bodies"))
	}

	for id, c := range l.Constants {
		if err := l.validateConstant(ConstantId(id), c); err != nil {
			errs = append(errs, err)
		}
	}
	for id, b := range l.Bodies {
		if err := l.validateBody(BodyId(id), b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Lir) validateConstant(id ConstantId, c Constant) error {
	var errs []error
	badRef := func(ref ConstantId) {
		errs = append(errs, fmt.Errorf("constant %v references missing constant %v", id, ref))
	}
	switch c.Kind {
	case ConstantInt:
		if _, err := c.IntValue(); err != nil {
			errs = append(errs, fmt.Errorf("constant %v: %w", id, err))
		}
	case ConstantTag:
		if c.Tag.HasValue && !l.hasConstant(c.Tag.Value) {
			badRef(c.Tag.Value)
		}
	case ConstantList:
		for _, item := range c.List {
			if !l.hasConstant(item) {
				badRef(item)
			}
		}
	case ConstantStruct:
		for _, field := range c.Struct {
			if !l.hasConstant(field.Key) {
				badRef(field.Key)
			}
			if !l.hasConstant(field.Value) {
				badRef(field.Value)
			}
		}
	case ConstantFunction:
		if !l.hasBody(c.Function.Body) {
			errs = append(errs, fmt.Errorf("constant %v references missing body %v", id, c.Function.Body))
		}
	}
	return errors.Join(errs...)
}

func (l *Lir) validateBody(id BodyId, b Body) error {
	var errs []error
	fail := func(i int, format string, args ...any) {
		prefix := fmt.Sprintf("body %v, instruction %d: ", id, i)
		errs = append(errs, fmt.Errorf(prefix+format, args...))
	}

	if b.CapturedCount < 0 || b.ParameterCount < 0 {
		errs = append(errs, fmt.Errorf("body %v has negative counts", id))
	}
	if len(b.Instructions) == 0 {
		errs = append(errs, fmt.Errorf("body %v is empty", id))
	}

	for i, instr := range b.Instructions {
		switch instr.Kind {
		case InstrPushConstant:
			if !l.hasConstant(instr.PushConstant.Constant) {
				fail(i, "missing constant %v", instr.PushConstant.Constant)
			}
		case InstrCreateList:
			if instr.CreateList.Length < 0 {
				fail(i, "negative list length")
			}
		case InstrCreateStruct:
			if instr.CreateStruct.Fields < 0 {
				fail(i, "negative field count")
			}
		case InstrCreateClosure:
			if !l.hasBody(instr.CreateClosure.Body) {
				fail(i, "missing body %v", instr.CreateClosure.Body)
			}
			for _, offset := range instr.CreateClosure.Captured {
				if offset < 0 {
					fail(i, "negative capture offset")
				}
			}
		case InstrPushFromStack:
			if instr.PushFromStack.Offset < 0 {
				fail(i, "negative stack offset")
			}
		case InstrPopMultipleBelowTop:
			if instr.PopMultipleBelowTop.Count < 0 {
				fail(i, "negative pop count")
			}
		case InstrCall:
			if instr.Call.Arguments < 0 {
				fail(i, "negative argument count")
			}
		case InstrTraceCallStarts:
			if instr.TraceCallStarts.Arguments < 0 {
				fail(i, "negative argument count")
			}
		case InstrTraceTailCall:
			if instr.TraceTailCall.Arguments < 0 {
				fail(i, "negative argument count")
			}
		case InstrCreateTag, InstrReturn, InstrUseModule, InstrPanic,
			InstrModuleStarts, InstrModuleEnds, InstrTraceCallEnds,
			InstrTraceExpressionEvaluated, InstrTraceFoundFuzzableClosure:
			// No references to check.
		default:
			fail(i, "unknown instruction kind %d", instr.Kind)
		}
	}
	return errors.Join(errs...)
}

func (l *Lir) hasConstant(id ConstantId) bool {
	return id >= 0 && int(id) < len(l.Constants)
}

func (l *Lir) hasBody(id BodyId) bool {
	return id >= 0 && int(id) < len(l.Bodies)
}
