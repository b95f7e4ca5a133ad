package lir

import (
	"fmt"
	"strings"
)

// String renders the whole module human-readably, constants first.
func (l *Lir) String() string {
	var sb strings.Builder
	sb.WriteString("# Constants\n")
	for i, c := range l.Constants {
		fmt.Fprintf(&sb, "%s: %s\n", ConstantId(i), renderConstant(c))
	}
	sb.WriteString("\n# Bodies\n")
	for i, b := range l.Bodies {
		fmt.Fprintf(&sb, "%s (captured %d, parameters %d):\n",
			BodyId(i), b.CapturedCount, b.ParameterCount)
		for j, instr := range b.Instructions {
			fmt.Fprintf(&sb, "  %3d: %s\n", j, renderInstruction(instr))
		}
	}
	return sb.String()
}

func renderConstant(c Constant) string {
	switch c.Kind {
	case ConstantInt:
		return "int " + c.Int
	case ConstantText:
		return fmt.Sprintf("text %q", c.Text)
	case ConstantTag:
		if !c.Tag.HasValue {
			return "tag " + c.Tag.Symbol
		}
		return fmt.Sprintf("tag %s %s", c.Tag.Symbol, c.Tag.Value)
	case ConstantBuiltin:
		return "builtin " + c.Builtin.String()
	case ConstantList:
		return "list " + renderConstantIds(c.List)
	case ConstantStruct:
		parts := make([]string, len(c.Struct))
		for i, field := range c.Struct {
			parts[i] = fmt.Sprintf("%s: %s", field.Key, field.Value)
		}
		return "struct [" + strings.Join(parts, ", ") + "]"
	case ConstantHirId:
		id, err := c.HirIdValue()
		if err != nil {
			return "hirid <malformed>"
		}
		return "hirid " + id.String()
	case ConstantFunction:
		return "function " + c.Function.Body.String()
	default:
		return "unknown"
	}
}

func renderInstruction(instr Instruction) string {
	switch instr.Kind {
	case InstrPushConstant:
		return "pushConstant " + instr.PushConstant.Constant.String()
	case InstrCreateTag:
		return "createTag " + instr.CreateTag.Symbol
	case InstrCreateList:
		return fmt.Sprintf("createList %d", instr.CreateList.Length)
	case InstrCreateStruct:
		return fmt.Sprintf("createStruct %d", instr.CreateStruct.Fields)
	case InstrCreateClosure:
		offsets := make([]string, len(instr.CreateClosure.Captured))
		for i, off := range instr.CreateClosure.Captured {
			offsets[i] = fmt.Sprint(off)
		}
		return fmt.Sprintf("createClosure %s capturing [%s]",
			instr.CreateClosure.Body, strings.Join(offsets, " "))
	case InstrPushFromStack:
		return fmt.Sprintf("pushFromStack %d", instr.PushFromStack.Offset)
	case InstrPopMultipleBelowTop:
		return fmt.Sprintf("popMultipleBelowTop %d", instr.PopMultipleBelowTop.Count)
	case InstrCall:
		return fmt.Sprintf("call %d", instr.Call.Arguments)
	case InstrReturn:
		return "return"
	case InstrUseModule:
		return "useModule relative to " + instr.UseModule.CurrentModule.String()
	case InstrPanic:
		return "panic"
	case InstrModuleStarts:
		return "moduleStarts " + instr.ModuleStarts.Module.String()
	case InstrModuleEnds:
		return "moduleEnds"
	case InstrTraceCallStarts:
		return fmt.Sprintf("traceCallStarts %d", instr.TraceCallStarts.Arguments)
	case InstrTraceCallEnds:
		return "traceCallEnds"
	case InstrTraceExpressionEvaluated:
		return "traceExpressionEvaluated"
	case InstrTraceFoundFuzzableClosure:
		return "traceFoundFuzzableClosure"
	case InstrTraceTailCall:
		return fmt.Sprintf("traceTailCall %d", instr.TraceTailCall.Arguments)
	default:
		return "unknown"
	}
}

func renderConstantIds(ids []ConstantId) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}
