package mir

import (
	"fmt"
	"strings"
)

// String renders the Mir deterministically. The optimizer's fixpoint
// check compares these renderings, so two structurally equal Mirs must
// render identically.
func (m *Mir) String() string {
	var sb strings.Builder
	writeBody(&sb, m.Body, 0)
	return sb.String()
}

func writeBody(sb *strings.Builder, body Body, indent int) {
	for _, binding := range body.Bindings {
		writeIndent(sb, indent)
		fmt.Fprintf(sb, "%s = ", binding.Id)
		writeExpression(sb, binding.Expression, indent)
		sb.WriteByte('\n')
	}
}

func writeExpression(sb *strings.Builder, expr Expression, indent int) {
	switch e := expr.(type) {
	case Int:
		fmt.Fprintf(sb, "int %s", e.Value.String())
	case Text:
		fmt.Fprintf(sb, "text %q", e.Value)
	case Tag:
		if e.Value == NoId {
			fmt.Fprintf(sb, "tag %s", e.Symbol)
		} else {
			fmt.Fprintf(sb, "tag %s %s", e.Symbol, e.Value)
		}
	case Builtin:
		fmt.Fprintf(sb, "builtin %s", e.Fn)
	case List:
		sb.WriteString("list (")
		writeIdList(sb, e.Items)
		sb.WriteByte(')')
	case Struct:
		sb.WriteString("struct [")
		for i, field := range e.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%s: %s", field.Key, field.Value)
		}
		sb.WriteByte(']')
	case Reference:
		sb.WriteString(e.Target.String())
	case HirIdent:
		fmt.Fprintf(sb, "hir %s", e.Id)
	case Function:
		sb.WriteString("{ ")
		for _, param := range e.Parameters {
			fmt.Fprintf(sb, "%s ", param)
		}
		fmt.Fprintf(sb, "(+ responsible %s) ->\n", e.ResponsibleParameter)
		writeBody(sb, e.Body, indent+1)
		writeIndent(sb, indent)
		sb.WriteByte('}')
	case Parameter:
		sb.WriteString("parameter")
	case Call:
		fmt.Fprintf(sb, "call %s with ", e.Function)
		if len(e.Arguments) == 0 {
			sb.WriteString("no arguments")
		} else {
			writeIdList(sb, e.Arguments)
		}
		fmt.Fprintf(sb, " (%s is responsible)", e.Responsible)
	case UseModule:
		fmt.Fprintf(sb, "use %s relative to %s (%s is responsible)",
			e.RelativePath, e.CurrentModule, e.Responsible)
	case Panic:
		fmt.Fprintf(sb, "panicking because %s (%s is at fault)", e.Reason, e.Responsible)
	case Multiple:
		sb.WriteString("multiple\n")
		writeBody(sb, e.Body, indent+1)
		writeIndent(sb, indent)
	case ModuleStarts:
		fmt.Fprintf(sb, "module %s starts", e.Module)
	case ModuleEnds:
		sb.WriteString("module ends")
	case TraceCallStarts:
		fmt.Fprintf(sb, "trace: start of call of %s with ", e.Function)
		writeIdList(sb, e.Arguments)
		fmt.Fprintf(sb, " (%s is responsible, code is at %s)", e.Responsible, e.HirCall)
	case TraceCallEnds:
		fmt.Fprintf(sb, "trace: end of call with return value %s", e.ReturnValue)
	case TraceExpressionEvaluated:
		fmt.Fprintf(sb, "trace: expression %s evaluated to %s", e.HirExpression, e.Value)
	case TraceFoundFuzzableClosure:
		fmt.Fprintf(sb, "trace: found fuzzable closure %s at %s", e.Function, e.HirDefinition)
	case TraceTailCall:
		fmt.Fprintf(sb, "trace: tail call of %s with ", e.Function)
		writeIdList(sb, e.Arguments)
		fmt.Fprintf(sb, " (%s is responsible, code is at %s)", e.Responsible, e.HirCall)
	default:
		fmt.Fprintf(sb, "<unknown %T>", expr)
	}
}

func writeIdList(sb *strings.Builder, ids []Id) {
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(id.String())
	}
}

func writeIndent(sb *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		sb.WriteString("  ")
	}
}

// RenderExpression renders a single expression the way Mir.String does,
// for use in normalized CSE keys and debug output.
func RenderExpression(expr Expression) string {
	var sb strings.Builder
	writeExpression(&sb, expr, 0)
	return sb.String()
}
