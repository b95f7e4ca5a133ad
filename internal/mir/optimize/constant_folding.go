package optimize

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"candy/internal/builtins"
	"candy/internal/mir"
)

// foldConstants evaluates calls whose outcome is known at compile time:
// calls of pure builtins with constant arguments, and tag applications.
// Folding never introduces a panic; a call that would panic at runtime
// (wrong type, division by zero) is left in place so the runtime blames
// the right responsible id.
func foldConstants(m *mir.Mir, insights *PurenessInsights) {
	m.Body.VisitExpressions(func(id mir.Id, expr *mir.Expression) {
		insights.VisitOptimized(id, *expr)
		call, ok := (*expr).(mir.Call)
		if !ok {
			return
		}
		callee, ok := insights.Definition(call.Function)
		if !ok {
			return
		}
		var folded mir.Expression
		switch c := callee.(type) {
		case mir.Tag:
			// `Foo arg` builds the tag with a value.
			if c.Value == mir.NoId && len(call.Arguments) == 1 {
				folded = mir.Tag{Symbol: c.Symbol, Value: call.Arguments[0]}
			}
		case mir.Builtin:
			folded = foldBuiltinCall(c.Fn, call, insights)
		}
		if folded == nil {
			return
		}
		*expr = folded
		insights.VisitOptimized(id, folded)
	})
}

func foldBuiltinCall(b builtins.Builtin, call mir.Call, insights *PurenessInsights) mir.Expression {
	if len(call.Arguments) != b.NumParameters() {
		return nil
	}
	arg := func(i int) (mir.Expression, bool) {
		return insights.Definition(call.Arguments[i])
	}
	argInt := func(i int) (*big.Int, bool) {
		expr, ok := arg(i)
		if !ok {
			return nil, false
		}
		intExpr, ok := expr.(mir.Int)
		if !ok {
			return nil, false
		}
		return intExpr.Value, true
	}
	argText := func(i int) (string, bool) {
		expr, ok := arg(i)
		if !ok {
			return "", false
		}
		textExpr, ok := expr.(mir.Text)
		if !ok {
			return "", false
		}
		return textExpr.Value, true
	}
	intResult := func(v *big.Int) mir.Expression { return mir.Int{Value: v} }

	switch b {
	case builtins.Equals:
		equal, known := constantEquals(call.Arguments[0], call.Arguments[1], insights)
		if !known {
			return nil
		}
		return mir.Bool(equal)

	case builtins.FunctionRun:
		return mir.Call{
			Function:    call.Arguments[0],
			Responsible: call.Responsible,
		}

	case builtins.GetArgumentCount:
		expr, ok := arg(0)
		if !ok {
			return nil
		}
		switch fn := expr.(type) {
		case mir.Function:
			return intResult(big.NewInt(int64(len(fn.Parameters))))
		case mir.Builtin:
			return intResult(big.NewInt(int64(fn.Fn.NumParameters())))
		}
		return nil

	case builtins.IfElse:
		condition, ok := arg(0)
		if !ok {
			return nil
		}
		value, known := mir.BoolValue(condition)
		if !known {
			return nil
		}
		branch := call.Arguments[1]
		if !value {
			branch = call.Arguments[2]
		}
		return mir.Call{Function: branch, Responsible: call.Responsible}

	case builtins.IntAdd, builtins.IntSubtract, builtins.IntMultiply,
		builtins.IntDivideTruncating, builtins.IntModulo, builtins.IntCompareTo:
		a, okA := argInt(0)
		z, okB := argInt(1)
		if !okA || !okB {
			return nil
		}
		switch b {
		case builtins.IntAdd:
			return intResult(new(big.Int).Add(a, z))
		case builtins.IntSubtract:
			return intResult(new(big.Int).Sub(a, z))
		case builtins.IntMultiply:
			return intResult(new(big.Int).Mul(a, z))
		case builtins.IntDivideTruncating:
			if z.Sign() == 0 {
				return nil
			}
			return intResult(new(big.Int).Quo(a, z))
		case builtins.IntModulo:
			if z.Sign() == 0 {
				return nil
			}
			return intResult(new(big.Int).Rem(a, z))
		default:
			switch a.Cmp(z) {
			case -1:
				return mir.Tag{Symbol: "Less"}
			case 0:
				return mir.Tag{Symbol: "Equal"}
			default:
				return mir.Tag{Symbol: "Greater"}
			}
		}

	case builtins.ListGet:
		list, okList := argExprAs[mir.List](insights, call.Arguments[0])
		index, okIndex := argInt(1)
		if !okList || !okIndex || !index.IsInt64() {
			return nil
		}
		i := index.Int64()
		if i < 0 || i >= int64(len(list.Items)) {
			return nil
		}
		return mir.Reference{Target: list.Items[i]}

	case builtins.ListLength:
		list, ok := argExprAs[mir.List](insights, call.Arguments[0])
		if !ok {
			return nil
		}
		return intResult(big.NewInt(int64(len(list.Items))))

	case builtins.StructGet:
		return foldStructGet(call, insights)

	case builtins.StructHasKey:
		strukt, ok := argExprAs[mir.Struct](insights, call.Arguments[0])
		if !ok {
			return nil
		}
		for _, field := range strukt.Fields {
			equal, known := constantEquals(field.Key, call.Arguments[1], insights)
			if !known {
				return nil
			}
			if equal {
				return mir.Bool(true)
			}
		}
		return mir.Bool(false)

	case builtins.TagGetValue:
		tag, ok := argExprAs[mir.Tag](insights, call.Arguments[0])
		if !ok || tag.Value == mir.NoId {
			return nil
		}
		return mir.Reference{Target: tag.Value}

	case builtins.TagHasValue:
		tag, ok := argExprAs[mir.Tag](insights, call.Arguments[0])
		if !ok {
			return nil
		}
		return mir.Bool(tag.Value != mir.NoId)

	case builtins.TagWithoutValue:
		tag, ok := argExprAs[mir.Tag](insights, call.Arguments[0])
		if !ok {
			return nil
		}
		return mir.Tag{Symbol: tag.Symbol}

	case builtins.TextConcatenate:
		a, okA := argText(0)
		z, okB := argText(1)
		if !okA || !okB {
			return nil
		}
		return mir.Text{Value: a + z}

	case builtins.TextLength:
		text, ok := argText(0)
		if !ok {
			return nil
		}
		return intResult(big.NewInt(int64(len([]rune(text)))))

	case builtins.TypeOf:
		expr, ok := arg(0)
		if !ok {
			return nil
		}
		symbol, ok := typeSymbol(expr)
		if !ok {
			return nil
		}
		return mir.Tag{Symbol: symbol}

	default:
		return nil
	}
}

func argExprAs[T mir.Expression](insights *PurenessInsights, id mir.Id) (T, bool) {
	var zero T
	expr, ok := insights.Definition(id)
	if !ok {
		return zero, false
	}
	typed, ok := expr.(T)
	return typed, ok
}

func foldStructGet(call mir.Call, insights *PurenessInsights) mir.Expression {
	strukt, ok := argExprAs[mir.Struct](insights, call.Arguments[0])
	if !ok {
		return nil
	}
	for _, field := range strukt.Fields {
		equal, known := constantEquals(field.Key, call.Arguments[1], insights)
		if !known {
			return nil
		}
		if equal {
			return mir.Reference{Target: field.Value}
		}
	}
	return nil
}

func typeSymbol(expr mir.Expression) (string, bool) {
	switch expr.(type) {
	case mir.Int:
		return "Int", true
	case mir.Text:
		return "Text", true
	case mir.Tag:
		return "Tag", true
	case mir.List:
		return "List", true
	case mir.Struct:
		return "Struct", true
	case mir.Function, mir.Builtin:
		return "Function", true
	default:
		return "", false
	}
}

// constantEquals decides structural equality of two ids' values, when both
// are fully known constants. The second return value reports whether a
// decision was possible.
func constantEquals(a, z mir.Id, insights *PurenessInsights) (bool, bool) {
	if a == z {
		return true, true
	}
	keyA, okA := constantKey(a, insights, 0)
	keyB, okB := constantKey(z, insights, 0)
	if !okA || !okB {
		return false, false
	}
	return keyA == keyB, true
}

// constantKey renders a fully-constant value to a canonical string, with
// references resolved, so equal values get equal keys.
func constantKey(id mir.Id, insights *PurenessInsights, depth int) (string, bool) {
	if depth > 64 {
		return "", false
	}
	expr, ok := insights.Definition(id)
	if !ok {
		return "", false
	}
	switch e := expr.(type) {
	case mir.Int:
		return "int:" + e.Value.String(), true
	case mir.Text:
		return fmt.Sprintf("text:%q", e.Value), true
	case mir.Tag:
		if e.Value == mir.NoId {
			return "tag:" + e.Symbol, true
		}
		inner, ok := constantKey(e.Value, insights, depth+1)
		if !ok {
			return "", false
		}
		return "tag:" + e.Symbol + "(" + inner + ")", true
	case mir.Builtin:
		return "builtin:" + e.Fn.String(), true
	case mir.List:
		var sb strings.Builder
		sb.WriteString("list:(")
		for i, item := range e.Items {
			if i > 0 {
				sb.WriteByte(',')
			}
			inner, ok := constantKey(item, insights, depth+1)
			if !ok {
				return "", false
			}
			sb.WriteString(inner)
		}
		sb.WriteByte(')')
		return sb.String(), true
	case mir.Struct:
		keys := make([]string, 0, len(e.Fields))
		for _, field := range e.Fields {
			k, okK := constantKey(field.Key, insights, depth+1)
			v, okV := constantKey(field.Value, insights, depth+1)
			if !okK || !okV {
				return "", false
			}
			keys = append(keys, k+"=>"+v)
		}
		// Struct fields are unordered; sort pairs for a canonical key.
		slices.Sort(keys)
		return "struct:[" + strings.Join(keys, ",") + "]", true
	case mir.Reference:
		return constantKey(e.Target, insights, depth+1)
	default:
		// Functions and everything effectful never compare equal by key.
		return "", false
	}
}
