// Package builtins enumerates the builtin functions of the language. The
// enum is shared between the MIR (builtins appear as expressions and are
// constant-folded), the LIR (builtins are constants), and the VM (builtins
// are called like closures).
package builtins

import "fmt"

// Builtin identifies a builtin function.
type Builtin uint8

const (
	ChannelCreate Builtin = iota
	ChannelReceive
	ChannelSend
	Equals
	FunctionRun
	GetArgumentCount
	IfElse
	IntAdd
	IntCompareTo
	IntDivideTruncating
	IntModulo
	IntMultiply
	IntSubtract
	ListGet
	ListInsert
	ListLength
	Print
	Spawn
	StructGet
	StructGetKeys
	StructHasKey
	TagGetValue
	TagHasValue
	TagWithoutValue
	TextCharacters
	TextConcatenate
	TextLength
	ToDebugText
	TypeOf

	count
)

// Count is the number of builtins; valid builtins are in [0, Count).
const Count = int(count)

// IsValid reports whether b names an existing builtin.
func (b Builtin) IsValid() bool {
	return int(b) < Count
}

// NumParameters returns the number of arguments the builtin expects.
func (b Builtin) NumParameters() int {
	switch b {
	case ChannelCreate, ChannelReceive, FunctionRun, GetArgumentCount, ListLength,
		Print, Spawn, StructGetKeys, TagGetValue, TagHasValue, TagWithoutValue,
		TextCharacters, TextLength, ToDebugText, TypeOf:
		return 1
	case ChannelSend, Equals, IntAdd, IntCompareTo, IntDivideTruncating, IntModulo,
		IntMultiply, IntSubtract, ListGet, StructGet, StructHasKey, TextConcatenate:
		return 2
	case IfElse, ListInsert:
		return 3
	default:
		panic(fmt.Sprintf("unknown builtin %d", b))
	}
}

// IsPure reports whether calling the builtin has no observable side
// effects. Pure builtins are eligible for constant folding and their calls
// may be removed when unused.
func (b Builtin) IsPure() bool {
	switch b {
	case Equals, GetArgumentCount, IntAdd, IntCompareTo, IntDivideTruncating,
		IntModulo, IntMultiply, IntSubtract, ListGet, ListInsert, ListLength,
		StructGet, StructGetKeys, StructHasKey, TagGetValue, TagHasValue,
		TagWithoutValue, TextCharacters, TextConcatenate, TextLength,
		ToDebugText, TypeOf:
		return true
	default:
		return false
	}
}

func (b Builtin) String() string {
	switch b {
	case ChannelCreate:
		return "channelCreate"
	case ChannelReceive:
		return "channelReceive"
	case ChannelSend:
		return "channelSend"
	case Equals:
		return "equals"
	case FunctionRun:
		return "functionRun"
	case GetArgumentCount:
		return "getArgumentCount"
	case IfElse:
		return "ifElse"
	case IntAdd:
		return "intAdd"
	case IntCompareTo:
		return "intCompareTo"
	case IntDivideTruncating:
		return "intDivideTruncating"
	case IntModulo:
		return "intModulo"
	case IntMultiply:
		return "intMultiply"
	case IntSubtract:
		return "intSubtract"
	case ListGet:
		return "listGet"
	case ListInsert:
		return "listInsert"
	case ListLength:
		return "listLength"
	case Print:
		return "print"
	case Spawn:
		return "spawn"
	case StructGet:
		return "structGet"
	case StructGetKeys:
		return "structGetKeys"
	case StructHasKey:
		return "structHasKey"
	case TagGetValue:
		return "tagGetValue"
	case TagHasValue:
		return "tagHasValue"
	case TagWithoutValue:
		return "tagWithoutValue"
	case TextCharacters:
		return "textCharacters"
	case TextConcatenate:
		return "textConcatenate"
	case TextLength:
		return "textLength"
	case ToDebugText:
		return "toDebugText"
	case TypeOf:
		return "typeOf"
	default:
		return fmt.Sprintf("builtin(%d)", b)
	}
}
