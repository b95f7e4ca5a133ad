package vm

import (
	"math/big"

	"candy/internal/hir"
	"candy/internal/lir"
)

// ObjectKind enumerates heap object kinds.
type ObjectKind uint8

const (
	// OKBigInt is an integer too large for the inline representation.
	OKBigInt ObjectKind = iota
	// OKText is a UTF-8 string.
	OKText
	// OKTag is a symbol applied to a value.
	OKTag
	// OKStruct maps keys to values.
	OKStruct
	// OKList is an ordered sequence of values.
	OKList
	// OKClosure is a function together with its captured values.
	OKClosure
	// OKHirId is a source-level identity.
	OKHirId
	// OKSendPort is the sending end of a channel.
	OKSendPort
	// OKReceivePort is the receiving end of a channel.
	OKReceivePort
)

// Object is one heap allocation. The refcount starts at 1: creation owns
// one reference. Exactly the variant matching Kind is meaningful.
type Object struct {
	Kind     ObjectKind
	RefCount int

	BigInt  *big.Int
	Text    string
	Tag     TagObject
	Struct  []StructEntry
	List    []Value
	Closure ClosureObject
	HirId   hir.Id
	Channel ChannelId
}

// TagObject is a symbol with a value.
type TagObject struct {
	Symbol SymbolId
	Value  Value
}

// StructEntry is one key-value pair of a struct.
type StructEntry struct {
	Key   Value
	Value Value
}

// ClosureObject references a body in a compiled module and the values it
// captured at creation.
type ClosureObject struct {
	Lir      *lir.Lir
	Body     lir.BodyId
	Captured []Value
}

// children returns the values an object holds references to.
func (o *Object) children() []Value {
	switch o.Kind {
	case OKTag:
		return []Value{o.Tag.Value}
	case OKStruct:
		out := make([]Value, 0, len(o.Struct)*2)
		for _, entry := range o.Struct {
			out = append(out, entry.Key, entry.Value)
		}
		return out
	case OKList:
		return o.List
	case OKClosure:
		return o.Closure.Captured
	default:
		return nil
	}
}

func (k ObjectKind) String() string {
	switch k {
	case OKBigInt:
		return "int"
	case OKText:
		return "text"
	case OKTag:
		return "tag"
	case OKStruct:
		return "struct"
	case OKList:
		return "list"
	case OKClosure:
		return "closure"
	case OKHirId:
		return "hirid"
	case OKSendPort:
		return "sendport"
	case OKReceivePort:
		return "receiveport"
	default:
		return "unknown"
	}
}
