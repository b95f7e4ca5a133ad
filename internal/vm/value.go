package vm

import "candy/internal/builtins"

// ValueKind enumerates the kinds a Value can hold. Small ints, symbols
// and builtins are stored inline; everything else lives on the heap.
type ValueKind uint8

const (
	// VKSmallInt is an integer that fits an int64.
	VKSmallInt ValueKind = iota
	// VKSymbol is an interned symbol without a value.
	VKSymbol
	// VKBuiltin is a builtin function.
	VKBuiltin
	// VKHeap is a handle into the owning fiber's heap.
	VKHeap
)

// Value is one runtime value: either an inline scalar or a handle to a
// heap object. A Value is only meaningful together with the heap that
// produced it; inline values are heap-independent.
type Value struct {
	Kind    ValueKind
	Int     int64
	Symbol  SymbolId
	Builtin builtins.Builtin
	Handle  Handle
}

// NewSmallInt returns an inline integer value.
func NewSmallInt(v int64) Value { return Value{Kind: VKSmallInt, Int: v} }

// NewSymbol returns an inline symbol value.
func NewSymbol(id SymbolId) Value { return Value{Kind: VKSymbol, Symbol: id} }

// NewBuiltin returns an inline builtin value.
func NewBuiltin(b builtins.Builtin) Value { return Value{Kind: VKBuiltin, Builtin: b} }

// Nothing returns the canonical Nothing value.
func Nothing() Value { return NewSymbol(SymbolNothing) }

// NewBool returns True or False.
func NewBool(v bool) Value {
	if v {
		return NewSymbol(SymbolTrue)
	}
	return NewSymbol(SymbolFalse)
}

// IsInline reports whether the value is heap-independent.
func (v Value) IsInline() bool { return v.Kind != VKHeap }
