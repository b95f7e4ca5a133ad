package vm

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"candy/internal/hir"
	"candy/internal/lir"
)

// Heap owns every heap object of one fiber. Handles are monotonically
// increasing and never reused, so a stale handle is detected instead of
// silently resolving to a different object.
type Heap struct {
	objects map[Handle]*Object
	next    Handle
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{objects: make(map[Handle]*Object), next: 1}
}

// Size returns the number of live objects.
func (h *Heap) Size() int { return len(h.objects) }

func (h *Heap) allocate(o Object) Value {
	o.RefCount = 1
	handle := h.next
	h.next++
	h.objects[handle] = &o
	return Value{Kind: VKHeap, Handle: handle}
}

// Get resolves a heap value to its object. Resolving an inline value, an
// unknown handle, or a dropped object is an internal invariant violation
// and panics with the heap state.
func (h *Heap) Get(v Value) *Object {
	if v.Kind != VKHeap {
		panic(fmt.Sprintf("resolving inline value %v as heap object", v.Kind))
	}
	obj, ok := h.objects[v.Handle]
	if !ok {
		panic(fmt.Sprintf("dangling handle %d (heap has %d objects)", v.Handle, len(h.objects)))
	}
	return obj
}

// NewInt returns an integer value, inline when it fits.
func (h *Heap) NewInt(value *big.Int) Value {
	if value.IsInt64() {
		return NewSmallInt(value.Int64())
	}
	return h.allocate(Object{Kind: OKBigInt, BigInt: value})
}

// NewText allocates a text value.
func (h *Heap) NewText(text string) Value {
	return h.allocate(Object{Kind: OKText, Text: text})
}

// NewTag returns a tag value. Without a value it is the inline symbol.
func (h *Heap) NewTag(symbol SymbolId, value Value, hasValue bool) Value {
	if !hasValue {
		return NewSymbol(symbol)
	}
	return h.allocate(Object{Kind: OKTag, Tag: TagObject{Symbol: symbol, Value: value}})
}

// NewStruct allocates a struct value; the entries are owned by the struct.
func (h *Heap) NewStruct(entries []StructEntry) Value {
	return h.allocate(Object{Kind: OKStruct, Struct: entries})
}

// NewList allocates a list value; the items are owned by the list.
func (h *Heap) NewList(items []Value) Value {
	return h.allocate(Object{Kind: OKList, List: items})
}

// NewClosure allocates a closure over a body, owning the captured values.
func (h *Heap) NewClosure(l *lir.Lir, body lir.BodyId, captured []Value) Value {
	return h.allocate(Object{Kind: OKClosure, Closure: ClosureObject{
		Lir:      l,
		Body:     body,
		Captured: captured,
	}})
}

// NewHirId allocates a source identity value.
func (h *Heap) NewHirId(id hir.Id) Value {
	return h.allocate(Object{Kind: OKHirId, HirId: id})
}

// NewSendPort allocates the sending end of a channel.
func (h *Heap) NewSendPort(channel ChannelId) Value {
	return h.allocate(Object{Kind: OKSendPort, Channel: channel})
}

// NewReceivePort allocates the receiving end of a channel.
func (h *Heap) NewReceivePort(channel ChannelId) Value {
	return h.allocate(Object{Kind: OKReceivePort, Channel: channel})
}

// Dup takes an additional reference to a value.
func (h *Heap) Dup(v Value) {
	if v.IsInline() {
		return
	}
	h.Get(v).RefCount++
}

// Drop releases one reference. When an object's count reaches zero it is
// freed and its children released, via an explicit worklist so deeply
// nested values cannot overflow the Go stack.
func (h *Heap) Drop(v Value) {
	worklist := []Value{v}
	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if current.IsInline() {
			continue
		}
		obj := h.Get(current)
		if obj.RefCount < 1 {
			panic(fmt.Sprintf("dropping %v with refcount %d", obj.Kind, obj.RefCount))
		}
		obj.RefCount--
		if obj.RefCount > 0 {
			continue
		}
		worklist = append(worklist, obj.children()...)
		delete(h.objects, current.Handle)
	}
}

// CloneTo copies the value graph rooted at v into dst. The mapping is
// shared across calls so aliases stay aliases: two equal handles in this
// heap map to the same handle in dst. Each call returns one owned
// reference in dst.
func (h *Heap) CloneTo(dst *Heap, v Value, mapping map[Handle]Handle) Value {
	if v.IsInline() {
		return v
	}
	if mapped, ok := mapping[v.Handle]; ok {
		cloned := Value{Kind: VKHeap, Handle: mapped}
		dst.Dup(cloned)
		return cloned
	}
	obj := h.Get(v)
	clone := Object{Kind: obj.Kind, RefCount: 1}
	handle := dst.next
	dst.next++
	dst.objects[handle] = &clone
	mapping[v.Handle] = handle

	switch obj.Kind {
	case OKBigInt:
		clone.BigInt = new(big.Int).Set(obj.BigInt)
	case OKText:
		clone.Text = obj.Text
	case OKTag:
		clone.Tag = TagObject{
			Symbol: obj.Tag.Symbol,
			Value:  h.CloneTo(dst, obj.Tag.Value, mapping),
		}
	case OKStruct:
		entries := make([]StructEntry, len(obj.Struct))
		for i, entry := range obj.Struct {
			entries[i] = StructEntry{
				Key:   h.CloneTo(dst, entry.Key, mapping),
				Value: h.CloneTo(dst, entry.Value, mapping),
			}
		}
		clone.Struct = entries
	case OKList:
		items := make([]Value, len(obj.List))
		for i, item := range obj.List {
			items[i] = h.CloneTo(dst, item, mapping)
		}
		clone.List = items
	case OKClosure:
		captured := make([]Value, len(obj.Closure.Captured))
		for i, item := range obj.Closure.Captured {
			captured[i] = h.CloneTo(dst, item, mapping)
		}
		clone.Closure = ClosureObject{
			Lir:      obj.Closure.Lir,
			Body:     obj.Closure.Body,
			Captured: captured,
		}
	case OKHirId:
		clone.HirId = obj.HirId
	case OKSendPort, OKReceivePort:
		clone.Channel = obj.Channel
	}
	return Value{Kind: VKHeap, Handle: handle}
}

// Equal compares two values of this heap structurally. Struct keys are
// unordered; list order is significant.
func (h *Heap) Equal(a, b Value) bool {
	if a.IsInline() || b.IsInline() {
		if a.Kind == VKSmallInt && b.Kind == VKHeap {
			return h.equalIntMixed(a, b)
		}
		if b.Kind == VKSmallInt && a.Kind == VKHeap {
			return h.equalIntMixed(b, a)
		}
		return a == b
	}
	if a.Handle == b.Handle {
		return true
	}
	objA, objB := h.Get(a), h.Get(b)
	if objA.Kind != objB.Kind {
		return false
	}
	switch objA.Kind {
	case OKBigInt:
		return objA.BigInt.Cmp(objB.BigInt) == 0
	case OKText:
		return objA.Text == objB.Text
	case OKTag:
		return objA.Tag.Symbol == objB.Tag.Symbol && h.Equal(objA.Tag.Value, objB.Tag.Value)
	case OKStruct:
		return h.equalStructs(objA.Struct, objB.Struct)
	case OKList:
		if len(objA.List) != len(objB.List) {
			return false
		}
		for i := range objA.List {
			if !h.Equal(objA.List[i], objB.List[i]) {
				return false
			}
		}
		return true
	case OKClosure:
		// Closures have no structural equality beyond identity.
		return false
	case OKHirId:
		return objA.HirId.Equal(objB.HirId)
	case OKSendPort, OKReceivePort:
		return objA.Channel == objB.Channel
	default:
		return false
	}
}

func (h *Heap) equalIntMixed(small, heap Value) bool {
	obj := h.Get(heap)
	if obj.Kind != OKBigInt {
		return false
	}
	return obj.BigInt.IsInt64() && obj.BigInt.Int64() == small.Int
}

func (h *Heap) equalStructs(a, b []StructEntry) bool {
	if len(a) != len(b) {
		return false
	}
	matched := make([]bool, len(b))
outer:
	for _, entryA := range a {
		for i, entryB := range b {
			if matched[i] {
				continue
			}
			if h.Equal(entryA.Key, entryB.Key) && h.Equal(entryA.Value, entryB.Value) {
				matched[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// DebugText renders a value for diagnostics and the ToDebugText builtin.
func (h *Heap) DebugText(v Value) string {
	switch v.Kind {
	case VKSmallInt:
		return fmt.Sprint(v.Int)
	case VKSymbol:
		return SymbolText(v.Symbol)
	case VKBuiltin:
		return "builtin " + v.Builtin.String()
	}
	obj := h.Get(v)
	switch obj.Kind {
	case OKBigInt:
		return obj.BigInt.String()
	case OKText:
		return fmt.Sprintf("%q", obj.Text)
	case OKTag:
		return SymbolText(obj.Tag.Symbol) + " " + h.debugTextInner(obj.Tag.Value)
	case OKStruct:
		parts := make([]string, len(obj.Struct))
		for i, entry := range obj.Struct {
			parts[i] = h.DebugText(entry.Key) + ": " + h.DebugText(entry.Value)
		}
		// Struct entries are unordered; sort the rendering.
		sort.Strings(parts)
		return "[" + strings.Join(parts, ", ") + "]"
	case OKList:
		parts := make([]string, len(obj.List))
		for i, item := range obj.List {
			parts[i] = h.DebugText(item)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case OKClosure:
		return "{ … }"
	case OKHirId:
		return obj.HirId.String()
	case OKSendPort:
		return "sendPort " + obj.Channel.String()
	case OKReceivePort:
		return "receivePort " + obj.Channel.String()
	default:
		return "<unknown>"
	}
}

// debugTextInner parenthesizes compound values nested inside a tag.
func (h *Heap) debugTextInner(v Value) string {
	text := h.DebugText(v)
	if v.Kind == VKHeap {
		if obj := h.Get(v); obj.Kind == OKTag {
			return "(" + text + ")"
		}
	}
	return text
}

// IntValue reads an integer value of either representation.
func (h *Heap) IntValue(v Value) (*big.Int, bool) {
	switch v.Kind {
	case VKSmallInt:
		return big.NewInt(v.Int), true
	case VKHeap:
		obj := h.Get(v)
		if obj.Kind == OKBigInt {
			return obj.BigInt, true
		}
	}
	return nil, false
}
