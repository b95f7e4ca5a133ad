package vm

import (
	"math/big"
	"testing"
)

func TestDupDropLifecycle(t *testing.T) {
	h := NewHeap()
	text := h.NewText("hello")
	if h.Size() != 1 {
		t.Fatalf("expected 1 object, got %d", h.Size())
	}
	h.Dup(text)
	h.Dup(text)
	h.Drop(text)
	h.Drop(text)
	if h.Size() != 1 {
		t.Fatalf("object freed while still referenced")
	}
	h.Drop(text)
	if h.Size() != 0 {
		t.Fatalf("expected empty heap, got %d object(s)", h.Size())
	}
}

func TestDropFreesChildren(t *testing.T) {
	h := NewHeap()
	inner := h.NewText("inner")
	outer := h.NewList([]Value{inner, NewSmallInt(1)})
	if h.Size() != 2 {
		t.Fatalf("expected 2 objects, got %d", h.Size())
	}
	h.Drop(outer)
	if h.Size() != 0 {
		t.Fatalf("dropping the list should free the contained text, %d object(s) left", h.Size())
	}
}

func TestDropKeepsSharedChildren(t *testing.T) {
	h := NewHeap()
	shared := h.NewText("shared")
	h.Dup(shared)
	list := h.NewList([]Value{shared})
	h.Drop(list)
	if h.Size() != 1 {
		t.Fatalf("the text was still referenced outside the list")
	}
	h.Drop(shared)
	if h.Size() != 0 {
		t.Fatalf("expected empty heap, got %d object(s)", h.Size())
	}
}

func TestCloneToPreservesAliasing(t *testing.T) {
	src := NewHeap()
	shared := src.NewText("shared")
	src.Dup(shared)
	list := src.NewList([]Value{shared, shared})

	dst := NewHeap()
	cloned := src.CloneTo(dst, list, make(map[Handle]Handle))

	items := dst.Get(cloned).List
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Handle != items[1].Handle {
		t.Fatalf("aliasing lost: items cloned to different handles %d and %d",
			items[0].Handle, items[1].Handle)
	}
	if got := dst.Get(items[0]).RefCount; got != 2 {
		t.Fatalf("expected the shared text to have refcount 2, got %d", got)
	}
	if dst.Size() != 2 {
		t.Fatalf("expected 2 objects in the destination heap, got %d", dst.Size())
	}
}

func TestCloneToSharedMappingAcrossRoots(t *testing.T) {
	src := NewHeap()
	shared := src.NewText("shared")
	src.Dup(shared)
	a := src.NewList([]Value{shared})
	b := src.NewList([]Value{shared})

	dst := NewHeap()
	mapping := make(map[Handle]Handle)
	clonedA := src.CloneTo(dst, a, mapping)
	clonedB := src.CloneTo(dst, b, mapping)

	itemA := dst.Get(clonedA).List[0]
	itemB := dst.Get(clonedB).List[0]
	if itemA.Handle != itemB.Handle {
		t.Fatalf("shared mapping should keep aliases across roots")
	}
}

func TestEqualStructsIgnoreEntryOrder(t *testing.T) {
	h := NewHeap()
	a := h.NewStruct([]StructEntry{
		{Key: h.NewText("x"), Value: NewSmallInt(1)},
		{Key: h.NewText("y"), Value: NewSmallInt(2)},
	})
	b := h.NewStruct([]StructEntry{
		{Key: h.NewText("y"), Value: NewSmallInt(2)},
		{Key: h.NewText("x"), Value: NewSmallInt(1)},
	})
	if !h.Equal(a, b) {
		t.Fatalf("structs with the same entries in a different order should be equal")
	}
}

func TestEqualListsAreOrdered(t *testing.T) {
	h := NewHeap()
	a := h.NewList([]Value{NewSmallInt(1), NewSmallInt(2)})
	b := h.NewList([]Value{NewSmallInt(2), NewSmallInt(1)})
	if h.Equal(a, b) {
		t.Fatalf("list equality must respect order")
	}
}

func TestTagWithoutValueIsInline(t *testing.T) {
	h := NewHeap()
	v := h.NewTag(InternSymbol("Foo"), Nothing(), false)
	if !v.IsInline() {
		t.Fatalf("a valueless tag should not allocate")
	}
	if h.Size() != 0 {
		t.Fatalf("expected empty heap, got %d object(s)", h.Size())
	}
}

func TestNewIntInlinesSmallValues(t *testing.T) {
	h := NewHeap()
	small := h.NewInt(big.NewInt(42))
	if small.Kind != VKSmallInt || small.Int != 42 {
		t.Fatalf("expected an inline int, got %+v", small)
	}
	huge := h.NewInt(new(big.Int).Lsh(big.NewInt(1), 100))
	if huge.Kind != VKHeap {
		t.Fatalf("expected a heap int for 2^100")
	}
	if !h.Equal(huge, huge) {
		t.Fatalf("a value should equal itself")
	}
}

func TestDebugTextRendering(t *testing.T) {
	h := NewHeap()
	cases := []struct {
		value Value
		want  string
	}{
		{NewSmallInt(7), "7"},
		{h.NewText("hi"), `"hi"`},
		{NewSymbol(SymbolTrue), "True"},
		{h.NewList([]Value{NewSmallInt(1), NewSmallInt(2)}), "(1, 2)"},
		{h.NewTag(InternSymbol("Ok"), NewSmallInt(3), true), "Ok 3"},
	}
	for _, c := range cases {
		if got := h.DebugText(c.value); got != c.want {
			t.Errorf("DebugText = %q, want %q", got, c.want)
		}
	}
}
