package fuzz

import (
	"math/rand"

	"candy/internal/vm"
)

// Symbols the generator picks from, besides random ints and texts. True
// and False are in the mix so condition parameters get exercised.
var generatedSymbols = []string{"True", "False", "Nothing", "Foo", "Bar", "Ok", "Error"}

const maxValueDepth = 3

// generator produces random candy values. Deterministic for a given
// seed, so failing cases can be reproduced.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed int64) *generator {
	return &generator{rng: rand.New(rand.NewSource(seed))}
}

// packet builds one value in its own heap, ready to hand to a VM.
func (g *generator) packet() vm.Packet {
	heap := vm.NewHeap()
	value := g.value(heap, 0)
	return vm.Packet{Heap: heap, Value: value}
}

func (g *generator) value(heap *vm.Heap, depth int) vm.Value {
	choices := 3
	if depth < maxValueDepth {
		choices = 6
	}
	switch g.rng.Intn(choices) {
	case 0:
		return vm.NewSmallInt(g.rng.Int63n(201) - 100)
	case 1:
		return heap.NewText(g.text())
	case 2:
		return vm.NewSymbol(vm.InternSymbol(g.symbol()))
	case 3:
		items := make([]vm.Value, g.rng.Intn(4))
		for i := range items {
			items[i] = g.value(heap, depth+1)
		}
		return heap.NewList(items)
	case 4:
		entries := make([]vm.StructEntry, g.rng.Intn(3))
		for i := range entries {
			entries[i] = vm.StructEntry{
				Key:   vm.NewSymbol(vm.InternSymbol(g.symbol())),
				Value: g.value(heap, depth+1),
			}
		}
		return heap.NewStruct(entries)
	default:
		return heap.NewTag(vm.InternSymbol(g.symbol()), g.value(heap, depth+1), true)
	}
}

func (g *generator) text() string {
	letters := []rune("abcdefghij ")
	runes := make([]rune, g.rng.Intn(8))
	for i := range runes {
		runes[i] = letters[g.rng.Intn(len(letters))]
	}
	return string(runes)
}

func (g *generator) symbol() string {
	return generatedSymbols[g.rng.Intn(len(generatedSymbols))]
}
