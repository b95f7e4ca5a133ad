package vm

import "sync"

// SymbolId identifies an interned symbol. Symbols are interned in a
// process-global table so they stay valid across heaps: cloning a symbol
// between fibers is a plain copy.
type SymbolId int32

var symbolTable = struct {
	sync.RWMutex
	byText map[string]SymbolId
	texts  []string
}{byText: make(map[string]SymbolId)}

// Symbols every program needs.
var (
	SymbolNothing     = InternSymbol("Nothing")
	SymbolTrue        = InternSymbol("True")
	SymbolFalse       = InternSymbol("False")
	SymbolLess        = InternSymbol("Less")
	SymbolEqual       = InternSymbol("Equal")
	SymbolGreater     = InternSymbol("Greater")
	SymbolSendPort    = InternSymbol("SendPort")
	SymbolReceivePort = InternSymbol("ReceivePort")
)

// InternSymbol returns the id for text, interning it if needed.
func InternSymbol(text string) SymbolId {
	symbolTable.RLock()
	id, ok := symbolTable.byText[text]
	symbolTable.RUnlock()
	if ok {
		return id
	}
	symbolTable.Lock()
	defer symbolTable.Unlock()
	if id, ok := symbolTable.byText[text]; ok {
		return id
	}
	id = SymbolId(len(symbolTable.texts))
	symbolTable.texts = append(symbolTable.texts, text)
	symbolTable.byText[text] = id
	return id
}

// SymbolText returns the text of an interned symbol.
func SymbolText(id SymbolId) string {
	symbolTable.RLock()
	defer symbolTable.RUnlock()
	if id < 0 || int(id) >= len(symbolTable.texts) {
		panic("unknown symbol id")
	}
	return symbolTable.texts[id]
}
