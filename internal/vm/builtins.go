package vm

import (
	"fmt"
	"math/big"
	"os"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"candy/internal/builtins"
	"candy/internal/hir"
	"candy/internal/lir"
)

// materializeConstant builds a heap value from a constant pool entry.
func (f *Fiber) materializeConstant(l *lir.Lir, id lir.ConstantId) Value {
	c, ok := l.Constant(id)
	if !ok {
		panic(fmt.Sprintf("missing constant %v", id))
	}
	switch c.Kind {
	case lir.ConstantInt:
		value, err := c.IntValue()
		if err != nil {
			panic(err.Error())
		}
		return f.heap.NewInt(value)
	case lir.ConstantText:
		return f.heap.NewText(c.Text)
	case lir.ConstantTag:
		if !c.Tag.HasValue {
			return NewSymbol(InternSymbol(c.Tag.Symbol))
		}
		inner := f.materializeConstant(l, c.Tag.Value)
		return f.heap.NewTag(InternSymbol(c.Tag.Symbol), inner, true)
	case lir.ConstantBuiltin:
		return NewBuiltin(c.Builtin)
	case lir.ConstantList:
		items := make([]Value, len(c.List))
		for i, item := range c.List {
			items[i] = f.materializeConstant(l, item)
		}
		return f.heap.NewList(items)
	case lir.ConstantStruct:
		entries := make([]StructEntry, len(c.Struct))
		for i, field := range c.Struct {
			entries[i] = StructEntry{
				Key:   f.materializeConstant(l, field.Key),
				Value: f.materializeConstant(l, field.Value),
			}
		}
		return f.heap.NewStruct(entries)
	case lir.ConstantHirId:
		id, err := c.HirIdValue()
		if err != nil {
			panic(err.Error())
		}
		return f.heap.NewHirId(id)
	case lir.ConstantFunction:
		return f.heap.NewClosure(l, c.Function.Body, nil)
	default:
		panic(fmt.Sprintf("unknown constant kind %v", c.Kind))
	}
}

// runBuiltin executes a builtin call. The fiber owns one reference to
// each argument; every path either transfers or drops them. Type and
// arity mismatches panic the program with the offending values in the
// reason.
func (f *Fiber) runBuiltin(b builtins.Builtin, args []Value, responsible hir.Id) {
	if len(args) != b.NumParameters() {
		reason := fmt.Sprintf("`%s` expects %d argument(s), but it was called with %d",
			b, b.NumParameters(), len(args))
		f.dropValues(args)
		f.panicWith(reason, responsible)
		return
	}
	typePanic := func(expected string, got Value) {
		reason := fmt.Sprintf("`%s` expected %s, got `%s`", b, expected, f.heap.DebugText(got))
		f.dropValues(args)
		f.panicWith(reason, responsible)
	}
	intArg := func(i int) (*big.Int, bool) {
		value, ok := f.heap.IntValue(args[i])
		if !ok {
			typePanic("an int", args[i])
		}
		return value, ok
	}
	textArg := func(i int) (string, bool) {
		if args[i].Kind == VKHeap {
			if obj := f.heap.Get(args[i]); obj.Kind == OKText {
				return obj.Text, true
			}
		}
		typePanic("a text", args[i])
		return "", false
	}
	finish := func(result Value) {
		f.dropValues(args)
		f.push(result)
	}

	switch b {
	case builtins.ChannelCreate:
		capacity, ok := intArg(0)
		if !ok {
			return
		}
		if !capacity.IsInt64() || capacity.Sign() <= 0 {
			typePanic("a positive channel capacity", args[0])
			return
		}
		n, err := safecast.Conv[int](capacity.Int64())
		if err != nil {
			typePanic("a representable channel capacity", args[0])
			return
		}
		f.dropValues(args)
		f.channelCapacity = n
		f.status = StatusCreatingChannel

	case builtins.ChannelSend:
		port := args[0]
		if port.Kind != VKHeap || f.heap.Get(port).Kind != OKSendPort {
			typePanic("a send port", port)
			return
		}
		f.channel = f.heap.Get(port).Channel
		f.outgoing = NewPacket(f.heap, args[1])
		f.dropValues(args)
		f.status = StatusSending

	case builtins.ChannelReceive:
		port := args[0]
		if port.Kind != VKHeap || f.heap.Get(port).Kind != OKReceivePort {
			typePanic("a receive port", port)
			return
		}
		f.channel = f.heap.Get(port).Channel
		f.dropValues(args)
		f.status = StatusReceiving

	case builtins.Equals:
		finish(NewBool(f.heap.Equal(args[0], args[1])))

	case builtins.FunctionRun:
		fn := args[0]
		f.call(fn, nil, f.heap.NewHirId(responsible))

	case builtins.GetArgumentCount:
		switch {
		case args[0].Kind == VKBuiltin:
			finish(NewSmallInt(int64(args[0].Builtin.NumParameters())))
		case args[0].Kind == VKHeap && f.heap.Get(args[0]).Kind == OKClosure:
			closure := f.heap.Get(args[0]).Closure
			body, ok := closure.Lir.Body(closure.Body)
			if !ok {
				panic(fmt.Sprintf("closure references missing body %v", closure.Body))
			}
			finish(NewSmallInt(int64(body.ParameterCount)))
		default:
			typePanic("a function", args[0])
		}

	case builtins.IfElse:
		var branch, other Value
		switch {
		case args[0] == NewBool(true):
			branch, other = args[1], args[2]
		case args[0] == NewBool(false):
			branch, other = args[2], args[1]
		default:
			typePanic("True or False", args[0])
			return
		}
		f.heap.Drop(other)
		f.call(branch, nil, f.heap.NewHirId(responsible))

	case builtins.IntAdd, builtins.IntSubtract, builtins.IntMultiply,
		builtins.IntDivideTruncating, builtins.IntModulo, builtins.IntCompareTo:
		a, ok := intArg(0)
		if !ok {
			return
		}
		z, ok := intArg(1)
		if !ok {
			return
		}
		switch b {
		case builtins.IntAdd:
			finish(f.heap.NewInt(new(big.Int).Add(a, z)))
		case builtins.IntSubtract:
			finish(f.heap.NewInt(new(big.Int).Sub(a, z)))
		case builtins.IntMultiply:
			finish(f.heap.NewInt(new(big.Int).Mul(a, z)))
		case builtins.IntDivideTruncating, builtins.IntModulo:
			if z.Sign() == 0 {
				reason := fmt.Sprintf("`%s` cannot divide `%s` by zero", b, a)
				f.dropValues(args)
				f.panicWith(reason, responsible)
				return
			}
			if b == builtins.IntDivideTruncating {
				finish(f.heap.NewInt(new(big.Int).Quo(a, z)))
			} else {
				finish(f.heap.NewInt(new(big.Int).Rem(a, z)))
			}
		default:
			switch a.Cmp(z) {
			case -1:
				finish(NewSymbol(SymbolLess))
			case 0:
				finish(NewSymbol(SymbolEqual))
			default:
				finish(NewSymbol(SymbolGreater))
			}
		}

	case builtins.ListGet:
		list, ok := f.listArg(args, 0, typePanic)
		if !ok {
			return
		}
		index, ok := intArg(1)
		if !ok {
			return
		}
		i, err := listIndex(index, len(list))
		if err != nil {
			reason := fmt.Sprintf("the list has %d item(s), index %s is out of bounds", len(list), index)
			f.dropValues(args)
			f.panicWith(reason, responsible)
			return
		}
		item := list[i]
		f.heap.Dup(item)
		finish(item)

	case builtins.ListInsert:
		list, ok := f.listArg(args, 0, typePanic)
		if !ok {
			return
		}
		index, ok := intArg(1)
		if !ok {
			return
		}
		i, err := listIndex(index, len(list)+1)
		if err != nil {
			reason := fmt.Sprintf("cannot insert at index %s into a list of %d item(s)", index, len(list))
			f.dropValues(args)
			f.panicWith(reason, responsible)
			return
		}
		items := make([]Value, 0, len(list)+1)
		items = append(items, list[:i]...)
		items = append(items, args[2])
		items = append(items, list[i:]...)
		for _, item := range list {
			f.heap.Dup(item)
		}
		f.heap.Dup(args[2])
		finish(f.heap.NewList(items))

	case builtins.ListLength:
		list, ok := f.listArg(args, 0, typePanic)
		if !ok {
			return
		}
		finish(NewSmallInt(int64(len(list))))

	case builtins.Print:
		fmt.Fprintln(os.Stdout, f.heap.DebugText(args[0]))
		finish(Nothing())

	case builtins.Spawn:
		closure := args[0]
		if closure.Kind != VKHeap || f.heap.Get(closure).Kind != OKClosure {
			typePanic("a closure", closure)
			return
		}
		inner := f.heap.Get(closure).Closure
		body, ok := inner.Lir.Body(inner.Body)
		if !ok || body.ParameterCount != 0 {
			typePanic("a closure without parameters", closure)
			return
		}
		f.outgoing = NewPacket(f.heap, closure)
		f.spawnResponsible = responsible
		f.dropValues(args)
		f.status = StatusSpawning

	case builtins.StructGet:
		entries, ok := f.structArg(args, 0, typePanic)
		if !ok {
			return
		}
		for _, entry := range entries {
			if f.heap.Equal(entry.Key, args[1]) {
				value := entry.Value
				f.heap.Dup(value)
				finish(value)
				return
			}
		}
		reason := fmt.Sprintf("the struct does not contain the key `%s`", f.heap.DebugText(args[1]))
		f.dropValues(args)
		f.panicWith(reason, responsible)

	case builtins.StructGetKeys:
		entries, ok := f.structArg(args, 0, typePanic)
		if !ok {
			return
		}
		keys := make([]Value, len(entries))
		for i, entry := range entries {
			f.heap.Dup(entry.Key)
			keys[i] = entry.Key
		}
		finish(f.heap.NewList(keys))

	case builtins.StructHasKey:
		entries, ok := f.structArg(args, 0, typePanic)
		if !ok {
			return
		}
		found := false
		for _, entry := range entries {
			if f.heap.Equal(entry.Key, args[1]) {
				found = true
				break
			}
		}
		finish(NewBool(found))

	case builtins.TagGetValue:
		if args[0].Kind == VKHeap && f.heap.Get(args[0]).Kind == OKTag {
			value := f.heap.Get(args[0]).Tag.Value
			f.heap.Dup(value)
			finish(value)
			return
		}
		if args[0].Kind == VKSymbol {
			reason := fmt.Sprintf("the tag `%s` has no value", SymbolText(args[0].Symbol))
			f.dropValues(args)
			f.panicWith(reason, responsible)
			return
		}
		typePanic("a tag", args[0])

	case builtins.TagHasValue:
		switch {
		case args[0].Kind == VKSymbol:
			finish(NewBool(false))
		case args[0].Kind == VKHeap && f.heap.Get(args[0]).Kind == OKTag:
			finish(NewBool(true))
		default:
			typePanic("a tag", args[0])
		}

	case builtins.TagWithoutValue:
		switch {
		case args[0].Kind == VKSymbol:
			finish(args[0])
		case args[0].Kind == VKHeap && f.heap.Get(args[0]).Kind == OKTag:
			finish(NewSymbol(f.heap.Get(args[0]).Tag.Symbol))
		default:
			typePanic("a tag", args[0])
		}

	case builtins.TextCharacters:
		text, ok := textArg(0)
		if !ok {
			return
		}
		normalized := norm.NFC.String(text)
		var characters []Value
		for _, r := range normalized {
			characters = append(characters, f.heap.NewText(string(r)))
		}
		finish(f.heap.NewList(characters))

	case builtins.TextConcatenate:
		a, ok := textArg(0)
		if !ok {
			return
		}
		z, ok := textArg(1)
		if !ok {
			return
		}
		finish(f.heap.NewText(norm.NFC.String(a + z)))

	case builtins.TextLength:
		text, ok := textArg(0)
		if !ok {
			return
		}
		finish(NewSmallInt(int64(len([]rune(norm.NFC.String(text))))))

	case builtins.ToDebugText:
		finish(f.heap.NewText(f.heap.DebugText(args[0])))

	case builtins.TypeOf:
		finish(NewSymbol(InternSymbol(f.typeOf(args[0]))))

	default:
		panic(fmt.Sprintf("builtin %s is not implemented", b))
	}
}

func (f *Fiber) listArg(args []Value, i int, typePanic func(string, Value)) ([]Value, bool) {
	if args[i].Kind == VKHeap {
		if obj := f.heap.Get(args[i]); obj.Kind == OKList {
			return obj.List, true
		}
	}
	typePanic("a list", args[i])
	return nil, false
}

func (f *Fiber) structArg(args []Value, i int, typePanic func(string, Value)) ([]StructEntry, bool) {
	if args[i].Kind == VKHeap {
		if obj := f.heap.Get(args[i]); obj.Kind == OKStruct {
			return obj.Struct, true
		}
	}
	typePanic("a struct", args[i])
	return nil, false
}

func listIndex(index *big.Int, length int) (int, error) {
	if !index.IsInt64() {
		return 0, fmt.Errorf("index %s out of range", index)
	}
	i, err := safecast.Conv[int](index.Int64())
	if err != nil || i < 0 || i >= length {
		return 0, fmt.Errorf("index %s out of range", index)
	}
	return i, nil
}

func (f *Fiber) typeOf(v Value) string {
	switch v.Kind {
	case VKSmallInt:
		return "Int"
	case VKSymbol:
		return "Tag"
	case VKBuiltin:
		return "Function"
	}
	switch f.heap.Get(v).Kind {
	case OKBigInt:
		return "Int"
	case OKText:
		return "Text"
	case OKTag:
		return "Tag"
	case OKStruct:
		return "Struct"
	case OKList:
		return "List"
	case OKClosure:
		return "Function"
	case OKSendPort:
		return "SendPort"
	case OKReceivePort:
		return "ReceivePort"
	default:
		return "Unknown"
	}
}
