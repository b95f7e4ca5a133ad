package lir

import (
	"fmt"
	"math/big"

	"candy/internal/builtins"
	"candy/internal/hir"
	"candy/internal/module"
)

// ConstantKind enumerates constant kinds in the pool.
type ConstantKind uint8

const (
	// ConstantInt is an arbitrary-precision integer.
	ConstantInt ConstantKind = iota
	// ConstantText is a UTF-8 string.
	ConstantText
	// ConstantTag is a symbol, optionally applied to another constant.
	ConstantTag
	// ConstantBuiltin is a builtin function.
	ConstantBuiltin
	// ConstantList is a list of constants.
	ConstantList
	// ConstantStruct is a mapping of constant keys to constant values.
	ConstantStruct
	// ConstantHirId is a source-level identity.
	ConstantHirId
	// ConstantFunction is a closure without captures.
	ConstantFunction
)

// Constant is one entry of the constant pool. Exactly the variant named
// by Kind is meaningful. Integers are stored as decimal text so the
// format stays independent of host word size.
type Constant struct {
	Kind ConstantKind

	Int      string
	Text     string
	Tag      TagConstant
	Builtin  builtins.Builtin
	List     []ConstantId
	Struct   []StructFieldConstant
	HirId    HirIdConstant
	Function FunctionConstant
}

// TagConstant is a symbol with an optional value.
type TagConstant struct {
	Symbol   string
	HasValue bool
	Value    ConstantId
}

// StructFieldConstant is one key-value pair of a struct constant.
type StructFieldConstant struct {
	Key   ConstantId
	Value ConstantId
}

// HirIdConstant is the serialized form of a hir.Id.
type HirIdConstant struct {
	Package string
	Path    []string
	Asset   bool
	Keys    []string
}

// FunctionConstant references the body of a capture-free closure.
type FunctionConstant struct {
	Body BodyId
}

// NewIntConstant encodes an integer constant.
func NewIntConstant(value *big.Int) Constant {
	return Constant{Kind: ConstantInt, Int: value.Text(10)}
}

// IntValue decodes an integer constant.
func (c Constant) IntValue() (*big.Int, error) {
	if c.Kind != ConstantInt {
		return nil, fmt.Errorf("constant is %v, not an int", c.Kind)
	}
	value, ok := new(big.Int).SetString(c.Int, 10)
	if !ok {
		return nil, fmt.Errorf("malformed int constant %q", c.Int)
	}
	return value, nil
}

// NewHirIdConstant encodes a hir.Id.
func NewHirIdConstant(id hir.Id) Constant {
	return Constant{Kind: ConstantHirId, HirId: HirIdConstant{
		Package: id.Module.Package,
		Path:    id.Module.Path,
		Asset:   id.Module.Kind == module.KindAsset,
		Keys:    id.Keys,
	}}
}

// HirIdValue decodes a HIR id constant.
func (c Constant) HirIdValue() (hir.Id, error) {
	if c.Kind != ConstantHirId {
		return hir.Id{}, fmt.Errorf("constant is %v, not a HIR id", c.Kind)
	}
	kind := module.KindCode
	if c.HirId.Asset {
		kind = module.KindAsset
	}
	mod := module.Module{Package: c.HirId.Package, Path: c.HirId.Path, Kind: kind}
	return hir.Id{Module: mod, Keys: c.HirId.Keys}, nil
}

func (k ConstantKind) String() string {
	switch k {
	case ConstantInt:
		return "int"
	case ConstantText:
		return "text"
	case ConstantTag:
		return "tag"
	case ConstantBuiltin:
		return "builtin"
	case ConstantList:
		return "list"
	case ConstantStruct:
		return "struct"
	case ConstantHirId:
		return "hirid"
	case ConstantFunction:
		return "function"
	default:
		return "unknown"
	}
}
