// Package mir implements the mid-level IR: trees of id-bound expressions
// grouped into bodies. The optimizer rewrites Mir values before they are
// lowered to LIR.
package mir

import (
	"math/big"

	"candy/internal/builtins"
	"candy/internal/hir"
	"candy/internal/module"
)

// Expression is one MIR expression. Every expression is bound to an Id
// inside a Body; compound expressions (functions, Multiple) contain nested
// bodies with their own bindings.
type Expression interface {
	expression()
}

// Int is an arbitrary-precision integer literal.
type Int struct {
	Value *big.Int
}

// Text is a string literal.
type Text struct {
	Value string
}

// Tag is a symbol, optionally applied to a value. `Foo` is a tag without a
// value, `Foo 4` is a tag with one.
type Tag struct {
	Symbol string
	Value  Id // NoId if the tag carries no value
}

// Builtin references a builtin function.
type Builtin struct {
	Fn builtins.Builtin
}

// List is an ordered sequence of values.
type List struct {
	Items []Id
}

// StructField is one key-value pair of a struct.
type StructField struct {
	Key   Id
	Value Id
}

// Struct is an unordered key-value mapping.
type Struct struct {
	Fields []StructField
}

// Reference re-exports another id's value.
type Reference struct {
	Target Id
}

// HirIdent wraps a HIR id as a first-class value, used for responsibility
// tracking and trace events.
type HirIdent struct {
	Id hir.Id
}

// Function is a closure literal. In the MIR, responsibilities are tracked
// explicitly: every function takes a responsible HIR id as an extra
// parameter that determines who is blamed if an argument contract is
// violated.
type Function struct {
	Parameters           []Id
	ResponsibleParameter Id
	Body                 Body
}

// Parameter is never stored in a body; it stands in for parameter ids when
// passes need an expression for them.
type Parameter struct{}

// Call applies a function to arguments.
type Call struct {
	Function    Id
	Arguments   []Id
	Responsible Id
}

// UseModule imports another module relative to the current one.
type UseModule struct {
	CurrentModule module.Module
	RelativePath  Id
	Responsible   Id
}

// Panic aborts the program with a reason, blaming the responsible id.
type Panic struct {
	Reason      Id
	Responsible Id
}

// Multiple bundles several expressions into one. It only exists
// transiently inside optimization passes and is flattened back into the
// enclosing body afterwards.
type Multiple struct {
	Body Body
}

// ModuleStarts marks the beginning of an inlined module's code. The
// bracket directly influences the VM's import stack, so it is not
// optional; a bracket pair with no `use` in between may be erased.
type ModuleStarts struct {
	Module module.Module
}

// ModuleEnds closes the most recent ModuleStarts.
type ModuleEnds struct{}

// TraceCallStarts reports a call to the tracer.
type TraceCallStarts struct {
	HirCall     Id
	Function    Id
	Arguments   []Id
	Responsible Id
}

// TraceCallEnds reports that the most recent traced call returned.
type TraceCallEnds struct {
	ReturnValue Id
}

// TraceExpressionEvaluated reports an evaluated expression's value.
type TraceExpressionEvaluated struct {
	HirExpression Id
	Value         Id
}

// TraceFoundFuzzableClosure reports a closure the fuzzer may target.
type TraceFoundFuzzableClosure struct {
	HirDefinition Id
	Function      Id
}

// TraceTailCall replaces a TraceCallStarts whose call result is returned
// directly, so the tracer can pop-and-push in one step.
type TraceTailCall struct {
	HirCall     Id
	Function    Id
	Arguments   []Id
	Responsible Id
}

func (Int) expression()                       {}
func (Text) expression()                      {}
func (Tag) expression()                       {}
func (Builtin) expression()                   {}
func (List) expression()                      {}
func (Struct) expression()                    {}
func (Reference) expression()                 {}
func (HirIdent) expression()                  {}
func (Function) expression()                  {}
func (Parameter) expression()                 {}
func (Call) expression()                      {}
func (UseModule) expression()                 {}
func (Panic) expression()                     {}
func (Multiple) expression()                  {}
func (ModuleStarts) expression()              {}
func (ModuleEnds) expression()                {}
func (TraceCallStarts) expression()           {}
func (TraceCallEnds) expression()             {}
func (TraceExpressionEvaluated) expression()  {}
func (TraceFoundFuzzableClosure) expression() {}
func (TraceTailCall) expression()             {}

// Nothing returns the canonical "nothing" value.
func Nothing() Expression {
	return Tag{Symbol: "Nothing"}
}

// Bool returns the tag expression for a boolean.
func Bool(value bool) Expression {
	if value {
		return Tag{Symbol: "True"}
	}
	return Tag{Symbol: "False"}
}

// BoolValue extracts a boolean from a tag expression, if it is one.
func BoolValue(expr Expression) (bool, bool) {
	tag, ok := expr.(Tag)
	if !ok || tag.Value != NoId {
		return false, false
	}
	switch tag.Symbol {
	case "True":
		return true, true
	case "False":
		return false, true
	default:
		return false, false
	}
}
