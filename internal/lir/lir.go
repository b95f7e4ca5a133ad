// Package lir defines the lowered instruction representation the VM
// executes: a constant pool plus flat instruction bodies. It is the sole
// contract between the compilation pipeline and the runtime.
package lir

import "fmt"

// ConstantId indexes into a Lir's constant pool.
type ConstantId int

func (id ConstantId) String() string { return fmt.Sprintf("c%d", int(id)) }

// BodyId indexes into a Lir's bodies.
type BodyId int

func (id BodyId) String() string { return fmt.Sprintf("b%d", int(id)) }

// Lir is one compiled module: append-only collections of constants and
// instruction bodies. The last body is the module body that runs when the
// module is used.
type Lir struct {
	Constants []Constant
	Bodies    []Body
}

// Body is a flat instruction sequence. When called, the stack already
// holds the closure's captured values followed by the arguments and the
// responsible id. OriginalHirs names the source definitions this body was
// compiled from, for diagnostics and fuzz reports.
type Body struct {
	OriginalHirs   []HirIdConstant
	CapturedCount  int
	ParameterCount int
	Instructions   []Instruction
}

// AddConstant appends a constant and returns its id.
func (l *Lir) AddConstant(c Constant) ConstantId {
	l.Constants = append(l.Constants, c)
	return ConstantId(len(l.Constants) - 1)
}

// AddBody appends a body and returns its id.
func (l *Lir) AddBody(b Body) BodyId {
	l.Bodies = append(l.Bodies, b)
	return BodyId(len(l.Bodies) - 1)
}

// Constant returns the constant at id.
func (l *Lir) Constant(id ConstantId) (Constant, bool) {
	if id < 0 || int(id) >= len(l.Constants) {
		return Constant{}, false
	}
	return l.Constants[id], true
}

// Body returns the body at id.
func (l *Lir) Body(id BodyId) (Body, bool) {
	if id < 0 || int(id) >= len(l.Bodies) {
		return Body{}, false
	}
	return l.Bodies[id], true
}

// ModuleBody is the body executed when the module is loaded.
func (l *Lir) ModuleBody() BodyId {
	return BodyId(len(l.Bodies) - 1)
}
