package mir

import (
	"fmt"

	"candy/internal/hir"
	"candy/internal/module"
)

// Mir is one module's mid-level IR together with the generator for fresh
// ids inside it.
type Mir struct {
	Body  Body
	IdGen *IdGenerator
}

// New returns an empty Mir with a fresh id generator.
func New() *Mir {
	return &Mir{IdGen: NewIdGenerator()}
}

// Build runs fill against a fresh Mir's root body and returns the result.
func Build(fill func(body *Body, gen *IdGenerator)) *Mir {
	m := New()
	fill(&m.Body, m.IdGen)
	return m
}

// BuildPanickingModule returns a Mir whose only effect is to panic with
// the given reason, blamed on the module itself. Used when a module
// cannot be compiled, so downstream consumers still get a well-formed
// module.
func BuildPanickingModule(mod module.Module, reason string) *Mir {
	return Build(func(body *Body, gen *IdGenerator) {
		responsible := body.PushNew(gen, HirIdent{Id: hir.ModuleId(mod)})
		reasonId := body.PushNew(gen, Text{Value: reason})
		body.PushNew(gen, Panic{Reason: reasonId, Responsible: responsible})
	})
}

// Errors produced when resolving `use` targets. They are surfaced as
// panicking modules, not Go panics, so a broken import poisons only the
// importing module.
type UseError struct {
	Module module.Module
	Kind   UseErrorKind
}

// UseErrorKind classifies why a `use` could not be resolved.
type UseErrorKind int

const (
	// UseWithInvalidPath means the relative path was not a text literal
	// or contained invalid characters.
	UseWithInvalidPath UseErrorKind = iota
	// UseHasTooManyParentNavigations means the path escaped the package.
	UseHasTooManyParentNavigations
	// ModuleNotFound means no module exists at the target path.
	ModuleNotFound
	// ModuleHasCycle means the import chain visits a module twice.
	ModuleHasCycle
)

func (e *UseError) Error() string {
	switch e.Kind {
	case UseWithInvalidPath:
		return fmt.Sprintf("%s uses an invalid path", e.Module)
	case UseHasTooManyParentNavigations:
		return fmt.Sprintf("%s uses a path that navigates above the package root", e.Module)
	case ModuleNotFound:
		return fmt.Sprintf("module %s not found", e.Module)
	case ModuleHasCycle:
		return fmt.Sprintf("importing %s would form a cycle", e.Module)
	default:
		return fmt.Sprintf("use error in %s", e.Module)
	}
}
