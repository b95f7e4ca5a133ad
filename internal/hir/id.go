// Package hir exposes the part of the high-level IR that survives into the
// runtime: stable identities for source-level expressions. The VM and the
// tracers use these ids to attribute panics and trace events to the code
// that is responsible for them.
package hir

import (
	"strings"

	"candy/internal/module"
)

// Id identifies an expression in the HIR of a module. The key path walks
// from the module root down to the expression; an empty path means the
// module itself.
type Id struct {
	Module module.Module
	Keys   []string
}

// NewId builds an id for the given key path inside a module.
func NewId(mod module.Module, keys ...string) Id {
	return Id{Module: mod, Keys: keys}
}

// ModuleId returns the id that stands for the module as a whole.
func ModuleId(mod module.Module) Id {
	return Id{Module: mod}
}

// Child returns the id of a child expression below this one.
func (id Id) Child(key string) Id {
	keys := make([]string, 0, len(id.Keys)+1)
	keys = append(keys, id.Keys...)
	keys = append(keys, key)
	return Id{Module: id.Module, Keys: keys}
}

// IsInModule reports whether the id belongs to the given module.
func (id Id) IsInModule(mod module.Module) bool {
	return id.Module.Equal(mod)
}

// Contains reports whether other lies within the subtree rooted at id.
func (id Id) Contains(other Id) bool {
	if !id.Module.Equal(other.Module) || len(other.Keys) < len(id.Keys) {
		return false
	}
	for i, key := range id.Keys {
		if other.Keys[i] != key {
			return false
		}
	}
	return true
}

// Equal reports whether two ids name the same expression.
func (id Id) Equal(other Id) bool {
	if !id.Module.Equal(other.Module) || len(id.Keys) != len(other.Keys) {
		return false
	}
	for i, key := range id.Keys {
		if other.Keys[i] != key {
			return false
		}
	}
	return true
}

func (id Id) String() string {
	if len(id.Keys) == 0 {
		return id.Module.String()
	}
	return id.Module.String() + ":" + strings.Join(id.Keys, ":")
}
