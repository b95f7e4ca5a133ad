package module

import (
	"errors"
	"fmt"
	"strings"
)

// Use-path resolution errors. They surface as compile-time diagnostics when
// resolution happens during optimization and as program panics when a `use`
// runs inside the VM.
var (
	// ErrInvalidUsePath indicates a malformed use path.
	ErrInvalidUsePath = errors.New("invalid use path")
	// ErrTooManyParentNavigations indicates a use path that navigates above
	// the package root.
	ErrTooManyParentNavigations = errors.New("too many parent navigations")
)

const parentNavigationChar = '.'

// UsePath is a parsed use target: some number of parent navigations
// followed by a target name.
type UsePath struct {
	ParentNavigations int
	Path              string
}

// ParseUsePath parses the textual argument of a `use` expression. The
// target has to start with at least one dot; every additional dot navigates
// one level up. The name may only contain letters, digits, and dots.
func ParseUsePath(path string) (UsePath, error) {
	rest := path
	navigations := 0
	for strings.HasPrefix(rest, string(parentNavigationChar)) {
		navigations++
		rest = rest[1:]
	}
	if navigations == 0 {
		return UsePath{}, fmt.Errorf("%w: the target must start with at least one dot", ErrInvalidUsePath)
	}
	for _, c := range rest {
		if !isAsciiAlphanumeric(c) && c != '.' {
			return UsePath{}, fmt.Errorf("%w: the target name can only contain letters and dots", ErrInvalidUsePath)
		}
	}
	return UsePath{
		// Two dots mean one parent navigation.
		ParentNavigations: navigations - 1,
		Path:              rest,
	}, nil
}

// ResolveRelativeTo applies the use path to the importing module and
// returns the target module. Targets containing a dot are assets, all
// others are code modules.
func (p UsePath) ResolveRelativeTo(current Module) (Module, error) {
	kind := KindCode
	if strings.ContainsRune(p.Path, '.') {
		kind = KindAsset
	}

	path := append([]string(nil), current.Path...)
	for i := 0; i < p.ParentNavigations; i++ {
		if len(path) == 0 {
			return Module{}, ErrTooManyParentNavigations
		}
		path = path[:len(path)-1]
	}
	path = append(path, p.Path)

	return Module{Package: current.Package, Path: path, Kind: kind}, nil
}

func isAsciiAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
