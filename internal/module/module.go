// Package module defines module identities and the resolution of use paths
// relative to them. A module is a file inside a package: code modules
// contain compiled candy code, asset modules contain raw bytes.
package module

import "strings"

// Kind distinguishes code modules from asset modules.
type Kind uint8

const (
	// KindCode marks a module containing compiled candy code.
	KindCode Kind = iota
	// KindAsset marks a module containing raw bytes.
	KindAsset
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// Module identifies a single module inside a package.
type Module struct {
	Package string
	Path    []string
	Kind    Kind
}

// New builds a code module from a package name and path segments.
func New(pkg string, path ...string) Module {
	return Module{Package: pkg, Path: path, Kind: KindCode}
}

// Equal reports whether two modules are the same.
func (m Module) Equal(other Module) bool {
	if m.Package != other.Package || m.Kind != other.Kind || len(m.Path) != len(other.Path) {
		return false
	}
	for i, segment := range m.Path {
		if other.Path[i] != segment {
			return false
		}
	}
	return true
}

// Key returns a stable string usable as a map key.
func (m Module) Key() string {
	return m.String()
}

func (m Module) String() string {
	var sb strings.Builder
	sb.WriteString(m.Package)
	for _, segment := range m.Path {
		sb.WriteByte('/')
		sb.WriteString(segment)
	}
	if m.Kind == KindAsset {
		sb.WriteString("!asset")
	}
	return sb.String()
}
