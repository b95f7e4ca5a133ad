package vm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"candy/internal/lir"
	"candy/internal/module"
)

// ExecutionController decides how long a scheduling slice may run. The
// fiber checks it before each instruction.
type ExecutionController interface {
	ShouldContinue() bool
	InstructionExecuted()
}

// RunForever never stops a slice; execution ends only when the program
// does.
type RunForever struct{}

func (RunForever) ShouldContinue() bool { return true }
func (RunForever) InstructionExecuted() {}

// RunLimitedNumberOfInstructions stops a slice after a budget of
// instructions. Exhausting the budget is a soft stop: the fiber stays
// runnable and continues in the next slice.
type RunLimitedNumberOfInstructions struct {
	remaining int
}

// NewRunLimitedNumberOfInstructions returns a controller allowing n
// instructions.
func NewRunLimitedNumberOfInstructions(n int) *RunLimitedNumberOfInstructions {
	return &RunLimitedNumberOfInstructions{remaining: n}
}

func (c *RunLimitedNumberOfInstructions) ShouldContinue() bool { return c.remaining > 0 }
func (c *RunLimitedNumberOfInstructions) InstructionExecuted() { c.remaining-- }

// UseResultKind distinguishes what a use resolved to.
type UseResultKind uint8

const (
	// UseCode is a compiled candy module.
	UseCode UseResultKind = iota
	// UseAsset is a raw file.
	UseAsset
)

// UseResult is a resolved import.
type UseResult struct {
	Kind  UseResultKind
	Code  *lir.Lir
	Asset []byte
}

// UseProvider resolves module identifiers to compiled code or asset
// bytes. The VM calls it only while executing a use instruction.
type UseProvider interface {
	Use(mod module.Module) (UseResult, error)
}

// PanickingUseProvider fails every use. For programs known to have no
// imports.
type PanickingUseProvider struct{}

func (PanickingUseProvider) Use(mod module.Module) (UseResult, error) {
	return UseResult{}, fmt.Errorf("no use provider configured, cannot import %s", mod)
}

// StaticUseProvider resolves imports from an in-memory table. Used in
// tests and by the fuzzer, which re-runs the same modules many times.
type StaticUseProvider struct {
	Modules map[string]*lir.Lir
	Assets  map[string][]byte
}

func (p *StaticUseProvider) Use(mod module.Module) (UseResult, error) {
	if mod.Kind == module.KindAsset {
		if asset, ok := p.Assets[mod.Key()]; ok {
			return UseResult{Kind: UseAsset, Asset: asset}, nil
		}
		return UseResult{}, fmt.Errorf("asset %s not found", mod)
	}
	if code, ok := p.Modules[mod.Key()]; ok {
		return UseResult{Kind: UseCode, Code: code}, nil
	}
	return UseResult{}, fmt.Errorf("module %s not found", mod)
}

// FileUseProvider resolves modules against a package directory on disk:
// code modules to compiled .clir files, asset modules to raw files.
type FileUseProvider struct {
	// Root is the package directory containing candy.toml.
	Root string
}

func (p *FileUseProvider) Use(mod module.Module) (UseResult, error) {
	rel := filepath.Join(mod.Path...)
	if strings.Contains(rel, "..") {
		return UseResult{}, fmt.Errorf("module path %s escapes the package", mod)
	}
	if mod.Kind == module.KindAsset {
		bytes, err := os.ReadFile(filepath.Join(p.Root, rel))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return UseResult{}, fmt.Errorf("asset %s not found", mod)
			}
			return UseResult{}, err
		}
		return UseResult{Kind: UseAsset, Asset: bytes}, nil
	}
	code, err := lir.ReadFile(filepath.Join(p.Root, rel+".clir"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return UseResult{}, fmt.Errorf("module %s not found", mod)
		}
		return UseResult{}, err
	}
	return UseResult{Kind: UseCode, Code: code}, nil
}
