package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"candy/internal/hir"
	"candy/internal/lir"
	"candy/internal/module"
	"candy/internal/vm"
)

// program is a loaded .clir file together with the package it lives in.
type program struct {
	Lir      *lir.Lir
	Module   module.Module
	Manifest *module.Manifest
}

// loadProgram reads a compiled module and figures out its identity from
// the surrounding candy.toml. Errors are printed and mapped straight to
// exit codes, so callers never return after a failure.
func loadProgram(path string) *program {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "file not found: %s\n", path)
			os.Exit(exitFileNotFound)
		}
		fmt.Fprintf(os.Stderr, "cannot access %s: %v\n", path, err)
		os.Exit(exitFileNotFound)
	}

	manifest, err := module.LoadManifestFor(filepath.Dir(path))
	if err != nil {
		if errors.Is(err, module.ErrNotInPackage) {
			fmt.Fprintf(os.Stderr, "%s is not inside a candy package (no %s found)\n",
				path, module.ManifestName)
			os.Exit(exitNotInPackage)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitNotInPackage)
	}

	l, err := lir.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load %s: %v\n", path, err)
		os.Exit(exitContainsError)
	}

	return &program{
		Lir:      l,
		Module:   moduleForFile(manifest, path),
		Manifest: manifest,
	}
}

// moduleForFile derives the module identity from the file's location
// inside the package.
func moduleForFile(manifest *module.Manifest, path string) module.Module {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(manifest.Root, abs)
	if err != nil {
		rel = filepath.Base(abs)
	}
	rel = strings.TrimSuffix(rel, ".clir")
	segments := strings.Split(filepath.ToSlash(rel), "/")
	return module.New(manifest.Config.Package.Name, segments...)
}

func (p *program) responsible() hir.Id {
	return hir.ModuleId(p.Module)
}

func (p *program) useProvider() vm.UseProvider {
	return &vm.FileUseProvider{Root: p.Manifest.Root}
}

func (p *program) closure() vm.Packet {
	heap := vm.NewHeap()
	closure := heap.NewClosure(p.Lir, p.Lir.ModuleBody(), nil)
	packet := vm.NewPacket(heap, closure)
	heap.Drop(closure)
	return packet
}
