package lir

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the payload format changes.
const codecSchemaVersion uint16 = 1

const codecMagic = "clir"

// ErrSchemaMismatch is returned when a compiled module was written by an
// incompatible toolchain version.
var ErrSchemaMismatch = errors.New("compiled module has an incompatible schema version")

type codecPayload struct {
	Magic  string
	Schema uint16
	Lir    Lir
}

// Encode writes a compiled module to w.
func Encode(w io.Writer, l *Lir) error {
	enc := msgpack.NewEncoder(w)
	return enc.Encode(codecPayload{
		Magic:  codecMagic,
		Schema: codecSchemaVersion,
		Lir:    *l,
	})
}

// Decode reads a compiled module from r.
func Decode(r io.Reader) (*Lir, error) {
	dec := msgpack.NewDecoder(r)
	var payload codecPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding compiled module: %w", err)
	}
	if payload.Magic != codecMagic {
		return nil, errors.New("not a compiled candy module")
	}
	if payload.Schema != codecSchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, payload.Schema, codecSchemaVersion)
	}
	return &payload.Lir, nil
}

// WriteFile atomically writes a compiled module to path.
func WriteFile(path string, l *Lir) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := Encode(f, l); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile reads a compiled module from path.
func ReadFile(path string) (*Lir, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
