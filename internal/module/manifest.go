package module

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file that marks a package root.
const ManifestName = "candy.toml"

// Manifest describes a package's candy.toml.
type Manifest struct {
	Path   string
	Root   string
	Config ManifestConfig
}

// ManifestConfig mirrors the TOML structure of candy.toml.
type ManifestConfig struct {
	Package PackageConfig `toml:"package"`
	Run     RunConfig     `toml:"run"`
}

// PackageConfig is the [package] table.
type PackageConfig struct {
	Name string `toml:"name"`
}

// RunConfig is the [run] table.
type RunConfig struct {
	Main string `toml:"main"`
}

// ErrPackageSectionMissing indicates that [package] is missing in a manifest.
var ErrPackageSectionMissing = errors.New("missing [package] in " + ManifestName)

// ErrNotInPackage indicates that no manifest was found upward from the
// start directory.
var ErrNotInPackage = errors.New("no " + ManifestName + " found")

// FindManifest walks upward from startDir looking for a candy.toml.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest parses the manifest at the given path.
func LoadManifest(path string) (*Manifest, error) {
	var cfg ManifestConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

// LoadManifestFor finds and parses the manifest governing startDir.
func LoadManifestFor(startDir string) (*Manifest, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInPackage
	}
	return LoadManifest(path)
}
