// Package config reads checker settings from texlint.toml files.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is what Discover looks for while walking up from a document.
const FileName = "texlint.toml"

// Config carries the checker invocation settings shared by the language
// server and the command line linter.
type Config struct {
	// Checker is the argv prefix that starts the checker; empty means
	// the built-in default.
	Checker []string `toml:"checker"`

	// Options are extra checker arguments placed before the document
	// path.
	Options []string `toml:"options"`
}

// Load reads one config file. The file must exist; use Discover when
// absence is fine.
func Load(path string) (Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}

// Discover walks from dir toward the filesystem root and loads the first
// texlint.toml it finds. No file anywhere yields the zero config and an
// empty path.
func Discover(dir string) (Config, string, error) {
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Config{}, "", nil
		}
		dir = parent
	}
}
