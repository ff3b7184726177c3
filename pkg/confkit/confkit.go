// Package confkit holds the small helpers shared by every config loader:
// path resolution relative to the main config file, split-file sections and
// .env bootstrapping.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ResolvePath expands environment variables in file and, when the result is
// relative, joins it onto base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// Section is a config block that lives in its own file. File is the path as
// written in the main config; Value is populated by Hydrate.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File (resolved against base) with loader. An empty File is a no-op.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}

// Configured reports whether the section was hydrated or set inline.
func (s Section[T]) Configured() bool {
	return s.Value != nil
}

// ProjectRoot walks upward from this source file until it finds go.mod or .git.
// Falls back to the working directory.
func ProjectRoot() (string, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		dir := filepath.Dir(file)
		for i := 0; i < 8; i++ {
			if fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git")) {
				return dir, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("getwd: %w", err)
	}
	return wd, nil
}

// MustProjectPath joins the repository root with rel and panics on failure.
func MustProjectPath(rel string) string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return filepath.Join(root, rel)
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}
