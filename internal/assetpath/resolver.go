package assetpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver turns asset paths into file system paths.
// Relative paths are joined with Root; absolute paths are used as is.
type Resolver struct {
	Root string
}

// NewResolver returns a Resolver rooted at root. An empty root selects the
// directory holding the running executable.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		var err error
		root, err = ExecutableRoot()
		if err != nil {
			return nil, err
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve asset root %q: %w", root, err)
	}
	return &Resolver{Root: abs}, nil
}

// ExecutableRoot returns the directory of the running executable with
// symlinks resolved.
func ExecutableRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Resolve returns the file system path for name.
func (r *Resolver) Resolve(name string) string {
	name = filepath.FromSlash(name)
	if filepath.IsAbs(name) || r == nil || r.Root == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(r.Root, name)
}

// Normalize returns the cache key for name: cleaned, slash separated and
// lower-cased, so "SFX\\Boom.wav" and "sfx/./boom.wav" share one entry.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	return strings.ToLower(name)
}
