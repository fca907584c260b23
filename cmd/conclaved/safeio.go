package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultDataDir mirrors node/config.go's DefaultDataDir, scoped to
// this daemon's own directory name.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".conclaved"
	}
	return filepath.Join(home, ".conclaved")
}

func readFileByPath(path string) ([]byte, error) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	return readFileFromDir(dir, name)
}

func readFileFromDir(dir, name string) ([]byte, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}
	return fs.ReadFile(os.DirFS(dir), name)
}
