package storage

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// File persists each key as one file under a directory.  Writes go
// through a temp file followed by a rename so a crashed process never
// leaves a torn value behind.  This backend is the closest analog of
// the original per-browser localStorage: durable, local, shared by
// every process pointing at the same directory.
type File struct {
	dir string
}

// NewFile creates the directory when missing and returns the store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

// path maps a key to a file name.  Keys are hex-escaped when they
// contain anything outside the safe character set so arbitrary keys
// cannot traverse out of the directory.
func (f *File) path(key string) string {
	safe := true
	for _, r := range key {
		if !(r == '_' || r == '-' || r == '.' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			safe = false
			break
		}
	}
	if !safe || strings.HasPrefix(key, ".") {
		key = "x" + hex.EncodeToString([]byte(key))
	}
	return filepath.Join(f.dir, key+".json")
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	b, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	p := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (f *File) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
