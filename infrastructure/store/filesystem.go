package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// fileBackend stores each record as a file directly under dir.
type fileBackend struct {
	dir string
}

// NewFileStore returns a ResultStore rooted at dir. The directory is
// created on first write; reading a missing directory is a configuration
// error.
func NewFileStore(dir string) ports.ResultStore {
	return &recordStore{b: &fileBackend{dir: dir}}
}

func (f *fileBackend) location() string { return f.dir }

func (f *fileBackend) list(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.NewConfigError("location",
				fmt.Errorf("directory %s does not exist: %w", f.dir, ports.ErrLocationNotFound))
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, ctx.Err()
}

func (f *fileBackend) read(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(f.dir, name))
}

func (f *fileBackend) write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", f.dir, err)
	}
	return os.WriteFile(filepath.Join(f.dir, name), data, 0o644)
}
