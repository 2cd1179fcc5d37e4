package epoch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// File reads the epoch from a small text file. The file is only re-read when it was replaced
// (WriteFile renames a new file over it) or its size or modification time changed.
// A missing file is the empty epoch.
type File struct {
	path string

	mu    sync.Mutex
	info  fs.FileInfo
	epoch Epoch
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) CurrentEpoch(context.Context) (Epoch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.info = nil
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat epoch file: %w", err)
	}
	if f.unchanged(info) {
		return f.epoch, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read epoch file: %w", err)
	}
	f.epoch = Epoch(strings.TrimSpace(string(data)))
	f.info = info
	return f.epoch, nil
}

func (f *File) unchanged(info fs.FileInfo) bool {
	return f.info != nil && os.SameFile(f.info, info) &&
		info.Size() == f.info.Size() && info.ModTime().Equal(f.info.ModTime())
}

// WriteFile publishes a new epoch: written to a temporary file next to path, then renamed over it.
func WriteFile(path string, e Epoch) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err = tmp.WriteString(string(e) + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// NewToken returns a fresh epoch derived from the current time.
func NewToken() Epoch {
	return Epoch(time.Now().UTC().Format("20060102T150405.000000000Z"))
}
