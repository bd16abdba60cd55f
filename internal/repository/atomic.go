package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileTx replaces a single store file. New content is staged in a temp file
// next to the target and renamed over it on Commit, so readers see either
// the old file or the new one.
type FileTx struct {
	path string
	tmp  *os.File
	done bool
}

// BeginFileTx starts a replacement of dir/name, creating dir if needed.
func BeginFileTx(dir, name string) (*FileTx, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	return &FileTx{path: filepath.Join(dir, name), tmp: tmp}, nil
}

// Path is the file the transaction replaces.
func (tx *FileTx) Path() string {
	return tx.path
}

// Current returns the committed content, or nil if the file does not exist yet.
func (tx *FileTx) Current() ([]byte, error) {
	data, err := os.ReadFile(tx.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Write stages content. A second Write replaces the first.
func (tx *FileTx) Write(content []byte) error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	if err := tx.tmp.Truncate(0); err != nil {
		return err
	}
	_, err := tx.tmp.WriteAt(content, 0)
	return err
}

// Commit flushes the staged content and renames it over the target.
func (tx *FileTx) Commit() error {
	if tx.done {
		return errors.New("transaction already finished")
	}

	if err := tx.tmp.Sync(); err != nil {
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := tx.tmp.Chmod(0644); err != nil {
		return fmt.Errorf("chmod staging file: %w", err)
	}
	if err := tx.tmp.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	if err := os.Rename(tx.tmp.Name(), tx.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	tx.done = true

	syncDir(filepath.Dir(tx.path))
	return nil
}

// Rollback discards the staged content. It is a no-op after Commit.
func (tx *FileTx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true

	_ = tx.tmp.Close()
	if err := os.Remove(tx.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("remove staging file failed", "path", tx.tmp.Name(), "error", err)
	}
}

// writeFileAtomic replaces dir/name with data in one transaction.
func writeFileAtomic(dir, name string, data []byte) error {
	tx, err := BeginFileTx(dir, name)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.Write(data); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return tx.Commit()
}

// syncDir persists a rename. Some filesystems refuse to fsync directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
