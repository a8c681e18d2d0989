// Package vfs abstracts the filesystem so the engine can run against the
// OS or a fault-injecting wrapper in tests.
package vfs

import (
	"io"
	"os"
)

// FS is the set of filesystem operations the engine uses.
type FS interface {
	// Create creates name, truncating an existing file.
	Create(name string) (WritableFile, error)

	// OpenAppend opens name for appending, creating it if missing.
	OpenAppend(name string) (WritableFile, error)

	// Open opens name for sequential reading.
	Open(name string) (io.ReadCloser, error)

	Rename(oldname, newname string) error
	Remove(name string) error
	MkdirAll(path string, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
	Exists(name string) bool
	ListDir(path string) ([]string, error)

	// Lock takes an exclusive advisory lock on name. Closing the returned
	// value releases it.
	Lock(name string) (io.Closer, error)

	// SyncDir makes renames and creations in path durable.
	SyncDir(path string) error
}

// WritableFile is an append-only file.
type WritableFile interface {
	io.WriteCloser

	// Sync flushes written data to stable storage.
	Sync() error

	// Truncate changes the file size. Later writes append at the new end.
	Truncate(size int64) error

	// Size returns the current file size.
	Size() (int64, error)
}

type osFS struct{}

// Default returns the OS filesystem.
func Default() FS { return osFS{} }

func (osFS) Create(name string) (WritableFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (osFS) OpenAppend(name string) (WritableFile, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (osFS) Open(name string) (io.ReadCloser, error) { return os.Open(name) }

func (osFS) Rename(oldname, newname string) error { return os.Rename(oldname, newname) }

func (osFS) Remove(name string) error { return os.Remove(name) }

func (osFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (osFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (osFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (osFS) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (osFS) Lock(name string) (io.Closer, error) { return lockFile(name) }

func (osFS) SyncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	syncErr := dir.Sync()
	if err := dir.Close(); syncErr == nil {
		syncErr = err
	}
	return syncErr
}

type osFile struct {
	f *os.File
}

func (o *osFile) Write(p []byte) (int, error) { return o.f.Write(p) }
func (o *osFile) Close() error                { return o.f.Close() }
func (o *osFile) Sync() error                 { return o.f.Sync() }

func (o *osFile) Truncate(size int64) error {
	if err := o.f.Truncate(size); err != nil {
		return err
	}
	_, err := o.f.Seek(size, io.SeekStart)
	return err
}

func (o *osFile) Size() (int64, error) {
	info, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
