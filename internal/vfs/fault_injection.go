package vfs

import (
	"errors"
	"io"
	"os"
	"sync"
)

var (
	// ErrInjectedWriteError is returned by writes that were set up to fail.
	ErrInjectedWriteError = errors.New("vfs: injected write error")

	// ErrInjectedSyncError is returned by syncs that were set up to fail.
	ErrInjectedSyncError = errors.New("vfs: injected sync error")

	// ErrFilesystemInactive is returned for every mutation after a
	// simulated crash.
	ErrFilesystemInactive = errors.New("vfs: filesystem inactive")
)

// FaultInjectionFS wraps an FS, failing writes and syncs on demand and
// remembering how much of each file was synced so a crash can be
// simulated with DropUnsyncedData.
type FaultInjectionFS struct {
	base FS

	mu         sync.Mutex
	writeErr   bool
	writePath  string // empty matches every file
	syncErr    bool
	active     bool
	syncedSize map[string]int64
	size       map[string]int64
}

// NewFaultInjectionFS wraps base.
func NewFaultInjectionFS(base FS) *FaultInjectionFS {
	return &FaultInjectionFS{
		base:       base,
		active:     true,
		syncedSize: make(map[string]int64),
		size:       make(map[string]int64),
	}
}

// InjectWriteError makes writes to path fail. An empty path fails writes
// to every file.
func (fs *FaultInjectionFS) InjectWriteError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.writeErr = true
	fs.writePath = path
}

// InjectSyncError makes every Sync fail.
func (fs *FaultInjectionFS) InjectSyncError() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.syncErr = true
}

// ClearErrors stops injecting errors.
func (fs *FaultInjectionFS) ClearErrors() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.writeErr, fs.syncErr, fs.writePath = false, false, ""
}

// SetFilesystemActive toggles whether mutations succeed.
func (fs *FaultInjectionFS) SetFilesystemActive(active bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.active = active
}

// DropUnsyncedData truncates every tracked file to its last synced size.
func (fs *FaultInjectionFS) DropUnsyncedData() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for name, synced := range fs.syncedSize {
		if fs.size[name] == synced {
			continue
		}
		if err := os.Truncate(name, synced); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		fs.size[name] = synced
	}
	return nil
}

func (fs *FaultInjectionFS) checkWrite(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.active {
		return ErrFilesystemInactive
	}
	if fs.writeErr && (fs.writePath == "" || fs.writePath == name) {
		return ErrInjectedWriteError
	}
	return nil
}

func (fs *FaultInjectionFS) track(name string, size int64, synced bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.size[name] = size
	if synced || fs.syncedSize[name] > size {
		fs.syncedSize[name] = size
	}
}

func (fs *FaultInjectionFS) Create(name string) (WritableFile, error) {
	if err := fs.checkWrite(name); err != nil {
		return nil, err
	}
	f, err := fs.base.Create(name)
	if err != nil {
		return nil, err
	}
	fs.track(name, 0, true)
	return &faultFile{fs: fs, name: name, base: f}, nil
}

func (fs *FaultInjectionFS) OpenAppend(name string) (WritableFile, error) {
	if err := fs.checkWrite(name); err != nil {
		return nil, err
	}
	f, err := fs.base.OpenAppend(name)
	if err != nil {
		return nil, err
	}
	size, err := f.Size()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	// Whatever is on disk at open time survives a crash.
	fs.track(name, size, true)
	return &faultFile{fs: fs, name: name, base: f, size: size}, nil
}

func (fs *FaultInjectionFS) Open(name string) (io.ReadCloser, error) { return fs.base.Open(name) }

func (fs *FaultInjectionFS) Rename(oldname, newname string) error {
	if err := fs.checkWrite(newname); err != nil {
		return err
	}
	if err := fs.base.Rename(oldname, newname); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if s, ok := fs.size[oldname]; ok {
		fs.size[newname], fs.syncedSize[newname] = s, fs.syncedSize[oldname]
		delete(fs.size, oldname)
		delete(fs.syncedSize, oldname)
	}
	return nil
}

func (fs *FaultInjectionFS) Remove(name string) error {
	if err := fs.checkWrite(name); err != nil {
		return err
	}
	fs.mu.Lock()
	delete(fs.size, name)
	delete(fs.syncedSize, name)
	fs.mu.Unlock()
	return fs.base.Remove(name)
}

func (fs *FaultInjectionFS) MkdirAll(path string, perm os.FileMode) error {
	return fs.base.MkdirAll(path, perm)
}

func (fs *FaultInjectionFS) Stat(name string) (os.FileInfo, error) { return fs.base.Stat(name) }
func (fs *FaultInjectionFS) Exists(name string) bool               { return fs.base.Exists(name) }
func (fs *FaultInjectionFS) ListDir(path string) ([]string, error) { return fs.base.ListDir(path) }
func (fs *FaultInjectionFS) Lock(name string) (io.Closer, error)   { return fs.base.Lock(name) }

func (fs *FaultInjectionFS) SyncDir(path string) error {
	fs.mu.Lock()
	fail := fs.syncErr
	fs.mu.Unlock()
	if fail {
		return ErrInjectedSyncError
	}
	return fs.base.SyncDir(path)
}

type faultFile struct {
	fs   *FaultInjectionFS
	name string
	base WritableFile
	size int64
}

func (f *faultFile) Write(p []byte) (int, error) {
	if err := f.fs.checkWrite(f.name); err != nil {
		return 0, err
	}
	n, err := f.base.Write(p)
	f.size += int64(n)
	f.fs.track(f.name, f.size, false)
	return n, err
}

func (f *faultFile) Sync() error {
	f.fs.mu.Lock()
	fail, active := f.fs.syncErr, f.fs.active
	f.fs.mu.Unlock()
	if !active {
		return ErrFilesystemInactive
	}
	if fail {
		return ErrInjectedSyncError
	}
	if err := f.base.Sync(); err != nil {
		return err
	}
	f.fs.track(f.name, f.size, true)
	return nil
}

func (f *faultFile) Truncate(size int64) error {
	if err := f.fs.checkWrite(f.name); err != nil {
		return err
	}
	if err := f.base.Truncate(size); err != nil {
		return err
	}
	f.size = size
	f.fs.track(f.name, size, false)
	return nil
}

func (f *faultFile) Size() (int64, error) { return f.size, nil }
func (f *faultFile) Close() error         { return f.base.Close() }
