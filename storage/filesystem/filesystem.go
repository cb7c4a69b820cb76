// Package filesystem implements storage.Storage on top of go-billy, the
// filesystem abstraction go-git itself is built around. It backs the
// on-disk ".git" layout described in spec §6.
package filesystem

import (
	"io"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/chr33s/git/storage"
)

// Storage stores repository state under a root directory on a real or
// virtual filesystem, addressed through a billy.Filesystem.
type Storage struct {
	root billy.Filesystem
}

// New returns a Storage rooted at dir on the local OS filesystem.
func New(dir string) *Storage {
	return &Storage{root: osfs.New(dir)}
}

// NewFromFS wraps an already-constructed billy.Filesystem, letting callers
// plug in chroot'ed, in-memory (memfs), or browser-private-file-system-backed
// filesystems that satisfy the same billy.Filesystem contract.
func NewFromFS(fs billy.Filesystem) *Storage {
	return &Storage{root: fs}
}

// Init scopes the backend to a repo subdirectory of the configured root.
func (s *Storage) Init(repo string) error {
	if repo == "" || repo == "." {
		return nil
	}
	fs, err := s.root.Chroot(repo)
	if err != nil {
		return &storage.Error{Op: "init", Path: repo, Err: err}
	}
	s.root = fs
	return nil
}

func wrapErr(op, p string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return &storage.Error{Op: op, Path: p, Err: storage.ErrNotFound}
	}
	return &storage.Error{Op: op, Path: p, Err: err}
}

func (s *Storage) Exists(p string) (bool, error) {
	_, err := s.root.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapErr("exists", p, err)
	}
	return true, nil
}

func (s *Storage) ReadFile(p string) ([]byte, error) {
	f, err := s.root.Open(p)
	if err != nil {
		return nil, wrapErr("read", p, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Storage) WriteFile(p string, data []byte) error {
	if dir := path.Dir(p); dir != "." && dir != "/" {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return wrapErr("write", p, err)
		}
	}
	f, err := s.root.Create(p)
	if err != nil {
		return wrapErr("write", p, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return wrapErr("write", p, err)
	}
	return wrapErr("write", p, f.Close())
}

func (s *Storage) DeleteFile(p string) error {
	if err := s.root.Remove(p); err != nil {
		return wrapErr("delete", p, err)
	}
	return nil
}

func (s *Storage) CreateDirectory(p string) error {
	if err := s.root.MkdirAll(p, 0o755); err != nil {
		return wrapErr("mkdir", p, err)
	}
	return nil
}

func (s *Storage) ListDirectory(p string) ([]string, error) {
	entries, err := s.root.ReadDir(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapErr("list", p, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) DeleteDirectory(p string) error {
	entries, err := s.root.ReadDir(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapErr("delete-dir", p, err)
	}
	for _, e := range entries {
		child := path.Join(p, e.Name())
		if e.IsDir() {
			if err := s.DeleteDirectory(child); err != nil {
				return err
			}
			continue
		}
		if err := s.root.Remove(child); err != nil {
			return wrapErr("delete-dir", child, err)
		}
	}
	return wrapErr("delete-dir", p, s.root.Remove(p))
}

func (s *Storage) FileInfo(p string) (storage.FileInfo, error) {
	fi, err := s.root.Stat(p)
	if err != nil {
		return storage.FileInfo{}, wrapErr("stat", p, err)
	}
	return storage.FileInfo{Size: fi.Size(), Modified: fi.ModTime()}, nil
}
