// Package memory implements storage.Storage with an in-memory map. It is
// ephemeral and intended for tests and short-lived clones, mirroring the use
// case go-git documents for its own storage/memory backend.
package memory

import (
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chr33s/git/storage"
)

type file struct {
	data     []byte
	modified time.Time
}

// Storage is a map-backed storage.Storage implementation.
type Storage struct {
	mu    sync.RWMutex
	files map[string]*file
}

// New returns an empty in-memory Storage.
func New() *Storage {
	return &Storage{files: make(map[string]*file)}
}

func clean(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

// Init is a no-op: each Storage instance is already scoped to one repo.
func (s *Storage) Init(repo string) error { return nil }

func (s *Storage) Exists(p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p = clean(p)
	if _, ok := s.files[p]; ok {
		return true, nil
	}
	return s.hasDescendant(p), nil
}

func (s *Storage) hasDescendant(dir string) bool {
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	for name := range s.files {
		if strings.HasPrefix(name, prefix) && name != dir {
			return true
		}
	}
	return false
}

func (s *Storage) ReadFile(p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[clean(p)]
	if !ok {
		return nil, &storage.Error{Op: "read", Path: p, Err: storage.ErrNotFound}
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (s *Storage) WriteFile(p string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.files[clean(p)] = &file{data: cp, modified: time.Now()}
	return nil
}

func (s *Storage) DeleteFile(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clean(p)
	if _, ok := s.files[cp]; !ok {
		return &storage.Error{Op: "delete", Path: p, Err: storage.ErrNotFound}
	}
	delete(s.files, cp)
	return nil
}

// CreateDirectory is a no-op: directories are implicit in this backend.
func (s *Storage) CreateDirectory(p string) error { return nil }

func (s *Storage) ListDirectory(p string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dir := clean(p)
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var names []string
	for name := range s.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if rest == "" {
			continue
		}
		child := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			child = rest[:i]
		}
		if !seen[child] {
			seen[child] = true
			names = append(names, child)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) DeleteDirectory(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := clean(p)
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	for name := range s.files {
		if name == dir || strings.HasPrefix(name, prefix) {
			delete(s.files, name)
		}
	}
	return nil
}

func (s *Storage) FileInfo(p string) (storage.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[clean(p)]
	if !ok {
		return storage.FileInfo{}, &storage.Error{Op: "stat", Path: p, Err: storage.ErrNotFound}
	}
	return storage.FileInfo{Size: int64(len(f.data)), Modified: f.modified}, nil
}
