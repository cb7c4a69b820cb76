// Package refs implements the hierarchical reference store (spec §4.D):
// mutable name→OID mappings under .git/refs, plus HEAD resolution.
package refs

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/storage"
)

// ErrNotFound is returned when a ref does not exist.
var ErrNotFound = errors.New("refs: not found")

// HeadPath is the storage path of the HEAD pseudo-ref.
const HeadPath = "HEAD"

// Store is a ref database layered on a storage.Storage rooted at ".git".
type Store struct {
	fs storage.Storage
}

// New returns a ref store over fs.
func New(fs storage.Storage) *Store {
	return &Store{fs: fs}
}

func refPath(name string) string {
	return name
}

// Read resolves a ref name directly to an OID; it does not follow HEAD's
// symbolic indirection (use ReadHead/ResolveHead for that).
func (s *Store) Read(name string) (objects.OID, error) {
	data, err := s.fs.ReadFile(refPath(name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	return objects.OID(strings.TrimSpace(string(data))), nil
}

// Write stores name → oid, creating parent directories as needed.
func (s *Store) Write(name string, oid objects.OID) error {
	return s.fs.WriteFile(refPath(name), []byte(oid.String()+"\n"))
}

// Delete removes a ref. Deleting a ref that does not exist is not an error.
func (s *Store) Delete(name string) error {
	err := s.fs.DeleteFile(refPath(name))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// Ref is a single name→OID mapping returned by List.
type Ref struct {
	Name string
	OID  objects.OID
}

// List walks refs/** and flattens it into (name, oid) pairs, sorted by name.
func (s *Store) List() ([]Ref, error) {
	var out []Ref
	if err := s.walk("refs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) walk(dir string, out *[]Ref) error {
	children, err := s.fs.ListDirectory(dir)
	if err != nil {
		return err
	}
	for _, name := range children {
		p := path.Join(dir, name)
		if s.isDir(p) {
			if err := s.walk(p, out); err != nil {
				return err
			}
			continue
		}
		oid, err := s.Read(p)
		if err != nil {
			return err
		}
		*out = append(*out, Ref{Name: p, OID: oid})
	}
	return nil
}

func (s *Store) isDir(p string) bool {
	children, err := s.fs.ListDirectory(p)
	return err == nil && children != nil
}

// Head result kinds.
type HeadKind int

const (
	// HeadDetached means HEAD directly names an OID.
	HeadDetached HeadKind = iota
	// HeadSymbolic means HEAD points at a branch ref (which may not yet
	// exist, e.g. a freshly-initialized repository).
	HeadSymbolic
)

// Head describes HEAD's current target.
type Head struct {
	Kind   HeadKind
	Target string     // symbolic ref name, when Kind == HeadSymbolic
	OID    objects.OID // resolved OID, when Kind == HeadDetached, or when the symbolic target exists
}

// ReadHead parses .git/HEAD without following the symbolic indirection any
// further than one resolution of the target ref.
func (s *Store) ReadHead() (Head, error) {
	data, err := s.fs.ReadFile(HeadPath)
	if err != nil {
		return Head{}, err
	}
	line := strings.TrimSpace(string(data))
	if target, ok := strings.CutPrefix(line, "ref: "); ok {
		oid, err := s.Read(target)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Head{}, err
		}
		return Head{Kind: HeadSymbolic, Target: target, OID: oid}, nil
	}
	return Head{Kind: HeadDetached, OID: objects.OID(line)}, nil
}

// WriteSymbolicHead points HEAD at a branch ref by name.
func (s *Store) WriteSymbolicHead(target string) error {
	return s.fs.WriteFile(HeadPath, []byte("ref: "+target+"\n"))
}

// WriteDetachedHead points HEAD directly at oid.
func (s *Store) WriteDetachedHead(oid objects.OID) error {
	return s.fs.WriteFile(HeadPath, []byte(oid.String()+"\n"))
}

// ResolveHead returns the OID HEAD currently names, following one level of
// symbolic indirection.
func (s *Store) ResolveHead() (objects.OID, error) {
	h, err := s.ReadHead()
	if err != nil {
		return "", err
	}
	return h.OID, nil
}

// BranchRef returns the canonical ref path for a branch name.
func BranchRef(name string) string { return "refs/heads/" + name }

// TagRef returns the canonical ref path for a tag name.
func TagRef(name string) string { return "refs/tags/" + name }

// RemoteRef returns the canonical ref path for a remote-tracking branch.
func RemoteRef(remote, branch string) string { return "refs/remotes/" + remote + "/" + branch }
