// Package repository implements the high-level plumbing façade (spec §4.I):
// init/add/commit/reset/status, composed from the object store, ref store
// and index packages, with structured logging via logrus (SPEC_FULL.md
// ambient stack) matching the server/client façades.
package repository

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/chr33s/git/config"
	"github.com/chr33s/git/index"
	"github.com/chr33s/git/odb"
	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/refs"
	"github.com/chr33s/git/storage"
	"github.com/chr33s/git/treebuild"
	"github.com/sirupsen/logrus"
)

// Errors surfaced by this package, per the taxonomy in spec §7.
var (
	ErrNotInitialized  = errors.New("repository: not initialized")
	ErrNonFastForward  = errors.New("repository: non-fast-forward update rejected")
	ErrDetachedHead    = errors.New("repository: HEAD is detached")
	ErrNothingToCommit = errors.New("repository: nothing to commit")
)

// Repository ties together the object store, ref store and staging index
// over a single Storage-backed .git directory.
type Repository struct {
	FS     storage.Storage
	Objects *odb.Store
	Refs    *refs.Store
	Config  config.Config
	Log     *logrus.Entry
}

const indexPath = "index"

// Open wraps an already-initialized .git directory (fs must already have had
// Init(repoName) called on it by the caller).
func Open(fs storage.Storage) (*Repository, error) {
	exists, err := fs.Exists(refs.HeadPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotInitialized
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, err
	}
	return &Repository{
		FS:      fs,
		Objects: odb.New(fs),
		Refs:    refs.New(fs),
		Config:  cfg,
		Log:     logrus.WithField("component", "repository"),
	}, nil
}

// Init materializes the standard .git layout (spec §4.I) and returns the
// opened repository.
func Init(fs storage.Storage, cfg config.Config) (*Repository, error) {
	if cfg.InitialBranch == "" {
		cfg.InitialBranch = "main"
	}

	dirs := []string{
		"hooks", "info",
		"objects/info", "objects/pack",
		"refs/heads", "refs/tags",
	}
	for _, d := range dirs {
		if err := fs.CreateDirectory(d); err != nil {
			return nil, fmt.Errorf("repository: init %s: %w", d, err)
		}
	}

	r := &Repository{
		FS:      fs,
		Objects: odb.New(fs),
		Refs:    refs.New(fs),
		Config:  cfg,
		Log:     logrus.WithField("component", "repository"),
	}

	if err := r.Refs.WriteSymbolicHead(refs.BranchRef(cfg.InitialBranch)); err != nil {
		return nil, err
	}
	if err := config.Save(fs, cfg); err != nil {
		return nil, err
	}
	if err := r.saveIndex(index.New()); err != nil {
		return nil, err
	}
	r.Log.WithField("branch", cfg.InitialBranch).Info("initialized repository")
	return r, nil
}

func (r *Repository) loadIndex() (*index.Index, error) {
	exists, err := r.FS.Exists(indexPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return index.New(), nil
	}
	data, err := r.FS.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}
	return index.Decode(bytes.NewReader(data))
}

func (r *Repository) saveIndex(idx *index.Index) error {
	var buf bytes.Buffer
	if err := index.Encode(&buf, idx); err != nil {
		return err
	}
	return r.FS.WriteFile(indexPath, buf.Bytes())
}

// Add writes data as a blob and upserts the working-index entry for path
// with mode 100644 and the current time (spec §4.I).
func (r *Repository) Add(path string, data []byte) error {
	oid, err := r.Objects.Write(objects.BlobKind, data)
	if err != nil {
		return err
	}
	idx, err := r.loadIndex()
	if err != nil {
		return err
	}
	idx.Add(index.Entry{
		Path:  path,
		OID:   oid,
		Mode:  objects.ModeFile,
		Size:  uint32(len(data)),
		Mtime: time.Now(),
	})
	return r.saveIndex(idx)
}

// currentBranch returns the branch ref HEAD symbolically names. It errors
// if HEAD is detached.
func (r *Repository) currentBranch() (string, error) {
	head, err := r.Refs.ReadHead()
	if err != nil {
		return "", err
	}
	if head.Kind != refs.HeadSymbolic {
		return "", ErrDetachedHead
	}
	return head.Target, nil
}

// headOID returns the OID HEAD currently resolves to, or "" if the branch
// HEAD names does not exist yet (a fresh, commit-less repository).
func (r *Repository) headOID() (objects.OID, error) {
	head, err := r.Refs.ReadHead()
	if err != nil {
		return "", err
	}
	return head.OID, nil
}

// Commit builds a tree from the index by grouping entries into subtrees,
// creates a commit whose parent is the current HEAD OID (if any), and
// advances the branch ref HEAD names (spec §4.I).
func (r *Repository) Commit(message string, author objects.Signature) (objects.OID, error) {
	idx, err := r.loadIndex()
	if err != nil {
		return "", err
	}

	treeOID, err := r.buildTreeFromIndex(idx)
	if err != nil {
		return "", err
	}

	branch, err := r.currentBranch()
	if err != nil {
		return "", err
	}
	parentOID, err := r.headOID()
	if err != nil {
		return "", err
	}

	c := &objects.Commit{
		Tree:      treeOID,
		Author:    author,
		Committer: author,
		Message:   message,
	}
	if !parentOID.Empty() {
		c.Parents = []objects.OID{parentOID}
	}

	oid, err := r.Objects.Write(objects.CommitKind, c.Encode())
	if err != nil {
		return "", err
	}
	if err := r.Refs.Write(branch, oid); err != nil {
		return "", err
	}
	r.Log.WithFields(logrus.Fields{"branch": branch, "commit": oid}).Info("committed")
	return oid, nil
}

// Reset resolves ref to an OID, optionally moves HEAD's branch ref to it,
// and rebuilds the index from that commit's tree (spec §4.I).
func (r *Repository) Reset(hard bool, ref string) error {
	oid, err := r.resolveRef(ref)
	if err != nil {
		return err
	}
	_, payload, err := r.Objects.Read(oid)
	if err != nil {
		return err
	}
	commit, err := objects.DecodeCommit(payload)
	if err != nil {
		return err
	}

	if hard {
		branch, err := r.currentBranch()
		if err != nil {
			return err
		}
		if err := r.Refs.Write(branch, oid); err != nil {
			return err
		}
	}

	idx := index.New()
	if err := idx.UpdateFromTree(commit.Tree, r.Objects); err != nil {
		return err
	}
	return r.saveIndex(idx)
}

// resolveRef resolves a branch/tag/remote ref name or a literal OID.
func (r *Repository) resolveRef(ref string) (objects.OID, error) {
	if oid, err := r.Refs.Read(ref); err == nil {
		return oid, nil
	}
	for _, candidate := range []string{refs.BranchRef(ref), refs.TagRef(ref)} {
		if oid, err := r.Refs.Read(candidate); err == nil {
			return oid, nil
		}
	}
	if objects.OID(ref).Valid() {
		return objects.OID(ref), nil
	}
	return "", fmt.Errorf("%w: %s", refs.ErrNotFound, ref)
}

// Status reports the simplified staged/modified/untracked sets described in
// spec §4.I/§9: staged is every index path when HEAD exists (a placeholder
// that intentionally does not diff index vs. HEAD tree entry-by-entry, per
// the resolved Open Question in DESIGN.md), modified and untracked are
// always empty (no real working tree backs this implementation).
type Status struct {
	Staged    []string
	Modified  []string
	Untracked []string
}

func (r *Repository) Status() (Status, error) {
	idx, err := r.loadIndex()
	if err != nil {
		return Status{}, err
	}
	headOID, err := r.headOID()
	if err != nil {
		return Status{}, err
	}
	var staged []string
	if !headOID.Empty() {
		for _, e := range idx.Entries {
			staged = append(staged, e.Path)
		}
	}
	return Status{Staged: staged}, nil
}

// loadIndexForTree rebuilds the working index from a tree's leaves, used to
// keep the index consistent with HEAD after a merge or rebase.
func (r *Repository) loadIndexForTree(treeOID objects.OID) (*index.Index, error) {
	idx := index.New()
	if err := idx.UpdateFromTree(treeOID, r.Objects); err != nil {
		return nil, err
	}
	return idx, nil
}

func (r *Repository) buildTreeFromIndex(idx *index.Index) (objects.OID, error) {
	leaves := make([]treebuild.Leaf, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		leaves = append(leaves, treebuild.Leaf{Path: e.Path, Mode: e.Mode, OID: e.OID})
	}
	return treebuild.Build(leaves, r.Objects)
}
