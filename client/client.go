// Package client implements the high-level porcelain façade (spec §4.I/§6
// CLI surface, §2 collaborator list): add/commit/log/branch/switch/merge/
// rebase/push/pull, plus the supplemented Status/Show/Tag operations
// (SPEC_FULL.md §[CLIENT FAÇADE]).
package client

import (
	"context"

	"github.com/chr33s/git/merge"
	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/refs"
	"github.com/chr33s/git/repository"
	"github.com/chr33s/git/transport"
	"github.com/sirupsen/logrus"
)

// Client wraps a Repository with the porcelain operations a CLI front end
// (out of scope per spec.md) would drive.
type Client struct {
	Repo   *repository.Repository
	Author objects.Signature
	Log    *logrus.Entry
}

// New wraps repo with porcelain operations, using author for commits this
// client creates.
func New(repo *repository.Repository, author objects.Signature) *Client {
	return &Client{Repo: repo, Author: author, Log: logrus.WithField("component", "client")}
}

// Add stages path with the given content.
func (c *Client) Add(path string, data []byte) error {
	return c.Repo.Add(path, data)
}

// Commit records a new commit from the current index.
func (c *Client) Commit(message string) (objects.OID, error) {
	return c.Repo.Commit(message, c.Author)
}

// LogEntry is one commit in Log's output, oldest-parent-first traversal in
// reverse (newest first, matching `git log`'s default order).
type LogEntry struct {
	OID    objects.OID
	Commit *objects.Commit
}

// Log walks first-parent history starting at ref (HEAD if empty).
func (c *Client) Log(ref string) ([]LogEntry, error) {
	start, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	var out []LogEntry
	cur := start
	for !cur.Empty() {
		_, payload, err := c.Repo.Objects.Read(cur)
		if err != nil {
			return nil, err
		}
		commit, err := objects.DecodeCommit(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, LogEntry{OID: cur, Commit: commit})
		if len(commit.Parents) == 0 {
			break
		}
		cur = commit.Parents[0]
	}
	return out, nil
}

func (c *Client) resolve(ref string) (objects.OID, error) {
	if ref == "" || ref == "HEAD" {
		head, err := c.Repo.Refs.ReadHead()
		if err != nil {
			return "", err
		}
		return head.OID, nil
	}
	if oid, err := c.Repo.Refs.Read(ref); err == nil {
		return oid, nil
	}
	for _, candidate := range []string{refs.BranchRef(ref), refs.TagRef(ref)} {
		if oid, err := c.Repo.Refs.Read(candidate); err == nil {
			return oid, nil
		}
	}
	return objects.OID(ref), nil
}

// Branch creates a branch ref named name pointing at HEAD's current commit.
func (c *Client) Branch(name string) error {
	head, err := c.resolve("HEAD")
	if err != nil {
		return err
	}
	return c.Repo.Refs.Write(refs.BranchRef(name), head)
}

// Switch moves HEAD's symbolic target to branch (must already exist).
func (c *Client) Switch(branch string) error {
	if _, err := c.Repo.Refs.Read(refs.BranchRef(branch)); err != nil {
		return err
	}
	if err := c.Repo.Refs.WriteSymbolicHead(refs.BranchRef(branch)); err != nil {
		return err
	}
	return c.Repo.Reset(false, branch)
}

// Merge merges otherRef into the current branch with the recursive
// strategy.
func (c *Client) Merge(otherRef string) (objects.OID, error) {
	return c.Repo.Merge(otherRef, merge.Recursive, c.Author)
}

// Rebase replays the current branch onto onto.
func (c *Client) Rebase(onto string) (objects.OID, error) {
	return c.Repo.Rebase(onto, c.Author)
}

// Push pushes branch to remote/branch.
func (c *Client) Push(ctx context.Context, remoteURL, remoteName, branch string, force bool) error {
	t := transport.New(remoteURL)
	return c.Repo.Push(ctx, remoteName, branch, force, t)
}

// Pull fetches remoteName then merges its newly-fetched tracking ref into the
// current branch with Merge, which always records a two-parent merge commit
// (no fast-forward).
func (c *Client) Pull(ctx context.Context, remoteURL, remoteName, branch string) (objects.OID, error) {
	t := transport.New(remoteURL)
	if err := c.Repo.Fetch(ctx, remoteName, t); err != nil {
		return "", err
	}
	return c.Merge(refs.RemoteRef(remoteName, branch))
}

// Status reports the façade-level simplified staged/modified/untracked sets
// (spec §4.I/§9).
func (c *Client) Status() (repository.Status, error) {
	return c.Repo.Status()
}

// Show reads back any object's decoded kind and raw payload by OID
// (supplemented operation, SPEC_FULL.md §[CLIENT FAÇADE]).
func (c *Client) Show(oid objects.OID) (objects.Kind, []byte, error) {
	return c.Repo.Objects.Read(oid)
}

// Tag creates a lightweight tag: a ref under refs/tags/ pointing directly at
// oid (supplemented operation, SPEC_FULL.md §[CLIENT FAÇADE]).
func (c *Client) Tag(name string, oid objects.OID) error {
	return c.Repo.Refs.Write(refs.TagRef(name), oid)
}

// Tags lists every lightweight/annotated tag ref.
func (c *Client) Tags() ([]refs.Ref, error) {
	all, err := c.Repo.Refs.List()
	if err != nil {
		return nil, err
	}
	var out []refs.Ref
	for _, ref := range all {
		if isTagName(ref.Name) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func isTagName(name string) bool {
	const prefix = "refs/tags/"
	return len(name) > len(prefix) && name[:len(prefix)] == prefix
}

// Clone clones remoteURL into the already-initialized (empty) repository
// this client wraps.
func (c *Client) Clone(ctx context.Context, remoteURL string) error {
	t := transport.New(remoteURL)
	return c.Repo.Clone(ctx, t)
}
