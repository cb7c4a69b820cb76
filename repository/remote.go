package repository

import (
	"bytes"
	"context"
	"fmt"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/packfile"
	"github.com/chr33s/git/refs"
	"github.com/chr33s/git/transport"
	"github.com/dustin/go-humanize"
)

// RemoteTransport is the subset of transport.Client the repository façade
// needs for clone/fetch/push (spec §4.I).
type RemoteTransport interface {
	DiscoverRefs(ctx context.Context, service string) (*transport.RefAdvertisement, error)
	FetchPack(ctx context.Context, wants, haves []objects.OID) ([]byte, error)
	SendPack(ctx context.Context, updates []transport.RefUpdate, pack []byte) error
}

// Clone discovers remote's refs, fetches a pack rooted at its HEAD, stores
// every object, and writes all advertised refs (spec §4.I).
func (r *Repository) Clone(ctx context.Context, remote RemoteTransport) error {
	ad, err := remote.DiscoverRefs(ctx, "git-upload-pack")
	if err != nil {
		return err
	}
	if ad.Head.Empty() {
		return nil // empty remote repository
	}

	pack, err := remote.FetchPack(ctx, []objects.OID{ad.Head}, nil)
	if err != nil {
		return err
	}
	if err := r.ingestPack(ctx, pack); err != nil {
		return err
	}

	var headBranch string
	for name, oid := range ad.Refs {
		if name == "HEAD" {
			continue
		}
		if err := r.Refs.Write(name, oid); err != nil {
			return err
		}
		if oid == ad.Head && headBranch == "" {
			headBranch = name
		}
	}
	if headBranch != "" {
		if err := r.Refs.WriteSymbolicHead(headBranch); err != nil {
			return err
		}
	} else {
		if err := r.Refs.WriteDetachedHead(ad.Head); err != nil {
			return err
		}
	}
	r.Log.WithField("pack_size", humanize.Bytes(uint64(len(pack)))).Info("cloned")
	return nil
}

func (r *Repository) ingestPack(ctx context.Context, pack []byte) error {
	parser := packfile.NewParser(r.Objects)
	_, err := parser.Parse(ctx, pack)
	return err
}

// Fetch requests objects for every remote ref whose OID differs from our
// mirrored copy (excluding tags), then writes refs/remotes/<remote>/<branch>
// for each received head (spec §4.I).
func (r *Repository) Fetch(ctx context.Context, remoteName string, remote RemoteTransport) error {
	ad, err := remote.DiscoverRefs(ctx, "git-upload-pack")
	if err != nil {
		return err
	}

	existing, err := r.Refs.List()
	if err != nil {
		return err
	}
	mirrored := map[string]objects.OID{}
	var haves []objects.OID
	for _, ref := range existing {
		mirrored[ref.Name] = ref.OID
		haves = append(haves, ref.OID)
	}

	var wants []objects.OID
	toUpdate := map[string]objects.OID{}
	for name, oid := range ad.Refs {
		if name == "HEAD" || isTagRef(name) {
			continue
		}
		if mirrored[refs.RemoteRef(remoteName, branchOf(name))] == oid {
			continue
		}
		wants = append(wants, oid)
		toUpdate[branchOf(name)] = oid
	}
	if len(wants) == 0 {
		return nil
	}

	pack, err := remote.FetchPack(ctx, wants, haves)
	if err != nil {
		return err
	}
	if err := r.ingestPack(ctx, pack); err != nil {
		return err
	}

	for branch, oid := range toUpdate {
		if err := r.Refs.Write(refs.RemoteRef(remoteName, branch), oid); err != nil {
			return err
		}
	}
	r.Log.WithField("remote", remoteName).Info("fetched")
	return nil
}

func isTagRef(name string) bool {
	return len(name) >= len("refs/tags/") && name[:len("refs/tags/")] == "refs/tags/"
}

func branchOf(ref string) string {
	const prefix = "refs/heads/"
	if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
		return ref[len(prefix):]
	}
	return ref
}

// Push walks the local branch's transitive closure, builds a pack, and
// submits a ref-update command. If old disagrees with the remote's
// advertised value and force is false, it fails with ErrNonFastForward
// (spec §4.I).
func (r *Repository) Push(ctx context.Context, remoteName, branch string, force bool, remote RemoteTransport) error {
	localOID, err := r.Refs.Read(refs.BranchRef(branch))
	if err != nil {
		return err
	}

	ad, err := remote.DiscoverRefs(ctx, "git-receive-pack")
	if err != nil {
		return err
	}
	remoteOID := ad.Refs[refs.BranchRef(branch)]

	trackingOID, _ := r.Refs.Read(refs.RemoteRef(remoteName, branch))
	old := trackingOID
	if old.Empty() {
		old = objects.ZeroOID
	}
	if !force && remoteOID != "" && remoteOID != trackingOID {
		return fmt.Errorf("%w: %s", ErrNonFastForward, branch)
	}

	haveSet := map[objects.OID]bool{}
	if remoteOID != "" {
		haveSet[remoteOID] = true
	}
	closure, err := r.ObjectClosure([]objects.OID{localOID}, haveSet)
	if err != nil {
		return err
	}

	var pack bytes.Buffer
	if err := packfile.Write(&pack, r.Objects, closure); err != nil {
		return err
	}

	update := transport.RefUpdate{Old: remoteOID, New: localOID, Ref: refs.BranchRef(branch)}
	if update.Old == "" {
		update.Old = objects.ZeroOID
	}
	if err := remote.SendPack(ctx, []transport.RefUpdate{update}, pack.Bytes()); err != nil {
		return err
	}

	if err := r.Refs.Write(refs.RemoteRef(remoteName, branch), localOID); err != nil {
		return err
	}
	r.Log.WithFields(map[string]interface{}{"remote": remoteName, "branch": branch}).Info("pushed")
	return nil
}
