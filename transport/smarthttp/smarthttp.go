// Package smarthttp implements the smart-HTTP server side of the wire
// protocol (spec §4.J/§6): service advertisement, upload-pack and
// receive-pack, routed with gorilla/mux and serialized per repository (spec
// §5: "a set of per-repository singleton actors").
package smarthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/packfile"
	"github.com/chr33s/git/pktline"
	"github.com/chr33s/git/refs"
	"github.com/chr33s/git/repository"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// statusClientClosedRequest is nginx's non-standard "Client Closed Request"
// code; net/http has no named constant for it. A handler returns it when it
// aborts in response to r.Context() cancellation (spec §5).
const statusClientClosedRequest = 499

// writeAborted reports a context-canceled request. It is called before any
// ref is updated; loose objects already written by the pack parser are kept.
func writeAborted(w http.ResponseWriter, err error) {
	w.WriteHeader(statusClientClosedRequest)
	fmt.Fprintln(w, err)
}

// Capabilities advertised by this server (spec §4.J).
const (
	uploadPackCaps  = "multi_ack_detailed side-band-64k thin-pack ofs-delta"
	receivePackCaps = "report-status delete-refs ofs-delta"
)

// RepoProvider opens (or creates) the named repository on demand.
type RepoProvider func(name string) (*repository.Repository, error)

// Server dispatches the smart-HTTP endpoints for a set of repositories, one
// mutex-serialized actor per repository name (spec §5).
type Server struct {
	Provider RepoProvider
	Log      *logrus.Entry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewServer returns a Server wired to provider and registers its routes on
// a fresh gorilla/mux router.
func NewServer(provider RepoProvider) *Server {
	return &Server{
		Provider: provider,
		Log:      logrus.WithField("component", "smarthttp-server"),
		locks:    map[string]*sync.Mutex{},
	}
}

// Router builds the gorilla/mux router for this server's endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/{repo:.+}/HEAD", s.handleHead).Methods(http.MethodGet)
	r.HandleFunc("/{repo:.+}/info/refs", s.handleInfoRefs).Methods(http.MethodGet)
	r.HandleFunc("/{repo:.+}/git-upload-pack", s.handleUploadPack).Methods(http.MethodPost)
	r.HandleFunc("/{repo:.+}/git-receive-pack", s.handleReceivePack).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(notFound)
	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
}

func repoName(r *http.Request) string {
	name := mux.Vars(r)["repo"]
	return strings.TrimSuffix(name, ".git")
}

// lockFor returns (creating if needed) the serialization mutex for a
// repository name.
func (s *Server) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Server) repo(name string) (*repository.Repository, error) {
	return s.Provider(name)
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	name := repoName(r)
	repo, err := s.repo(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	head, err := repo.Refs.ReadHead()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	if head.Kind == refs.HeadSymbolic {
		fmt.Fprintf(w, "ref: %s\n", head.Target)
		return
	}
	fmt.Fprintf(w, "%s\n", head.OID)
}

func (s *Server) handleInfoRefs(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	if service != "git-upload-pack" && service != "git-receive-pack" {
		http.Error(w, "unknown service", http.StatusBadRequest)
		return
	}

	name := repoName(r)
	repo, err := s.repo(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	refList, err := repo.Refs.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	head, _ := repo.Refs.ReadHead()

	caps := uploadPackCaps
	if service == "git-receive-pack" {
		caps = receivePackCaps
	}

	w.Header().Set("Content-Type", "application/x-"+service+"-advertisement")
	w.WriteHeader(http.StatusOK)

	pktline.EncodeString(w, fmt.Sprintf("# service=%s\n", service))
	pktline.Flush(w)

	entries := orderedRefs(head, refList)
	if len(entries) == 0 {
		if service == "git-receive-pack" {
			pktline.EncodeString(w, fmt.Sprintf("%s capabilities^{}\x00%s\n", objects.ZeroOID, caps))
		}
		pktline.Flush(w)
		return
	}

	first := entries[0]
	pktline.EncodeString(w, fmt.Sprintf("%s %s\x00%s\n", first.OID, first.Name, caps))
	for _, e := range entries[1:] {
		pktline.EncodeString(w, fmt.Sprintf("%s %s\n", e.OID, e.Name))
	}
	pktline.Flush(w)
}

func orderedRefs(head refs.Head, list []refs.Ref) []refs.Ref {
	var out []refs.Ref
	if head.Kind == refs.HeadSymbolic && !head.OID.Empty() {
		out = append(out, refs.Ref{Name: "HEAD", OID: head.OID})
	} else if head.Kind == refs.HeadDetached && !head.OID.Empty() {
		out = append(out, refs.Ref{Name: "HEAD", OID: head.OID})
	}
	out = append(out, list...)
	return out
}

func (s *Server) handleUploadPack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := repoName(r)
	repo, err := s.repo(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	lines, err := readPktLines(ctx, r.Body)
	if err != nil {
		if ctx.Err() != nil {
			writeAborted(w, ctx.Err())
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var wants, haves []objects.OID
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "want":
			wants = append(wants, objects.OID(fields[1]))
		case "have":
			haves = append(haves, objects.OID(fields[1]))
		}
	}

	haveSet := map[objects.OID]bool{}
	for _, h := range haves {
		haveSet[h] = true
	}

	if ctx.Err() != nil {
		writeAborted(w, ctx.Err())
		return
	}

	closure, err := repo.ObjectClosure(wants, haveSet)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if ctx.Err() != nil {
		writeAborted(w, ctx.Err())
		return
	}

	var pack bytes.Buffer
	if err := packfile.Write(&pack, repo.Objects, closure); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	w.WriteHeader(http.StatusOK)
	pktline.EncodeString(w, "NAK\n")
	pktline.WriteSideband(w, pktline.ChannelData, pack.Bytes())
	pktline.Flush(w)
}

// readPktLines reads data packets until a flush, polling ctx between each
// read (spec §5) so a canceled request stops scanning an abandoned body
// instead of running to completion.
func readPktLines(ctx context.Context, r io.Reader) ([]string, error) {
	pr := pktline.NewReader(r)
	var out []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkt, err := pr.Next()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		if pkt.Flush {
			return out, nil
		}
		if pkt.Delim {
			continue
		}
		out = append(out, strings.TrimSuffix(string(pkt.Payload), "\n"))
	}
}

func (s *Server) handleReceivePack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := repoName(r)
	repo, err := s.repo(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	type command struct {
		old, new objects.OID
		ref      string
	}

	pr := pktline.NewReader(r.Body)
	var commands []command
	for {
		if err := ctx.Err(); err != nil {
			writeAborted(w, err)
			return
		}
		pkt, err := pr.Next()
		if err != nil {
			writeProtocolError(w, err)
			return
		}
		if pkt.Flush {
			break
		}
		line := string(pkt.Payload)
		if nul := strings.IndexByte(line, 0); nul >= 0 {
			line = line[:nul]
		}
		line = strings.TrimSuffix(line, "\n")
		fields := strings.Fields(line)
		if len(fields) != 3 {
			writeProtocolError(w, errors.New("malformed ref-update command"))
			return
		}
		commands = append(commands, command{old: objects.OID(fields[0]), new: objects.OID(fields[1]), ref: fields[2]})
	}

	packData, err := readAllContext(ctx, r.Body)
	if err != nil {
		if ctx.Err() != nil {
			writeAborted(w, ctx.Err())
			return
		}
		writeProtocolError(w, err)
		return
	}

	if len(packData) > 0 {
		parser := packfile.NewParser(repo.Objects)
		if _, err := parser.Parse(ctx, packData); err != nil {
			if ctx.Err() != nil {
				writeAborted(w, ctx.Err())
				return
			}
			writeProtocolError(w, err)
			return
		}
	}

	if err := ctx.Err(); err != nil {
		writeAborted(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-git-receive-pack-result")
	w.WriteHeader(http.StatusOK)
	pktline.EncodeString(w, "unpack ok\n")
	for _, c := range commands {
		var updateErr error
		if c.new == objects.ZeroOID {
			updateErr = repo.Refs.Delete(c.ref)
		} else {
			updateErr = repo.Refs.Write(c.ref, c.new)
		}
		if updateErr != nil {
			pktline.EncodeString(w, fmt.Sprintf("ng %s %s\n", c.ref, updateErr))
			continue
		}
		pktline.EncodeString(w, fmt.Sprintf("ok %s\n", c.ref))
	}
	pktline.Flush(w)
}

// readAllContext reads r to completion in bounded chunks, polling ctx
// between reads (spec §5) so an abandoned upload stops promptly instead of
// buffering to EOF.
func readAllContext(ctx context.Context, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if err == io.EOF {
				return buf.Bytes(), nil
			}
			return nil, err
		}
	}
}

func writeProtocolError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/x-git-receive-pack-result")
	w.WriteHeader(http.StatusBadRequest)
	pktline.EncodeString(w, err.Error()+"\n")
	pktline.Flush(w)
}
