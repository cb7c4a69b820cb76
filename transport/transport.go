// Package transport defines the client side of the smart-HTTP wire protocol
// (spec §4.J/§6) used by clone/fetch/push in the repository façade.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/pktline"
	"github.com/sirupsen/logrus"
)

// ErrProtocol is returned for malformed service responses.
var ErrProtocol = errors.New("transport: protocol error")

// RefAdvertisement is the result of discovering a remote's refs.
type RefAdvertisement struct {
	Capabilities []string
	Head         objects.OID
	Refs         map[string]objects.OID
}

// Client speaks the smart-HTTP protocol against a single remote URL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *logrus.Entry
}

// New returns a Client for baseURL (e.g. "https://example.com/repo.git").
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    http.DefaultClient,
		Log:     logrus.WithField("component", "transport-client"),
	}
}

// DiscoverRefs performs GET /info/refs?service=<svc> (spec §4.J).
func (c *Client) DiscoverRefs(ctx context.Context, service string) (*RefAdvertisement, error) {
	url := fmt.Sprintf("%s/info/refs?service=%s", c.BaseURL, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: discover-refs returned %d", ErrProtocol, resp.StatusCode)
	}

	pr := pktline.NewReader(resp.Body)

	first, err := pr.Next()
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(first.Payload, []byte("# service=")) {
		return nil, fmt.Errorf("%w: missing service header", ErrProtocol)
	}
	if _, err := pr.Next(); err != nil { // flush
		return nil, err
	}

	ad := &RefAdvertisement{Refs: map[string]objects.OID{}}
	first2 := true
	for {
		pkt, err := pr.Next()
		if err != nil {
			return nil, err
		}
		if pkt.Flush {
			break
		}
		line := strings.TrimSuffix(string(pkt.Payload), "\n")
		if first2 {
			if nul := strings.IndexByte(line, 0); nul >= 0 {
				ad.Capabilities = strings.Fields(line[nul+1:])
				line = line[:nul]
			}
			first2 = false
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		oid, name := objects.OID(parts[0]), parts[1]
		if oid == objects.ZeroOID {
			continue
		}
		ad.Refs[name] = oid
		if name == "HEAD" {
			ad.Head = oid
		}
	}
	return ad, nil
}

// FetchPack requests a pack for wants/haves via POST /git-upload-pack and
// returns the raw pack bytes found inside the side-band-64k data channel
// (spec §4.J).
func (c *Client) FetchPack(ctx context.Context, wants, haves []objects.OID) ([]byte, error) {
	var body bytes.Buffer
	for i, w := range wants {
		line := fmt.Sprintf("want %s", w)
		if i == 0 {
			line += " multi_ack_detailed side-band-64k thin-pack ofs-delta"
		}
		pktline.EncodeString(&body, line+"\n")
	}
	for _, h := range haves {
		pktline.EncodeString(&body, fmt.Sprintf("have %s\n", h))
	}
	pktline.EncodeString(&body, "done\n")

	url := c.BaseURL + "/git-upload-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upload-pack returned %d", ErrProtocol, resp.StatusCode)
	}

	pr := pktline.NewReader(resp.Body)
	if pkt, err := pr.Next(); err != nil || !bytes.HasPrefix(pkt.Payload, []byte("NAK")) {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: expected NAK", ErrProtocol)
	}

	var pack bytes.Buffer
	for {
		pkt, err := pr.Next()
		if err != nil {
			return nil, err
		}
		if pkt.Flush {
			break
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		channel, data := pkt.Payload[0], pkt.Payload[1:]
		switch channel {
		case pktline.ChannelData:
			pack.Write(data)
		case pktline.ChannelProgress:
			c.Log.Debug(string(data))
		case pktline.ChannelError:
			return nil, fmt.Errorf("%w: %s", ErrProtocol, data)
		}
	}
	return pack.Bytes(), nil
}

// RefUpdate is one ref-update command sent to receive-pack.
type RefUpdate struct {
	Old objects.OID
	New objects.OID
	Ref string
}

// SendPack posts updates and pack to POST /git-receive-pack (spec §4.J).
func (c *Client) SendPack(ctx context.Context, updates []RefUpdate, pack []byte) error {
	var body bytes.Buffer
	for _, u := range updates {
		old, new := u.Old, u.New
		if old == "" {
			old = objects.ZeroOID
		}
		if new == "" {
			new = objects.ZeroOID
		}
		pktline.EncodeString(&body, fmt.Sprintf("%s %s %s\x00report-status\n", old, new, u.Ref))
	}
	pktline.Flush(&body)
	body.Write(pack)

	url := c.BaseURL + "/git-receive-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-git-receive-pack-request")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: receive-pack returned %d: %s", ErrProtocol, resp.StatusCode, respBody)
	}

	lines, err := pktline.ReadLines(bytes.NewReader(respBody))
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line != "unpack ok" && !strings.HasPrefix(line, "ok ") {
			return fmt.Errorf("%w: %s", ErrProtocol, line)
		}
	}
	return nil
}
