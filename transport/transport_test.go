package transport_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/pktline"
	"github.com/chr33s/git/transport"
	"github.com/stretchr/testify/require"
)

func TestDiscoverRefsParsesCapabilitiesAndRefs(t *testing.T) {
	oid := objects.OID("0123456789abcdef0123456789abcdef01234567")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pktline.EncodeString(w, "# service=git-upload-pack\n")
		pktline.Flush(w)
		pktline.EncodeString(w, string(oid)+" HEAD\x00multi_ack thin-pack\n")
		pktline.EncodeString(w, string(oid)+" refs/heads/main\n")
		pktline.Flush(w)
	}))
	defer ts.Close()

	client := transport.New(ts.URL)
	ad, err := client.DiscoverRefs(context.Background(), "git-upload-pack")
	require.NoError(t, err)
	require.Equal(t, oid, ad.Head)
	require.Equal(t, oid, ad.Refs["refs/heads/main"])
	require.Contains(t, ad.Capabilities, "multi_ack")
}

func TestDiscoverRefsRejectsNonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := transport.New(ts.URL)
	_, err := client.DiscoverRefs(context.Background(), "git-upload-pack")
	require.ErrorIs(t, err, transport.ErrProtocol)
}

func TestFetchPackExtractsSidebandDataChannel(t *testing.T) {
	packBytes := []byte("PACK-ish-payload-bytes")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pktline.EncodeString(w, "NAK\n")
		pktline.WriteSideband(w, pktline.ChannelData, packBytes)
		pktline.Flush(w)
	}))
	defer ts.Close()

	client := transport.New(ts.URL)
	pack, err := client.FetchPack(context.Background(), []objects.OID{"0123456789abcdef0123456789abcdef01234567"}, nil)
	require.NoError(t, err)
	require.Equal(t, packBytes, pack)
}

func TestFetchPackSurfacesSidebandErrorChannel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pktline.EncodeString(w, "NAK\n")
		pktline.WriteSideband(w, pktline.ChannelError, []byte("remote exploded"))
		pktline.Flush(w)
	}))
	defer ts.Close()

	client := transport.New(ts.URL)
	_, err := client.FetchPack(context.Background(), []objects.OID{"0123456789abcdef0123456789abcdef01234567"}, nil)
	require.ErrorIs(t, err, transport.ErrProtocol)
}

func TestSendPackRejectsNonOkReportStatusLine(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		pktline.EncodeString(&buf, "unpack ok\n")
		pktline.EncodeString(&buf, "ng refs/heads/main non-fast-forward\n")
		pktline.Flush(&buf)
		w.Write(buf.Bytes())
	}))
	defer ts.Close()

	client := transport.New(ts.URL)
	err := client.SendPack(context.Background(), []transport.RefUpdate{
		{Old: "0123456789abcdef0123456789abcdef01234567", New: "1123456789abcdef0123456789abcdef01234567", Ref: "refs/heads/main"},
	}, []byte("pack bytes"))
	require.ErrorIs(t, err, transport.ErrProtocol)
}

func TestSendPackAcceptsAllOkReportStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		pktline.EncodeString(&buf, "unpack ok\n")
		pktline.EncodeString(&buf, "ok refs/heads/main\n")
		pktline.Flush(&buf)
		w.Write(buf.Bytes())
	}))
	defer ts.Close()

	client := transport.New(ts.URL)
	err := client.SendPack(context.Background(), []transport.RefUpdate{
		{New: "1123456789abcdef0123456789abcdef01234567", Ref: "refs/heads/main"},
	}, []byte("pack bytes"))
	require.NoError(t, err)
}
