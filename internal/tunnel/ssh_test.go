package tunnel_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/deevus/carbon-tui/internal/tunnel"
)

func newSigner(t *testing.T) (ssh.Signer, ed25519.PrivateKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer, priv
}

// startServer runs an SSH server that echoes every direct-tcpip channel.
func startServer(t *testing.T, hostKey ssh.Signer, clientKey ssh.PublicKey) (string, int) {
	t.Helper()
	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if clientKey != nil && string(key.Marshal()) == string(clientKey.Marshal()) {
				return &ssh.Permissions{}, nil
			}
			return nil, assert.AnError
		},
	}
	cfg.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
				if err != nil {
					conn.Close()
					return
				}
				go ssh.DiscardRequests(reqs)
				for nc := range chans {
					if nc.ChannelType() != "direct-tcpip" {
						_ = nc.Reject(ssh.UnknownChannelType, "unsupported")
						continue
					}
					ch, creqs, err := nc.Accept()
					if err != nil {
						continue
					}
					go ssh.DiscardRequests(creqs)
					go func() {
						defer ch.Close()
						_, _ = io.Copy(ch, ch)
					}()
				}
			}()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestScanHostKey(t *testing.T) {
	hostKey, _ := newSigner(t)
	host, port := startServer(t, hostKey, nil)

	fp, err := tunnel.ScanHostKey(context.Background(), host, port)
	require.NoError(t, err)
	assert.Equal(t, ssh.FingerprintSHA256(hostKey.PublicKey()), fp)
}

func TestScanHostKey_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	_, err = tunnel.ScanHostKey(context.Background(), "127.0.0.1", addr.Port)
	assert.Error(t, err)
}

func TestDialer_TunnelsConnections(t *testing.T) {
	hostKey, _ := newSigner(t)
	clientKey, _ := newSigner(t)
	host, port := startServer(t, hostKey, clientKey.PublicKey())

	d, err := tunnel.New(tunnel.Config{
		Host:               host,
		Port:               port,
		User:               "carbon",
		Signer:             clientKey,
		HostKeyFingerprint: ssh.FingerprintSHA256(hostKey.PublicKey()),
	}, nil)
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := d.DialContext(ctx, "tcp", "gateway.internal:8080")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestDialer_RejectsWrongHostKey(t *testing.T) {
	hostKey, _ := newSigner(t)
	otherKey, _ := newSigner(t)
	clientKey, _ := newSigner(t)
	host, port := startServer(t, hostKey, clientKey.PublicKey())

	d, err := tunnel.New(tunnel.Config{
		Host:               host,
		Port:               port,
		User:               "carbon",
		Signer:             clientKey,
		HostKeyFingerprint: ssh.FingerprintSHA256(otherKey.PublicKey()),
	}, nil)
	require.NoError(t, err)
	defer d.Close()

	_, err = d.DialContext(context.Background(), "tcp", "gateway.internal:8080")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key mismatch")
}

func TestNew_RequiresFingerprint(t *testing.T) {
	signer, _ := newSigner(t)
	_, err := tunnel.New(tunnel.Config{Host: "h", Signer: signer}, nil)
	assert.ErrorIs(t, err, tunnel.ErrNoFingerprint)
}

func TestLoadSigner(t *testing.T) {
	signer, priv := newSigner(t)
	block, err := ssh.MarshalPrivateKey(priv, "test")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	loaded, err := tunnel.LoadSigner(path)
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey().Marshal(), loaded.PublicKey().Marshal())

	_, err = tunnel.LoadSigner(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
