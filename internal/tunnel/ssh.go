// Package tunnel routes API traffic through an SSH jump host when the
// marketplace gateway is not directly reachable.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/deevus/carbon-tui/internal/logging"
)

const defaultTimeout = 10 * time.Second

// ErrNoFingerprint is returned when a tunnel is configured without a pinned
// host key.
var ErrNoFingerprint = errors.New("host_key_fingerprint is required for SSH")

// Config describes the jump host.
type Config struct {
	Host               string
	Port               int
	User               string
	Signer             ssh.Signer
	HostKeyFingerprint string
	Timeout            time.Duration
}

// Dialer opens TCP connections on the far side of an SSH connection. The SSH
// connection is established on first use and re-established if it drops.
type Dialer struct {
	cfg  Config
	addr string
	log  *logrus.Entry

	mu     sync.Mutex
	client *ssh.Client
}

// New validates cfg and returns a Dialer. No connection is made yet.
func New(cfg Config, log logrus.FieldLogger) (*Dialer, error) {
	if cfg.HostKeyFingerprint == "" {
		return nil, ErrNoFingerprint
	}
	if cfg.Signer == nil {
		return nil, errors.New("ssh private key is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Dialer{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		log:  logging.Component(log, "tunnel").WithField("host", cfg.Host),
	}, nil
}

// LoadSigner reads an unencrypted private key file.
func LoadSigner(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SSH private key %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH private key %s: %w", path, err)
	}
	return signer, nil
}

// DialContext matches net.Dialer.DialContext so it can replace an HTTP
// transport's dialer.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := client.DialContext(ctx, network, addr)
	if err == nil {
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// The SSH connection may have gone away underneath us; retry once.
	d.log.WithError(err).Info("reconnecting")
	d.reset(client)
	client, err = d.connect(ctx)
	if err != nil {
		return nil, err
	}
	return client.DialContext(ctx, network, addr)
}

// Close tears down the SSH connection.
func (d *Dialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func (d *Dialer) connect(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}

	cfg := &ssh.ClientConfig{
		User:            d.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(d.cfg.Signer)},
		HostKeyCallback: PinnedHostKey(d.cfg.HostKeyFingerprint),
		Timeout:         d.cfg.Timeout,
	}
	client, err := dial(ctx, d.addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh %s: %w", d.addr, err)
	}
	d.log.Debug("connected")
	d.client = client
	return client, nil
}

func (d *Dialer) reset(stale *ssh.Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == stale {
		_ = d.client.Close()
		d.client = nil
	}
}

func dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	nd := net.Dialer{Timeout: cfg.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// PinnedHostKey accepts only a host key whose SHA256 fingerprint matches.
func PinnedHostKey(fingerprint string) ssh.HostKeyCallback {
	return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
		got := ssh.FingerprintSHA256(key)
		if got != fingerprint {
			return fmt.Errorf("host key mismatch for %s: got %s, want %s", hostname, got, fingerprint)
		}
		return nil
	}
}

// ScanHostKey connects to an SSH server and returns its host key fingerprint.
// Authentication is not attempted past the handshake.
func ScanHostKey(ctx context.Context, host string, port int) (string, error) {
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var fingerprint string
	cfg := &ssh.ClientConfig{
		User: "probe",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			fingerprint = ssh.FingerprintSHA256(key)
			return nil
		},
		Timeout: 5 * time.Second,
	}
	client, err := dial(ctx, addr, cfg)
	if client != nil {
		client.Close()
	}
	if fingerprint != "" {
		return fingerprint, nil
	}
	return "", fmt.Errorf("could not connect to %s: %w", addr, err)
}
