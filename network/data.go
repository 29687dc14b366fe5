// Package network carries sealed datagrams between a snapshot
// publisher and the viewers subscribed to it.
package network

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	KEY_BYTES = 16
	MTU       = 1024
	// How many subscriber sessions a publisher remembers nonces for.
	MAX_SESSIONS = 1024
)

var (
	ErrShortWrite = errors.New("short write")
	ErrNoPeer     = errors.New("no subscriber yet")
)

type Conn struct {
	c      *net.UDPConn
	dir    uint8   // our end, used to tag nonces we seal
	sid    [3]byte // random per subscriber, so a restart doesn't reuse nonces
	key    []byte
	aead   cipher.AEAD
	dialed bool

	mu     sync.Mutex
	ln, rn nonce
	seen   map[[3]byte]nonce // publisher only: last nonce per subscriber session
	remote *net.UDPAddr
}

func initAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher from key: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM AEAD: %w", err)
	}

	return gcm, nil
}

// NewSubscriber dials the publisher at addr using the key it printed.
func NewSubscriber(addr, key string) (*Conn, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("couldn't resolve udp address %q: %w", addr, err)
	}

	dkey, err := base64.StdEncoding.DecodeString(key + "==")
	if err != nil {
		return nil, fmt.Errorf("couldn't base64 decode key: %w", err)
	}

	aead, err := initAEAD(dkey)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize AEAD: %w", err)
	}

	var sid [3]byte
	if _, err := rand.Read(sid[:]); err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	c, err := net.DialUDP("udp", nil, a)
	if err != nil {
		return nil, fmt.Errorf("couldn't dial %q: %w", addr, err)
	}

	return &Conn{
		c:      c,
		dir:    SUBSCRIBER,
		sid:    sid,
		key:    dkey,
		aead:   aead,
		dialed: true,
		remote: a,
	}, nil
}

func parsePortRange(prng string) ([2]uint16, error) {
	var pr [2]uint16
	parts := strings.SplitN(prng, ":", 2)
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	for i, ns := range parts {
		n, err := strconv.ParseUint(ns, 10, 16)
		if err != nil {
			return pr, fmt.Errorf("couldn't convert port range %q (component: %s): %w", prng, ns, err)
		}
		pr[i] = uint16(n)
	}

	if pr[0] > pr[1] {
		return pr, fmt.Errorf("backwards port range %q - must have lower number first", prng)
	}
	return pr, nil
}

// NewPublisher takes a host and a port range "n:m" and returns a Conn
// listening to a port in that range or an error if it can't listen. A
// fresh key is generated for every publisher.
func NewPublisher(host, prng string) (*Conn, error) {
	pr, err := parsePortRange(prng)
	if err != nil {
		return nil, err
	}

	var ip net.IP
	if host != "" {
		if ip = net.ParseIP(host); ip == nil {
			return nil, fmt.Errorf("invalid listen address %q", host)
		}
	}

	key := make([]byte, KEY_BYTES)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	aead, err := initAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize AEAD: %w", err)
	}

	pc := &Conn{
		dir:  PUBLISHER,
		key:  key,
		aead: aead,
		seen: make(map[[3]byte]nonce),
	}

	ua := &net.UDPAddr{IP: ip}
	for i := int(pr[0]); i <= int(pr[1]); i++ {
		ua.Port = i
		if c, err := net.ListenUDP("udp", ua); err == nil {
			pc.c = c
			return pc, nil
		}
	}

	return nil, fmt.Errorf("couldn't bind a port in the port range %q", prng)
}

func (pc *Conn) Base64Key() string {
	// For compatibility with Mosh, we trim the == here
	return strings.TrimRight(base64.StdEncoding.EncodeToString(pc.key), "==")
}

func (pc *Conn) LocalPort() int {
	return pc.c.LocalAddr().(*net.UDPAddr).Port
}

// Peer returns the address datagrams are sent to, or nil if a
// publisher hasn't heard from anyone yet.
func (pc *Conn) Peer() net.Addr {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.remote == nil {
		return nil
	}
	return pc.remote
}

// Send seals msg and sends it to the peer. msg plus the sealing
// overhead must fit in MTU.
func (pc *Conn) Send(msg []byte) error {
	if l := len(msg) + NONCE_BYTES + pc.aead.Overhead(); l > MTU {
		return fmt.Errorf("%d byte datagram exceeds mtu %d", l, MTU)
	}

	pc.mu.Lock()
	remote := pc.remote
	if remote == nil {
		pc.mu.Unlock()
		return ErrNoPeer
	}
	m := pc.seal(msg)
	pc.mu.Unlock()

	var (
		n   int
		err error
	)
	if pc.dialed {
		n, err = pc.c.Write(m)
	} else {
		n, err = pc.c.WriteToUDP(m, remote)
	}
	if err != nil {
		return fmt.Errorf("failed to write %d bytes: %w", len(m), err)
	}
	if n != len(m) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(m))
	}

	return nil
}

// seal returns msg sealed under the next nonce. pc.mu must be held.
func (pc *Conn) seal(msg []byte) []byte {
	nce := pc.ln.nextGCMNonce(pc.dir)
	copy(nce[1:4], pc.sid[:])
	return pc.aead.Seal(nce, nce, msg, nil)
}

// Recv returns the next datagram that opens under our key and was
// sealed by the other end, dropping anything not newer than what was
// already seen from the same sender. A publisher adopts the sender of
// each accepted datagram as its peer.
func (pc *Conn) Recv() ([]byte, error) {
	buf := make([]byte, MTU)
	for {
		n, from, err := pc.c.ReadFromUDP(buf)
		if err != nil {
			return nil, err
		}

		if n < NONCE_BYTES+pc.aead.Overhead() {
			slog.Debug("dropping short datagram", "from", from, "bytes", n)
			continue
		}
		nb := buf[:NONCE_BYTES]
		if nb[0] == pc.dir {
			slog.Debug("dropping datagram sealed in our direction", "from", from)
			continue
		}
		if !validNonce(nb) {
			slog.Debug("dropping datagram with invalid nonce", "from", from)
			continue
		}

		msg, err := pc.aead.Open(nil, nb, buf[NONCE_BYTES:n], nil)
		if err != nil {
			slog.Debug("dropping datagram that didn't open", "from", from, "err", err)
			continue
		}

		rn, _ := nonceFromBytes(nb)
		pc.mu.Lock()
		if !pc.fresh(nb, rn) {
			pc.mu.Unlock()
			slog.Debug("dropping replayed datagram", "from", from, "nonce", rn)
			continue
		}
		if !pc.dialed && (pc.remote == nil || pc.remote.String() != from.String()) {
			slog.Info("subscriber address", "addr", from)
			pc.remote = from
		}
		pc.mu.Unlock()

		return msg, nil
	}
}

// fresh records rn as seen and reports whether it is newer than
// anything before it from the same sender. A restarted subscriber
// counts from 1 again, but under a new session id. pc.mu must be held.
func (pc *Conn) fresh(nb []byte, rn nonce) bool {
	if pc.dialed {
		if rn <= pc.rn {
			return false
		}
		pc.rn = rn
		return true
	}

	sid := [3]byte(nb[1:4])
	if last, ok := pc.seen[sid]; ok && rn <= last {
		return false
	}
	if _, ok := pc.seen[sid]; !ok && len(pc.seen) >= MAX_SESSIONS {
		for k := range pc.seen {
			delete(pc.seen, k)
			break
		}
	}
	pc.seen[sid] = rn
	return true
}

// SetReadDeadline bounds how long Recv blocks.
func (pc *Conn) SetReadDeadline(t time.Time) error {
	return pc.c.SetReadDeadline(t)
}

// Close unblocks any pending Recv.
func (pc *Conn) Close() error {
	return pc.c.Close()
}
