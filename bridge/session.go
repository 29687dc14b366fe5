// Package bridge connects a pseudo-terminal to a vt.Terminal. One
// goroutine reads the pty, one owns the terminal and one writes back
// to the pty; everything else talks to the session through its event
// queue or reads the immutable snapshots it publishes. Only the reader
// ever waits on the pty: the owner hands bytes to the writer without
// blocking.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bdwalton/vtcore/input"
	"github.com/bdwalton/vtcore/vt"
	"golang.org/x/sync/errgroup"
)

var ErrSessionClosed = errors.New("session closed")

// PTY is the master side of a pseudo-terminal, or anything that
// behaves like one.
type PTY interface {
	io.Reader
	io.Writer
	io.Closer
}

// Resizer is implemented by PTYs that can propagate a window size to
// the kernel.
type Resizer interface {
	Resize(rows, cols int) error
}

type Config struct {
	// QueueDepth bounds the event queue between the reader and the
	// terminal owner. A full queue blocks the reader.
	QueueDepth int
	// ReadSize is the buffer size for each pty read.
	ReadSize int
	// BatchLimit is how many queued events are applied before a
	// snapshot is published.
	BatchLimit int
}

func DefaultConfig() Config {
	return Config{
		QueueDepth: 64,
		ReadSize:   4096,
		BatchLimit: 16,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.QueueDepth < 1 {
		c.QueueDepth = d.QueueDepth
	}
	if c.ReadSize < 1 {
		c.ReadSize = d.ReadSize
	}
	if c.BatchLimit < 1 {
		c.BatchLimit = d.BatchLimit
	}
	return c
}

type eventKind uint8

const (
	evData eventKind = iota
	evResize
	evReset
	evInput
	evKey
	evMouse
	evPaste
)

// event is one entry in the session's single ordered stream.
type event struct {
	kind       eventKind
	data       []byte
	rows, cols int
	key        input.Key
	mouse      input.MouseEvent
}

type Session struct {
	term *vt.Terminal
	pty  PTY
	cfg  Config

	events    chan event
	stopping  chan struct{}
	stopOnce  sync.Once
	ownerDone chan struct{}
	done      chan struct{}
	running   atomic.Bool

	// Bytes waiting for the writer, and its wake-up.
	outMu   sync.Mutex
	pending [][]byte
	wake    chan struct{}

	snap atomic.Pointer[vt.Snapshot]

	subMu   sync.Mutex
	subs    map[int]chan uint64
	nextSub int
	closed  bool

	err error
}

// New creates a session around t and p. The session owns t from now
// on: callers must not use it directly.
func New(t *vt.Terminal, p PTY, cfg Config) *Session {
	cfg = cfg.normalize()
	s := &Session{
		term:     t,
		pty:      p,
		cfg:      cfg,
		events:    make(chan event, cfg.QueueDepth),
		stopping:  make(chan struct{}),
		ownerDone: make(chan struct{}),
		done:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
		subs:      make(map[int]chan uint64),
	}
	s.snap.Store(t.Snapshot())
	return s
}

// Run runs the session until the pty reaches EOF, ctx is cancelled
// or reading fails. It returns nil when the session ended normally.
// Run may only be called once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.read)
	g.Go(s.own)
	g.Go(s.write)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.stopping:
		}
		s.stop()
		return nil
	})

	s.err = g.Wait()
	s.closeSubscribers()
	close(s.done)
	slog.Debug("session ended", "err", s.err)
	return s.err
}

// stop begins teardown. Closing the pty unblocks the reader.
func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.stopping)
		if err := s.pty.Close(); err != nil {
			slog.Debug("error closing pty", "err", err)
		}
	})
}

func (s *Session) isStopping() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

// read copies pty output into the event queue. A full queue blocks
// here, which in turn stops us reading from the pty.
func (s *Session) read() error {
	defer s.stop()

	buf := make([]byte, s.cfg.ReadSize)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			ev := event{kind: evData, data: bytes.Clone(buf[:n])}
			select {
			case s.events <- ev:
			case <-s.stopping:
				return nil
			}
		}
		if err != nil {
			if s.isStopping() || endOfSession(err) {
				slog.Debug("pty reader finished", "err", err)
				return nil
			}
			return fmt.Errorf("reading pty: %w", err)
		}
	}
}

// own is the only goroutine that touches the terminal.
func (s *Session) own() error {
	defer close(s.ownerDone)

	for {
		select {
		case ev := <-s.events:
			s.apply(ev)
			// Apply whatever else is already queued, up to the
			// batch limit, before paying for a snapshot.
		batch:
			for range s.cfg.BatchLimit - 1 {
				select {
				case ev := <-s.events:
					s.apply(ev)
				default:
					break batch
				}
			}
			s.publish()
		case <-s.stopping:
			// Drain what was queued before teardown.
			for {
				select {
				case ev := <-s.events:
					s.apply(ev)
				default:
					s.publish()
					return nil
				}
			}
		}
	}
}

func (s *Session) apply(ev event) {
	switch ev.kind {
	case evData:
		s.term.Feed(ev.data)
		s.send(s.term.TakeReplies())
	case evResize:
		s.term.Resize(ev.rows, ev.cols)
		if r, ok := s.pty.(Resizer); ok {
			if err := r.Resize(ev.rows, ev.cols); err != nil {
				slog.Warn("couldn't resize pty", "rows", ev.rows, "cols", ev.cols, "err", err)
			}
		}
	case evReset:
		s.term.Reset()
	case evInput:
		s.send(ev.data)
	case evKey:
		s.send(input.EncodeKey(ev.key, s.term.Modes()))
	case evMouse:
		s.send(input.EncodeMouse(ev.mouse, s.term.Modes()))
	case evPaste:
		s.send(input.EncodePaste(ev.data, s.term.Modes()))
	}
}

// send queues b for the writer and returns at once, however far
// behind the writer is. Once teardown starts, anything left is
// dropped.
func (s *Session) send(b []byte) {
	if len(b) == 0 || s.isStopping() {
		return
	}
	s.outMu.Lock()
	s.pending = append(s.pending, b)
	s.outMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) takePending() [][]byte {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	p := s.pending
	s.pending = nil
	return p
}

func (s *Session) write() error {
	for {
		select {
		case <-s.wake:
		case <-s.ownerDone:
			return nil
		}
		for _, b := range s.takePending() {
			if s.isStopping() {
				break
			}
			if _, err := s.pty.Write(b); err != nil {
				slog.Warn("couldn't write to pty", "bytes", len(b), "err", err)
			}
		}
	}
}

func (s *Session) publish() {
	if !s.term.Changed() {
		return
	}
	snap := s.term.Snapshot()
	s.snap.Store(snap)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		notify(ch, snap.Version)
	}
}

// notify leaves only the newest version in ch, so slow subscribers
// skip straight to the latest snapshot.
func notify(ch chan uint64, v uint64) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Snapshot returns the most recently published snapshot. It never
// blocks and never returns nil.
func (s *Session) Snapshot() *vt.Snapshot {
	return s.snap.Load()
}

// Subscribe returns a channel that receives snapshot versions as they
// are published, and a function to cancel the subscription. The
// channel is closed when the session ends or the subscription is
// cancelled.
func (s *Session) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.closed = true
}

func (s *Session) enqueue(ctx context.Context, ev event) error {
	if s.isStopping() {
		return ErrSessionClosed
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.stopping:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resize queues a resize behind any output already received. Sizes
// below 1 are clamped to 1.
func (s *Session) Resize(ctx context.Context, rows, cols int) error {
	return s.enqueue(ctx, event{kind: evResize, rows: max(rows, 1), cols: max(cols, 1)})
}

// Reset queues a full terminal reset.
func (s *Session) Reset(ctx context.Context) error {
	return s.enqueue(ctx, event{kind: evReset})
}

// SendInput queues b to be written to the pty verbatim.
func (s *Session) SendInput(ctx context.Context, b []byte) error {
	return s.enqueue(ctx, event{kind: evInput, data: bytes.Clone(b)})
}

// SendKey encodes k against the modes in effect when it reaches the
// front of the queue.
func (s *Session) SendKey(ctx context.Context, k input.Key) error {
	return s.enqueue(ctx, event{kind: evKey, key: k})
}

func (s *Session) SendMouse(ctx context.Context, ev input.MouseEvent) error {
	return s.enqueue(ctx, event{kind: evMouse, mouse: ev})
}

func (s *Session) Paste(ctx context.Context, text []byte) error {
	return s.enqueue(ctx, event{kind: evPaste, data: bytes.Clone(text)})
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns what Run returned. It is only meaningful after Done is
// closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
