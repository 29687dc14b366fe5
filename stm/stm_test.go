package stm

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bdwalton/vtcore/render"
	"github.com/bdwalton/vtcore/vt"
	"github.com/muesli/termenv"
)

// memConn is one end of an in-memory datagram pipe.
type memConn struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   sync.Once
}

func memPair() (*memConn, *memConn) {
	a, b := make(chan []byte, 256), make(chan []byte, 256)
	return &memConn{in: a, out: b, closed: make(chan struct{})},
		&memConn{in: b, out: a, closed: make(chan struct{})}
}

func (m *memConn) Send(b []byte) error {
	select {
	case <-m.closed:
		return net.ErrClosed
	case m.out <- bytes.Clone(b):
		return nil
	}
}

func (m *memConn) Recv() ([]byte, error) {
	select {
	case <-m.closed:
		return nil, net.ErrClosed
	case b := <-m.in:
		return b, nil
	}
}

func (m *memConn) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

// termSource publishes snapshots of a terminal the test feeds.
type termSource struct {
	mu   sync.Mutex
	term *vt.Terminal
	snap *vt.Snapshot
	ch   chan uint64
}

func newTermSource(t *testing.T) *termSource {
	t.Helper()
	cfg := vt.DefaultConfig()
	cfg.Rows, cfg.Cols = 4, 20
	term, err := vt.NewTerminal(cfg)
	if err != nil {
		t.Fatalf("NewTerminal() = %v", err)
	}
	return &termSource{term: term, snap: term.Snapshot(), ch: make(chan uint64, 1)}
}

func (s *termSource) feed(text string) {
	s.mu.Lock()
	s.term.Feed([]byte(text))
	s.snap = s.term.Snapshot()
	v := s.snap.Version
	s.mu.Unlock()
	s.ch <- v
}

func (s *termSource) Snapshot() *vt.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *termSource) Subscribe() (<-chan uint64, func()) {
	return s.ch, func() {}
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishToViewer(t *testing.T) {
	src := newTermSource(t)
	src.feed("before viewer")

	pc, vc := memPair()
	pub := NewPublisher(src, pc)
	out := &syncBuffer{}
	view := NewViewer(vc, render.New(termenv.Ascii), out)

	ctx, cancel := context.WithCancel(context.Background())
	pubErr, viewErr := make(chan error, 1), make(chan error, 1)
	go func() { pubErr <- pub.Run(ctx) }()
	go func() { viewErr <- view.Run(ctx) }()

	// The hello gets the viewer a full frame.
	waitFor(t, "initial frame", func() bool { return strings.Contains(out.String(), "before viewer") })

	src.feed("\r\nafter")
	waitFor(t, "update", func() bool { return strings.Contains(out.String(), "after") })

	cancel()
	if err := <-pubErr; err != nil {
		t.Errorf("Publisher.Run() = %v, want nil", err)
	}
	if err := <-viewErr; err != nil {
		t.Errorf("Viewer.Run() = %v, want nil", err)
	}

	if got, want := view.Screen().Text(), src.Snapshot().Text(); got != want {
		t.Errorf("Got screen %q, want %q", got, want)
	}
}

func TestPublisherLargeFrame(t *testing.T) {
	src := newTermSource(t)
	cfg := vt.DefaultConfig()
	cfg.Rows, cfg.Cols = 50, 200
	term, err := vt.NewTerminal(cfg)
	if err != nil {
		t.Fatalf("NewTerminal() = %v", err)
	}
	src.term = term

	// A frame this size needs several fragments.
	var sb strings.Builder
	for i := range 50*200 - 1 {
		fmt.Fprintf(&sb, "\x1b[38;5;%dm%c", i%256, 'a'+i%26)
	}
	src.feed(sb.String())

	pc, vc := memPair()
	pub := NewPublisher(src, pc)
	out := &syncBuffer{}
	view := NewViewer(vc, render.New(termenv.ANSI256), out)

	ctx, cancel := context.WithCancel(context.Background())
	pubErr, viewErr := make(chan error, 1), make(chan error, 1)
	go func() { pubErr <- pub.Run(ctx) }()
	go func() { viewErr <- view.Run(ctx) }()

	// Each frame is painted with a single write.
	waitFor(t, "large frame", func() bool { return out.String() != "" })
	cancel()
	<-pubErr
	<-viewErr

	if got, want := view.Screen().Text(), src.Snapshot().Text(); got != want {
		t.Errorf("Got a %d byte screen, want the %d byte original", len(got), len(want))
	}
}

func TestPublisherStopsWhenSourceCloses(t *testing.T) {
	src := newTermSource(t)
	pc, _ := memPair()
	pub := NewPublisher(src, pc)

	errc := make(chan error, 1)
	go func() { errc <- pub.Run(context.Background()) }()
	close(src.ch)

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run() didn't return after the source closed")
	}
}

func TestViewerDropsGarbage(t *testing.T) {
	src := newTermSource(t)
	src.feed("good")

	pc, vc := memPair()
	out := &syncBuffer{}
	view := NewViewer(vc, render.New(termenv.Ascii), out)

	// Garbage from the publisher side must not stop the viewer.
	pc.Send([]byte{0xff})
	pc.Send([]byte("not a fragment"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- view.Run(ctx) }()

	pub := NewPublisher(src, pc)
	go pub.Run(ctx)

	waitFor(t, "frame after garbage", func() bool { return strings.Contains(out.String(), "good") })
	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}
