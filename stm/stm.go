// Package stm moves screen state from a running session to remote
// viewers: the publisher sends every snapshot as a fragmented frame,
// and viewers reassemble frames and repaint the local terminal.
package stm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bdwalton/vtcore/fragmenter"
	"github.com/bdwalton/vtcore/network"
	"github.com/bdwalton/vtcore/render"
	"github.com/bdwalton/vtcore/vt"
	"github.com/bdwalton/vtcore/wire"
	"golang.org/x/sync/errgroup"
)

// HELLO is what a viewer sends to announce itself and ask for a full
// frame.
const HELLO = "hello"

// Room left in each datagram for the sealing and fragment header.
const FRAG_SIZE = network.MTU - 64

const KEEPALIVE = 1 * time.Second

// Transport is a datagram connection; network.Conn satisfies it.
type Transport interface {
	Send([]byte) error
	Recv() ([]byte, error)
	Close() error
}

type Viewer struct {
	conn Transport
	frag *fragmenter.Fragger
	r    *render.Renderer
	out  io.Writer

	prev   *vt.Snapshot
	lastID uint32
}

func NewViewer(conn Transport, r *render.Renderer, out io.Writer) *Viewer {
	return &Viewer{
		conn: conn,
		frag: fragmenter.New(FRAG_SIZE),
		r:    r,
		out:  out,
	}
}

// Run says hello to the publisher and paints each frame it receives
// until ctx is done or the transport fails. The transport is closed on
// return.
func (v *Viewer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return v.conn.Close()
	})
	g.Go(func() error {
		return v.keepalive(gctx)
	})
	g.Go(func() error {
		return v.receive(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// keepalive repeats the hello so the publisher keeps (or relearns)
// our address, and expires half-received frames.
func (v *Viewer) keepalive(ctx context.Context) error {
	t := time.NewTicker(KEEPALIVE)
	defer t.Stop()

	for {
		if err := v.conn.Send([]byte(HELLO)); err != nil {
			slog.Warn("couldn't send hello", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			v.frag.Clean()
		}
	}
}

func (v *Viewer) receive(ctx context.Context) error {
	for {
		b, err := v.conn.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving frame: %w", err)
		}

		f, err := fragmenter.UnmarshalFragment(b)
		if err != nil {
			slog.Debug("dropping datagram", "err", err)
			continue
		}
		if !v.frag.Store(f) {
			continue
		}
		frame, err := v.frag.Assemble(f.ID)
		if err != nil {
			slog.Warn("couldn't assemble frame", "id", f.ID, "err", err)
			continue
		}
		if v.prev != nil && f.ID < v.lastID {
			slog.Debug("dropping stale frame", "id", f.ID, "last", v.lastID)
			continue
		}

		s, err := wire.Decode(frame)
		if err != nil {
			slog.Warn("couldn't decode frame", "id", f.ID, "err", err)
			continue
		}
		if err := v.paint(s); err != nil {
			return err
		}
		v.lastID = f.ID
	}
}

func (v *Viewer) paint(s *vt.Snapshot) error {
	out := v.r.Diff(v.prev, s)
	v.prev = s
	if len(out) == 0 {
		return nil
	}
	if _, err := v.out.Write(out); err != nil {
		return fmt.Errorf("painting frame: %w", err)
	}
	return nil
}

// Screen returns the last frame painted, or nil. It must not be called
// while Run is running.
func (v *Viewer) Screen() *vt.Snapshot {
	return v.prev
}
