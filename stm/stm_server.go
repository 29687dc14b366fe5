package stm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bdwalton/vtcore/fragmenter"
	"github.com/bdwalton/vtcore/network"
	"github.com/bdwalton/vtcore/vt"
	"github.com/bdwalton/vtcore/wire"
	"golang.org/x/sync/errgroup"
)

// Source is where a Publisher gets its snapshots; a bridge.Session
// satisfies it.
type Source interface {
	Snapshot() *vt.Snapshot
	Subscribe() (<-chan uint64, func())
}

type Publisher struct {
	src  Source
	conn Transport
	frag *fragmenter.Fragger
}

func NewPublisher(src Source, conn Transport) *Publisher {
	return &Publisher{
		src:  src,
		conn: conn,
		frag: fragmenter.New(FRAG_SIZE),
	}
}

// Run sends a frame for every snapshot the source publishes, and a
// full frame whenever a viewer says hello, until ctx is done or the
// source stops publishing. The transport is closed on return.
func (p *Publisher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return p.conn.Close()
	})
	g.Go(func() error {
		defer cancel()
		return p.feed(gctx)
	})
	g.Go(func() error {
		return p.listen(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Publisher) feed(ctx context.Context) error {
	ch, unsub := p.src.Subscribe()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				slog.Info("source closed, stopping feed")
				return nil
			}
			p.publish(p.src.Snapshot())
		}
	}
}

func (p *Publisher) listen(ctx context.Context) error {
	for {
		msg, err := p.conn.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if string(msg) == HELLO {
			slog.Debug("viewer hello, sending full frame")
			p.publish(p.src.Snapshot())
		}
	}
}

func (p *Publisher) publish(s *vt.Snapshot) {
	frags, err := p.frag.CreateFragments(wire.Encode(s))
	if err != nil {
		slog.Warn("couldn't fragment frame", "version", s.Version, "err", err)
		return
	}

	for _, f := range frags {
		if err := p.conn.Send(f.Marshal()); err != nil {
			if errors.Is(err, network.ErrNoPeer) {
				return
			}
			slog.Warn("couldn't send fragment", "id", f.ID, "this", f.This, "err", err)
			return
		}
	}
	slog.Debug("published frame", "version", s.Version, "fragments", len(frags))
}
