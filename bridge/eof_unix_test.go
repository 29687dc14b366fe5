//go:build unix

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestEndOfSession(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{io.EOF, true},
		{fmt.Errorf("read: %w", io.EOF), true},
		{unix.EIO, true},
		{&os.PathError{Op: "read", Path: "/dev/ptmx", Err: unix.EIO}, true},
		{unix.EAGAIN, false},
		{os.ErrClosed, false},
		{errors.New("boom"), false},
	}

	for i, c := range cases {
		if got := endOfSession(c.err); got != c.want {
			t.Errorf("%d: Got %t for %v, want %t", i, got, c.err, c.want)
		}
	}
}

func TestSessionEndsOnEIO(t *testing.T) {
	err := &os.PathError{Op: "read", Path: "/dev/ptmx", Err: unix.EIO}
	s := newTestSession(t, 2, 10, errPTY{err: err})
	if got := s.Run(context.Background()); got != nil {
		t.Errorf("Got %v, want nil when the child side hangs up", got)
	}
}
