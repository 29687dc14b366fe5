//go:build unix

package bridge

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// endOfSession reports whether err from a pty read means the other
// side is gone. Linux returns EIO from the master once the child and
// everything else holding the slave have exited.
func endOfSession(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, unix.EIO)
}
