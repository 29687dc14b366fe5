//go:build !unix

package bridge

import (
	"errors"
	"io"
)

func endOfSession(err error) bool {
	return errors.Is(err, io.EOF)
}
