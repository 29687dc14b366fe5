// Copyright (c) 2025, Ben Walton
// All rights reserved.
//go:build unix

package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// stopGrace is how long Stop waits after SIGHUP before sending
// SIGTERM.
const stopGrace = 2 * time.Second

// Process is a command running on a pty. It implements PTY and
// Resizer so it can be handed straight to New.
type Process struct {
	cmd  *exec.Cmd
	ptmx *os.File

	exited  chan struct{}
	waitErr error
}

// StartCommand starts cmd with its stdio attached to a new pty of the
// given size.
func StartCommand(cmd *exec.Cmd, rows, cols int) (*Process, error) {
	f, err := pty.StartWithSize(cmd, winsize(rows, cols))
	if err != nil {
		return nil, fmt.Errorf("couldn't start %q on a pty: %w", cmd.Path, err)
	}
	ptmx, err := pollable(f)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	p := &Process{
		cmd:    cmd,
		ptmx:   ptmx,
		exited: make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
		slog.Debug("child exited", "pid", cmd.Process.Pid, "err", p.waitErr)
	}()

	return p, nil
}

// pollable returns a non-blocking copy of f and closes f. pty leaves
// the master in blocking mode, where Close can't interrupt a Read.
func pollable(f *os.File) (*os.File, error) {
	defer f.Close()

	fd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("couldn't dup pty master: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("couldn't make pty master non-blocking: %w", err)
	}
	return os.NewFile(uintptr(fd), f.Name()), nil
}

func winsize(rows, cols int) *pty.Winsize {
	return &pty.Winsize{
		Rows: uint16(min(max(rows, 1), 0xffff)),
		Cols: uint16(min(max(cols, 1), 0xffff)),
	}
}

func (p *Process) Read(b []byte) (int, error) {
	return p.ptmx.Read(b)
}

func (p *Process) Write(b []byte) (int, error) {
	return p.ptmx.Write(b)
}

// Close hangs up on the child's session and closes the master, which
// interrupts a pending Read.
func (p *Process) Close() error {
	p.hangup()
	return p.ptmx.Close()
}

func (p *Process) hangup() {
	select {
	case <-p.exited:
		return
	default:
	}
	// The child leads its own session and process group.
	if err := unix.Kill(-p.Pid(), unix.SIGHUP); err != nil && !errors.Is(err, unix.ESRCH) {
		slog.Debug("couldn't hang up child", "pid", p.Pid(), "err", err)
	}
}

// Resize sets the kernel window size, which also delivers SIGWINCH to
// the child.
func (p *Process) Resize(rows, cols int) error {
	// pty.Setsize would put the master back into blocking mode.
	rc, err := p.ptmx.SyscallConn()
	if err != nil {
		return fmt.Errorf("couldn't set pty size: %w", err)
	}
	ws := winsize(rows, cols)
	var ierr error
	if err := rc.Control(func(fd uintptr) {
		ierr = unix.IoctlSetWinsize(int(fd), unix.TIOCSWINSZ, &unix.Winsize{Row: ws.Rows, Col: ws.Cols})
	}); err != nil {
		return fmt.Errorf("couldn't set pty size: %w", err)
	}
	if ierr != nil {
		return fmt.Errorf("couldn't set pty size: %w", ierr)
	}
	return nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Stop hangs up on the child and, if it is still running after a
// grace period, terminates it. It returns once the child has exited or
// SIGTERM was sent.
func (p *Process) Stop() error {
	select {
	case <-p.exited:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(unix.SIGHUP); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("couldn't send SIGHUP to %d: %w", p.Pid(), err)
	}

	select {
	case <-p.exited:
		return nil
	case <-time.After(stopGrace):
	}

	slog.Debug("child ignored SIGHUP, sending SIGTERM", "pid", p.Pid())
	if err := p.cmd.Process.Signal(unix.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("couldn't send SIGTERM to %d: %w", p.Pid(), err)
	}
	return nil
}

// Wait blocks until the child exits and returns its exit status.
func (p *Process) Wait() error {
	<-p.exited
	return p.waitErr
}

// Exited is closed when the child has exited.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}
