//go:build unix

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/bdwalton/vtcore/bridge"
	"github.com/bdwalton/vtcore/logging"
	"github.com/bdwalton/vtcore/render"
	"github.com/bdwalton/vtcore/vt"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	rows        = flag.Int("rows", 0, "Rows for the terminal. Defaults to the size of the host terminal, or 24 without one.")
	cols        = flag.Int("cols", 0, "Columns for the terminal. Defaults to the size of the host terminal, or 80 without one.")
	scrollback  = flag.Int("scrollback", vt.DEF_SCROLLBACK, "Number of history rows to keep. 0 disables history.")
	cursorShape = flag.String("cursor_shape", "block", "Initial cursor shape: block, underline or bar.")
	fg          = flag.String("fg", "", "Default foreground color as #rrggbb.")
	bg          = flag.String("bg", "", "Default background color as #rrggbb.")
	logfile     = flag.String("logfile", "", "If set, logs will be written to this file.")
	debug       = flag.Bool("debug", false, "If true, enable DEBUG log level for verbose log output")
	cmdLine     = flag.String("cmd", "", "Command to run through /bin/sh -c. Defaults to $SHELL.")
	dump        = flag.Bool("dump", false, "If true, run without mirroring and print the final screen when the command exits.")
	queueDepth  = flag.Int("queue_depth", bridge.DefaultConfig().QueueDepth, "Number of pty reads that may be queued ahead of the terminal.")
)

func main() {
	flag.Parse()

	closeLog, err := logging.Setup(*logfile, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = run()
	closeLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	interactive := !*dump && isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	cfg, err := config(interactive)
	if err != nil {
		return err
	}

	t, err := vt.NewTerminal(cfg)
	if err != nil {
		return fmt.Errorf("couldn't setup terminal: %w", err)
	}

	proc, err := bridge.StartCommand(command(), cfg.Rows, cfg.Cols)
	if err != nil {
		return err
	}
	slog.Info("started", "pid", proc.Pid(), "rows", cfg.Rows, "cols", cfg.Cols)

	sess := bridge.New(t, proc, bridge.Config{QueueDepth: *queueDepth})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if interactive {
		err = mirror(ctx, sess)
	} else {
		err = sess.Run(ctx)
	}

	if serr := proc.Stop(); serr != nil {
		slog.Warn("couldn't stop child", "err", serr)
	}
	if werr := proc.Wait(); werr != nil {
		slog.Info("child exited", "err", werr)
	}

	if !interactive {
		fmt.Println(sess.Snapshot().Text())
	}
	return err
}

func config(interactive bool) (vt.Config, error) {
	cfg := vt.DefaultConfig()

	if interactive {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			cfg.Rows, cfg.Cols = h, w
		} else {
			slog.Warn("couldn't get host terminal size", "err", err)
		}
	}
	if *rows > 0 {
		cfg.Rows = *rows
	}
	if *cols > 0 {
		cfg.Cols = *cols
	}
	cfg.Scrollback = *scrollback

	shape, err := vt.ParseCursorShape(*cursorShape)
	if err != nil {
		return cfg, err
	}
	cfg.CursorShape = shape
	cfg.Palette.Foreground = *fg
	cfg.Palette.Background = *bg

	return cfg, nil
}

func command() *exec.Cmd {
	var cmd *exec.Cmd
	if *cmdLine != "" {
		cmd = exec.Command("/bin/sh", "-c", *cmdLine)
	} else {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		cmd = exec.Command(shell)
	}
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	return cmd
}

// mirror runs sess while painting it onto the host terminal and
// forwarding keyboard input to it.
func mirror(ctx context.Context, sess *bridge.Session) error {
	fd := int(os.Stdin.Fd())
	orig, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("couldn't make terminal raw: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, orig); err != nil {
			slog.Error("couldn't restore terminal state", "err", err)
		}
	}()

	out := termenv.NewOutput(os.Stdout)
	out.AltScreen()
	defer out.ExitAltScreen()
	r := render.New(out.EnvColorProfile())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sess.Run(gctx)
	})
	g.Go(func() error {
		return paint(sess, r)
	})
	g.Go(func() error {
		return resizeOnWinch(gctx, sess)
	})

	// Reads from stdin can't be interrupted, so this one isn't waited
	// for.
	go forwardInput(gctx, sess)

	return g.Wait()
}

func paint(sess *bridge.Session, r *render.Renderer) error {
	ch, unsub := sess.Subscribe()
	defer unsub()

	var prev *vt.Snapshot
	for {
		cur := sess.Snapshot()
		if _, err := os.Stdout.Write(r.Diff(prev, cur)); err != nil {
			return fmt.Errorf("couldn't paint host terminal: %w", err)
		}
		prev = cur

		if _, ok := <-ch; !ok {
			return nil
		}
	}
}

func resizeOnWinch(ctx context.Context, sess *bridge.Session) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			w, h, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				slog.Warn("couldn't get host terminal size", "err", err)
				continue
			}
			if err := sess.Resize(ctx, h, w); err != nil {
				if errors.Is(err, bridge.ErrSessionClosed) || ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func forwardInput(ctx context.Context, sess *bridge.Session) {
	buf := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if err := sess.SendInput(ctx, buf[:n]); err != nil {
				return
			}
		}
		if err != nil {
			slog.Debug("stdin closed", "err", err)
			return
		}
	}
}
