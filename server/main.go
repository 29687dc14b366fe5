//go:build unix

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bdwalton/vtcore/bridge"
	"github.com/bdwalton/vtcore/logging"
	"github.com/bdwalton/vtcore/network"
	"github.com/bdwalton/vtcore/stm"
	"github.com/bdwalton/vtcore/vt"
	"golang.org/x/sync/errgroup"
)

var (
	cmdLine    = flag.String("cmd", "", "Command to run through /bin/sh -c. Defaults to a login $SHELL.")
	cols       = flag.Int("cols", vt.DEF_COLS, "Columns for the terminal")
	debug      = flag.Bool("debug", false, "If true, enable DEBUG log level for verbose log output")
	detached   = flag.Bool("detached", false, "Used internally to run the detached copy of the server")
	listen     = flag.String("listen", "", "Address to listen on. Defaults to all addresses.")
	logfile    = flag.String("logfile", "", "If set, logs will be written to this file.")
	portRange  = flag.String("port_range", "61000:61999", "Port range")
	rows       = flag.Int("rows", vt.DEF_ROWS, "Rows for the terminal")
	scrollback = flag.Int("scrollback", vt.DEF_SCROLLBACK, "Number of history rows to keep")
)

func main() {
	flag.Parse()

	// The server prints its connect string and then detaches from
	// the terminal that started it, so the session outlives it.
	if !*detached {
		if err := runDetached(); err != nil {
			fmt.Println("Error detaching:", err)
			os.Exit(1)
		}

		os.Exit(0)
	}

	closeLog, err := logging.Setup(*logfile, *debug)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(); err != nil {
		slog.Error("server failed", "err", err)
		fmt.Println(err)
		closeLog()
		os.Exit(1)
	}

	slog.Info("Shutting down")
}

func run() error {
	pc, err := network.NewPublisher(*listen, *portRange)
	if err != nil {
		return fmt.Errorf("couldn't setup network connection: %w", err)
	}

	cfg := vt.DefaultConfig()
	cfg.Rows, cfg.Cols, cfg.Scrollback = *rows, *cols, *scrollback
	t, err := vt.NewTerminal(cfg)
	if err != nil {
		pc.Close()
		return fmt.Errorf("couldn't setup terminal: %w", err)
	}

	proc, err := bridge.StartCommand(getCmd(), cfg.Rows, cfg.Cols)
	if err != nil {
		pc.Close()
		return err
	}

	port, pid := pc.LocalPort(), os.Getpid()
	slog.Info("Running", "port", port, "child", proc.Pid())
	fmt.Println("VTCORE CONNECT", port, pc.Base64Key(), "pid =", pid)

	os.Stdin.Close()
	os.Stdout.Close()
	os.Stderr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := bridge.New(t, proc, bridge.DefaultConfig())
	pub := stm.NewPublisher(sess, pc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(gctx)
	})
	g.Go(func() error {
		return pub.Run(gctx)
	})
	err = g.Wait()

	if serr := proc.Stop(); serr != nil {
		slog.Warn("couldn't stop child", "err", serr)
	}
	slog.Info("child exited", "status", proc.Wait())
	return err
}

func runDetached() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	args := append(os.Args, "--detached")
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = cwd
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("couldn't start detached server: %w", err)
	}

	return cmd.Process.Release()
}

func getCmd() *exec.Cmd {
	var cmd *exec.Cmd
	if *cmdLine != "" {
		cmd = exec.Command("/bin/sh", "-c", *cmdLine)
	} else {
		// Start a login shell.
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		cmd = exec.Command(shell)
		cmd.Args = []string{"-" + filepath.Base(shell)}
	}
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	return cmd
}
