package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdwalton/vtcore/logging"
	"github.com/bdwalton/vtcore/network"
	"github.com/bdwalton/vtcore/render"
	"github.com/bdwalton/vtcore/stm"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	debug      = flag.Bool("debug", false, "If true, enable DEBUG log level for verbose log output")
	logfile    = flag.String("logfile", "", "If set, logs will be written to this file.")
	remotePort = flag.String("remote_port", "61000", "Port to dial on remote host")
	remoteHost = flag.String("remote_host", "", "Remote host to dial")
)

func main() {
	flag.Parse()

	closeLog, err := logging.Setup(*logfile, *debug)
	if err != nil {
		fmt.Println(err)
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
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("stdout must be a terminal")
	}

	key := os.Getenv("VTCORE_KEY")
	if key == "" {
		return fmt.Errorf("VTCORE_KEY must be set to the key the server printed")
	}

	sc, err := network.NewSubscriber(net.JoinHostPort(*remoteHost, *remotePort), key)
	if err != nil {
		return fmt.Errorf("couldn't setup network connection: %w", err)
	}

	// Raw mode keeps keystrokes from echoing over the mirrored screen;
	// the viewer never sends them anywhere.
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		orig, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("couldn't make terminal raw: %w", err)
		}
		defer func() {
			if err := term.Restore(fd, orig); err != nil {
				slog.Error("couldn't restore terminal state", "err", err)
			}
		}()
	}

	out := termenv.NewOutput(os.Stdout)
	out.AltScreen()
	defer out.ExitAltScreen()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// There is no other way to leave once stdin is raw, so any of
	// Ctrl-C, Ctrl-D or q quits.
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				stop()
				return
			}
			switch buf[0] {
			case 0x03, 0x04, 'q':
				stop()
				return
			}
		}
	}()

	v := stm.NewViewer(sc, render.New(out.EnvColorProfile()), os.Stdout)
	err = v.Run(ctx)

	slog.Info("Shutting down")
	return err
}
