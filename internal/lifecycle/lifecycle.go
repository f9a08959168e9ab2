// Package lifecycle coordinates process shutdown: translating SIGINT,
// SIGTERM, and SIGHUP into the terminate flag both servers poll (§4.4,
// §7), and running the signal watcher alongside the serve loop under one
// golang.org/x/sync/errgroup.Group so a fatal error in either stops the
// process cleanly — in the style of resource.Controller
// (resource/controller.go), using that same module's errgroup sibling
// package.
package lifecycle

import (
	"context"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Terminator is anything with a cooperative stop signal, satisfied by
// *server.Loop.
type Terminator interface {
	Terminate()
}

// Run starts t's serve function under an errgroup alongside a signal
// watcher. The watcher calls term.Terminate() on SIGINT/SIGTERM/SIGHUP
// and then waits for serve to return. Run returns serve's error, or nil
// on a clean signal-triggered shutdown.
func Run(ctx context.Context, term Terminator, serve func() error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		term.Terminate()
		return nil
	})

	g.Go(serve)

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		// The group's context was canceled by a signal, not by serve
		// itself failing; that's a clean shutdown, not an error.
		return nil
	}
	return err
}

// ExitCode maps an error from Run to the process exit code convention of
// §6: 0 on clean shutdown, non-zero on fatal startup or runtime error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
