// Package server implements the single-threaded connection multiplexer
// (§4.4) shared by the index server and the table server: one readiness
// loop over a Unix-domain listener and a bounded table of client
// connections, dispatching each ready connection's next frame through a
// caller-supplied Dispatcher and writing back its response.
package server

// readyFD is one file descriptor reported ready by a Poller, along with
// whether it was ready for reading.
type readyFD struct {
	fd       int
	readable bool
}

// Poller abstracts the OS readiness multiplexer (epoll on Linux, poll(2)
// elsewhere) behind the three operations the loop needs. Implementations
// are not safe for concurrent use — the loop is single-threaded by
// design (§5).
type Poller interface {
	// Add registers fd for read-readiness notifications.
	Add(fd int) error
	// Remove unregisters fd. Safe to call even if fd was never added.
	Remove(fd int) error
	// Wait blocks until at least one registered fd is ready or an error
	// occurs, appending ready descriptors to dst and returning the
	// extended slice. EINTR is retried internally, never surfaced.
	Wait(dst []readyFD) ([]readyFD, error)
	// Close releases the poller's own fd.
	Close() error
}
