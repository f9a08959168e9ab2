package storage

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// BindUnix binds a Unix-domain stream listener at path. A stale socket
// left behind by an unclean prior shutdown is unlinked first, whether
// path is the database's computed default or a caller-supplied -u path
// (a -u path left over from a crash is just as stale as the default).
func BindUnix(path string) (*net.UnixListener, error) {
	if err := unlinkStale(path); err != nil {
		return nil, err
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolving socket address %s: %w", path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("storage: binding socket %s: %w", path, err)
	}
	return ln, nil
}

// unlinkStale removes path if it exists and is a socket, so a server
// that crashed without closing its listener doesn't fail to rebind on
// restart ("address already in use").
func unlinkStale(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("storage: %s exists and is not a socket, refusing to remove", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("storage: removing stale socket %s: %w", path, err)
	}
	return nil
}

// Unlink removes the listener's filesystem entry, called at clean
// shutdown (§4.4: "unlink the listen endpoint's filesystem entry if it
// is local").
func Unlink(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: unlinking socket %s: %w", path, err)
	}
	return nil
}
