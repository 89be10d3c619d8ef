package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/pkg/paths"
)

// SocketPath returns the daemon socket configured in cfg, or the default.
func SocketPath(cfg *config.Config) string {
	if cfg != nil && cfg.Daemon.Socket != "" {
		return cfg.Daemon.Socket
	}
	return paths.SocketPath()
}

// dialable reports whether something accepts connections on socketPath.
func dialable(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// New returns a Client that will use the daemon if available,
// otherwise falls back to a LocalClient built from cfg.
//
// Callers don't need to know whether the daemon is running or not. The
// same API works in both modes.
func New(cfg *config.Config, opts ...StackOption) (Client, error) {
	if socketPath := SocketPath(cfg); dialable(socketPath) {
		if client, err := NewRemoteClient(socketPath); err == nil {
			return client, nil
		}
	}
	return NewLocalClient(cfg, opts...)
}

// Connect returns a RemoteClient, or a DaemonNotRunning error when nothing
// listens on the socket. Use it where only the daemon will do, such as
// watching updates made by other processes.
func Connect(cfg *config.Config) (*RemoteClient, error) {
	socketPath := SocketPath(cfg)
	if !dialable(socketPath) {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	return NewRemoteClient(socketPath)
}
