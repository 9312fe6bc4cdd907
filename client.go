package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"typeahead/logger"
)

// RelayClient is the client mode: the plugin talks msgpack-rpc on our
// stdio, and we relay it to the daemon's unix socket.
type RelayClient struct {
	socketPath  string
	dialTimeout time.Duration
}

func NewRelayClient() *RelayClient {
	return &RelayClient{
		socketPath:  getSocketPath(),
		dialTimeout: 2 * time.Second,
	}
}

// Connect dials the daemon and relays stdio over the socket until
// either side closes. Dial failures and relay failures are reported
// distinctly so the caller can tell a missing daemon from a dropped
// session.
func (c *RelayClient) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("dialing daemon at %s: %w", c.socketPath, err)
	}
	defer conn.Close()
	return relay(conn, os.Stdin, os.Stdout)
}

// relay pumps in to the socket and the socket to out until either side
// closes.
func relay(conn net.Conn, in io.Reader, out io.Writer) error {
	go func() {
		io.Copy(conn, in)
		conn.Close()
	}()

	if _, err := io.Copy(out, conn); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("relaying session: %w", err)
	}
	return nil
}

// dial retries for a short window: the daemon writes its pid file
// before it binds the socket, so the first attempt after a fresh start
// can land in that gap.
func (c *RelayClient) dial() (net.Conn, error) {
	deadline := time.Now().Add(c.dialTimeout)
	for {
		conn, err := net.Dial("unix", c.socketPath)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (c *RelayClient) EnsureDaemonRunning() error {
	if running, pid := isDaemonRunning(); running {
		logger.Debug("daemon already running with PID %d", pid)
		return nil
	}
	return c.startDaemon()
}

func (c *RelayClient) startDaemon() error {
	logger.Debug("starting daemon...")

	proc, err := os.StartProcess(os.Args[0], []string{os.Args[0], "--daemon"}, &os.ProcAttr{
		Env:   os.Environ(),
		Files: []*os.File{nil, nil, nil},
	})
	if err != nil {
		return fmt.Errorf("spawning daemon: %w", err)
	}
	proc.Release()
	return c.waitForDaemon()
}

func (c *RelayClient) waitForDaemon() error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if running, pid := isDaemonRunning(); running {
			logger.Debug("daemon up with PID %d", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("daemon did not come up within 5s")
}
