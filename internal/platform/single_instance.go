// Package platform holds OS-facing helpers that do not belong to a domain
// package.
package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	logx "lookaway/pkg/logx"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// ErrNotRunning is returned by Query when no instance holds the lock.
var ErrNotRunning = errors.New("no running instance")

// endOfReply terminates each reply on the control socket.
const endOfReply = "\x00"

// InstanceGuard holds the single-instance lock. The bound loopback port
// doubles as a line-oriented control socket for the other CLI commands.
type InstanceGuard struct {
	listener net.Listener
	address  string

	once sync.Once
}

// AcquireSingleInstance attempts to bind a deterministic localhost port.
func AcquireSingleInstance(appName string) (*InstanceGuard, error) {
	address := addressFor(appName)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, ErrAlreadyRunning
	}
	return &InstanceGuard{listener: listener, address: address}, nil
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	var err error
	guard.once.Do(func() { err = guard.listener.Close() })
	return err
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

// Serve answers one command per line with handle until ctx is done.
func (guard *InstanceGuard) Serve(ctx context.Context, handle func(ctx context.Context, line string) string, log logx.Logger) error {
	go func() {
		<-ctx.Done()
		_ = guard.Release()
	}()
	for {
		conn, err := guard.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go serveConn(ctx, conn, handle, log)
	}
}

func serveConn(ctx context.Context, conn net.Conn, handle func(ctx context.Context, line string) string, log logx.Logger) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Minute))
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		reply := handle(ctx, sc.Text())
		if _, err := io.WriteString(conn, reply+"\n"+endOfReply+"\n"); err != nil {
			log.Debug("control reply failed", logx.Err(err))
			return
		}
	}
}

// Query sends one command line to the running instance and returns its reply.
func Query(ctx context.Context, appName, line string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addressFor(appName))
	if err != nil {
		return "", ErrNotRunning
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if _, err := io.WriteString(conn, strings.TrimSpace(line)+"\n"); err != nil {
		return "", err
	}

	var out []string
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		if sc.Text() == endOfReply {
			return strings.Join(out, "\n"), nil
		}
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("control socket closed before reply")
}

func addressFor(appName string) string {
	return fmt.Sprintf("127.0.0.1:%d", portFromName(appName))
}

func portFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
