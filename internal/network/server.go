// Package network is the TCP line server: one goroutine per connection,
// streaming compact JSON replies terminated by '\n'. It generalizes the
// teacher's bare accept-loop-and-goroutine server with the
// signal.NotifyContext/context-cancellation shutdown pattern, tracked with
// an errgroup so Shutdown can wait for in-flight connections to drain
// instead of just closing the listener and walking away.
package network

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/leengari/ksdb/internal/command"
	"github.com/leengari/ksdb/internal/store"
)

// Server accepts connections on a listener and dispatches each line to a
// fresh command.Session.
type Server struct {
	store    *store.Store
	listener net.Listener

	group  *errgroup.Group
	cancel context.CancelFunc
}

// Listen binds addr and returns a Server ready to Serve.
func Listen(addr string, s *store.Store) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{store: s, listener: listener}, nil
}

// Addr returns the bound address, useful when addr was ":0" in tests.
func (srv *Server) Addr() net.Addr { return srv.listener.Addr() }

// Serve runs the accept loop until ctx is canceled or Shutdown is called.
// It blocks until every in-flight connection goroutine has returned.
func (srv *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	srv.cancel = cancel
	group, gctx := errgroup.WithContext(ctx)
	srv.group = group

	group.Go(func() error {
		<-gctx.Done()
		return srv.listener.Close()
	})

	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			select {
			case <-gctx.Done():
				return srv.group.Wait()
			default:
				slog.Error("accept failed", "error", err)
				continue
			}
		}
		group.Go(func() error {
			srv.handleConnection(conn)
			return nil
		})
	}
}

// Shutdown cancels the accept loop and waits for every connection goroutine
// to return, which each does once its client closes the connection.
func (srv *Server) Shutdown() {
	if srv.cancel != nil {
		srv.cancel()
	}
	if srv.group != nil {
		_ = srv.group.Wait()
	}
}

func (srv *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	sess := command.NewSession(srv.store)
	scanner := bufio.NewScanner(conn)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		reply := sess.Execute(line)
		if _, err := conn.Write(append(reply, '\n')); err != nil {
			slog.Warn("write to client failed", "remote_addr", conn.RemoteAddr(), "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("connection read failed", "remote_addr", conn.RemoteAddr(), "error", err)
	}
}
