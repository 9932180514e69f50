package network

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/leengari/ksdb/internal/store"
	"github.com/leengari/ksdb/internal/tableengine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(dir, tableengine.Settings{})
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	t.Cleanup(s.Shutdown)

	srv, err := Listen("127.0.0.1:0", s)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	return srv
}

func TestServeRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)

	writeLine(t, conn, "create keyspace k")
	if got := readLine(t, reader); got != `{"ok":true}` {
		t.Fatalf("create keyspace = %s", got)
	}

	writeLine(t, conn, "create table k.t (id int, primary key (id))")
	if got := readLine(t, reader); got != `{"ok":true}` {
		t.Fatalf("create table = %s", got)
	}

	writeLine(t, conn, "insert into k.t (id) values (1)")
	if got := readLine(t, reader); got != `{"ok":true}` {
		t.Fatalf("insert = %s", got)
	}

	writeLine(t, conn, "select * from k.t where id=1")
	want := `{"ok":true,"found":true,"row":{"id":1}}`
	if got := readLine(t, reader); got != want {
		t.Fatalf("select = %s, want %s", got, want)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestShutdownReturnsServeAfterClientDisconnects(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	reader := bufio.NewReader(conn)
	writeLine(t, conn, "create keyspace k")
	if got := readLine(t, reader); got != `{"ok":true}` {
		t.Fatalf("create keyspace = %s", got)
	}
	conn.Close()

	srv.Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func readLine(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString failed: %v", err)
	}
	return line[:len(line)-1]
}
