package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(Config{})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) string {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return string(data)
}

// waitForClients polls until the server has registered n clients.
func waitForClients(t *testing.T, server *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", server.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(Config{})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if addr := server.Addr(); addr == "" || addr == "127.0.0.1:0" {
		t.Errorf("Addr() = %q, want the bound address", addr)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestHealth(t *testing.T) {
	server := startServer(t)

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if got := gjson.GetBytes(body, "status").String(); got != "ok" {
		t.Errorf("status = %q, want ok", got)
	}
	if got := gjson.GetBytes(body, "clients").Int(); got != 0 {
		t.Errorf("clients = %d, want 0", got)
	}
}

func TestSnapshotOnConnect(t *testing.T) {
	server := startServer(t)
	h := NewHandler(server, "/home/user/notes", "main")
	h.OnTick(TickData{State: "dirty", Skipped: true, QuietFor: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)

	msg := readMessage(t, ctx, conn)
	if got := gjson.Get(msg, "type").String(); got != string(MessageTypeSnapshot) {
		t.Fatalf("first message type = %q, want snapshot", got)
	}
	if got := gjson.Get(msg, "data.repository").String(); got != "/home/user/notes" {
		t.Errorf("repository = %q", got)
	}
	if !gjson.Get(msg, "data.last_tick.skipped").Bool() {
		t.Error("snapshot is missing the last tick")
	}
}

func TestBroadcastCycle(t *testing.T) {
	server := startServer(t)
	h := NewHandler(server, "/repo", "main")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := []*websocket.Conn{dial(t, ctx, server), dial(t, ctx, server)}
	for _, conn := range conns {
		readMessage(t, ctx, conn) // snapshot
	}
	waitForClients(t, server, len(conns))

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.OnCycle(reposync.Report{
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		State:    resolver.StateDirty,
		Outcomes: []reposync.Outcome{{Kind: reposync.Committed}, {Kind: reposync.ConflictResolved}, {Kind: reposync.Pushed}},
		Commit:   "0123456789abcdef0123456789abcdef01234567",
		Changes:  []string{"notes.md"},
		Episode:  &resolver.Episode{Mode: resolver.Rebase, Rounds: 1, Files: []string{"notes.md"}},
	})

	for i, conn := range conns {
		msg := readMessage(t, ctx, conn)
		if got := gjson.Get(msg, "type").String(); got != string(MessageTypeCycle) {
			t.Fatalf("client %d: type = %q, want cycle", i, got)
		}

		var data CycleData
		if err := json.Unmarshal([]byte(gjson.Get(msg, "data").Raw), &data); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"committed", "conflict_resolved", "pushed"}, data.Outcomes); diff != "" {
			t.Errorf("client %d outcomes mismatch (-want +got):\n%s", i, diff)
		}
		if data.DurationMS != 1500 || data.State != "dirty" || data.Rounds != 1 {
			t.Errorf("client %d: data = %+v", i, data)
		}
	}

	if snap := h.Snapshot(); snap.Cycles != 1 || snap.LastCycle == nil {
		t.Errorf("Snapshot() = %+v, want one cycle recorded", snap)
	}
}

func TestNewCycleDataError(t *testing.T) {
	pushErr := &vcs.GitError{Command: []string{"push"}, ExitCode: 1, Stderr: "rejected", Err: vcs.ErrPushRejected}
	rep := reposync.Report{
		State:    resolver.StateClean,
		Outcomes: []reposync.Outcome{{Kind: reposync.Error, ErrorKind: reposync.KindGit, Err: pushErr}},
		Pulled:   []vcs.CommitInfo{{Hash: "abcdef0123456789", Author: "a", Subject: "auto: update x"}},
	}

	data := NewCycleData(rep)
	if diff := cmp.Diff([]string{"error(git)"}, data.Outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if data.Error == "" {
		t.Error("Error is empty")
	}
	if len(data.Pulled) != 1 || data.Pulled[0].Subject != "auto: update x" {
		t.Errorf("Pulled = %+v", data.Pulled)
	}
}

func TestClientDisconnect(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	readMessage(t, ctx, conn)
	waitForClients(t, server, 1)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, server, 0)
}

func TestStopClosesClients(t *testing.T) {
	server := NewServer(Config{})
	if err := server.Start(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)
	readMessage(t, ctx, conn)
	waitForClients(t, server, 1)

	if err := server.Stop(); err != nil {
		t.Fatal(err)
	}

	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("Read() succeeded after Stop()")
	}
}
