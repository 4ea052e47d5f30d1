package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avlabs/labelsync/internal/model"
)

// fakeLineServer speaks the command-port protocol over a real TCP listener.
type fakeLineServer struct {
	listener net.Listener

	mu     sync.Mutex
	labels map[string]map[int]string
	// failPorts rejects writes to these ports with ERR.
	failPorts map[int]string
	// dropAfter closes the connection after this many commands (0 = never).
	dropAfter int
	commands  int
}

func newFakeLineServer(t *testing.T, ports int) *fakeLineServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &fakeLineServer{
		listener: listener,
		labels:   map[string]map[int]string{"IN": {}, "OUT": {}},
	}
	for i := 1; i <= ports; i++ {
		srv.labels["IN"][i] = fmt.Sprintf("IN %d", i)
		srv.labels["OUT"][i] = fmt.Sprintf("OUT %d", i)
	}
	go srv.serve()
	t.Cleanup(func() { _ = listener.Close() })
	return srv
}

func (s *fakeLineServer) addr() string { return s.listener.Addr().String() }

func (s *fakeLineServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.session(conn)
	}
}

func (s *fakeLineServer) session(conn net.Conn) {
	defer conn.Close() //nolint:errcheck
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		s.mu.Lock()
		s.commands++
		if s.dropAfter > 0 && s.commands > s.dropAfter {
			s.mu.Unlock()
			return
		}
		reply := s.handle(strings.TrimRight(line, "\r\n"))
		s.mu.Unlock()
		if _, err := conn.Write([]byte(reply + "\r\n")); err != nil {
			return
		}
	}
}

// handle implements the grammar: PROBE, LABEL IN|OUT <n> ?, LABEL IN|OUT <n> "text".
func (s *fakeLineServer) handle(cmd string) string {
	if cmd == "PROBE" {
		return "OK"
	}
	fields := strings.SplitN(cmd, " ", 4)
	if len(fields) < 4 || fields[0] != "LABEL" {
		return "ERR bad command"
	}
	store, ok := s.labels[fields[1]]
	if !ok {
		return "ERR bad direction"
	}
	idx, err := strconv.Atoi(fields[2])
	if err != nil {
		return "ERR bad port"
	}
	if fields[3] == "?" {
		text, ok := store[idx]
		if !ok {
			return "ERR no such port"
		}
		return fmt.Sprintf("LABEL %s %d %q", fields[1], idx, text)
	}
	if reason, bad := s.failPorts[idx]; bad {
		return "ERR " + reason
	}
	text := strings.TrimSuffix(strings.TrimPrefix(fields[3], `"`), `"`)
	store[idx] = strings.ReplaceAll(text, `\"`, `"`)
	return "OK"
}

func lineFixture(t *testing.T, srv *fakeLineServer, modelName string) *LineTransport {
	t.Helper()
	m, err := model.LookupModel(modelName)
	require.NoError(t, err)

	host, portStr, err := net.SplitHostPort(srv.addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	dev := model.Device{Name: "fixture", Host: host, Model: m, LinePort: port}
	tr := NewLine(dev, DefaultTimeouts())
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestLineConnectivityCheck(t *testing.T) {
	tr := lineFixture(t, newFakeLineServer(t, 4), "mx16c")
	assert.NoError(t, tr.ConnectivityCheck(context.Background()))
}

func TestLineConnectivityCheckFailsWhenNothingListens(t *testing.T) {
	srv := newFakeLineServer(t, 4)
	tr := lineFixture(t, srv, "mx16c")
	require.NoError(t, srv.listener.Close())

	assert.Error(t, tr.ConnectivityCheck(context.Background()))
}

func TestLineReadLabelSet(t *testing.T) {
	tr := lineFixture(t, newFakeLineServer(t, 16), "mx16c")

	set, err := tr.ReadLabelSet(context.Background(), model.Input)
	require.NoError(t, err)
	assert.Equal(t, 16, set.Len())

	got, ok := set.Get(model.PortKey{Direction: model.Input, Index: 3})
	require.True(t, ok)
	assert.Equal(t, "IN 3", got)
}

func TestLineWriteLabels(t *testing.T) {
	srv := newFakeLineServer(t, 16)
	tr := lineFixture(t, srv, "mx16c")

	results, err := tr.WriteLabels(context.Background(), model.Output, map[int]string{
		1: "PGM",
		2: "PVW",
	})
	require.NoError(t, err)
	assert.Empty(t, results.Failed())
	assert.Equal(t, "PGM", srv.labels["OUT"][1])
	assert.Equal(t, "PVW", srv.labels["OUT"][2])
}

func TestLineWriteRejectedPort(t *testing.T) {
	srv := newFakeLineServer(t, 16)
	srv.failPorts = map[int]string{2: "port locked"}
	tr := lineFixture(t, srv, "mx16c")

	results, err := tr.WriteLabels(context.Background(), model.Output, map[int]string{
		1: "PGM",
		2: "PVW",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, results.Failed())
	require.Error(t, results[2])
	assert.Contains(t, results[2].Error(), "port locked")
}

func TestLineSessionLossIsSurfaced(t *testing.T) {
	srv := newFakeLineServer(t, 16)
	tr := lineFixture(t, srv, "mx16c")

	require.NoError(t, tr.ConnectivityCheck(context.Background()))

	// Kill the server mid-session; the next command must fail with a lost
	// session, not a per-port ERR.
	srv.mu.Lock()
	srv.dropAfter = 1
	srv.mu.Unlock()

	_, err := tr.WriteLabels(context.Background(), model.Input, map[int]string{1: "CAM 1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionLost)
}

func TestLineLabelQuoting(t *testing.T) {
	assert.Equal(t, `"CAM 1"`, quoteLabel("CAM 1"))
	assert.Equal(t, `""`, quoteLabel(""))

	text, ok := parseLabelResponse(`LABEL IN 3 "CAM 3"`)
	require.True(t, ok)
	assert.Equal(t, "CAM 3", text)

	_, ok = parseLabelResponse("ERR no quotes here")
	assert.False(t, ok)
}

func TestLineRoundTrip(t *testing.T) {
	srv := newFakeLineServer(t, 16)
	tr := lineFixture(t, srv, "mx16c")
	ctx := context.Background()

	want := map[int]string{}
	for i := 1; i <= 16; i++ {
		want[i] = fmt.Sprintf("DST %02d", i)
	}
	results, err := tr.WriteLabels(ctx, model.Output, want)
	require.NoError(t, err)
	require.Empty(t, results.Failed())

	set, err := tr.ReadLabelSet(ctx, model.Output)
	require.NoError(t, err)
	for i, text := range want {
		got, ok := set.Get(model.PortKey{Direction: model.Output, Index: i})
		require.True(t, ok)
		assert.Equal(t, text, got)
	}
}
