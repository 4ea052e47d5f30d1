package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avlabs/labelsync/internal/model"
)

// fakeAPI is an httptest-backed stand-in for the device's management API.
type fakeAPI struct {
	mu     sync.Mutex
	labels map[string]map[int]string // direction -> port -> label

	// rejectBulkWrite fails every bulk PUT with HTTP 500.
	rejectBulkWrite bool
	// failPorts reports these ports as failed in bulk write responses.
	failPorts map[int]string
	// requireAuth enforces basic auth on every request.
	requireAuth bool

	bulkWrites    int
	perPortWrites int
}

func newFakeAPI(ports int) *fakeAPI {
	api := &fakeAPI{labels: map[string]map[int]string{"input": {}, "output": {}}}
	for i := 1; i <= ports; i++ {
		api.labels["input"][i] = fmt.Sprintf("IN %d", i)
		api.labels["output"][i] = fmt.Sprintf("OUT %d", i)
	}
	return api
}

func (a *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/system", func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "fake-router"})
	})
	mux.HandleFunc("/api/v1/labels/", func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/labels/"), "/")
		switch len(parts) {
		case 1:
			a.handleBulk(w, r, parts[0])
		case 2:
			a.handlePort(w, r, parts[0], parts[1])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func (a *fakeAPI) authorized(r *http.Request) bool {
	if !a.requireAuth {
		return true
	}
	user, pass, ok := r.BasicAuth()
	return ok && user == "admin" && pass == "secret"
}

func (a *fakeAPI) handleBulk(w http.ResponseWriter, r *http.Request, dir string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	store, ok := a.labels[dir]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		out := map[string]string{}
		for idx, text := range store {
			out[strconv.Itoa(idx)] = text
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"labels": out})
	case http.MethodPut:
		a.bulkWrites++
		if a.rejectBulkWrite {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req struct {
			Labels map[string]string `json:"labels"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		results := map[string]string{}
		for idxStr, text := range req.Labels {
			idx, _ := strconv.Atoi(idxStr)
			if reason, bad := a.failPorts[idx]; bad {
				results[idxStr] = reason
				continue
			}
			store[idx] = text
			results[idxStr] = "ok"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *fakeAPI) handlePort(w http.ResponseWriter, r *http.Request, dir, idxStr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	store, ok := a.labels[dir]
	idx, err := strconv.Atoi(idxStr)
	if !ok || err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		text, ok := store[idx]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"label": text})
	case http.MethodPut:
		a.perPortWrites++
		if reason, bad := a.failPorts[idx]; bad {
			http.Error(w, reason, http.StatusConflict)
			return
		}
		var req struct {
			Label string `json:"label"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		store[idx] = req.Label
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func restFixture(t *testing.T, api *fakeAPI, modelName string) *RESTTransport {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	m, err := model.LookupModel(modelName)
	require.NoError(t, err)
	dev := model.Device{Name: "fixture", Host: "ignored", Model: m}
	return newRESTWithBase(dev, DefaultTimeouts(), srv.URL)
}

func TestRESTConnectivityCheck(t *testing.T) {
	tr := restFixture(t, newFakeAPI(4), "mx16")
	assert.NoError(t, tr.ConnectivityCheck(context.Background()))
}

func TestRESTConnectivityCheckFailsOnRefusedConnection(t *testing.T) {
	m, err := model.LookupModel("mx16")
	require.NoError(t, err)
	dev := model.Device{Host: "ignored", Model: m}
	// A server that is immediately closed refuses connections.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	tr := newRESTWithBase(dev, DefaultTimeouts(), srv.URL)

	assert.Error(t, tr.ConnectivityCheck(context.Background()))
}

func TestRESTBulkRead(t *testing.T) {
	tr := restFixture(t, newFakeAPI(16), "mx16")

	set, err := tr.ReadLabelSet(context.Background(), model.Input)
	require.NoError(t, err)
	assert.Equal(t, 16, set.Len())

	got, ok := set.Get(model.PortKey{Direction: model.Input, Index: 7})
	require.True(t, ok)
	assert.Equal(t, "IN 7", got)
}

func TestRESTPerPortReadForPreBulkFirmware(t *testing.T) {
	tr := restFixture(t, newFakeAPI(16), "mx16c") // no bulk support

	set, err := tr.ReadLabelSet(context.Background(), model.Output)
	require.NoError(t, err)
	assert.Equal(t, 16, set.Len())
}

func TestRESTBulkWrite(t *testing.T) {
	api := newFakeAPI(16)
	tr := restFixture(t, api, "mx16")

	results, err := tr.WriteLabels(context.Background(), model.Input, map[int]string{
		1: "CAM 1",
		2: "CAM 2",
	})
	require.NoError(t, err)
	assert.Empty(t, results.Failed())
	assert.Equal(t, "CAM 1", api.labels["input"][1])
	assert.Equal(t, 1, api.bulkWrites)
	assert.Equal(t, 0, api.perPortWrites)
}

func TestRESTBulkWriteFailureEscalatesToPerPortOnce(t *testing.T) {
	api := newFakeAPI(16)
	api.rejectBulkWrite = true
	tr := restFixture(t, api, "mx16")

	results, err := tr.WriteLabels(context.Background(), model.Input, map[int]string{
		1: "CAM 1",
		2: "CAM 2",
	})
	require.NoError(t, err)
	assert.Empty(t, results.Failed())
	assert.Equal(t, 1, api.bulkWrites, "bulk attempted once")
	assert.Equal(t, 2, api.perPortWrites, "every port retried individually")
	assert.Equal(t, "CAM 2", api.labels["input"][2])
}

func TestRESTBulkWritePartialFailureRetriesOnlyFailedPorts(t *testing.T) {
	api := newFakeAPI(16)
	api.failPorts = map[int]string{2: "port locked"}
	tr := restFixture(t, api, "mx16")

	results, err := tr.WriteLabels(context.Background(), model.Input, map[int]string{
		1: "CAM 1",
		2: "CAM 2",
		3: "CAM 3",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, results.Failed())
	assert.Equal(t, 1, api.perPortWrites, "only the failed port went per-port")
	assert.Equal(t, "CAM 1", api.labels["input"][1])
	assert.Equal(t, "CAM 3", api.labels["input"][3])
}

func TestRESTWriteEmptyMappingIsANoop(t *testing.T) {
	api := newFakeAPI(4)
	tr := restFixture(t, api, "mx16")

	results, err := tr.WriteLabels(context.Background(), model.Input, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, api.bulkWrites)
}

func TestRESTBasicAuth(t *testing.T) {
	api := newFakeAPI(4)
	api.requireAuth = true

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	m, err := model.LookupModel("mx16")
	require.NoError(t, err)

	unauthenticated := newRESTWithBase(model.Device{Host: "x", Model: m}, DefaultTimeouts(), srv.URL)
	assert.Error(t, unauthenticated.ConnectivityCheck(context.Background()))

	authed := newRESTWithBase(model.Device{Host: "x", Model: m, Username: "admin", Password: "secret"}, DefaultTimeouts(), srv.URL)
	assert.NoError(t, authed.ConnectivityCheck(context.Background()))
}

func TestRESTRoundTrip(t *testing.T) {
	api := newFakeAPI(16)
	tr := restFixture(t, api, "mx16")
	ctx := context.Background()

	want := map[int]string{}
	for i := 1; i <= 16; i++ {
		want[i] = fmt.Sprintf("SRC %02d", i)
	}
	results, err := tr.WriteLabels(ctx, model.Input, want)
	require.NoError(t, err)
	require.Empty(t, results.Failed())

	set, err := tr.ReadLabelSet(ctx, model.Input)
	require.NoError(t, err)
	for i, text := range want {
		got, ok := set.Get(model.PortKey{Direction: model.Input, Index: i})
		require.True(t, ok)
		assert.Equal(t, text, got)
	}
}
