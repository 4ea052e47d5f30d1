package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/avlabs/labelsync/internal/model"
)

// Timeouts bounds every network operation an adapter performs.
type Timeouts struct {
	Connect time.Duration // connectivity probe / session establishment
	Request time.Duration // single per-port operation
	Bulk    time.Duration // whole-direction bulk operation
}

// DefaultTimeouts reflect a management interface on a local network: connects
// should answer quickly, bulk transfers get more headroom.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 5 * time.Second,
		Request: 5 * time.Second,
		Bulk:    15 * time.Second,
	}
}

// RESTTransport talks to the device's structured HTTP management API.
//
// Bulk endpoints read or write every label of one direction in a single call:
//
//	GET /api/v1/labels/{input|output}            -> {"labels":{"1":"CAM 1",...}}
//	PUT /api/v1/labels/{input|output}            <- {"labels":{...}}
//	                                             -> {"results":{"1":"ok","2":"<reason>"}}
//
// Models whose firmware predates bulk support fall back to per-port endpoints:
//
//	GET /api/v1/labels/{dir}/{index}             -> {"label":"CAM 1"}
//	PUT /api/v1/labels/{dir}/{index}             <- {"label":"CAM 1"}
type RESTTransport struct {
	device   model.Device
	client   *http.Client
	timeouts Timeouts
	baseURL  string
}

// NewREST builds the structured-API transport for one device. The returned
// transport holds no open connection; sessions are per-request HTTP.
func NewREST(device model.Device, timeouts Timeouts) *RESTTransport {
	return &RESTTransport{
		device:   device,
		client:   &http.Client{},
		timeouts: timeouts,
		baseURL:  fmt.Sprintf("http://%s", device.Host),
	}
}

// newRESTWithBase is the test seam: it points the adapter at an arbitrary URL.
func newRESTWithBase(device model.Device, timeouts Timeouts, baseURL string) *RESTTransport {
	t := NewREST(device, timeouts)
	t.baseURL = baseURL
	return t
}

func (t *RESTTransport) Kind() model.TransportKind { return model.TransportREST }

// Close is a no-op: HTTP sessions are per-request.
func (t *RESTTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// ConnectivityCheck probes the device identity endpoint within the connect
// timeout. Any non-success response fails the check.
func (t *RESTTransport) ConnectivityCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Connect)
	defer cancel()

	body, err := t.do(ctx, http.MethodGet, "/api/v1/system", nil)
	if err != nil {
		return fmt.Errorf("connectivity check against %s: %w", t.device.Host, err)
	}
	var sys struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &sys); err != nil {
		return &ProtocolError{Kind: model.TransportREST, Op: "connectivity check", Msg: "malformed system response"}
	}
	return nil
}

// ReadLabelSet reads all labels of one direction, preferring the bulk
// endpoint when the model supports it.
func (t *RESTTransport) ReadLabelSet(ctx context.Context, dir model.Direction) (model.LabelSet, error) {
	if t.device.Model.BulkCapable {
		return t.readBulk(ctx, dir)
	}
	return t.readPerPort(ctx, dir)
}

func (t *RESTTransport) readBulk(ctx context.Context, dir model.Direction) (model.LabelSet, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Bulk)
	defer cancel()

	body, err := t.do(ctx, http.MethodGet, "/api/v1/labels/"+string(dir), nil)
	if err != nil {
		return model.LabelSet{}, fmt.Errorf("bulk read %s labels: %w", dir, err)
	}
	var resp struct {
		Labels map[string]string `json:"labels"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.LabelSet{}, &ProtocolError{Kind: model.TransportREST, Op: "bulk read", Msg: err.Error()}
	}
	labels := make(map[model.PortKey]string, len(resp.Labels))
	for idxStr, text := range resp.Labels {
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 1 {
			return model.LabelSet{}, &ProtocolError{Kind: model.TransportREST, Op: "bulk read", Msg: fmt.Sprintf("bad port index %q", idxStr)}
		}
		labels[model.PortKey{Direction: dir, Index: idx}] = text
	}
	return model.NewLabelSet(labels), nil
}

func (t *RESTTransport) readPerPort(ctx context.Context, dir model.Direction) (model.LabelSet, error) {
	labels := make(map[model.PortKey]string)
	for idx := 1; idx <= t.device.Model.PortCount(dir); idx++ {
		text, err := t.readOne(ctx, dir, idx)
		if err != nil {
			return model.LabelSet{}, fmt.Errorf("read %s %d: %w", dir, idx, err)
		}
		labels[model.PortKey{Direction: dir, Index: idx}] = text
	}
	return model.NewLabelSet(labels), nil
}

func (t *RESTTransport) readOne(ctx context.Context, dir model.Direction, idx int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Request)
	defer cancel()

	body, err := t.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/labels/%s/%d", dir, idx), nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ProtocolError{Kind: model.TransportREST, Op: "per-port read", Msg: err.Error()}
	}
	return resp.Label, nil
}

// WriteLabels writes the mapping for one direction. Bulk-capable models get a
// single bulk call; if that call fails as a whole, or reports individual port
// failures, the affected ports are retried once at per-port granularity
// before their failures are surfaced.
func (t *RESTTransport) WriteLabels(ctx context.Context, dir model.Direction, labels map[int]string) (WriteResults, error) {
	if len(labels) == 0 {
		return WriteResults{}, nil
	}
	results := make(WriteResults, len(labels))

	retry := labels
	if t.device.Model.BulkCapable {
		bulkResults, err := t.writeBulk(ctx, dir, labels)
		if err == nil {
			retry = make(map[int]string)
			for idx, werr := range bulkResults {
				if werr != nil {
					retry[idx] = labels[idx]
				} else {
					results[idx] = nil
				}
			}
		}
		// err != nil: the bulk call failed entirely; every port goes through
		// the per-port path once.
	}

	for idx, text := range retry {
		results[idx] = t.writeOne(ctx, dir, idx, text)
	}
	return results, nil
}

func (t *RESTTransport) writeBulk(ctx context.Context, dir model.Direction, labels map[int]string) (WriteResults, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Bulk)
	defer cancel()

	payload := struct {
		Labels map[string]string `json:"labels"`
	}{Labels: make(map[string]string, len(labels))}
	for idx, text := range labels {
		payload.Labels[strconv.Itoa(idx)] = text
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	body, err := t.do(ctx, http.MethodPut, "/api/v1/labels/"+string(dir), reqBody)
	if err != nil {
		return nil, fmt.Errorf("bulk write %s labels: %w", dir, err)
	}
	var resp struct {
		Results map[string]string `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Kind: model.TransportREST, Op: "bulk write", Msg: err.Error()}
	}

	results := make(WriteResults, len(labels))
	for idx := range labels {
		status, ok := resp.Results[strconv.Itoa(idx)]
		switch {
		case !ok:
			results[idx] = &ProtocolError{Kind: model.TransportREST, Op: "bulk write", Msg: fmt.Sprintf("no result for port %d", idx)}
		case status != "ok":
			results[idx] = &ProtocolError{Kind: model.TransportREST, Op: "bulk write", Msg: status}
		default:
			results[idx] = nil
		}
	}
	return results, nil
}

func (t *RESTTransport) writeOne(ctx context.Context, dir model.Direction, idx int, text string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Request)
	defer cancel()

	reqBody, err := json.Marshal(struct {
		Label string `json:"label"`
	}{Label: text})
	if err != nil {
		return err
	}
	if _, err := t.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/labels/%s/%d", dir, idx), reqBody); err != nil {
		return err
	}
	return nil
}

// do performs one HTTP exchange. Non-2xx responses and transport errors both
// fail the call; there is no silent partial success.
func (t *RESTTransport) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.device.Username != "" {
		req.SetBasicAuth(t.device.Username, t.device.Password)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProtocolError{
			Kind: model.TransportREST,
			Op:   fmt.Sprintf("%s %s", method, path),
			Msg:  fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return data, nil
}
