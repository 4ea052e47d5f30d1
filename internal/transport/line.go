package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/avlabs/labelsync/internal/model"
)

// lineDelimiter terminates every message in both directions.
const lineDelimiter = "\r\n"

// LineTransport is the fallback adapter: a persistent session on the device's
// command port, one text command per operation, one line of acknowledgment per
// command.
//
//	PROBE                    -> OK
//	LABEL IN 3 ?             -> LABEL IN 3 "CAM 3"
//	LABEL IN 3 "CAM 3"       -> OK | ERR <reason>
//
// The protocol has no bulk primitive; every operation is inherently per-port.
// Session establishment probes the device before any write is attempted, so a
// dead session is detected before labels are touched.
type LineTransport struct {
	device   model.Device
	timeouts Timeouts
	dial     func(ctx context.Context, addr string) (net.Conn, error)

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewLine builds the line-protocol transport for one device. The session is
// opened lazily by the first operation.
func NewLine(device model.Device, timeouts Timeouts) *LineTransport {
	return &LineTransport{
		device:   device,
		timeouts: timeouts,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			d := net.Dialer{}
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

func (t *LineTransport) Kind() model.TransportKind { return model.TransportLine }

// Close tears down the session. Safe to call more than once.
func (t *LineTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.reader = nil
	return err
}

// ConnectivityCheck establishes the session if needed and issues the no-op
// probe command.
func (t *LineTransport) ConnectivityCheck(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureSession(ctx); err != nil {
		return err
	}
	resp, err := t.exchange(ctx, "PROBE")
	if err != nil {
		return err
	}
	if resp != "OK" {
		return &ProtocolError{Kind: model.TransportLine, Op: "probe", Msg: fmt.Sprintf("unexpected acknowledgment %q", resp)}
	}
	return nil
}

// ReadLabelSet queries every port of the direction, one command per port.
func (t *LineTransport) ReadLabelSet(ctx context.Context, dir model.Direction) (model.LabelSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureSession(ctx); err != nil {
		return model.LabelSet{}, err
	}
	labels := make(map[model.PortKey]string)
	for idx := 1; idx <= t.device.Model.PortCount(dir); idx++ {
		text, err := t.queryLabel(ctx, dir, idx)
		if err != nil {
			return model.LabelSet{}, fmt.Errorf("read %s %d: %w", dir, idx, err)
		}
		labels[model.PortKey{Direction: dir, Index: idx}] = text
	}
	return model.NewLabelSet(labels), nil
}

// WriteLabels sets each port in turn. A failed acknowledgment marks only that
// port; a broken session fails the whole operation.
func (t *LineTransport) WriteLabels(ctx context.Context, dir model.Direction, labels map[int]string) (WriteResults, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureSession(ctx); err != nil {
		return nil, err
	}
	results := make(WriteResults, len(labels))
	for idx, text := range labels {
		cmd := fmt.Sprintf("LABEL %s %d %s", dirToken(dir), idx, quoteLabel(text))
		resp, err := t.exchange(ctx, cmd)
		if err != nil {
			// The session itself died mid-write; everything not yet
			// acknowledged is unverified.
			return results, fmt.Errorf("write %s %d: %w", dir, idx, err)
		}
		switch {
		case resp == "OK":
			results[idx] = nil
		case strings.HasPrefix(resp, "ERR"):
			results[idx] = &ProtocolError{Kind: model.TransportLine, Op: "write", Msg: strings.TrimSpace(strings.TrimPrefix(resp, "ERR"))}
		default:
			results[idx] = &ProtocolError{Kind: model.TransportLine, Op: "write", Msg: fmt.Sprintf("unexpected acknowledgment %q", resp)}
		}
	}
	return results, nil
}

// ensureSession dials the device's command port and drains the banner line,
// if any. Callers hold t.mu.
func (t *LineTransport) ensureSession(ctx context.Context) error {
	if t.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, t.timeouts.Connect)
	defer cancel()

	conn, err := t.dial(dialCtx, t.device.LineAddr())
	if err != nil {
		return fmt.Errorf("open session to %s: %w", t.device.LineAddr(), err)
	}
	t.conn = conn
	t.reader = bufio.NewReader(conn)
	return nil
}

func (t *LineTransport) queryLabel(ctx context.Context, dir model.Direction, idx int) (string, error) {
	resp, err := t.exchange(ctx, fmt.Sprintf("LABEL %s %d ?", dirToken(dir), idx))
	if err != nil {
		return "", err
	}
	text, ok := parseLabelResponse(resp)
	if !ok {
		return "", &ProtocolError{Kind: model.TransportLine, Op: "read", Msg: fmt.Sprintf("unparseable response %q", resp)}
	}
	return text, nil
}

// exchange sends one command and reads the single-line acknowledgment.
// Callers hold t.mu. Any I/O failure invalidates the session.
func (t *LineTransport) exchange(ctx context.Context, cmd string) (string, error) {
	if t.conn == nil {
		return "", ErrSessionLost
	}
	deadline := time.Now().Add(t.timeouts.Request)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return "", t.invalidate(err)
	}
	if _, err := t.conn.Write([]byte(cmd + lineDelimiter)); err != nil {
		return "", t.invalidate(err)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", t.invalidate(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *LineTransport) invalidate(cause error) error {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
		t.reader = nil
	}
	return fmt.Errorf("%w: %v", ErrSessionLost, cause)
}

func dirToken(dir model.Direction) string {
	if dir == model.Input {
		return "IN"
	}
	return "OUT"
}

// quoteLabel wraps a label in double quotes, escaping embedded quotes.
func quoteLabel(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `\"`) + `"`
}

// parseLabelResponse extracts the quoted label text from a read response such
// as `LABEL IN 3 "CAM 3"`.
func parseLabelResponse(resp string) (string, bool) {
	start := strings.Index(resp, `"`)
	end := strings.LastIndex(resp, `"`)
	if start < 0 || end <= start {
		return "", false
	}
	return strings.ReplaceAll(resp[start+1:end], `\"`, `"`), true
}
