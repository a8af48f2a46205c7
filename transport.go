package skyfetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxResponseSize bounds how much of an upstream body is read; weather
// payloads are far smaller, this guards against a misbehaving server.
const maxResponseSize = 10 * 1024 * 1024

// poolTransport performs single HTTP GETs through per-host pooled handles.
type poolTransport struct {
	pool   *ConnectionPool
	header http.Header
}

func newPoolTransport(pool *ConnectionPool, header http.Header) *poolTransport {
	return &poolTransport{
		pool:   pool,
		header: header,
	}
}

// Get implements Transport. The timeout bounds the whole round-trip; hitting
// it surfaces as a context deadline error the fetcher classifies as a
// network failure.
func (t *poolTransport) Get(ctx context.Context, rawURL string, timeout time.Duration) (int, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, err
	}

	conn := t.pool.Acquire(u.Host)
	defer t.pool.Release(conn)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := conn.Client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, body, nil
}
