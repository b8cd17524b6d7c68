package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RPCTarget is a chain RPC endpoint probed with eth_blockNumber.
type RPCTarget struct {
	Chain string
	URL   string
}

// IndexerTarget is a provider's indexer status endpoint for one chain.
type IndexerTarget struct {
	Provider string
	Chain    string
	URL      string
}

// IndexerStatus is the body an indexer status endpoint returns.
type IndexerStatus struct {
	Chain              string `json:"chain"`
	LatestBlockNumber  uint64 `json:"latest_block_number"`
	LatestBlockTimeSec int64  `json:"latest_block_timestamp"`
}

var blockNumberRequest = []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber","params":[]}`)

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// probeRPC asks the node for its head block. It returns the latency of the
// successful attempt.
func (d *Detector) probeRPC(ctx context.Context, t RPCTarget) (time.Duration, error) {
	var latency time.Duration
	op := func() error {
		body, elapsed, err := d.post(ctx, t.URL, blockNumberRequest)
		if err != nil {
			return err
		}
		latency = elapsed

		var resp rpcResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("decode rpc response: %w", err))
		}
		if resp.Error != nil {
			return fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		if _, err := strconv.ParseUint(strings.TrimPrefix(resp.Result, "0x"), 16, 64); err != nil {
			return backoff.Permanent(fmt.Errorf("invalid block number %q", resp.Result))
		}
		return nil
	}
	if err := backoff.Retry(op, d.retryPolicy(ctx)); err != nil {
		return 0, err
	}
	return latency, nil
}

// probeIndexer fetches the indexer's latest block time.
func (d *Detector) probeIndexer(ctx context.Context, t IndexerTarget) (time.Duration, time.Time, error) {
	var (
		latency time.Duration
		status  IndexerStatus
	)
	op := func() error {
		body, elapsed, err := d.get(ctx, t.URL)
		if err != nil {
			return err
		}
		latency = elapsed
		if err := json.Unmarshal(body, &status); err != nil {
			return backoff.Permanent(fmt.Errorf("decode indexer status: %w", err))
		}
		return nil
	}
	if err := backoff.Retry(op, d.retryPolicy(ctx)); err != nil {
		return 0, time.Time{}, err
	}
	return latency, time.Unix(status.LatestBlockTimeSec, 0).UTC(), nil
}

func (d *Detector) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.RetryInitialInterval
	b.MaxElapsedTime = d.cfg.ProbeTimeout
	return backoff.WithContext(backoff.WithMaxRetries(b, d.cfg.MaxRetries), ctx)
}

func (d *Detector) post(ctx context.Context, url string, payload []byte) ([]byte, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req)
}

func (d *Detector) get(ctx context.Context, url string) ([]byte, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	return d.do(req)
}

func (d *Detector) do(req *http.Request) ([]byte, time.Duration, error) {
	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	elapsed := time.Since(start)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, elapsed, nil
}
