// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
)

// ProbeResult is the outcome of one health probe.
type ProbeResult struct {
	Path   string
	Status int
	Body   string
}

// Healthy reports whether the probe answered 200.
func (r ProbeResult) Healthy() bool {
	return r.Status == http.StatusOK
}

// Probe queries the liveness and readiness endpoints of a running server at
// addr. A connection failure is returned as an error; a non-200 answer is
// not.
func Probe(ctx context.Context, client *http.Client, addr string) ([]ProbeResult, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	results := make([]ProbeResult, 0, 2)
	for _, path := range []string{LivenessPath, ReadinessPath} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return nil, oops.Code("PROBE_REQUEST_INVALID").With("addr", addr).Wrap(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, oops.Code("PROBE_UNREACHABLE").With("addr", addr).With("path", path).Wrap(err)
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, oops.Code("PROBE_READ_FAILED").With("path", path).Wrap(readErr)
		}
		results = append(results, ProbeResult{
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		})
	}
	return results, nil
}
