// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hashlock/hashlock/internal/observability"
)

// ProbeStatus is one line of `hashlock status` output.
type ProbeStatus struct {
	Probe  string `json:"probe"`
	Status int    `json:"status"`
	Body   string `json:"body"`
	Health string `json:"health"`
}

// ServiceStatus is the full `hashlock status` report.
type ServiceStatus struct {
	Addr    string        `json:"addr"`
	Running bool          `json:"running"`
	Ready   bool          `json:"ready"`
	Probes  []ProbeStatus `json:"probes,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type statusConfig struct {
	jsonOutput bool
	timeout    time.Duration
}

func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the health probes of a running server",
		Long: `Query the liveness and readiness probes served on the observability
address of a running hashlock server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 3*time.Second, "probe timeout")

	return cmd
}

func runStatus(cmd *cobra.Command, sc *statusConfig) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Observability.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("observability.addr is empty, there is nothing to query")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sc.timeout)
	defer cancel()
	status := queryStatus(ctx, cfg.Observability.Addr)

	if sc.jsonOutput {
		out, err := formatStatusJSON(status)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
	} else {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), formatStatusTable(status))
	}

	if !status.Ready {
		return oops.Code("NOT_READY").With("addr", status.Addr).Errorf("hashlock is not ready")
	}
	return nil
}

func queryStatus(ctx context.Context, addr string) ServiceStatus {
	status := ServiceStatus{Addr: addr}

	results, err := observability.Probe(ctx, nil, addr)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Running = true
	status.Ready = true
	for _, r := range results {
		health := "ok"
		if !r.Healthy() {
			health = "failing"
			status.Ready = false
		}
		status.Probes = append(status.Probes, ProbeStatus{
			Probe:  r.Path,
			Status: r.Status,
			Body:   r.Body,
			Health: health,
		})
	}
	return status
}

func formatStatusTable(status ServiceStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "hashlock at %s\n", status.Addr)
	if !status.Running {
		_, _ = fmt.Fprintf(w, "not running: %s\n", status.Error)
		_ = w.Flush()
		return string(buf)
	}

	_, _ = fmt.Fprintln(w, "PROBE\tHTTP\tHEALTH")
	for _, p := range status.Probes {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", p.Probe, p.Status, p.Health)
	}
	_ = w.Flush()
	return string(buf)
}

func formatStatusJSON(status ServiceStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_ENCODE_FAILED").Wrap(err)
	}
	return string(data), nil
}
