package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe a device and report connection state and metrics",
	Long: `Connect to a device, run the power register probe, and report the
resulting connection state together with transfer metrics.`,
	Example: `  acbridge status -H 192.168.1.100
  acbridge status -H 192.168.1.100 -o json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, err := buildHub()
	if err != nil {
		return err
	}
	defer h.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), timeout*4)
	defer cancel()

	connectErr := h.Connect(ctx)
	st := h.Status()

	if outputFmt == "json" {
		return printJSON(map[string]any{
			"status":  st,
			"metrics": h.Metrics().Collect(),
		})
	}

	if connectErr != nil {
		outputError("Connection to %s failed: %v", getAddress(), connectErr)
	} else {
		outputSuccess("Connected to %s", getAddress())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Host\t%s\n", st.Host)
	fmt.Fprintf(w, "Port\t%d\n", st.Port)
	fmt.Fprintf(w, "Unit ID\t%d\n", st.UnitID)
	fmt.Fprintf(w, "Connected\t%t\n", st.Connected)
	if !st.ConnectedAt.IsZero() {
		fmt.Fprintf(w, "Connected at\t%s\n", st.ConnectedAt.Format(time.RFC3339))
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "Last error\t%s\n", st.LastError)
		fmt.Fprintf(w, "Last error at\t%s\n", st.LastErrorTime.Format(time.RFC3339))
	}
	if st.BackoffCount > 0 {
		fmt.Fprintf(w, "Backoff count\t%d\n", st.BackoffCount)
	}
	w.Flush()

	fmt.Println()
	outputInfo("Metrics")
	m := h.Metrics()
	stats := m.Latency.Stats()
	w = tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Reads\t%d\n", m.ReadsTotal.Value())
	fmt.Fprintf(w, "Writes\t%d\n", m.WritesTotal.Value())
	fmt.Fprintf(w, "Errors\t%d\n", m.ErrorsTotal.Value())
	fmt.Fprintf(w, "Reconnects\t%d\n", m.Reconnects.Value())
	if stats.Count > 0 {
		fmt.Fprintf(w, "Latency avg\t%.2fms\n", stats.Avg)
		fmt.Fprintf(w, "Latency min\t%.2fms\n", stats.Min)
		fmt.Fprintf(w, "Latency max\t%.2fms\n", stats.Max)
	}
	w.Flush()

	if connectErr != nil {
		return fmt.Errorf("device unreachable")
	}
	return nil
}
