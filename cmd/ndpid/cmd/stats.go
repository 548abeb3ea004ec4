package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/xlab/tablewriter"

	"github.com/ndpid/ndpid-go/pkg/formatting"
	"github.com/ndpid/ndpid-go/pkg/worker"
)

const statsFetchTimeout = 5 * time.Second

func newStatsCmd() *cobra.Command {
	var apiAddr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-worker counters from a running ndpid's status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := fetchStats(apiAddr)
			if err != nil {
				return fmt.Errorf("failed to fetch stats from %q: %w", apiAddr, err)
			}
			fmt.Println(renderStatsTable(stats))
			return nil
		},
	}

	cmd.Flags().StringVar(&apiAddr, "api-addr", "http://127.0.0.1:6060", "address of ndpid's status API")
	return cmd
}

func fetchStats(apiAddr string) ([]worker.Stats, error) {
	httpClient := &http.Client{Timeout: statsFetchTimeout}

	resp, err := httpClient.Get(apiAddr + "/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var stats []worker.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats response: %w", err)
	}
	return stats, nil
}

func renderStatsTable(stats []worker.Stats) string {
	table := tablewriter.CreateTable()
	table.UTF8Box()
	table.AddTitle("ndpid worker stats")

	table.AddRow("thread", "captured", "processed", "l4 bytes", "detected", "active flows", "stopped")
	table.AddSeparator()

	for _, st := range stats {
		table.AddRow(
			st.ThreadID,
			formatting.Countable(st.PacketsCaptured),
			formatting.Countable(st.PacketsProcessed),
			formatting.Sizeable(st.TotalL4DataLen),
			formatting.Countable(st.DetectedFlowProtocols),
			st.ActiveFlows,
			st.ErrorOrEOF,
		)
	}

	for i := 1; i <= 6; i++ {
		table.SetAlign(tablewriter.AlignRight, i)
	}

	return table.Render()
}
