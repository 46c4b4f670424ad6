package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/movement-kit/internal/infra/rpc"
)

var showDashboard bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ledger head and the state of every RPC provider",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&showDashboard, "dashboard", false, "also print the detailed provider monitor dashboard")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	app, _ := newClient()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := app.Health().CheckHealth(ctx)
	info, err := app.Chain().GetLedgerInfo(ctx)
	if err != nil {
		slog.Error("Failed to get ledger info", "error", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NETWORK\tCHAIN ID\tLEDGER VERSION\tBLOCK HEIGHT\tSTATUS")
	if info != nil {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", report.Network, info.ChainID, info.LedgerVersion, info.BlockHeight, report.SystemStatus)
	} else {
		_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\t%s\n", report.Network, report.SystemStatus)
	}
	_ = w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "POOL\tPROVIDER\tSTATUS\tAVAILABLE\tLATENCY\tERROR RATE\tREQ/1H")
	for _, pool := range []string{rpc.PoolNode, rpc.PoolIndexer} {
		stats := app.RPC().GetProviderStats(pool)
		for _, p := range app.RPC().Providers(pool) {
			h := p.GetHealth()
			s := stats[p.GetName()]
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%.1f%%\t%d\n",
				pool, p.GetName(), s.Status, h.Available, h.Latency.Round(time.Millisecond), h.ErrorRate*100, s.RequestsLast1Hour)
		}
	}
	_ = w.Flush()

	if showDashboard {
		fmt.Print(app.RPC().PrintMonitorDashboard(rpc.PoolNode, rpc.PoolIndexer))
	}
}
