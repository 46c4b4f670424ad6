package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/movement-kit/internal/events"
)

var (
	watchEvent   string
	watchAccount string
	watchHandle  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll an event stream and log every new event",
	Run:   runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchEvent, "event", "", "event type, e.g. 0x1::coin::DepositEvent")
	watchCmd.Flags().StringVar(&watchAccount, "account", "", "only events emitted by this account")
	watchCmd.Flags().StringVar(&watchHandle, "handle", "", "event handle, either address::module::Event or struct/field")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	app, _ := newClient()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	id, err := app.Events().Subscribe(events.SubscriptionConfig{
		AccountAddress: watchAccount,
		EventType:      watchEvent,
		EventHandle:    watchHandle,
		Handler:        logEvent,
	})
	if err != nil {
		fail("Failed to subscribe", err)
	}
	slog.Info("Watching events", "id", id, "event", watchEvent, "handle", watchHandle, "account", watchAccount)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
