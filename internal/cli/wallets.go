package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

var addressCmd = &cobra.Command{
	Use:   "address [address]",
	Short: "Validate an account address and print its long and short forms",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		full, ok := domain.NormalizeAddress(args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid address %q\n", args[0])
			os.Exit(1)
		}
		fmt.Println(full)
		fmt.Println(domain.ShortAddress(full))
	},
}

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "List the supported wallet families",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "TYPE\tMATCHES")
		for _, t := range domain.SupportedWalletTypes {
			_, _ = fmt.Fprintf(w, "%s\t%v\n", t, domain.WalletAliases(t))
		}
		_ = w.Flush()
	},
}

var forgetWalletCmd = &cobra.Command{
	Use:   "forget-wallet",
	Short: "Clear the remembered wallet so the next start does not auto-connect",
	Run: func(cmd *cobra.Command, args []string) {
		app, cfg := newClient()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		app.Wallets().Disconnect(ctx)
		if err := app.Stop(ctx); err != nil {
			fail("Failed to close storage", err)
		}
		fmt.Printf("Cleared remembered wallet from %s storage\n", cfg.Wallet.Storage)
	},
}

func init() {
	rootCmd.AddCommand(addressCmd, walletsCmd, forgetWalletCmd)
}
