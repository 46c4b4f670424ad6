package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

var (
	coinType    string
	viewArgs    []string
	viewTypeArg []string
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show the coin balance of an account",
	Args:  cobra.ExactArgs(1),
	Run:   runBalance,
}

var resourcesCmd = &cobra.Command{
	Use:   "resources [address]",
	Short: "List the resources of an account",
	Args:  cobra.ExactArgs(1),
	Run:   runResources,
}

var viewCmd = &cobra.Command{
	Use:   "view [address::module::function]",
	Short: "Call a view function",
	Args:  cobra.ExactArgs(1),
	Run:   runView,
}

var txCmd = &cobra.Command{
	Use:   "tx [hash]",
	Short: "Look up a transaction by hash",
	Args:  cobra.ExactArgs(1),
	Run:   runTx,
}

func init() {
	balanceCmd.Flags().StringVar(&coinType, "coin", domain.NativeCoinType, "coin type")
	viewCmd.Flags().StringArrayVar(&viewArgs, "arg", nil, "function argument (repeatable)")
	viewCmd.Flags().StringArrayVar(&viewTypeArg, "type-arg", nil, "type argument (repeatable)")

	rootCmd.AddCommand(balanceCmd, resourcesCmd, viewCmd, txCmd)
}

func queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("Failed to encode output", "error", err)
		os.Exit(1)
	}
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func runBalance(cmd *cobra.Command, args []string) {
	app, _ := newClient()
	ctx, cancel := queryContext()
	defer cancel()

	balance, err := app.GetBalance(ctx, args[0], coinType)
	if err != nil {
		fail("Failed to get balance", err)
	}
	if coinType == domain.NativeCoinType {
		fmt.Printf("%s octas (%s MOVE)\n", balance, formatMove(balance))
		return
	}
	fmt.Println(balance)
}

func runResources(cmd *cobra.Command, args []string) {
	app, _ := newClient()
	ctx, cancel := queryContext()
	defer cancel()

	res, err := app.GetAccountResources(ctx, args[0])
	if err != nil {
		fail("Failed to get resources", err)
	}
	printJSON(res)
}

func runView(cmd *cobra.Command, args []string) {
	app, _ := newClient()
	ctx, cancel := queryContext()
	defer cancel()

	if !domain.IsValidFunctionID(args[0]) {
		fail("Invalid function", fmt.Errorf("want address::module::function, got %q", args[0]))
	}
	module := strings.SplitN(args[0], "::", 3)
	contract, err := app.Contract(module[0], module[1])
	if err != nil {
		fail("Invalid module", err)
	}

	fnArgs := make([]any, 0, len(viewArgs))
	for _, a := range viewArgs {
		fnArgs = append(fnArgs, parseArg(a))
	}
	out, err := contract.View(ctx, module[2], fnArgs, viewTypeArg)
	if err != nil {
		fail("View call failed", err)
	}
	printJSON(out)
}

func runTx(cmd *cobra.Command, args []string) {
	app, _ := newClient()
	ctx, cancel := queryContext()
	defer cancel()

	txn, err := app.Chain().GetTransactionByHash(ctx, args[0])
	if err != nil {
		fail("Failed to get transaction", err)
	}
	printJSON(txn)
}

// parseArg keeps Move integers as strings and decodes JSON booleans,
// vectors and objects.
func parseArg(s string) any {
	switch {
	case s == "true":
		return true
	case s == "false":
		return false
	case strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{"):
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// formatMove renders an octa amount as MOVE with trailing zeros trimmed.
func formatMove(octas string) string {
	if len(octas) <= 8 {
		octas = strings.Repeat("0", 9-len(octas)) + octas
	}
	whole, frac := octas[:len(octas)-8], strings.TrimRight(octas[len(octas)-8:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
