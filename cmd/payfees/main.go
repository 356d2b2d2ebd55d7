// Command payfees pays school fees from the terminal against a payfees
// backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	app := &app{}

	rootCmd := &cobra.Command{
		Use:     "payfees",
		Short:   "Pay school fees against a payfees backend",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.showMetrics {
				app.printMetrics(cmd.ErrOrStderr())
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.baseURL, "api", "", "backend base URL (default from API_BASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&app.showMetrics, "metrics", false, "print client request metrics to stderr")

	rootCmd.AddCommand(healthCmd(app))
	rootCmd.AddCommand(searchCmd(app))
	rootCmd.AddCommand(servicesCmd(app))
	rootCmd.AddCommand(payCmd(app))
	rootCmd.AddCommand(historyCmd(app))
	rootCmd.AddCommand(receiptCmd(app))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
