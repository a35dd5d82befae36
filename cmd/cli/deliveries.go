package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/reelforge/hookrelay/internal/wire"
)

var deliveriesLimit int

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "Shows the most recent rows of the delivery ledger",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		deliveries, err := app.Store.ListRecentDeliveries(ctx, deliveriesLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve deliveries: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(deliveries)
		}

		if len(deliveries) == 0 {
			fmt.Println("The delivery ledger is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "DELIVERY\tEVENT\tRECEIVED")
		for _, d := range deliveries {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				d.DeliveryID,
				d.EventType,
				d.ReceivedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	deliveriesCmd.Flags().IntVar(&deliveriesLimit, "limit", 20, "Maximum number of ledger rows to list")
	rootCmd.AddCommand(deliveriesCmd)
}
