package cmd

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/satlaunch/payloadledger/cmd/payloadctl/internal/app"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the event outbox",
	Long:  `Commands for reading events committed alongside ledger transactions.`,
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.MustFromContext(cmd.Context())
		rt, err := a.Open()
		if err != nil {
			return err
		}
		defer rt.Close()

		evts, err := rt.Ledger.ListEvents(cmd.Context(), eventsLimit)
		if err != nil {
			return err
		}
		if len(evts) == 0 {
			pterm.Info.Println("No events recorded.")
			return nil
		}

		table := pterm.TableData{{"CREATED", "TOPIC", "TX_ID", "PAYLOAD"}}
		for _, e := range evts {
			table = append(table, []string{e.CreatedAt.Format(time.RFC3339), e.Topic, e.TxID, string(e.Payload)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

func init() {
	eventsListCmd.Flags().IntVar(&eventsLimit, "limit", 20, "Maximum number of events to show (0 for all)")
	eventsCmd.AddCommand(eventsListCmd)
	rootCmd.AddCommand(eventsCmd)
}
