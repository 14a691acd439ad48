package asset

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/satlaunch/payloadledger/cmd/payloadctl/internal/app"
	payload "github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/contract"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a payload you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(); err != nil {
			return err
		}
		var a *payload.Asset
		err := submit(cmd, func(ctx context.Context, rt *app.Runtime, tc contract.TxContext) (err error) {
			a, err = rt.Service.QueryOne(ctx, tc, args[0])
			return err
		})
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(a)
		}
		return renderTable(assetTable([]contract.Snapshot{{Key: a.AssetID, Asset: a}}))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the payloads visible to your role",
	Long: `Lists payloads. Admins, customers and regulators see every payload, payload
owners see their own, and launchers see unassigned payloads and their own.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(); err != nil {
			return err
		}
		var snaps []contract.Snapshot
		err := submit(cmd, func(ctx context.Context, rt *app.Runtime, tc contract.TxContext) (err error) {
			snaps, err = rt.Service.QueryAll(ctx, tc)
			return err
		})
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(snaps)
		}
		if len(snaps) == 0 {
			pterm.Info.Println("No payloads visible.")
			return nil
		}
		return renderTable(assetTable(snaps))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show every committed change to a payload",
	Long: `Shows the commit history of a payload, oldest first. Timestamps are rendered
in PAYLOADLEDGER_HISTORY_TIMEZONE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(); err != nil {
			return err
		}
		loc, err := app.MustFromContext(cmd.Context()).Config.HistoryLocation()
		if err != nil {
			return err
		}

		var entries []contract.HistoryEntry
		err = submit(cmd, func(ctx context.Context, rt *app.Runtime, tc contract.TxContext) (err error) {
			entries, err = rt.Service.History(ctx, tc, args[0])
			return err
		})
		if err != nil {
			return err
		}
		if output == "json" {
			for i := range entries {
				entries[i].Timestamp = entries[i].Timestamp.In(loc)
			}
			return printJSON(entries)
		}
		return renderTable(historyTable(entries, loc))
	},
}
