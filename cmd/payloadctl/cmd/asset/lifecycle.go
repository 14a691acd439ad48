package asset

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/satlaunch/payloadledger/cmd/payloadctl/internal/app"
	payload "github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/contract"
)

var (
	detailsFile   string
	detailsOwner  string
	frequencyBand string
	cubesatSize   string
	mass          string
)

func addDetailFlags(cmd *cobra.Command, withOwner bool) {
	cmd.Flags().StringVarP(&detailsFile, "file", "f", "", "Read the payload details JSON document from a file (- for stdin)")
	if withOwner {
		cmd.Flags().StringVar(&detailsOwner, "owner", "", "Payload owner")
	}
	cmd.Flags().StringVar(&frequencyBand, "frequency-band", "", "Frequency band, e.g. 2GHz")
	cmd.Flags().StringVar(&cubesatSize, "cubesat-size", "", "Form factor: 1U, 2U, 3U, 6U or 12U")
	cmd.Flags().StringVar(&mass, "mass", "", "Payload mass, e.g. 2kg")
}

// readDetails builds the details document from --file, or from the id argument
// and the individual field flags.
func readDetails(args []string) (payload.Details, error) {
	if detailsFile != "" {
		var (
			raw []byte
			err error
		)
		if detailsFile == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(detailsFile)
		}
		if err != nil {
			return payload.Details{}, fmt.Errorf("read details: %w", err)
		}
		d, err := payload.ParseDetails(raw)
		if err != nil {
			return payload.Details{}, err
		}
		if len(args) == 1 && d.ID == "" {
			d.ID = args[0]
		}
		return d, nil
	}

	if len(args) != 1 {
		return payload.Details{}, fmt.Errorf("asset id is required unless --file is given")
	}
	return payload.Details{
		ID:            args[0],
		Owner:         detailsOwner,
		FrequencyBand: frequencyBand,
		CubesatSize:   cubesatSize,
		Mass:          mass,
	}, nil
}

func printAsset(verb string, a *payload.Asset) error {
	if output == "json" {
		return printJSON(a)
	}
	pterm.Success.Printf("%s %s: %s\n", verb, a.AssetID, a.State)
	return renderTable(assetTable([]contract.Snapshot{{Key: a.AssetID, Asset: a}}))
}

var bookCmd = &cobra.Command{
	Use:   "book [id]",
	Short: "Book a flight slot for a payload",
	Long: `Books a payload. Details come from a JSON document
{"id","owner","frequencyBand","cubesatSize","mass"} given with --file,
or from the id argument and field flags.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(); err != nil {
			return err
		}
		d, err := readDetails(args)
		if err != nil {
			return err
		}
		var a *payload.Asset
		err = submit(cmd, func(ctx context.Context, rt *app.Runtime, tc contract.TxContext) (err error) {
			a, err = rt.Service.Book(ctx, tc, d)
			return err
		})
		if err != nil {
			return err
		}
		return printAsset("Booked", a)
	},
}

var modifyCmd = &cobra.Command{
	Use:   "modify [id]",
	Short: "Replace the frequency band, size and mass of a payload",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(); err != nil {
			return err
		}
		d, err := readDetails(args)
		if err != nil {
			return err
		}
		var a *payload.Asset
		err = submit(cmd, func(ctx context.Context, rt *app.Runtime, tc contract.TxContext) (err error) {
			a, err = rt.Service.Modify(ctx, tc, d)
			return err
		})
		if err != nil {
			return err
		}
		return printAsset("Modified", a)
	},
}

type transitionFunc func(s *contract.Service, ctx context.Context, tc contract.TxContext, id string) (*payload.Asset, error)

func transitionCmd(use, short, verb string, run transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(); err != nil {
				return err
			}
			var a *payload.Asset
			err := submit(cmd, func(ctx context.Context, rt *app.Runtime, tc contract.TxContext) (err error) {
				a, err = run(rt.Service, ctx, tc, args[0])
				return err
			})
			if err != nil {
				return err
			}
			return printAsset(verb, a)
		},
	}
}

var (
	verifyCmd  = transitionCmd("verify", "Verify payload details and take it on as launcher", "Verified", (*contract.Service).Verify)
	shipCmd    = transitionCmd("ship", "Mark a payload as shipped to the launcher", "Shipped", (*contract.Service).Ship)
	receiveCmd = transitionCmd("receive", "Mark a payload as received by the launcher", "Received", (*contract.Service).Receive)
	clearCmd   = transitionCmd("clear", "Clear a payload for flight", "Cleared", (*contract.Service).ClearForFlight)
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a payload record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := submit(cmd, func(ctx context.Context, rt *app.Runtime, tc contract.TxContext) error {
			return rt.Service.Delete(ctx, tc, args[0])
		})
		if err != nil {
			return err
		}
		pterm.Success.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	addDetailFlags(bookCmd, true)
	addDetailFlags(modifyCmd, false)
}
