package policy

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/satlaunch/payloadledger/cmd/payloadctl/internal/app"
	"github.com/satlaunch/payloadledger/internal/auth"
	"github.com/satlaunch/payloadledger/internal/config"
)

var scope string

// PolicyCmd is the parent command for policy table operations
var PolicyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and edit the role policy table",
	Long: `Commands for the (role, action, scope) table that decides which roles may run
which payload operations. Edits need PAYLOADLEDGER_POLICY_SOURCE=database.`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List policy rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.MustFromContext(cmd.Context())
		rt, err := a.Open()
		if err != nil {
			return err
		}
		defer rt.Close()

		rules, err := rt.Engine.Rules()
		if err != nil {
			return err
		}
		pterm.Info.Printf("Policy source: %s\n", a.Config.PolicySource)
		return pterm.DefaultTable.WithHasHeader().WithData(rulesTable(rules)).Render()
	},
}

var grantCmd = &cobra.Command{
	Use:   "grant <role> <action>",
	Short: "Allow a role to run an action",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, auth.Rule{Role: args[0], Action: args[1], Scope: scope}, true)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <role> <action>",
	Short: "Remove a policy rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, auth.Rule{Role: args[0], Action: args[1], Scope: scope}, false)
	},
}

func edit(cmd *cobra.Command, rule auth.Rule, grant bool) error {
	a := app.MustFromContext(cmd.Context())
	if a.Config.PolicySource != config.PolicySourceDatabase {
		return fmt.Errorf("policy edits need policy source %q, got %q", config.PolicySourceDatabase, a.Config.PolicySource)
	}

	rt, err := a.Open()
	if err != nil {
		return err
	}
	defer rt.Close()

	if grant {
		added, err := rt.Engine.Grant(rule)
		if err != nil {
			return err
		}
		if !added {
			pterm.Info.Printf("Rule %s already present\n", describe(rule))
			return nil
		}
		pterm.Success.Printf("Granted %s\n", describe(rule))
		return nil
	}

	removed, err := rt.Engine.Revoke(rule)
	if err != nil {
		return err
	}
	if !removed {
		pterm.Info.Printf("Rule %s not present\n", describe(rule))
		return nil
	}
	pterm.Success.Printf("Revoked %s\n", describe(rule))
	return nil
}

func describe(r auth.Rule) string {
	return fmt.Sprintf("%s %s (%s)", r.Role, r.Action, r.Scope)
}

func rulesTable(rules []auth.Rule) pterm.TableData {
	table := pterm.TableData{{"ROLE", "ACTION", "SCOPE"}}
	for _, r := range rules {
		table = append(table, []string{r.Role, r.Action, r.Scope})
	}
	return table
}

func init() {
	for _, c := range []*cobra.Command{grantCmd, revokeCmd} {
		c.Flags().StringVar(&scope, "scope", auth.ScopeAny, "Rule scope: any or owner")
	}
	PolicyCmd.AddCommand(listCmd)
	PolicyCmd.AddCommand(grantCmd)
	PolicyCmd.AddCommand(revokeCmd)
}
