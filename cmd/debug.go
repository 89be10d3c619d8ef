package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/cli"
	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/pkg/models"
)

// NewDebugCmd returns development helpers that act on the whole store.
func NewDebugCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Development helpers",
	}

	deleteAll := &cobra.Command{
		Use:   "delete-all",
		Short: "Erase every inventory",
		Args:  cobra.NoArgs,
		RunE: run(newClient, func(cmd *cobra.Command, _ []string) (agent.Request, error) {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return nil, errors.InvalidInput("delete-all erases every inventory; pass --yes to confirm")
			}
			return agent.DeleteAllData{}, nil
		}),
	}
	deleteAll.Flags().BoolP("yes", "y", false, "Confirm the deletion")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "make-inventory",
			Short: "Create a sample inventory",
			Args:  cobra.NoArgs,
			RunE: run(newClient, func(*cobra.Command, []string) (agent.Request, error) {
				return agent.MakeDebugInventory{}, nil
			}),
		},
		deleteAll,
		newDebugInspectCmd(newClient),
	)
	return cmd
}

// inspection is the JSON form of debug inspect.
type inspection struct {
	Inventories []models.Inventory `json:"inventories"`
	Violations  []string           `json:"violations"`
}

func newDebugInspectCmd(newClient ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Dump every inventory and check its back-references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, newClient)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.do(agent.GetInventories{})
			if err != nil {
				return err
			}
			inventories := resp.(agent.Inventories).Inventories
			report := inspection{Inventories: inventories, Violations: []string{}}
			for _, v := range models.CheckConsistency(inventories) {
				report.Violations = append(report.Violations, v.String())
			}

			if s.opts.JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), report)
			}
			for _, inv := range inventories {
				cli.RenderInventory(s.pretty, inv)
			}
			s.pretty.Divider()
			if len(report.Violations) == 0 {
				s.pretty.Success(fmt.Sprintf("%d inventories consistent", len(inventories)))
				return nil
			}
			for _, v := range report.Violations {
				s.pretty.WarnPretty(v)
			}
			return nil
		},
	}
}
