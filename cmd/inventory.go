package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/query"
)

// NewInventoryCmd returns the inventory command group.
func NewInventoryCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "Manage inventories",
	}
	cmd.AddCommand(
		newInventoryListCmd(newClient),
		newInventoryGetCmd(newClient),
		newInventoryCreateCmd(newClient),
		newInventoryUpdateCmd(newClient),
		newInventoryDeleteCmd(newClient),
	)
	return cmd
}

func newInventoryListCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventories",
		Long: `Lists every inventory. --where takes an expression over the inventory
fields (Name, Owner, Admins, Writables, Readables, Items) and --name takes
glob patterns; a pattern starting with ! excludes matches.

Examples:
  # inventories with at least three items
  pantry inventory list --where 'len(Items) >= 3'

  # everything named kitchen* except kitchen-old
  pantry inventory list --name 'kitchen*' --name '!kitchen-old'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			where, _ := cmd.Flags().GetString("where")
			names, _ := cmd.Flags().GetStringSlice("name")
			filter, err := query.Compile(where, names)
			if err != nil {
				return err
			}

			s, err := open(cmd, newClient)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.do(agent.GetInventories{})
			if err != nil {
				return err
			}
			list := resp.(agent.Inventories)
			if list.Inventories, err = filter.Apply(list.Inventories); err != nil {
				return err
			}
			return s.print(list)
		},
	}
	cmd.Flags().String("where", "", "Expression an inventory must satisfy")
	cmd.Flags().StringSlice("name", nil, "Glob patterns on the inventory name")
	return cmd
}

func newInventoryGetCmd(newClient ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "get <inventory>",
		Short: "Show an inventory with its items",
		Args:  cobra.ExactArgs(1),
		RunE: run(newClient, func(_ *cobra.Command, args []string) (agent.Request, error) {
			return agent.GetInventory{InventoryUUID: args[0]}, nil
		}),
	}
}

func newInventoryCreateCmd(newClient ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an inventory owned by the logged in user",
		Args:  cobra.ExactArgs(1),
		RunE: run(newClient, func(_ *cobra.Command, args []string) (agent.Request, error) {
			return agent.CreateInventory{Name: args[0]}, nil
		}),
	}
}

func newInventoryUpdateCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <inventory>",
		Short: "Rename an inventory or change its owner and access tiers",
		Long: `Updates the fields given by flags and keeps the rest. Tier flags replace
the whole tier.

Examples:
  pantry inventory update 5f0c... --name pantry --admin u2 --reader u3,u4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, newClient)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.do(agent.GetInventory{InventoryUUID: args[0]})
			if err != nil {
				return err
			}
			inv := resp.(agent.Inventory).Inventory
			req := agent.UpdateInventory{
				InventoryUUID: inv.UUID,
				Name:          inv.Name,
				Owner:         inv.Owner,
				Admins:        inv.Admins,
				Writables:     inv.Writables,
				Readables:     inv.Readables,
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name, _ = flags.GetString("name")
			}
			if flags.Changed("owner") {
				req.Owner, _ = flags.GetString("owner")
			}
			if flags.Changed("admin") {
				req.Admins, _ = flags.GetStringSlice("admin")
			}
			if flags.Changed("writer") {
				req.Writables, _ = flags.GetStringSlice("writer")
			}
			if flags.Changed("reader") {
				req.Readables, _ = flags.GetStringSlice("reader")
			}

			resp, err = s.do(req)
			if err != nil {
				return err
			}
			return s.print(resp)
		},
	}
	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("owner", "", "Transfer ownership to this user UUID")
	cmd.Flags().StringSlice("admin", nil, "Admin user UUIDs")
	cmd.Flags().StringSlice("writer", nil, "Writer user UUIDs")
	cmd.Flags().StringSlice("reader", nil, "Reader user UUIDs")
	return cmd
}

func newInventoryDeleteCmd(newClient ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <inventory>",
		Short: "Delete an inventory and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: run(newClient, func(_ *cobra.Command, args []string) (agent.Request, error) {
			return agent.DeleteInventory{InventoryUUID: args[0]}, nil
		}),
	}
}
