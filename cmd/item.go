package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/internal/agent"
)

// NewItemCmd returns the item command group.
func NewItemCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage the items of an inventory",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <inventory> <item>",
			Short: "Show an item with its units",
			Args:  cobra.ExactArgs(2),
			RunE: run(newClient, func(_ *cobra.Command, args []string) (agent.Request, error) {
				return agent.GetItem{InventoryUUID: args[0], ItemUUID: args[1]}, nil
			}),
		},
		newItemCreateCmd(newClient),
		newItemUpdateCmd(newClient),
		&cobra.Command{
			Use:   "delete <inventory> <item>",
			Short: "Delete an item and its units",
			Args:  cobra.ExactArgs(2),
			RunE: run(newClient, func(_ *cobra.Command, args []string) (agent.Request, error) {
				return agent.DeleteItem{InventoryUUID: args[0], ItemUUID: args[1]}, nil
			}),
		},
	)
	return cmd
}

// eanFlag returns the --ean value, or nil when the flag was not given.
func eanFlag(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("ean") {
		return nil
	}
	ean, _ := cmd.Flags().GetString("ean")
	return &ean
}

func newItemCreateCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <inventory> <name>",
		Short: "Add an item to an inventory",
		Args:  cobra.ExactArgs(2),
		RunE: run(newClient, func(cmd *cobra.Command, args []string) (agent.Request, error) {
			return agent.CreateItem{InventoryUUID: args[0], Name: args[1], EAN: eanFlag(cmd)}, nil
		}),
	}
	cmd.Flags().String("ean", "", "European Article Number of the product")
	return cmd
}

func newItemUpdateCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <inventory> <item> <name>",
		Short: "Rename an item or change its EAN",
		Long:  "Replaces the item's name and EAN. Without --ean the EAN is cleared.",
		Args:  cobra.ExactArgs(3),
		RunE: run(newClient, func(cmd *cobra.Command, args []string) (agent.Request, error) {
			return agent.UpdateItem{InventoryUUID: args[0], ItemUUID: args[1], Name: args[2], EAN: eanFlag(cmd)}, nil
		}),
	}
	cmd.Flags().String("ean", "", "European Article Number of the product")
	return cmd
}

// NewUnitCmd returns the unit command group.
func NewUnitCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unit",
		Short: "Manage the physical units of an item",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <inventory> <item> <name>",
		Short: "Record a new unit of an item",
		Args:  cobra.ExactArgs(3),
		RunE: run(newClient, func(_ *cobra.Command, args []string) (agent.Request, error) {
			return agent.CreateUnit{InventoryUUID: args[0], ItemUUID: args[1], Name: args[2]}, nil
		}),
	})
	return cmd
}
