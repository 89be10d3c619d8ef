package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/grovetools/pantry/logging"
	"github.com/grovetools/pantry/pkg/models"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderInventories prints a one-line summary per inventory.
func RenderInventories(p *logging.PrettyLogger, inventories []models.Inventory) {
	if len(inventories) == 0 {
		p.Muted(0, "no inventories")
		return
	}
	for _, inv := range inventories {
		p.Field(0, inv.Name, fmt.Sprintf("%s (%d items, owner %s)", inv.UUID, len(inv.Items), inv.Owner))
	}
}

// RenderInventory prints an inventory with its tiers, items and units.
func RenderInventory(p *logging.PrettyLogger, inv models.Inventory) {
	p.Field(0, "inventory", inv.Name)
	p.Field(1, "uuid", inv.UUID)
	p.Field(1, "owner", inv.Owner)
	for _, tier := range []struct {
		name  string
		users []string
	}{{"admins", inv.Admins}, {"writables", inv.Writables}, {"readables", inv.Readables}} {
		if len(tier.users) > 0 {
			p.Field(1, tier.name, strings.Join(tier.users, ", "))
		}
	}
	if len(inv.Items) == 0 {
		p.Muted(1, "no items")
		return
	}
	for _, item := range inv.Items {
		RenderItem(p, 1, item)
	}
}

// RenderItem prints an item and its units at depth.
func RenderItem(p *logging.PrettyLogger, depth int, item models.Item) {
	label := item.UUID
	if item.EAN != nil {
		label += " ean " + *item.EAN
	}
	p.Field(depth, item.Name, label)
	for _, unit := range item.Units {
		p.Muted(depth+1, unit.Name+" "+unit.UUID)
	}
}
