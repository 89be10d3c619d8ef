// Package models defines the inventory domain: Inventories, Items and Units.
package models

import (
	"strings"

	"github.com/grovetools/pantry/pkg/ident"
)

// Inventory is a named container of Items with an owner and three access tiers.
// The owner is implicit and never listed in Admins, Writables or Readables.
type Inventory struct {
	UUID      string   `json:"uuid"`
	Name      string   `json:"name"`
	Owner     string   `json:"owner"`
	Admins    []string `json:"admins"`
	Writables []string `json:"writables"`
	Readables []string `json:"readables"`
	Items     []Item   `json:"items"`
}

// Item is a distinct product type within an Inventory.
type Item struct {
	UUID          string  `json:"uuid"`
	InventoryUUID string  `json:"inventory_uuid"`
	Name          string  `json:"name"`
	EAN           *string `json:"ean,omitempty"`
	Units         []Unit  `json:"units"`
}

// Unit is one trackable physical instance of an Item.
// InventoryUUID is denormalized and must agree with the Item's inventory.
type Unit struct {
	UUID          string `json:"uuid"`
	ItemUUID      string `json:"item_uuid"`
	InventoryUUID string `json:"inventory_uuid"`
	Name          string `json:"name"`
}

// NewInventory creates an empty Inventory owned by owner.
func NewInventory(ids ident.IDer, name, owner string) Inventory {
	return Inventory{
		UUID:      ids.ID(),
		Name:      name,
		Owner:     owner,
		Admins:    []string{},
		Writables: []string{},
		Readables: []string{},
		Items:     []Item{},
	}
}

// NewItem creates an Item without Units belonging to inventoryID.
func NewItem(ids ident.IDer, inventoryID, name string, ean *string) Item {
	return Item{
		UUID:          ids.ID(),
		InventoryUUID: inventoryID,
		Name:          name,
		EAN:           NormalizeEAN(ean),
		Units:         []Unit{},
	}
}

// NewUnit creates a Unit of itemID in inventoryID.
func NewUnit(ids ident.IDer, itemID, inventoryID, name string) Unit {
	return Unit{
		UUID:          ids.ID(),
		ItemUUID:      itemID,
		InventoryUUID: inventoryID,
		Name:          name,
	}
}

// NormalizeEAN treats a present but blank EAN code as absent.
func NormalizeEAN(ean *string) *string {
	if ean == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ean)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// FindItem returns the index of the Item with id, or -1.
func (inv *Inventory) FindItem(id string) int {
	for i := range inv.Items {
		if inv.Items[i].UUID == id {
			return i
		}
	}
	return -1
}

// RemoveItem deletes the Item with id, preserving order. It reports whether
// an Item was removed.
func (inv *Inventory) RemoveItem(id string) bool {
	i := inv.FindItem(id)
	if i < 0 {
		return false
	}
	inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
	return true
}

// Clone returns a deep copy of the Inventory.
func (inv Inventory) Clone() Inventory {
	out := inv
	out.Admins = cloneStrings(inv.Admins)
	out.Writables = cloneStrings(inv.Writables)
	out.Readables = cloneStrings(inv.Readables)
	out.Items = make([]Item, len(inv.Items))
	for i, item := range inv.Items {
		out.Items[i] = item.Clone()
	}
	return out
}

// Clone returns a deep copy of the Item.
func (item Item) Clone() Item {
	out := item
	if item.EAN != nil {
		ean := *item.EAN
		out.EAN = &ean
	}
	out.Units = make([]Unit, len(item.Units))
	copy(out.Units, item.Units)
	return out
}

// CloneAll deep copies a collection of Inventories.
func CloneAll(inventories []Inventory) []Inventory {
	out := make([]Inventory, len(inventories))
	for i, inv := range inventories {
		out[i] = inv.Clone()
	}
	return out
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
