package models

import "fmt"

// Violation describes a broken back-reference.
type Violation struct {
	InventoryUUID string
	ItemUUID      string
	UnitUUID      string
	Field         string
	Have          string
	Want          string
}

func (v Violation) String() string {
	return fmt.Sprintf("inventory=%s item=%s unit=%s: %s is %q, want %q",
		v.InventoryUUID, v.ItemUUID, v.UnitUUID, v.Field, v.Have, v.Want)
}

// CheckConsistency returns every Item and Unit whose back-references do not
// match their containers.
func CheckConsistency(inventories []Inventory) []Violation {
	var out []Violation
	for _, inv := range inventories {
		for _, item := range inv.Items {
			if item.InventoryUUID != inv.UUID {
				out = append(out, Violation{
					InventoryUUID: inv.UUID, ItemUUID: item.UUID,
					Field: "item.inventory_uuid", Have: item.InventoryUUID, Want: inv.UUID,
				})
			}
			for _, unit := range item.Units {
				if unit.ItemUUID != item.UUID {
					out = append(out, Violation{
						InventoryUUID: inv.UUID, ItemUUID: item.UUID, UnitUUID: unit.UUID,
						Field: "unit.item_uuid", Have: unit.ItemUUID, Want: item.UUID,
					})
				}
				if unit.InventoryUUID != inv.UUID {
					out = append(out, Violation{
						InventoryUUID: inv.UUID, ItemUUID: item.UUID, UnitUUID: unit.UUID,
						Field: "unit.inventory_uuid", Have: unit.InventoryUUID, Want: inv.UUID,
					})
				}
			}
		}
	}
	return out
}

// Repair rewrites back-references to match their containers and fills nil
// collections, returning how many references were changed.
func Repair(inventories []Inventory) int {
	fixed := 0
	for i := range inventories {
		inv := &inventories[i]
		if inv.Admins == nil {
			inv.Admins = []string{}
		}
		if inv.Writables == nil {
			inv.Writables = []string{}
		}
		if inv.Readables == nil {
			inv.Readables = []string{}
		}
		if inv.Items == nil {
			inv.Items = []Item{}
		}
		for j := range inv.Items {
			item := &inv.Items[j]
			if item.InventoryUUID != inv.UUID {
				item.InventoryUUID = inv.UUID
				fixed++
			}
			if item.Units == nil {
				item.Units = []Unit{}
			}
			for k := range item.Units {
				unit := &item.Units[k]
				if unit.ItemUUID != item.UUID {
					unit.ItemUUID = item.UUID
					fixed++
				}
				if unit.InventoryUUID != inv.UUID {
					unit.InventoryUUID = inv.UUID
					fixed++
				}
			}
		}
	}
	return fixed
}
