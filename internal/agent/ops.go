package agent

import (
	"fmt"
	"strings"

	"github.com/grovetools/pantry/pkg/models"
)

const debugInventoryName = "my inv"

// execute runs req against the collection. changed is true only for a
// successful mutation.
func (a *Agent) execute(req Request) (resp Response, changed bool) {
	switch r := req.(type) {
	case GetInventories:
		return Inventories{Inventories: models.CloneAll(a.inventories)}, false
	case GetInventory:
		inv := a.find(r.InventoryUUID)
		if inv == nil {
			return InvalidInventoryUUID{InventoryUUID: r.InventoryUUID}, false
		}
		return Inventory{Inventory: inv.Clone()}, false
	case GetItem:
		inv, item, miss := a.findItem(r.InventoryUUID, r.ItemUUID)
		if miss != nil {
			return miss, false
		}
		return Item{Item: inv.Items[item].Clone()}, false
	case CreateInventory:
		return a.createInventory(r)
	case UpdateInventory:
		return a.updateInventory(r)
	case DeleteInventory:
		return a.deleteInventory(r)
	case CreateItem:
		return a.createItem(r)
	case UpdateItem:
		return a.updateItem(r)
	case DeleteItem:
		return a.deleteItem(r)
	case CreateUnit:
		return a.createUnit(r)
	case MakeDebugInventory:
		var owner string
		if user, ok := a.currentUser(); ok {
			owner = user.UUID
		} else {
			owner = a.ids.ID()
		}
		inv := models.NewInventory(a.ids, debugInventoryName, owner)
		a.inventories = append(a.inventories, inv)
		return NewInventoryUUID{InventoryUUID: inv.UUID}, true
	case DeleteAllData:
		a.inventories = []models.Inventory{}
		return Inventories{Inventories: []models.Inventory{}}, true
	}
	return InvalidRequest{Op: fmt.Sprintf("%T", req), Reason: "unsupported request"}, false
}

func (a *Agent) createInventory(r CreateInventory) (Response, bool) {
	const op = "create inventory"
	user, ok := a.currentUser()
	if !ok {
		return Unauthorized{Op: op}, false
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return InvalidRequest{Op: op, Reason: "name must not be empty"}, false
	}
	inv := models.NewInventory(a.ids, name, user.UUID)
	a.inventories = append(a.inventories, inv)
	return NewInventoryUUID{InventoryUUID: inv.UUID}, true
}

func (a *Agent) updateInventory(r UpdateInventory) (Response, bool) {
	const op = "update inventory"
	user, ok := a.currentUser()
	if !ok {
		return Unauthorized{Op: op}, false
	}
	inv := a.find(r.InventoryUUID)
	if inv == nil {
		return InvalidInventoryUUID{InventoryUUID: r.InventoryUUID}, false
	}
	role := inv.Role(user.UUID)
	if denied := a.require(op, user, role, models.RoleAdmin); denied != nil {
		return denied, false
	}
	name := strings.TrimSpace(r.Name)
	owner := strings.TrimSpace(r.Owner)
	switch {
	case name == "":
		return InvalidRequest{Op: op, Reason: "name must not be empty"}, false
	case owner == "":
		return InvalidRequest{Op: op, Reason: "owner must not be empty"}, false
	}
	// Handing the inventory to someone else is the owner's call.
	if owner != inv.Owner {
		if denied := a.require("transfer inventory", user, role, models.RoleOwner); denied != nil {
			return denied, false
		}
	}

	inv.Name = name
	inv.Owner = owner
	inv.Admins = models.NormalizeTiers(owner, r.Admins)
	inv.Writables = models.NormalizeTiers(owner, r.Writables)
	inv.Readables = models.NormalizeTiers(owner, r.Readables)
	return UpdatedInventory{InventoryUUID: inv.UUID}, true
}

func (a *Agent) deleteInventory(r DeleteInventory) (Response, bool) {
	const op = "delete inventory"
	user, ok := a.currentUser()
	if !ok {
		return Unauthorized{Op: op}, false
	}
	i := a.index(r.InventoryUUID)
	if i < 0 {
		return InvalidInventoryUUID{InventoryUUID: r.InventoryUUID}, false
	}
	if denied := a.require(op, user, a.inventories[i].Role(user.UUID), models.RoleAdmin); denied != nil {
		return denied, false
	}
	a.inventories = append(a.inventories[:i], a.inventories[i+1:]...)
	return DeletedInventory{InventoryUUID: r.InventoryUUID}, true
}

func (a *Agent) createItem(r CreateItem) (Response, bool) {
	const op = "create item"
	user, ok := a.currentUser()
	if !ok {
		return Unauthorized{Op: op}, false
	}
	inv := a.find(r.InventoryUUID)
	if inv == nil {
		return InvalidInventoryUUID{InventoryUUID: r.InventoryUUID}, false
	}
	if denied := a.require(op, user, inv.Role(user.UUID), models.RoleWriter); denied != nil {
		return denied, false
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return InvalidRequest{Op: op, Reason: "name must not be empty"}, false
	}
	item := models.NewItem(a.ids, inv.UUID, name, r.EAN)
	inv.Items = append(inv.Items, item)
	return NewItemUUID{InventoryUUID: inv.UUID, ItemUUID: item.UUID}, true
}

func (a *Agent) updateItem(r UpdateItem) (Response, bool) {
	const op = "update item"
	user, ok := a.currentUser()
	if !ok {
		return Unauthorized{Op: op}, false
	}
	inv, i, miss := a.findItem(r.InventoryUUID, r.ItemUUID)
	if miss != nil {
		return miss, false
	}
	if denied := a.require(op, user, inv.Role(user.UUID), models.RoleWriter); denied != nil {
		return denied, false
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return InvalidRequest{Op: op, Reason: "name must not be empty"}, false
	}
	inv.Items[i].Name = name
	inv.Items[i].EAN = models.NormalizeEAN(r.EAN)
	return UpdatedItem{InventoryUUID: inv.UUID, ItemUUID: r.ItemUUID}, true
}

func (a *Agent) deleteItem(r DeleteItem) (Response, bool) {
	const op = "delete item"
	user, ok := a.currentUser()
	if !ok {
		return Unauthorized{Op: op}, false
	}
	inv, _, miss := a.findItem(r.InventoryUUID, r.ItemUUID)
	if miss != nil {
		return miss, false
	}
	if denied := a.require(op, user, inv.Role(user.UUID), models.RoleWriter); denied != nil {
		return denied, false
	}
	inv.RemoveItem(r.ItemUUID)
	return DeletedItem{InventoryUUID: inv.UUID, ItemUUID: r.ItemUUID}, true
}

func (a *Agent) createUnit(r CreateUnit) (Response, bool) {
	const op = "create unit"
	user, ok := a.currentUser()
	if !ok {
		return Unauthorized{Op: op}, false
	}
	inv, i, miss := a.findItem(r.InventoryUUID, r.ItemUUID)
	if miss != nil {
		return miss, false
	}
	if denied := a.require(op, user, inv.Role(user.UUID), models.RoleWriter); denied != nil {
		return denied, false
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return InvalidRequest{Op: op, Reason: "name must not be empty"}, false
	}
	unit := models.NewUnit(a.ids, r.ItemUUID, inv.UUID, name)
	inv.Items[i].Units = append(inv.Items[i].Units, unit)
	return NewUnitUUID{InventoryUUID: inv.UUID, ItemUUID: r.ItemUUID, UnitUUID: unit.UUID}, true
}

// currentUser reads the session at execution time, so a login that has
// not settled yet does not count.
func (a *Agent) currentUser() (models.UserInfo, bool) {
	if a.session == nil {
		return models.UserInfo{}, false
	}
	return a.session.Current().CurrentUser()
}

func (a *Agent) require(op string, user models.UserInfo, have, want models.Role) Response {
	if !a.enforce || have >= want {
		return nil
	}
	a.logger.WithField("user", user.Name).WithField("role", have.String()).Debugf("%s needs %s", op, want)
	return Forbidden{Op: op, User: user.UUID}
}

func (a *Agent) index(id string) int {
	for i := range a.inventories {
		if a.inventories[i].UUID == id {
			return i
		}
	}
	return -1
}

func (a *Agent) find(id string) *models.Inventory {
	if i := a.index(id); i >= 0 {
		return &a.inventories[i]
	}
	return nil
}

// findItem resolves an item, returning the failure response when either
// the inventory or the item is unknown.
func (a *Agent) findItem(invID, itemID string) (*models.Inventory, int, Response) {
	inv := a.find(invID)
	if inv == nil {
		return nil, -1, InvalidInventoryUUID{InventoryUUID: invID}
	}
	i := inv.FindItem(itemID)
	if i < 0 {
		return nil, -1, InvalidItemUUID{InventoryUUID: invID, ItemUUID: itemID}
	}
	return inv, i, nil
}
