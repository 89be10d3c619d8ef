package agent

import (
	"fmt"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/pkg/models"
)

// Response is the result of a Request. Entities inside a Response are
// copies; changing them does not affect the agent.
type Response interface {
	response()
}

type Inventories struct {
	Inventories []models.Inventory `json:"inventories"`
}

type Inventory struct {
	Inventory models.Inventory `json:"inventory"`
}

type Item struct {
	Item models.Item `json:"item"`
}

type NewInventoryUUID struct {
	InventoryUUID string `json:"inventory_uuid"`
}

type UpdatedInventory struct {
	InventoryUUID string `json:"inventory_uuid"`
}

type DeletedInventory struct {
	InventoryUUID string `json:"inventory_uuid"`
}

type NewItemUUID struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
}

type UpdatedItem struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
}

type DeletedItem struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
}

type NewUnitUUID struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
	UnitUUID      string `json:"unit_uuid"`
}

// InvalidInventoryUUID reports an unknown inventory.
type InvalidInventoryUUID struct {
	InventoryUUID string `json:"inventory_uuid"`
}

// InvalidItemUUID reports an unknown item in a known inventory.
type InvalidItemUUID struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
}

// Unauthorized reports a mutation attempted without a logged in session.
type Unauthorized struct {
	Op string `json:"op"`
}

// Forbidden reports a mutation outside the caller's access tier.
type Forbidden struct {
	Op   string `json:"op"`
	User string `json:"user"`
}

// InvalidRequest reports malformed input such as an empty name.
type InvalidRequest struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

func (Inventories) response()          {}
func (Inventory) response()            {}
func (Item) response()                 {}
func (NewInventoryUUID) response()     {}
func (UpdatedInventory) response()     {}
func (DeletedInventory) response()     {}
func (NewItemUUID) response()          {}
func (UpdatedItem) response()          {}
func (DeletedItem) response()          {}
func (NewUnitUUID) response()          {}
func (InvalidInventoryUUID) response() {}
func (InvalidItemUUID) response()      {}
func (Unauthorized) response()         {}
func (Forbidden) response()            {}
func (InvalidRequest) response()       {}

// cloneResponse copies the entities inside resp. Variants that carry only
// identifiers are returned as is.
func cloneResponse(resp Response) Response {
	switch r := resp.(type) {
	case Inventories:
		return Inventories{Inventories: models.CloneAll(r.Inventories)}
	case Inventory:
		return Inventory{Inventory: r.Inventory.Clone()}
	case Item:
		return Item{Item: r.Item.Clone()}
	}
	return resp
}

// AsError converts a failure response into a structured error. It returns
// nil for successful responses.
func AsError(resp Response) error {
	switch r := resp.(type) {
	case InvalidInventoryUUID:
		return errors.InventoryNotFound(r.InventoryUUID)
	case InvalidItemUUID:
		return errors.ItemNotFound(r.InventoryUUID, r.ItemUUID)
	case Unauthorized:
		return errors.Unauthorized(r.Op)
	case Forbidden:
		return errors.Forbidden(r.Op, r.User)
	case InvalidRequest:
		return errors.InvalidInput(fmt.Sprintf("%s: %s", r.Op, r.Reason)).WithDetail("op", r.Op)
	case nil:
		return errors.New(errors.ErrCodeInternal, "no response")
	}
	return nil
}

// Failed reports whether resp is a failure variant.
func Failed(resp Response) bool {
	return AsError(resp) != nil
}
