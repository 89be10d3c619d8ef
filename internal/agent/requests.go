package agent

// Request is one of the operations the agent executes. The set is closed;
// handlers switch over it exhaustively.
type Request interface {
	request()
}

// GetInventories returns every inventory.
type GetInventories struct{}

// GetInventory looks up one inventory.
type GetInventory struct {
	InventoryUUID string `json:"inventory_uuid"`
}

// CreateInventory creates an inventory owned by the current user.
type CreateInventory struct {
	Name string `json:"name"`
}

// UpdateInventory replaces an inventory's mutable fields. Its UUID and
// items are left alone.
type UpdateInventory struct {
	InventoryUUID string   `json:"inventory_uuid"`
	Name          string   `json:"name"`
	Owner         string   `json:"owner"`
	Admins        []string `json:"admins"`
	Writables     []string `json:"writables"`
	Readables     []string `json:"readables"`
}

// DeleteInventory removes an inventory with all of its items and units.
type DeleteInventory struct {
	InventoryUUID string `json:"inventory_uuid"`
}

// GetItem looks up one item.
type GetItem struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
}

// CreateItem appends an item to an inventory.
type CreateItem struct {
	InventoryUUID string  `json:"inventory_uuid"`
	Name          string  `json:"name"`
	EAN           *string `json:"ean,omitempty"`
}

// UpdateItem replaces an item's name and EAN.
type UpdateItem struct {
	InventoryUUID string  `json:"inventory_uuid"`
	ItemUUID      string  `json:"item_uuid"`
	Name          string  `json:"name"`
	EAN           *string `json:"ean,omitempty"`
}

// DeleteItem removes an item with its units.
type DeleteItem struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
}

// CreateUnit appends a unit to an item.
type CreateUnit struct {
	InventoryUUID string `json:"inventory_uuid"`
	ItemUUID      string `json:"item_uuid"`
	Name          string `json:"name"`
}

// MakeDebugInventory creates a sample inventory without a session check.
type MakeDebugInventory struct{}

// DeleteAllData empties the collection.
type DeleteAllData struct{}

func (GetInventories) request()     {}
func (GetInventory) request()       {}
func (CreateInventory) request()    {}
func (UpdateInventory) request()    {}
func (DeleteInventory) request()    {}
func (GetItem) request()            {}
func (CreateItem) request()         {}
func (UpdateItem) request()         {}
func (DeleteItem) request()         {}
func (CreateUnit) request()         {}
func (MakeDebugInventory) request() {}
func (DeleteAllData) request()      {}
