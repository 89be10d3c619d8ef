package agent

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire form of requests and responses: a snake_case type
// tag with the variant's fields under data.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RequestType returns the wire tag for req.
func RequestType(req Request) string {
	switch req.(type) {
	case GetInventories:
		return "get_inventories"
	case GetInventory:
		return "get_inventory"
	case CreateInventory:
		return "create_inventory"
	case UpdateInventory:
		return "update_inventory"
	case DeleteInventory:
		return "delete_inventory"
	case GetItem:
		return "get_item"
	case CreateItem:
		return "create_item"
	case UpdateItem:
		return "update_item"
	case DeleteItem:
		return "delete_item"
	case CreateUnit:
		return "create_unit"
	case MakeDebugInventory:
		return "make_debug_inventory"
	case DeleteAllData:
		return "delete_all_data"
	}
	return ""
}

// ResponseType returns the wire tag for resp.
func ResponseType(resp Response) string {
	switch resp.(type) {
	case Inventories:
		return "inventories"
	case Inventory:
		return "inventory"
	case Item:
		return "item"
	case NewInventoryUUID:
		return "new_inventory_uuid"
	case UpdatedInventory:
		return "updated_inventory"
	case DeletedInventory:
		return "deleted_inventory"
	case NewItemUUID:
		return "new_item_uuid"
	case UpdatedItem:
		return "updated_item"
	case DeletedItem:
		return "deleted_item"
	case NewUnitUUID:
		return "new_unit_uuid"
	case InvalidInventoryUUID:
		return "invalid_inventory_uuid"
	case InvalidItemUUID:
		return "invalid_item_uuid"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case InvalidRequest:
		return "invalid_request"
	}
	return ""
}

var requestDecoders = map[string]func(json.RawMessage) (Request, error){
	"get_inventories":      decodeVariant[GetInventories, Request],
	"get_inventory":        decodeVariant[GetInventory, Request],
	"create_inventory":     decodeVariant[CreateInventory, Request],
	"update_inventory":     decodeVariant[UpdateInventory, Request],
	"delete_inventory":     decodeVariant[DeleteInventory, Request],
	"get_item":             decodeVariant[GetItem, Request],
	"create_item":          decodeVariant[CreateItem, Request],
	"update_item":          decodeVariant[UpdateItem, Request],
	"delete_item":          decodeVariant[DeleteItem, Request],
	"create_unit":          decodeVariant[CreateUnit, Request],
	"make_debug_inventory": decodeVariant[MakeDebugInventory, Request],
	"delete_all_data":      decodeVariant[DeleteAllData, Request],
}

var responseDecoders = map[string]func(json.RawMessage) (Response, error){
	"inventories":            decodeVariant[Inventories, Response],
	"inventory":              decodeVariant[Inventory, Response],
	"item":                   decodeVariant[Item, Response],
	"new_inventory_uuid":     decodeVariant[NewInventoryUUID, Response],
	"updated_inventory":      decodeVariant[UpdatedInventory, Response],
	"deleted_inventory":      decodeVariant[DeletedInventory, Response],
	"new_item_uuid":          decodeVariant[NewItemUUID, Response],
	"updated_item":           decodeVariant[UpdatedItem, Response],
	"deleted_item":           decodeVariant[DeletedItem, Response],
	"new_unit_uuid":          decodeVariant[NewUnitUUID, Response],
	"invalid_inventory_uuid": decodeVariant[InvalidInventoryUUID, Response],
	"invalid_item_uuid":      decodeVariant[InvalidItemUUID, Response],
	"unauthorized":           decodeVariant[Unauthorized, Response],
	"forbidden":              decodeVariant[Forbidden, Response],
	"invalid_request":        decodeVariant[InvalidRequest, Response],
}

func decodeVariant[V any, I any](data json.RawMessage) (I, error) {
	var v V
	var zero I
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &v); err != nil {
			return zero, err
		}
	}
	out, ok := any(v).(I)
	if !ok {
		return zero, fmt.Errorf("%T does not implement %T", v, zero)
	}
	return out, nil
}

// EncodeRequest wraps req in an Envelope.
func EncodeRequest(req Request) (Envelope, error) {
	tag := RequestType(req)
	if tag == "" {
		return Envelope{}, fmt.Errorf("unknown request %T", req)
	}
	return encode(tag, req)
}

// EncodeResponse wraps resp in an Envelope.
func EncodeResponse(resp Response) (Envelope, error) {
	tag := ResponseType(resp)
	if tag == "" {
		return Envelope{}, fmt.Errorf("unknown response %T", resp)
	}
	return encode(tag, resp)
}

func encode(tag string, v any) (Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s: %w", tag, err)
	}
	return Envelope{Type: tag, Data: data}, nil
}

// DecodeRequest turns an Envelope back into a Request.
func DecodeRequest(env Envelope) (Request, error) {
	dec, ok := requestDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown request type %q", env.Type)
	}
	req, err := dec(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", env.Type, err)
	}
	return req, nil
}

// DecodeResponse turns an Envelope back into a Response.
func DecodeResponse(env Envelope) (Response, error) {
	dec, ok := responseDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown response type %q", env.Type)
	}
	resp, err := dec(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", env.Type, err)
	}
	return resp, nil
}

// MarshalResponse encodes resp as an Envelope JSON document.
func MarshalResponse(resp Response) ([]byte, error) {
	env, err := EncodeResponse(resp)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// UnmarshalResponse decodes an Envelope JSON document.
func UnmarshalResponse(data []byte) (Response, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return DecodeResponse(env)
}
