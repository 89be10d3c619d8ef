package models

import (
	"encoding/json"
	"fmt"
)

// UserInfo identifies an authenticated user.
type UserInfo struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// UserIdentifier names a user either by display name or by UUID.
// Exactly one field is set. On the wire it is {"Name": "..."} or {"Uuid": "..."}.
type UserIdentifier struct {
	Name string
	UUID string
}

// MarshalJSON implements json.Marshaler.
func (u UserIdentifier) MarshalJSON() ([]byte, error) {
	if u.UUID != "" {
		return json.Marshal(map[string]string{"Uuid": u.UUID})
	}
	return json.Marshal(map[string]string{"Name": u.Name})
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *UserIdentifier) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("user identifier: want exactly one of Name or Uuid, got %d keys", len(raw))
	}
	if v, ok := raw["Uuid"]; ok {
		*u = UserIdentifier{UUID: v}
		return nil
	}
	if v, ok := raw["Name"]; ok {
		*u = UserIdentifier{Name: v}
		return nil
	}
	return fmt.Errorf("user identifier: unknown variant")
}

// UserLogin is the body of a login request.
type UserLogin struct {
	Identifier UserIdentifier `json:"identifier"`
	Password   string         `json:"password"`
	TOTP       *string        `json:"totp"`
}

// UserSignup is the body of a signup request.
type UserSignup struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// StatusNotice is a plain acknowledgement from the auth service.
type StatusNotice struct {
	Message string `json:"message"`
}
