package models

import "strings"

// Role is a user's access tier on an Inventory.
type Role int

const (
	RoleNone Role = iota
	RoleReader
	RoleWriter
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleWriter:
		return "writer"
	case RoleReader:
		return "reader"
	default:
		return "none"
	}
}

// Role returns the highest tier user holds on the Inventory.
func (inv *Inventory) Role(user string) Role {
	switch {
	case user == "":
		return RoleNone
	case inv.Owner == user:
		return RoleOwner
	case contains(inv.Admins, user):
		return RoleAdmin
	case contains(inv.Writables, user):
		return RoleWriter
	case contains(inv.Readables, user):
		return RoleReader
	}
	return RoleNone
}

// NormalizeTiers trims, de-duplicates and drops empty entries from a tier
// set, and removes the owner, who is always implicit.
func NormalizeTiers(owner string, users []string) []string {
	out := make([]string, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		u = strings.TrimSpace(u)
		if u == "" || u == owner {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
