// Package auth issues and validates the bearer tokens boats and staff present
// to the API.
package auth

import "github.com/uyirkavalan/uyirkavalan/internal/boat"

// Principal is the authenticated caller.
type Principal struct {
	// Boat is the caller's boat registration. Staff accounts carry their
	// own identifier here.
	Boat string

	Role boat.Role
}

// IsAdmin reports whether the caller administers the system.
func (p Principal) IsAdmin() bool {
	return p.Role == boat.RoleAdmin
}

// IsAuthority reports whether the caller is coast guard or police staff.
func (p Principal) IsAuthority() bool {
	return p.Role == boat.RoleAuthority
}

// HasRole reports whether the caller holds any of roles.
func (p Principal) HasRole(roles ...boat.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// CanAccessBoat reports whether the caller may act on boatID's resources.
// Fishermen are limited to their own boat; admins and authorities are not.
func (p Principal) CanAccessBoat(boatID string) bool {
	if p.IsAdmin() || p.IsAuthority() {
		return true
	}
	return p.Boat != "" && p.Boat == boatID
}
