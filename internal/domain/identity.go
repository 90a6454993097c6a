package domain

import "strings"

// Role enumerates caller capabilities. Roles are hierarchical:
// admin includes technician, technician includes user.
type Role string

const (
	RoleUser       Role = "user"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:       1,
	RoleTechnician: 2,
	RoleAdmin:      3,
}

// ParseRole accepts any casing of a known role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleRank[role]; !ok {
		return "", false
	}
	return role, true
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Includes reports whether r grants at least the capabilities of other.
func (r Role) Includes(other Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[other]
}

// Identity is the acting caller, passed explicitly into every lifecycle operation.
type Identity struct {
	ID   string
	Name string
	Role Role
}

// Is reports whether the identity refers to the given user id.
func (i Identity) Is(id string) bool {
	return id != "" && i.ID == id
}
