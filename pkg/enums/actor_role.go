package enums

import "fmt"

// ActorRole identifies who is calling the API.
type ActorRole string

const (
	ActorRoleCustomer   ActorRole = "customer"
	ActorRoleDriver     ActorRole = "driver"
	ActorRoleStoreAdmin ActorRole = "store_admin"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleDriver,
	ActorRoleStoreAdmin,
}

// String implements fmt.Stringer.
func (v ActorRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ActorRole.
func (v ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
