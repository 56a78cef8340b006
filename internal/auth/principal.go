package auth

import (
	"fmt"
	"strings"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// Role is the actor kind supplied by the identity provider.
type Role string

const (
	RoleIndustry Role = "industry"
	RoleWetlands Role = "wetlands"
	RoleAdmin    Role = "admin"
	RoleGov      Role = "gov"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleIndustry, RoleWetlands, RoleAdmin, RoleGov:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Principal is an authenticated caller.
type Principal struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Has reports whether the principal holds any of roles.
func (p Principal) Has(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Require fails with a forbidden error unless the principal is authenticated
// and holds one of roles.
func Require(p Principal, roles ...Role) error {
	if p.UserID == "" {
		return apperrors.Forbidden("authentication required")
	}
	if !p.Has(roles...) {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		return apperrors.Forbidden(fmt.Sprintf("role %q may not perform this action (requires %s)",
			p.Role, strings.Join(names, " or ")))
	}
	return nil
}

// System is the principal used for internal sweeps and seeding.
var System = Principal{UserID: "system", Role: RoleAdmin, Name: "system"}
