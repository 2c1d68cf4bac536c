package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the access token payload issued by the auth service.
type JWTClaims struct {
	UserID    int64      `json:"user_id"`
	TeacherID *int64     `json:"teacher_id,omitempty"`
	Roles     []UserRole `json:"roles"`
	Email     string     `json:"email"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry the given role.
func (c *JWTClaims) HasRole(role UserRole) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user sees every class.
func (c *JWTClaims) IsAdmin() bool {
	return c.HasRole(RoleAdminTeacher)
}

// Can reports whether any of the user's roles grants the permission.
func (c *JWTClaims) Can(permission Permission) bool {
	if c == nil {
		return false
	}
	for _, role := range c.Roles {
		for _, p := range RolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}
