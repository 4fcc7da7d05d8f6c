package domain

import (
	"strings"
)

// Role is the internal profile role of an authenticated staff member.
type Role string

const (
	RoleSystem    Role = "system"
	RoleAdmin     Role = "admin"
	RoleTriage    Role = "triage"
	RoleSecretary Role = "secretary"
	RoleEducator  Role = "educator"
)

var legacyRoles = map[string]Role{
	"triagem":    RoleTriage,
	"secretaria": RoleSecretary,
	"educador":   RoleEducator,
}

// ParseRole normalises a stored role token. Unknown tokens are returned as-is so
// route checks fail closed without losing the original value for logs.
func ParseRole(s string) Role {
	token := strings.ToLower(strings.TrimSpace(s))
	if role, ok := legacyRoles[token]; ok {
		return role
	}
	return Role(token)
}

// ActorSource records how the actor was resolved.
type ActorSource string

const (
	SourceSystem      ActorSource = "system"
	SourceJWT         ActorSource = "jwt"
	SourceJWTOptional ActorSource = "jwt_optional"
)

// Actor is the authenticated principal attached to every mutation and audit entry.
// UserID is empty for system actors.
type Actor struct {
	UserID string      `json:"userId"`
	Role   Role        `json:"role"`
	Source ActorSource `json:"source"`
}

// SystemActor is used when role enforcement is disabled.
func SystemActor(source ActorSource) Actor {
	return Actor{Role: RoleSystem, Source: source}
}

// HasRole reports whether the actor holds one of the allowed roles.
// An empty allow-list admits every actor.
func (a Actor) HasRole(allowed ...Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if a.Role == r {
			return true
		}
	}
	return false
}

// IsZero reports whether no actor was resolved.
func (a Actor) IsZero() bool {
	return a.Role == "" && a.UserID == ""
}
