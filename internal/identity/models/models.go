package models

import "lumine/pkg/domain"

// Profile is the internal staff profile keyed by the token subject.
type Profile struct {
	UserID string
	Name   string
	Role   domain.Role
	Active bool
}
