package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleTriage, ParseRole("triagem"))
	assert.Equal(t, RoleSecretary, ParseRole("secretaria"))
	assert.Equal(t, Role("visitor"), ParseRole("visitor"))
}

func TestActorHasRole(t *testing.T) {
	triage := Actor{UserID: "u-1", Role: RoleTriage, Source: SourceJWT}

	assert.True(t, triage.HasRole())
	assert.True(t, triage.HasRole(RoleAdmin, RoleTriage))
	assert.False(t, triage.HasRole(RoleAdmin, RoleSecretary))

	system := SystemActor(SourceSystem)
	assert.Equal(t, RoleSystem, system.Role)
	assert.False(t, system.IsZero())
	assert.True(t, Actor{}.IsZero())
}
