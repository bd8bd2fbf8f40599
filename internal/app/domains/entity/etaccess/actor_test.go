package etaccess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAccess(t *testing.T) {
	reception := Actor{UserID: "u1", Role: RoleReception, Location: "centru"}
	assert.True(t, reception.CanAccess("centru"))
	assert.False(t, reception.CanAccess("nord"))

	admin := Actor{UserID: "u2", Role: RoleAdmin}
	assert.True(t, admin.CanAccess("nord"))

	noLocation := Actor{UserID: "u3", Role: RoleProcessing}
	assert.False(t, noLocation.CanAccess(""))
}

func TestScopeLocation(t *testing.T) {
	assert.Equal(t, "centru", Actor{Role: RoleProcessing, Location: "centru"}.ScopeLocation("nord"))
	assert.Equal(t, "nord", Actor{Role: RoleSuperAdmin, Location: "centru"}.ScopeLocation("nord"))
	assert.Equal(t, "", Actor{Role: RoleSuperAdmin}.ScopeLocation(""))
}

func TestNewActorRejectsUnknownRole(t *testing.T) {
	_, err := NewActor("u1", "Maria", Role("owner"), "centru")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = NewActor("u1", "Maria", RoleReception, "")
	assert.ErrorIs(t, err, ErrMissingLocation)

	admin, err := NewActor("u2", "", RoleAdmin, "")
	require.NoError(t, err)
	assert.Equal(t, "u2", admin.DisplayName())
}

func TestContextRoundTrip(t *testing.T) {
	actor, err := NewActor("u1", "Maria", RoleReception, "centru")
	require.NoError(t, err)

	got, ok := FromContext(WithActor(context.Background(), actor))
	require.True(t, ok)
	assert.Equal(t, actor, got)
	assert.Equal(t, "Maria", got.DisplayName())

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
