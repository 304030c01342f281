package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "d:2:7", DirectPairKey(7, 2))
	assert.Equal(t, "d:2:7", DirectPairKey(2, 7))
}

func TestDirectPairKeyDistinctPairs(t *testing.T) {
	assert.NotEqual(t, DirectPairKey(1, 2), DirectPairKey(1, 3))
	assert.NotEqual(t, DirectPairKey(1, 2), DirectPairKey(2, 3))
}

func TestRolePrivileged(t *testing.T) {
	assert.True(t, RoleManager.Privileged())
	assert.True(t, RoleSuperadmin.Privileged())
	assert.False(t, RoleUser.Privileged())
	assert.False(t, RoleDVS.Privileged())
	assert.False(t, RoleQA.Privileged())
	assert.False(t, RoleRisk.Privileged())
}

func TestRoleCanManageGroups(t *testing.T) {
	assert.True(t, RoleManager.CanManageGroups())
	assert.True(t, RoleSuperadmin.CanManageGroups())
	assert.False(t, RoleUser.CanManageGroups())
}
