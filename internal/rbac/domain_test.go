package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionSetAddKeepsOrderAndDedupes(t *testing.T) {
	set := PermissionSet{}
	set.Add("roles", "read")
	set.Add("roles", "create")
	set.Add("roles", "read")
	set.Add("users", "read")

	assert.Equal(t, []string{"read", "create"}, set["roles"])
	assert.Equal(t, []string{"read"}, set["users"])
}

func TestPermissionSetHas(t *testing.T) {
	set := PermissionSet{"roles": {"read", "create"}}

	assert.True(t, set.Has("roles", "read"))
	assert.True(t, set.Has("Roles", "READ"))
	assert.False(t, set.Has("roles", "delete"))
	assert.False(t, set.Has("users", "read"))
}

func TestEmptyPermissionSetGrantsNothing(t *testing.T) {
	set := PermissionSet{}
	assert.False(t, set.Has("roles", "read"))
}
