package shared

import "strings"

// Scope names one (module, action) permission pair. Routes are gated by a
// Scope rather than free-form strings so typos surface at boot, not at
// request time.
type Scope struct {
	Module string
	Action string
}

// NewScope builds a lowercase-normalized scope.
func NewScope(module, action string) Scope {
	return Scope{
		Module: strings.ToLower(strings.TrimSpace(module)),
		Action: strings.ToLower(strings.TrimSpace(action)),
	}
}

func (s Scope) String() string {
	return s.Module + "." + s.Action
}

// Core platform scopes. The module/action taxonomy is static and defined by
// the deployer; these constants mirror the rows expected in the database.
var (
	ScopeModulesCreate = NewScope("modules", "create")
	ScopeModulesRead   = NewScope("modules", "read")
	ScopeModulesUpdate = NewScope("modules", "update")
	ScopeModulesDelete = NewScope("modules", "delete")

	ScopeActionsCreate = NewScope("actions", "create")
	ScopeActionsRead   = NewScope("actions", "read")
	ScopeActionsUpdate = NewScope("actions", "update")
	ScopeActionsDelete = NewScope("actions", "delete")

	ScopeRolesCreate = NewScope("roles", "create")
	ScopeRolesRead   = NewScope("roles", "read")
	ScopeRolesUpdate = NewScope("roles", "update")
	ScopeRolesDelete = NewScope("roles", "delete")
	ScopeRolesSearch = NewScope("roles", "search")

	ScopeUsersCreate = NewScope("users", "create")
	ScopeUsersRead   = NewScope("users", "read")
	ScopeUsersUpdate = NewScope("users", "update")
	ScopeUsersDelete = NewScope("users", "delete")
	ScopeUsersSearch = NewScope("users", "search")

	ScopePermissionsCreate = NewScope("permissions", "create")
	ScopePermissionsRead   = NewScope("permissions", "read")
	ScopePermissionsUpdate = NewScope("permissions", "update")
	ScopePermissionsDelete = NewScope("permissions", "delete")
)

// CoreScopes lists every scope the router wires. The boot-time taxonomy
// check verifies each against the modules/actions tables.
func CoreScopes() []Scope {
	return []Scope{
		ScopeModulesCreate, ScopeModulesRead, ScopeModulesUpdate, ScopeModulesDelete,
		ScopeActionsCreate, ScopeActionsRead, ScopeActionsUpdate, ScopeActionsDelete,
		ScopeRolesCreate, ScopeRolesRead, ScopeRolesUpdate, ScopeRolesDelete, ScopeRolesSearch,
		ScopeUsersCreate, ScopeUsersRead, ScopeUsersUpdate, ScopeUsersDelete, ScopeUsersSearch,
		ScopePermissionsCreate, ScopePermissionsRead, ScopePermissionsUpdate, ScopePermissionsDelete,
	}
}
