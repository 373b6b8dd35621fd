package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/platform/db"
)

// Resolver computes the set of (module, action) pairs a role currently
// grants: the join role_actions → actions → modules with all three sides
// active and non-deleted. Grants must be currently active, not merely
// non-deleted, so a disabled grant disappears at the next login or refresh.
type Resolver struct {
	q db.Querier
}

// NewResolver constructs a Resolver over the given querier.
func NewResolver(q db.Querier) *Resolver {
	return &Resolver{q: q}
}

const resolveQuery = `
SELECT lower(m.name), lower(a.action_name)
FROM role_actions ra
JOIN actions a ON a.id = ra.actions_id
JOIN modules m ON m.id = a.module_id
WHERE ra.role_id = $1
  AND ra.is_deleted = FALSE AND ra.is_active = TRUE
  AND a.is_deleted = FALSE AND a.is_active = TRUE
  AND m.is_deleted = FALSE AND m.is_active = TRUE
ORDER BY m.name`

// Resolve returns the permission set for a role. A role with no active
// grants yields an empty set, not an error.
func (r *Resolver) Resolve(ctx context.Context, roleID uuid.UUID) (PermissionSet, error) {
	rows, err := r.q.Query(ctx, resolveQuery, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac: resolve permissions: %w", err)
	}
	defer rows.Close()

	permissions := PermissionSet{}
	for rows.Next() {
		var module, action string
		if err := rows.Scan(&module, &action); err != nil {
			return nil, fmt.Errorf("rbac: scan permission row: %w", err)
		}
		permissions.Add(module, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate permission rows: %w", err)
	}
	return permissions, nil
}
