package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warden-rbac/warden/internal/platform/db"
	"github.com/warden-rbac/warden/internal/shared"
)

const taxonomyQuery = `
SELECT lower(m.name), lower(a.action_name)
FROM actions a
JOIN modules m ON m.id = a.module_id
WHERE a.is_deleted = FALSE AND m.is_deleted = FALSE`

// VerifyTaxonomy checks every wired scope against the modules/actions tables
// at boot, so a scope referencing a module or action the deployer never
// provisioned is flagged before the first request instead of silently
// denying everyone. Missing pairs are warnings, not fatal: the deployment may
// seed its taxonomy after first start.
func VerifyTaxonomy(ctx context.Context, q db.Querier, logger *slog.Logger) error {
	rows, err := q.Query(ctx, taxonomyQuery)
	if err != nil {
		return fmt.Errorf("rbac: load taxonomy: %w", err)
	}
	defer rows.Close()

	known := make(map[shared.Scope]struct{})
	for rows.Next() {
		var module, action string
		if err := rows.Scan(&module, &action); err != nil {
			return fmt.Errorf("rbac: scan taxonomy row: %w", err)
		}
		known[shared.Scope{Module: module, Action: action}] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rbac: iterate taxonomy rows: %w", err)
	}

	for _, scope := range shared.CoreScopes() {
		if _, ok := known[scope]; !ok {
			logger.Warn("scope missing from module/action taxonomy",
				slog.String("scope", scope.String()))
		}
	}
	return nil
}
