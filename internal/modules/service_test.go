package modules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-rbac/warden/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRow struct {
	module  Module
	deleted bool
}

type mockRepository struct {
	rows map[uuid.UUID]*mockRow

	childActions map[uuid.UUID]int

	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		rows:         make(map[uuid.UUID]*mockRow),
		childActions: make(map[uuid.UUID]int),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*Module, error) {
	row, ok := m.rows[id]
	if !ok || row.deleted {
		return nil, shared.ErrNotFound
	}
	out := row.module
	return &out, nil
}

func (m *mockRepository) GetByName(ctx context.Context, name string) (*Module, error) {
	for _, row := range m.rows {
		if !row.deleted && row.module.Name == name {
			out := row.module
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, page shared.Page) ([]Module, int, error) {
	var all []Module
	for _, row := range m.rows {
		if !row.deleted {
			all = append(all, row.module)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if page.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[page.Offset:]
	if page.Limit > 0 && page.Limit < len(all) {
		all = all[:page.Limit]
	}
	return all, total, nil
}

func (m *mockRepository) ListActions(ctx context.Context, id uuid.UUID, page shared.Page) ([]ModuleAction, int, error) {
	return nil, 0, nil
}

func (m *mockRepository) Insert(ctx context.Context, mod *Module) error {
	out := *mod
	m.rows[mod.ID] = &mockRow{module: out}
	return nil
}

func (m *mockRepository) Update(ctx context.Context, mod *Module) error {
	row, ok := m.rows[mod.ID]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	out := *mod
	row.module = out
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	row, ok := m.rows[id]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	row.deleted = true
	row.module.IsActive = false
	row.module.UpdatedBy = &actor
	return nil
}

func (m *mockRepository) CountChildActions(ctx context.Context, id uuid.UUID) (int, error) {
	return m.childActions[id], nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateModule(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	module, err := svc.Create(ctx, actor, CreateRequest{Name: "  reports ", Description: "reporting surface"})
	require.NoError(t, err)
	require.NotNil(t, module)

	assert.Equal(t, "reports", module.Name)
	assert.Equal(t, "reporting surface", module.Description)
	assert.True(t, module.IsActive)
	require.NotNil(t, module.CreatedBy)
	assert.Equal(t, actor, *module.CreatedBy)
	assert.False(t, module.CreatedOn.IsZero())
}

func TestCreateModuleBlankName(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), CreateRequest{Name: "   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestCreateModuleDuplicateName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: "inventory"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, uuid.New(), CreateRequest{Name: "inventory"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestCreateModuleNameReusableAfterSoftDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	first, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, actor, first.ID))

	second, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetModuleNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestUpdateModuleMergesFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	module, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory", Description: "stock"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, actor, module.ID, UpdateRequest{Description: "warehouse stock", IsActive: &inactive})
	require.NoError(t, err)

	// Blank name keeps the stored value.
	assert.Equal(t, "inventory", updated.Name)
	assert.Equal(t, "warehouse stock", updated.Description)
	assert.False(t, updated.IsActive)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, actor, *updated.UpdatedBy)
	require.NotNil(t, updated.UpdatedOn)
}

func TestUpdateModuleBlankFieldsKeepValues(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	module, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory", Description: "stock"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, module.ID, UpdateRequest{})
	require.NoError(t, err)

	assert.Equal(t, "inventory", updated.Name)
	assert.Equal(t, "stock", updated.Description)
	assert.True(t, updated.IsActive)
}

func TestUpdateModuleRenameConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	_, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, actor, CreateRequest{Name: "reports"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, actor, second.ID, UpdateRequest{Name: "inventory"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestUpdateModuleSameNameNoConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	module, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, module.ID, UpdateRequest{Name: "inventory", Description: "same name"})
	require.NoError(t, err)
	assert.Equal(t, "same name", updated.Description)
}

func TestDeleteModuleWithChildActionsBlocked(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	module, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory"})
	require.NoError(t, err)
	repo.childActions[module.ID] = 3

	err = svc.Delete(ctx, actor, module.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrChildRecords))

	// Guard fires before anything is written.
	_, err = svc.Get(ctx, module.ID)
	require.NoError(t, err)
}

func TestDeleteModuleSoftDeletes(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	module, err := svc.Create(ctx, actor, CreateRequest{Name: "inventory"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, actor, module.ID))

	_, err = svc.Get(ctx, module.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	// The row survives with both flags flipped.
	row := repo.rows[module.ID]
	require.NotNil(t, row)
	assert.True(t, row.deleted)
	assert.False(t, row.module.IsActive)
}

func TestDeleteModuleNotFound(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestListModulesPagination(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	for _, name := range []string{"accounts", "inventory", "reports", "users"} {
		_, err := svc.Create(ctx, actor, CreateRequest{Name: name})
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, shared.Page{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, "inventory", items[0].Name)
	assert.Equal(t, "reports", items[1].Name)
}

func TestListModulesUnbounded(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"accounts", "inventory"} {
		_, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: name})
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, shared.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
}
