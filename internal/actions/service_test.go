package actions

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
	action  Action
	deleted bool
}

type mockRepository struct {
	rows        map[uuid.UUID]*mockRow
	modules     map[uuid.UUID]bool
	childGrants map[uuid.UUID]int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		rows:        make(map[uuid.UUID]*mockRow),
		modules:     make(map[uuid.UUID]bool),
		childGrants: make(map[uuid.UUID]int),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*Action, error) {
	row, ok := m.rows[id]
	if !ok || row.deleted {
		return nil, shared.ErrNotFound
	}
	out := row.action
	return &out, nil
}

func (m *mockRepository) GetByNameInModule(ctx context.Context, moduleID uuid.UUID, name string) (*Action, error) {
	for _, row := range m.rows {
		if !row.deleted && row.action.ModuleID == moduleID && row.action.ActionName == name {
			out := row.action
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, page shared.Page) ([]Action, int, error) {
	var all []Action
	for _, row := range m.rows {
		if !row.deleted {
			all = append(all, row.action)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ActionName < all[j].ActionName })
	return all, len(all), nil
}

func (m *mockRepository) ModuleExists(ctx context.Context, moduleID uuid.UUID) (bool, error) {
	return m.modules[moduleID], nil
}

func (m *mockRepository) Insert(ctx context.Context, a *Action) error {
	out := *a
	m.rows[a.ID] = &mockRow{action: out}
	return nil
}

func (m *mockRepository) Update(ctx context.Context, a *Action) error {
	row, ok := m.rows[a.ID]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	out := *a
	row.action = out
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	row, ok := m.rows[id]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	row.deleted = true
	row.action.IsActive = false
	return nil
}

func (m *mockRepository) CountChildGrants(ctx context.Context, id uuid.UUID) (int, error) {
	return m.childGrants[id], nil
}

func newTestService() (*Service, *mockRepository, uuid.UUID) {
	repo := newMockRepository()
	moduleID := uuid.New()
	repo.modules[moduleID] = true
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo, moduleID
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateAction(t *testing.T) {
	svc, _, moduleID := newTestService()
	actor := uuid.New()

	action, err := svc.Create(context.Background(), actor, CreateRequest{ActionName: " read ", ModuleID: moduleID})
	require.NoError(t, err)

	assert.Equal(t, "read", action.ActionName)
	assert.Equal(t, moduleID, action.ModuleID)
	assert.True(t, action.IsActive)
	require.NotNil(t, action.CreatedBy)
	assert.Equal(t, actor, *action.CreatedBy)
}

func TestCreateActionUnknownModule(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), CreateRequest{ActionName: "read", ModuleID: uuid.New()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidReference))
}

func TestCreateActionDuplicateInModule(t *testing.T) {
	svc, _, moduleID := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{ActionName: "read", ModuleID: moduleID})
	require.NoError(t, err)

	_, err = svc.Create(ctx, uuid.New(), CreateRequest{ActionName: "read", ModuleID: moduleID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestCreateActionSameNameDifferentModule(t *testing.T) {
	svc, repo, moduleID := newTestService()
	ctx := context.Background()

	other := uuid.New()
	repo.modules[other] = true

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{ActionName: "read", ModuleID: moduleID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.New(), CreateRequest{ActionName: "read", ModuleID: other})
	require.NoError(t, err)
}

func TestCreateActionInactiveFlag(t *testing.T) {
	svc, _, moduleID := newTestService()

	inactive := false
	action, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		ActionName: "read", ModuleID: moduleID, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, action.IsActive)
}

func TestUpdateActionMergesFields(t *testing.T) {
	svc, _, moduleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	action, err := svc.Create(ctx, actor, CreateRequest{ActionName: "read", ModuleID: moduleID, Description: "read access"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, action.ID, UpdateRequest{Description: "read-only access"})
	require.NoError(t, err)

	assert.Equal(t, "read", updated.ActionName)
	assert.Equal(t, "read-only access", updated.Description)
	assert.True(t, updated.IsActive)
}

func TestUpdateActionRenameConflict(t *testing.T) {
	svc, _, moduleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	_, err := svc.Create(ctx, actor, CreateRequest{ActionName: "read", ModuleID: moduleID})
	require.NoError(t, err)
	write, err := svc.Create(ctx, actor, CreateRequest{ActionName: "write", ModuleID: moduleID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, actor, write.ID, UpdateRequest{ActionName: "read"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestDeleteActionWithGrantsBlocked(t *testing.T) {
	svc, repo, moduleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	action, err := svc.Create(ctx, actor, CreateRequest{ActionName: "read", ModuleID: moduleID})
	require.NoError(t, err)
	repo.childGrants[action.ID] = 1

	err = svc.Delete(ctx, actor, action.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrChildRecords))
}

func TestDeleteActionSoftDeletes(t *testing.T) {
	svc, repo, moduleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	action, err := svc.Create(ctx, actor, CreateRequest{ActionName: "read", ModuleID: moduleID})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, actor, action.ID))

	_, err = svc.Get(ctx, action.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.False(t, repo.rows[action.ID].action.IsActive)
}
