package roles

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
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
	role    Role
	deleted bool
}

type mockRepository struct {
	rows    map[uuid.UUID]*mockRow
	members map[uuid.UUID]int
	grants  map[uuid.UUID][]Grant
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		rows:    make(map[uuid.UUID]*mockRow),
		members: make(map[uuid.UUID]int),
		grants:  make(map[uuid.UUID][]Grant),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	row, ok := m.rows[id]
	if !ok || row.deleted || row.role.Name == ReservedRole {
		return nil, shared.ErrNotFound
	}
	out := row.role
	return &out, nil
}

func (m *mockRepository) GetByName(ctx context.Context, name string) (*Role, error) {
	for _, row := range m.rows {
		if !row.deleted && row.role.Name == name {
			out := row.role
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, page shared.Page) ([]Role, int, error) {
	var all []Role
	for _, row := range m.rows {
		if !row.deleted && row.role.Name != ReservedRole {
			all = append(all, row.role)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, page), len(all), nil
}

func (m *mockRepository) Search(ctx context.Context, name string, page shared.Page) ([]Role, int, error) {
	var all []Role
	for _, row := range m.rows {
		if row.deleted || row.role.Name == ReservedRole {
			continue
		}
		if strings.Contains(strings.ToLower(row.role.Name), strings.ToLower(name)) {
			all = append(all, row.role)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, page), len(all), nil
}

func (m *mockRepository) ListUsers(ctx context.Context, roleID uuid.UUID, page shared.Page) ([]RoleUser, int, error) {
	return nil, 0, nil
}

func (m *mockRepository) GetPermissions(ctx context.Context, roleID uuid.UUID) (*RolePermissions, error) {
	role, err := m.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	grants := m.grants[roleID]
	if grants == nil {
		grants = []Grant{}
	}
	return &RolePermissions{ID: role.ID, Name: role.Name, IsActive: role.IsActive, Grants: grants}, nil
}

func (m *mockRepository) Insert(ctx context.Context, role *Role) error {
	out := *role
	m.rows[role.ID] = &mockRow{role: out}
	return nil
}

func (m *mockRepository) Update(ctx context.Context, role *Role) error {
	row, ok := m.rows[role.ID]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	out := *role
	row.role = out
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	row, ok := m.rows[id]
	if !ok || row.deleted || row.role.Name == ReservedRole {
		return shared.ErrNotFound
	}
	row.deleted = true
	row.role.IsActive = false
	return nil
}

func (m *mockRepository) CountMembers(ctx context.Context, id uuid.UUID) (int, error) {
	return m.members[id], nil
}

func paginate(all []Role, page shared.Page) []Role {
	if page.Offset >= len(all) {
		return nil
	}
	all = all[page.Offset:]
	if page.Limit > 0 && page.Limit < len(all) {
		all = all[:page.Limit]
	}
	return all
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateRole(t *testing.T) {
	svc, _ := newTestService()
	actor := uuid.New()

	role, err := svc.Create(context.Background(), actor, CreateRequest{Name: "Editor", Description: "can edit"})
	require.NoError(t, err)

	assert.Equal(t, "Editor", role.Name)
	assert.True(t, role.IsActive)
	require.NotNil(t, role.CreatedBy)
	assert.Equal(t, actor, *role.CreatedBy)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: "Editor"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, uuid.New(), CreateRequest{Name: "Editor"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestCreateRoleNamesAreCaseSensitive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: "Editor"})
	require.NoError(t, err)

	// A byte-wise different name is a different role.
	_, err = svc.Create(ctx, uuid.New(), CreateRequest{Name: "editor"})
	require.NoError(t, err)
}

func TestReservedRoleHiddenFromLookups(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	reserved := &Role{ID: uuid.New(), Name: ReservedRole, IsActive: true}
	require.NoError(t, repo.Insert(ctx, reserved))
	_, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: "Editor"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, reserved.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	items, total, err := svc.List(ctx, shared.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Editor", items[0].Name)

	matches, _, err := svc.Search(ctx, "admin", shared.Page{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReservedRoleNameCannotBeClaimed(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &Role{ID: uuid.New(), Name: ReservedRole, IsActive: true}))

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: ReservedRole})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestSearchRoles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"Editor", "Senior Editor", "Viewer"} {
		_, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: name})
		require.NoError(t, err)
	}

	items, total, err := svc.Search(ctx, "editor", shared.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
}

func TestSearchRolesBlankTerm(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Search(context.Background(), "  ", shared.Page{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestUpdateRoleMergesFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	role, err := svc.Create(ctx, actor, CreateRequest{Name: "Editor", Description: "can edit"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, role.ID, UpdateRequest{Description: "content editing"})
	require.NoError(t, err)
	assert.Equal(t, "Editor", updated.Name)
	assert.Equal(t, "content editing", updated.Description)
}

func TestUpdateRoleRenameConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	_, err := svc.Create(ctx, actor, CreateRequest{Name: "Editor"})
	require.NoError(t, err)
	viewer, err := svc.Create(ctx, actor, CreateRequest{Name: "Viewer"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, actor, viewer.ID, UpdateRequest{Name: "Editor"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestDeleteRoleWithMembersBlocked(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	role, err := svc.Create(ctx, actor, CreateRequest{Name: "Editor"})
	require.NoError(t, err)
	repo.members[role.ID] = 2

	err = svc.Delete(ctx, actor, role.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrChildRecords))
}

func TestDeleteRoleSoftDeletes(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	role, err := svc.Create(ctx, actor, CreateRequest{Name: "Editor"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, actor, role.ID))

	_, err = svc.Get(ctx, role.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.False(t, repo.rows[role.ID].role.IsActive)
}

func TestGetPermissionsEmptyGrants(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	role, err := svc.Create(ctx, uuid.New(), CreateRequest{Name: "Editor"})
	require.NoError(t, err)

	perms, err := svc.GetPermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, role.ID, perms.ID)
	assert.NotNil(t, perms.Grants)
	assert.Empty(t, perms.Grants)
}
