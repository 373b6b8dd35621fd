package users

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
	"golang.org/x/crypto/bcrypt"

	"github.com/warden-rbac/warden/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRow struct {
	user    User
	deleted bool
}

type mockRepository struct {
	rows  map[uuid.UUID]*mockRow
	roles map[uuid.UUID]bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		rows:  make(map[uuid.UUID]*mockRow),
		roles: make(map[uuid.UUID]bool),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	row, ok := m.rows[id]
	if !ok || row.deleted {
		return nil, shared.ErrNotFound
	}
	out := row.user
	return &out, nil
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, row := range m.rows {
		if !row.deleted && strings.EqualFold(row.user.Email, email) {
			out := row.user
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, viewer uuid.UUID, page shared.Page) ([]User, int, error) {
	var all []User
	for _, row := range m.rows {
		if !row.deleted && row.user.ID != viewer {
			all = append(all, row.user)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return all, len(all), nil
}

func (m *mockRepository) Search(ctx context.Context, viewer uuid.UUID, email string, page shared.Page) ([]User, int, error) {
	var all []User
	for _, row := range m.rows {
		if row.deleted || row.user.ID == viewer {
			continue
		}
		if strings.Contains(strings.ToLower(row.user.Email), strings.ToLower(email)) {
			all = append(all, row.user)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return all, len(all), nil
}

func (m *mockRepository) RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error) {
	return m.roles[roleID], nil
}

func (m *mockRepository) Insert(ctx context.Context, u *User) error {
	out := *u
	m.rows[u.ID] = &mockRow{user: out}
	return nil
}

func (m *mockRepository) Update(ctx context.Context, u *User) error {
	row, ok := m.rows[u.ID]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	out := *u
	row.user = out
	return nil
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, actor uuid.UUID) error {
	row, ok := m.rows[id]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	row.user.PasswordHash = hash
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	row, ok := m.rows[id]
	if !ok || row.deleted {
		return shared.ErrNotFound
	}
	row.deleted = true
	row.user.IsActive = false
	return nil
}

func newTestService() (*Service, *mockRepository, uuid.UUID) {
	repo := newMockRepository()
	roleID := uuid.New()
	repo.roles[roleID] = true
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo, roleID
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateUser(t *testing.T) {
	svc, _, roleID := newTestService()
	actor := uuid.New()

	user, err := svc.Create(context.Background(), actor, CreateRequest{
		Email:    "Ana@Example.COM",
		Password: "sup3r-secret",
		RoleID:   roleID,
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, roleID, user.RoleID)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("sup3r-secret")))
}

func TestCreateUserUnknownRole(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		Email:    "ana@example.com",
		Password: "sup3r-secret",
		RoleID:   uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidReference))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _, roleID := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	_, err = svc.Create(ctx, uuid.New(), CreateRequest{Email: "ANA@example.com", Password: "other-secret", RoleID: roleID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestListUsersExcludesViewer(t *testing.T) {
	svc, _, roleID := newTestService()
	ctx := context.Background()

	viewer, err := svc.Create(ctx, uuid.New(), CreateRequest{Email: "viewer@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.New(), CreateRequest{Email: "other@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	items, total, err := svc.List(ctx, viewer.ID, shared.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "other@example.com", items[0].Email)
}

func TestSearchUsersBlankTerm(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Search(context.Background(), uuid.New(), " ", shared.Page{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestUpdateUserMergesFields(t *testing.T) {
	svc, repo, roleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	user, err := svc.Create(ctx, actor, CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	otherRole := uuid.New()
	repo.roles[otherRole] = true
	inactive := false
	updated, err := svc.Update(ctx, actor, user.ID, UpdateRequest{RoleID: &otherRole, IsActive: &inactive})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", updated.Email)
	assert.Equal(t, otherRole, updated.RoleID)
	assert.False(t, updated.IsActive)
}

func TestUpdateUserUnknownRole(t *testing.T) {
	svc, _, roleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	user, err := svc.Create(ctx, actor, CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	unknown := uuid.New()
	_, err = svc.Update(ctx, actor, user.ID, UpdateRequest{RoleID: &unknown})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidReference))
}

func TestUpdateUserEmailConflict(t *testing.T) {
	svc, _, roleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	_, err := svc.Create(ctx, actor, CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)
	second, err := svc.Create(ctx, actor, CreateRequest{Email: "bob@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, actor, second.ID, UpdateRequest{Email: "ana@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestDeleteUserSelfGuard(t *testing.T) {
	svc, _, roleID := newTestService()
	ctx := context.Background()

	user, err := svc.Create(ctx, uuid.New(), CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	err = svc.Delete(ctx, user.ID, user.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrSelfAction))

	// The account is untouched.
	_, err = svc.Get(ctx, user.ID)
	require.NoError(t, err)
}

func TestDeleteUserSoftDeletes(t *testing.T) {
	svc, repo, roleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	user, err := svc.Create(ctx, actor, CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, actor, user.ID))

	_, err = svc.Get(ctx, user.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.False(t, repo.rows[user.ID].user.IsActive)
}

func TestResetPasswordSelfGuard(t *testing.T) {
	svc, _, roleID := newTestService()
	ctx := context.Background()

	user, err := svc.Create(ctx, uuid.New(), CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, user.ID, user.ID, ResetPasswordRequest{Password: "new-secret-99"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrSelfAction))
}

func TestResetPassword(t *testing.T) {
	svc, repo, roleID := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	user, err := svc.Create(ctx, actor, CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, actor, user.ID, ResetPasswordRequest{Password: "new-secret-99"}))

	hash := repo.rows[user.ID].user.PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-secret-99")))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, _, roleID := newTestService()
	ctx := context.Background()

	user, err := svc.Create(ctx, uuid.New(), CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "new-secret-99"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
}

func TestChangePassword(t *testing.T) {
	svc, repo, roleID := newTestService()
	ctx := context.Background()

	user, err := svc.Create(ctx, uuid.New(), CreateRequest{Email: "ana@example.com", Password: "sup3r-secret", RoleID: roleID})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "sup3r-secret", NewPassword: "new-secret-99"})
	require.NoError(t, err)

	hash := repo.rows[user.ID].user.PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-secret-99")))
}
