package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staysync/staysync/internal/docstore"
	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/validate"
)

func newService(t *testing.T) *Service {
	t.Helper()
	docs, err := docstore.New(docstore.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	return NewService(docs, validate.New())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, " Ana@Example.com ", "correct-horse", "Ana", model.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)
	assert.Equal(t, model.UserActive, u.Status)

	got, err := svc.Login(ctx, "ANA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	byID, err := svc.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
	_, err = svc.User(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana@example.com", "password1", "Ana", model.RoleInspector)
	require.NoError(t, err)

	tests := []struct {
		name, email, password, role string
	}{
		{"duplicate email", "ANA@example.com", "password1", model.RoleInspector},
		{"short password", "bo@example.com", "short", model.RoleInspector},
		{"bad email", "not-an-email", "password1", model.RoleInspector},
		{"unknown role", "bo@example.com", "password1", "owner"},
		{"missing role", "bo@example.com", "password1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password, "", tt.role)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestHasPermission(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, "admin@example.com", "password1", "", model.RoleAdmin)
	require.NoError(t, err)
	inspector, err := svc.Register(ctx, "insp@example.com", "password1", "", model.RoleInspector)
	require.NoError(t, err)

	ok, err := svc.HasPermission(ctx, admin.ID, model.PermissionUsersManage)
	require.NoError(t, err)
	assert.True(t, ok, "wildcard grants everything")

	ok, err = svc.HasPermission(ctx, inspector.ID, model.PermissionInventoryCheck)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, inspector.ID, model.PermissionInventoryWrite)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(ctx, "ghost", model.PermissionInventoryRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisabledUser(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "ana@example.com", "password1", "", model.RoleManager)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, "ana@example.com", model.UserDisabled)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	ok, err := svc.HasPermission(ctx, u.ID, model.PermissionInventoryRead)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.SetStatus(ctx, "ana@example.com", "paused")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.SetStatus(ctx, "bo@example.com", model.UserActive)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
