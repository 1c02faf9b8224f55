package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/honeynil/storefront-api/internal/models"
	service "github.com/honeynil/storefront-api/internal/services"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) GetUser(ctx context.Context, id int32) (*models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAccounts) SetActive(ctx context.Context, id int32, active bool) (*models.User, error) {
	args := m.Called(ctx, id, active)
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAccounts) UpsertAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAccounts) ResetPassword(ctx context.Context, email, password string) (int32, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(int32), args.Error(1)
}

func execute(t *testing.T, accounts *mockAccounts, args ...string) (string, bool, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	closed := false
	factory := func(context.Context) (service.AccountService, func(), error) {
		return accounts, func() { closed = true }, nil
	}
	cmd := newRootCommand(factory, &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), closed, err
}

func TestCreateAdmin(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("UpsertAdmin", mock.Anything, "Root", "root@example.com", "hunter2").
		Return(&models.User{ID: 1, Email: "root@example.com", Role: models.RoleAdmin}, nil)

	out, closed, err := execute(t, accounts, "create-admin", "--name", "Root", "--email", "root@example.com", "--password", "hunter2")

	require.NoError(t, err)
	assert.Contains(t, out, "admin root@example.com ready (id 1)")
	assert.True(t, closed)
	accounts.AssertExpectations(t)
}

func TestCreateAdmin_RequiresFlags(t *testing.T) {
	accounts := new(mockAccounts)

	_, closed, err := execute(t, accounts, "create-admin", "--email", "root@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.False(t, closed)
	accounts.AssertNotCalled(t, "UpsertAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("ResetPassword", mock.Anything, "jane@example.com", "new-pass").Return(int32(9), nil)

	out, _, err := execute(t, accounts, "reset-password", "--email", "jane@example.com", "--password", "new-pass")

	require.NoError(t, err)
	assert.Contains(t, out, "password reset for user 9")
}

func TestResetPassword_UnknownEmail(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("ResetPassword", mock.Anything, "x@example.com", "p").Return(int32(0), pkgerrors.ErrUserNotFound)

	_, closed, err := execute(t, accounts, "reset-password", "--email", "x@example.com", "--password", "p")

	assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
	assert.True(t, closed)
}

func TestFactoryError(t *testing.T) {
	boom := errors.New("postgres down")
	cmd := newRootCommand(func(context.Context) (service.AccountService, func(), error) {
		return nil, nil, boom
	}, new(bytes.Buffer), new(bytes.Buffer))
	cmd.SetArgs([]string{"reset-password", "--email", "a@b.c", "--password", "p"})

	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), boom)
}
