package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
	"github.com/magabrotheeeer/community-directory/internal/services/session"
	"github.com/magabrotheeeer/community-directory/internal/storage/storagetest"
)

type UserFinderMock struct {
	mock.Mock
}

func (m *UserFinderMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*session.Directory, *UserFinderMock, *clock) {
	backend, _ := storagetest.NewRedis(t)
	users := new(UserFinderMock)
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	d := session.New(backend, users, time.Hour, storagetest.NoopLogger())
	d.SetClock(c.now)
	return d, users, c
}

func TestCreateAndValidate(t *testing.T) {
	d, users, _ := setup(t)
	ctx := context.Background()
	alice := &models.User{Email: "alice@example.com", Role: models.RoleUser}
	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(alice, nil)

	token, err := d.Create(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := d.Create(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	got, err := d.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestValidateExpiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr bool
	}{
		{name: "just before expiry", elapsed: 3599 * time.Second, wantErr: false},
		{name: "exactly at expiry", elapsed: 3600 * time.Second, wantErr: true},
		{name: "after expiry", elapsed: 3601 * time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, users, c := setup(t)
			ctx := context.Background()
			users.On("FindByEmail", mock.Anything, "a@x.com").
				Return(&models.User{Email: "a@x.com"}, nil).Maybe()

			token, err := d.Create(ctx, "a@x.com")
			require.NoError(t, err)

			c.t = c.t.Add(tt.elapsed)
			_, err = d.Validate(ctx, token)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrUnauthorized)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	d, users, _ := setup(t)
	ctx := context.Background()
	users.On("FindByEmail", mock.Anything, "gone@x.com").Return(nil, apperr.ErrNotFound)

	orphan, err := d.Create(ctx, "gone@x.com")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty token":   "",
		"unknown token": "deadbeef",
		"deleted user":  orphan,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := d.Validate(ctx, token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestValidateStorageError(t *testing.T) {
	d, users, _ := setup(t)
	ctx := context.Background()
	users.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("boom"))

	token, err := d.Create(ctx, "a@x.com")
	require.NoError(t, err)

	_, err = d.Validate(ctx, token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestDeleteIsIdempotent(t *testing.T) {
	d, users, _ := setup(t)
	ctx := context.Background()
	users.On("FindByEmail", mock.Anything, "a@x.com").Return(&models.User{Email: "a@x.com"}, nil).Maybe()

	token, err := d.Create(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, token))
	_, err = d.Validate(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	assert.NoError(t, d.Delete(ctx, token))
	assert.NoError(t, d.Delete(ctx, "never-issued"))
	assert.NoError(t, d.Delete(ctx, ""))
}
