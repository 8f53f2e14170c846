package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/lib/password"
	"github.com/magabrotheeeer/community-directory/internal/models"
	"github.com/magabrotheeeer/community-directory/internal/services/account"
	"github.com/magabrotheeeer/community-directory/internal/services/roleguard"
	"github.com/magabrotheeeer/community-directory/internal/storage/storagetest"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) Insert(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	all, _ := args.Get(0).([]models.User)
	return all, args.Error(1)
}

func (m *UserRepoMock) SetRole(ctx context.Context, email, role string) error {
	return m.Called(ctx, email, role).Error(0)
}

func (m *UserRepoMock) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type SessionsMock struct {
	mock.Mock
}

func (m *SessionsMock) Create(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *SessionsMock) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type CredentialsMock struct {
	mock.Mock
}

func (m *CredentialsMock) IssueCode(ctx context.Context, email, purpose string) (string, error) {
	args := m.Called(ctx, email, purpose)
	return args.String(0), args.Error(1)
}

func (m *CredentialsMock) ConsumeCode(ctx context.Context, email, code, purpose string) error {
	return m.Called(ctx, email, code, purpose).Error(0)
}

func (m *CredentialsMock) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return m.Called(ctx, email, code, newPassword).Error(0)
}

const protected = "admin@protected.example"

type fixture struct {
	svc   *account.AuthService
	repo  *UserRepoMock
	sess  *SessionsMock
	creds *CredentialsMock
}

func setup() *fixture {
	f := &fixture{
		repo:  new(UserRepoMock),
		sess:  new(SessionsMock),
		creds: new(CredentialsMock),
	}
	f.svc = account.NewAuthService(f.repo, f.sess, f.creds, roleguard.New([]string{protected}), 8, storagetest.NoopLogger())
	return f
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		setupMocks func(f *fixture)
		wantRole   string
		wantErr    error
	}{
		{
			name:     "successful registration",
			email:    "Test@Example.com",
			password: "password123",
			setupMocks: func(f *fixture) {
				f.repo.On("Insert", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "test@example.com" &&
						u.Role == models.RoleUser &&
						!u.Verified &&
						password.CompareHash(u.PasswordHash, "password123") == nil
				})).Return(&models.User{Email: "test@example.com", Role: models.RoleUser}, nil).Once()
				f.creds.On("IssueCode", mock.Anything, "test@example.com", models.PurposeSignup).Return("123456", nil).Once()
			},
			wantRole: models.RoleUser,
		},
		{
			name:     "protected principal registers as admin",
			email:    protected,
			password: "password123",
			setupMocks: func(f *fixture) {
				f.repo.On("Insert", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Role == models.RoleAdmin
				})).Return(&models.User{Email: protected, Role: models.RoleAdmin}, nil).Once()
				f.creds.On("IssueCode", mock.Anything, protected, models.PurposeSignup).Return("123456", nil).Once()
			},
			wantRole: models.RoleAdmin,
		},
		{
			name:       "short password",
			email:      "test@example.com",
			password:   "short",
			setupMocks: func(_ *fixture) {},
			wantErr:    apperr.ErrInvalidInput,
		},
		{
			name:     "duplicate email",
			email:    "test@example.com",
			password: "password123",
			setupMocks: func(f *fixture) {
				f.repo.On("Insert", mock.Anything, mock.Anything).Return(nil, apperr.ErrDuplicateIdentifier).Once()
			},
			wantErr: apperr.ErrDuplicateIdentifier,
		},
		{
			name:     "code delivery failure does not fail registration",
			email:    "test@example.com",
			password: "password123",
			setupMocks: func(f *fixture) {
				f.repo.On("Insert", mock.Anything, mock.Anything).Return(&models.User{Email: "test@example.com", Role: models.RoleUser}, nil).Once()
				f.creds.On("IssueCode", mock.Anything, "test@example.com", models.PurposeSignup).Return("", errors.New("queue down")).Once()
			},
			wantRole: models.RoleUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup()
			tt.setupMocks(f)

			user, err := f.svc.Register(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, user.Role)
			}

			f.repo.AssertExpectations(t)
			f.creds.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("correctpassword")
	require.NoError(t, err)
	verified := &models.User{Email: "test@example.com", PasswordHash: hash, Role: models.RoleUser, Verified: true}
	unverified := &models.User{Email: "new@example.com", PasswordHash: hash, Role: models.RoleUser}

	tests := []struct {
		name       string
		email      string
		password   string
		setupMocks func(f *fixture)
		wantToken  string
		wantErr    error
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: "correctpassword",
			setupMocks: func(f *fixture) {
				f.repo.On("FindByEmail", mock.Anything, "test@example.com").Return(verified, nil).Once()
				f.sess.On("Create", mock.Anything, "test@example.com").Return("token-123", nil).Once()
			},
			wantToken: "token-123",
		},
		{
			name:     "user not found",
			email:    "ghost@example.com",
			password: "whatever1",
			setupMocks: func(f *fixture) {
				f.repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, apperr.ErrNotFound).Once()
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "wrongpassword",
			setupMocks: func(f *fixture) {
				f.repo.On("FindByEmail", mock.Anything, "test@example.com").Return(verified, nil).Once()
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name:     "email not verified",
			email:    "new@example.com",
			password: "correctpassword",
			setupMocks: func(f *fixture) {
				f.repo.On("FindByEmail", mock.Anything, "new@example.com").Return(unverified, nil).Once()
			},
			wantErr: apperr.ErrForbidden,
		},
		{
			name:     "storage unavailable",
			email:    "test@example.com",
			password: "correctpassword",
			setupMocks: func(f *fixture) {
				f.repo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, apperr.ErrStorageUnavailable).Once()
			},
			wantErr: apperr.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup()
			tt.setupMocks(f)

			token, user, err := f.svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				assert.Equal(t, verified, user)
			}

			f.repo.AssertExpectations(t)
			f.sess.AssertExpectations(t)
		})
	}
}

func TestAuthService_Verify(t *testing.T) {
	f := setup()
	ctx := context.Background()
	f.creds.On("ConsumeCode", mock.Anything, "a@x.com", "123456", models.PurposeSignup).Return(nil).Once()
	f.creds.On("ConsumeCode", mock.Anything, "a@x.com", "123456", models.PurposeSignup).Return(apperr.ErrInvalidCredential).Once()
	f.sess.On("Create", mock.Anything, "a@x.com").Return("tok", nil).Once()

	token, err := f.svc.Verify(ctx, "a@x.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = f.svc.Verify(ctx, "a@x.com", "123456")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
	f.sess.AssertExpectations(t)
}

func TestAuthService_LogoutNeverFails(t *testing.T) {
	f := setup()
	f.sess.On("Delete", mock.Anything, "unknown").Return(nil).Once()
	f.sess.On("Delete", mock.Anything, "broken").Return(apperr.ErrStorageUnavailable).Once()

	assert.NotPanics(t, func() {
		f.svc.Logout(context.Background(), "unknown")
		f.svc.Logout(context.Background(), "broken")
	})
	f.sess.AssertExpectations(t)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	f := setup()
	ctx := context.Background()
	f.repo.On("FindByEmail", mock.Anything, "a@x.com").Return(&models.User{Email: "a@x.com"}, nil).Once()
	f.repo.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, apperr.ErrNotFound).Once()
	f.creds.On("IssueCode", mock.Anything, "a@x.com", models.PurposeReset).Return("654321", nil).Once()

	f.svc.ForgotPassword(ctx, "a@x.com")
	f.svc.ForgotPassword(ctx, "ghost@x.com")

	f.creds.AssertExpectations(t)
	f.creds.AssertNumberOfCalls(t, "IssueCode", 1)
}

func TestAuthService_ResendVerification(t *testing.T) {
	f := setup()
	ctx := context.Background()
	f.repo.On("FindByEmail", mock.Anything, "new@x.com").Return(&models.User{Email: "new@x.com"}, nil).Once()
	f.repo.On("FindByEmail", mock.Anything, "done@x.com").Return(&models.User{Email: "done@x.com", Verified: true}, nil).Once()
	f.creds.On("IssueCode", mock.Anything, "new@x.com", models.PurposeSignup).Return("111111", nil).Once()

	require.NoError(t, f.svc.ResendVerification(ctx, "new@x.com"))
	require.NoError(t, f.svc.ResendVerification(ctx, "done@x.com"))
	f.creds.AssertExpectations(t)
}

func TestAuthService_SetRole(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		role       string
		setupMocks func(f *fixture)
		wantErr    error
	}{
		{
			name:   "promote regular user",
			target: "other@example.com",
			role:   models.RoleAdmin,
			setupMocks: func(f *fixture) {
				f.repo.On("SetRole", mock.Anything, "other@example.com", models.RoleAdmin).Return(nil).Once()
			},
		},
		{
			name:       "protected principal",
			target:     protected,
			role:       models.RoleUser,
			setupMocks: func(_ *fixture) {},
			wantErr:    apperr.ErrForbidden,
		},
		{
			name:       "unknown role",
			target:     "other@example.com",
			role:       "superuser",
			setupMocks: func(_ *fixture) {},
			wantErr:    apperr.ErrInvalidInput,
		},
		{
			name:   "missing user",
			target: "ghost@example.com",
			role:   models.RoleUser,
			setupMocks: func(f *fixture) {
				f.repo.On("SetRole", mock.Anything, "ghost@example.com", models.RoleUser).Return(apperr.ErrNotFound).Once()
			},
			wantErr: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup()
			tt.setupMocks(f)

			err := f.svc.SetRole(context.Background(), tt.target, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			f.repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_DeleteUser(t *testing.T) {
	f := setup()
	ctx := context.Background()
	f.repo.On("Delete", mock.Anything, "other@example.com").Return(nil).Once()

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, protected), apperr.ErrForbidden)
	assert.NoError(t, f.svc.DeleteUser(ctx, "other@example.com"))

	f.repo.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "Delete", mock.Anything, protected)
}
