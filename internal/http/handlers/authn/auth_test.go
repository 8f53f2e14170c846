package authn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/community-directory/internal/http/middlewarectx"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *ServiceMock) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *ServiceMock) Verify(ctx context.Context, email, code string) (string, error) {
	args := m.Called(ctx, email, code)
	return args.String(0), args.Error(1)
}

func (m *ServiceMock) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(1).(*models.User)
	return args.String(0), u, args.Error(2)
}

func (m *ServiceMock) Logout(ctx context.Context, token string) {
	m.Called(ctx, token)
}

func (m *ServiceMock) ForgotPassword(ctx context.Context, email string) {
	m.Called(ctx, email)
}

func (m *ServiceMock) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return m.Called(ctx, email, code, newPassword).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doJSON(t *testing.T, h http.HandlerFunc, body any, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	case nil:
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h(rr, req)

	var resp map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		setup      func(m *ServiceMock)
		wantStatus int
	}{
		{
			name: "created",
			body: CredentialsRequest{Email: "a@example.com", Password: "longenough"},
			setup: func(m *ServiceMock) {
				m.On("Register", mock.Anything, "a@example.com", "longenough").
					Return(&models.User{Email: "a@example.com", PasswordHash: "secret-hash", Role: models.RoleUser}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate",
			body: CredentialsRequest{Email: "a@example.com", Password: "longenough"},
			setup: func(m *ServiceMock) {
				m.On("Register", mock.Anything, "a@example.com", "longenough").
					Return(nil, fmt.Errorf("account.Register: %w", apperr.ErrDuplicateIdentifier))
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "weak password",
			body: CredentialsRequest{Email: "a@example.com", Password: "short"},
			setup: func(m *ServiceMock) {
				m.On("Register", mock.Anything, "a@example.com", "short").
					Return(nil, fmt.Errorf("password.CheckPolicy: password must be at least 8 characters: %w", apperr.ErrInvalidInput))
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid email",
			body:       CredentialsRequest{Email: "nope", Password: "longenough"},
			setup:      func(*ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "broken json",
			body:       "{",
			setup:      func(*ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setup(svc)
			h := New(newNoopLogger(), svc)

			rr, resp := doJSON(t, h.Register, tt.body, nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.NotContains(t, rr.Body.String(), "secret-hash")
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, "OK", resp["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestLogin(t *testing.T) {
	user := &models.User{Email: "a@example.com", PasswordHash: "secret-hash", Role: models.RoleUser, Verified: true}

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"bad credentials", apperr.ErrUnauthorized, http.StatusUnauthorized},
		{"unverified", apperr.ErrForbidden, http.StatusForbidden},
		{"storage down", apperr.ErrStorageUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.err == nil {
				svc.On("Login", mock.Anything, "a@example.com", "password1").Return("tok", user, nil)
			} else {
				svc.On("Login", mock.Anything, "a@example.com", "password1").Return("", nil, tt.err)
			}
			h := New(newNoopLogger(), svc)

			rr, resp := doJSON(t, h.Login, CredentialsRequest{Email: "a@example.com", Password: "password1"}, nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.NotContains(t, rr.Body.String(), "secret-hash")
			if tt.err == nil {
				data := resp["data"].(map[string]any)
				assert.Equal(t, "tok", data["token"])
			}
		})
	}
}

func TestVerify(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Verify", mock.Anything, "a@example.com", "123456").Return("tok", nil).Once()
	svc.On("Verify", mock.Anything, "a@example.com", "000000").Return("", apperr.ErrInvalidCredential).Once()
	h := New(newNoopLogger(), svc)

	rr, resp := doJSON(t, h.Verify, VerifyRequest{Email: "a@example.com", Code: "123456"}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tok", resp["data"].(map[string]any)["token"])

	rr, _ = doJSON(t, h.Verify, VerifyRequest{Email: "a@example.com", Code: "000000"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doJSON(t, h.Verify, VerifyRequest{Email: "a@example.com", Code: "abc"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestLogout_AlwaysOK(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Logout", mock.Anything, "tok").Return().Once()
	h := New(newNoopLogger(), svc)

	rr, _ := doJSON(t, h.Logout, nil, map[string]string{"Authorization": "Bearer tok"})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, h.Logout, nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	svc.AssertNumberOfCalls(t, "Logout", 1)
}

func TestForgotAndResetPassword(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ForgotPassword", mock.Anything, "ghost@example.com").Return().Once()
	svc.On("ResetPassword", mock.Anything, "a@example.com", "123456", "newpassword").Return(nil).Once()
	svc.On("ResetPassword", mock.Anything, "a@example.com", "999999", "newpassword").Return(apperr.ErrInvalidCredential).Once()
	h := New(newNoopLogger(), svc)

	rr, _ := doJSON(t, h.ForgotPassword, EmailRequest{Email: "ghost@example.com"}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, h.ResetPassword, ResetRequest{Email: "a@example.com", Code: "123456", NewPassword: "newpassword"}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, h.ResetPassword, ResetRequest{Email: "a@example.com", Code: "999999", NewPassword: "newpassword"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}

func TestResendVerification(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ResendVerification", mock.Anything, "a@example.com").Return(nil).Once()
	h := New(newNoopLogger(), svc)

	rr, _ := doJSON(t, h.ResendVerification, EmailRequest{Email: "a@example.com"}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestMe(t *testing.T) {
	h := New(newNoopLogger(), new(ServiceMock))

	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	user := &models.User{Email: "a@example.com", PasswordHash: "secret-hash", Role: models.RoleAdmin}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.User, user))
	rr = httptest.NewRecorder()
	h.Me(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"admin"`)
	assert.NotContains(t, rr.Body.String(), "secret-hash")
}
