package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/service/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountUseCase struct {
	mock.Mock
}

func (m *MockAccountUseCase) Register(ctx context.Context, input domain.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) Login(ctx context.Context, username, password string) (*account.Session, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Session), args.Error(1)
}

func (m *MockAccountUseCase) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Principal), args.Error(1)
}

func (m *MockAccountUseCase) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) UpdateProfile(ctx context.Context, userID int64, input domain.UpdateProfileInput) (*domain.User, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirm string) error {
	args := m.Called(ctx, userID, oldPassword, newPassword, confirm)
	return args.Error(0)
}

func sampleUser() *domain.User {
	dob := time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:        7,
		Username:  "jane",
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Profile:   domain.Profile{PhoneNumber: "+15550100", DateOfBirth: &dob},
	}
}

func TestAccountHandler_register(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/register", map[string]any{
		"username":         "jane",
		"first_name":       "Jane",
		"last_name":        "Doe",
		"email":            "jane@example.com",
		"password":         "s3cret-pass",
		"password_confirm": "s3cret-pass",
	})
	mockService.On("Register", mock.Anything, domain.RegisterInput{
		Username:        "jane",
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		Password:        "s3cret-pass",
		PasswordConfirm: "s3cret-pass",
	}).Return(sampleUser(), nil)

	handler.register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	var resp userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1990-04-12", resp.DateOfBirth)
}

func TestAccountHandler_registerTaken(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/register", map[string]any{"username": "jane"})
	mockService.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrUsernameTaken)

	handler.register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username already exists", decodeError(t, w).Error)
}

func TestAccountHandler_login(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "jane", "password": "s3cret-pass"})
	mockService.On("Login", mock.Anything, "jane", "s3cret-pass").Return(&account.Session{
		Token:     "signed.jwt.token",
		ExpiresAt: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		User:      sampleUser(),
	}, nil)

	handler.login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signed.jwt.token", resp.Token)
	assert.Equal(t, "2026-06-02T00:00:00Z", resp.ExpiresAt)
	assert.Equal(t, "jane", resp.User.Username)
}

func TestAccountHandler_loginRequiresFields(t *testing.T) {
	useJSONFieldNames()
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "jane"})

	handler.login(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "password", resp.Fields[0].Field)
	mockService.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountHandler_loginInvalidCredentials(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "jane", "password": "wrong"})
	mockService.On("Login", mock.Anything, "jane", "wrong").Return(nil, domain.ErrInvalidCredentials)

	handler.login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountHandler_profile(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/api/v1/profile", nil)
	asUser(c, 7)
	mockService.On("Profile", mock.Anything, int64(7)).Return(sampleUser(), nil)

	handler.profile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestAccountHandler_updateProfile(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPut, "/api/v1/profile", map[string]any{
		"first_name":    "Jane",
		"last_name":     "Doe",
		"email":         "jane@example.com",
		"address":       "1 Main St",
		"date_of_birth": "1990-04-12",
	})
	asUser(c, 7)

	updated := sampleUser()
	updated.Profile.Address = "1 Main St"
	mockService.On("UpdateProfile", mock.Anything, int64(7), domain.UpdateProfileInput{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		Address:     "1 Main St",
		DateOfBirth: "1990-04-12",
	}).Return(updated, nil)

	handler.updateProfile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1 Main St", resp.Address)
}

func TestAccountHandler_changePassword(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPut, "/api/v1/profile/password", map[string]any{
		"old_password":         "s3cret-pass",
		"new_password":         "n3w-passw0rd",
		"new_password_confirm": "n3w-passw0rd",
	})
	asUser(c, 7)
	mockService.On("ChangePassword", mock.Anything, int64(7), "s3cret-pass", "n3w-passw0rd", "n3w-passw0rd").Return(nil)

	handler.changePassword(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"password changed"}`, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestAccountHandler_changePasswordWrongOld(t *testing.T) {
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPut, "/api/v1/profile/password", map[string]any{
		"old_password":         "nope",
		"new_password":         "n3w-passw0rd",
		"new_password_confirm": "n3w-passw0rd",
	})
	asUser(c, 7)
	var verrs domain.ValidationErrors
	verrs.Add("old_password", "your old password was entered incorrectly")
	mockService.On("ChangePassword", mock.Anything, int64(7), "nope", "n3w-passw0rd", "n3w-passw0rd").Return(verrs)

	handler.changePassword(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "old_password", resp.Fields[0].Field)
}

func TestAccountHandler_changePasswordMissingFields(t *testing.T) {
	useJSONFieldNames()
	mockService := &MockAccountUseCase{}
	handler := NewAccountHandler(mockService)

	c, w := newTestContext(http.MethodPut, "/api/v1/profile/password", map[string]any{"old_password": "s3cret-pass"})
	asUser(c, 7)

	handler.changePassword(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
