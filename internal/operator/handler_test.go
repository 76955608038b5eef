package operator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledgerkeeper/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, name, email, passwordHash, role string) (*Operator, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Operator), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*Operator, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Operator), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int) (*Operator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Operator), args.Error(1)
}

func (m *MockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func setupOperatorRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(repo, testSecret)

	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.GET("/me", auth.AuthMiddleware(testSecret), h.GetMe)
	return router
}

func TestRegister(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	repo.On("EmailExists", mock.Anything, "jo@example.com").Return(false, nil)
	repo.On("Create", mock.Anything, "Jo", "jo@example.com", mock.AnythingOfType("string"), auth.RoleOperator).
		Return(&Operator{ID: 1, Name: "Jo", Email: "jo@example.com", Role: auth.RoleOperator}, nil)

	body, _ := json.Marshal(RegisterRequest{Name: "Jo", Email: "jo@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "jo@example.com", resp.Operator.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	repo.On("EmailExists", mock.Anything, "jo@example.com").Return(true, nil)

	body, _ := json.Marshal(RegisterRequest{Name: "Jo", Email: "jo@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	repo.AssertNotCalled(t, "Create")
}

func TestRegister_ShortPassword(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	body, _ := json.Marshal(RegisterRequest{Name: "Jo", Email: "jo@example.com", Password: "short"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "jo@example.com").
		Return(&Operator{ID: 1, Email: "jo@example.com", PasswordHash: hash, Role: auth.RoleAdmin}, nil)

	body, _ := json.Marshal(LoginRequest{Email: "jo@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "jo@example.com").
		Return(&Operator{ID: 1, Email: "jo@example.com", PasswordHash: hash}, nil)

	body, _ := json.Marshal(LoginRequest{Email: "jo@example.com", Password: "wrong-password"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	repo.On("FindByEmail", mock.Anything, "missing@example.com").
		Return(nil, ErrOperatorNotFound)

	body, _ := json.Marshal(LoginRequest{Email: "missing@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMe(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	repo.On("FindByID", mock.Anything, 1).
		Return(&Operator{ID: 1, Name: "Jo", Email: "jo@example.com", Role: auth.RoleAdmin}, nil)

	token, err := auth.GenerateAccessToken(1, "jo@example.com", auth.RoleAdmin, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jo@example.com")
}

func TestGetMe_Unauthenticated(t *testing.T) {
	repo := new(MockRepository)
	router := setupOperatorRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
