package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledgerkeeper/internal/balance"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ComputeBalance(ctx context.Context, userID string, asOf int64) (*balance.Computed, error) {
	args := m.Called(ctx, userID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Computed), args.Error(1)
}

func (m *MockService) CachedBalance(ctx context.Context, userID string) (*balance.Cached, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Cached), args.Error(1)
}

func (m *MockService) ReconcileUser(ctx context.Context, userID string, asOf int64, apply bool, updatedBy string) (*balance.ReconciliationResult, error) {
	args := m.Called(ctx, userID, asOf, apply, updatedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.ReconciliationResult), args.Error(1)
}

func (m *MockService) Sweep(ctx context.Context, userIDs []string, opts SweepOptions) (*SweepReport, error) {
	args := m.Called(ctx, userIDs, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SweepReport), args.Error(1)
}

func (m *MockService) SweepAll(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SweepReport), args.Error(1)
}

func setupReconcileRouter(svc Service, queue *Queue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, queue)

	router := gin.New()
	router.GET("/users/:userID/balance", h.GetBalance)
	router.GET("/users/:userID/balance/cached", h.GetCachedBalance)
	router.POST("/admin/users/:userID/reconcile", h.ReconcileUser)
	router.POST("/admin/reconcile/sweep", h.Sweep)
	router.POST("/admin/reconcile/sweep/enqueue", h.EnqueueSweep)
	router.GET("/admin/reconcile/queue", h.QueueDepth)
	return router
}

func TestGetBalance(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("ComputeBalance", mock.Anything, "u1", int64(5000)).
		Return(&balance.Computed{AvailableCredits: 80, LifetimeCredits: 100, TotalCredits: 100, ExpiredCredits: 20}, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/balance?as_of=5000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var computed balance.Computed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &computed))
	assert.Equal(t, int64(80), computed.AvailableCredits)
	svc.AssertExpectations(t)
}

func TestGetBalance_DefaultsAsOfToNow(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("ComputeBalance", mock.Anything, "u1", mock.MatchedBy(func(asOf int64) bool {
		return asOf > 0
	})).Return(&balance.Computed{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/balance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetCachedBalance(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("CachedBalance", mock.Anything, "u1").
		Return(&balance.Cached{UserID: "u1", Credits: 90}, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/balance/cached", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"u1"`)
}

func TestReconcileUserEndpoint(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("ReconcileUser", mock.Anything, "u1", int64(5000), true, "").
		Return(&balance.ReconciliationResult{UserID: "u1", WasUpdated: true}, nil)

	body := []byte(`{"as_of": 5000, "apply": true}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/users/u1/reconcile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result balance.ReconciliationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.WasUpdated)
}

func TestReconcileUserEndpoint_Locked(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("ReconcileUser", mock.Anything, "u1", int64(5000), true, "").
		Return(nil, ErrUserLocked)

	body := []byte(`{"as_of": 5000, "apply": true}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/users/u1/reconcile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSweepEndpoint_WithUserIDs(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("Sweep", mock.Anything, []string{"u1", "u2"}, mock.MatchedBy(func(opts SweepOptions) bool {
		return opts.BatchSize == defaultBatchSize && opts.Trigger == "sync"
	})).Return(&SweepReport{RunID: "run-1"}, nil)

	body := []byte(`{"user_ids": ["u1", "u2"], "as_of": 5000}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/sweep", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSweepEndpoint_AllUsersWhenOmitted(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("SweepAll", mock.Anything, mock.Anything).
		Return(&SweepReport{RunID: "run-2"}, nil)

	body := []byte(`{"as_of": 5000}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/sweep", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertNotCalled(t, "Sweep")
}

func TestSweepEndpoint_InvalidBatchSize(t *testing.T) {
	svc := new(MockService)
	router := setupReconcileRouter(svc, nil)

	svc.On("SweepAll", mock.Anything, mock.Anything).
		Return(nil, ErrInvalidBatchSize)

	body := []byte(`{"batch_size": -5}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/sweep", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnqueueSweepEndpoint(t *testing.T) {
	client, redis := redismock.NewClientMock()
	queue := NewQueue(client, nil)
	router := setupReconcileRouter(nil, queue)

	redis.Regexp().ExpectLPush(sweepQueueKey, `.*`).SetVal(1)
	redis.ExpectLLen(sweepQueueKey).SetVal(1)

	body := []byte(`{"user_ids": ["u1"], "as_of": 5000, "apply": true}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/sweep/enqueue", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp EnqueueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
}

func TestEnqueueSweepEndpoint_NegativeBatchSize(t *testing.T) {
	router := setupReconcileRouter(nil, nil)

	body := []byte(`{"batch_size": -1}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/sweep/enqueue", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueDepthEndpoint(t *testing.T) {
	client, redis := redismock.NewClientMock()
	queue := NewQueue(client, nil)
	router := setupReconcileRouter(nil, queue)

	redis.ExpectLLen(sweepQueueKey).SetVal(3)

	req := httptest.NewRequest(http.MethodGet, "/admin/reconcile/queue", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"depth":3`)
}
