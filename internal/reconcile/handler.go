package reconcile

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ledgerkeeper/internal/api"
	"ledgerkeeper/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
	queue   *Queue
}

func NewHandler(service Service, queue *Queue) *Handler {
	return &Handler{
		service: service,
		queue:   queue,
	}
}

type ReconcileRequest struct {
	AsOf  int64 `json:"as_of"`
	Apply bool  `json:"apply"`
}

type SweepRequest struct {
	UserIDs     []string `json:"user_ids,omitempty"`
	BatchSize   int      `json:"batch_size"`
	Concurrency int      `json:"concurrency"`
	AsOf        int64    `json:"as_of"`
	Apply       bool     `json:"apply"`
}

type EnqueueResponse struct {
	JobID string `json:"job_id"`
}

// GetBalance godoc
// @Summary      Compute balance
// @Description  Replays the user's full ledger and returns the ground-truth balance as of the given time.
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      string  true   "User ID"
// @Param        as_of   query     int     false  "Reference time (unix ms, defaults to now)"
// @Success      200     {object}  balance.Computed
// @Failure      500     {object}  api.ErrorResponse
// @Router       /users/{userID}/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID := c.Param("userID")
	asOf := asOfParam(c)

	computed, err := h.service.ComputeBalance(c.Request.Context(), userID, asOf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to compute balance"})
		return
	}

	c.JSON(http.StatusOK, computed)
}

// GetCachedBalance godoc
// @Summary      Read cached balance projection
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      string  true  "User ID"
// @Success      200     {object}  balance.Cached
// @Failure      500     {object}  api.ErrorResponse
// @Router       /users/{userID}/balance/cached [get]
func (h *Handler) GetCachedBalance(c *gin.Context) {
	userID := c.Param("userID")

	cached, err := h.service.CachedBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load cached balance"})
		return
	}

	c.JSON(http.StatusOK, cached)
}

// ReconcileUser godoc
// @Summary      Reconcile a single user
// @Description  Compares the recomputed balance against the cached projection; optionally writes the correction.
// @Tags         reconciliation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        userID   path      string            true  "User ID"
// @Param        request  body      ReconcileRequest  true  "Reconciliation options"
// @Success      200      {object}  balance.ReconciliationResult
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/users/{userID}/reconcile [post]
func (h *Handler) ReconcileUser(c *gin.Context) {
	userID := c.Param("userID")

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.BindingErrorMessage(err)})
		return
	}
	if req.AsOf == 0 {
		req.AsOf = time.Now().UnixMilli()
	}

	updatedBy, _ := auth.GetOperatorEmail(c)

	result, err := h.service.ReconcileUser(c.Request.Context(), userID, req.AsOf, req.Apply, updatedBy)
	if err != nil {
		if errors.Is(err, ErrUserLocked) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "user balance is locked, try again"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to reconcile user"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Sweep godoc
// @Summary      Run reconciliation sweep
// @Description  Reconciles the given users (or all users when omitted) synchronously and returns the full report.
// @Tags         reconciliation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      SweepRequest  true  "Sweep options"
// @Success      200      {object}  SweepReport
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/reconcile/sweep [post]
func (h *Handler) Sweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.BindingErrorMessage(err)})
		return
	}

	updatedBy, _ := auth.GetOperatorEmail(c)
	opts := sweepOptions(req, updatedBy)

	var (
		report *SweepReport
		err    error
	)
	if len(req.UserIDs) == 0 {
		report, err = h.service.SweepAll(c.Request.Context(), opts)
	} else {
		report, err = h.service.Sweep(c.Request.Context(), req.UserIDs, opts)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidBatchSize) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to run sweep"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// EnqueueSweep godoc
// @Summary      Queue reconciliation sweep
// @Description  Enqueues an async sweep job processed by the background worker.
// @Tags         reconciliation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      SweepRequest  true  "Sweep options"
// @Success      202      {object}  EnqueueResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/reconcile/sweep/enqueue [post]
func (h *Handler) EnqueueSweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.BindingErrorMessage(err)})
		return
	}

	if req.BatchSize < 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: ErrInvalidBatchSize.Error()})
		return
	}

	requestedBy, _ := auth.GetOperatorEmail(c)

	jobID, err := h.queue.Enqueue(c.Request.Context(), SweepJob{
		UserIDs:     req.UserIDs,
		BatchSize:   req.BatchSize,
		Concurrency: req.Concurrency,
		AsOf:        req.AsOf,
		Apply:       req.Apply,
		RequestedBy: requestedBy,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to enqueue sweep"})
		return
	}

	c.JSON(http.StatusAccepted, EnqueueResponse{JobID: jobID})
}

// QueueDepth godoc
// @Summary      Sweep queue depth
// @Tags         reconciliation
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  gin.H
// @Failure      500  {object}  api.ErrorResponse
// @Router       /admin/reconcile/queue [get]
func (h *Handler) QueueDepth(c *gin.Context) {
	depth, err := h.queue.Len(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to read queue depth"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"depth": depth})
}

func sweepOptions(req SweepRequest, updatedBy string) SweepOptions {
	opts := SweepOptions{
		BatchSize:   req.BatchSize,
		Concurrency: req.Concurrency,
		AsOf:        req.AsOf,
		Apply:       req.Apply,
		UpdatedBy:   updatedBy,
		Trigger:     "sync",
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.AsOf == 0 {
		opts.AsOf = time.Now().UnixMilli()
	}
	return opts
}

func asOfParam(c *gin.Context) int64 {
	if raw := c.Query("as_of"); raw != "" {
		if asOf, err := strconv.ParseInt(raw, 10, 64); err == nil && asOf > 0 {
			return asOf
		}
	}
	return time.Now().UnixMilli()
}
