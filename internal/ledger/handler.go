package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"ledgerkeeper/internal/api"
	"ledgerkeeper/internal/metrics"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type CreateEntryRequest struct {
	// Amount deliberately has no required tag: zero-amount entries are
	// legal audit markers.
	Amount      int64     `json:"amount"`
	Type        EntryType `json:"type" binding:"required"`
	EffectiveAt int64     `json:"effective_at" binding:"required"`
	ExpiresAt   *int64    `json:"expires_at,omitempty"`
}

// CreateEntry godoc
// @Summary      Append ledger entry
// @Description  Appends an immutable credit-affecting entry to a user's ledger.
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        userID   path      string              true  "User ID"
// @Param        request  body      CreateEntryRequest  true  "Entry data"
// @Success      201      {object}  Entry
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/users/{userID}/entries [post]
func (h *Handler) CreateEntry(c *gin.Context) {
	userID := c.Param("userID")

	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.BindingErrorMessage(err)})
		return
	}

	candidate := Entry{
		UserID:      userID,
		Amount:      req.Amount,
		Type:        req.Type,
		EffectiveAt: req.EffectiveAt,
		ExpiresAt:   req.ExpiresAt,
	}
	if violations := Validate([]Entry{candidate}); len(violations) > 0 {
		metrics.RecordValidationViolations(len(violations))
		c.JSON(http.StatusBadRequest, gin.H{"error": "entry failed validation", "violations": violations})
		return
	}

	entry, err := h.repo.Append(c.Request.Context(), userID, req.Amount, req.Type, req.EffectiveAt, req.ExpiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to append ledger entry"})
		return
	}

	metrics.RecordEntryWritten(string(entry.Type))
	c.JSON(http.StatusCreated, entry)
}

// ListEntries godoc
// @Summary      List ledger entries
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      string  true   "User ID"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Page offset"
// @Success      200     {array}   Entry
// @Failure      500     {object}  api.ErrorResponse
// @Router       /users/{userID}/entries [get]
func (h *Handler) ListEntries(c *gin.Context) {
	userID := c.Param("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.repo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load ledger entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// DeleteEntry godoc
// @Summary      Soft-delete ledger entry
// @Description  Marks an entry deleted. The row is kept for audit; it no longer counts toward any balance.
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        entryID  path      int  true  "Entry ID"
// @Success      200      {object}  api.MessageResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/entries/{entryID} [delete]
func (h *Handler) DeleteEntry(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("entryID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid entry ID"})
		return
	}

	if err := h.repo.SoftDelete(c.Request.Context(), entryID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Entry not found or already deleted"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to delete entry"})
		return
	}

	metrics.RecordEntryDeleted()
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Entry deleted"})
}
