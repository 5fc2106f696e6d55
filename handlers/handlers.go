package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ekokampus/bounty"
	"ekokampus/database"
	"ekokampus/detective"
	"ekokampus/fillmodel"
	"ekokampus/models"
	"ekokampus/settings"
	"ekokampus/verifier"
	"ekokampus/vetting"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Identity headers set by the auth gateway.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

type Handlers struct {
	db          *sql.DB
	reports     *database.ReportStore
	bins        *database.BinStore
	users       *database.UserStore
	fill        *fillmodel.Model
	settings    *settings.Service
	verifier    verifier.Client
	coordinator *vetting.Coordinator
	bounties    *bounty.Service
	detectives  *detective.Service

	verifyTimeout time.Duration
}

func New(db *sql.DB, reports *database.ReportStore, bins *database.BinStore,
	users *database.UserStore, fill *fillmodel.Model, s *settings.Service,
	v verifier.Client, c *vetting.Coordinator, b *bounty.Service,
	d *detective.Service, verifyTimeout time.Duration) *Handlers {
	return &Handlers{
		db:            db,
		reports:       reports,
		bins:          bins,
		users:         users,
		fill:          fill,
		settings:      s,
		verifier:      v,
		coordinator:   c,
		bounties:      b,
		detectives:    d,
		verifyTimeout: verifyTimeout,
	}
}

// HealthCheck returns a simple health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "consensus-engine",
	})
}

// GetBin returns the bin's current state including its soft fill
// level.
func (h *Handlers) GetBin(c *gin.Context) {
	bin, err := h.bins.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := models.BinResponse{
		ID:        bin.ID,
		Code:      bin.Code,
		FillLevel: bin.FillLevel.StringFixed(3),
		Status:    string(bin.Status),
	}
	if bin.LastEmptiedAt != nil {
		resp.LastEmptiedAt = bin.LastEmptiedAt.Format(time.RFC3339)
	}
	if bin.LastReportAt != nil {
		resp.LastReportAt = bin.LastReportAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// EmptyBin resets a bin's fill level. Staff only.
func (h *Handlers) EmptyBin(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	role := models.UserRole(c.GetHeader(HeaderUserRole))
	if role != models.RoleStaff && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}

	args := &models.EmptyBinRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /empty_bin call: %v", err)
		return
	}
	if err := h.fill.Empty(c.Request.Context(), h.db, args.BinID, userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// identity extracts the caller's user id, writing a 401 when absent.
func identity(c *gin.Context) (string, bool) {
	userID := c.GetHeader(HeaderUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return "", false
	}
	return userID, true
}

// writeError maps domain errors to HTTP statuses; anything unexpected
// is a 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrRateLocked):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotEligible):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrGeoFence), errors.Is(err, models.ErrBinInactive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrDuplicateVote),
		errors.Is(err, models.ErrDuplicateClaim),
		errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrNotUnderVetting),
		errors.Is(err, models.ErrBountyFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Errorf("internal error: %v", err)
		c.String(http.StatusInternalServerError, fmt.Sprint(err))
	}
}
