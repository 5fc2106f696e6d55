package handlers

import (
	"net/http"

	"ekokampus/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// GetUser returns a user's public reputation view.
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           u.ID,
		"role":         string(u.Role),
		"trust_score":  u.TrustScore,
		"total_points": u.TotalPoints,
	})
}

type updateSettingRequest struct {
	Key       string `json:"key" binding:"required"`
	Value     string `json:"value" binding:"required"`
	ValueType string `json:"value_type" binding:"required"` // INT, FLOAT, BOOL, STRING
}

// UpdateSetting writes a system setting. Admin only; the setting cache
// invalidation means the new value takes effect on the next read.
func (h *Handlers) UpdateSetting(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	if models.UserRole(c.GetHeader(HeaderUserRole)) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	args := &updateSettingRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /admin/setting call: %v", err)
		return
	}
	if err := h.settings.Set(c.Request.Context(), args.Key, args.Value, args.ValueType); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
