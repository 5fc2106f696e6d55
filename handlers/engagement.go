package handlers

import (
	"net/http"

	"ekokampus/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// ClaimBounty takes a slot on an open cleanup bounty.
func (h *Handlers) ClaimBounty(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}

	args := &models.ClaimBountyRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /claim_bounty call: %v", err)
		return
	}

	b, err := h.bounties.Claim(c.Request.Context(), args.BountyID, userID, args.ReportID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ClaimBountyResponse{
		BountyID:      b.ID,
		PointsAwarded: b.RewardPoints,
		SlotsLeft:     b.MaxClaimants - b.CurrentClaimants,
	})
}

// ListBinBounties returns the open bounties targeting a bin.
func (h *Handlers) ListBinBounties(c *gin.Context) {
	bounties, err := h.bounties.OpenForBin(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(bounties))
	for _, b := range bounties {
		out = append(out, gin.H{
			"bounty_id":     b.ID,
			"title":         b.Title,
			"reward_points": b.RewardPoints,
			"slots_left":    b.MaxClaimants - b.CurrentClaimants,
			"expires_at":    b.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// SubmitDetective files an off-bin problem report (dumping, broken
// bin, hazard).
func (h *Handlers) SubmitDetective(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}

	args := &models.SubmitDetectiveRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /detective_report call: %v", err)
		return
	}

	r, err := h.detectives.Submit(c.Request.Context(), userID, args.ProblemType, args.Latitude, args.Longitude)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_id": r.ID, "status": string(r.Status)})
}

// ConfirmDetective adds one community confirmation to a problem
// report.
func (h *Handlers) ConfirmDetective(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}

	args := &models.ConfirmDetectiveRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /confirm_detective call: %v", err)
		return
	}

	r, err := h.detectives.Confirm(c.Request.Context(), args.ReportID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ConfirmDetectiveResponse{
		ReportID:      r.ID,
		Confirmations: r.ConfirmationCount,
		Status:        string(r.Status),
	})
}
