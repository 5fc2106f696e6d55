package handlers

import (
	"net/http"

	"ekokampus/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// CastVote records a peer vote on a report under vetting.
func (h *Handlers) CastVote(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}

	args := &models.CastVoteRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /vote call: %v", err)
		return
	}
	choice := models.VoteChoice(args.Choice)
	if choice != models.VoteApprove && choice != models.VoteReject {
		c.JSON(http.StatusBadRequest, gin.H{"error": "choice must be APPROVE or REJECT"})
		return
	}

	report, err := h.coordinator.CastVote(c.Request.Context(), args.ReportID, userID, choice, args.Latitude, args.Longitude)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CastVoteResponse{
		ReportID:   report.ID,
		Status:     string(report.Status),
		Resolution: string(report.Resolution),
	})
}
