package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"ekokampus/geo"
	"ekokampus/metrics"
	"ekokampus/models"
	"ekokampus/settings"
	"ekokampus/suspicion"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmitReport runs the whole intake pipeline: validation, geo-fence,
// rate lock, photo fingerprinting, verifier call, suspicion scoring
// and routing.
func (h *Handlers) SubmitReport(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}

	args := &models.SubmitReportRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /report call: %v", err)
		return
	}

	ctx := c.Request.Context()
	category := models.WasteCategory(strings.ToUpper(args.Category))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown waste category"})
		metrics.ReportsTotal.WithLabelValues("rejected_input").Inc()
		return
	}
	clientTS, err := time.Parse(time.RFC3339, args.ClientTimestamp)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_timestamp must be RFC3339"})
		metrics.ReportsTotal.WithLabelValues("rejected_input").Inc()
		return
	}

	bin, err := h.bins.Get(ctx, args.BinID)
	if err != nil {
		writeError(c, err)
		return
	}
	if bin.Status != models.BinActive {
		writeError(c, models.ErrBinInactive)
		return
	}

	// Geo-fence: indoor bins get a wider radius since GPS degrades
	// under a roof.
	radius := h.settings.GetInt(ctx, settings.KeyGeoFenceRadiusM, 30)
	if bin.Indoor {
		radius = h.settings.GetInt(ctx, settings.KeyGeoFenceRadiusIndoorM, 60)
	}
	distance := geo.DistanceMeters(args.Latitude, args.Longitude, bin.Latitude, bin.Longitude)
	if distance > float64(radius) {
		writeError(c, models.ErrGeoFence)
		return
	}

	rateLockMin := h.settings.GetInt(ctx, settings.KeyRateLockMin, 15)
	locked, err := h.reports.HasRecentReport(ctx, userID, bin.ID, time.Duration(rateLockMin)*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}
	if locked {
		writeError(c, models.ErrRateLocked)
		return
	}

	in, evidence := h.gatherSignals(ctx, userID, category, clientTS, args.Image)
	score := suspicion.Score(in)
	metrics.SuspicionScore.Observe(float64(score))

	report := &models.WasteReport{
		ID:              uuid.New().String(),
		UserID:          userID,
		BinID:           bin.ID,
		Category:        category,
		Latitude:        args.Latitude,
		Longitude:       args.Longitude,
		ClientTimestamp: clientTS,
		GeoDistanceM:    int(distance),
		FillDelta:       decimal.Zero,
		SuspicionScore:  score,
		Status:          models.StatusPending,
	}
	if err := h.reports.Insert(ctx, report); err != nil {
		writeError(c, err)
		return
	}
	if evidence != nil {
		evidence.ReportID = report.ID
		if err := h.reports.InsertPhotoEvidence(ctx, evidence); err != nil {
			log.Errorf("persist photo evidence for %s: %v", report.ID, err)
		}
	}

	// Remember where the reporter is so they can be invited to vet
	// nearby disputes.
	if err := h.users.UpdateLastLocation(ctx, userID, args.Latitude, args.Longitude); err != nil {
		log.Warnf("update last location for %s: %v", userID, err)
	}

	vettingAt := h.settings.GetInt(ctx, settings.KeySuspicionVetting, 40)
	rejectAt := h.settings.GetInt(ctx, settings.KeySuspicionReject, 100)
	route := suspicion.RouteFor(score, vettingAt, rejectAt)
	switch route {
	case suspicion.RouteAutoApprove:
		err = h.coordinator.ResolveAuto(ctx, report.ID, models.StatusApproved)
		metrics.ReportsTotal.WithLabelValues("auto_approve").Inc()
	case suspicion.RouteAutoReject:
		err = h.coordinator.ResolveAuto(ctx, report.ID, models.StatusRejected)
		metrics.ReportsTotal.WithLabelValues("auto_reject").Inc()
	case suspicion.RouteVetting:
		err = h.coordinator.Open(ctx, report)
		metrics.ReportsTotal.WithLabelValues("vetting").Inc()
	}
	if err != nil {
		writeError(c, err)
		return
	}

	final, err := h.reports.Get(ctx, report.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SubmitReportResponse{
		ReportID:       final.ID,
		Status:         string(final.Status),
		SuspicionScore: final.SuspicionScore,
		PointsAwarded:  final.PointsAwarded,
	})
}

// gatherSignals collects the scorer inputs. Collaborator failures
// never fail the request; they degrade to the unavailable penalty.
func (h *Handlers) gatherSignals(ctx context.Context, userID string, category models.WasteCategory, clientTS time.Time, image []byte) (suspicion.Input, *models.PhotoEvidence) {
	var in suspicion.Input

	maxDiffHours := h.settings.GetInt(ctx, settings.KeyClientTSMaxDiffHours, 24)
	diff := time.Since(clientTS)
	if diff < 0 {
		diff = -diff
	}
	in.TimeSpoof = diff > time.Duration(maxDiffHours)*time.Hour

	if len(image) == 0 {
		return in, nil
	}

	sum := sha256.Sum256(image)
	hash := hex.EncodeToString(sum[:])
	evidence := &models.PhotoEvidence{ImageHash: hash}

	lookbackDays := h.settings.GetInt(ctx, settings.KeyPhotoDupLookbackDays, 30)
	sameUser, otherUser, err := h.reports.PhotoHashSeen(ctx, hash, userID, time.Duration(lookbackDays)*24*time.Hour)
	if err != nil {
		log.Errorf("photo hash lookup: %v", err)
	}
	in.DupPhotoSameUser = sameUser
	in.DupPhotoOtherUser = otherUser

	if !h.settings.GetBool(ctx, settings.KeyPhotoVettingEnabled, true) || h.verifier == nil {
		return in, evidence
	}

	vctx, cancel := context.WithTimeout(ctx, h.verifyTimeout)
	defer cancel()
	start := time.Now()
	verdict, err := h.verifier.Verify(vctx, image, string(category))
	if err != nil {
		metrics.VerifierDurationSeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
		log.Warnf("photo verifier (%s) failed: %v", h.verifier.SourceName(), err)
		evidence.AIReason = err.Error()
		return in, evidence
	}
	metrics.VerifierDurationSeconds.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	in.AIRan = true
	in.AICategoryMatch = verdict.Category == string(category)
	in.AIConfidence = verdict.Confidence

	now := time.Now()
	match := in.AICategoryMatch
	evidence.AIMatch = &match
	evidence.AIConfidence = &verdict.Confidence
	evidence.AIReason = verdict.Category
	evidence.AnalyzedAt = &now
	return in, evidence
}
