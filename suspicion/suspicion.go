// Package suspicion scores incoming reports. The score is a pure
// function of the signals gathered during intake; routing compares it
// against two runtime thresholds.
package suspicion

// Signal weights. Each firing signal adds its weight; the total is
// clamped to [0, 100].
const (
	WeightDupPhotoSameUser  = 25
	WeightDupPhotoOtherUser = 15
	WeightAIMismatch        = 30
	WeightAILowConfidence   = 20
	WeightAIUnavailable     = 10
	WeightTimeSpoof         = 30

	lowConfidenceFloor = 0.5
)

// Input carries the intake signals for one report.
type Input struct {
	// DupPhotoSameUser is set when the photo hash matches an earlier
	// submission by the same user inside the lookback window.
	DupPhotoSameUser bool
	// DupPhotoOtherUser is set when the hash matches another user's
	// earlier submission.
	DupPhotoOtherUser bool

	// AIRan is false when photo vetting is disabled or the verifier
	// call failed; the verdict fields are then ignored.
	AIRan           bool
	AICategoryMatch bool
	AIConfidence    float64

	// TimeSpoof is set when the client-reported capture time deviates
	// from server time beyond the configured window.
	TimeSpoof bool
}

// Route is where a scored report goes next.
type Route string

const (
	RouteAutoApprove Route = "AUTO_APPROVE"
	RouteVetting     Route = "VETTING"
	RouteAutoReject  Route = "AUTO_REJECT"
)

// Score returns the additive suspicion score for the given signals.
func Score(in Input) int {
	score := 0
	if in.DupPhotoSameUser {
		score += WeightDupPhotoSameUser
	} else if in.DupPhotoOtherUser {
		score += WeightDupPhotoOtherUser
	}
	if in.AIRan {
		if !in.AICategoryMatch {
			score += WeightAIMismatch
		}
		if in.AIConfidence < lowConfidenceFloor {
			score += WeightAILowConfidence
		}
	} else {
		score += WeightAIUnavailable
	}
	if in.TimeSpoof {
		score += WeightTimeSpoof
	}
	if score > 100 {
		score = 100
	}
	return score
}

// RouteFor maps a score to its destination. vettingAt and rejectAt are
// the runtime thresholds; scores below vettingAt auto-approve, scores
// at or above rejectAt auto-reject, everything between goes to peer
// vetting.
func RouteFor(score, vettingAt, rejectAt int) Route {
	switch {
	case score >= rejectAt:
		return RouteAutoReject
	case score >= vettingAt:
		return RouteVetting
	default:
		return RouteAutoApprove
	}
}
