package models

import "errors"

// Domain errors surfaced to callers. Handlers map these to HTTP
// statuses; everything else is an infrastructure failure.
var (
	ErrValidation      = errors.New("invalid request")
	ErrRateLocked      = errors.New("user reported this bin too recently")
	ErrGeoFence        = errors.New("reporter location outside the bin geo-fence")
	ErrNotEligible     = errors.New("user is not an eligible voter for this report")
	ErrDuplicateVote   = errors.New("vote already cast for this report")
	ErrDuplicateClaim  = errors.New("bounty already claimed by this user")
	ErrAlreadyResolved = errors.New("report already resolved")
	ErrNotUnderVetting = errors.New("report is not under vetting")
	ErrBountyFull      = errors.New("bounty has no remaining slots")
	ErrBinInactive     = errors.New("bin is not active")
	ErrNotFound        = errors.New("record not found")
)
