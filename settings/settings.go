// Package settings reads tunable thresholds from the system_settings
// table. Values are cached in-process with a short TTL so hot paths
// don't hit the database on every request; writing a key invalidates
// its cache entry.
package settings

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// Recognized keys. Every threshold the engine consults is listed here;
// nothing is hard-coded at call sites.
const (
	KeyGeoFenceRadiusM       = "GEO_FENCE_RADIUS_METERS"
	KeyGeoFenceRadiusIndoorM = "GEO_FENCE_RADIUS_INDOOR_METERS"
	KeyVettingRadiusM        = "VETTING_RADIUS_METERS"
	KeyVettingMinVotes       = "VETTING_MIN_VOTES"
	KeyVettingApproveRatio   = "VETTING_APPROVE_THRESHOLD"
	KeyVettingTimeoutMin     = "VETTING_TIMEOUT_MINUTES"
	KeyVettingTrustFloor     = "VETTING_TRUST_WEIGHT_FLOOR"
	KeyRateLockMin           = "RATE_LOCK_MINUTES"
	KeySuspicionVetting      = "SUSPICION_VETTING_THRESHOLD"
	KeySuspicionReject       = "SUSPICION_REJECT_THRESHOLD"
	KeyClientTSMaxDiffHours  = "CLIENT_TIMESTAMP_MAX_DIFF_HOURS"
	KeyPhotoVettingEnabled   = "AI_PHOTO_VETTING_ENABLED"
	KeyPhotoDupLookbackDays  = "PHOTO_DUP_LOOKBACK_DAYS"
	KeyDecayRatePerHour      = "DECAY_RATE_PER_HOUR"
	KeyDecayMaxCorrection    = "DECAY_MAX_CORRECTION"
	KeyBountyMaxClaimants    = "BOUNTY_DEFAULT_MAX_CLAIMANTS"
	KeyDetectiveConfirmMin   = "DETECTIVE_CONFIRM_THRESHOLD"
	KeyPointsReportApproved  = "POINTS_REPORT_APPROVED"

	// BASE_VOLUME_<CATEGORY> keys override fill-model base volumes.
	BaseVolumePrefix = "BASE_VOLUME_"
)

const cacheTTL = 5 * time.Minute

type cached struct {
	value   string
	vtype   string
	found   bool
	expires time.Time
}

// Service is the single access point for system settings.
type Service struct {
	db *sql.DB

	mu    sync.Mutex
	cache map[string]cached
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, cache: make(map[string]cached)}
}

func (s *Service) lookup(ctx context.Context, key string) (string, string, bool) {
	s.mu.Lock()
	if c, ok := s.cache[key]; ok && time.Now().Before(c.expires) {
		s.mu.Unlock()
		return c.value, c.vtype, c.found
	}
	s.mu.Unlock()

	var value, vtype string
	err := s.db.QueryRowContext(ctx,
		`SELECT value, value_type FROM system_settings WHERE setting_key = ?`, key).
		Scan(&value, &vtype)
	found := err == nil
	if err != nil && err != sql.ErrNoRows {
		log.Errorf("settings: failed to read %s: %v", key, err)
		// Do not cache transient DB failures.
		return "", "", false
	}

	s.mu.Lock()
	s.cache[key] = cached{value: value, vtype: vtype, found: found, expires: time.Now().Add(cacheTTL)}
	s.mu.Unlock()
	return value, vtype, found
}

// GetInt returns the integer setting for key, or def when unset.
func (s *Service) GetInt(ctx context.Context, key string, def int) int {
	value, _, found := s.lookup(ctx, key)
	if !found {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Warnf("settings: %s holds non-integer %q, using default %d", key, value, def)
		return def
	}
	return n
}

// GetFloat returns the float setting for key, or def when unset.
func (s *Service) GetFloat(ctx context.Context, key string, def float64) float64 {
	value, _, found := s.lookup(ctx, key)
	if !found {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		log.Warnf("settings: %s holds non-float %q, using default %f", key, value, def)
		return def
	}
	return f
}

// GetBool returns the boolean setting for key, or def when unset.
func (s *Service) GetBool(ctx context.Context, key string, def bool) bool {
	value, _, found := s.lookup(ctx, key)
	if !found {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// GetString returns the string setting for key, or def when unset.
func (s *Service) GetString(ctx context.Context, key string, def string) string {
	value, _, found := s.lookup(ctx, key)
	if !found {
		return def
	}
	return value
}

// Set writes a setting and invalidates its cache entry so the next
// read sees the fresh value.
func (s *Service) Set(ctx context.Context, key, value, valueType string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_settings (setting_key, value, value_type)
		 VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE value = ?, value_type = ?`,
		key, value, valueType, value, valueType)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}
