package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the engine's tables if they don't exist.
func InitSchema(db *sql.DB) error {
	log.Info("Initializing ekokampus database schema...")

	tables := []struct {
		name string
		ddl  string
	}{
		{"users", `
	CREATE TABLE IF NOT EXISTS users(
		id CHAR(36) NOT NULL,
		email VARCHAR(255) NOT NULL,
		role ENUM('STUDENT', 'STAFF', 'ADMIN') NOT NULL DEFAULT 'STUDENT',
		trust_score SMALLINT NOT NULL DEFAULT 50,
		total_points INT NOT NULL DEFAULT 0,
		last_lat DECIMAL(9, 6),
		last_lon DECIMAL(9, 6),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY email_uniq (email),
		INDEX total_points_index (total_points)
	)`},
		{"bins", `
	CREATE TABLE IF NOT EXISTS bins(
		id CHAR(36) NOT NULL,
		code VARCHAR(20) NOT NULL,
		latitude DECIMAL(9, 6) NOT NULL,
		longitude DECIMAL(9, 6) NOT NULL,
		bin_type VARCHAR(30) NOT NULL DEFAULT 'GENERAL',
		indoor BOOL NOT NULL DEFAULT true,
		fill_level DECIMAL(4, 3) NOT NULL DEFAULT 0.000,
		status ENUM('ACTIVE', 'MAINTENANCE', 'REMOVED') NOT NULL DEFAULT 'ACTIVE',
		last_emptied_at TIMESTAMP NULL,
		last_report_at TIMESTAMP NULL,
		PRIMARY KEY (id),
		UNIQUE KEY code_uniq (code),
		INDEX fill_level_index (fill_level),
		INDEX coords_index (latitude, longitude)
	)`},
		{"bin_fill_log", `
	CREATE TABLE IF NOT EXISTS bin_fill_log(
		seq BIGINT NOT NULL AUTO_INCREMENT,
		bin_id CHAR(36) NOT NULL,
		fill_level DECIMAL(4, 3) NOT NULL,
		trigger_tag ENUM('REPORT', 'EMPTIED', 'DECAY_CORRECTION', 'MANUAL') NOT NULL,
		triggered_by CHAR(36),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (seq),
		INDEX bin_date_index (bin_id, created_at)
	)`},
		{"waste_reports", `
	CREATE TABLE IF NOT EXISTS waste_reports(
		id CHAR(36) NOT NULL,
		user_id CHAR(36),
		bin_id CHAR(36) NOT NULL,
		category VARCHAR(30) NOT NULL,
		latitude DECIMAL(9, 6) NOT NULL,
		longitude DECIMAL(9, 6) NOT NULL,
		client_timestamp TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		geo_distance_m SMALLINT NOT NULL DEFAULT 0,
		fill_delta DECIMAL(4, 3) NOT NULL DEFAULT 0.000,
		suspicion_score SMALLINT NOT NULL DEFAULT 0,
		status ENUM('PENDING', 'UNDER_VETTING', 'APPROVED', 'REJECTED') NOT NULL DEFAULT 'PENDING',
		resolution ENUM('AUTO', 'CONSENSUS', 'TIMEOUT'),
		points_awarded SMALLINT NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		INDEX bin_date_index (bin_id, created_at),
		INDEX user_bin_ts_index (user_id, bin_id, client_timestamp),
		INDEX status_date_index (status, created_at)
	)`},
		{"photo_evidence", `
	CREATE TABLE IF NOT EXISTS photo_evidence(
		report_id CHAR(36) NOT NULL,
		image_hash CHAR(64) NOT NULL,
		ai_match BOOL,
		ai_confidence DECIMAL(4, 3),
		ai_reason VARCHAR(255) NOT NULL DEFAULT '',
		analyzed_at TIMESTAMP NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (report_id),
		INDEX hash_date_index (image_hash, created_at)
	)`},
		{"vetting_votes", `
	CREATE TABLE IF NOT EXISTS vetting_votes(
		seq BIGINT NOT NULL AUTO_INCREMENT,
		report_id CHAR(36) NOT NULL,
		voter_id CHAR(36) NOT NULL,
		vote ENUM('APPROVE', 'REJECT') NOT NULL,
		voter_trust_at_vote SMALLINT NOT NULL,
		voter_distance_m SMALLINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (seq),
		UNIQUE KEY report_voter_uniq (report_id, voter_id)
	)`},
		{"vetting_invites", `
	CREATE TABLE IF NOT EXISTS vetting_invites(
		report_id CHAR(36) NOT NULL,
		user_id CHAR(36) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (report_id, user_id)
	)`},
		{"counter_adjustments", `
	CREATE TABLE IF NOT EXISTS counter_adjustments(
		seq BIGINT NOT NULL AUTO_INCREMENT,
		subject_type VARCHAR(40) NOT NULL,
		subject_id CHAR(36) NOT NULL,
		delta DECIMAL(12, 3) NOT NULL,
		value_after DECIMAL(12, 3) NOT NULL,
		reason VARCHAR(40) NOT NULL,
		related_type VARCHAR(40) NOT NULL DEFAULT '',
		related_id CHAR(36),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (seq),
		INDEX subject_index (subject_type, subject_id, seq)
	)`},
		{"bounties", `
	CREATE TABLE IF NOT EXISTS bounties(
		id CHAR(36) NOT NULL,
		title VARCHAR(200) NOT NULL,
		target_bin_id CHAR(36),
		reward_points SMALLINT NOT NULL,
		max_claimants SMALLINT NOT NULL DEFAULT 3,
		current_claimants SMALLINT NOT NULL DEFAULT 0,
		status ENUM('OPEN', 'CLOSED', 'EXPIRED') NOT NULL DEFAULT 'OPEN',
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX status_expiry_index (status, expires_at)
	)`},
		{"bounty_claims", `
	CREATE TABLE IF NOT EXISTS bounty_claims(
		seq BIGINT NOT NULL AUTO_INCREMENT,
		bounty_id CHAR(36) NOT NULL,
		user_id CHAR(36) NOT NULL,
		qualifying_report_id CHAR(36),
		points_awarded SMALLINT NOT NULL DEFAULT 0,
		claimed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (seq),
		UNIQUE KEY bounty_user_uniq (bounty_id, user_id)
	)`},
		{"detective_reports", `
	CREATE TABLE IF NOT EXISTS detective_reports(
		id CHAR(36) NOT NULL,
		reporter_id CHAR(36),
		problem_type VARCHAR(30) NOT NULL,
		latitude DECIMAL(9, 6) NOT NULL,
		longitude DECIMAL(9, 6) NOT NULL,
		confirmation_count SMALLINT NOT NULL DEFAULT 0,
		status ENUM('PENDING', 'CONFIRMED', 'RESOLVED', 'REJECTED') NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX status_date_index (status, created_at)
	)`},
		{"detective_votes", `
	CREATE TABLE IF NOT EXISTS detective_votes(
		report_id CHAR(36) NOT NULL,
		voter_id CHAR(36) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (report_id, voter_id)
	)`},
		{"system_settings", `
	CREATE TABLE IF NOT EXISTS system_settings(
		setting_key VARCHAR(100) NOT NULL,
		value VARCHAR(500) NOT NULL,
		value_type ENUM('INT', 'FLOAT', 'BOOL', 'STRING') NOT NULL DEFAULT 'STRING',
		description VARCHAR(500) NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (setting_key)
	)`},
	}

	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	log.Info("Schema created/verified")
	return nil
}
