package database

import (
	"context"
	"database/sql"

	"ekokampus/models"
)

// UserStore reads the trust/points view of users. The trust_score and
// total_points columns are ledger-owned; this store never writes them.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	var (
		u        models.User
		role     string
		lat, lon sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, trust_score, total_points, last_lat, last_lon
		 FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &role, &u.TrustScore, &u.TotalPoints, &lat, &lon)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.UserRole(role)
	if lat.Valid {
		u.LastLat = &lat.Float64
	}
	if lon.Valid {
		u.LastLon = &lon.Float64
	}
	return &u, nil
}

// TrustScore reads the current trust score; used for vote snapshots.
func (s *UserStore) TrustScore(ctx context.Context, id string) (int, error) {
	var trust int
	err := s.db.QueryRowContext(ctx,
		`SELECT trust_score FROM users WHERE id = ?`, id).Scan(&trust)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	return trust, err
}

// UpdateLastLocation stores a user's most recent reported location,
// used to pick eligible vetting voters.
func (s *UserStore) UpdateLastLocation(ctx context.Context, id string, lat, lon float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_lat = ?, last_lon = ? WHERE id = ?`, lat, lon, id)
	return err
}
