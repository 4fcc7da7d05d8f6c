package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lumine/internal/identity/models"
	"lumine/pkg/domain"
	"lumine/pkg/platform/sentinel"
)

// PostgresStore reads staff profiles from user_profiles. Stored roles may use
// the legacy Portuguese tokens.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindProfile(ctx context.Context, userID string) (models.Profile, error) {
	var (
		p    models.Profile
		role string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, role, active FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Name, &role, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, sentinel.ErrNotFound
		}
		return models.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	p.Role = domain.ParseRole(role)
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, name, role, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, active = EXCLUDED.active
	`, p.UserID, p.Name, string(p.Role), p.Active)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
