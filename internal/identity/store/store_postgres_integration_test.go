//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"lumine/internal/identity/models"
	"lumine/internal/identity/store"
	"lumine/pkg/domain"
	"lumine/pkg/platform/sentinel"
	"lumine/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "user_profiles"))
}

func (s *PostgresStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, models.Profile{UserID: "u-1", Name: "Rita", Role: domain.RoleSecretary, Active: true}))

	p, err := s.store.FindProfile(ctx, "u-1")
	s.Require().NoError(err)
	s.Equal(domain.RoleSecretary, p.Role)
	s.True(p.Active)

	_, err = s.store.FindProfile(ctx, "u-2")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestLegacyRoleTokensAreNormalised() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.Exec(ctx,
		`INSERT INTO user_profiles (user_id, name, role, active) VALUES ('u-3', 'Joana', 'triagem', true)`))

	p, err := s.store.FindProfile(ctx, "u-3")
	s.Require().NoError(err)
	s.Equal(domain.RoleTriage, p.Role)
}
