package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"lumine/internal/dataset/models"
	"lumine/internal/enrollment"
	"lumine/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) TestReplaceAllSwapsBothCollections() {
	s.Require().NoError(s.store.UpsertIndividual(s.ctx, models.Individual{ID: "old"}))

	err := s.store.ReplaceAll(s.ctx,
		[]models.Individual{{ID: "b", Status: enrollment.StatusEnrolled}, {ID: "a"}},
		[]models.Record{{ID: "a-2026-01-01", ChildInternalID: "a", Date: "2026-01-01"}},
	)
	s.Require().NoError(err)

	list, err := s.store.ListIndividuals(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("a", list[0].ID, "listing is ordered by id")

	counts, err := s.store.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Counts{Individuals: 2, Records: 1}, counts)

	_, err = s.store.FindIndividual(s.ctx, "old")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestReplaceAllCancelledLeavesStoreUntouched() {
	s.Require().NoError(s.store.UpsertIndividual(s.ctx, models.Individual{ID: "keep"}))

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.store.ReplaceAll(ctx, nil, nil)
	s.Error(err)

	_, err = s.store.FindIndividual(s.ctx, "keep")
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestInsertRecordRejectsDuplicates() {
	rec := models.Record{ID: "r-1", ChildInternalID: "a", Date: "2026-01-01", Fields: map[string]any{"mood": "ok"}}
	s.Require().NoError(s.store.InsertRecord(s.ctx, rec))
	s.ErrorIs(s.store.InsertRecord(s.ctx, rec), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestReadsDoNotAliasStoredState() {
	s.Require().NoError(s.store.UpsertIndividual(s.ctx, models.Individual{ID: "a", Profile: map[string]any{"name": "Ana"}}))

	got, err := s.store.FindIndividual(s.ctx, "a")
	s.Require().NoError(err)
	got.Profile["name"] = "changed"

	again, err := s.store.FindIndividual(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("Ana", again.Profile["name"])
}

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert("records", []string{"id", "date"}, [][]any{{"a", "d1"}, {"b", "d2"}})
	assert.Equal(t, "INSERT INTO records (id, date) VALUES ($1, $2), ($3, $4)", query)
	require.Len(t, args, 4)
	assert.Equal(t, "b", args[2])
}
