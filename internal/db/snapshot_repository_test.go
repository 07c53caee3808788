package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/udisondev/sc2pathlib/internal/analysis"
	"github.com/udisondev/sc2pathlib/internal/choke"
	"github.com/udisondev/sc2pathlib/internal/db"
	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/tactical"
	"github.com/udisondev/sc2pathlib/internal/testutil"
)

// SnapshotSuite: интеграционные тесты SnapshotRepository на реальном PostgreSQL.
type SnapshotSuite struct {
	suite.Suite
	repo *db.SnapshotRepository
	ctx  context.Context
	m    *grid.Map
}

func TestSnapshotSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres-backed suite in -short mode")
	}
	suite.Run(t, new(SnapshotSuite))
}

// SetupSuite поднимает контейнер один раз на весь suite.
func (s *SnapshotSuite) SetupSuite() {
	s.ctx = testutil.ContextWithTimeout(s.T(), 5*time.Minute)
	pool := testutil.SetupTestDB(s.T())
	s.repo = db.NewSnapshotRepository(pool)
	s.m = testutil.Terrain(s.T(), testutil.PlateauRows...)
}

// SetupTest очищает таблицы перед каждым тестом.
func (s *SnapshotSuite) SetupTest() {
	err := s.repo.Delete(s.ctx, s.m.Fingerprint())
	if err != nil {
		s.Require().ErrorIs(err, db.ErrSnapshotNotFound)
	}
}

func (s *SnapshotSuite) record() analysis.Record {
	set := choke.Detect(s.m, choke.DefaultOptions())
	return analysis.Record{
		Fingerprint: s.m.Fingerprint(),
		Seeds:       []grid.Point2{grid.Pt(2.5, 15.5), grid.Pt(11.5, 8.5)},
		Chokes:      set.All(),
		Tactical:    tactical.New(s.m, set).Evaluate(tactical.SiegeTank()),
		ComputedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *SnapshotSuite) TestSaveAndGet() {
	want := s.record()
	s.Require().NotEmpty(want.Chokes)
	s.Require().NotEmpty(want.Tactical)
	s.Require().NoError(s.repo.Save(s.ctx, want))

	got, err := s.repo.Get(s.ctx, want.Fingerprint)
	s.Require().NoError(err)
	s.Equal(want.Seeds, got.Seeds)
	s.Equal(want.Chokes, got.Chokes)
	s.Equal(want.Tactical, got.Tactical)
	s.WithinDuration(want.ComputedAt, got.ComputedAt, time.Microsecond)
}

func (s *SnapshotSuite) TestSaveReplaces() {
	rec := s.record()
	s.Require().NoError(s.repo.Save(s.ctx, rec))

	rec.Seeds = rec.Seeds[:1]
	rec.Chokes = rec.Chokes[:1]
	rec.Tactical = nil
	s.Require().NoError(s.repo.Save(s.ctx, rec))

	got, err := s.repo.Get(s.ctx, rec.Fingerprint)
	s.Require().NoError(err)
	s.Len(got.Seeds, 1)
	s.Len(got.Chokes, 1)
	s.Empty(got.Tactical)
}

func (s *SnapshotSuite) TestMissing() {
	var fp grid.Fingerprint

	_, err := s.repo.Get(s.ctx, fp)
	s.ErrorIs(err, db.ErrSnapshotNotFound)

	_, ok, err := s.repo.Load(s.ctx, fp)
	s.NoError(err)
	s.False(ok)

	s.ErrorIs(s.repo.Delete(s.ctx, fp), db.ErrSnapshotNotFound)
}

func (s *SnapshotSuite) TestDeleteCascades() {
	rec := s.record()
	s.Require().NoError(s.repo.Save(s.ctx, rec))
	s.Require().NoError(s.repo.Delete(s.ctx, rec.Fingerprint))

	_, ok, err := s.repo.Load(s.ctx, rec.Fingerprint)
	s.NoError(err)
	s.False(ok)

	// A fresh save must not collide with leftover child rows.
	s.NoError(s.repo.Save(s.ctx, rec))
}

func (s *SnapshotSuite) TestCacheRestoresFromRepository() {
	seeds := []grid.Point2{grid.Pt(2.5, 15.5)}

	first, err := analysis.NewCache(analysis.DefaultOptions(), s.repo).Prepare(s.ctx, s.m, seeds)
	s.Require().NoError(err)
	s.False(first.Restored)

	second, err := analysis.NewCache(analysis.DefaultOptions(), s.repo).Prepare(s.ctx, s.m, seeds)
	s.Require().NoError(err)
	s.True(second.Restored)
	s.Equal(first.Chokes.All(), second.Chokes.All())
	s.Equal(first.Tactical, second.Tactical)
}
