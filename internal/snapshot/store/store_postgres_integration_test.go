//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/snapshot/store"
	"mipwatch/pkg/platform/tx"
	"mipwatch/pkg/testutil/containers"
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
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "observations", "not_displayed")
	s.Require().NoError(err)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entries(statuses ...string) []models.Entry {
	out := make([]models.Entry, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, models.Entry{
			Key:       models.EntityKey{Name: string(rune('Z' - i)), Vendor: "Vendor", Standard: "FIPS 140-3"},
			RawStatus: st,
		})
	}
	return out
}

func (s *PostgresStoreSuite) TestReplaceSnapshotRoundTrip() {
	ctx := context.Background()
	snap := models.Snapshot{
		PublishDate:  day(2024, 10, 9),
		Entries:      entries("In Review", "Coordination (10/1/2024)", "Finalization"),
		NotDisplayed: 12,
	}
	s.Require().NoError(s.store.ReplaceSnapshot(ctx, snap))

	got, err := s.store.Snapshot(ctx, day(2024, 10, 9))
	s.Require().NoError(err)
	s.Equal(snap.Entries, got.Entries, "insertion order survives the batch insert")
	s.Equal(12, got.NotDisplayed)
	s.True(got.PublishDate.Equal(day(2024, 10, 9)))
}

func (s *PostgresStoreSuite) TestReplaceSnapshotDeletesPreviousRows() {
	ctx := context.Background()
	s.Require().NoError(s.store.ReplaceSnapshot(ctx, models.Snapshot{PublishDate: day(2024, 1, 1), Entries: entries("a", "b", "c"), NotDisplayed: 2}))
	s.Require().NoError(s.store.ReplaceSnapshot(ctx, models.Snapshot{PublishDate: day(2024, 1, 1), Entries: entries("d")}))

	obs, err := s.store.Observations(ctx)
	s.Require().NoError(err)
	s.Require().Len(obs, 1)
	s.Equal("d", obs[0].RawStatus)

	counts, err := s.store.NotDisplayed(ctx)
	s.Require().NoError(err)
	s.Empty(counts)
}

func (s *PostgresStoreSuite) TestDatesAndObservationsOrdering() {
	ctx := context.Background()
	s.Require().NoError(s.store.ReplaceSnapshot(ctx, models.Snapshot{PublishDate: day(2024, 3, 1), Entries: entries("late")}))
	s.Require().NoError(s.store.ReplaceSnapshot(ctx, models.Snapshot{PublishDate: day(2024, 1, 1), Entries: entries("early-1", "early-2")}))
	s.Require().NoError(s.store.ReplaceSnapshot(ctx, models.Snapshot{PublishDate: day(2024, 2, 1), NotDisplayed: 5}))

	dates, err := s.store.Dates(ctx)
	s.Require().NoError(err)
	s.Equal([]time.Time{day(2024, 1, 1), day(2024, 2, 1), day(2024, 3, 1)}, dates)

	obs, err := s.store.Observations(ctx)
	s.Require().NoError(err)
	s.Require().Len(obs, 3)
	s.Equal("early-1", obs[0].RawStatus)
	s.Equal("early-2", obs[1].RawStatus)
	s.Equal("late", obs[2].RawStatus)
}

func (s *PostgresStoreSuite) TestSnapshotNotFound() {
	_, err := s.store.Snapshot(context.Background(), day(1999, 1, 1))
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestReplaceSnapshotJoinsContextTransaction() {
	ctx := context.Background()
	t, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	txCtx := tx.WithTx(ctx, t)
	s.Require().NoError(s.store.ReplaceSnapshot(txCtx, models.Snapshot{PublishDate: day(2024, 5, 1), Entries: entries("x")}))
	s.Require().NoError(t.Rollback())

	dates, err := s.store.Dates(ctx)
	s.Require().NoError(err)
	s.Empty(dates, "rolled back with the caller's transaction")
}

func (s *PostgresStoreSuite) TestRunRollsBackOnError() {
	ctx := context.Background()
	abort := errors.New("abort")
	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		if err := s.store.ReplaceSnapshot(ctx, models.Snapshot{PublishDate: day(2024, 5, 2), Entries: entries("x")}); err != nil {
			return err
		}
		return abort
	})
	s.ErrorIs(err, abort)

	dates, err := s.store.Dates(ctx)
	s.Require().NoError(err)
	s.Empty(dates)
}

func (s *PostgresStoreSuite) TestMergeMissingFromMemory() {
	ctx := context.Background()
	secondary := store.NewInMemoryStore()
	s.Require().NoError(secondary.ReplaceSnapshot(ctx, models.Snapshot{PublishDate: day(2024, 6, 1), Entries: entries("x"), NotDisplayed: 1}))

	copied, err := store.MergeMissing(ctx, s.store, secondary)
	s.Require().NoError(err)
	s.Equal([]time.Time{day(2024, 6, 1)}, copied)

	got, err := s.store.Snapshot(ctx, day(2024, 6, 1))
	s.Require().NoError(err)
	s.Equal(1, got.NotDisplayed)
}
