package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"mipwatch/internal/analysis"
	"mipwatch/internal/changefeed"
	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/snapshot/store"
	"mipwatch/internal/tracker/cache"
	"mipwatch/internal/tracker/metrics"
	dErrors "mipwatch/pkg/domain-errors"
	"mipwatch/pkg/requestcontext"
)

type recordingTallies struct {
	written []analysis.DateTally
	err     error
}

func (r *recordingTallies) WriteTallies(_ context.Context, t []analysis.DateTally) error {
	r.written = append(r.written, t...)
	return r.err
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, analysis.Changes) ([]changefeed.Event, error) {
	return nil, errors.New("broker unavailable")
}

type brokenStore struct{ store.Store }

func (brokenStore) Dates(context.Context) ([]time.Time, error) {
	return nil, errors.New("connection reset")
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	sink    *changefeed.MemorySink
	cache   *cache.MemoryCache
	tallies *recordingTallies
	metrics *metrics.Metrics
	logs    *bytes.Buffer
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

var reportTime = time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), reportTime)
	s.store = store.NewInMemoryStore()
	s.sink = changefeed.NewMemorySink()
	s.cache = cache.NewMemory(time.Hour)
	s.tallies = &recordingTallies{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	s.service = s.newService()
}

func (s *ServiceSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
		WithMetrics(s.metrics),
		WithCache(s.cache),
		WithPublisher(changefeed.NewPublisher(s.sink)),
		WithTallyWriter(s.tallies),
	}
	return New(s.store, append(base, opts...)...)
}

func date(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func entry(name, raw string) models.Entry {
	return models.Entry{Key: models.EntityKey{Name: name, Vendor: "Vendor " + name, Standard: "FIPS 140-3"}, RawStatus: raw}
}

func keyOf(name string) models.EntityKey {
	return entry(name, "").Key
}

func (s *ServiceSuite) ingest(d time.Time, notDisplayed int, entries ...models.Entry) *IngestResult {
	res, err := s.service.Ingest(s.ctx, models.Snapshot{PublishDate: d, Entries: entries, NotDisplayed: notDisplayed})
	s.Require().NoError(err)
	return res
}

// seed loads the three-date history used across the report tests.
func (s *ServiceSuite) seed() {
	s.ingest(date(1, 1), 2,
		entry("X", "Review Pending (1/1/2024)"),
		entry("Y", "Review Pending"),
		entry("Z", "Finalization"),
	)
	s.ingest(date(2, 1), 0,
		entry("X", "Review Pending (1/1/2024)"),
		entry("Y", "In Review"),
		entry("F", "Finalization"),
	)
	s.ingest(date(3, 1), 1,
		entry("X", "Coordination (3/1/2024)"),
		entry("F", "Finalization"),
		entry("N", "Review Pending"),
	)
}

func (s *ServiceSuite) TestIngestFirstSnapshotHasNoPredecessor() {
	res := s.ingest(date(1, 1), 0, entry("A", "In Review"))

	s.Equal(1, res.Rows)
	s.False(res.Changes.HasPrevious())
	s.Zero(res.Events)
	s.Empty(s.sink.Events())
	s.Require().Len(s.tallies.written, 1)
	s.Equal(1, s.tallies.written[0].Total)
}

func (s *ServiceSuite) TestIngestDiffsAgainstPredecessorAndPublishes() {
	s.seed()

	events := s.sink.Events()
	// 2/1: Y changed, Z removed, F added. 3/1: X changed, Y removed, N added.
	s.Len(events, 6)
	s.Equal(reportTime, events[0].OccurredAt)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.SnapshotsIngested))
	s.Equal(9.0, testutil.ToFloat64(s.metrics.ObservationsIngested))
}

func (s *ServiceSuite) TestIngestBackfillDiffsAgainstItsOwnPredecessor() {
	s.ingest(date(1, 1), 0, entry("A", "In Review"))
	s.ingest(date(3, 1), 0, entry("A", "Finalization"))

	res := s.ingest(date(2, 1), 0, entry("A", "Coordination"))
	s.Equal(date(1, 1), res.Changes.Previous)
	s.Require().Len(res.Changes.Changed, 1)
	s.Equal("Coordination", res.Changes.Changed[0].NewStatus)
}

func (s *ServiceSuite) TestIngestRejectsMissingDate() {
	_, err := s.service.Ingest(s.ctx, models.Snapshot{Entries: []models.Entry{entry("A", "x")}})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.ErrorIs(err, models.ErrMalformedDate)
}

func (s *ServiceSuite) TestIngestDuplicatesLastWriteWins() {
	res := s.ingest(date(1, 1), 0, entry("A", "In Review"), entry("A", "Coordination"))
	s.Equal(1, res.Duplicates)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DuplicateRows))
	s.Contains(s.logs.String(), "duplicate")

	report, err := s.service.Report(s.ctx, ReportOptions{})
	s.Require().NoError(err)
	s.Equal(1, report.Summary.Total)
	s.Equal("Coordination", report.Summary.Buckets[0].Status)
}

func (s *ServiceSuite) TestIngestDuplicatesRejectPolicy() {
	svc := s.newService(WithDuplicatePolicy(analysis.DuplicateReject))
	_, err := svc.Ingest(s.ctx, models.Snapshot{PublishDate: date(1, 1), Entries: []models.Entry{entry("A", "x"), entry("A", "y")}})

	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.ErrorIs(err, analysis.ErrDuplicateObservation)
	dates, _ := s.store.Dates(s.ctx)
	s.Empty(dates, "nothing stored")
}

func (s *ServiceSuite) TestIngestSurvivesPublisherAndTallyFailures() {
	s.tallies.err = errors.New("influx down")
	svc := s.newService(WithPublisher(failingPublisher{}))

	_, err := svc.Ingest(s.ctx, models.Snapshot{PublishDate: date(1, 1), Entries: []models.Entry{entry("A", "x")}})
	s.Require().NoError(err)
	_, err = svc.Ingest(s.ctx, models.Snapshot{PublishDate: date(2, 1), Entries: []models.Entry{entry("B", "x")}})
	s.Require().NoError(err)

	s.Equal(2.0, testutil.ToFloat64(s.metrics.ChangeEventsDropped))
	s.Contains(s.logs.String(), "failed to publish change events")
	s.Contains(s.logs.String(), "failed to export tallies")
}

func (s *ServiceSuite) TestReport() {
	s.seed()

	report, err := s.service.Report(s.ctx, ReportOptions{})
	s.Require().NoError(err)

	s.Equal(reportTime, report.GeneratedAt)
	s.Equal(date(3, 1), report.LatestDate)
	s.Equal(date(2, 1), report.Changes.Previous)
	s.Require().Len(report.Changes.Changed, 1)
	s.Equal(keyOf("X"), report.Changes.Changed[0].Key)

	s.Require().Len(report.Disappearances, 1)
	s.Equal(keyOf("Y"), report.Disappearances[0].Key)
	s.Equal(date(2, 1), report.Disappearances[0].LastSeen)

	s.Require().Len(report.Roster, 1)
	s.Equal(keyOf("F"), report.Roster[0].Key)
	s.Equal(date(2, 1), report.Roster[0].Since)
	s.Equal(29, report.Roster[0].DaysInStatus)

	s.Len(report.Tallies, 3)
	s.Equal(4, report.Summary.Total, "three listed plus one not displayed")
	s.Len(report.Vendors, 3)

	// added ∪ removed ∪ changed ∪ roster
	s.Len(report.Histories, 4)
	x := report.Histories[keyOf("X").String()]
	s.Equal(date(3, 1), x.StatusSince)
	s.Len(x.Entries, 3)
	s.Require().Len(x.Runs, 2)
	s.Equal(date(1, 1), x.Runs[0].Start)
}

func (s *ServiceSuite) TestReportIsCachedUntilNextIngest() {
	s.seed()

	first, err := s.service.Report(s.ctx, ReportOptions{})
	s.Require().NoError(err)
	_, err = s.service.Report(s.ctx, ReportOptions{})
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))

	s.ingest(date(4, 1), 0, entry("X", "Finalization"))
	second, err := s.service.Report(s.ctx, ReportOptions{})
	s.Require().NoError(err)
	s.NotEqual(first.LatestDate, second.LatestDate)
}

func (s *ServiceSuite) TestReportWindow() {
	s.ingest(date(1, 1).AddDate(-2, 0, 0), 0, entry("A", "x"))
	s.seed()

	windowed, err := s.service.Report(s.ctx, ReportOptions{})
	s.Require().NoError(err)
	s.Len(windowed.Tallies, 3)

	all, err := s.service.Report(s.ctx, ReportOptions{AllDates: true})
	s.Require().NoError(err)
	s.Len(all.Tallies, 4)

	tallies, err := s.service.Tallies(s.ctx, ReportOptions{WindowMonths: 1})
	s.Require().NoError(err)
	s.Len(tallies, 2)
}

func (s *ServiceSuite) TestReportEmptyStore() {
	_, err := s.service.Report(s.ctx, ReportOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.ErrorIs(err, ErrNoSnapshots)
}

func (s *ServiceSuite) TestReportStoreFailure() {
	svc := New(brokenStore{s.store}, WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))))
	_, err := svc.Report(s.ctx, ReportOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestChanges() {
	s.seed()

	latest, err := s.service.Changes(s.ctx, time.Time{})
	s.Require().NoError(err)
	s.Equal(date(3, 1), latest.Current)

	at, err := s.service.Changes(s.ctx, date(2, 1))
	s.Require().NoError(err)
	s.Equal(date(1, 1), at.Previous)
	s.Len(at.Added, 1)

	_, err = s.service.Changes(s.ctx, date(5, 1))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestHistory() {
	s.seed()

	h, err := s.service.History(s.ctx, keyOf("X"))
	s.Require().NoError(err)
	s.Equal(date(3, 1), h.StatusSince)
	s.Len(h.DisplayRuns, 2)

	_, err = s.service.History(s.ctx, keyOf("nobody"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDisappearancesWithCustomTerminal() {
	s.seed()

	got, err := s.service.Disappearances(s.ctx)
	s.Require().NoError(err)
	s.Len(got, 1)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Disappearances))

	svc := s.newService(WithTerminalStatuses("Finalization", "In Review"))
	got, err = svc.Disappearances(s.ctx)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ServiceSuite) TestMerge() {
	secondary := store.NewInMemoryStore()
	s.Require().NoError(secondary.ReplaceSnapshot(s.ctx, models.Snapshot{PublishDate: date(1, 1), Entries: []models.Entry{entry("A", "x")}}))
	s.ingest(date(2, 1), 0, entry("A", "y"))

	copied, err := s.service.Merge(s.ctx, secondary)
	s.Require().NoError(err)
	s.Equal([]time.Time{date(1, 1)}, copied)

	changes, err := s.service.Changes(s.ctx, time.Time{})
	s.Require().NoError(err)
	s.Len(changes.Changed, 1)
}
