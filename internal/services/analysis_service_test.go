package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"metrolog/internal/compare"
	apierrors "metrolog/internal/errors"
	"metrolog/internal/infrastructure"
	"metrolog/internal/registry"
	"metrolog/internal/session"
	"metrolog/internal/shared/testutil"
	"metrolog/internal/snapshot"
	"metrolog/internal/stats"
	"metrolog/pkg/contracts/domain"
	"metrolog/pkg/contracts/events"
)

type serviceFixture struct {
	svc       *AnalysisService
	publisher *MockEventPublisher
	store     *snapshot.FileStore
	reader    *sdkmetric.ManualReader
	logs      *testutil.BufferedSlogHandler
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)

	manager := session.NewManager(session.ManagerConfig{
		Settings: session.Settings{
			SlotCount: registry.DefaultSlotCount,
			Bounds:    stats.BoundsStrict,
			Compare:   compare.Options{}.WithDefaults(),
		},
	}, logger)

	store, err := snapshot.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)

	publisher := &MockEventPublisher{}
	publisher.On("Broadcast", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return &serviceFixture{
		svc:       NewAnalysisService(manager, store, publisher, metrics, logger),
		publisher: publisher,
		store:     store,
		reader:    reader,
		logs:      logs,
	}
}

func (f *serviceFixture) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func (f *serviceFixture) newSession(t *testing.T) string {
	t.Helper()
	info, err := f.svc.CreateSession(context.Background())
	require.NoError(t, err)
	return info.ID
}

func (f *serviceFixture) ingestRaw(t *testing.T, id string) {
	t.Helper()
	_, err := f.svc.Ingest(context.Background(), id, testutil.SampleRawFixture().TSV())
	require.NoError(t, err)
}

func TestAnalysisService_SessionLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	id := f.newSession(t)
	assert.Len(t, f.svc.Sessions(ctx), 1)
	assert.Equal(t, int64(1), f.counter(t, "analysis_sessions_active"))
	f.publisher.AssertCalled(t, "Broadcast", mock.Anything, events.MessageTypeSessionCreated, id, mock.Anything)

	info, err := f.svc.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, info.ID)

	require.NoError(t, f.svc.DeleteSession(ctx, id))
	assert.Equal(t, int64(0), f.counter(t, "analysis_sessions_active"))
	f.publisher.AssertCalled(t, "Broadcast", mock.Anything, events.MessageTypeSessionDeleted, id, mock.Anything)

	_, err = f.svc.Session(ctx, id)
	var notFound *apierrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestAnalysisService_Ingest(t *testing.T) {
	f := newServiceFixture(t)
	id := f.newSession(t)

	result, err := f.svc.Ingest(context.Background(), id, testutil.SampleRawFixture().TSV())
	require.NoError(t, err)

	assert.Equal(t, domain.LayoutRaw, result.Layout)
	assert.Len(t, result.Dimensions, 4)
	assert.Equal(t, int64(1), f.counter(t, "measurement_parses_total"))
	assert.True(t, f.logs.ContainsMessage("measurement table loaded"))
	f.publisher.AssertCalled(t, "Broadcast", mock.Anything, events.MessageTypeSessionUpdated, id,
		mock.MatchedBy(func(data events.SessionUpdated) bool {
			return data.Layout == domain.LayoutRaw && data.Dimensions == 4
		}))
}

func TestAnalysisService_IngestRejected(t *testing.T) {
	f := newServiceFixture(t)
	id := f.newSession(t)

	_, err := f.svc.Ingest(context.Background(), id, "Date\tSerial\tOF\n1\t2\t3\n")
	require.Error(t, err)

	assert.Equal(t, int64(1), f.counter(t, "measurement_parse_errors_total"))
	assert.True(t, f.logs.ContainsMessage("measurement table rejected"))
	f.publisher.AssertNotCalled(t, "Broadcast", mock.Anything, events.MessageTypeSessionUpdated, id, mock.Anything)
}

func TestAnalysisService_IngestWorkbook(t *testing.T) {
	f := newServiceFixture(t)
	id := f.newSession(t)

	data := testutil.WorkbookBytes(t, testutil.StringRows(testutil.SampleRawFixture().Grid()))
	result, err := f.svc.IngestWorkbook(context.Background(), id, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutRaw, result.Layout)
}

func TestAnalysisService_UnknownSession(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, "nope", "x")
	var notFound *apierrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = f.svc.Summaries(ctx, "nope", stats.Options{}, false)
	assert.True(t, errors.As(err, &notFound))
}

func TestAnalysisService_TableAndSummaries(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.Table(ctx, id, nil)
	assert.ErrorIs(t, err, apierrors.ErrNoMeasurements)

	f.ingestRaw(t, id)

	order := "OF200"
	table, err := f.svc.Table(ctx, id, &order)
	require.NoError(t, err)
	for _, m := range table.Rows {
		assert.Equal(t, "OF200", m.OrderID)
	}

	all, err := f.svc.Summaries(ctx, id, stats.Options{}, false)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byOrder, err := f.svc.Summaries(ctx, id, stats.Options{}, true)
	require.NoError(t, err)
	assert.Greater(t, len(byOrder), len(all))
}

func TestAnalysisService_ProfileEdits(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	id := f.newSession(t)
	f.ingestRaw(t, id)

	p, err := f.svc.SetAngular(ctx, id, "Rayon ANG1", registry.AngularInput{Slot: "ang3"})
	require.NoError(t, err)
	assert.Equal(t, "ANG3", p.Angular.Slot)
	f.publisher.AssertCalled(t, "Broadcast", mock.Anything, events.MessageTypeRegistryUpdated, id,
		events.RegistryUpdated{Reason: events.RegistryReasonAngular, Dimensions: []string{"Rayon ANG1"}})

	slots, err := f.svc.AvailableSlots(ctx, id, "Rayon ANG2")
	require.NoError(t, err)
	assert.Equal(t, []string{"ANG1", "ANG2"}, slots)

	angular, err := f.svc.Angular(ctx, id, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, angular.Series)

	_, err = f.svc.UpdateProfile(ctx, id, "ghost", registry.ProfileUpdate{})
	var notFound *apierrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestAnalysisService_Groups(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	id := f.newSession(t)
	f.ingestRaw(t, id)

	group, err := f.svc.Link(ctx, id, []string{"Rayon ANG1", "Rayon ANG2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Rayon ANG1", "Rayon ANG2"}, group.Members)

	groups, err := f.svc.Groups(ctx, id)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	require.NoError(t, f.svc.ResetGroups(ctx, id))
	groups, err = f.svc.Groups(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, groups)
	f.publisher.AssertCalled(t, "Broadcast", mock.Anything, events.MessageTypeGroupsUpdated, id, mock.Anything)
}

func TestAnalysisService_ExportImportRegistry(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	src := f.newSession(t)
	f.ingestRaw(t, src)

	var csvOut bytes.Buffer
	require.NoError(t, f.svc.ExportRegistry(ctx, src, "CSV", &csvOut))
	assert.Contains(t, csvOut.String(), "Rayon ANG1")

	err := f.svc.ExportRegistry(ctx, src, "xml", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	var doc bytes.Buffer
	require.NoError(t, f.svc.ExportRegistry(ctx, src, "json", &doc))

	dst := f.newSession(t)
	result, err := f.svc.ImportRegistry(ctx, dst, &doc, registry.ImportReplace)
	require.NoError(t, err)
	assert.Len(t, result.Created, 4)
	assert.Equal(t, int64(1), f.counter(t, "registry_imports_total"))

	profiles, err := f.svc.Profiles(ctx, dst)
	require.NoError(t, err)
	assert.Len(t, profiles, 4)
}

func TestAnalysisService_Compare(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	id := f.newSession(t)

	metal := testutil.StructuredTSV(false, testutil.FixtureRow{
		Date: "12/03/2024", Serial: "S1", OF: "OF1", Name: "R1",
		Measured: "10,02", Nominal: "10", Min: "9,9", Max: "10,1",
	})
	wax := testutil.StructuredTSV(false, testutil.FixtureRow{
		Date: "12/03/2024", Serial: "S1", OF: "OF1", Name: "Cire_R1",
		Measured: "10,10", Nominal: "10", Min: "9,9", Max: "10,2",
	})

	result, err := f.svc.Compare(ctx, id, metal, wax, compare.Options{})
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)
	assert.True(t, result.Summaries[0].Flagged)

	assert.Equal(t, int64(1), f.counter(t, "batch_comparisons_total"))
	assert.Equal(t, int64(1), f.counter(t, "batch_comparison_flagged_dimensions_total"))
	f.publisher.AssertCalled(t, "Broadcast", mock.Anything, events.MessageTypeComparisonCompleted, id,
		events.ComparisonCompleted{Compared: 1, Flagged: []string{"R1"}})
}

func TestAnalysisService_Snapshots(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	src := f.newSession(t)
	f.ingestRaw(t, src)

	_, err := f.svc.SetAngular(ctx, src, "Rayon ANG1", registry.AngularInput{Slot: "ANG2"})
	require.NoError(t, err)

	info, err := f.svc.SaveSnapshot(ctx, src, "line 2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.Key, "registry-"))
	assert.True(t, strings.HasSuffix(info.Key, "-line_2.json"))
	f.publisher.AssertCalled(t, "Broadcast", mock.Anything, events.MessageTypeSnapshotSaved, src, events.SnapshotSaved{Key: info.Key})

	list, err := f.svc.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, info.Key, list[0].Key)

	dst := f.newSession(t)
	_, err = f.svc.RestoreSnapshot(ctx, dst, info.Key, registry.ImportMerge)
	require.NoError(t, err)

	profiles, err := f.svc.Profiles(ctx, dst)
	require.NoError(t, err)
	var restored bool
	for _, p := range profiles {
		if p.Name == "Rayon ANG1" {
			assert.Equal(t, "ANG2", p.Angular.Slot)
			restored = true
		}
	}
	assert.True(t, restored)
	assert.Equal(t, int64(2), f.counter(t, "registry_snapshot_operations_total"))

	_, err = f.svc.RestoreSnapshot(ctx, dst, "registry-missing.json", registry.ImportMerge)
	var notFound *apierrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestAnalysisService_NoSnapshotStore(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	manager := session.NewManager(session.ManagerConfig{}, logger)
	svc := NewAnalysisService(manager, nil, nil, nil, logger)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.SaveSnapshot(ctx, info.ID, "")
	assert.ErrorIs(t, err, ErrNoSnapshotStore)
	_, err = svc.Snapshots(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshotStore)
	_, err = svc.RestoreSnapshot(ctx, info.ID, "k", registry.ImportMerge)
	assert.ErrorIs(t, err, ErrNoSnapshotStore)
}

func TestAnalysisService_PublishFailureIsLogged(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	manager := session.NewManager(session.ManagerConfig{}, logger)
	publisher := &MockEventPublisher{}
	publisher.On("Broadcast", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("hub stopped"))
	svc := NewAnalysisService(manager, nil, publisher, nil, logger)

	_, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	assert.True(t, logs.ContainsMessage("event not published"))
}

func TestAnalysisService_IngestFile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	id := f.newSession(t)

	csvText := strings.ReplaceAll(testutil.StructuredTSV(false, testutil.R1Rows("OF1")...), "\t", ";")
	result, err := f.svc.IngestFile(ctx, id, "export.CSV", strings.NewReader(csvText))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Rows)

	data := testutil.WorkbookBytes(t, testutil.StringRows(testutil.SampleRawFixture().Grid()))
	result, err = f.svc.IngestFile(ctx, id, "machine.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutRaw, result.Layout)

	_, err = f.svc.IngestFile(ctx, id, "report.pdf", strings.NewReader("%PDF"))
	var validation *apierrors.ValidationError
	assert.True(t, errors.As(err, &validation))
}
