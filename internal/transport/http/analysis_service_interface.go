package http

import (
	"context"
	"io"

	"metrolog/internal/compare"
	"metrolog/internal/measurement"
	"metrolog/internal/registry"
	"metrolog/internal/session"
	"metrolog/internal/snapshot"
	"metrolog/internal/stats"
	"metrolog/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the operations the session handlers need
type AnalysisServiceInterface interface {
	CreateSession(ctx context.Context) (session.Info, error)
	Session(ctx context.Context, id string) (session.Info, error)
	Sessions(ctx context.Context) []session.Info
	DeleteSession(ctx context.Context, id string) error

	Ingest(ctx context.Context, id, text string) (session.IngestResult, error)
	IngestFile(ctx context.Context, id, filename string, r io.Reader) (session.IngestResult, error)
	Table(ctx context.Context, id string, order *string) (*measurement.Table, error)
	Summaries(ctx context.Context, id string, opts stats.Options, byOrder bool) ([]domain.StatSummary, error)

	Angular(ctx context.Context, id string, order *string) (domain.AngularAggregate, error)
	Deviations(ctx context.Context, id string, angle float64, order *string) ([]domain.DeviationPoint, error)
	Positional(ctx context.Context, id string, order *string) ([]domain.PositionalSeries, error)
	GroupRadar(ctx context.Context, id string, groupID int, angle float64, order *string) (domain.RadarResult, error)

	Profiles(ctx context.Context, id string) ([]domain.DimensionProfile, error)
	UpdateProfile(ctx context.Context, id, name string, u registry.ProfileUpdate) (domain.DimensionProfile, error)
	SetAngular(ctx context.Context, id, name string, in registry.AngularInput) (domain.DimensionProfile, error)
	AvailableSlots(ctx context.Context, id, name string) ([]string, error)
	ExportRegistry(ctx context.Context, id, format string, w io.Writer) error
	ImportRegistry(ctx context.Context, id string, r io.Reader, mode registry.ImportMode) (registry.ImportResult, error)

	Groups(ctx context.Context, id string) ([]domain.ProfileGroup, error)
	Link(ctx context.Context, id string, names []string) (domain.ProfileGroup, error)
	ResetGroups(ctx context.Context, id string) error

	Compare(ctx context.Context, id, textA, textB string, opts compare.Options) (domain.ComparisonResult, error)

	SaveSnapshot(ctx context.Context, id, label string) (snapshot.Info, error)
	Snapshots(ctx context.Context) ([]snapshot.Info, error)
	RestoreSnapshot(ctx context.Context, id, key string, mode registry.ImportMode) (registry.ImportResult, error)
}
