package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"metrolog/internal/compare"
	apierrors "metrolog/internal/errors"
	"metrolog/internal/infrastructure"
	"metrolog/internal/measurement"
	"metrolog/internal/registry"
	"metrolog/internal/session"
	"metrolog/internal/snapshot"
	"metrolog/internal/stats"
	"metrolog/pkg/contracts/domain"
	"metrolog/pkg/contracts/events"
)

// EventPublisher pushes session events to connected dashboards.
type EventPublisher interface {
	Broadcast(ctx context.Context, messageType events.MessageType, sessionID string, data interface{}) error
}

// Registry export formats.
const (
	RegistryFormatCSV  = "csv"
	RegistryFormatJSON = "json"
)

// AnalysisService runs the analysis pipeline on managed sessions.
type AnalysisService struct {
	sessions  *session.Manager
	snapshots snapshot.Store
	events    EventPublisher
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewAnalysisService wires the service. snapshots, publisher and metrics may
// be nil.
func NewAnalysisService(sessions *session.Manager, snapshots snapshot.Store, publisher EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		sessions:  sessions,
		snapshots: snapshots,
		events:    publisher,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "analysis_service")),
		now:       time.Now,
	}
}

func (s *AnalysisService) log(ctx context.Context) *slog.Logger {
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		return s.logger.With(slog.String("trace_id", traceID))
	}
	return s.logger
}

func (s *AnalysisService) publish(ctx context.Context, t events.MessageType, sessionID string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Broadcast(ctx, t, sessionID, data); err != nil {
		s.log(ctx).WarnContext(ctx, "event not published",
			slog.String("message_type", string(t)),
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}
}

// CreateSession starts a new analysis session.
func (s *AnalysisService) CreateSession(ctx context.Context) (session.Info, error) {
	sess, err := s.sessions.Create()
	if err != nil {
		return session.Info{}, err
	}
	s.metrics.RecordSessionChange(ctx, 1)
	info := sess.Info()
	s.publish(ctx, events.MessageTypeSessionCreated, sess.ID(), info)
	return info, nil
}

// Session describes one session.
func (s *AnalysisService) Session(ctx context.Context, id string) (session.Info, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Info{}, err
	}
	return sess.Info(), nil
}

// Sessions lists the live sessions.
func (s *AnalysisService) Sessions(ctx context.Context) []session.Info {
	return s.sessions.List()
}

// DeleteSession discards a session and its state.
func (s *AnalysisService) DeleteSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	s.metrics.RecordSessionChange(ctx, -1)
	s.publish(ctx, events.MessageTypeSessionDeleted, id, nil)
	return nil
}

// RunJanitor evicts idle sessions until ctx is done.
func (s *AnalysisService) RunJanitor(ctx context.Context, interval time.Duration) {
	s.sessions.RunJanitor(ctx, interval, func(ids []string) {
		s.metrics.RecordSessionChange(ctx, -int64(len(ids)))
		for _, id := range ids {
			s.publish(ctx, events.MessageTypeSessionDeleted, id, nil)
		}
	})
}

// Ingest parses pasted text into the session.
func (s *AnalysisService) Ingest(ctx context.Context, id, text string) (session.IngestResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.IngestResult{}, err
	}
	return s.ingest(ctx, sess, "text", func() (session.IngestResult, error) {
		return sess.Ingest(ctx, text)
	})
}

// IngestWorkbook parses an uploaded .xlsx workbook into the session.
func (s *AnalysisService) IngestWorkbook(ctx context.Context, id string, r io.Reader) (session.IngestResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.IngestResult{}, err
	}
	return s.ingest(ctx, sess, "workbook", func() (session.IngestResult, error) {
		return sess.IngestWorkbook(ctx, r)
	})
}

// IngestFile parses an uploaded file chosen by its extension: .xlsx
// workbooks, .csv exports or tab-separated text.
func (s *AnalysisService) IngestFile(ctx context.Context, id, filename string, r io.Reader) (session.IngestResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xlsx" || ext == ".xlsm" {
		return s.IngestWorkbook(ctx, id, r)
	}
	if ext != ".csv" && ext != ".tsv" && ext != ".txt" {
		return session.IngestResult{}, apierrors.NewValidationError("file",
			fmt.Sprintf("unsupported file type %q, expected .xlsx, .csv, .tsv or .txt", ext), filename)
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.IngestResult{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return session.IngestResult{}, err
	}
	return s.ingest(ctx, sess, strings.TrimPrefix(ext, "."), func() (session.IngestResult, error) {
		return sess.IngestDelimited(ctx, string(data))
	})
}

func (s *AnalysisService) ingest(ctx context.Context, sess *session.Session, source string, parse func() (session.IngestResult, error)) (session.IngestResult, error) {
	start := s.now()
	result, err := parse()
	elapsed := s.now().Sub(start)

	logger := s.log(ctx).With(slog.String("session_id", sess.ID()))
	if err != nil {
		s.metrics.RecordParse(ctx, source, 0, elapsed, err)
		infrastructure.RecordError(ctx, err)
		logger.WarnContext(ctx, "measurement table rejected",
			slog.String("source", source),
			slog.String("error", err.Error()))
		return session.IngestResult{}, err
	}

	s.metrics.RecordParse(ctx, string(result.Layout), result.Rows, elapsed, nil)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"metrolog.session_id": sess.ID(),
		"metrolog.layout":     string(result.Layout),
		"metrolog.rows":       result.Rows,
	})
	logger.InfoContext(ctx, "measurement table loaded",
		slog.String("layout", string(result.Layout)),
		slog.Int("rows", result.Rows),
		slog.Int("dimensions", len(result.Dimensions)),
		slog.Int("new_dimensions", len(result.Created)),
		slog.Duration("duration", elapsed))

	s.publish(ctx, events.MessageTypeSessionUpdated, sess.ID(), events.SessionUpdated{
		Layout:     result.Layout,
		Rows:       result.Rows,
		Dimensions: len(result.Dimensions),
		Orders:     result.Orders,
		Created:    result.Created,
	})
	return result, nil
}

// Table returns a copy of the session table restricted to order when set.
func (s *AnalysisService) Table(ctx context.Context, id string, order *string) (*measurement.Table, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	table, err := sess.Table()
	if err != nil {
		return nil, err
	}
	table.Rows = table.FilterOrder(order)
	return table, nil
}

// Summaries computes statistics per dimension, or per dimension and order
// when byOrder is set.
func (s *AnalysisService) Summaries(ctx context.Context, id string, opts stats.Options, byOrder bool) ([]domain.StatSummary, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if byOrder {
		return sess.SummariesByOrder(opts.Bounds)
	}
	return sess.Summaries(opts)
}

// Angular returns the angular aggregate of the session table.
func (s *AnalysisService) Angular(ctx context.Context, id string, order *string) (domain.AngularAggregate, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return domain.AngularAggregate{}, err
	}
	agg, err := sess.Angular(order)
	if err != nil {
		return agg, err
	}
	if len(agg.Duplicates) > 0 {
		s.log(ctx).WarnContext(ctx, "angular readings overwritten",
			slog.String("session_id", id),
			slog.Int("duplicates", len(agg.Duplicates)))
	}
	return agg, nil
}

// Deviations returns the per-dimension deviation at angle.
func (s *AnalysisService) Deviations(ctx context.Context, id string, angle float64, order *string) ([]domain.DeviationPoint, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Deviations(angle, order)
}

// Positional returns the position-indexed series of the session table.
func (s *AnalysisService) Positional(ctx context.Context, id string, order *string) ([]domain.PositionalSeries, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Positional(order)
}

// GroupRadar returns the radar of one group at angle.
func (s *AnalysisService) GroupRadar(ctx context.Context, id string, groupID int, angle float64, order *string) (domain.RadarResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return domain.RadarResult{}, err
	}
	return sess.GroupRadar(groupID, angle, order)
}

// Profiles returns the session registry.
func (s *AnalysisService) Profiles(ctx context.Context, id string) ([]domain.DimensionProfile, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Profiles(), nil
}

// UpdateProfile applies an operator edit to one dimension.
func (s *AnalysisService) UpdateProfile(ctx context.Context, id, name string, u registry.ProfileUpdate) (domain.DimensionProfile, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return domain.DimensionProfile{}, err
	}
	p, err := sess.UpdateProfile(name, u)
	if err != nil {
		return p, err
	}
	s.log(ctx).InfoContext(ctx, "dimension profile updated",
		slog.String("session_id", id),
		slog.String("dimension", name),
		slog.String("type", string(p.Type)))
	s.publish(ctx, events.MessageTypeRegistryUpdated, id, events.RegistryUpdated{
		Reason:     events.RegistryReasonProfile,
		Dimensions: []string{name},
	})
	return p, nil
}

// SetAngular sets or clears the angular position of one dimension.
func (s *AnalysisService) SetAngular(ctx context.Context, id, name string, in registry.AngularInput) (domain.DimensionProfile, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return domain.DimensionProfile{}, err
	}
	p, err := sess.SetAngular(name, in)
	if err != nil {
		return p, err
	}
	s.log(ctx).InfoContext(ctx, "angular position updated",
		slog.String("session_id", id),
		slog.String("dimension", name),
		slog.String("position", p.Angular.Label()))
	s.publish(ctx, events.MessageTypeRegistryUpdated, id, events.RegistryUpdated{
		Reason:     events.RegistryReasonAngular,
		Dimensions: []string{name},
	})
	return p, nil
}

// AvailableSlots lists the slots offered for one dimension.
func (s *AnalysisService) AvailableSlots(ctx context.Context, id, name string) ([]string, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.AvailableSlots(name)
}

// Groups returns the profile groups of a session.
func (s *AnalysisService) Groups(ctx context.Context, id string) ([]domain.ProfileGroup, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Groups(), nil
}

// Link creates a profile group and returns it.
func (s *AnalysisService) Link(ctx context.Context, id string, names []string) (domain.ProfileGroup, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return domain.ProfileGroup{}, err
	}
	groupID, err := sess.Link(names)
	if err != nil {
		return domain.ProfileGroup{}, err
	}
	groups := sess.Groups()
	s.log(ctx).InfoContext(ctx, "profile group linked",
		slog.String("session_id", id),
		slog.Int("group_id", groupID),
		slog.Int("members", len(names)))
	s.publish(ctx, events.MessageTypeGroupsUpdated, id, events.GroupsUpdated{Groups: groups})

	for _, g := range groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return domain.ProfileGroup{ID: groupID, Members: names}, nil
}

// ResetGroups dissolves every profile group of a session.
func (s *AnalysisService) ResetGroups(ctx context.Context, id string) error {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	sess.ResetGroups()
	s.log(ctx).InfoContext(ctx, "profile groups reset", slog.String("session_id", id))
	s.publish(ctx, events.MessageTypeGroupsUpdated, id, events.GroupsUpdated{Groups: []domain.ProfileGroup{}})
	return nil
}

// ExportRegistry writes the registry as csv or json.
func (s *AnalysisService) ExportRegistry(ctx context.Context, id, format string, w io.Writer) error {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case RegistryFormatCSV:
		return sess.ExportRegistryCSV(w)
	case RegistryFormatJSON, "":
		return sess.ExportRegistryJSON(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ImportRegistry loads a registry document into the session.
func (s *AnalysisService) ImportRegistry(ctx context.Context, id string, r io.Reader, mode registry.ImportMode) (registry.ImportResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return registry.ImportResult{}, err
	}
	return s.importRegistry(ctx, sess, r, mode, events.RegistryReasonImport)
}

func (s *AnalysisService) importRegistry(ctx context.Context, sess *session.Session, r io.Reader, mode registry.ImportMode, reason string) (registry.ImportResult, error) {
	result, err := sess.ImportRegistry(r, mode)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "registry document rejected",
			slog.String("session_id", sess.ID()),
			slog.String("error", err.Error()))
		return result, err
	}
	s.metrics.RecordRegistryImport(ctx, string(mode))
	s.log(ctx).InfoContext(ctx, "registry imported",
		slog.String("session_id", sess.ID()),
		slog.String("mode", string(mode)),
		slog.Int("created", len(result.Created)),
		slog.Int("updated", len(result.Updated)),
		slog.Int("groups", result.Groups))
	s.publish(ctx, events.MessageTypeRegistryUpdated, sess.ID(), events.RegistryUpdated{Reason: reason})
	s.publish(ctx, events.MessageTypeGroupsUpdated, sess.ID(), events.GroupsUpdated{Groups: sess.Groups()})
	return result, nil
}

// Compare aligns two pasted batches within a session.
func (s *AnalysisService) Compare(ctx context.Context, id, textA, textB string, opts compare.Options) (domain.ComparisonResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	result, err := sess.Compare(ctx, textA, textB, opts)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "comparison failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
		return result, err
	}

	flagged := compare.Flagged(result)
	names := make([]string, len(flagged))
	for i, f := range flagged {
		names[i] = f.NormalizedName
	}
	s.metrics.RecordComparison(ctx, len(flagged))
	s.log(ctx).InfoContext(ctx, "batches compared",
		slog.String("session_id", id),
		slog.Int("compared", len(result.Summaries)),
		slog.Int("flagged", len(flagged)))
	s.publish(ctx, events.MessageTypeComparisonCompleted, id, events.ComparisonCompleted{
		Compared: len(result.Summaries),
		Flagged:  names,
	})
	return result, nil
}

// SaveSnapshot stores the session registry document and returns its key.
func (s *AnalysisService) SaveSnapshot(ctx context.Context, id, label string) (snapshot.Info, error) {
	if s.snapshots == nil {
		return snapshot.Info{}, ErrNoSnapshotStore
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return snapshot.Info{}, err
	}

	var buf bytes.Buffer
	if err := sess.ExportRegistryJSON(&buf); err != nil {
		return snapshot.Info{}, err
	}
	now := s.now()
	key := snapshot.NewKey(now, label)
	err = s.snapshots.Put(ctx, key, buf.Bytes())
	s.metrics.RecordSnapshot(ctx, "save", err)
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "snapshot save failed",
			slog.String("session_id", id),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return snapshot.Info{}, err
	}

	s.log(ctx).InfoContext(ctx, "snapshot saved", slog.String("session_id", id), slog.String("key", key))
	s.publish(ctx, events.MessageTypeSnapshotSaved, id, events.SnapshotSaved{Key: key})
	return snapshot.Info{Key: key, Size: int64(buf.Len()), ModifiedAt: now.UTC()}, nil
}

// Snapshots lists stored snapshots, newest first.
func (s *AnalysisService) Snapshots(ctx context.Context) ([]snapshot.Info, error) {
	if s.snapshots == nil {
		return nil, ErrNoSnapshotStore
	}
	return s.snapshots.List(ctx)
}

// RestoreSnapshot imports a stored snapshot into a session.
func (s *AnalysisService) RestoreSnapshot(ctx context.Context, id, key string, mode registry.ImportMode) (registry.ImportResult, error) {
	if s.snapshots == nil {
		return registry.ImportResult{}, ErrNoSnapshotStore
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return registry.ImportResult{}, err
	}
	data, err := s.snapshots.Get(ctx, key)
	if err != nil {
		s.metrics.RecordSnapshot(ctx, "restore", err)
		return registry.ImportResult{}, err
	}
	result, err := s.importRegistry(ctx, sess, bytes.NewReader(data), mode, events.RegistryReasonRestore)
	s.metrics.RecordSnapshot(ctx, "restore", err)
	return result, err
}
